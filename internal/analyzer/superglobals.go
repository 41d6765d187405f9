package analyzer

import (
	"sync"

	"github.com/shopware/phpflow/internal/types"
)

var (
	superglobalsOnce sync.Once
	superglobalTypes map[string]*types.Union
)

// superglobal returns the type of a superglobal such as $_GET. The table is
// built on first use and shared by every analyzer.
func superglobal(id string) (*types.Union, bool) {
	superglobalsOnce.Do(func() {
		stringMap := types.ArrayOf(types.NewUnion(types.TArrayKey{}), types.Mixed())
		superglobalTypes = map[string]*types.Union{
			"$GLOBALS":  types.ArrayOf(types.String(), types.Mixed()),
			"$_SERVER":  stringMap,
			"$_GET":     stringMap,
			"$_POST":    stringMap,
			"$_COOKIE":  stringMap,
			"$_REQUEST": stringMap,
			"$_SESSION": stringMap,
			"$_ENV":     types.ArrayOf(types.String(), types.String()),
			"$_FILES": types.ArrayOf(types.String(), types.NewUnion(types.Shape(
				types.KeyedItem{Key: types.StringKey("name"), Type: types.Mixed()},
				types.KeyedItem{Key: types.StringKey("type"), Type: types.Mixed()},
				types.KeyedItem{Key: types.StringKey("size"), Type: types.Mixed()},
				types.KeyedItem{Key: types.StringKey("tmp_name"), Type: types.Mixed()},
				types.KeyedItem{Key: types.StringKey("error"), Type: types.Mixed()},
				types.KeyedItem{Key: types.StringKey("full_path"), Type: types.Mixed(), Optional: true},
			))),
		}
	})
	t, ok := superglobalTypes[id]
	return t, ok
}
