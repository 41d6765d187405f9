package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/php"
)

func newTestDeclarationIndexer(t *testing.T) *DeclarationIndexer {
	t.Helper()
	idx, err := NewDeclarationIndexer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func indexSource(t *testing.T, idx *DeclarationIndexer, path, src string) {
	t.Helper()
	parser := CreateTreesitterParser()
	defer parser.Close()

	tree := parser.Parse([]byte(src), nil)
	defer tree.Close()
	require.NoError(t, idx.Index(path, tree.RootNode(), []byte(src)))
}

func TestDeclarationIndexerBuildsCodebase(t *testing.T) {
	idx := newTestDeclarationIndexer(t)

	indexSource(t, idx, "src/Product.php", `<?php
namespace Shop;

class Product
{
    public function __construct(public readonly int $id) {}

    public function name(): ?string
    {
        return null;
    }
}
`)
	indexSource(t, idx, "src/functions.php", `<?php
namespace Shop;

const MAX_ITEMS = 10;

function find(int $id): ?Product
{
    return null;
}
`)
	indexSource(t, idx, "src/empty.php", `<?php echo 1;`)

	paths, err := idx.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/Product.php", "src/functions.php"}, paths, "files without declarations are not stored")

	cb, err := idx.Codebase(nil)
	require.NoError(t, err)

	assert.True(t, cb.ClassExists("Shop\\Product"))
	m, ok := cb.Method("Shop\\Product", "name")
	require.True(t, ok)
	assert.Equal(t, "null|string", m.ReturnType().String())

	f, ok := cb.Function("Shop\\find")
	require.True(t, ok)
	assert.Equal(t, "Shop\\Product|null", f.ReturnType().String())

	c, ok := cb.Constant("Shop\\MAX_ITEMS")
	require.True(t, ok)
	assert.Equal(t, "int(10)", c.String())
}

func TestDeclarationIndexerReindexAndRemove(t *testing.T) {
	idx := newTestDeclarationIndexer(t)

	indexSource(t, idx, "a.php", `<?php class Alpha {}`)
	require.NoError(t, idx.RemovedFiles([]string{"a.php"}))
	indexSource(t, idx, "a.php", `<?php class Beta {}`)

	cb, err := idx.Codebase(nil)
	require.NoError(t, err)
	assert.False(t, cb.ClassExists("Alpha"))
	assert.True(t, cb.ClassExists("Beta"))

	require.NoError(t, idx.RemovedFiles([]string{"a.php"}))
	decls, err := idx.Declarations("a.php")
	require.NoError(t, err)
	assert.Nil(t, decls)
}

func TestDeclarationIndexerOverrides(t *testing.T) {
	idx := newTestDeclarationIndexer(t)
	indexSource(t, idx, "a.php", `<?php class Alpha {}`)

	parser, err := php.NewParser()
	require.NoError(t, err)
	defer parser.Close()
	_, decls, err := parser.Parse("a.php", []byte(`<?php class Gamma {}`))
	require.NoError(t, err)

	cb, err := idx.Codebase(map[string]*php.Declarations{"a.php": decls})
	require.NoError(t, err)
	assert.False(t, cb.ClassExists("Alpha"), "the override replaces the stored file")
	assert.True(t, cb.ClassExists("Gamma"))
}

func TestScannerFeedsDeclarationIndexer(t *testing.T) {
	root := t.TempDir()
	createTestFiles(t, root, map[string]string{
		"src/Entity.php":      "<?php namespace App; interface Entity {}",
		"src/Category.php":    "<?php namespace App; final class Category implements Entity {}",
		"tests/FakeClass.php": "<?php class FakeClass {}",
	})

	cfg := config.Default()
	cfg.ExcludeDirs = []string{"tests"}
	fs := newTestScanner(t, root, cfg)

	idx, err := NewDeclarationIndexer(t.TempDir())
	require.NoError(t, err)
	fs.AddIndexer(idx)

	require.NoError(t, fs.IndexAll(context.Background()))

	cb, err := idx.Codebase(nil)
	require.NoError(t, err)
	assert.True(t, cb.IsSubclassOf("App\\Category", "App\\Entity"))
	assert.False(t, cb.ClassExists("FakeClass"))

	paths, err := idx.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "Category.php"), filepath.Join(root, "src", "Entity.php")}, paths)
}
