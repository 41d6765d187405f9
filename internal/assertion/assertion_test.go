package assertion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shopware/phpflow/internal/types"
)

func TestNegateRoundTrips(t *testing.T) {
	testCases := []struct {
		name    string
		a       Assertion
		key     string
		negated string
	}{
		{name: "is type", a: Is(types.TNull{}), key: "null", negated: "!null"},
		{name: "loose equality", a: Equals(types.TLiteralInt{Value: 0}), key: "=int(0)", negated: "!=int(0)"},
		{name: "truthy", a: Simple(Truthy), key: "!falsy", negated: "falsy"},
		{name: "isset", a: Simple(Isset), key: "isset", negated: "!isset"},
		{name: "countable", a: Simple(NonEmptyCountable), key: "non-empty-countable", negated: "!non-empty-countable"},
		{name: "array key", a: ArrayKeyExists(types.StringKey("id")), key: "=has-key('id')", negated: "!has-key('id')"},
		{name: "greater than", a: GreaterThan(5), key: ">5", negated: "<6"},
		{name: "less than", a: LessThan(0), key: "<0", negated: ">-1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.key, tc.a.Key())
			assert.Equal(t, tc.negated, tc.a.Negate().Key())
			assert.Equal(t, tc.a, tc.a.Negate().Negate())
		})
	}
}

func TestAnyHasNoNegation(t *testing.T) {
	a := Simple(Any)

	assert.Equal(t, a, a.Negate())
	assert.Equal(t, "*", a.Key())
}
