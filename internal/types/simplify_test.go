package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplify(t *testing.T) {
	testCases := []struct {
		name     string
		input    *Union
		expected string
	}{
		{
			name:     "literal inside int",
			input:    Join(Int(), LiteralInt(0)),
			expected: "int",
		},
		{
			name:     "subclass inside parent",
			input:    Join(Named("Base"), Named("Child"), Null()),
			expected: "Base|null",
		},
		{
			name:     "ranges meeting at zero",
			input:    Join(NewUnion(IntRange(Bound(1), nil)), NewUnion(IntRange(nil, Bound(0)))),
			expected: "int",
		},
		{
			name:     "ranges with a gap stay apart",
			input:    Join(NewUnion(IntRange(Bound(5), nil)), NewUnion(IntRange(nil, Bound(0)))),
			expected: "int<5, max>|int<min, 0>",
		},
		{
			name:     "literal closing the gap between ranges",
			input:    Join(NewUnion(IntRange(Bound(2), nil)), LiteralInt(1), NewUnion(IntRange(nil, Bound(0)))),
			expected: "int",
		},
		{
			name:     "literals alone are kept",
			input:    Join(LiteralInt(1), LiteralInt(2), LiteralInt(3)),
			expected: "int(1)|int(2)|int(3)",
		},
		{
			name:     "literal inside a range",
			input:    Join(NewUnion(IntRange(Bound(0), Bound(10))), LiteralInt(4)),
			expected: "int<0, 10>",
		},
		{
			name:     "truthy and falsy halves",
			input:    Join(False(), Int(), LiteralInt(0), Null(), LiteralString(""), LiteralString("0"), NewUnion(TString{NonEmpty: true, Truthy: true})),
			expected: "false|int|null|string",
		},
		{
			name:     "true and false",
			input:    Join(True(), False()),
			expected: "bool",
		},
		{
			name:     "template parameter untouched",
			input:    Join(NewUnion(TGenericParam{Name: "T", DefiningEntity: "fn-f"}), Int()),
			expected: Join(NewUnion(TGenericParam{Name: "T", DefiningEntity: "fn-f"}), Int()).ID(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Simplify(tc.input, newTestHierarchy()).ID())
		})
	}
}

func TestSimplifyKeepsFlags(t *testing.T) {
	u := Simplify(Join(Int(), LiteralInt(1)).AsPossiblyUndefined(false), nil)

	assert.Equal(t, "int", u.ID())
	assert.True(t, u.PossiblyUndefined())
}
