package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubtract(t *testing.T) {
	h := newTestHierarchy()
	testCases := []struct {
		name     string
		existing *Union
		remove   *Union
		expected string
	}{
		{name: "nullable object minus null", existing: Nullable(Named("Foo")), remove: Null(), expected: "Foo"},
		{name: "identical unions", existing: Nullable(Int()), remove: Nullable(Int()), expected: "never"},
		{name: "literal does not remove base", existing: Int(), remove: LiteralInt(3), expected: "int"},
		{name: "literal shrinks range start", existing: NewUnion(IntRange(Bound(0), Bound(5))), remove: LiteralInt(0), expected: "int<1, 5>"},
		{name: "literal shrinks range end", existing: NewUnion(IntRange(Bound(0), Bound(5))), remove: LiteralInt(5), expected: "int<0, 4>"},
		{name: "range minus lower part", existing: Int(), remove: NewUnion(IntRange(nil, Bound(0))), expected: "int<1, max>"},
		{name: "literal set minus one literal", existing: NewUnion(TLiteralInt{Value: 1}, TLiteralInt{Value: 2}, TLiteralInt{Value: 3}), remove: LiteralInt(2), expected: "int(1)|int(3)"},
		{name: "bool minus true", existing: Bool(), remove: True(), expected: "false"},
		{name: "mixed minus null", existing: Mixed(), remove: Null(), expected: "nonnull"},
		{name: "array key minus int", existing: NewUnion(TArrayKey{}), remove: Int(), expected: "string"},
		{name: "string minus empty string", existing: String(), remove: LiteralString(""), expected: "non-empty-string"},
		{name: "enum object minus case", existing: Named("Suit"), remove: EnumCase("Suit", "Hearts"), expected: "Suit::Spades"},
		{name: "caseless enum minus case", existing: NewUnion(TEnum{Name: "Suit"}), remove: EnumCase("Suit", "Spades"), expected: "Suit::Hearts"},
		{name: "list minus empty array", existing: ListOf(Int()), remove: EmptyArray(), expected: "non-empty-list<int>"},
		{name: "subclass removed by parent", existing: NewUnion(TNamedObject{Name: "Child"}, TNull{}), remove: Named("Base"), expected: "null"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Subtract(tc.existing, tc.remove, h).ID())
		})
	}
}

func TestSubtractDisjointKeepsHandle(t *testing.T) {
	existing := NewUnion(TInt{}, TString{})

	assert.Same(t, existing, Subtract(existing, Float(), NoHierarchy{}))
}

func TestSubtractKeepsFlags(t *testing.T) {
	existing := Nullable(Named("Foo")).AsPossiblyUndefined(false)

	result := Subtract(existing, Null(), NoHierarchy{})

	assert.Equal(t, "Foo", result.ID())
	assert.True(t, result.PossiblyUndefined())
}

func TestContainedImpliesSubtractIsNever(t *testing.T) {
	h := newTestHierarchy()
	pairs := []struct{ x, container *Union }{
		{LiteralInt(3), Int()},
		{LiteralString("a"), String()},
		{NewUnion(TString{NonEmpty: true}), String()},
		{EnumCase("Suit", "Hearts"), NewUnion(TEnum{Name: "Suit"})},
		{NewUnion(TList{Value: Int(), NonEmpty: true}), ListOf(Int())},
		{NewUnion(IntRange(Bound(1), Bound(5))), NewUnion(IntRange(Bound(0), Bound(10)))},
		{Null(), Null()},
		{Bool(), NewUnion(TTrue{}, TFalse{})},
		{Named("Child"), Named("Base")},
		{Named("Foo"), Object()},
		{Never(), Int()},
	}

	for _, p := range pairs {
		assert.True(t, IsContainedBy(p.x, p.container, h, nil), "%s in %s", p.x, p.container)
		assert.True(t, Subtract(p.x, p.container, h).IsNever(), "%s minus %s", p.x, p.container)
	}
}

func TestIntersectIntRange(t *testing.T) {
	assert.Equal(t, "int<1, max>", IntersectIntRange(Int(), Bound(1), nil).ID())
	assert.Equal(t, "int(1)|string", IntersectIntRange(NewUnion(TInt{}, TString{}), Bound(1), Bound(1)).ID())
	assert.Equal(t, "never", IntersectIntRange(LiteralInt(0), Bound(1), nil).ID())
}
