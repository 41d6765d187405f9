package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testHierarchy struct {
	parents    map[string][]string
	interfaces map[string]bool
	enums      map[string][]string
}

func (h testHierarchy) IsSubclassOf(child, parent string) bool {
	for _, p := range h.parents[strings.ToLower(child)] {
		if strings.EqualFold(p, parent) || h.IsSubclassOf(p, parent) {
			return true
		}
	}
	return false
}

func (h testHierarchy) IsInterface(name string) bool {
	return h.interfaces[strings.ToLower(name)]
}

func (h testHierarchy) EnumCases(name string) ([]string, bool) {
	cases, ok := h.enums[strings.ToLower(name)]
	return cases, ok
}

func newTestHierarchy() testHierarchy {
	return testHierarchy{
		parents: map[string][]string{
			"child":      {"Base"},
			"grandchild": {"Child"},
			"impl":       {"Countable"},
		},
		interfaces: map[string]bool{"countable": true},
		enums:      map[string][]string{"suit": {"Hearts", "Spades"}},
	}
}

func TestIsContainedBy(t *testing.T) {
	h := newTestHierarchy()
	testCases := []struct {
		name      string
		input     *Union
		container *Union
		expected  bool
	}{
		{name: "literal in base", input: LiteralInt(3), container: Int(), expected: true},
		{name: "base not in literal", input: Int(), container: LiteralInt(3), expected: false},
		{name: "anything in mixed", input: Named("Foo"), container: Mixed(), expected: true},
		{name: "never in anything", input: Never(), container: Named("Foo"), expected: true},
		{name: "null in nullable", input: Null(), container: Nullable(Named("Foo")), expected: true},
		{name: "nullable not in object", input: Nullable(Named("Foo")), container: Named("Foo"), expected: false},
		{name: "null not in nonnull", input: Null(), container: NewUnion(TMixed{NonNull: true}), expected: false},
		{name: "enum case in caseless enum", input: EnumCase("Suit", "Hearts"), container: NewUnion(TEnum{Name: "Suit"}), expected: true},
		{name: "enum case in same case", input: EnumCase("Suit", "Hearts"), container: EnumCase("Suit", "Hearts"), expected: true},
		{name: "enum case not in other case", input: EnumCase("Suit", "Hearts"), container: EnumCase("Suit", "Spades"), expected: false},
		{name: "enum object in all its cases", input: Named("Suit"), container: NewUnion(TEnum{Name: "Suit", Case: "Hearts"}, TEnum{Name: "Suit", Case: "Spades"}), expected: true},
		{name: "enum object not in one case", input: Named("Suit"), container: EnumCase("Suit", "Hearts"), expected: false},
		{name: "narrow range in wide range", input: NewUnion(IntRange(Bound(1), Bound(5))), container: NewUnion(IntRange(Bound(0), Bound(10))), expected: true},
		{name: "wide range not in narrow range", input: NewUnion(IntRange(Bound(0), Bound(10))), container: NewUnion(IntRange(Bound(1), Bound(5))), expected: false},
		{name: "bool in true and false", input: Bool(), container: NewUnion(TTrue{}, TFalse{}), expected: true},
		{name: "array key in int and string", input: NewUnion(TArrayKey{}), container: NewUnion(TInt{}, TString{}), expected: true},
		{name: "non-empty string in string", input: NewUnion(TString{NonEmpty: true}), container: String(), expected: true},
		{name: "string not in non-empty string", input: String(), container: NewUnion(TString{NonEmpty: true}), expected: false},
		{name: "literal string in non-empty string", input: LiteralString("abc"), container: NewUnion(TString{NonEmpty: true}), expected: true},
		{name: "int not in float", input: Int(), container: Float(), expected: false},
		{name: "subclass in parent", input: Named("GrandChild"), container: Named("Base"), expected: true},
		{name: "parent not in subclass", input: Named("Base"), container: Named("Child"), expected: false},
		{name: "intersection in one of its parts", input: NewUnion(TNamedObject{Name: "Foo", Intersections: []Atomic{TNamedObject{Name: "Bar"}}}), container: Named("Bar"), expected: true},
		{name: "object not in intersection", input: Named("Foo"), container: NewUnion(TNamedObject{Name: "Foo", Intersections: []Atomic{TNamedObject{Name: "Bar"}}}), expected: false},
		{name: "generic param through constraint", input: NewUnion(TGenericParam{Name: "T", Constraint: Named("Child"), DefiningEntity: "fn"}), container: Named("Base"), expected: true},
		{name: "value in generic param constraint", input: LiteralInt(3), container: NewUnion(TGenericParam{Name: "T", Constraint: Int(), DefiningEntity: "fn"}), expected: true},
		{name: "list in int keyed array", input: ListOf(Int()), container: ArrayOf(Int(), Int()), expected: true},
		{name: "shape in generic array", input: NewUnion(Shape(KeyedItem{Key: StringKey("a"), Type: Int()})), container: ArrayOf(String(), Int()), expected: true},
		{name: "shape missing required item", input: NewUnion(Shape(KeyedItem{Key: StringKey("a"), Type: Int()})), container: NewUnion(Shape(KeyedItem{Key: StringKey("a"), Type: Int()}, KeyedItem{Key: StringKey("b"), Type: Int()})), expected: false},
		{name: "list not in non-empty list", input: ListOf(Int()), container: NewUnion(TList{Value: Int(), NonEmpty: true}), expected: false},
		{name: "closure in Closure class", input: NewUnion(TCallable{IsClosure: true}), container: Named("Closure"), expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsContainedBy(tc.input, tc.container, h, nil))
		})
	}
}

func TestIsContainedByCoercion(t *testing.T) {
	var res ComparisonResult
	assert.False(t, IsContainedBy(Mixed(), Int(), NoHierarchy{}, &res))
	assert.True(t, res.TypeCoerced)
	assert.False(t, res.TypeCoercedFromNestedMixed)

	res = ComparisonResult{}
	assert.True(t, IsContainedBy(Mixed(), Mixed(), NoHierarchy{}, &res))
	assert.True(t, res.TypeCoerced)

	res = ComparisonResult{}
	assert.False(t, IsContainedBy(ListOf(Mixed()), ListOf(Int()), NoHierarchy{}, &res))
	assert.True(t, res.TypeCoerced)
	assert.True(t, res.TypeCoercedFromNestedMixed)

	res = ComparisonResult{}
	assert.True(t, IsContainedBy(Int(), Mixed(), NoHierarchy{}, &res))
	assert.False(t, res.TypeCoerced)
}

func TestCanBeIdentical(t *testing.T) {
	h := newTestHierarchy()
	testCases := []struct {
		name     string
		a, b     *Union
		expected bool
	}{
		{name: "int and string", a: Int(), b: String(), expected: false},
		{name: "int and literal", a: Int(), b: LiteralInt(3), expected: true},
		{name: "disjoint ranges", a: NewUnion(IntRange(Bound(0), Bound(5))), b: NewUnion(IntRange(Bound(6), Bound(10))), expected: false},
		{name: "overlapping ranges", a: NewUnion(IntRange(Bound(0), Bound(5))), b: NewUnion(IntRange(Bound(5), Bound(10))), expected: true},
		{name: "object and null", a: Named("Foo"), b: Null(), expected: false},
		{name: "mixed and null", a: Mixed(), b: Null(), expected: true},
		{name: "nonnull and null", a: NewUnion(TMixed{NonNull: true}), b: Null(), expected: false},
		{name: "interface and unrelated class", a: Named("Countable"), b: Named("Foo"), expected: true},
		{name: "unrelated classes", a: Named("Foo"), b: Named("Bar"), expected: false},
		{name: "nullable and null", a: Nullable(Int()), b: Null(), expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanBeIdentical(tc.a, tc.b, h))
		})
	}
}
