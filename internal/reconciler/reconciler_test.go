package reconciler

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/types"
)

type testHierarchy struct{}

func (testHierarchy) IsSubclassOf(child, parent string) bool {
	return strings.EqualFold(child, "Child") && strings.EqualFold(parent, "Base")
}

func (testHierarchy) IsInterface(name string) bool {
	return strings.EqualFold(name, "Countable")
}

func (testHierarchy) EnumCases(name string) ([]string, bool) {
	if strings.EqualFold(name, "Suit") {
		return []string{"Hearts", "Spades"}, true
	}
	return nil, false
}

func TestReconcile(t *testing.T) {
	null := types.TNull{}

	testCases := []struct {
		name      string
		existing  string
		assertion assertion.Assertion
		negated   bool
		expected  string
		status    Status
	}{
		{name: "not null", existing: "Foo|null", assertion: assertion.IsNot(null), expected: "Foo", status: Narrowed},
		{name: "negated not null", existing: "Foo|null", assertion: assertion.IsNot(null), negated: true, expected: "null", status: Narrowed},
		{name: "same class", existing: "Foo", assertion: assertion.Is(types.TNamedObject{Name: "Foo"}), expected: "Foo", status: Redundant},
		{name: "unrelated class", existing: "Foo", assertion: assertion.Is(types.TNamedObject{Name: "Bar"}), expected: "never", status: Impossible},
		{name: "subclass", existing: "Base", assertion: assertion.Is(types.TNamedObject{Name: "Child"}), expected: "Child", status: Narrowed},
		{name: "interface intersection", existing: "Foo", assertion: assertion.Is(types.TNamedObject{Name: "Countable"}), expected: "Foo&Countable", status: Narrowed},
		{name: "mixed takes the target", existing: "mixed", assertion: assertion.Is(types.TInt{}), expected: "int", status: Narrowed},
		{name: "truthy", existing: "int|string|null", assertion: assertion.Simple(assertion.Truthy), expected: "int|truthy-string", status: Narrowed},
		{name: "falsy bool", existing: "bool|null", assertion: assertion.Simple(assertion.Falsy), expected: "false|null", status: Narrowed},
		{name: "falsy scalars", existing: "int|string", assertion: assertion.Simple(assertion.Falsy), expected: "int(0)|string('')|string('0')", status: Narrowed},
		{name: "isset", existing: "array<string, int>|null", assertion: assertion.Simple(assertion.Isset), expected: "array<string, int>", status: Narrowed},
		{name: "isset on non null", existing: "string", assertion: assertion.Simple(assertion.Isset), expected: "string", status: Redundant},
		{name: "isset on null", existing: "null", assertion: assertion.Simple(assertion.Isset), expected: "never", status: Impossible},
		{name: "not isset on mixed", existing: "mixed", assertion: assertion.Simple(assertion.NotIsset), expected: "null", status: Narrowed},
		{name: "non-empty list", existing: "list<int>", assertion: assertion.Simple(assertion.NonEmptyCountable), expected: "non-empty-list<int>", status: Narrowed},
		{name: "empty countable", existing: "array{}|list<int>", assertion: assertion.Simple(assertion.EmptyCountable), expected: "array{}", status: Narrowed},
		{name: "optional key becomes required", existing: "array{a?: int}", assertion: assertion.ArrayKeyExists(types.StringKey("a")), expected: "array{'a': int}", status: Narrowed},
		{name: "required key cannot be missing", existing: "array{a: int}", assertion: assertion.ArrayKeyExists(types.StringKey("a")), negated: true, expected: "never", status: Impossible},
		{name: "greater than", existing: "int", assertion: assertion.GreaterThan(0), expected: "int<1, max>", status: Narrowed},
		{name: "less than keeps other members", existing: "int<0, 10>|string", assertion: assertion.LessThan(5), expected: "int<0, 4>|string", status: Narrowed},
		{name: "nothing above the largest int", existing: "int|string", assertion: assertion.GreaterThan(math.MaxInt64), expected: "string", status: Narrowed},
		{name: "nothing below the smallest int", existing: "int<min, 0>", assertion: assertion.LessThan(math.MinInt64), expected: "never", status: Impossible},
		{name: "every int is at most the largest", existing: "int", assertion: assertion.GreaterThan(math.MaxInt64), negated: true, expected: "int", status: Redundant},
		{name: "every int is at least the smallest", existing: "int", assertion: assertion.LessThan(math.MinInt64), negated: true, expected: "int", status: Redundant},
		{name: "literal removed from literals", existing: "1|2|3", assertion: assertion.IsNot(types.TLiteralInt{Value: 3}), expected: "int(1)|int(2)", status: Narrowed},
		{name: "literal does not remove int", existing: "int", assertion: assertion.IsNot(types.TLiteralInt{Value: 3}), expected: "int", status: Redundant},
		{name: "loosely not null", existing: "bool|int|null", assertion: assertion.NotEquals(null), expected: "int|true", status: Narrowed},
		{name: "loosely null", existing: "int|string|null", assertion: assertion.Equals(null), expected: "int(0)|null|string('')", status: Narrowed},
		{name: "loosely equal string", existing: "string", assertion: assertion.Equals(types.TLiteralString{Value: "a"}), expected: "string('a')", status: Narrowed},
		{name: "loosely equal numeric string", existing: "string", assertion: assertion.Equals(types.TLiteralString{Value: "1"}), expected: "string", status: Redundant},
		{name: "mixed not null", existing: "mixed", assertion: assertion.IsNot(null), expected: "nonnull", status: Narrowed},
		{name: "numeric string", existing: "string", assertion: assertion.Is(types.TNumeric{}), expected: "non-empty-numeric-string", status: Narrowed},
		{name: "remaining enum case", existing: "Suit", assertion: assertion.IsNot(types.TEnum{Name: "Suit", Case: "Hearts"}), expected: "Suit::Spades", status: Narrowed},
		{name: "never absorbs", existing: "never", assertion: assertion.Simple(assertion.Truthy), expected: "never", status: Redundant},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Reconcile(types.MustParse(tc.existing), tc.assertion, tc.negated, testHierarchy{})

			assert.Equal(t, tc.expected, result.Type.ID())
			assert.Equal(t, tc.status, result.Status)
		})
	}
}

func TestReconcileIssetDefinesVariable(t *testing.T) {
	existing := types.Int().AsPossiblyUndefined(false)

	result := Reconcile(existing, assertion.Simple(assertion.Isset), false, nil)

	assert.Equal(t, "int", result.Type.ID())
	assert.False(t, result.Type.PossiblyUndefined())
	assert.Equal(t, Narrowed, result.Status)
}

func TestReconcileTemplateConstraint(t *testing.T) {
	existing := types.NewUnion(types.TGenericParam{Name: "T", Constraint: types.Nullable(types.Int()), DefiningEntity: "fn-f"})

	result := Reconcile(existing, assertion.Simple(assertion.Isset), false, nil)

	param, ok := result.Type.Single()
	require.True(t, ok)
	require.IsType(t, types.TGenericParam{}, param)
	assert.Equal(t, "int", param.(types.TGenericParam).Constraint.ID())
}

func TestReconcileGroup(t *testing.T) {
	group := []assertion.Assertion{assertion.Is(types.TInt{}), assertion.Is(types.TString{})}

	testCases := []struct {
		existing string
		expected string
		status   Status
	}{
		{existing: "mixed", expected: "int|string", status: Narrowed},
		{existing: "int|string|null", expected: "int|string", status: Narrowed},
		{existing: "int", expected: "int", status: Redundant},
		{existing: "Foo", expected: "never", status: Impossible},
	}

	for _, tc := range testCases {
		t.Run(tc.existing, func(t *testing.T) {
			result := ReconcileGroup(types.MustParse(tc.existing), group, nil)

			assert.Equal(t, tc.expected, result.Type.ID())
			assert.Equal(t, tc.status, result.Status)
		})
	}
}

func TestReconcileGroupSimplifies(t *testing.T) {
	testCases := []struct {
		name     string
		existing string
		group    []assertion.Assertion
		expected string
	}{
		{
			name:     "literal inside its base type",
			existing: "int|string",
			group:    []assertion.Assertion{assertion.Is(types.TInt{}), assertion.Is(types.TLiteralInt{Value: 0})},
			expected: "int",
		},
		{
			name:     "ranges on both sides of zero",
			existing: "int",
			group:    []assertion.Assertion{assertion.GreaterThan(0), assertion.LessThan(1)},
			expected: "int",
		},
		{
			name:     "subclass inside its parent",
			existing: "Base|null",
			group:    []assertion.Assertion{assertion.Is(types.TNamedObject{Name: "Base"}), assertion.Is(types.TNamedObject{Name: "Child"})},
			expected: "Base",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ReconcileGroup(types.MustParse(tc.existing), tc.group, testHierarchy{})

			assert.Equal(t, tc.expected, result.Type.ID())
		})
	}
}

type mapScope map[string]*types.Union

func (m mapScope) Lookup(varID string) (*types.Union, bool) {
	u, ok := m[varID]
	return u, ok
}

func TestReconcileKeyedTypes(t *testing.T) {
	truths := map[string][][]assertion.Assertion{
		"$x": {{assertion.IsNot(types.TNull{})}},
		"$y": {{assertion.Simple(assertion.Truthy)}},
		"$z": {{assertion.Simple(assertion.Isset)}},
	}
	active := map[string]map[int]bool{
		"$x": {0: true},
		"$z": {0: true},
	}
	scope := mapScope{
		"$x": types.Nullable(types.Named("Foo")),
		"$y": types.Named("Bar"),
	}

	changed, outcomes := ReconcileKeyedTypes(truths, active, scope, nil)

	require.Len(t, changed, 2)
	assert.Equal(t, "Foo", changed["$x"].ID())
	assert.Equal(t, "nonnull", changed["$z"].ID())
	assert.NotContains(t, changed, "$y")

	require.Len(t, outcomes, 2)
	assert.Equal(t, "$x", outcomes[0].VarID)
	assert.Equal(t, Narrowed, outcomes[0].Status)
	assert.Equal(t, "Foo|null", outcomes[0].Before.ID())
	assert.False(t, outcomes[0].Unknown)
	assert.Equal(t, "$z", outcomes[1].VarID)
	assert.True(t, outcomes[1].Unknown)
}

func TestReconcileKeyedTypesAppliesEveryGroup(t *testing.T) {
	truths := map[string][][]assertion.Assertion{
		"$x": {
			{assertion.Simple(assertion.Isset)},
			{assertion.Is(types.TInt{}), assertion.Is(types.TString{})},
		},
	}
	scope := mapScope{"$x": types.MustParse("int|string|Foo|null")}

	changed, outcomes := ReconcileKeyedTypes(truths, nil, scope, nil)

	assert.Equal(t, "int|string", changed["$x"].ID())
	assert.Empty(t, outcomes)
}
