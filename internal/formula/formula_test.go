package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/types"
)

type mapResolver map[ast.Expr]*types.Union

func (m mapResolver) TypeOf(e ast.Expr) *types.Union { return m[e] }

func at(offset int) ast.Base {
	return ast.Base{Loc: ast.Span{Start: offset, End: offset + 1}}
}

func variable(name string, offset int) *ast.Variable {
	return &ast.Variable{Base: at(offset), Name: name}
}

func binary(op ast.BinaryOp, left, right ast.Expr, offset int) *ast.Binary {
	return &ast.Binary{Base: at(offset), Op: op, Left: left, Right: right}
}

func call(name string, offset int, args ...ast.Expr) *ast.Call {
	c := &ast.Call{Base: at(offset), Name: name}
	for _, a := range args {
		c.Args = append(c.Args, ast.Arg{Value: a})
	}
	return c
}

func formulaOf(t *testing.T, b *Builder, cond ast.Expr) []*Clause {
	t.Helper()
	clauses, err := b.GetFormula(cond.Span(), cond.Span(), cond)
	require.NoError(t, err)
	return clauses
}

func reconcilableKeys(clauses []*Clause) []string {
	var keys []string
	for _, c := range clauses {
		if !c.Wedge {
			keys = append(keys, c.Key())
		}
	}
	return keys
}

func hasWedge(clauses []*Clause) bool {
	for _, c := range clauses {
		if c.Wedge {
			return true
		}
	}
	return false
}

func TestGetFormula(t *testing.T) {
	x, y := variable("x", 1), variable("y", 2)
	list := &ast.ArrayLit{Base: at(40)}
	b := &Builder{Limits: DefaultLimits, Resolver: mapResolver{
		list: types.NewUnion(types.Shape(
			types.KeyedItem{Key: types.IntKey(0), Type: types.LiteralString("a")},
			types.KeyedItem{Key: types.IntKey(1), Type: types.LiteralString("b")},
		)),
	}}

	testCases := []struct {
		name      string
		cond      ast.Expr
		keys      []string
		withWedge bool
	}{
		{
			name: "not identical to null",
			cond: binary(ast.OpNotIdentical, x, &ast.NullLit{Base: at(3)}, 10),
			keys: []string{"$x[!null]"},
		},
		{
			name: "null on the left",
			cond: binary(ast.OpIdentical, &ast.NullLit{Base: at(3)}, x, 10),
			keys: []string{"$x[null]"},
		},
		{
			name: "conjunction keeps clauses apart",
			cond: binary(ast.OpAnd, x, y, 10),
			keys: []string{"$x[!falsy]", "$y[!falsy]"},
		},
		{
			name: "disjunction joins possibilities",
			cond: binary(ast.OpOr, x, y, 10),
			keys: []string{"$x[!falsy]$y[!falsy]"},
		},
		{
			name: "negated disjunction",
			cond: &ast.Unary{Base: at(11), Op: ast.OpNot, Operand: binary(ast.OpOr, x, y, 10)},
			keys: []string{"$x[falsy]", "$y[falsy]"},
		},
		{
			name:      "opaque call",
			cond:      call("foo", 10),
			withWedge: true,
		},
		{
			name: "disjunction with opaque side is unreconcilable",
			cond: binary(ast.OpOr, &ast.Instanceof{Base: at(5), Expr: x, Class: "Foo"}, call("foo", 6), 10),
			keys: []string{"~$x[Foo]"},
		},
		{
			name: "instanceof",
			cond: &ast.Instanceof{Base: at(5), Expr: x, Class: "\\App\\Foo"},
			keys: []string{"$x[App\\Foo]"},
		},
		{
			name: "isset on an offset implies the key",
			cond: &ast.Isset{Base: at(10), Vars: []ast.Expr{&ast.ArrayDimFetch{Base: at(4), Array: variable("a", 3), Dim: &ast.StringLit{Base: at(5), Value: "k"}}}},
			keys: []string{"$a['k'][isset]", "^$a[=has-key('k')]"},
		},
		{
			name: "empty",
			cond: &ast.Empty{Base: at(10), Expr: x},
			keys: []string{"$x[falsy]"},
		},
		{
			name: "is_scalar is one disjunction",
			cond: call("is_scalar", 10, x),
			keys: []string{"$x[bool,float,int,string]"},
		},
		{
			name: "is_string compared to false",
			cond: binary(ast.OpIdentical, call("is_string", 5, x), &ast.BoolLit{Base: at(6), Value: false}, 10),
			keys: []string{"$x[!string]"},
		},
		{
			name: "greater than literal",
			cond: binary(ast.OpGreater, x, &ast.IntLit{Base: at(3), Value: 5}, 10),
			keys: []string{"$x[>5]"},
		},
		{
			name: "flipped relational",
			cond: binary(ast.OpLess, &ast.IntLit{Base: at(3), Value: 5}, x, 10),
			keys: []string{"$x[>5]"},
		},
		{
			name: "greater or equal",
			cond: binary(ast.OpGreaterEqual, x, &ast.IntLit{Base: at(3), Value: 1}, 10),
			keys: []string{"$x[>0]"},
		},
		{
			name: "count greater than zero",
			cond: binary(ast.OpGreater, call("count", 5, x), &ast.IntLit{Base: at(6), Value: 0}, 10),
			keys: []string{"$x[non-empty-countable]"},
		},
		{
			name:      "count equal to two only implies non-empty",
			cond:      binary(ast.OpIdentical, call("count", 5, x), &ast.IntLit{Base: at(6), Value: 2}, 10),
			keys:      []string{"$x[non-empty-countable]"},
			withWedge: true,
		},
		{
			name: "array_key_exists",
			cond: call("array_key_exists", 10, &ast.StringLit{Base: at(3), Value: "id"}, x),
			keys: []string{"$x[=has-key('id')]"},
		},
		{
			name: "strict in_array against a known shape",
			cond: call("in_array", 10, x, list, &ast.BoolLit{Base: at(41), Value: true}),
			keys: []string{"$x[string('a'),string('b')]"},
		},
		{
			name: "assignment in condition",
			cond: &ast.Assign{Base: at(10), Target: x, Value: call("foo", 11)},
			keys: []string{"$x[!falsy]"},
		},
		{
			name: "literal true says nothing",
			cond: &ast.BoolLit{Base: at(10), Value: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clauses := formulaOf(t, b, tc.cond)

			assert.Equal(t, tc.keys, reconcilableKeys(clauses))
			assert.Equal(t, tc.withWedge, hasWedge(clauses))
		})
	}
}

func TestNegate(t *testing.T) {
	x := variable("x", 1)
	b := &Builder{Limits: DefaultLimits}

	t.Run("identity check", func(t *testing.T) {
		cond := binary(ast.OpNotIdentical, x, &ast.NullLit{Base: at(3)}, 10)
		negated, err := Negate(formulaOf(t, b, cond), cond.Span(), DefaultLimits)
		require.NoError(t, err)
		assert.Equal(t, []string{"$x[null]"}, Keys(negated))
	})

	t.Run("wedge becomes a fresh wedge", func(t *testing.T) {
		negated, err := Negate([]*Clause{NewWedge(at(1).Loc, at(1).Loc)}, at(2).Loc, DefaultLimits)
		require.NoError(t, err)
		require.Len(t, negated, 1)
		assert.True(t, negated[0].Wedge)
		assert.Equal(t, at(2).Loc, negated[0].CreatingConditionID)
	})

	t.Run("unreconcilable clause keeps its assertions negated", func(t *testing.T) {
		cond := binary(ast.OpOr, &ast.Instanceof{Base: at(5), Expr: x, Class: "Foo"}, call("foo", 6), 10)
		negated, err := Negate(formulaOf(t, b, cond), cond.Span(), DefaultLimits)
		require.NoError(t, err)

		assert.Equal(t, []string{"$x[!Foo]"}, reconcilableKeys(negated))
		assert.True(t, hasWedge(negated))

		truths, _ := FindSatisfyingAssignments(negated, cond.Span())
		assert.Equal(t, [][]assertion.Assertion{{assertion.IsNot(types.TNamedObject{Name: "Foo"})}}, truths["$x"])
	})

	t.Run("implied clauses are skipped", func(t *testing.T) {
		cond := &ast.Isset{Base: at(10), Vars: []ast.Expr{&ast.PropertyFetch{Base: at(4), Object: x, Name: "p"}}}
		negated, err := Negate(formulaOf(t, b, cond), cond.Span(), DefaultLimits)
		require.NoError(t, err)
		assert.Equal(t, []string{"$x->p[!isset]"}, Keys(negated))
	})

	t.Run("one way implication negates to nothing", func(t *testing.T) {
		cond := binary(ast.OpIdentical, call("count", 5, x), &ast.IntLit{Base: at(6), Value: 2}, 10)
		negated, err := Negate(formulaOf(t, b, cond), cond.Span(), DefaultLimits)
		require.NoError(t, err)
		truths, _ := FindSatisfyingAssignments(negated, cond.Span())
		assert.Empty(t, truths)
	})

	t.Run("empty formula negates to a wedge", func(t *testing.T) {
		negated := NegateOrSynthesize(nil, at(3).Loc, DefaultLimits)
		require.Len(t, negated, 1)
		assert.True(t, negated[0].Wedge)
	})
}

func TestOrLimit(t *testing.T) {
	span := at(1).Loc
	truthy := assertion.Simple(assertion.Truthy)
	left := []*Clause{Unit("$a", truthy, span, span), Unit("$b", truthy, span, span)}
	right := []*Clause{Unit("$c", truthy, span, span), Unit("$d", truthy, span, span)}

	_, err := Or(left, right, Limits{MaxDisjunctionProduct: 3})
	assert.ErrorIs(t, err, ErrComplexFormula)

	clauses, err := Or(left, right, Limits{MaxDisjunctionProduct: 4})
	require.NoError(t, err)
	assert.Len(t, clauses, 4)

	negated := NegateOrSynthesize([]*Clause{
		NewClause(map[string][]assertion.Assertion{"$a": {truthy}, "$b": {truthy}}, span, span),
		NewClause(map[string][]assertion.Assertion{"$c": {truthy}, "$d": {truthy}}, span, span),
	}, span, Limits{MaxDisjunctionProduct: 2})
	require.Len(t, negated, 1)
	assert.True(t, negated[0].Wedge)
}

func TestOrDropsTautologies(t *testing.T) {
	span := at(1).Loc
	clauses, err := Or(
		[]*Clause{Unit("$x", assertion.Simple(assertion.Truthy), span, span)},
		[]*Clause{Unit("$x", assertion.Simple(assertion.Falsy), span, span)},
		DefaultLimits,
	)
	require.NoError(t, err)
	assert.Empty(t, clauses)
}

func TestSaturate(t *testing.T) {
	span := at(1).Loc
	truthy := assertion.Simple(assertion.Truthy)
	falsy := assertion.Simple(assertion.Falsy)
	pair := func(xa, ya assertion.Assertion) *Clause {
		return NewClause(map[string][]assertion.Assertion{"$x": {xa}, "$y": {ya}}, span, span)
	}

	testCases := []struct {
		name     string
		clauses  []*Clause
		expected []string
	}{
		{
			name:     "unit resolution",
			clauses:  []*Clause{Unit("$x", truthy, span, span), pair(falsy, truthy)},
			expected: []string{"$x[!falsy]", "$y[!falsy]"},
		},
		{
			name:     "subsumption",
			clauses:  []*Clause{Unit("$x", truthy, span, span), pair(truthy, truthy)},
			expected: []string{"$x[!falsy]"},
		},
		{
			name:     "complementary pair",
			clauses:  []*Clause{pair(truthy, truthy), pair(falsy, truthy)},
			expected: []string{"$y[!falsy]"},
		},
		{
			name:     "duplicates",
			clauses:  []*Clause{Unit("$x", truthy, span, span), Unit("$x", truthy, span, span)},
			expected: []string{"$x[!falsy]"},
		},
		{
			name:     "contradiction is kept",
			clauses:  []*Clause{Unit("$x", truthy, span, span), Unit("$x", falsy, span, span)},
			expected: []string{"$x[!falsy]", "$x[falsy]"},
		},
		{
			name:     "wedge is not resolved",
			clauses:  []*Clause{NewWedge(span, span), Unit("$x", truthy, span, span)},
			expected: []string{"wedge@1:1~", "$x[!falsy]"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Keys(Saturate(tc.clauses, DefaultLimits)))
		})
	}
}

func TestSaturateCutoffReturnsInput(t *testing.T) {
	span := at(1).Loc
	truthy := assertion.Simple(assertion.Truthy)
	input := []*Clause{
		Unit("$x", truthy, span, span),
		NewClause(map[string][]assertion.Assertion{"$x": {assertion.Simple(assertion.Falsy)}, "$y": {truthy}}, span, span),
		Unit("$z", truthy, span, span),
	}

	assert.Equal(t, Keys(input), Keys(Saturate(input, Limits{MaxClauses: 2, MaxIterations: 10})))
	assert.Equal(t, Keys(input), Keys(Saturate(input, Limits{MaxClauses: 10, MaxIterations: 1})))
	assert.Equal(t, []string{"$x[!falsy]", "$y[!falsy]", "$z[!falsy]"}, Keys(Saturate(input, Limits{MaxClauses: 10, MaxIterations: 10})))
}

func TestFindSatisfyingAssignments(t *testing.T) {
	current, earlier := at(1).Loc, at(2).Loc
	isNull := assertion.Is(types.TNull{})
	clauses := []*Clause{
		Unit("$x", assertion.IsNot(types.TNull{}), current, current),
		Unit("$y", isNull, earlier, earlier),
		NewClause(map[string][]assertion.Assertion{"$x": {isNull}, "$y": {isNull}}, current, current),
		NewClause(map[string][]assertion.Assertion{"$z": {assertion.Is(types.TInt{}), assertion.Is(types.TString{})}}, current, current),
		NewWedge(current, current),
	}

	truths, active := FindSatisfyingAssignments(clauses, current)

	assert.Len(t, truths, 3)
	assert.Equal(t, [][]assertion.Assertion{{assertion.IsNot(types.TNull{})}}, truths["$x"])
	assert.Equal(t, [][]assertion.Assertion{{isNull}}, truths["$y"])
	assert.Len(t, truths["$z"][0], 2)
	assert.True(t, active["$x"][0])
	assert.Nil(t, active["$y"])
	assert.True(t, active["$z"][0])
}
