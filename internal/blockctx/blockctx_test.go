package blockctx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/formula"
	"github.com/shopware/phpflow/internal/types"
)

func TestCloneIsIndependent(t *testing.T) {
	bc := New()
	bc.SetLocal("$x", types.Int())
	bc.AddClauses(formula.Unit("$x", assertion.Simple(assertion.Truthy), ast.Span{}, ast.Span{}))
	bc.AssignedVarIDs.Insert("$x")

	clone := bc.Clone()
	clone.SetLocal("$x", types.String())
	clone.SetLocal("$y", types.Bool())
	clone.AddClauses(formula.NewWedge(ast.Span{Start: 1}, ast.Span{Start: 1}))
	clone.AssignedVarIDs.Insert("$y")
	clone.AddThrown("RuntimeException", ast.Span{Start: 4})

	x, ok := bc.Local("$x")
	require.True(t, ok)
	assert.Equal(t, "int", x.ID())
	assert.False(t, bc.HasLocal("$y"))
	assert.Len(t, bc.Clauses(), 1)
	assert.Len(t, clone.Clauses(), 2)
	assert.False(t, bc.AssignedVarIDs.Contains("$y"))
	assert.Empty(t, bc.ThrownClasses())
	assert.Equal(t, []string{"$x", "$y"}, clone.LocalIDs())
}

func TestClonesShareTypes(t *testing.T) {
	bc := New()
	u := types.Nullable(types.Named("Foo"))
	bc.SetLocal("$x", u)

	x, _ := bc.Clone().Local("$x")

	assert.Same(t, u, x)
	assert.True(t, bc.SameLocals(bc.Clone()))
}

func TestRemoveAliasedLocal(t *testing.T) {
	bc := New()
	bc.SetLocal("$x", types.Int())
	bc.AddReference("$a", "$x")
	bc.AddReference("$b", "$x")
	require.NoError(t, bc.CheckReferenceInvariants())
	assert.Equal(t, 2, bc.ReferencedCounts["$x"])

	bc.RemoveLocal("$x")

	require.NoError(t, bc.CheckReferenceInvariants())
	assert.False(t, bc.HasLocal("$x"))
	assert.Equal(t, map[string]string{"$b": "$a"}, bc.ReferencesInScope)
	assert.Equal(t, map[string]int{"$a": 1}, bc.ReferencedCounts)
	assert.Equal(t, []string{"$a", "$b"}, bc.ReferenceGroup("$b"))
	for _, to := range bc.ReferencesInScope {
		assert.True(t, bc.HasLocal(to))
	}
}

func TestRemoveReference(t *testing.T) {
	bc := New()
	bc.SetLocal("$x", types.Int())
	bc.AddReference("$a", "$x")

	bc.RemoveLocal("$a")

	require.NoError(t, bc.CheckReferenceInvariants())
	assert.Empty(t, bc.ReferencesInScope)
	assert.Empty(t, bc.ReferencedCounts)
	assert.True(t, bc.HasLocal("$x"))
}

func TestAddReference(t *testing.T) {
	t.Run("undefined target becomes null", func(t *testing.T) {
		bc := New()
		bc.AddReference("$a", "$x")

		x, ok := bc.Local("$x")
		require.True(t, ok)
		assert.Equal(t, "null", x.ID())
		require.NoError(t, bc.CheckReferenceInvariants())
	})

	t.Run("reference to a reference aliases the local", func(t *testing.T) {
		bc := New()
		bc.SetLocal("$x", types.Int())
		bc.AddReference("$a", "$x")
		bc.AddReference("$c", "$a")

		assert.Equal(t, "$x", bc.ReferencesInScope["$c"])
		assert.Equal(t, 2, bc.ReferencedCounts["$x"])
		require.NoError(t, bc.CheckReferenceInvariants())
	})

	t.Run("rebinding leaves old aliases behind", func(t *testing.T) {
		bc := New()
		bc.SetLocal("$x", types.Int())
		bc.SetLocal("$y", types.String())
		bc.AddReference("$a", "$x")
		bc.AddReference("$a", "$y")

		assert.Equal(t, "$y", bc.ReferencesInScope["$a"])
		assert.NotContains(t, bc.ReferencedCounts, "$x")
		require.NoError(t, bc.CheckReferenceInvariants())
	})

	t.Run("rebinding an aliased local keeps its aliases together", func(t *testing.T) {
		bc := New()
		bc.SetLocal("$x", types.Int())
		bc.SetLocal("$y", types.String())
		bc.AddReference("$b", "$x")
		bc.AddReference("$c", "$x")
		bc.AddReference("$x", "$y")

		require.NoError(t, bc.CheckReferenceInvariants())
		assert.Equal(t, "$y", bc.ReferencesInScope["$x"])
		assert.Equal(t, "$b", bc.ReferencesInScope["$c"])
	})
}

func TestSetLocalThroughReferences(t *testing.T) {
	bc := New()
	bc.SetLocal("$x", types.Int())
	bc.SetLocal("$other", types.Int())
	bc.AddReference("$a", "$x")

	bc.SetLocalThroughReferences("$a", types.String())

	for _, id := range []string{"$x", "$a"} {
		u, _ := bc.Local(id)
		assert.Equal(t, "string", u.ID(), id)
	}
	other, _ := bc.Local("$other")
	assert.Equal(t, "int", other.ID())
}

func TestRemoveVarFromConflictingClauses(t *testing.T) {
	truthy := assertion.Simple(assertion.Truthy)
	span := ast.Span{}
	bc := New()
	for _, id := range []string{"$x", "$x->p", "$x['k']", "$xy", "$y"} {
		bc.SetLocal(id, types.Mixed())
	}
	bc.AddClauses(
		formula.Unit("$x", truthy, span, span),
		formula.Unit("$x->p", truthy, span, span),
		formula.NewClause(map[string][]assertion.Assertion{"$y": {truthy}, "$x['k']": {truthy}}, span, span),
		formula.Unit("$xy", truthy, span, span),
		formula.Unit("$y", truthy, span, span),
	)

	bc.RemoveVarFromConflictingClauses("$x")

	assert.Equal(t, []string{"$xy[!falsy]", "$y[!falsy]"}, formula.Keys(bc.Clauses()))
	assert.Equal(t, []string{"$x", "$xy", "$y"}, bc.LocalIDs())
}

type exceptionHierarchy struct{}

func (exceptionHierarchy) IsSubclassOf(child, parent string) bool {
	return strings.EqualFold(child, "InvalidArgumentException") && strings.EqualFold(parent, "LogicException")
}
func (exceptionHierarchy) IsInterface(string) bool { return false }
func (exceptionHierarchy) EnumCases(string) ([]string, bool) { return nil, false }

func TestCatchThrown(t *testing.T) {
	testCases := []struct {
		name      string
		catches   []string
		caught    []string
		remaining []string
	}{
		{name: "exact class", catches: []string{"RuntimeException"}, caught: []string{"RuntimeException"}, remaining: []string{"InvalidArgumentException"}},
		{name: "parent class", catches: []string{"\\LogicException"}, caught: []string{"InvalidArgumentException"}, remaining: []string{"RuntimeException"}},
		{name: "throwable", catches: []string{"Throwable"}, caught: []string{"InvalidArgumentException", "RuntimeException"}, remaining: []string{}},
		{name: "unrelated", catches: []string{"TypeError"}, remaining: []string{"InvalidArgumentException", "RuntimeException"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bc := New()
			bc.AddThrown("\\RuntimeException", ast.Span{Start: 1})
			bc.AddThrown("InvalidArgumentException", ast.Span{Start: 2})

			assert.Equal(t, tc.caught, bc.CatchThrown(tc.catches, exceptionHierarchy{}))
			assert.Equal(t, tc.remaining, bc.ThrownClasses())
		})
	}
}

func TestFoldInto(t *testing.T) {
	parent := New()
	child := parent.Clone()
	child.SetLocal("$tmp", types.Int())
	child.AddThrown("RuntimeException", ast.Span{Start: 3})
	child.HasReturned = true

	child.FoldInto(parent)

	assert.False(t, parent.HasLocal("$tmp"))
	assert.True(t, parent.VarsPossiblyInScope.Contains("$tmp"))
	assert.Equal(t, []string{"RuntimeException"}, parent.ThrownClasses())
}

func TestFinallyScopeCombines(t *testing.T) {
	scope := &FinallyScope{Locals: map[string]*types.Union{}}
	a, b := New(), New()
	a.SetLocal("$x", types.Int())
	b.SetLocal("$x", types.String())
	b.SetLocal("$y", types.Null())

	scope.Add(a)
	scope.Add(b)

	assert.Equal(t, "int|string", scope.Locals["$x"].ID())
	assert.Equal(t, "null", scope.Locals["$y"].ID())

	entry := scope.Entry()
	assert.False(t, entry["$x"].PossiblyUndefined())
	assert.True(t, entry["$y"].PossiblyUndefinedFromTry())
}

func TestResetLocals(t *testing.T) {
	bc := New()
	bc.SetLocal("$old", types.Int())

	bc.ResetLocals(map[string]*types.Union{"$b": types.String(), "$a": types.Null()})

	assert.Equal(t, []string{"$a", "$b"}, bc.LocalIDs())
	assert.True(t, bc.VarsPossiblyInScope.Contains("$old"))
	assert.True(t, bc.VarsPossiblyInScope.Contains("$b"))
}

func TestRecordTryAssignment(t *testing.T) {
	bc := New()
	bc.RecordTryAssignment("$x", types.Int())
	assert.Nil(t, bc.TryScope)

	bc.TryScope = &TryScope{Assigned: map[string]*types.Union{}}
	bc.RecordTryAssignment("$x", types.LiteralInt(1))
	bc.RecordTryAssignment("$x", types.Null())

	assert.Equal(t, "int(1)|null", bc.TryScope.Assigned["$x"].ID())
}
