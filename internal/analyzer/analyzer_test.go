package analyzer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/artifacts"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

func testCodebase() *codebase.Codebase {
	cb := codebase.New()
	cb.AddClass(&codebase.ClassInfo{
		Name: "Foo",
		Kind: codebase.Class,
		Properties: map[string]*codebase.PropertyInfo{
			"name": {Name: "name", Type: "string", Class: "Foo"},
		},
	})
	cb.AddFunction(&codebase.FunctionInfo{Name: "answer", Return: "int"})
	cb.AddFunction(&codebase.FunctionInfo{
		Name:      "identity",
		Params:    []codebase.Param{{Name: "value", Type: "T"}},
		Return:    "T",
		Templates: []codebase.Template{{Name: "T"}},
	})
	return cb.Freeze()
}

func newTestAnalyzer(t *testing.T) (*Analyzer, *issue.Buffer) {
	t.Helper()
	buf := &issue.Buffer{}
	return New(testCodebase(), config.Default(), buf), buf
}

func codes(issues []issue.Issue) []issue.Code {
	out := make([]issue.Code, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func local(t *testing.T, bc *blockctx.BlockContext, id string) *types.Union {
	t.Helper()
	typ, ok := bc.Local(id)
	require.True(t, ok, "%s is not in scope", id)
	return typ
}

func TestMatchExhaustiveness(t *testing.T) {
	testCases := []struct {
		name    string
		subject *types.Union
		issues  []issue.Code
		thrown  bool
	}{
		{
			name:    "all cases handled",
			subject: types.NewUnion(types.TLiteralInt{Value: 1}, types.TLiteralInt{Value: 2}),
		},
		{
			name:    "remainder left over",
			subject: types.NewUnion(types.TLiteralInt{Value: 1}, types.TLiteralInt{Value: 2}, types.TLiteralInt{Value: 3}),
			issues:  []issue.Code{issue.UnhandledMatchCondition},
			thrown:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, buf := newTestAnalyzer(t)
			p := &nodes{}
			bc := blockctx.New()
			bc.SetLocal("$x", tc.subject)

			m := p.match(p.v("x"), p.arm(p.str("a"), p.lit(1)), p.arm(p.str("b"), p.lit(2)))
			require.NoError(t, a.Analyze(p.assign(p.v("r"), m), bc))

			assert.Equal(t, tc.issues, nilIfEmpty(codes(buf.Issues(issue.Info))))
			assert.Equal(t, types.String().ID(), local(t, bc, "$r").ID())
			assert.Equal(t, tc.thrown, bc.PossiblyThrownExceptions["UnhandledMatchError"] != nil)
		})
	}
}

func TestMatchReportsRemainder(t *testing.T) {
	a, buf := newTestAnalyzer(t)
	p := &nodes{}
	bc := blockctx.New()
	bc.SetLocal("$x", types.NewUnion(types.TLiteralInt{Value: 1}, types.TLiteralInt{Value: 3}))

	m := p.match(p.v("x"), p.arm(p.str("a"), p.lit(1)))
	require.NoError(t, a.Analyze(p.stmt(m), bc))

	issues := buf.Issues(issue.Error)
	require.Len(t, issues, 1)
	assert.Equal(t, issue.UnhandledMatchCondition, issues[0].Code)
	assert.Contains(t, issues[0].Message, "int(3)")
}

func nilIfEmpty(c []issue.Code) []issue.Code {
	if len(c) == 0 {
		return nil
	}
	return c
}

func TestNullNarrowing(t *testing.T) {
	a, buf := newTestAnalyzer(t)
	p := &nodes{}
	bc := blockctx.New()
	bc.SetLocal("$o", types.Nullable(types.Named("Foo")))

	inThen, inElse := p.v("o"), p.v("o")
	stmt := p.ifElse(
		p.bin(ast.OpNotIdentical, p.v("o"), p.null()),
		stmts(p.assign(p.v("a"), inThen)),
		stmts(p.assign(p.v("b"), inElse)),
	)
	require.NoError(t, a.Analyze(stmt, bc))

	assert.Equal(t, types.MustParse("Foo").ID(), a.Table().TypeOf(inThen).ID())
	assert.Equal(t, types.Null().ID(), a.Table().TypeOf(inElse).ID())
	assert.Equal(t, types.MustParse("Foo|null").ID(), local(t, bc, "$o").ID())
	assert.Empty(t, buf.Issues(issue.Warning))
}

func TestRedundantNullCheck(t *testing.T) {
	a, buf := newTestAnalyzer(t)
	p := &nodes{}
	bc := blockctx.New()
	bc.SetLocal("$o", types.Named("Foo"))

	stmt := p.ifElse(p.bin(ast.OpNotIdentical, p.v("o"), p.null()), stmts(p.assign(p.v("a"), p.lit(1))), nil)
	require.NoError(t, a.Analyze(stmt, bc))

	assert.Contains(t, codes(buf.Issues(issue.Info)), issue.RedundantCondition)
}

func TestTryAssignments(t *testing.T) {
	t.Run("finally overrides the body", func(t *testing.T) {
		a, _ := newTestAnalyzer(t)
		p := &nodes{}
		bc := blockctx.New()

		stmt := p.try(stmts(p.assign(p.v("y"), p.lit(1))), nil, stmts(p.assign(p.v("y"), p.lit(2))))
		require.NoError(t, a.Analyze(stmt, bc))

		y := local(t, bc, "$y")
		assert.Equal(t, types.LiteralInt(2).ID(), y.ID())
		assert.False(t, y.PossiblyUndefined())
	})

	t.Run("catch may skip the assignment", func(t *testing.T) {
		a, _ := newTestAnalyzer(t)
		p := &nodes{}
		bc := blockctx.New()

		stmt := p.try(stmts(p.assign(p.v("y"), p.lit(1))), []ast.Catch{p.catch("Exception", "e")}, nil)
		require.NoError(t, a.Analyze(stmt, bc))

		assert.True(t, local(t, bc, "$y").PossiblyUndefined())
	})
}

func TestArithmetic(t *testing.T) {
	t.Run("constant folding", func(t *testing.T) {
		a, _ := newTestAnalyzer(t)
		p := &nodes{}
		bc := blockctx.New()

		sum := p.bin(ast.OpAdd, p.lit(3), p.lit(4))
		require.NoError(t, a.Analyze(p.assign(p.v("s"), sum), bc))

		assert.Equal(t, types.LiteralInt(7).ID(), a.Table().TypeOf(sum).ID())
	})

	t.Run("division by zero ends the path", func(t *testing.T) {
		a, buf := newTestAnalyzer(t)
		p := &nodes{}
		bc := blockctx.New()

		require.NoError(t, a.Analyze(p.assign(p.v("x"), p.lit(10)), bc))
		div := p.bin(ast.OpDiv, p.v("x"), p.lit(0))
		require.NoError(t, a.Analyze(p.stmt(div), bc))

		assert.True(t, a.Table().TypeOf(div).IsNever())
		assert.Contains(t, codes(buf.Issues(issue.Error)), issue.DivisionByZero)
		assert.True(t, bc.HasReturned)
		assert.NotNil(t, bc.PossiblyThrownExceptions["DivisionByZeroError"])
	})
}

func TestWhileLoopConverges(t *testing.T) {
	a, buf := newTestAnalyzer(t)
	p := &nodes{}
	bc := blockctx.New()

	require.NoError(t, a.Analyze(p.assign(p.v("i"), p.lit(0)), bc))
	loop := &ast.While{
		Base: p.base(),
		Cond: p.bin(ast.OpLess, p.v("i"), p.lit(10)),
		Body: stmts(p.assign(p.v("i"), p.bin(ast.OpAdd, p.v("i"), p.lit(1)))),
	}
	require.NoError(t, a.Analyze(loop, bc))

	i := local(t, bc, "$i")
	assert.True(t, types.IsContainedBy(i, types.Int(), nil, nil), "got %s", i)
	assert.False(t, i.PossiblyUndefined())
	assert.NotContains(t, codes(buf.Issues(issue.Info)), issue.RedundantCondition)
}

func TestReferences(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	p := &nodes{}
	bc := blockctx.New()

	require.NoError(t, a.Analyze(p.assign(p.v("a"), p.lit(1)), bc))
	ref := p.stmt(&ast.AssignRef{Base: p.base(), Target: p.v("b"), Value: p.v("a")})
	require.NoError(t, a.Analyze(ref, bc))
	require.NoError(t, a.Analyze(p.assign(p.v("b"), p.str("x")), bc))

	assert.Equal(t, types.LiteralString("x").ID(), local(t, bc, "$a").ID())
	assert.Equal(t, types.LiteralString("x").ID(), local(t, bc, "$b").ID())
	assert.NoError(t, bc.CheckReferenceInvariants())

	var kinds []artifacts.EdgeKind
	for _, e := range a.Table().Edges() {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, artifacts.Reference)
}

func TestUndefinedVariables(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(p *nodes) []ast.Stmt
		code  issue.Code
	}{
		{
			name:  "never assigned",
			setup: func(p *nodes) []ast.Stmt { return nil },
			code:  issue.UndefinedVariable,
		},
		{
			name: "assigned on one branch",
			setup: func(p *nodes) []ast.Stmt {
				return stmts(p.ifElse(p.v("c"), stmts(p.assign(p.v("z"), p.lit(1))), nil))
			},
			code: issue.PossiblyUndefinedVariable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, buf := newTestAnalyzer(t)
			p := &nodes{}
			bc := blockctx.New()
			bc.SetLocal("$c", types.Bool())

			for _, s := range tc.setup(p) {
				require.NoError(t, a.Analyze(s, bc))
			}
			require.NoError(t, a.Analyze(p.stmt(p.v("z")), bc))

			assert.Contains(t, codes(buf.Issues(issue.Info)), tc.code)
		})
	}
}

func TestTemplateInference(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	p := &nodes{}
	bc := blockctx.New()

	call := &ast.Call{Base: p.base(), Name: "identity", Args: []ast.Arg{{Value: p.lit(5)}}}
	require.NoError(t, a.Analyze(p.assign(p.v("r"), call), bc))

	assert.Equal(t, types.LiteralInt(5).ID(), local(t, bc, "$r").ID())
}

func TestRedundantNullsafeOffersFix(t *testing.T) {
	a, buf := newTestAnalyzer(t)
	p := &nodes{}
	bc := blockctx.New()
	bc.SetLocal("$o", types.Named("Foo"))

	op := ast.Span{Start: 901, End: 904, Line: 90}
	fetch := &ast.PropertyFetch{Base: p.base(), Object: p.v("o"), Name: "name", Nullsafe: true, OperatorLoc: op}
	require.NoError(t, a.Analyze(p.assign(p.v("n"), fetch), bc))

	var found *issue.Issue
	for _, i := range buf.Issues(issue.Info) {
		if i.Code == issue.RedundantNullsafeOperator {
			found = &i
		}
	}
	require.NotNil(t, found)
	require.NotNil(t, found.Fix)
	assert.Equal(t, op, found.Fix.Span)
	assert.Equal(t, "->", found.Fix.Replacement)
	assert.Equal(t, types.String().ID(), local(t, bc, "$n").ID())
}

func TestMissingReturn(t *testing.T) {
	a, buf := newTestAnalyzer(t)
	p := &nodes{}

	decl := &ast.FunctionDecl{Base: p.base(), Name: "answer", ReturnType: "int", Body: stmts(p.assign(p.v("x"), p.lit(1)))}
	res := a.AnalyzeFile(&ast.File{Path: "answer.php", Stmts: stmts(decl)})

	assert.Empty(t, res.Errors)
	issues := buf.Issues(issue.Error)
	require.Len(t, issues, 1)
	assert.Equal(t, issue.InvalidReturnType, issues[0].Code)
	assert.Equal(t, "answer.php", issues[0].File)
}

func TestInternalErrorAbortsUnitOnly(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	p := &nodes{}

	decl := &ast.ClassDecl{Base: p.base(), Name: "Missing"}
	res := a.AnalyzeFile(&ast.File{Path: "missing.php", Stmts: stmts(decl, p.assign(p.v("z"), p.lit(1)))})

	require.Len(t, res.Errors, 1)
	var ie *InternalError
	require.True(t, errors.As(res.Errors[0], &ie))
	assert.Equal(t, "Missing", ie.Unit)
	assert.Equal(t, types.LiteralInt(1).ID(), local(t, res.Context, "$z").ID())
}
