package analyzer

import (
	"github.com/pkg/errors"

	"github.com/shopware/phpflow/internal/artifacts"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// block analyses stmts in order. Statements after the path died are skipped.
func (a *Analyzer) block(stmts []ast.Stmt, bc *blockctx.BlockContext) {
	for _, s := range stmts {
		if bc.HasReturned {
			return
		}
		a.stmt(s, bc)
	}
}

func (a *Analyzer) stmt(s ast.Stmt, bc *blockctx.BlockContext) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		a.expr(n.Expr, bc)
	case *ast.Echo:
		for _, e := range n.Exprs {
			a.expr(e, bc)
		}
	case *ast.Return:
		a.returnStmt(n, bc)
	case *ast.If:
		a.ifStmt(n, bc)
	case *ast.While:
		a.whileStmt(n, bc)
	case *ast.DoWhile:
		a.doWhileStmt(n, bc)
	case *ast.For:
		a.forStmt(n, bc)
	case *ast.Foreach:
		a.foreachStmt(n, bc)
	case *ast.Switch:
		a.switchStmt(n, bc)
	case *ast.Break:
		a.jump(bc, n.Levels, false)
	case *ast.Continue:
		a.jump(bc, n.Levels, true)
	case *ast.Try:
		a.tryStmt(n, bc)
	case *ast.Block:
		a.block(n.Stmts, bc)
	case *ast.Global:
		a.globalStmt(n, bc)
	case *ast.StaticVar:
		a.staticStmt(n, bc)
	case *ast.Unset:
		a.unsetStmt(n, bc)
	case *ast.Nop:
	case *ast.FunctionDecl:
		a.functionDecl(n)
	case *ast.ClassDecl:
		a.classDecl(n)
	case *ast.Unsupported:
		a.report(issue.Info, issue.UnsupportedConstruct, n.Span(), "%s is not analysed", n.Kind)
	default:
		a.fail(s.Span(), errors.Errorf("unknown statement %T", s))
	}
}

func (a *Analyzer) returnStmt(n *ast.Return, bc *blockctx.BlockContext) {
	t := types.Void()
	if n.Expr != nil {
		t = a.expr(n.Expr, bc)
		a.edge(artifacts.Edge{Kind: artifacts.Return, From: a.nodeName(n.Expr, t), To: a.unit.name + "#return", Span: n.Span()})
	}
	if !bc.HasReturned {
		a.unit.returns = append(a.unit.returns, t)
		a.checkReturn(t, n.Span())
	}
	if bc.FinallyScope != nil {
		bc.FinallyScope.Add(bc)
	}
	bc.HasReturned = true
}

func (a *Analyzer) checkReturn(t *types.Union, span ast.Span) {
	decl := a.unit.declared
	if decl == nil || decl.IsMixed() || t.IsMixed() {
		return
	}
	if !types.IsContainedBy(t, decl, a.cb, nil) {
		a.report(issue.Error, issue.InvalidReturnType, span,
			"The declared return type %s for %s is incorrect, got %s", decl, a.unit.name, t)
	}
}

// jump handles break and continue. The path leaves for the loop levels
// up; continue inside a switch acts like break.
func (a *Analyzer) jump(bc *blockctx.BlockContext, levels int, cont bool) {
	if levels < 1 {
		levels = 1
	}
	loops := a.unit.loops
	if len(loops) >= levels {
		target := loops[len(loops)-levels]
		if bc.FinallyScope != nil {
			bc.FinallyScope.Add(bc)
		}
		out := bc.Clone()
		if cont && !target.isSwitch {
			target.continues = append(target.continues, out)
		} else {
			target.breaks = append(target.breaks, out)
		}
	}
	bc.HasReturned = true
}

func (a *Analyzer) globalStmt(n *ast.Global, bc *blockctx.BlockContext) {
	for _, name := range n.Names {
		id := "$" + name
		t, ok := superglobal(id)
		if !ok {
			t = types.Mixed()
		}
		bc.BreakReference(id)
		bc.RemoveVarFromConflictingClauses(id)
		bc.SetLocal(id, t)
		bc.AddExternalReference(id, blockctx.ReferenceConstraint{Span: n.Span(), Source: blockctx.SourceGlobal})
		bc.AssignedVarIDs.Insert(id)
	}
}

// staticStmt binds static variables. Their value survives calls, so the
// variable holds any value of the widened default type and assignments are
// checked against it. A null default leaves the variable unconstrained.
func (a *Analyzer) staticStmt(n *ast.StaticVar, bc *blockctx.BlockContext) {
	for _, item := range n.Vars {
		id := "$" + item.Name
		var constraint *types.Union
		t := types.Mixed()
		if item.Default != nil {
			if d := widenLiterals(a.expr(item.Default, bc)); !d.IsNull() {
				constraint = d
				t = d
			}
		}
		bc.BreakReference(id)
		bc.RemoveVarFromConflictingClauses(id)
		bc.SetLocal(id, t)
		bc.AddExternalReference(id, blockctx.ReferenceConstraint{Span: n.Span(), Source: blockctx.SourceStatic, Constraint: constraint})
		bc.AssignedVarIDs.Insert(id)
	}
}

func (a *Analyzer) unsetStmt(n *ast.Unset, bc *blockctx.BlockContext) {
	for _, v := range n.Vars {
		id, ok := ast.VarID(v)
		if !ok {
			a.expr(v, bc)
			continue
		}
		bc.RemoveVarFromConflictingClauses(id)
		bc.RemoveLocal(id)
		if dim, ok := v.(*ast.ArrayDimFetch); ok {
			a.dropOffset(dim, bc)
		}
	}
}

// dropOffset removes a known key from the shape of the array unset($a['k'])
// operates on.
func (a *Analyzer) dropOffset(dim *ast.ArrayDimFetch, bc *blockctx.BlockContext) {
	parent, ok := ast.VarID(dim.Array)
	if !ok {
		return
	}
	key, ok := literalKey(dim.Dim)
	if !ok {
		return
	}
	t, ok := bc.Local(parent)
	if !ok {
		return
	}
	bc.SetLocalThroughReferences(parent, t.Map(func(m types.Atomic) []types.Atomic {
		if arr, ok := m.(types.TKeyedArray); ok {
			return []types.Atomic{arr.WithoutItem(key)}
		}
		return []types.Atomic{m}
	}))
}

func literalKey(e ast.Expr) (types.ArrayKey, bool) {
	switch d := e.(type) {
	case *ast.IntLit:
		return types.IntKey(d.Value), true
	case *ast.StringLit:
		return types.StringKey(d.Value), true
	}
	return types.ArrayKey{}, false
}

// widenLiterals drops literal values, as for a value that can change between
// calls.
func widenLiterals(t *types.Union) *types.Union {
	return t.Map(func(m types.Atomic) []types.Atomic {
		switch m.(type) {
		case types.TLiteralInt, types.TIntRange:
			return []types.Atomic{types.TInt{}}
		case types.TLiteralFloat:
			return []types.Atomic{types.TFloat{}}
		case types.TLiteralString:
			return []types.Atomic{types.TString{}}
		case types.TTrue, types.TFalse:
			return []types.Atomic{types.TBool{}}
		}
		return []types.Atomic{m}
	})
}

// nodeName names the data flow node of e.
func (a *Analyzer) nodeName(e ast.Expr, t *types.Union) string {
	if id, ok := ast.VarID(e); ok {
		return id
	}
	return t.ID()
}
