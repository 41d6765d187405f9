package analyzer

import (
	"slices"

	"github.com/hashicorp/go-set/v3"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// tryStmt analyses the try body, then every catch on the state the body may
// have been left in at any point, then the finally block on the union of all
// paths entering it.
func (a *Analyzer) tryStmt(n *ast.Try, bc *blockctx.BlockContext) {
	var finally *blockctx.FinallyScope
	if n.HasFinally {
		finally = &blockctx.FinallyScope{Locals: map[string]*types.Union{}}
	}
	outerTry := bc.TryScope
	outerFinally := bc.FinallyScope

	tryCtx := bc.Clone()
	tryCtx.InsideTry = true
	tryCtx.TryScope = &blockctx.TryScope{Assigned: map[string]*types.Union{}}
	if finally != nil {
		tryCtx.FinallyScope = finally
	}
	tryCtx.PossiblyThrownExceptions = map[string]*set.Set[ast.Span]{}
	a.block(n.Body, tryCtx)
	assigned := tryCtx.TryScope.Assigned
	tryCtx.TryScope = outerTry
	tryCtx.FinallyScope = outerFinally
	for id, t := range assigned {
		bc.RecordTryAssignment(id, t)
	}

	catchBase := a.catchBase(bc, assigned)
	if finally != nil {
		if !tryCtx.HasReturned {
			finally.Add(tryCtx)
		}
		finally.Add(catchBase)
	}

	exits := []*blockctx.BlockContext{tryCtx}
	for _, c := range n.Catches {
		exits = append(exits, a.catchClause(c, tryCtx, catchBase, finally))
	}

	if finally != nil {
		a.finallyBlock(n, bc, finally, exits)
	}
	a.merge(bc, exits)
}

// catchBase is the state a catch starts from: every value a variable held in
// the try body is combined into its type before the try. A variable the try
// body introduced may not have been assigned yet when the exception was
// thrown.
func (a *Analyzer) catchBase(bc *blockctx.BlockContext, assigned map[string]*types.Union) *blockctx.BlockContext {
	base := bc.Clone()
	base.InsideCatch = true
	base.PossiblyThrownExceptions = map[string]*set.Set[ast.Span]{}
	ids := make([]string, 0, len(assigned))
	for id := range assigned {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		t := assigned[id]
		if pre, ok := bc.Local(id); ok {
			t = a.combiner.Combine(pre, t)
		} else {
			t = t.AsPossiblyUndefined(true)
		}
		base.RemoveVarFromConflictingClauses(id)
		base.SetLocal(id, t)
	}
	return base
}

func (a *Analyzer) catchClause(c ast.Catch, tryCtx, base *blockctx.BlockContext, finally *blockctx.FinallyScope) *blockctx.BlockContext {
	tryCtx.CatchThrown(c.Types, a.cb)
	cc := base.Clone()

	atoms := make([]types.Atomic, 0, len(c.Types))
	for _, class := range c.Types {
		if !a.cb.ClassExists(class) {
			a.report(issue.Error, issue.UndefinedClass, c.Loc, "Class %s does not exist", class)
		}
		atoms = append(atoms, types.TNamedObject{Name: class})
	}
	if c.Var != "" {
		id := "$" + c.Var
		cc.BreakReference(id)
		cc.RemoveVarFromConflictingClauses(id)
		cc.SetLocal(id, types.NewUnion(atoms...))
		cc.AssignedVarIDs.Insert(id)
	}
	outerFinally := cc.FinallyScope
	if finally != nil {
		cc.FinallyScope = finally
	}
	a.block(c.Body, cc)
	cc.FinallyScope = outerFinally
	if finally != nil && !cc.HasReturned {
		finally.Add(cc)
	}
	return cc
}

// finallyBlock runs the finally block once on the combined entry state and
// applies what it did to every exit of the try statement. A variable the
// block always assigns takes that value on every exit.
func (a *Analyzer) finallyBlock(n *ast.Try, bc *blockctx.BlockContext, finally *blockctx.FinallyScope, exits []*blockctx.BlockContext) {
	fc := bc.Clone()
	fc.ResetLocals(finally.Entry())
	fc.SetClauses(nil)
	fc.InsideFinally = true
	fc.AssignedVarIDs = set.New[string](0)
	fc.PossiblyAssignedVarIDs = set.New[string](0)
	fc.PossiblyThrownExceptions = map[string]*set.Set[ast.Span]{}
	a.block(n.Finally, fc)
	fc.FoldInto(bc)

	possibly := fc.PossiblyAssignedVarIDs.Difference(fc.AssignedVarIDs).Slice()
	slices.Sort(possibly)
	assigned := fc.AssignedVarIDs.Slice()
	slices.Sort(assigned)

	for _, e := range exits {
		if e.HasReturned {
			continue
		}
		if fc.HasReturned {
			e.HasReturned = true
			continue
		}
		for _, id := range assigned {
			t, ok := fc.Local(id)
			if !ok {
				continue
			}
			e.RemoveVarFromConflictingClauses(id)
			e.SetLocalThroughReferences(id, t.AsDefined())
			e.AssignedVarIDs.Insert(id)
		}
		for _, id := range possibly {
			t, ok := fc.Local(id)
			if !ok {
				continue
			}
			e.RemoveVarFromConflictingClauses(id)
			if et, ok := e.Local(id); ok {
				t = a.combiner.Combine(et, t)
			}
			e.SetLocalThroughReferences(id, t)
			e.PossiblyAssignedVarIDs.Insert(id)
		}
	}
}
