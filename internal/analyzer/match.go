package analyzer

import (
	"fmt"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/formula"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// matchExpr treats every arm as a strict comparison of the subject with each
// of its conditions. The arms are tried in order, each on the remainder the
// previous arms left over, and the default arm takes what is left at the end.
// A live remainder without a default arm throws UnhandledMatchError.
func (a *Analyzer) matchExpr(n *ast.Match, bc *blockctx.BlockContext) *types.Union {
	subjectType := a.expr(n.Subject, bc)
	subject := n.Subject
	_, onTrue := n.Subject.(*ast.BoolLit)
	onTrue = onTrue && subjectType.IsAlwaysTruthy()

	subjectID, tracked := ast.VarID(subject)
	synthetic := !tracked && !onTrue
	if synthetic {
		v := &ast.Variable{Base: ast.Base{Loc: n.Subject.Span()}, Name: fmt.Sprintf("match#%d", n.Span().Start)}
		subjectID = "$" + v.Name
		bc.SetLocal(subjectID, subjectType)
		subject = v
	}

	running := bc.Clone()
	var exits []*blockctx.BlockContext
	var armTypes []*types.Union
	var def *ast.MatchArm
	for i := range n.Arms {
		arm := &n.Arms[i]
		if arm.Conds == nil {
			def = arm
			continue
		}
		if running.HasReturned {
			a.report(issue.Warning, issue.UnreachableMatchArm, arm.Loc, "Match arm can never be reached")
			continue
		}
		clauses := a.armFormula(arm, subject, onTrue, running)
		body := running.Clone()
		a.assume(body, clauses, arm.Loc, false)
		if body.HasReturned {
			a.report(issue.Warning, issue.UnreachableMatchArm, arm.Loc, "Match arm can never match %s", a.remainder(running, subjectID, subjectType))
		} else {
			armTypes = append(armTypes, a.expr(arm.Body, body))
		}
		exits = append(exits, body)
		a.assume(running, a.negate(clauses, arm.Loc), arm.Loc, false)
	}

	switch {
	case def != nil && running.HasReturned:
		a.report(issue.Warning, issue.UnreachableMatchArm, def.Loc, "Default match arm can never be reached")
	case def != nil:
		armTypes = append(armTypes, a.expr(def.Body, running))
		exits = append(exits, running)
	case !running.HasReturned:
		a.report(issue.Error, issue.UnhandledMatchCondition, n.Span(),
			"Match expression does not handle %s", a.remainder(running, subjectID, subjectType))
		running.AddThrown("UnhandledMatchError", n.Span())
		running.HasReturned = true
		exits = append(exits, running)
	}

	a.merge(bc, exits)
	if synthetic {
		bc.RemoveVarFromConflictingClauses(subjectID)
		bc.RemoveLocal(subjectID)
	}
	if len(armTypes) == 0 {
		return types.Never()
	}
	return a.combiner.CombineAll(armTypes...)
}

// armFormula returns the clauses under which arm matches. On match(true) each
// condition is used as is.
func (a *Analyzer) armFormula(arm *ast.MatchArm, subject ast.Expr, onTrue bool, running *blockctx.BlockContext) []*formula.Clause {
	var clauses []*formula.Clause
	for i, c := range arm.Conds {
		a.expr(c, running)
		cond := c
		if !onTrue {
			cond = &ast.Binary{Base: ast.Base{Loc: c.Span()}, Op: ast.OpIdentical, Left: subject, Right: c}
		}
		cc, err := a.builder().GetFormula(arm.Loc, c.Span(), cond)
		if err != nil {
			a.logger.Debug("match arm left opaque", "span", arm.Loc, "error", err)
			return []*formula.Clause{formula.NewWedge(arm.Loc, arm.Loc)}
		}
		if i == 0 {
			clauses = cc
			continue
		}
		clauses, err = formula.Or(clauses, cc, a.limits)
		if err != nil {
			return []*formula.Clause{formula.NewWedge(arm.Loc, arm.Loc)}
		}
	}
	return clauses
}

func (a *Analyzer) remainder(running *blockctx.BlockContext, subjectID string, fallback *types.Union) *types.Union {
	if subjectID != "" {
		if t, ok := running.Local(subjectID); ok {
			return t
		}
	}
	return fallback
}
