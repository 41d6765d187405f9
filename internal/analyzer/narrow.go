package analyzer

import (
	"slices"
	"strings"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/formula"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/reconciler"
	"github.com/shopware/phpflow/internal/types"
)

// scope exposes the locals of a block context to the reconciler.
type scope struct {
	bc *blockctx.BlockContext
}

func (s scope) Lookup(varID string) (*types.Union, bool) {
	return s.bc.Local(varID)
}

// formulaFor returns the clauses that hold when cond is truthy. A condition
// too complex to translate becomes a single wedge.
func (a *Analyzer) formulaFor(cond ast.Expr) []*formula.Clause {
	span := cond.Span()
	clauses, err := a.builder().GetFormula(span, span, cond)
	if err != nil {
		a.logger.Debug("condition left opaque", "span", span, "error", err)
		return []*formula.Clause{formula.NewWedge(span, span)}
	}
	return clauses
}

func (a *Analyzer) negate(clauses []*formula.Clause, span ast.Span) []*formula.Clause {
	return formula.NegateOrSynthesize(clauses, span, a.limits)
}

// assume narrows bc to the paths on which clauses hold. The clauses are
// combined with what bc already knows, solved, and every variable they
// constrain is reconciled. A variable narrowed to never makes the path dead.
//
// With report set, conditions that are redundant or impossible given the
// current types are reported against the condition at span.
func (a *Analyzer) assume(bc *blockctx.BlockContext, clauses []*formula.Clause, span ast.Span, report bool) {
	var reported map[string]bool
	if report {
		reported = a.checkParadoxes(bc, clauses, span)
	}

	all := formula.Saturate(append(slices.Clip(bc.Clauses()), clauses...), a.limits)
	truths, active := formula.FindSatisfyingAssignments(all, span)
	changed, outcomes := reconciler.ReconcileKeyedTypes(truths, active, scope{bc}, a.cb)

	ids := make([]string, 0, len(changed))
	for id := range changed {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		t := changed[id]
		bc.SetLocalThroughReferences(id, t)
		if t.IsNever() {
			bc.HasReturned = true
		}
	}
	bc.SetClauses(all)

	if !report {
		return
	}
	for _, o := range outcomes {
		if o.Unknown || reported[o.VarID] {
			continue
		}
		switch o.Status {
		case reconciler.Redundant:
			a.report(issue.Warning, issue.RedundantCondition, span,
				"Type %s for %s is always %s", o.Before, o.VarID, groupString(o.Group))
		case reconciler.Impossible:
			if hasEquality(o.Group) {
				continue
			}
			a.report(issue.Error, issue.TypeDoesNotContainType, span,
				"Type %s for %s does not contain %s", o.Before, o.VarID, groupString(o.Group))
		}
	}
}

// checkParadoxes compares the single assertions of a new condition with the
// clauses already known on the path. It returns the variables it reported.
func (a *Analyzer) checkParadoxes(bc *blockctx.BlockContext, clauses []*formula.Clause, span ast.Span) map[string]bool {
	known := map[string]bool{}
	for _, c := range bc.Clauses() {
		if c.IsUnit() {
			known[c.Key()] = true
		}
	}
	reported := map[string]bool{}
	if len(known) == 0 {
		return reported
	}
	for _, c := range clauses {
		if !c.IsUnit() {
			continue
		}
		v := c.Vars()[0]
		as := c.Possibilities[v][0]
		if known[c.Key()] {
			a.report(issue.Warning, issue.RedundantCondition, span, "%s is already known to be %s", v, as)
			reported[v] = true
			continue
		}
		neg := formula.Unit(v, as.Negate(), span, span)
		if known[neg.Key()] {
			a.report(issue.Error, issue.ParadoxicalCondition, span, "%s cannot be %s here", v, as)
			reported[v] = true
		}
	}
	return reported
}

func groupString(group []assertion.Assertion) string {
	parts := make([]string, len(group))
	for i, as := range group {
		parts[i] = as.String()
	}
	return strings.Join(parts, "|")
}

func hasEquality(group []assertion.Assertion) bool {
	for _, as := range group {
		if as.HasEquality() {
			return true
		}
	}
	return false
}

// branch returns a clone of bc narrowed to the paths where cond is truthy, or
// falsy when positive is unset. A condition whose type is known to have the
// other truthiness makes the clone dead.
func (a *Analyzer) branch(bc *blockctx.BlockContext, cond ast.Expr, clauses []*formula.Clause, positive, report bool) *blockctx.BlockContext {
	out := bc.Clone()
	if t := a.table.TypeOf(cond); t != nil {
		if (positive && t.IsAlwaysFalsy()) || (!positive && t.IsAlwaysTruthy()) {
			out.HasReturned = true
			return out
		}
	}
	if !positive {
		clauses = a.negate(clauses, cond.Span())
	}
	a.assume(out, clauses, cond.Span(), report)
	return out
}
