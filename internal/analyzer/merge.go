package analyzer

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/formula"
	"github.com/shopware/phpflow/internal/types"
)

// merge folds the exit contexts of a construct into bc, the context the
// construct started from. Dead exits only contribute their exceptions. A
// variable only narrowed on every live exit is joined back to the exact union
// of its narrowed types; one that some exit redefined is combined. Variables
// missing from a live exit become possibly undefined, values read through
// another variable are dropped instead. bc is live afterwards whenever one of
// the exits is, even when it was cloned from a dead path.
func (a *Analyzer) merge(bc *blockctx.BlockContext, exits []*blockctx.BlockContext) {
	var live []*blockctx.BlockContext
	for _, e := range exits {
		if e == nil {
			continue
		}
		e.FoldInto(bc)
		if !e.HasReturned {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		bc.HasReturned = true
		return
	}
	bc.HasReturned = false

	ids := set.New[string](0)
	for _, e := range live {
		for id := range e.Locals() {
			ids.Insert(id)
		}
	}

	merged := make(map[string]*types.Union, ids.Size())
	for id := range ids.Items() {
		var present []*types.Union
		missing := false
		for _, e := range live {
			if t, ok := e.Local(id); ok {
				present = append(present, t)
			} else {
				missing = true
			}
		}
		if missing && ast.RootVar(id) != id {
			continue
		}
		t := a.mergeTypes(bc, id, present)
		if missing {
			t = t.AsPossiblyUndefined(false)
		}
		merged[id] = t
	}
	bc.ResetLocals(merged)
	bc.SetClauses(commonClauses(live))
	mergeAssignments(bc, live)
	mergeReferences(bc, live, merged)
}

// mergeTypes unions the types id has on the live exits. Types that only
// narrowed the one before the construct keep their literals.
func (a *Analyzer) mergeTypes(bc *blockctx.BlockContext, id string, present []*types.Union) *types.Union {
	if len(present) == 1 {
		return present[0]
	}
	if before, ok := bc.Local(id); ok {
		narrowed := true
		for _, t := range present {
			if !types.IsContainedBy(t, before, a.cb, nil) {
				narrowed = false
				break
			}
		}
		if narrowed {
			return types.Simplify(types.Join(present...), a.cb)
		}
	}
	return a.combiner.CombineAll(present...)
}

// commonClauses keeps the clauses that hold on every live exit.
func commonClauses(live []*blockctx.BlockContext) []*formula.Clause {
	first := live[0].Clauses()
	if len(live) == 1 {
		return first
	}
	counts := map[string]int{}
	for _, e := range live[1:] {
		seen := map[string]bool{}
		for _, c := range e.Clauses() {
			if !seen[c.Key()] {
				seen[c.Key()] = true
				counts[c.Key()]++
			}
		}
	}
	var out []*formula.Clause
	for _, c := range first {
		if counts[c.Key()] == len(live)-1 {
			out = append(out, c)
		}
	}
	return out
}

func mergeAssignments(bc *blockctx.BlockContext, live []*blockctx.BlockContext) {
	assigned := live[0].AssignedVarIDs.Copy()
	possibly := set.New[string](0)
	for _, e := range live {
		assigned = assigned.Intersect(e.AssignedVarIDs).(*set.Set[string])
		possibly.InsertSet(e.AssignedVarIDs)
		possibly.InsertSet(e.PossiblyAssignedVarIDs)
	}
	bc.AssignedVarIDs = assigned
	bc.PossiblyAssignedVarIDs = possibly
}

// mergeReferences keeps the aliases every live exit agrees on.
func mergeReferences(bc *blockctx.BlockContext, live []*blockctx.BlockContext, locals map[string]*types.Union) {
	refs := map[string]string{}
	for ref, to := range live[0].ReferencesInScope {
		agreed := true
		for _, e := range live[1:] {
			if e.ReferencesInScope[ref] != to {
				agreed = false
				break
			}
		}
		_, refLive := locals[ref]
		_, toLive := locals[to]
		if agreed && refLive && toLive {
			refs[ref] = to
		}
	}
	counts := map[string]int{}
	for _, to := range refs {
		counts[to]++
	}
	bc.ReferencesInScope = refs
	bc.ReferencedCounts = counts

	external := set.New[string](0)
	constraints := map[string]blockctx.ReferenceConstraint{}
	for _, e := range live {
		external.InsertSet(e.ReferencesToExternalScope)
		for id, c := range e.ByReferenceConstraints {
			constraints[id] = c
		}
	}
	bc.ReferencesToExternalScope = external
	bc.ByReferenceConstraints = constraints
}
