package analyzer

import (
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/formula"
	"github.com/shopware/phpflow/internal/types"
)

// loopScope collects the paths leaving a loop or switch through break and
// continue.
type loopScope struct {
	breaks    []*blockctx.BlockContext
	continues []*blockctx.BlockContext
	isSwitch  bool
}

// loopPass analyses one iteration from ctx, a fork of the loop head, and
// returns the context the iteration ends in.
type loopPass func(ctx *blockctx.BlockContext, scope *loopScope) *blockctx.BlockContext

// loop runs pass until the head no longer changes, for at most
// cfg.LoopIterations rounds. When int bounds had to be widened to get there,
// one more round joins the entry state with an iteration from the settled
// head to win back the bounds the loop condition keeps. Those rounds are
// muted; a final pass from the head reports and leaves its types in the
// artifact table.
func (a *Analyzer) loop(bc *blockctx.BlockContext, pass loopPass) (head, end *blockctx.BlockContext, scope *loopScope) {
	entry := bc.Clone()
	entry.InsideLoop = true
	head = entry

	a.muted++
	settled, widened := false, false
	for i := 0; i < a.cfg.LoopIterations; i++ {
		scope := &loopScope{}
		end := a.runPass(head, scope, pass)
		exits := append([]*blockctx.BlockContext{head, end}, scope.continues...)
		next := head.Clone()
		a.merge(next, exits)
		if a.keepIntBounds(head, next, exits, i > 0) {
			widened = true
		}
		if next.SameLocals(head) {
			settled = true
			break
		}
		head = next
	}
	if settled && widened {
		scope := &loopScope{}
		end := a.runPass(head, scope, pass)
		exits := append([]*blockctx.BlockContext{entry, end}, scope.continues...)
		narrowed := entry.Clone()
		a.merge(narrowed, exits)
		a.keepIntBounds(entry, narrowed, exits, false)
		head = narrowed
	}
	a.muted--

	scope = &loopScope{}
	end = a.runPass(head, scope, pass)
	return head, end, scope
}

// keepIntBounds replaces an int local of next by the range its values span
// on the live exits, when merging widened it past that range. From the second
// round on a bound still moving away from prev is dropped, so counters settle
// on int<0, max> rather than int. It reports whether a bound was dropped.
func (a *Analyzer) keepIntBounds(prev, next *blockctx.BlockContext, exits []*blockctx.BlockContext, widen bool) bool {
	dropped := false
	for _, id := range next.LocalIDs() {
		t, _ := next.Local(id)
		if _, _, ok := types.IntHull(t); !ok {
			continue
		}
		if _, ok := next.ReferencesInScope[id]; ok || next.ReferencedCounts[id] > 0 {
			continue
		}
		var present []*types.Union
		for _, e := range exits {
			if e == nil || e.HasReturned {
				continue
			}
			if et, ok := e.Local(id); ok {
				present = append(present, et)
			}
		}
		lo, hi, ok := types.IntHull(types.Join(present...))
		if !ok {
			continue
		}
		widened := false
		if pt, ok := prev.Local(id); ok && widen {
			if plo, phi, ok := types.IntHull(pt); ok {
				if lo != nil && (plo == nil || *lo < *plo) {
					lo, widened = nil, true
				}
				if hi != nil && (phi == nil || *hi > *phi) {
					hi, widened = nil, true
				}
			}
		}
		r := types.NewUnion(types.IntRange(lo, hi)).WithFlags(t.Flags())
		if widened || !types.IsContainedBy(t, r, a.cb, nil) {
			next.SetLocal(id, r)
		}
		dropped = dropped || widened
	}
	return dropped
}

func (a *Analyzer) runPass(head *blockctx.BlockContext, scope *loopScope, pass loopPass) *blockctx.BlockContext {
	a.unit.loops = append(a.unit.loops, scope)
	defer func() { a.unit.loops = a.unit.loops[:len(a.unit.loops)-1] }()
	return pass(head.Clone(), scope)
}

// after is the state once the loop ran out: before the first iteration or at
// the end of any iteration, including those left through continue.
func (a *Analyzer) after(head, end *blockctx.BlockContext, scope *loopScope) *blockctx.BlockContext {
	out := head.Clone()
	a.merge(out, append([]*blockctx.BlockContext{head, end}, scope.continues...))
	return out
}

func (a *Analyzer) finishLoop(bc *blockctx.BlockContext, exit *blockctx.BlockContext, scope *loopScope) {
	exits := make([]*blockctx.BlockContext, 0, len(scope.breaks)+1)
	if exit != nil {
		exit.InsideLoop = bc.InsideLoop
		exits = append(exits, exit)
	}
	exits = append(exits, scope.breaks...)
	a.merge(bc, exits)
}

func (a *Analyzer) whileStmt(n *ast.While, bc *blockctx.BlockContext) {
	var exit *blockctx.BlockContext
	_, _, scope := a.loop(bc, func(ctx *blockctx.BlockContext, _ *loopScope) *blockctx.BlockContext {
		a.expr(n.Cond, ctx)
		clauses := a.formulaFor(n.Cond)
		body := a.branch(ctx, n.Cond, clauses, true, true)
		exit = a.branch(ctx, n.Cond, clauses, false, false)
		a.block(n.Body, body)
		return body
	})
	a.finishLoop(bc, exit, scope)
}

// doWhileStmt runs the body before the first condition check.
func (a *Analyzer) doWhileStmt(n *ast.DoWhile, bc *blockctx.BlockContext) {
	var exit *blockctx.BlockContext
	_, _, scope := a.loop(bc, func(ctx *blockctx.BlockContext, scope *loopScope) *blockctx.BlockContext {
		a.block(n.Body, ctx)
		end := ctx
		if len(scope.continues) > 0 {
			end = ctx.Clone()
			a.merge(end, append([]*blockctx.BlockContext{ctx}, scope.continues...))
			scope.continues = nil
		}
		if end.HasReturned {
			exit = end
			return end
		}
		a.expr(n.Cond, end)
		clauses := a.formulaFor(n.Cond)
		exit = a.branch(end, n.Cond, clauses, false, false)
		return a.branch(end, n.Cond, clauses, true, false)
	})
	a.finishLoop(bc, exit, scope)
}

// forStmt treats the last condition expression as the loop condition. The
// step expressions run at the end of every iteration, continue included. A
// loop without condition only ends through break.
func (a *Analyzer) forStmt(n *ast.For, bc *blockctx.BlockContext) {
	for _, e := range n.Init {
		a.expr(e, bc)
	}
	var exit *blockctx.BlockContext
	_, _, scope := a.loop(bc, func(ctx *blockctx.BlockContext, scope *loopScope) *blockctx.BlockContext {
		body := ctx
		exit = nil
		if len(n.Cond) > 0 {
			for _, e := range n.Cond {
				a.expr(e, ctx)
			}
			cond := n.Cond[len(n.Cond)-1]
			clauses := a.formulaFor(cond)
			body = a.branch(ctx, cond, clauses, true, true)
			exit = a.branch(ctx, cond, clauses, false, false)
		}
		a.block(n.Body, body)
		end := body
		if len(scope.continues) > 0 {
			end = ctx.Clone()
			a.merge(end, append([]*blockctx.BlockContext{body}, scope.continues...))
			scope.continues = nil
		}
		if !end.HasReturned {
			for _, e := range n.Loop {
				a.expr(e, end)
			}
		}
		return end
	})
	a.finishLoop(bc, exit, scope)
}

// foreachStmt binds the key and value at the start of every iteration. The
// loop may run zero times unless the iterated value is known to be non-empty.
func (a *Analyzer) foreachStmt(n *ast.Foreach, bc *blockctx.BlockContext) {
	iterated := a.expr(n.Expr, bc)
	key, value := a.iterationTypes(iterated)

	head, end, scope := a.loop(bc, func(ctx *blockctx.BlockContext, _ *loopScope) *blockctx.BlockContext {
		if value.IsNever() {
			ctx.HasReturned = true
			return ctx
		}
		if n.Key != nil {
			a.assignTo(n.Key, key, ctx, n.Span(), a.nodeName(n.Expr, iterated))
		}
		a.assignTo(n.Value, value, ctx, n.Span(), a.nodeName(n.Expr, iterated))
		a.block(n.Body, ctx)
		return ctx
	})

	exit := a.after(head, end, scope)
	if isNonEmpty(iterated) {
		ran := end.Clone()
		a.merge(ran, append([]*blockctx.BlockContext{end}, scope.continues...))
		exit = ran
	}
	a.finishLoop(bc, exit, scope)
}

func isNonEmpty(t *types.Union) bool {
	return t.All(func(m types.Atomic) bool {
		switch v := m.(type) {
		case types.TList:
			return v.NonEmpty
		case types.TKeyedArray:
			return v.NonEmpty
		}
		return false
	})
}

// iterationTypes returns the key and value types of iterating over t.
func (a *Analyzer) iterationTypes(t *types.Union) (*types.Union, *types.Union) {
	var keys, values []*types.Union
	for _, m := range t.Atomics() {
		switch v := m.(type) {
		case types.TList:
			keys = append(keys, types.NewUnion(types.IntRange(types.Bound(0), nil)))
			values = append(values, v.Value)
		case types.TKeyedArray:
			k, val := v.KeyType(), v.ValueType()
			if k == nil || val == nil {
				continue
			}
			keys = append(keys, k)
			values = append(values, val)
		case types.TNamedObject:
			k, val := a.traversableTypes(v)
			keys = append(keys, k)
			values = append(values, val)
		case types.TNull, types.TVoid:
		default:
			keys = append(keys, types.Mixed())
			values = append(values, types.Mixed())
		}
	}
	if len(values) == 0 {
		return types.Never(), types.Never()
	}
	return a.combiner.CombineAll(keys...), a.combiner.CombineAll(values...)
}

// traversableTypes reads the key and value of a generic Traversable such as
// Iterator<K, V> or Generator<K, V>. A single type parameter is the value.
func (a *Analyzer) traversableTypes(o types.TNamedObject) (*types.Union, *types.Union) {
	if !a.isA(o.Name, "Traversable") {
		return types.Mixed(), types.Mixed()
	}
	switch len(o.TypeParams) {
	case 0:
		return types.Mixed(), types.Mixed()
	case 1:
		return types.Mixed(), o.TypeParams[0]
	}
	return o.TypeParams[0], o.TypeParams[1]
}

// switchStmt compares the subject loosely with every case in order. A case
// body without break falls through into the next one, and without a default
// the path on which no case matched leaves the switch.
func (a *Analyzer) switchStmt(n *ast.Switch, bc *blockctx.BlockContext) {
	a.expr(n.Subject, bc)
	scope := &loopScope{isSwitch: true}
	a.unit.loops = append(a.unit.loops, scope)

	running := bc.Clone()
	var fall *blockctx.BlockContext
	hasDefault := false
	for _, c := range n.Cases {
		var entry *blockctx.BlockContext
		if c.Cond == nil {
			hasDefault = true
			entry = running.Clone()
		} else {
			a.expr(c.Cond, running)
			clauses := a.caseFormula(n.Subject, c)
			entry = running.Clone()
			a.assume(entry, clauses, c.Loc, false)
			a.assume(running, a.negate(clauses, c.Loc), c.Loc, false)
		}
		if fall != nil && !fall.HasReturned {
			joined := bc.Clone()
			a.merge(joined, []*blockctx.BlockContext{entry, fall})
			entry = joined
		}
		a.block(c.Body, entry)
		fall = entry
	}
	a.unit.loops = a.unit.loops[:len(a.unit.loops)-1]

	exits := append([]*blockctx.BlockContext{}, scope.breaks...)
	if fall != nil {
		exits = append(exits, fall)
	}
	if !hasDefault {
		exits = append(exits, running)
	}
	a.merge(bc, exits)
}

func (a *Analyzer) caseFormula(subject ast.Expr, c ast.Case) []*formula.Clause {
	cond := &ast.Binary{Base: ast.Base{Loc: c.Cond.Span()}, Op: ast.OpEqual, Left: subject, Right: c.Cond}
	clauses, err := a.builder().GetFormula(c.Loc, c.Cond.Span(), cond)
	if err != nil {
		return []*formula.Clause{formula.NewWedge(c.Loc, c.Loc)}
	}
	return clauses
}
