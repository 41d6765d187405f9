package analyzer

import (
	"github.com/shopware/phpflow/internal/artifacts"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

func (a *Analyzer) assignExpr(n *ast.Assign, bc *blockctx.BlockContext) *types.Union {
	saved := bc.InsideAssignment
	bc.InsideAssignment = true
	t := a.expr(n.Value, bc)
	bc.InsideAssignment = saved
	a.assignTo(n.Target, t, bc, n.Span(), a.nodeName(n.Value, t))
	return t
}

// assignTo stores t into target. from names the data flow node the value
// comes from.
func (a *Analyzer) assignTo(target ast.Expr, t *types.Union, bc *blockctx.BlockContext, span ast.Span, from string) {
	switch tg := target.(type) {
	case *ast.ListExpr:
		a.destructure(tg.Items, t, bc, span, from)
		return
	case *ast.ArrayLit:
		a.destructure(tg.Items, t, bc, span, from)
		return
	case *ast.ArrayDimFetch:
		a.assignOffset(tg, t, bc, span, from)
		return
	case *ast.PropertyFetch:
		a.expr(tg.Object, bc)
	case *ast.Variable, *ast.StaticPropertyFetch:
	default:
		a.expr(target, bc)
		return
	}
	if id, ok := ast.VarID(target); ok {
		a.assignVar(id, t, bc, span, from)
	}
	a.record(target, t)
}

// assignVar binds id to t on the current path. Everything the path knew
// about the old value is dropped, and so is every value read through it.
func (a *Analyzer) assignVar(id string, t *types.Union, bc *blockctx.BlockContext, span ast.Span, from string) {
	if t.IsNever() && !bc.HasReturned {
		a.report(issue.Error, issue.ImpossibleAssignment, span, "%s is assigned a value that cannot exist", id)
	}
	if c, ok := bc.ByReferenceConstraints[id]; ok && c.Constraint != nil && !types.IsContainedBy(t, c.Constraint, a.cb, nil) {
		a.report(issue.Warning, issue.ReferenceConstraintViolation, span,
			"%s is bound by %s reference at %s to %s, cannot assign %s", id, c.Source, c.Span, c.Constraint, t)
	}
	group := bc.ReferenceGroup(id)
	for _, v := range group {
		bc.RemoveVarFromConflictingClauses(v)
	}
	bc.SetLocalThroughReferences(id, t.AsDefined())
	for _, v := range group {
		bc.AssignedVarIDs.Insert(v)
		bc.PossiblyAssignedVarIDs.Insert(v)
		bc.RecordTryAssignment(v, t.AsDefined())
	}
	a.edge(artifacts.Edge{Kind: artifacts.Assignment, From: from, To: id, Span: span})
}

// assignOffset writes $a[k] = t, or $a[] = t when there is no key, by
// rewriting the type of the array and storing it back into its target.
func (a *Analyzer) assignOffset(n *ast.ArrayDimFetch, t *types.Union, bc *blockctx.BlockContext, span ast.Span, from string) {
	parent := a.currentType(n.Array, bc)
	var key types.ArrayKey
	known := false
	var kt *types.Union
	if n.Dim != nil {
		kt = a.expr(n.Dim, bc)
		key, known = keyOf(kt)
	}

	updated := parent.Map(func(m types.Atomic) []types.Atomic {
		switch v := m.(type) {
		case types.TNull:
			return []types.Atomic{withOffset(types.TKeyedArray{}, n.Dim == nil, key, known, kt, t)}
		case types.TKeyedArray:
			return []types.Atomic{withOffset(v, n.Dim == nil, key, known, kt, t)}
		case types.TList:
			if n.Dim == nil {
				return []types.Atomic{types.TList{Value: types.Combine(v.Value, t), NonEmpty: true}}
			}
			arr := types.Array(types.NewUnion(types.TInt{}), types.Combine(v.Value, t))
			arr.NonEmpty = true
			return []types.Atomic{arr}
		}
		return []types.Atomic{m}
	})

	if _, ok := ast.VarID(n.Array); ok || isAssignable(n.Array) {
		a.assignTo(n.Array, updated, bc, span, from)
	}
	if id, ok := ast.VarID(n); ok {
		bc.SetLocal(id, t.AsDefined())
	}
	a.record(n, t)
}

func isAssignable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Variable, *ast.PropertyFetch, *ast.StaticPropertyFetch, *ast.ArrayDimFetch:
		return true
	}
	return false
}

// withOffset returns arr after the write. A write to an unknown key turns a
// shape into a generic array.
func withOffset(arr types.TKeyedArray, appendItem bool, key types.ArrayKey, known bool, kt, value *types.Union) types.Atomic {
	if appendItem && arr.Key == nil {
		key, known = types.IntKey(nextIndex(arr)), true
	}
	if known {
		return arr.WithItem(key, value, false)
	}
	if kt == nil {
		kt = types.Int()
	}
	keys := []*types.Union{kt}
	if k := arr.KeyType(); !k.IsNever() {
		keys = append(keys, k)
	}
	values := []*types.Union{value}
	if v := arr.ValueType(); !v.IsNever() {
		values = append(values, v)
	}
	out := types.Array(types.CombineAll(keys...), types.CombineAll(values...))
	out.NonEmpty = true
	return out
}

func nextIndex(arr types.TKeyedArray) int64 {
	next := int64(0)
	for _, item := range arr.Items {
		if item.Key.IsInt && item.Key.Int >= next {
			next = item.Key.Int + 1
		}
	}
	return next
}

// currentType reads the value an assignment target holds before the write.
// An undefined variable is an empty array there, as PHP creates it.
func (a *Analyzer) currentType(e ast.Expr, bc *blockctx.BlockContext) *types.Union {
	if id, ok := ast.VarID(e); ok {
		if t, ok := bc.Local(id); ok {
			return t.AsDefined()
		}
		if _, isVar := e.(*ast.Variable); isVar {
			if t, ok := superglobal(id); ok {
				return t
			}
			return types.EmptyArray()
		}
	}
	var t *types.Union
	a.inIsset(bc, func() { t = a.expr(e, bc) })
	return t
}

// destructure assigns the items of list($a, 'k' => $b) = t.
func (a *Analyzer) destructure(items []ast.ArrayItem, t *types.Union, bc *blockctx.BlockContext, span ast.Span, from string) {
	next := int64(0)
	for _, item := range items {
		if item.Value == nil {
			next++
			continue
		}
		key, known := types.IntKey(next), true
		if item.Key != nil {
			key, known = keyOf(a.expr(item.Key, bc))
		} else {
			next++
		}
		a.assignTo(item.Value, a.offsetType(t, key, known), bc, span, from)
	}
}

func (a *Analyzer) assignOp(n *ast.AssignOp, bc *blockctx.BlockContext) *types.Union {
	if n.Op == ast.OpCoalesce {
		var cur *types.Union
		a.inIsset(bc, func() { cur = a.expr(n.Target, bc) })
		t := a.expr(n.Value, bc)
		if !cur.CanBeNull() && !a.possiblyUnset(n.Target, bc) {
			return cur
		}
		if !cur.IsNull() {
			t = a.combiner.Combine(cur.WithoutNull(), t)
		}
		a.assignTo(n.Target, t, bc, n.Span(), a.nodeName(n.Value, t))
		return t
	}
	cur := a.expr(n.Target, bc)
	val := a.expr(n.Value, bc)
	t := a.arith(string(n.Op), cur, val, n.Span(), bc)
	a.assignTo(n.Target, t, bc, n.Span(), a.nodeName(n.Target, cur))
	return t
}

func (a *Analyzer) incDec(n *ast.IncDec, bc *blockctx.BlockContext) *types.Union {
	cur := a.expr(n.Var, bc)
	var t *types.Union
	switch {
	case cur.IsNull() && n.Increment:
		t = types.LiteralInt(1)
	case cur.IsNull():
		t = types.Null()
	case n.Increment:
		t, _ = types.BinaryOp("+", cur, types.LiteralInt(1))
	default:
		t, _ = types.BinaryOp("-", cur, types.LiteralInt(1))
	}
	a.assignTo(n.Var, t, bc, n.Span(), a.nodeName(n.Var, cur))
	if n.Prefix {
		return t
	}
	return cur
}

// assignRef makes the target an alias of the value, as in $a = &$b. Only
// plain variables are tracked as aliases; references to offsets and
// properties copy the current value.
func (a *Analyzer) assignRef(n *ast.AssignRef, bc *blockctx.BlockContext) *types.Union {
	target, tok := n.Target.(*ast.Variable)
	value, vok := n.Value.(*ast.Variable)
	if !tok || !vok {
		t := a.currentType(n.Value, bc)
		a.record(n.Value, t)
		a.assignTo(n.Target, t, bc, n.Span(), a.nodeName(n.Value, t))
		return t
	}
	targetID, valueID := "$"+target.Name, "$"+value.Name
	if t, ok := bc.Local(valueID); ok {
		a.record(n.Value, t)
	}

	bc.BreakReference(targetID)
	bc.RemoveVarFromConflictingClauses(targetID)
	bc.AddReference(targetID, valueID)
	for _, v := range bc.ReferenceGroup(targetID) {
		bc.AssignedVarIDs.Insert(v)
		bc.PossiblyAssignedVarIDs.Insert(v)
	}
	a.edge(artifacts.Edge{Kind: artifacts.Reference, From: valueID, To: targetID, Span: n.Span()})
	if err := bc.CheckReferenceInvariants(); err != nil {
		a.fail(n.Span(), err)
	}
	t, _ := bc.Local(targetID)
	a.record(n.Target, t)
	return t
}
