package analyzer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// expr infers the type of e in bc, records it and returns it. Side effects of
// e, such as assignments and exceptions, are applied to bc.
func (a *Analyzer) expr(e ast.Expr, bc *blockctx.BlockContext) *types.Union {
	return a.record(e, a.exprType(e, bc))
}

func (a *Analyzer) exprType(e ast.Expr, bc *blockctx.BlockContext) *types.Union {
	switch n := e.(type) {
	case *ast.Variable:
		return a.variable(n, bc)
	case *ast.IntLit:
		return types.LiteralInt(n.Value)
	case *ast.FloatLit:
		return types.LiteralFloat(n.Value)
	case *ast.StringLit:
		return types.LiteralString(n.Value)
	case *ast.InterpolatedString:
		return a.interpolated(n, bc)
	case *ast.BoolLit:
		if n.Value {
			return types.True()
		}
		return types.False()
	case *ast.NullLit:
		return types.Null()
	case *ast.ArrayLit:
		return a.arrayLit(n, bc)
	case *ast.Assign:
		return a.assignExpr(n, bc)
	case *ast.AssignRef:
		return a.assignRef(n, bc)
	case *ast.AssignOp:
		return a.assignOp(n, bc)
	case *ast.IncDec:
		return a.incDec(n, bc)
	case *ast.Binary:
		return a.binary(n, bc)
	case *ast.Unary:
		return a.unary(n, bc)
	case *ast.Instanceof:
		return a.instanceof(n, bc)
	case *ast.Ternary:
		return a.ternary(n, bc)
	case *ast.Isset:
		return a.isset(n, bc)
	case *ast.Empty:
		a.inIsset(bc, func() { a.expr(n.Expr, bc) })
		return types.Bool()
	case *ast.Call:
		return a.call(n, bc)
	case *ast.MethodCall:
		return a.methodCall(n, bc)
	case *ast.StaticCall:
		return a.staticCall(n, bc)
	case *ast.New:
		return a.newExpr(n, bc)
	case *ast.PropertyFetch:
		return a.propertyFetch(n, bc)
	case *ast.StaticPropertyFetch:
		return a.staticPropertyFetch(n, bc)
	case *ast.ClassConstFetch:
		return a.classConstFetch(n)
	case *ast.ConstFetch:
		return a.constFetch(n)
	case *ast.ArrayDimFetch:
		return a.dimFetch(n, bc)
	case *ast.Throw:
		return a.throw(n, bc)
	case *ast.Closure:
		return a.closure(n, bc)
	case *ast.ArrowFunction:
		return a.arrowFunction(n, bc)
	case *ast.Match:
		return a.matchExpr(n, bc)
	case *ast.Cast:
		return cast(n.Type, a.expr(n.Expr, bc))
	case *ast.Clone:
		return a.expr(n.Expr, bc)
	case *ast.ListExpr:
		a.report(issue.Info, issue.UnsupportedConstruct, n.Span(), "list() outside of an assignment is not analysed")
		return types.Mixed()
	case *ast.Unsupported:
		a.report(issue.Info, issue.UnsupportedConstruct, n.Span(), "%s is not analysed", n.Kind)
		return types.Mixed()
	}
	a.fail(e.Span(), errors.Errorf("unknown expression %T", e))
	return nil
}

// variable reads a local. Inside isset and empty an undefined variable is
// fine and reads as mixed.
func (a *Analyzer) variable(n *ast.Variable, bc *blockctx.BlockContext) *types.Union {
	id := "$" + n.Name
	if t, ok := bc.Local(id); ok {
		if t.PossiblyUndefined() && !bc.InsideIsset {
			a.report(issue.Warning, issue.PossiblyUndefinedVariable, n.Span(), "Possibly undefined variable %s", id)
		}
		return t.AsDefined()
	}
	if t, ok := superglobal(id); ok {
		return t
	}
	if !bc.InsideIsset {
		a.report(issue.Error, issue.UndefinedVariable, n.Span(), "Cannot find referenced variable %s", id)
	}
	return types.Mixed()
}

func (a *Analyzer) inIsset(bc *blockctx.BlockContext, fn func()) {
	saved := bc.InsideIsset
	bc.InsideIsset = true
	fn()
	bc.InsideIsset = saved
}

func (a *Analyzer) interpolated(n *ast.InterpolatedString, bc *blockctx.BlockContext) *types.Union {
	nonEmpty := false
	for _, p := range n.Parts {
		t := a.expr(p, bc)
		if lit, ok := p.(*ast.StringLit); ok && lit.Value != "" {
			nonEmpty = true
		} else if _, ok := t.Single(); ok && t.IsAlwaysTruthy() {
			nonEmpty = true
		}
	}
	return types.NewUnion(types.TString{NonEmpty: nonEmpty})
}

// arrayLit builds a shape when every key is known. Items without a key get
// the next integer key.
func (a *Analyzer) arrayLit(n *ast.ArrayLit, bc *blockctx.BlockContext) *types.Union {
	if len(n.Items) == 0 {
		return types.EmptyArray()
	}
	var items []types.KeyedItem
	var keys, values []*types.Union
	sealed := true
	next := int64(0)
	for _, item := range n.Items {
		var kt *types.Union
		if item.Key != nil {
			kt = a.expr(item.Key, bc)
		}
		vt := a.expr(item.Value, bc)
		if item.Spread {
			sealed = false
			kt, vt = a.iterationTypes(vt)
			keys = append(keys, kt)
			values = append(values, vt)
			continue
		}
		key, ok := types.ArrayKey{}, false
		switch {
		case item.Key == nil:
			key, ok = types.IntKey(next), true
		default:
			key, ok = keyOf(kt)
		}
		if !ok {
			sealed = false
			keys = append(keys, kt)
			values = append(values, vt)
			continue
		}
		if key.IsInt && key.Int >= next {
			next = key.Int + 1
		}
		items = append(items, types.KeyedItem{Key: key, Type: vt})
		keys = append(keys, keyUnion(key))
		values = append(values, vt)
	}
	if sealed {
		return types.NewUnion(types.Shape(items...))
	}
	arr := types.Array(a.combiner.CombineAll(keys...), a.combiner.CombineAll(values...))
	arr.NonEmpty = true
	return types.NewUnion(arr)
}

// keyOf returns the array key a single literal stands for.
func keyOf(t *types.Union) (types.ArrayKey, bool) {
	m, ok := t.Single()
	if !ok {
		return types.ArrayKey{}, false
	}
	switch v := m.(type) {
	case types.TLiteralInt:
		return types.IntKey(v.Value), true
	case types.TLiteralString:
		return types.StringKey(v.Value), true
	}
	return types.ArrayKey{}, false
}

func keyUnion(k types.ArrayKey) *types.Union {
	if k.IsInt {
		return types.LiteralInt(k.Int)
	}
	return types.LiteralString(k.Str)
}

func (a *Analyzer) binary(n *ast.Binary, bc *blockctx.BlockContext) *types.Union {
	switch n.Op {
	case ast.OpAnd, ast.OpLogicalAnd, ast.OpOr, ast.OpLogicalOr:
		return a.logical(n, bc)
	case ast.OpCoalesce:
		return a.coalesce(n, bc)
	}
	l := a.expr(n.Left, bc)
	r := a.expr(n.Right, bc)
	return a.arith(string(n.Op), l, r, n.Span(), bc)
}

// arith types a binary operator. Division by a literal zero always throws.
func (a *Analyzer) arith(op string, l, r *types.Union, span ast.Span, bc *blockctx.BlockContext) *types.Union {
	t, fr := types.BinaryOp(op, l, r)
	if fr.DivisionByZero {
		a.report(issue.Error, issue.DivisionByZero, span, "Division by zero")
		bc.AddThrown("DivisionByZeroError", span)
		bc.HasReturned = true
	}
	return t
}

// logical analyses the right operand only on the paths where it runs: when
// the left operand is truthy for && and falsy for ||.
func (a *Analyzer) logical(n *ast.Binary, bc *blockctx.BlockContext) *types.Union {
	and := n.Op == ast.OpAnd || n.Op == ast.OpLogicalAnd
	l := a.expr(n.Left, bc)
	clauses := a.formulaFor(n.Left)

	right := a.branch(bc, n.Left, clauses, and, false)
	short := a.branch(bc, n.Left, clauses, !and, false)
	r := types.Never()
	if !right.HasReturned {
		r = a.expr(n.Right, right)
	}
	a.merge(bc, []*blockctx.BlockContext{short, right})

	if and {
		switch {
		case right.HasReturned, r.IsAlwaysFalsy():
			return types.False()
		case l.IsAlwaysTruthy() && r.IsAlwaysTruthy():
			return types.True()
		}
		return types.Bool()
	}
	switch {
	case right.HasReturned, r.IsAlwaysTruthy():
		return types.True()
	case l.IsAlwaysFalsy() && r.IsAlwaysFalsy():
		return types.False()
	}
	return types.Bool()
}

// coalesce analyses the right operand where the left one is null or unset.
func (a *Analyzer) coalesce(n *ast.Binary, bc *blockctx.BlockContext) *types.Union {
	var l *types.Union
	a.inIsset(bc, func() { l = a.expr(n.Left, bc) })
	isset := &ast.Isset{Base: ast.Base{Loc: n.Span()}, Vars: []ast.Expr{n.Left}}
	clauses := a.formulaFor(isset)

	set := bc.Clone()
	a.assume(set, clauses, n.Span(), false)
	unset := bc.Clone()
	if !l.CanBeNull() && !a.possiblyUnset(n.Left, bc) {
		unset.HasReturned = true
	} else {
		a.assume(unset, a.negate(clauses, n.Span()), n.Span(), false)
	}

	parts := make([]*types.Union, 0, 2)
	if nonNull := l.WithoutNull(); !l.IsNull() {
		parts = append(parts, nonNull.AsDefined())
	}
	if !unset.HasReturned {
		parts = append(parts, a.expr(n.Right, unset))
	}
	a.merge(bc, []*blockctx.BlockContext{set, unset})
	if len(parts) == 0 {
		return types.Never()
	}
	return a.combiner.CombineAll(parts...)
}

// possiblyUnset reports whether e is a variable, offset or property that
// may be missing although its type has no null.
func (a *Analyzer) possiblyUnset(e ast.Expr, bc *blockctx.BlockContext) bool {
	switch e.(type) {
	case *ast.Variable, *ast.ArrayDimFetch, *ast.PropertyFetch, *ast.StaticPropertyFetch:
		id, ok := ast.VarID(e)
		if !ok {
			return true
		}
		t, ok := bc.Local(id)
		return !ok || t.PossiblyUndefined()
	}
	return false
}

func (a *Analyzer) unary(n *ast.Unary, bc *blockctx.BlockContext) *types.Union {
	var t *types.Union
	if n.Op == ast.OpNot {
		saved := bc.InsideNegation
		bc.InsideNegation = !saved
		t = a.expr(n.Operand, bc)
		bc.InsideNegation = saved
	} else {
		t = a.expr(n.Operand, bc)
	}
	return types.UnaryOp(string(n.Op), t)
}

func (a *Analyzer) instanceof(n *ast.Instanceof, bc *blockctx.BlockContext) *types.Union {
	t := a.expr(n.Expr, bc)
	if n.Dynamic != nil {
		a.expr(n.Dynamic, bc)
		return types.Bool()
	}
	class := a.className(n.Class)
	if !a.cb.ClassExists(class) {
		a.report(issue.Error, issue.UndefinedClass, n.Span(), "Class %s does not exist", class)
		return types.Bool()
	}
	target := types.Named(class)
	switch {
	case t.IsMixed():
	case types.IsContainedBy(t, target, a.cb, nil):
		return types.True()
	case !types.CanBeIdentical(t, target, a.cb):
		return types.False()
	}
	return types.Bool()
}

// className resolves self, static and parent in the current class.
func (a *Analyzer) className(name string) string {
	switch strings.ToLower(name) {
	case "self", "static":
		if a.unit.self != "" {
			return a.unit.self
		}
	case "parent":
		if a.unit.parent != "" {
			return a.unit.parent
		}
	}
	return strings.TrimPrefix(name, "\\")
}

// ternary works like an if statement whose branches are expressions. The
// short form a ?: b yields the truthy part of a.
func (a *Analyzer) ternary(n *ast.Ternary, bc *blockctx.BlockContext) *types.Union {
	cond := a.expr(n.Cond, bc)
	clauses := a.formulaFor(n.Cond)
	then := a.branch(bc, n.Cond, clauses, true, true)
	els := a.branch(bc, n.Cond, clauses, false, false)

	var parts []*types.Union
	if !then.HasReturned {
		if n.Then != nil {
			parts = append(parts, a.expr(n.Then, then))
		} else {
			parts = append(parts, a.truthyPart(n.Cond, cond, then))
		}
	}
	if !els.HasReturned {
		parts = append(parts, a.expr(n.Else, els))
	}
	a.merge(bc, []*blockctx.BlockContext{then, els})
	if len(parts) == 0 {
		return types.Never()
	}
	return a.combiner.CombineAll(parts...)
}

func (a *Analyzer) truthyPart(e ast.Expr, t *types.Union, then *blockctx.BlockContext) *types.Union {
	if id, ok := ast.VarID(e); ok {
		if nt, ok := then.Local(id); ok {
			return nt
		}
	}
	return t.Filter(func(m types.Atomic) bool { return !types.IsAlwaysFalsy(m) })
}

func (a *Analyzer) isset(n *ast.Isset, bc *blockctx.BlockContext) *types.Union {
	result := types.True()
	a.inIsset(bc, func() {
		for _, v := range n.Vars {
			t := a.expr(v, bc)
			switch {
			case t.IsNull():
				result = types.False()
			case t.CanBeNull() || a.possiblyUnset(v, bc):
				if !result.IsAlwaysFalsy() {
					result = types.Bool()
				}
			}
		}
	})
	return result
}

func (a *Analyzer) throw(n *ast.Throw, bc *blockctx.BlockContext) *types.Union {
	t := a.expr(n.Expr, bc)
	classes := t.NamedObjects()
	if len(classes) == 0 {
		classes = []string{"Throwable"}
	}
	for _, class := range classes {
		bc.AddThrown(class, n.Span())
	}
	if bc.FinallyScope != nil {
		bc.FinallyScope.Add(bc)
	}
	bc.HasReturned = true
	return types.Never()
}

// cast types an explicit (type) conversion.
func cast(to string, t *types.Union) *types.Union {
	switch strings.ToLower(to) {
	case "int", "integer":
		if lit, ok := t.Single(); ok {
			if v, ok := lit.(types.TLiteralInt); ok {
				return types.LiteralInt(v.Value)
			}
		}
		return types.Int()
	case "float", "double", "real":
		return types.Float()
	case "string", "binary":
		if lit, ok := t.Single(); ok {
			if v, ok := lit.(types.TLiteralString); ok {
				return types.LiteralString(v.Value)
			}
		}
		return types.String()
	case "bool", "boolean":
		switch {
		case t.IsAlwaysTruthy():
			return types.True()
		case t.IsAlwaysFalsy():
			return types.False()
		}
		return types.Bool()
	case "array":
		if t.All(isArray) {
			return t
		}
		return types.NewUnion(types.MixedArray())
	case "object":
		if t.All(isObject) {
			return t
		}
		return types.Object()
	case "unset":
		return types.Null()
	}
	return types.Mixed()
}

func isArray(m types.Atomic) bool {
	switch m.(type) {
	case types.TList, types.TKeyedArray:
		return true
	}
	return false
}

func isObject(m types.Atomic) bool {
	switch m.(type) {
	case types.TObject, types.TNamedObject, types.TEnum, types.TCallable:
		return true
	}
	return false
}
