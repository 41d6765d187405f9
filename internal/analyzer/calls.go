package analyzer

import (
	"fmt"
	"strings"

	"github.com/shopware/phpflow/internal/artifacts"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// callArgs are the evaluated arguments of one call, aligned with the
// parameters they bind to.
type callArgs struct {
	declared []*types.Union
	actual   []*types.Union
	refs     []refArg
}

// refArg is an argument passed to a by-reference parameter. The callee may
// write any value of the parameter type into it.
type refArg struct {
	target ast.Expr
	param  *types.Union
	node   string
}

func (a *Analyzer) call(n *ast.Call, bc *blockctx.BlockContext) *types.Union {
	if n.Dynamic != nil {
		callee := a.expr(n.Dynamic, bc)
		a.plainArgs(n.Args, bc)
		return a.callableReturn(callee)
	}
	f, ok := a.cb.Function(n.Name)
	if !ok {
		a.report(issue.Error, issue.UndefinedFunction, n.Span(), "Function %s does not exist", n.Name)
		a.plainArgs(n.Args, bc)
		return types.Mixed()
	}
	ca := a.evalArgs(f.Name, f.Params, n.Args, bc)
	b := a.infer(nil, ca.declared, ca.actual)
	ret := a.returnOf(f, b, nil, n.Span(), bc)
	a.finishCall(ca, b, nil, ret, n.Span(), bc)
	return ret
}

// callableReturn is the result of calling a value: a closure, a callable
// with a known signature or a string naming a function.
func (a *Analyzer) callableReturn(t *types.Union) *types.Union {
	parts := make([]*types.Union, 0, t.Len())
	for _, m := range t.Atomics() {
		switch v := m.(type) {
		case types.TCallable:
			if v.Return != nil {
				parts = append(parts, v.Return)
				continue
			}
		case types.TLiteralString:
			if f, ok := a.cb.Function(v.Value); ok && f.ReturnType() != nil {
				parts = append(parts, f.ReturnType())
				continue
			}
		}
		parts = append(parts, types.Mixed())
	}
	if len(parts) == 0 {
		return types.Mixed()
	}
	return a.combiner.CombineAll(parts...)
}

func (a *Analyzer) plainArgs(args []ast.Arg, bc *blockctx.BlockContext) {
	for _, arg := range args {
		a.expr(arg.Value, bc)
	}
}

// evalArgs evaluates args left to right and records the argument edges into
// the parameters of callee. By-reference arguments may be undefined before the
// call.
func (a *Analyzer) evalArgs(callee string, params []codebase.Param, args []ast.Arg, bc *blockctx.BlockContext) callArgs {
	var ca callArgs
	for i, arg := range args {
		p, idx, ok := paramFor(params, i, arg.Name)
		if arg.Spread || !ok {
			a.expr(arg.Value, bc)
			continue
		}
		node := fmt.Sprintf("%s#%d", callee, idx)
		var t *types.Union
		if p.ByRef && isAssignable(arg.Value) {
			a.inIsset(bc, func() { t = a.expr(arg.Value, bc) })
			ca.refs = append(ca.refs, refArg{target: arg.Value, param: p.DeclaredType(), node: node})
		} else {
			t = a.expr(arg.Value, bc)
		}
		a.edge(artifacts.Edge{Kind: artifacts.Argument, From: a.nodeName(arg.Value, t), To: node, Span: arg.Value.Span()})
		ca.declared = append(ca.declared, p.DeclaredType())
		ca.actual = append(ca.actual, t)
	}
	return ca
}

// paramFor finds the parameter the i-th argument, or the named one, binds
// to. Extra positional arguments bind to a trailing variadic parameter.
func paramFor(params []codebase.Param, i int, name string) (codebase.Param, int, bool) {
	if name != "" {
		for j, p := range params {
			if p.Name == name {
				return p, j, true
			}
		}
		return codebase.Param{}, 0, false
	}
	if i < len(params) {
		return params[i], i, true
	}
	if n := len(params); n > 0 && params[n-1].Variadic {
		return params[n-1], n - 1, true
	}
	return codebase.Param{}, 0, false
}

// returnOf is the return type of f for one call. The exceptions f declares
// become possible at span.
func (a *Analyzer) returnOf(f *codebase.FunctionInfo, b bindings, this types.Atomic, span ast.Span, bc *blockctx.BlockContext) *types.Union {
	for _, class := range f.Throws {
		bc.AddThrown(class, span)
	}
	if f.ReturnType() == nil {
		return types.Mixed()
	}
	return a.substitute(f.ReturnType(), b, this)
}

// finishCall writes back the by-reference arguments. A call that never
// returns ends the path.
func (a *Analyzer) finishCall(ca callArgs, b bindings, this types.Atomic, ret *types.Union, span ast.Span, bc *blockctx.BlockContext) {
	for _, ref := range ca.refs {
		a.assignTo(ref.target, a.substitute(ref.param, b, this), bc, span, ref.node)
	}
	if ret.IsNever() {
		bc.HasReturned = true
	}
}

// methodTarget is one method a call may dispatch to, with the receiver it
// is called on.
type methodTarget struct {
	recv   types.Atomic
	obj    types.TNamedObject
	method *codebase.MethodInfo
}

func (a *Analyzer) methodCall(n *ast.MethodCall, bc *blockctx.BlockContext) *types.Union {
	obj := a.expr(n.Object, bc)
	recv, ok := a.receiver(obj, n.Nullsafe, n.OperatorLoc, n.Span(), bc)
	if !ok {
		if !n.Nullsafe {
			a.plainArgs(n.Args, bc)
		}
		return types.Null()
	}
	if recv.IsMixed() {
		a.report(issue.Warning, issue.MixedMethodCall, n.Span(), "Cannot determine the type of the object the method %s is called on", n.Name)
		a.plainArgs(n.Args, bc)
		return types.Mixed()
	}

	var targets []methodTarget
	parts := make([]*types.Union, 0, recv.Len()+1)
	for _, m := range recv.Atomics() {
		var o types.TNamedObject
		switch v := m.(type) {
		case types.TNamedObject:
			o = v
		case types.TEnum:
			o = types.TNamedObject{Name: v.Name}
		case types.TObject, types.TCallable:
			parts = append(parts, types.Mixed())
			continue
		default:
			a.report(issue.Error, issue.UndefinedMethod, n.Span(), "Cannot call method %s on %s", n.Name, m)
			parts = append(parts, types.Mixed())
			continue
		}
		if !a.cb.ClassExists(o.Name) {
			a.report(issue.Error, issue.UndefinedClass, n.Span(), "Class %s does not exist", o.Name)
			parts = append(parts, types.Mixed())
			continue
		}
		mi, ok := a.cb.Method(o.Name, n.Name)
		if !ok {
			if _, magic := a.cb.Method(o.Name, "__call"); !magic {
				a.report(issue.Error, issue.UndefinedMethod, n.Span(), "Method %s::%s does not exist", o.Name, n.Name)
			}
			parts = append(parts, types.Mixed())
			continue
		}
		targets = append(targets, methodTarget{recv: m, obj: o, method: mi})
	}

	if len(targets) == 0 {
		a.plainArgs(n.Args, bc)
	} else {
		first := targets[0]
		ca := a.evalArgs(first.method.Class+"::"+first.method.Name, first.method.Params, n.Args, bc)
		var firstBindings bindings
		var rets []*types.Union
		for i, t := range targets {
			b := a.infer(a.classBindings(t.obj, t.method.Class), ca.declared, ca.actual)
			if i == 0 {
				firstBindings = b
			}
			rets = append(rets, a.returnOf(&t.method.FunctionInfo, b, t.recv, n.Span(), bc))
		}
		ret := a.combiner.CombineAll(rets...)
		a.finishCall(ca, firstBindings, first.recv, ret, n.Span(), bc)
		parts = append(parts, ret)
	}
	if n.Nullsafe && obj.CanBeNull() {
		parts = append(parts, types.Null())
	}
	return a.combiner.CombineAll(parts...)
}

func (a *Analyzer) staticCall(n *ast.StaticCall, bc *blockctx.BlockContext) *types.Union {
	class := a.className(n.Class)
	c, ok := a.cb.Class(class)
	if !ok {
		a.report(issue.Error, issue.UndefinedClass, n.Span(), "Class %s does not exist", class)
		a.plainArgs(n.Args, bc)
		return types.Mixed()
	}
	mi, ok := a.cb.Method(c.Name, n.Name)
	if !ok {
		_, magic := a.cb.Method(c.Name, "__callStatic")
		if !magic && strings.EqualFold(n.Class, "parent") {
			_, magic = a.cb.Method(c.Name, "__call")
		}
		if !magic {
			a.report(issue.Error, issue.UndefinedMethod, n.Span(), "Method %s::%s does not exist", c.Name, n.Name)
		}
		a.plainArgs(n.Args, bc)
		return types.Mixed()
	}
	this := types.TNamedObject{Name: c.Name}
	if t, ok := bc.Local("$this"); ok && !mi.Static {
		if m, ok := t.Single(); ok {
			if o, ok := m.(types.TNamedObject); ok {
				this = o
			}
		}
	}
	ca := a.evalArgs(mi.Class+"::"+mi.Name, mi.Params, n.Args, bc)
	b := a.infer(nil, ca.declared, ca.actual)
	ret := a.returnOf(&mi.FunctionInfo, b, this, n.Span(), bc)
	a.finishCall(ca, b, this, ret, n.Span(), bc)
	return ret
}

// newExpr types new C(...). The templates of a generic class are bound from
// the constructor arguments.
func (a *Analyzer) newExpr(n *ast.New, bc *blockctx.BlockContext) *types.Union {
	class := a.className(n.Class)
	c, ok := a.cb.Class(class)
	if !ok {
		a.report(issue.Error, issue.UndefinedClass, n.Span(), "Class %s does not exist", class)
		a.plainArgs(n.Args, bc)
		return types.Mixed()
	}
	obj := types.TNamedObject{Name: c.Name}
	b := bindings{}
	if ctor, ok := a.cb.Method(c.Name, "__construct"); ok {
		ca := a.evalArgs(ctor.Class+"::__construct", ctor.Params, n.Args, bc)
		b = a.infer(b, ca.declared, ca.actual)
		for _, thrown := range ctor.Throws {
			bc.AddThrown(thrown, n.Span())
		}
		a.finishCall(ca, b, obj, types.Void(), n.Span(), bc)
	} else {
		a.plainArgs(n.Args, bc)
	}
	if len(c.Templates) > 0 {
		obj.TypeParams = make([]*types.Union, len(c.Templates))
		for i, t := range c.Templates {
			if bound, ok := b[types.TGenericParam{Name: t.Name, DefiningEntity: c.Name}.ID()]; ok {
				obj.TypeParams[i] = bound
			} else {
				obj.TypeParams[i] = types.Mixed()
			}
		}
	}
	return types.NewUnion(obj)
}
