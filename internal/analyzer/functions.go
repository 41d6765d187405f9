package analyzer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// enterUnit runs fn as the body of u. An internal error aborts u only.
func (a *Analyzer) enterUnit(u *unit, fn func()) {
	prev := a.unit
	a.unit = u
	defer func() { a.unit = prev }()
	_ = a.guard(u.name, fn)
}

func (a *Analyzer) functionDecl(n *ast.FunctionDecl) {
	a.enterUnit(&unit{name: n.Name}, func() {
		f, ok := a.cb.Function(n.Name)
		if !ok {
			a.fail(n.Span(), errors.Errorf("function %s is not in the codebase", n.Name))
		}
		a.unit.name = f.Name
		a.unit.declared = f.ReturnType()
		a.unit.throws = f.Throws

		bc := blockctx.New()
		a.bindParams(bc, n.Params, f.Params)
		a.block(n.Body, bc)
		a.finishUnit(bc, n.Span())
	})
}

// classDecl analyses the bodies of the methods of a class.
func (a *Analyzer) classDecl(n *ast.ClassDecl) {
	c, ok := a.cb.Class(n.Name)
	if !ok {
		a.enterUnit(&unit{name: n.Name}, func() {
			a.fail(n.Span(), errors.Errorf("class %s is not in the codebase", n.Name))
		})
		return
	}
	for _, md := range n.Methods {
		if md.Body == nil {
			continue
		}
		a.enterUnit(&unit{name: c.Name + "::" + md.Name, self: c.Name, parent: c.Parent}, func() {
			m, ok := c.Methods[strings.ToLower(md.Name)]
			if !ok {
				a.fail(md.Loc, errors.Errorf("method %s::%s is not in the codebase", c.Name, md.Name))
			}
			a.unit.declared = m.ReturnType()
			a.unit.throws = m.Throws

			bc := blockctx.New()
			if !md.Static {
				bc.SetLocal("$this", types.NewUnion(types.TNamedObject{Name: c.Name, IsThis: true}))
			}
			a.bindParams(bc, md.Params, m.Params)
			a.block(md.Body, bc)
			a.finishUnit(bc, md.Loc)
		})
	}
}

// bindParams binds the parameters of a unit. A by-reference parameter stays
// bound to the caller's variable, so only values of its declared type may be
// assigned to it.
func (a *Analyzer) bindParams(bc *blockctx.BlockContext, params []ast.Param, infos []codebase.Param) {
	for i, p := range params {
		t := types.Mixed()
		if i < len(infos) {
			t = infos[i].DeclaredType()
		} else if p.Type != "" {
			t = a.parseDeclared(p.Type)
		}
		if _, ok := p.Default.(*ast.NullLit); ok {
			t = types.Nullable(t)
		}
		if p.Variadic {
			t = types.ListOf(t)
		}
		id := "$" + p.Name
		bc.SetLocal(id, t)
		bc.AssignedVarIDs.Insert(id)
		if p.ByRef {
			bc.AddExternalReference(id, blockctx.ReferenceConstraint{Span: p.Loc, Source: blockctx.SourceParameter, Constraint: t})
		}
	}
}

// parseDeclared reads a type written in the source of the current unit.
func (a *Analyzer) parseDeclared(s string) *types.Union {
	if s == "" {
		return nil
	}
	t, err := types.ParseWith(s, types.ParseOptions{Self: a.unit.self, Parent: a.unit.parent})
	if err != nil {
		a.logger.Debug("unparsable type", "type", s, "error", err)
		return types.Mixed()
	}
	return t
}

// finishUnit checks that a unit with a declared return type does not fall off
// its end and exposes the exceptions escaping it.
func (a *Analyzer) finishUnit(bc *blockctx.BlockContext, span ast.Span) {
	decl := a.unit.declared
	if !bc.HasReturned && decl != nil && !decl.IsVoid() && !decl.IsMixed() {
		a.report(issue.Error, issue.InvalidReturnType, span,
			"Not all code paths of %s end in a return statement, expected %s", a.unit.name, decl)
	}
	a.recordUnhandled(bc)
}

// closure analyses the closure body in a scope of its own. Variables listed
// in use are copied in, or bound by reference with &.
func (a *Analyzer) closure(n *ast.Closure, bc *blockctx.BlockContext) *types.Union {
	inner := blockctx.New()
	for _, use := range n.Uses {
		id := "$" + use.Name
		t, ok := bc.Local(id)
		switch {
		case use.ByRef && !ok:
			t = types.Null()
			bc.SetLocal(id, t)
		case !ok:
			a.report(issue.Error, issue.UndefinedVariable, n.Span(), "Cannot find referenced variable %s", id)
			t = types.Mixed()
		}
		inner.SetLocal(id, t.AsDefined())
		inner.AssignedVarIDs.Insert(id)
		if use.ByRef {
			inner.AddExternalReference(id, blockctx.ReferenceConstraint{Span: n.Span(), Source: blockctx.SourceArgument})
		}
	}
	if this, ok := bc.Local("$this"); ok && !n.Static {
		inner.SetLocal("$this", this)
	}

	u := a.closureUnit(n.Span(), n.ReturnType)
	var params []*types.Union
	a.enterUnit(u, func() {
		params = a.closureParams(inner, n.Params)
		a.block(n.Body, inner)
		a.finishUnit(inner, n.Span())
	})
	return types.NewUnion(types.TCallable{Params: params, Return: closureReturn(u), IsClosure: true})
}

// arrowFunction analyses fn(...) => expr. Arrow functions capture the whole
// enclosing scope by value.
func (a *Analyzer) arrowFunction(n *ast.ArrowFunction, bc *blockctx.BlockContext) *types.Union {
	inner := blockctx.New()
	for id, t := range bc.Locals() {
		inner.SetLocal(id, t)
	}
	u := a.closureUnit(n.Span(), n.ReturnType)
	var params []*types.Union
	a.enterUnit(u, func() {
		params = a.closureParams(inner, n.Params)
		t := a.expr(n.Expr, inner)
		if !inner.HasReturned {
			u.returns = append(u.returns, t)
			a.checkReturn(t, n.Expr.Span())
		}
		a.recordUnhandled(inner)
	})
	return types.NewUnion(types.TCallable{Params: params, Return: closureReturn(u), IsClosure: true})
}

func (a *Analyzer) closureUnit(span ast.Span, returnType string) *unit {
	return &unit{
		name:     fmt.Sprintf("%s{closure:%d:%d}", a.unit.name, span.Line, span.Column),
		self:     a.unit.self,
		parent:   a.unit.parent,
		declared: a.parseDeclared(returnType),
	}
}

func (a *Analyzer) closureParams(bc *blockctx.BlockContext, params []ast.Param) []*types.Union {
	a.bindParams(bc, params, nil)
	out := make([]*types.Union, len(params))
	for i, p := range params {
		out[i] = types.Mixed()
		if t := a.parseDeclared(p.Type); t != nil {
			out[i] = t
		}
	}
	return out
}

// closureReturn is the declared return type of a closure unit, or the
// combination of what it returned.
func closureReturn(u *unit) *types.Union {
	if u.declared != nil {
		return u.declared
	}
	if len(u.returns) == 0 {
		return types.Void()
	}
	return types.CombineAll(u.returns...)
}
