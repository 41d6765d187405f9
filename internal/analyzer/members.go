package analyzer

import (
	"strings"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// dimFetch reads $a[k]. A narrowed value of the offset wins over the array
// type, and the value read is kept so later conditions can narrow it.
func (a *Analyzer) dimFetch(n *ast.ArrayDimFetch, bc *blockctx.BlockContext) *types.Union {
	parent := a.expr(n.Array, bc)
	if n.Dim == nil {
		a.report(issue.Info, issue.UnsupportedConstruct, n.Span(), "[] is only analysed in assignments")
		return types.Mixed()
	}
	key, known := keyOf(a.expr(n.Dim, bc))

	id, tracked := ast.VarID(n)
	if tracked {
		if t, ok := bc.Local(id); ok {
			return t.AsDefined()
		}
	}
	t := a.offsetType(parent, key, known)
	if tracked && !bc.HasReturned {
		bc.SetLocal(id, t)
	}
	return t
}

// offsetType is the value read from t at key. Reading a key a sealed shape
// does not have yields null.
func (a *Analyzer) offsetType(t *types.Union, key types.ArrayKey, known bool) *types.Union {
	parts := make([]*types.Union, 0, t.Len())
	for _, m := range t.Atomics() {
		switch v := m.(type) {
		case types.TKeyedArray:
			if known {
				if item, ok := v.Item(key); ok {
					parts = append(parts, item.Type)
					continue
				}
				if v.Value == nil {
					parts = append(parts, types.Null())
					continue
				}
				parts = append(parts, v.Value)
				continue
			}
			if vt := v.ValueType(); !vt.IsNever() {
				parts = append(parts, vt)
			}
			if !v.NonEmpty || v.Value != nil {
				parts = append(parts, types.Null())
			}
		case types.TList:
			parts = append(parts, v.Value)
		case types.TString, types.TLiteralString:
			parts = append(parts, types.String())
		case types.TNamedObject:
			parts = append(parts, a.arrayAccess(v))
		case types.TNull, types.TVoid, types.TNever:
			parts = append(parts, types.Null())
		default:
			parts = append(parts, types.Mixed())
		}
	}
	if len(parts) == 0 {
		return types.Null()
	}
	return a.combiner.CombineAll(parts...)
}

// arrayAccess is the return type of offsetGet on an ArrayAccess object.
func (a *Analyzer) arrayAccess(o types.TNamedObject) *types.Union {
	if !a.isA(o.Name, "ArrayAccess") {
		return types.Mixed()
	}
	m, ok := a.cb.Method(o.Name, "offsetGet")
	if !ok || m.ReturnType() == nil {
		return types.Mixed()
	}
	return a.substitute(m.ReturnType(), a.classBindings(o, m.Class), o)
}

// receiver checks the object an -> or ?-> operator is applied to and returns
// its non-null part. It returns false when no object is left to access.
func (a *Analyzer) receiver(obj *types.Union, nullsafe bool, opLoc, span ast.Span, bc *blockctx.BlockContext) (*types.Union, bool) {
	switch {
	case nullsafe && !obj.CanBeNull() && !obj.IsMixed():
		a.reportIssue(issue.Issue{
			Level:   issue.Info,
			Code:    issue.RedundantNullsafeOperator,
			Span:    opLoc,
			Message: "Cannot use the nullsafe operator on non-nullable " + obj.String(),
			Fix:     &issue.Fix{Span: opLoc, Replacement: "->"},
		})
	case nullsafe:
		if obj.IsNull() {
			return nil, false
		}
	case obj.IsNull():
		a.report(issue.Error, issue.NullReference, span, "Cannot access a member of null")
		return nil, false
	case obj.CanBeNull() && !bc.InsideIsset:
		a.report(issue.Warning, issue.PossiblyNullReference, span, "Cannot access a member of possibly null %s", obj)
	}
	return obj.WithoutNull(), true
}

func (a *Analyzer) propertyFetch(n *ast.PropertyFetch, bc *blockctx.BlockContext) *types.Union {
	obj := a.expr(n.Object, bc)
	recv, ok := a.receiver(obj, n.Nullsafe, n.OperatorLoc, n.Span(), bc)
	if !ok {
		return types.Null()
	}
	id, tracked := ast.VarID(n)
	if tracked {
		if t, ok := bc.Local(id); ok {
			return t.AsDefined()
		}
	}
	if recv.IsMixed() {
		if !bc.InsideIsset {
			a.report(issue.Warning, issue.MixedPropertyFetch, n.Span(), "Cannot fetch property %s on mixed", n.Name)
		}
		return types.Mixed()
	}

	parts := make([]*types.Union, 0, recv.Len()+1)
	for _, m := range recv.Atomics() {
		parts = append(parts, a.property(m, n.Name, n.Span(), bc))
	}
	if n.Nullsafe && obj.CanBeNull() {
		parts = append(parts, types.Null())
	}
	t := a.combiner.CombineAll(parts...)
	if tracked && !bc.HasReturned {
		bc.SetLocal(id, t)
	}
	return t
}

// property is the declared type of name on one receiver atomic.
func (a *Analyzer) property(m types.Atomic, name string, span ast.Span, bc *blockctx.BlockContext) *types.Union {
	switch v := m.(type) {
	case types.TNamedObject:
		if !a.cb.ClassExists(v.Name) {
			a.report(issue.Error, issue.UndefinedClass, span, "Class %s does not exist", v.Name)
			return types.Mixed()
		}
		if p, ok := a.cb.Property(v.Name, name); ok {
			return a.substitute(p.DeclaredType(), a.classBindings(v, p.Class), v)
		}
		if _, ok := a.cb.Method(v.Name, "__get"); ok || a.isA(v.Name, "stdClass") {
			return types.Mixed()
		}
		if !bc.InsideIsset {
			a.report(issue.Error, issue.UndefinedProperty, span, "Property %s::$%s is not defined", v.Name, name)
		}
		return types.Mixed()
	case types.TEnum:
		return a.enumProperty(v, name, span)
	}
	return types.Mixed()
}

// enumProperty types the name and value properties of enum cases.
func (a *Analyzer) enumProperty(e types.TEnum, name string, span ast.Span) *types.Union {
	c, ok := a.cb.Class(e.Name)
	if !ok {
		return types.Mixed()
	}
	switch name {
	case "name":
		if e.Case != "" {
			return types.LiteralString(e.Case)
		}
		return types.NewUnion(types.TString{NonEmpty: true})
	case "value":
		if c.BackingType == "" {
			break
		}
		if t, err := types.Parse(c.BackingType); err == nil {
			return t
		}
		return types.Mixed()
	}
	a.report(issue.Error, issue.UndefinedProperty, span, "Property %s::$%s is not defined", e.Name, name)
	return types.Mixed()
}

func (a *Analyzer) staticPropertyFetch(n *ast.StaticPropertyFetch, bc *blockctx.BlockContext) *types.Union {
	if id, ok := ast.VarID(n); ok {
		if t, ok := bc.Local(id); ok {
			return t.AsDefined()
		}
	}
	class := a.className(n.Class)
	if !a.cb.ClassExists(class) {
		a.report(issue.Error, issue.UndefinedClass, n.Span(), "Class %s does not exist", class)
		return types.Mixed()
	}
	p, ok := a.cb.Property(class, n.Name)
	if !ok || !p.Static {
		a.report(issue.Error, issue.UndefinedProperty, n.Span(), "Static property %s::$%s is not defined", class, n.Name)
		return types.Mixed()
	}
	return p.DeclaredType()
}

func (a *Analyzer) classConstFetch(n *ast.ClassConstFetch) *types.Union {
	class := a.className(n.Class)
	if strings.EqualFold(n.Name, "class") {
		if c, ok := a.cb.Class(class); ok {
			class = c.Name
		}
		return types.LiteralString(class)
	}
	c, ok := a.cb.Class(class)
	if !ok {
		a.report(issue.Error, issue.UndefinedClass, n.Span(), "Class %s does not exist", class)
		return types.Mixed()
	}
	if t, ok := a.cb.ClassConstant(c.Name, n.Name); ok {
		return t
	}
	a.logger.Debug("unknown class constant", "class", c.Name, "constant", n.Name)
	return types.Mixed()
}

func (a *Analyzer) constFetch(n *ast.ConstFetch) *types.Union {
	switch strings.ToLower(strings.TrimPrefix(n.Name, "\\")) {
	case "true":
		return types.True()
	case "false":
		return types.False()
	case "null":
		return types.Null()
	}
	if t, ok := a.cb.Constant(n.Name); ok {
		return t
	}
	a.logger.Debug("unknown constant", "constant", n.Name)
	return types.Mixed()
}
