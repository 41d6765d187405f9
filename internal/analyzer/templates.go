package analyzer

import (
	"strings"

	"github.com/shopware/phpflow/internal/types"
)

// bindings maps a template, keyed by types.TGenericParam ID, to the type it
// stands for at one call.
type bindings map[string]*types.Union

// classBindings binds the templates of class from the type parameters of o,
// as in Collection<Foo>. Templates inherited from a parent class stay unbound.
func (a *Analyzer) classBindings(o types.TNamedObject, class string) bindings {
	if len(o.TypeParams) == 0 || !strings.EqualFold(o.Name, class) {
		return nil
	}
	c, ok := a.cb.Class(class)
	if !ok {
		return nil
	}
	b := bindings{}
	for i, t := range c.Templates {
		if i >= len(o.TypeParams) {
			break
		}
		b[types.TGenericParam{Name: t.Name, DefiningEntity: c.Name}.ID()] = o.TypeParams[i]
	}
	return b
}

// infer binds the templates of the declared parameter types from the
// argument types of one call.
func (a *Analyzer) infer(b bindings, params, args []*types.Union) bindings {
	if b == nil {
		b = bindings{}
	}
	for i, p := range params {
		if i >= len(args) || p == nil || args[i] == nil {
			continue
		}
		arg := args[i].AsDefined()
		if p.CanBeNull() && !arg.IsNull() {
			arg = arg.WithoutNull()
		}
		a.bind(b, p, arg)
	}
	return b
}

func (a *Analyzer) bind(b bindings, param, arg *types.Union) {
	for _, pm := range param.Atomics() {
		switch p := pm.(type) {
		case types.TGenericParam:
			id := p.ID()
			if prev, ok := b[id]; ok {
				b[id] = a.combiner.Combine(prev, arg)
			} else {
				b[id] = arg
			}
		case types.TList:
			for _, am := range arg.Atomics() {
				switch v := am.(type) {
				case types.TList:
					a.bind(b, p.Value, v.Value)
				case types.TKeyedArray:
					if vt := v.ValueType(); !vt.IsNever() {
						a.bind(b, p.Value, vt)
					}
				}
			}
		case types.TKeyedArray:
			if p.Value == nil {
				continue
			}
			for _, am := range arg.Atomics() {
				switch v := am.(type) {
				case types.TList:
					a.bind(b, p.Value, v.Value)
				case types.TKeyedArray:
					if kt := v.KeyType(); !kt.IsNever() && p.Key != nil {
						a.bind(b, p.Key, kt)
					}
					if vt := v.ValueType(); !vt.IsNever() {
						a.bind(b, p.Value, vt)
					}
				}
			}
		case types.TNamedObject:
			for _, am := range arg.Atomics() {
				v, ok := am.(types.TNamedObject)
				if !ok || !strings.EqualFold(v.Name, p.Name) {
					continue
				}
				for i, tp := range p.TypeParams {
					if i < len(v.TypeParams) {
						a.bind(b, tp, v.TypeParams[i])
					}
				}
			}
		case types.TCallable:
			if p.Return == nil {
				continue
			}
			for _, am := range arg.Atomics() {
				if v, ok := am.(types.TCallable); ok && v.Return != nil {
					a.bind(b, p.Return, v.Return)
				}
			}
		}
	}
}

// substitute replaces the bound templates in t. Unbound templates widen to
// their constraint and $this or static becomes this when it is set.
func (a *Analyzer) substitute(t *types.Union, b bindings, this types.Atomic) *types.Union {
	if t == nil {
		return nil
	}
	return t.Map(func(m types.Atomic) []types.Atomic {
		return a.substituteAtomic(m, b, this)
	})
}

func (a *Analyzer) substituteAtomic(m types.Atomic, b bindings, this types.Atomic) []types.Atomic {
	switch v := m.(type) {
	case types.TGenericParam:
		if t, ok := b[v.ID()]; ok {
			return t.Atomics()
		}
		if v.Constraint == nil {
			return []types.Atomic{types.TMixed{}}
		}
		return a.substitute(v.Constraint, b, this).Atomics()
	case types.TNamedObject:
		if v.IsThis && this != nil {
			return []types.Atomic{this}
		}
		if len(v.TypeParams) > 0 {
			params := make([]*types.Union, len(v.TypeParams))
			for i, p := range v.TypeParams {
				params[i] = a.substitute(p, b, this)
			}
			v.TypeParams = params
		}
		return []types.Atomic{v}
	case types.TList:
		v.Value = a.substitute(v.Value, b, this)
		return []types.Atomic{v}
	case types.TKeyedArray:
		if len(v.Items) > 0 {
			items := make([]types.KeyedItem, len(v.Items))
			for i, item := range v.Items {
				item.Type = a.substitute(item.Type, b, this)
				items[i] = item
			}
			v.Items = items
		}
		v.Key = a.substitute(v.Key, b, this)
		v.Value = a.substitute(v.Value, b, this)
		return []types.Atomic{v}
	case types.TCallable:
		if len(v.Params) > 0 {
			params := make([]*types.Union, len(v.Params))
			for i, p := range v.Params {
				params[i] = a.substitute(p, b, this)
			}
			v.Params = params
		}
		v.Return = a.substitute(v.Return, b, this)
		return []types.Atomic{v}
	case types.TConditional:
		subject := a.substitute(v.Subject, b, this)
		switch {
		case types.IsContainedBy(subject, v.Target, a.cb, nil):
			return a.substitute(v.Then, b, this).Atomics()
		case !types.CanBeIdentical(subject, v.Target, a.cb):
			return a.substitute(v.Otherwise, b, this).Atomics()
		}
		return a.combiner.Combine(a.substitute(v.Then, b, this), a.substitute(v.Otherwise, b, this)).Atomics()
	}
	return []types.Atomic{m}
}
