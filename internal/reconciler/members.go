package reconciler

import (
	"strings"

	"github.com/shopware/phpflow/internal/types"
)

// isType narrows one member to the values that are also of type t.
func isType(m, t types.Atomic, h types.Hierarchy) []types.Atomic {
	if mixed, ok := m.(types.TMixed); ok {
		if _, null := t.(types.TNull); null && mixed.NonNull {
			return nil
		}
		if _, isMixed := t.(types.TMixed); isMixed {
			return []types.Atomic{m}
		}
		return []types.Atomic{t}
	}
	if types.AtomicIsContainedBy(m, t, h, nil) {
		return []types.Atomic{m}
	}
	if types.AtomicIsContainedBy(t, m, h, nil) {
		return []types.Atomic{t}
	}

	switch mt := m.(type) {
	case types.TString:
		if _, ok := t.(types.TNumeric); ok {
			mt.Numeric = true
			mt.NonEmpty = true
			return []types.Atomic{mt}
		}
		if _, ok := t.(types.TCallable); ok {
			return []types.Atomic{m}
		}
	case types.TArrayKey:
		if _, ok := t.(types.TNumeric); ok {
			return []types.Atomic{types.TInt{}, types.TString{Numeric: true, NonEmpty: true}}
		}
	case types.TInt, types.TIntRange:
		if isInt(t) {
			lo, hi := bounds(t)
			return types.IntersectIntRange(types.NewUnion(m), lo, hi).Atomics()
		}
	case types.TNamedObject:
		if tn, ok := t.(types.TNamedObject); ok && (h.IsInterface(mt.Name) || h.IsInterface(tn.Name)) {
			mt.Intersections = append(append([]types.Atomic(nil), mt.Intersections...), tn)
			return []types.Atomic{mt}
		}
		if _, ok := t.(types.TCallable); ok {
			return []types.Atomic{m}
		}
	case types.TObject:
		if _, ok := t.(types.TCallable); ok {
			return []types.Atomic{m}
		}
	case types.TList:
		if k, ok := t.(types.TKeyedArray); ok && k.IsEmpty() && !mt.NonEmpty {
			return []types.Atomic{t}
		}
		if _, ok := t.(types.TCallable); ok {
			return []types.Atomic{m}
		}
	case types.TKeyedArray:
		if k, ok := t.(types.TKeyedArray); ok && k.IsEmpty() && !mt.NonEmpty {
			return []types.Atomic{t}
		}
		if _, ok := t.(types.TCallable); ok {
			return []types.Atomic{m}
		}
	}
	return nil
}

func isInt(a types.Atomic) bool {
	switch a.(type) {
	case types.TInt, types.TLiteralInt, types.TIntRange:
		return true
	}
	return false
}

func bounds(a types.Atomic) (*int64, *int64) {
	switch t := a.(type) {
	case types.TLiteralInt:
		return types.Bound(t.Value), types.Bound(t.Value)
	case types.TIntRange:
		return t.Min, t.Max
	}
	return nil, nil
}

func truthy(m types.Atomic) []types.Atomic {
	if types.IsAlwaysFalsy(m) {
		return nil
	}
	switch t := m.(type) {
	case types.TMixed:
		return []types.Atomic{types.TMixed{NonNull: true}}
	case types.TBool:
		return []types.Atomic{types.TTrue{}}
	case types.TInt, types.TIntRange:
		return types.RemoveAtomic(types.NewUnion(m), types.TLiteralInt{Value: 0}, nil).Atomics()
	case types.TString:
		t.NonEmpty = true
		t.Truthy = true
		return []types.Atomic{t}
	case types.TList:
		t.NonEmpty = true
		return []types.Atomic{t}
	case types.TKeyedArray:
		t.NonEmpty = true
		return []types.Atomic{t}
	}
	return []types.Atomic{m}
}

func falsy(m types.Atomic) []types.Atomic {
	if types.IsAlwaysTruthy(m) {
		return nil
	}
	if types.IsAlwaysFalsy(m) {
		return []types.Atomic{m}
	}
	zero := types.TLiteralInt{Value: 0}
	switch t := m.(type) {
	case types.TBool:
		return []types.Atomic{types.TFalse{}}
	case types.TInt:
		return []types.Atomic{zero}
	case types.TIntRange:
		if types.AtomicIsContainedBy(zero, t, nil, nil) {
			return []types.Atomic{zero}
		}
		return nil
	case types.TFloat:
		return []types.Atomic{types.TLiteralFloat{Value: 0}}
	case types.TString:
		if t.NonEmpty || t.Numeric {
			return []types.Atomic{types.TLiteralString{Value: "0"}}
		}
		return []types.Atomic{types.TLiteralString{Value: ""}, types.TLiteralString{Value: "0"}}
	case types.TNumeric:
		return []types.Atomic{zero, types.TLiteralFloat{Value: 0}, types.TLiteralString{Value: "0"}}
	case types.TArrayKey:
		return []types.Atomic{zero, types.TLiteralString{Value: ""}, types.TLiteralString{Value: "0"}}
	case types.TList, types.TKeyedArray:
		return []types.Atomic{types.TKeyedArray{}}
	}
	return []types.Atomic{m}
}

func isset(u *types.Union, h types.Hierarchy) *types.Union {
	return eachMember(u, func(m types.Atomic) []types.Atomic {
		switch t := m.(type) {
		case types.TNull, types.TVoid:
			return nil
		case types.TMixed:
			t.NonNull = true
			return []types.Atomic{t}
		}
		return []types.Atomic{m}
	}, h).AsDefined()
}

// notIsset leaves null, keeping the undefinedness of u.
func notIsset(u *types.Union) *types.Union {
	if !u.CanBeNull() && !u.PossiblyUndefined() {
		return types.Never().WithFlags(u.Flags())
	}
	return types.Null().WithFlags(u.Flags())
}

func implementsCountable(name string, h types.Hierarchy) bool {
	return strings.EqualFold(strings.TrimPrefix(name, "\\"), "Countable") || h.IsSubclassOf(name, "Countable")
}

// countable keeps the members count() accepts; nonEmpty additionally drops
// empty arrays.
func countable(m types.Atomic, h types.Hierarchy, nonEmpty bool) []types.Atomic {
	switch t := m.(type) {
	case types.TMixed:
		arr := types.MixedArray()
		arr.NonEmpty = nonEmpty
		return []types.Atomic{arr, types.TNamedObject{Name: "Countable"}}
	case types.TObject:
		return []types.Atomic{types.TNamedObject{Name: "Countable"}}
	case types.TList:
		t.NonEmpty = t.NonEmpty || nonEmpty
		return []types.Atomic{t}
	case types.TKeyedArray:
		if nonEmpty {
			if t.IsEmpty() {
				return nil
			}
			t.NonEmpty = true
		}
		return []types.Atomic{t}
	case types.TNamedObject:
		if implementsCountable(t.Name, h) {
			return []types.Atomic{m}
		}
		if h.IsInterface(t.Name) {
			return []types.Atomic{types.TNamedObject{Name: t.Name, TypeParams: t.TypeParams, Intersections: append(append([]types.Atomic(nil), t.Intersections...), types.TNamedObject{Name: "Countable"})}}
		}
	}
	return nil
}

// emptyCountable is reached when count() returned zero, so only empty
// countables remain.
func emptyCountable(m types.Atomic) []types.Atomic {
	switch t := m.(type) {
	case types.TMixed, types.TObject, types.TNamedObject:
		return []types.Atomic{m}
	case types.TList:
		if t.NonEmpty {
			return nil
		}
		return []types.Atomic{types.TKeyedArray{}}
	case types.TKeyedArray:
		if t.NonEmpty {
			return nil
		}
		return []types.Atomic{types.TKeyedArray{}}
	}
	return nil
}

func notCountable(m types.Atomic, h types.Hierarchy) []types.Atomic {
	switch t := m.(type) {
	case types.TList, types.TKeyedArray:
		return nil
	case types.TNamedObject:
		if implementsCountable(t.Name, h) {
			return nil
		}
	}
	return []types.Atomic{m}
}

func hasKey(m types.Atomic, key types.ArrayKey) []types.Atomic {
	switch t := m.(type) {
	case types.TMixed:
		return []types.Atomic{types.TKeyedArray{
			Items:    []types.KeyedItem{{Key: key, Type: types.Mixed()}},
			Key:      types.NewUnion(types.TArrayKey{}),
			Value:    types.Mixed(),
			NonEmpty: true,
		}}
	case types.TKeyedArray:
		if item, ok := t.Item(key); ok {
			return []types.Atomic{t.WithItem(key, item.Type, false)}
		}
		if t.Key == nil {
			return nil
		}
		return []types.Atomic{t.WithItem(key, t.Value, false)}
	case types.TList:
		if !key.IsInt || key.Int < 0 {
			return nil
		}
		t.NonEmpty = true
		return []types.Atomic{t}
	case types.TNamedObject, types.TObject:
		return []types.Atomic{m}
	case types.TString:
		if key.IsInt {
			t.NonEmpty = true
			return []types.Atomic{t}
		}
	case types.TLiteralString:
		if key.IsInt && key.Int >= 0 && key.Int < int64(len(t.Value)) {
			return []types.Atomic{m}
		}
	}
	return nil
}

func lacksKey(m types.Atomic, key types.ArrayKey) []types.Atomic {
	t, ok := m.(types.TKeyedArray)
	if !ok {
		return []types.Atomic{m}
	}
	item, ok := t.Item(key)
	if !ok {
		return []types.Atomic{m}
	}
	if !item.Optional {
		return nil
	}
	return []types.Atomic{t.WithoutItem(key)}
}

// looseNullValues are the values that compare equal to null with ==.
var looseNullValues = []types.Atomic{
	types.TNull{},
	types.TFalse{},
	types.TLiteralInt{Value: 0},
	types.TLiteralFloat{Value: 0},
	types.TLiteralString{Value: ""},
	types.TKeyedArray{},
}

func looseEqual(u *types.Union, v types.Atomic, h types.Hierarchy) *types.Union {
	switch v.(type) {
	case nil:
		return u
	case types.TNull:
		return eachMember(u, func(m types.Atomic) []types.Atomic {
			if _, ok := m.(types.TMixed); ok {
				return []types.Atomic{m}
			}
			var out []types.Atomic
			for _, n := range looseNullValues {
				out = append(out, isType(m, n, h)...)
			}
			return out
		}, h)
	case types.TTrue:
		return eachMember(u, truthy, h)
	case types.TFalse:
		return eachMember(u, falsy, h)
	case types.TEnum:
		return eachMember(u, func(m types.Atomic) []types.Atomic { return isType(m, v, h) }, h)
	}
	return eachMember(u, func(m types.Atomic) []types.Atomic {
		if !sameBaseType(m, v) {
			return []types.Atomic{m}
		}
		return isType(m, v, h)
	}, h)
}

func looseNotEqual(u *types.Union, v types.Atomic, h types.Hierarchy) *types.Union {
	switch v.(type) {
	case nil:
		return u
	case types.TNull:
		result := u
		for _, n := range looseNullValues {
			result = types.RemoveAtomic(result, n, h)
		}
		return result
	case types.TTrue:
		return eachMember(u, falsy, h)
	case types.TFalse:
		return eachMember(u, truthy, h)
	}
	return types.RemoveAtomic(u, v, h)
}

// sameBaseType reports whether loose comparison of m with the literal v
// behaves like a strict one. Numeric strings compare numerically, so they
// are excluded.
func sameBaseType(m, v types.Atomic) bool {
	switch vt := v.(type) {
	case types.TLiteralInt:
		return isInt(m)
	case types.TLiteralFloat:
		switch m.(type) {
		case types.TFloat, types.TLiteralFloat:
			return true
		}
	case types.TLiteralString:
		if isNumeric(vt.Value) {
			return false
		}
		switch mt := m.(type) {
		case types.TString:
			return !mt.Numeric
		case types.TLiteralString:
			return !isNumeric(mt.Value)
		}
	}
	return false
}

func isNumeric(s string) bool {
	return types.AtomicIsContainedBy(types.TLiteralString{Value: s}, types.TNumeric{}, nil, nil)
}
