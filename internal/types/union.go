// Package types implements the union type algebra: atomic type variants and the
// combine, subtract and containment operations over unions of them.
package types

import (
	"sort"
	"strings"
)

// Flags are the per-value annotations carried by a union.
type Flags struct {
	PossiblyUndefined        bool
	PossiblyUndefinedFromTry bool
	IgnoreNullableIssues     bool
	IgnoreFalsableIssues     bool
	ByReference              bool
}

func (f Flags) or(o Flags) Flags {
	return Flags{
		PossiblyUndefined:        f.PossiblyUndefined || o.PossiblyUndefined,
		PossiblyUndefinedFromTry: f.PossiblyUndefinedFromTry || o.PossiblyUndefinedFromTry,
		IgnoreNullableIssues:     f.IgnoreNullableIssues || o.IgnoreNullableIssues,
		IgnoreFalsableIssues:     f.IgnoreFalsableIssues || o.IgnoreFalsableIssues,
		ByReference:              f.ByReference || o.ByReference,
	}
}

// Union is an immutable set of atomics. The zero value is not valid; use the
// constructors. A union is never empty: no possible type is the single never.
//
// Every operation returns a new handle, so a *Union can be shared freely
// between block contexts and goroutines once built.
type Union struct {
	atoms []Atomic
	flags Flags
	id    string
}

// NewUnion builds a union from atoms without literal widening. Duplicates and
// redundant never are dropped and mixed absorbs everything else.
func NewUnion(atoms ...Atomic) *Union {
	return newUnion(atoms, Flags{})
}

func newUnion(atoms []Atomic, flags Flags) *Union {
	seen := make(map[string]struct{}, len(atoms))
	out := make([]Atomic, 0, len(atoms))
	var mixed *TMixed
	hasNull := false
	for _, a := range atoms {
		if a == nil {
			continue
		}
		switch t := a.(type) {
		case TNever:
			continue
		case TMixed:
			if mixed == nil || !t.NonNull {
				m := t
				mixed = &m
			}
			continue
		case TNull, TVoid:
			hasNull = true
		}
		id := a.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, a)
	}
	if mixed != nil {
		m := *mixed
		if hasNull {
			m.NonNull = false
		}
		out = []Atomic{m}
	}
	if len(out) == 0 {
		out = []Atomic{TNever{}}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	parts := make([]string, len(out))
	for i, a := range out {
		parts[i] = a.ID()
	}
	return &Union{atoms: out, flags: flags, id: strings.Join(parts, "|")}
}

func Never() *Union { return NewUnion(TNever{}) }
func Void() *Union { return NewUnion(TVoid{}) }
func Null() *Union { return NewUnion(TNull{}) }
func Mixed() *Union { return NewUnion(TMixed{}) }
func Bool() *Union { return NewUnion(TBool{}) }
func True() *Union { return NewUnion(TTrue{}) }
func False() *Union { return NewUnion(TFalse{}) }
func Int() *Union { return NewUnion(TInt{}) }
func Float() *Union { return NewUnion(TFloat{}) }
func String() *Union { return NewUnion(TString{}) }
func Object() *Union { return NewUnion(TObject{}) }
func LiteralInt(v int64) *Union { return NewUnion(TLiteralInt{Value: v}) }
func LiteralFloat(v float64) *Union { return NewUnion(TLiteralFloat{Value: v}) }
func LiteralString(s string) *Union { return NewUnion(TLiteralString{Value: s}) }
func Named(name string) *Union { return NewUnion(TNamedObject{Name: name}) }
func EnumCase(name, c string) *Union { return NewUnion(TEnum{Name: name, Case: c}) }
func ListOf(value *Union) *Union { return NewUnion(TList{Value: value}) }
func EmptyArray() *Union { return NewUnion(TKeyedArray{}) }
func ArrayOf(key, value *Union) *Union { return NewUnion(Array(key, value)) }

// Nullable returns u|null.
func Nullable(u *Union) *Union {
	return newUnion(append(u.Atomics(), TNull{}), u.flags)
}

// Atomics returns a copy of the members in canonical order.
func (u *Union) Atomics() []Atomic {
	return append([]Atomic(nil), u.atoms...)
}

func (u *Union) Len() int { return len(u.atoms) }

func (u *Union) Flags() Flags { return u.flags }

// WithFlags returns u with its flags replaced.
func (u *Union) WithFlags(f Flags) *Union {
	if u.flags == f {
		return u
	}
	return &Union{atoms: u.atoms, flags: f, id: u.id}
}

func (u *Union) PossiblyUndefined() bool { return u.flags.PossiblyUndefined }

func (u *Union) PossiblyUndefinedFromTry() bool { return u.flags.PossiblyUndefinedFromTry }

// AsPossiblyUndefined marks u as possibly undefined, fromTry additionally
// records that the gap comes from a try block.
func (u *Union) AsPossiblyUndefined(fromTry bool) *Union {
	f := u.flags
	f.PossiblyUndefined = true
	f.PossiblyUndefinedFromTry = f.PossiblyUndefinedFromTry || fromTry
	return u.WithFlags(f)
}

// AsDefined clears both undefinedness flags.
func (u *Union) AsDefined() *Union {
	f := u.flags
	f.PossiblyUndefined = false
	f.PossiblyUndefinedFromTry = false
	return u.WithFlags(f)
}

// ID is the canonical text of the members, ignoring flags.
func (u *Union) ID() string {
	return u.id
}

func (u *Union) String() string {
	parts := make([]string, len(u.atoms))
	for i, a := range u.atoms {
		parts[i] = a.String()
	}
	return strings.Join(parts, "|")
}

// EqualTypes compares members only.
func (u *Union) EqualTypes(o *Union) bool {
	if u == o {
		return true
	}
	if u == nil || o == nil || len(u.atoms) != len(o.atoms) {
		return false
	}
	return u.id == o.id
}

// Equal compares members and flags.
func (u *Union) Equal(o *Union) bool {
	if u == nil || o == nil {
		return u == o
	}
	return u.flags == o.flags && u.EqualTypes(o)
}

func (u *Union) IsNever() bool {
	return len(u.atoms) == 1 && isNever(u.atoms[0])
}

func (u *Union) IsMixed() bool {
	return u.Has(func(a Atomic) bool { _, ok := a.(TMixed); return ok })
}

func (u *Union) IsVoid() bool {
	return len(u.atoms) == 1 && u.atoms[0].ID() == "void"
}

func (u *Union) IsNull() bool {
	return len(u.atoms) == 1 && isNull(u.atoms[0])
}

// IsNullable reports whether null is one of several members.
func (u *Union) IsNullable() bool {
	return len(u.atoms) > 1 && u.HasNull()
}

func (u *Union) HasNull() bool {
	return u.Has(isNull)
}

// CanBeNull includes plain mixed.
func (u *Union) CanBeNull() bool {
	return u.Has(func(a Atomic) bool {
		if m, ok := a.(TMixed); ok {
			return !m.NonNull
		}
		return isNull(a)
	})
}

// Single returns the only member of u.
func (u *Union) Single() (Atomic, bool) {
	if len(u.atoms) != 1 {
		return nil, false
	}
	return u.atoms[0], true
}

// Has reports whether any member satisfies pred.
func (u *Union) Has(pred func(Atomic) bool) bool {
	for _, a := range u.atoms {
		if pred(a) {
			return true
		}
	}
	return false
}

// All reports whether every member satisfies pred.
func (u *Union) All(pred func(Atomic) bool) bool {
	for _, a := range u.atoms {
		if !pred(a) {
			return false
		}
	}
	return true
}

// Filter keeps the members satisfying pred, never if none does.
func (u *Union) Filter(pred func(Atomic) bool) *Union {
	kept := make([]Atomic, 0, len(u.atoms))
	for _, a := range u.atoms {
		if pred(a) {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(u.atoms) {
		return u
	}
	return newUnion(kept, u.flags)
}

// Map replaces every member with the atomics returned by fn.
func (u *Union) Map(fn func(Atomic) []Atomic) *Union {
	out := make([]Atomic, 0, len(u.atoms))
	for _, a := range u.atoms {
		out = append(out, fn(a)...)
	}
	return newUnion(out, u.flags)
}

// WithoutNull drops null and void.
func (u *Union) WithoutNull() *Union {
	if !u.HasNull() {
		return u
	}
	return u.Filter(func(a Atomic) bool { return !isNull(a) })
}

// NamedObjects returns the class names of the object members.
func (u *Union) NamedObjects() []string {
	var names []string
	for _, a := range u.atoms {
		switch t := a.(type) {
		case TNamedObject:
			names = append(names, t.Name)
		case TEnum:
			names = append(names, t.Name)
		}
	}
	return names
}

// IsAlwaysTruthy reports whether no member can be falsy.
func (u *Union) IsAlwaysTruthy() bool {
	if u.flags.PossiblyUndefined {
		return false
	}
	return u.All(IsAlwaysTruthy)
}

// IsAlwaysFalsy reports whether no member can be truthy.
func (u *Union) IsAlwaysFalsy() bool {
	return u.All(IsAlwaysFalsy)
}

func isNever(a Atomic) bool {
	_, ok := a.(TNever)
	return ok
}

func isNull(a Atomic) bool {
	switch a.(type) {
	case TNull, TVoid:
		return true
	}
	return false
}

// IsAlwaysTruthy reports whether every value of a is truthy.
func IsAlwaysTruthy(a Atomic) bool {
	switch t := a.(type) {
	case TTrue, TObject, TNamedObject, TEnum, TResource, TCallable, TClassString:
		return true
	case TLiteralInt:
		return t.Value != 0
	case TLiteralFloat:
		return t.Value != 0
	case TLiteralString:
		return t.Value != "" && t.Value != "0"
	case TString:
		return t.Truthy
	case TIntRange:
		return (t.Min != nil && *t.Min > 0) || (t.Max != nil && *t.Max < 0)
	case TList:
		return t.NonEmpty
	case TKeyedArray:
		return t.NonEmpty
	}
	return false
}

// IsAlwaysFalsy reports whether every value of a is falsy.
func IsAlwaysFalsy(a Atomic) bool {
	switch t := a.(type) {
	case TNull, TVoid, TFalse, TNever:
		return true
	case TLiteralInt:
		return t.Value == 0
	case TLiteralFloat:
		return t.Value == 0
	case TLiteralString:
		return t.Value == "" || t.Value == "0"
	case TKeyedArray:
		return t.IsEmpty()
	}
	return false
}
