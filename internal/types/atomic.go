package types

import (
	"sort"
	"strconv"
	"strings"
)

// Atomic is one concrete possibility inside a Union. The set of variants is
// closed: every implementation lives in this file.
type Atomic interface {
	// ID is the identity key used to dedupe and order atomics in a union.
	ID() string
	String() string
	isAtomic()
}

type TNever struct{}
type TVoid struct{}
type TNull struct{}

// TMixed with NonNull excludes null, it is what remains of mixed after !== null.
type TMixed struct {
	NonNull bool
}

type TBool struct{}
type TTrue struct{}
type TFalse struct{}

type TInt struct{}

type TLiteralInt struct {
	Value int64
}

// TIntRange is int<Min, Max>; a nil bound is unbounded.
type TIntRange struct {
	Min *int64
	Max *int64
}

type TFloat struct{}

type TLiteralFloat struct {
	Value float64
}

type TString struct {
	NonEmpty  bool
	Truthy    bool
	Lowercase bool
	Numeric   bool
}

type TLiteralString struct {
	Value string
}

// TClassString is class-string, or class-string<As> when As is set.
type TClassString struct {
	As string
}

type TNumeric struct{}
type TArrayKey struct{}

type TList struct {
	Value    *Union
	NonEmpty bool
}

// ArrayKey is a known key of a keyed array.
type ArrayKey struct {
	Int   int64
	Str   string
	IsInt bool
}

func IntKey(v int64) ArrayKey { return ArrayKey{Int: v, IsInt: true} }
func StringKey(s string) ArrayKey { return ArrayKey{Str: s} }

func (k ArrayKey) String() string {
	if k.IsInt {
		return strconv.FormatInt(k.Int, 10)
	}
	return "'" + k.Str + "'"
}

type KeyedItem struct {
	Key      ArrayKey
	Type     *Union
	Optional bool
}

// TKeyedArray models array shapes and generic arrays. Items are the known
// entries sorted by key; Key and Value describe the remaining entries and are
// nil for a sealed shape. array{} is a sealed shape without items.
type TKeyedArray struct {
	Items    []KeyedItem
	Key      *Union
	Value    *Union
	NonEmpty bool
}

type TObject struct{}

type TNamedObject struct {
	Name          string
	TypeParams    []*Union
	Intersections []Atomic
	IsThis        bool
}

// TEnum is a single enum case, or any case of the enum when Case is empty.
type TEnum struct {
	Name string
	Case string
}

type TCallable struct {
	Params    []*Union
	Return    *Union
	IsClosure bool
}

type TCallableAlias struct {
	Name string
}

type TResource struct{}

type TGenericParam struct {
	Name           string
	Constraint     *Union
	DefiningEntity string
}

// TReference points at a class member type that has not been expanded yet.
type TReference struct {
	Class  string
	Member string
}

type DerivedOp int

const (
	KeyOf DerivedOp = iota
	ValueOf
	PropertiesOf
)

type TDerived struct {
	Op DerivedOp
	Of *Union
}

type TConditional struct {
	Subject   *Union
	Target    *Union
	Then      *Union
	Otherwise *Union
}

type TPlaceholder struct{}

func (TNever) ID() string { return "never" }
func (TVoid) ID() string { return "void" }
func (TNull) ID() string { return "null" }
func (TBool) ID() string { return "bool" }
func (TTrue) ID() string { return "true" }
func (TFalse) ID() string { return "false" }
func (TInt) ID() string { return "int" }
func (TFloat) ID() string { return "float" }
func (TNumeric) ID() string { return "numeric" }
func (TArrayKey) ID() string { return "array-key" }
func (TObject) ID() string { return "object" }
func (TResource) ID() string { return "resource" }
func (TPlaceholder) ID() string { return "_" }

func (t TMixed) ID() string {
	if t.NonNull {
		return "nonnull"
	}
	return "mixed"
}

func (t TLiteralInt) ID() string { return "int(" + strconv.FormatInt(t.Value, 10) + ")" }

func (t TIntRange) ID() string {
	lo, hi := "min", "max"
	if t.Min != nil {
		lo = strconv.FormatInt(*t.Min, 10)
	}
	if t.Max != nil {
		hi = strconv.FormatInt(*t.Max, 10)
	}
	return "int<" + lo + ", " + hi + ">"
}

func (t TLiteralFloat) ID() string {
	return "float(" + strconv.FormatFloat(t.Value, 'g', -1, 64) + ")"
}

func (t TString) ID() string {
	var b strings.Builder
	switch {
	case t.Truthy:
		b.WriteString("truthy-")
	case t.NonEmpty:
		b.WriteString("non-empty-")
	}
	if t.Lowercase {
		b.WriteString("lowercase-")
	}
	if t.Numeric {
		b.WriteString("numeric-")
	}
	b.WriteString("string")
	return b.String()
}

func (t TLiteralString) ID() string { return "string('" + t.Value + "')" }

func (t TClassString) ID() string {
	if t.As == "" {
		return "class-string"
	}
	return "class-string<" + t.As + ">"
}

func (t TList) ID() string {
	prefix := "list<"
	if t.NonEmpty {
		prefix = "non-empty-list<"
	}
	return prefix + t.Value.ID() + ">"
}

func (t TKeyedArray) ID() string {
	if len(t.Items) == 0 {
		if t.Key == nil {
			return "array{}"
		}
		prefix := "array<"
		if t.NonEmpty {
			prefix = "non-empty-array<"
		}
		return prefix + t.Key.ID() + ", " + t.Value.ID() + ">"
	}
	var b strings.Builder
	b.WriteString("array{")
	for i, item := range t.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.Key.String())
		if item.Optional {
			b.WriteString("?")
		}
		b.WriteString(": ")
		b.WriteString(item.Type.ID())
	}
	if t.Key != nil {
		b.WriteString(", ...<" + t.Key.ID() + ", " + t.Value.ID() + ">")
	}
	b.WriteString("}")
	return b.String()
}

func (t TNamedObject) ID() string {
	var b strings.Builder
	if t.IsThis {
		b.WriteString("static(" + t.Name + ")")
	} else {
		b.WriteString(t.Name)
	}
	if len(t.TypeParams) > 0 {
		b.WriteString("<")
		for i, p := range t.TypeParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.ID())
		}
		b.WriteString(">")
	}
	for _, in := range t.Intersections {
		b.WriteString("&" + in.ID())
	}
	return b.String()
}

func (t TEnum) ID() string {
	if t.Case == "" {
		return "enum(" + t.Name + ")"
	}
	return t.Name + "::" + t.Case
}

func (t TCallable) ID() string {
	name := "callable"
	if t.IsClosure {
		name = "Closure"
	}
	if t.Params == nil && t.Return == nil {
		return name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.ID()
	}
	ret := "mixed"
	if t.Return != nil {
		ret = t.Return.ID()
	}
	return name + "(" + strings.Join(parts, ", ") + "): " + ret
}

func (t TCallableAlias) ID() string { return "callable-alias(" + t.Name + ")" }

func (t TGenericParam) ID() string {
	return t.Name + ":" + t.DefiningEntity
}

func (t TReference) ID() string { return t.Class + "::" + t.Member }

func (t TDerived) ID() string {
	switch t.Op {
	case KeyOf:
		return "key-of<" + t.Of.ID() + ">"
	case ValueOf:
		return "value-of<" + t.Of.ID() + ">"
	default:
		return "properties-of<" + t.Of.ID() + ">"
	}
}

func (t TConditional) ID() string {
	return "(" + t.Subject.ID() + " is " + t.Target.ID() + " ? " + t.Then.ID() + " : " + t.Otherwise.ID() + ")"
}

func (t TNever) String() string { return t.ID() }
func (t TVoid) String() string { return t.ID() }
func (t TNull) String() string { return t.ID() }
func (t TMixed) String() string { return t.ID() }
func (t TBool) String() string { return t.ID() }
func (t TTrue) String() string { return t.ID() }
func (t TFalse) String() string { return t.ID() }
func (t TInt) String() string { return t.ID() }
func (t TLiteralInt) String() string { return t.ID() }
func (t TIntRange) String() string { return t.ID() }
func (t TFloat) String() string { return t.ID() }
func (t TLiteralFloat) String() string { return t.ID() }
func (t TString) String() string { return t.ID() }
func (t TLiteralString) String() string { return t.ID() }
func (t TClassString) String() string { return t.ID() }
func (t TNumeric) String() string { return t.ID() }
func (t TArrayKey) String() string { return t.ID() }
func (t TList) String() string { return t.ID() }
func (t TKeyedArray) String() string { return t.ID() }
func (t TObject) String() string { return t.ID() }
func (t TNamedObject) String() string { return t.ID() }
func (t TEnum) String() string { return t.ID() }
func (t TCallable) String() string { return t.ID() }
func (t TCallableAlias) String() string { return t.Name }
func (t TResource) String() string { return t.ID() }
func (t TGenericParam) String() string { return t.Name }
func (t TReference) String() string { return t.ID() }
func (t TDerived) String() string { return t.ID() }
func (t TConditional) String() string { return t.ID() }
func (t TPlaceholder) String() string { return t.ID() }

func (TNever) isAtomic() {}
func (TVoid) isAtomic() {}
func (TNull) isAtomic() {}
func (TMixed) isAtomic() {}
func (TBool) isAtomic() {}
func (TTrue) isAtomic() {}
func (TFalse) isAtomic() {}
func (TInt) isAtomic() {}
func (TLiteralInt) isAtomic() {}
func (TIntRange) isAtomic() {}
func (TFloat) isAtomic() {}
func (TLiteralFloat) isAtomic() {}
func (TString) isAtomic() {}
func (TLiteralString) isAtomic() {}
func (TClassString) isAtomic() {}
func (TNumeric) isAtomic() {}
func (TArrayKey) isAtomic() {}
func (TList) isAtomic() {}
func (TKeyedArray) isAtomic() {}
func (TObject) isAtomic() {}
func (TNamedObject) isAtomic() {}
func (TEnum) isAtomic() {}
func (TCallable) isAtomic() {}
func (TCallableAlias) isAtomic() {}
func (TResource) isAtomic() {}
func (TGenericParam) isAtomic() {}
func (TReference) isAtomic() {}
func (TDerived) isAtomic() {}
func (TConditional) isAtomic() {}
func (TPlaceholder) isAtomic() {}

// IntRange builds int<min, max>, collapsing single points into a literal.
func IntRange(min, max *int64) Atomic {
	if min == nil && max == nil {
		return TInt{}
	}
	if min != nil && max != nil && *min == *max {
		return TLiteralInt{Value: *min}
	}
	return TIntRange{Min: min, Max: max}
}

func Bound(v int64) *int64 { return &v }

// Array builds the generic array<key, value>.
func Array(key, value *Union) TKeyedArray {
	return TKeyedArray{Key: key, Value: value}
}

// MixedArray is array<array-key, mixed>, the target of is_array().
func MixedArray() TKeyedArray {
	return Array(NewUnion(TArrayKey{}), Mixed())
}

// Shape builds a sealed array shape, items are sorted by key.
func Shape(items ...KeyedItem) TKeyedArray {
	return TKeyedArray{Items: sortItems(items), NonEmpty: hasRequiredItem(items)}
}

func sortItems(items []KeyedItem) []KeyedItem {
	out := append([]KeyedItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

func hasRequiredItem(items []KeyedItem) bool {
	for _, item := range items {
		if !item.Optional {
			return true
		}
	}
	return false
}

// Item returns the entry for key and whether it is a known item.
func (t TKeyedArray) Item(key ArrayKey) (KeyedItem, bool) {
	for _, item := range t.Items {
		if item.Key == key {
			return item, true
		}
	}
	return KeyedItem{}, false
}

// WithItem returns a copy of t with key set to typ.
func (t TKeyedArray) WithItem(key ArrayKey, typ *Union, optional bool) TKeyedArray {
	items := make([]KeyedItem, 0, len(t.Items)+1)
	for _, item := range t.Items {
		if item.Key != key {
			items = append(items, item)
		}
	}
	items = append(items, KeyedItem{Key: key, Type: typ, Optional: optional})
	t.Items = sortItems(items)
	t.NonEmpty = t.NonEmpty || !optional
	return t
}

// WithoutItem returns a copy of t without key.
func (t TKeyedArray) WithoutItem(key ArrayKey) TKeyedArray {
	items := make([]KeyedItem, 0, len(t.Items))
	for _, item := range t.Items {
		if item.Key != key {
			items = append(items, item)
		}
	}
	t.Items = items
	t.NonEmpty = hasRequiredItem(items)
	return t
}

// ValueType is the union of every value the array may hold.
func (t TKeyedArray) ValueType() *Union {
	parts := make([]*Union, 0, len(t.Items)+1)
	for _, item := range t.Items {
		parts = append(parts, item.Type)
	}
	if t.Value != nil {
		parts = append(parts, t.Value)
	}
	if len(parts) == 0 {
		return Never()
	}
	return Join(parts...)
}

// KeyType is the union of every key the array may hold.
func (t TKeyedArray) KeyType() *Union {
	atoms := make([]Atomic, 0, len(t.Items))
	for _, item := range t.Items {
		if item.Key.IsInt {
			atoms = append(atoms, TLiteralInt{Value: item.Key.Int})
		} else {
			atoms = append(atoms, TLiteralString{Value: item.Key.Str})
		}
	}
	if t.Key != nil {
		atoms = append(atoms, t.Key.Atomics()...)
	}
	if len(atoms) == 0 {
		return Never()
	}
	return NewUnion(atoms...)
}

func (t TKeyedArray) IsEmpty() bool {
	return len(t.Items) == 0 && t.Key == nil
}

// Parts returns the main type followed by its intersections.
func (t TNamedObject) Parts() []Atomic {
	parts := []Atomic{TNamedObject{Name: t.Name, TypeParams: t.TypeParams, IsThis: t.IsThis}}
	return append(parts, t.Intersections...)
}

func literalStringFlags(s string) TString {
	return TString{
		NonEmpty:  s != "",
		Truthy:    s != "" && s != "0",
		Lowercase: s != "" && strings.ToLower(s) == s,
		Numeric:   isNumericString(s),
	}
}

func isNumericString(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
