package types

import (
	"sort"
	"strings"
)

// Combiner merges unions the way values flowing into one variable merge:
// literals of one base type widen, array parameters merge and redundant
// members disappear.
type Combiner struct {
	// LiteralLimit is how many distinct literals of one base type survive a
	// combine. Zero widens any two different literals to their base type.
	LiteralLimit int
}

var DefaultCombiner = Combiner{}

// Combine is DefaultCombiner.Combine.
func Combine(a, b *Union) *Union {
	return DefaultCombiner.CombineAll(a, b)
}

// CombineAll is DefaultCombiner.CombineAll.
func CombineAll(us ...*Union) *Union {
	return DefaultCombiner.CombineAll(us...)
}

func (c Combiner) Combine(a, b *Union) *Union {
	return c.CombineAll(a, b)
}

// CombineAll merges every union and ORs their flags. Nil unions are skipped;
// with no input the result is never.
func (c Combiner) CombineAll(us ...*Union) *Union {
	var atoms []Atomic
	var flags Flags
	for _, u := range us {
		if u == nil {
			continue
		}
		atoms = append(atoms, u.atoms...)
		flags = flags.or(u.flags)
	}
	if len(atoms) == 0 {
		return Never().WithFlags(flags)
	}
	return newUnion(c.combineAtoms(atoms), flags)
}

// Join is the set union of us without literal widening or array merging.
func Join(us ...*Union) *Union {
	var atoms []Atomic
	var flags Flags
	for _, u := range us {
		if u == nil {
			continue
		}
		atoms = append(atoms, u.atoms...)
		flags = flags.or(u.flags)
	}
	return newUnion(atoms, flags)
}

type combination struct {
	mixed, mixedNullable bool
	null, void, other    bool

	boolean, trueVal, falseVal bool

	integer  bool
	intLits  map[int64]struct{}
	ranges   []TIntRange
	float    bool
	floatLit map[float64]struct{}

	strs         []TString
	strLits      map[string]struct{}
	classStrings map[string]struct{}
	numeric      bool
	arrayKey     bool

	lists []TList
	keyed []TKeyedArray

	object bool
	named  map[string][]TNamedObject
	enums  map[string]TEnum

	rest []Atomic
}

func (c Combiner) combineAtoms(atoms []Atomic) []Atomic {
	comb := combination{
		intLits:      map[int64]struct{}{},
		floatLit:     map[float64]struct{}{},
		strLits:      map[string]struct{}{},
		classStrings: map[string]struct{}{},
		named:        map[string][]TNamedObject{},
		enums:        map[string]TEnum{},
	}
	for _, a := range atoms {
		comb.add(a)
	}
	if comb.mixed {
		return []Atomic{TMixed{NonNull: !comb.mixedNullable && !comb.null && !comb.void}}
	}
	if comb.void && !comb.null && !comb.other {
		return []Atomic{TVoid{}}
	}

	var out []Atomic
	if comb.null || comb.void {
		out = append(out, TNull{})
	}
	out = append(out, comb.bools()...)
	out = append(out, c.scalars(&comb)...)
	out = append(out, comb.arrays()...)
	out = append(out, comb.objects()...)
	out = append(out, comb.rest...)
	if len(out) == 0 {
		return []Atomic{TNever{}}
	}
	return out
}

func (comb *combination) add(a Atomic) {
	if _, ok := a.(TVoid); !ok {
		if _, never := a.(TNever); !never {
			comb.other = true
		}
	}
	switch t := a.(type) {
	case TNever:
	case TMixed:
		comb.mixed = true
		comb.mixedNullable = comb.mixedNullable || !t.NonNull
	case TNull:
		comb.null = true
	case TVoid:
		comb.void = true
	case TBool:
		comb.boolean = true
	case TTrue:
		comb.trueVal = true
	case TFalse:
		comb.falseVal = true
	case TInt:
		comb.integer = true
	case TLiteralInt:
		comb.intLits[t.Value] = struct{}{}
	case TIntRange:
		comb.ranges = append(comb.ranges, t)
	case TFloat:
		comb.float = true
	case TLiteralFloat:
		comb.floatLit[t.Value] = struct{}{}
	case TString:
		comb.strs = append(comb.strs, t)
	case TLiteralString:
		comb.strLits[t.Value] = struct{}{}
	case TClassString:
		comb.classStrings[t.As] = struct{}{}
	case TNumeric:
		comb.numeric = true
	case TArrayKey:
		comb.arrayKey = true
	case TList:
		comb.lists = append(comb.lists, t)
	case TKeyedArray:
		comb.keyed = append(comb.keyed, t)
	case TObject:
		comb.object = true
	case TNamedObject:
		key := strings.ToLower(t.Name)
		comb.named[key] = append(comb.named[key], t)
	case TEnum:
		comb.enums[t.ID()] = t
	default:
		comb.rest = append(comb.rest, a)
	}
}

func (comb *combination) bools() []Atomic {
	switch {
	case comb.boolean || (comb.trueVal && comb.falseVal):
		return []Atomic{TBool{}}
	case comb.trueVal:
		return []Atomic{TTrue{}}
	case comb.falseVal:
		return []Atomic{TFalse{}}
	}
	return nil
}

func (c Combiner) widen(n int) bool {
	return n > 1 && n > c.LiteralLimit
}

func (c Combiner) scalars(comb *combination) []Atomic {
	var out []Atomic
	if comb.arrayKey {
		out = append(out, TArrayKey{})
	}
	if comb.numeric {
		out = append(out, TNumeric{})
	}

	if !comb.arrayKey && !comb.numeric {
		out = append(out, c.ints(comb)...)
	}
	if !comb.numeric {
		out = append(out, c.floats(comb)...)
	}
	if !comb.arrayKey {
		out = append(out, c.strings(comb)...)
	}
	return out
}

func (c Combiner) ints(comb *combination) []Atomic {
	if comb.integer {
		return []Atomic{TInt{}}
	}
	if len(comb.ranges) > 0 {
		lo, hi := comb.ranges[0].Min, comb.ranges[0].Max
		for _, r := range comb.ranges[1:] {
			lo = minBound(lo, r.Min)
			hi = maxBound(hi, r.Max)
		}
		for v := range comb.intLits {
			if lo != nil && v < *lo {
				lo = Bound(v)
			}
			if hi != nil && v > *hi {
				hi = Bound(v)
			}
		}
		return []Atomic{IntRange(lo, hi)}
	}
	if c.widen(len(comb.intLits)) {
		return []Atomic{TInt{}}
	}
	out := make([]Atomic, 0, len(comb.intLits))
	for v := range comb.intLits {
		out = append(out, TLiteralInt{Value: v})
	}
	return out
}

func (c Combiner) floats(comb *combination) []Atomic {
	if comb.float || c.widen(len(comb.floatLit)) {
		return []Atomic{TFloat{}}
	}
	out := make([]Atomic, 0, len(comb.floatLit))
	for v := range comb.floatLit {
		out = append(out, TLiteralFloat{Value: v})
	}
	return out
}

func (c Combiner) strings(comb *combination) []Atomic {
	if comb.numeric {
		kept := comb.strs[:0:0]
		for _, s := range comb.strs {
			if !s.Numeric {
				kept = append(kept, s)
			}
		}
		comb.strs = kept
		for v := range comb.strLits {
			if isNumericString(v) {
				delete(comb.strLits, v)
			}
		}
	}
	if len(comb.strs) > 0 {
		merged := comb.strs[0]
		for _, s := range comb.strs[1:] {
			merged = intersectStringFlags(merged, s)
		}
		for v := range comb.strLits {
			merged = intersectStringFlags(merged, literalStringFlags(v))
		}
		if len(comb.classStrings) > 0 {
			merged = intersectStringFlags(merged, TString{NonEmpty: true, Truthy: true})
		}
		return []Atomic{merged}
	}

	var out []Atomic
	if _, ok := comb.classStrings[""]; ok {
		out = append(out, TClassString{})
	} else {
		for as := range comb.classStrings {
			out = append(out, TClassString{As: as})
		}
	}
	if c.widen(len(comb.strLits)) {
		return append(out, TString{})
	}
	for v := range comb.strLits {
		out = append(out, TLiteralString{Value: v})
	}
	return out
}

func intersectStringFlags(a, b TString) TString {
	return TString{
		NonEmpty:  a.NonEmpty && b.NonEmpty,
		Truthy:    a.Truthy && b.Truthy,
		Lowercase: a.Lowercase && b.Lowercase,
		Numeric:   a.Numeric && b.Numeric,
	}
}

func (comb *combination) arrays() []Atomic {
	var out []Atomic
	keyed := comb.keyed
	if len(comb.lists) > 0 {
		merged := TList{Value: comb.lists[0].Value, NonEmpty: comb.lists[0].NonEmpty}
		values := []*Union{}
		for _, l := range comb.lists {
			values = append(values, l.Value)
			merged.NonEmpty = merged.NonEmpty && l.NonEmpty
		}
		merged.Value = CombineAll(values...)
		// an empty array literal merges into the list as its empty case
		rest := keyed[:0:0]
		for _, k := range keyed {
			if k.IsEmpty() {
				merged.NonEmpty = false
				continue
			}
			rest = append(rest, k)
		}
		keyed = rest
		out = append(out, merged)
	}
	switch len(keyed) {
	case 0:
	case 1:
		out = append(out, keyed[0])
	default:
		out = append(out, mergeKeyed(keyed))
	}
	return out
}

func mergeKeyed(arrays []TKeyedArray) TKeyedArray {
	type entry struct {
		key      ArrayKey
		types    []*Union
		present  int
		optional bool
	}
	entries := map[string]*entry{}
	var order []string
	var keys, values []*Union
	nonEmpty := true
	for _, arr := range arrays {
		nonEmpty = nonEmpty && arr.NonEmpty
		if arr.Key != nil {
			keys = append(keys, arr.Key)
			values = append(values, arr.Value)
		}
		for _, item := range arr.Items {
			id := item.Key.String()
			e, ok := entries[id]
			if !ok {
				e = &entry{key: item.Key}
				entries[id] = e
				order = append(order, id)
			}
			e.types = append(e.types, item.Type)
			e.present++
			e.optional = e.optional || item.Optional
		}
	}

	merged := TKeyedArray{}
	sort.Strings(order)
	for _, id := range order {
		e := entries[id]
		optional := e.optional || e.present < len(arrays)
		if e.present < len(arrays) {
			for _, arr := range arrays {
				if _, ok := arr.Item(e.key); !ok && arr.Value != nil {
					e.types = append(e.types, arr.Value)
				}
			}
		}
		merged.Items = append(merged.Items, KeyedItem{Key: e.key, Type: CombineAll(e.types...), Optional: optional})
	}
	if len(keys) > 0 {
		merged.Key = CombineAll(keys...)
		merged.Value = CombineAll(values...)
	}
	merged.NonEmpty = nonEmpty || hasRequiredItem(merged.Items)
	return merged
}

func (comb *combination) objects() []Atomic {
	if comb.object {
		return []Atomic{TObject{}}
	}
	var out []Atomic
	names := make([]string, 0, len(comb.named))
	for name := range comb.named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, mergeNamed(comb.named[name]))
	}
	for _, e := range comb.enums {
		if _, ok := comb.named[strings.ToLower(e.Name)]; ok {
			continue
		}
		if e.Case != "" {
			if _, ok := comb.enums[TEnum{Name: e.Name}.ID()]; ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func mergeNamed(objs []TNamedObject) TNamedObject {
	merged := objs[0]
	for _, o := range objs[1:] {
		merged.IsThis = merged.IsThis && o.IsThis
		if len(merged.TypeParams) == len(o.TypeParams) {
			params := make([]*Union, len(o.TypeParams))
			for i := range o.TypeParams {
				params[i] = Combine(merged.TypeParams[i], o.TypeParams[i])
			}
			merged.TypeParams = params
		} else {
			merged.TypeParams = nil
		}
		if !sameAtoms(merged.Intersections, o.Intersections) {
			merged.Intersections = nil
		}
	}
	return merged
}

func sameAtoms(a, b []Atomic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID() != b[i].ID() {
			return false
		}
	}
	return true
}

func minBound(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	if *a < *b {
		return a
	}
	return b
}

func maxBound(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	if *a > *b {
		return a
	}
	return b
}
