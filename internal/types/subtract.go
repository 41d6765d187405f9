package types

// Subtract removes every value of toRemove from existing, as if existing had
// been reconciled against "is not t" for each member t of toRemove. The result
// keeps the flags of existing and is never when nothing remains.
func Subtract(existing, toRemove *Union, h Hierarchy) *Union {
	if existing.EqualTypes(toRemove) {
		return Never().WithFlags(existing.flags)
	}
	if !CanBeIdentical(existing, toRemove, h) {
		return existing
	}
	result := existing
	for _, t := range toRemove.atoms {
		result = RemoveAtomic(result, t, h)
		if result.IsNever() {
			break
		}
	}
	return result
}

// RemoveAtomic removes the values of t from u.
func RemoveAtomic(u *Union, t Atomic, h Hierarchy) *Union {
	out := make([]Atomic, 0, len(u.atoms))
	changed := false
	for _, a := range u.atoms {
		rest := removeFrom(a, t, h)
		if len(rest) != 1 || rest[0].ID() != a.ID() {
			changed = true
		}
		out = append(out, rest...)
	}
	if !changed {
		return u
	}
	return newUnion(out, u.flags)
}

func removeFrom(a, t Atomic, h Hierarchy) []Atomic {
	if atomicContained(a, t, h, nil, false) {
		return nil
	}
	switch at := a.(type) {
	case TMixed:
		if isNull(t) && !at.NonNull {
			return []Atomic{TMixed{NonNull: true}}
		}
	case TBool:
		switch t.(type) {
		case TTrue:
			return []Atomic{TFalse{}}
		case TFalse:
			return []Atomic{TTrue{}}
		}
	case TArrayKey:
		switch tt := t.(type) {
		case TInt:
			return []Atomic{TString{}}
		case TString:
			if tt == (TString{}) {
				return []Atomic{TInt{}}
			}
		}
	case TInt, TIntRange:
		if isIntAtomic(t) {
			lo, hi := intBounds(a)
			tlo, thi := intBounds(t)
			return subtractIntRange(a, lo, hi, tlo, thi)
		}
	case TString:
		if lit, ok := t.(TLiteralString); ok && lit.Value == "" && !at.NonEmpty {
			at.NonEmpty = true
			return []Atomic{at}
		}
	case TNamedObject:
		if e, ok := t.(TEnum); ok && e.Case != "" && sameClass(at.Name, e.Name) && len(at.Intersections) == 0 {
			return remainingCases(at.Name, e.Case, h, a)
		}
	case TEnum:
		if e, ok := t.(TEnum); ok && at.Case == "" && e.Case != "" && sameClass(at.Name, e.Name) {
			return remainingCases(at.Name, e.Case, h, a)
		}
	case TList:
		if k, ok := t.(TKeyedArray); ok && k.IsEmpty() {
			at.NonEmpty = true
			return []Atomic{at}
		}
	case TKeyedArray:
		if k, ok := t.(TKeyedArray); ok && k.IsEmpty() && !at.IsEmpty() {
			at.NonEmpty = true
			return []Atomic{at}
		}
	}
	return []Atomic{a}
}

func remainingCases(enum, removed string, h Hierarchy, fallback Atomic) []Atomic {
	if h == nil {
		return []Atomic{fallback}
	}
	cases, ok := h.EnumCases(enum)
	if !ok {
		return []Atomic{fallback}
	}
	out := make([]Atomic, 0, len(cases))
	for _, c := range cases {
		if c != removed {
			out = append(out, TEnum{Name: enum, Case: c})
		}
	}
	return out
}

// subtractIntRange removes [tlo, thi] from [lo, hi]. Only removals touching an
// end of the range can be expressed; a hole in the middle keeps a unchanged,
// which is why a literal never removes plain int.
func subtractIntRange(a Atomic, lo, hi, tlo, thi *int64) []Atomic {
	coversLow := tlo == nil || (lo != nil && *tlo <= *lo)
	coversHigh := thi == nil || (hi != nil && *thi >= *hi)
	switch {
	case coversLow && coversHigh:
		return nil
	case coversLow:
		newLo := Bound(*thi + 1)
		if hi != nil && *newLo > *hi {
			return nil
		}
		return []Atomic{IntRange(newLo, hi)}
	case coversHigh:
		newHi := Bound(*tlo - 1)
		if lo != nil && *newHi < *lo {
			return nil
		}
		return []Atomic{IntRange(lo, newHi)}
	}
	return []Atomic{a}
}

// IntersectIntRange narrows the integer members of u to [lo, hi]. Non integer
// members are kept.
func IntersectIntRange(u *Union, lo, hi *int64) *Union {
	return u.Map(func(a Atomic) []Atomic {
		if _, ok := a.(TMixed); ok {
			return []Atomic{a}
		}
		if !isIntAtomic(a) {
			return []Atomic{a}
		}
		alo, ahi := intBounds(a)
		nlo := maxLower(alo, lo)
		nhi := minUpper(ahi, hi)
		if nlo != nil && nhi != nil && *nlo > *nhi {
			return nil
		}
		return []Atomic{IntRange(nlo, nhi)}
	})
}

// WithoutInts drops the integer members of u, for conditions no integer
// satisfies.
func WithoutInts(u *Union) *Union {
	return u.Map(func(a Atomic) []Atomic {
		if isIntAtomic(a) {
			return nil
		}
		return []Atomic{a}
	})
}

func maxLower(a, b *int64) *int64 {
	if a == nil {
		return b
	}
	if b == nil || *a > *b {
		return a
	}
	return b
}

func minUpper(a, b *int64) *int64 {
	if a == nil {
		return b
	}
	if b == nil || *a < *b {
		return a
	}
	return b
}
