package types

// Simplify rewrites u without changing the values it admits: members another
// member already covers are dropped, touching int ranges merge, and the parts
// of bool and string that narrowing split apart are put back together.
// Literals that nothing covers are kept, unlike Combine.
func Simplify(u *Union, h Hierarchy) *Union {
	if u == nil || len(u.atoms) < 2 {
		return u
	}
	atoms := mergeIntRanges(u.atoms)
	atoms = rejoinScalars(atoms)
	atoms = dropCovered(atoms, h)
	return newUnion(atoms, u.flags)
}

type intSpan struct {
	lo, hi *int64
}

// separated reports whether no integer lies between hi and lo, exclusive.
func separated(hi, lo *int64) bool {
	return hi != nil && lo != nil && *hi < *lo && *hi+1 < *lo
}

func (s intSpan) touches(o intSpan) bool {
	return !separated(s.hi, o.lo) && !separated(o.hi, s.lo)
}

func (s intSpan) hull(o intSpan) intSpan {
	return intSpan{lo: minBound(s.lo, o.lo), hi: maxBound(s.hi, o.hi)}
}

// mergeIntRanges merges int ranges that overlap or are adjacent, and folds
// literals into a range they touch. Literals touching only other literals
// stay as they are.
func mergeIntRanges(atoms []Atomic) []Atomic {
	var ranges []intSpan
	var lits []int64
	var out []Atomic
	for _, a := range atoms {
		switch t := a.(type) {
		case TIntRange:
			ranges = append(ranges, intSpan{lo: t.Min, hi: t.Max})
		case TLiteralInt:
			lits = append(lits, t.Value)
		default:
			out = append(out, a)
		}
	}
	if len(ranges) == 0 {
		return atoms
	}

	for changed := true; changed; {
		changed = false
		for i := 0; i < len(ranges); i++ {
			for j := i + 1; j < len(ranges); j++ {
				if ranges[i].touches(ranges[j]) {
					ranges[i] = ranges[i].hull(ranges[j])
					ranges = append(ranges[:j], ranges[j+1:]...)
					changed = true
					j--
				}
			}
		}
		kept := lits[:0]
		for _, v := range lits {
			point := intSpan{lo: Bound(v), hi: Bound(v)}
			absorbed := false
			for i := range ranges {
				if ranges[i].touches(point) {
					ranges[i] = ranges[i].hull(point)
					absorbed = true
					changed = true
					break
				}
			}
			if !absorbed {
				kept = append(kept, v)
			}
		}
		lits = kept
	}

	for _, r := range ranges {
		out = append(out, IntRange(r.lo, r.hi))
	}
	for _, v := range lits {
		out = append(out, TLiteralInt{Value: v})
	}
	return out
}

// rejoinScalars puts true|false back to bool and a flagged string back
// together with the falsy literals it excludes.
func rejoinScalars(atoms []Atomic) []Atomic {
	var trueVal, falseVal, empty, zero bool
	for _, a := range atoms {
		switch t := a.(type) {
		case TTrue:
			trueVal = true
		case TFalse:
			falseVal = true
		case TLiteralString:
			empty = empty || t.Value == ""
			zero = zero || t.Value == "0"
		}
	}

	out := make([]Atomic, 0, len(atoms))
	for _, a := range atoms {
		switch t := a.(type) {
		case TTrue:
			if falseVal {
				out = append(out, TBool{})
				continue
			}
		case TFalse:
			if trueVal {
				continue
			}
		case TString:
			if t.Lowercase || t.Numeric {
				break
			}
			if t.Truthy && zero {
				t = TString{NonEmpty: true}
			}
			if t.NonEmpty && !t.Truthy && empty {
				t = TString{}
			}
			a = t
		}
		out = append(out, a)
	}
	return out
}

// dropCovered removes every member contained by another member. Of two
// members containing each other the first is kept. Template parameters and
// other deferred types are never compared.
func dropCovered(atoms []Atomic, h Hierarchy) []Atomic {
	out := make([]Atomic, 0, len(atoms))
	for i, a := range atoms {
		covered := false
		for j, c := range atoms {
			if i == j || deferred(a) || deferred(c) || !AtomicIsContainedBy(a, c, h, nil) {
				continue
			}
			if j < i || !AtomicIsContainedBy(c, a, h, nil) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, a)
		}
	}
	return out
}

func deferred(a Atomic) bool {
	switch a.(type) {
	case TGenericParam, TConditional, TPlaceholder, TDerived, TReference, TMixed:
		return true
	}
	return false
}
