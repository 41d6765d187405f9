package types

// ComparisonResult collects the coercion facts discovered by a containment
// check. A nil *ComparisonResult is allowed everywhere.
type ComparisonResult struct {
	// TypeCoerced is set when the input may only fit after a runtime coercion.
	TypeCoerced bool
	// TypeCoercedFromNestedMixed is set when the coercion stems from mixed
	// inside an array or generic parameter.
	TypeCoercedFromNestedMixed bool
}

func (r *ComparisonResult) coerced(nested bool) {
	if r == nil {
		return
	}
	r.TypeCoerced = true
	if nested {
		r.TypeCoercedFromNestedMixed = true
	}
}

// IsContainedBy reports whether every value of input is a valid container.
func IsContainedBy(input, container *Union, h Hierarchy, res *ComparisonResult) bool {
	return isContainedBy(input, container, h, res, false)
}

func isContainedBy(input, container *Union, h Hierarchy, res *ComparisonResult, nested bool) bool {
	if input == nil || container == nil {
		return false
	}
	for _, in := range expandForComparison(input, container, h) {
		if !atomicInUnion(in, container, h, res, nested) {
			return false
		}
	}
	return true
}

// expandForComparison splits members the container may only cover piecewise,
// e.g. bool against true|false.
func expandForComparison(input, container *Union, h Hierarchy) []Atomic {
	var out []Atomic
	for _, a := range input.atoms {
		switch t := a.(type) {
		case TBool:
			if !container.Has(func(c Atomic) bool { _, ok := c.(TBool); return ok }) {
				out = append(out, TTrue{}, TFalse{})
				continue
			}
		case TArrayKey:
			if !container.Has(func(c Atomic) bool { _, ok := c.(TArrayKey); return ok }) {
				out = append(out, TInt{}, TString{})
				continue
			}
		case TNamedObject:
			if h != nil && len(t.TypeParams) == 0 && len(t.Intersections) == 0 {
				if cases, ok := h.EnumCases(t.Name); ok && len(cases) > 0 && !namedCovers(container, t.Name) {
					for _, c := range cases {
						out = append(out, TEnum{Name: t.Name, Case: c})
					}
					continue
				}
			}
		}
		out = append(out, a)
	}
	return out
}

func namedCovers(u *Union, name string) bool {
	return u.Has(func(c Atomic) bool {
		switch t := c.(type) {
		case TNamedObject:
			return sameClass(t.Name, name)
		case TEnum:
			return t.Case == "" && sameClass(t.Name, name)
		}
		return false
	})
}

func atomicInUnion(in Atomic, container *Union, h Hierarchy, res *ComparisonResult, nested bool) bool {
	for _, c := range container.atoms {
		if atomicContained(in, c, h, res, nested) {
			return true
		}
	}
	if _, ok := in.(TMixed); ok {
		res.coerced(nested)
	}
	return false
}

// AtomicIsContainedBy is the single atomic form of IsContainedBy.
func AtomicIsContainedBy(in, container Atomic, h Hierarchy, res *ComparisonResult) bool {
	return atomicContained(in, container, h, res, false)
}

func atomicContained(in, c Atomic, h Hierarchy, res *ComparisonResult, nested bool) bool {
	if _, ok := in.(TNever); ok {
		return true
	}
	if _, ok := in.(TPlaceholder); ok {
		return true
	}
	switch ct := c.(type) {
	case TPlaceholder:
		return true
	case TMixed:
		if m, ok := in.(TMixed); ok {
			res.coerced(nested)
			return !ct.NonNull || m.NonNull
		}
		if ct.NonNull {
			return !isNull(in)
		}
		return true
	case TGenericParam:
		if it, ok := in.(TGenericParam); ok && it.Name == ct.Name && it.DefiningEntity == ct.DefiningEntity {
			return true
		}
		constraint := ct.Constraint
		if constraint == nil {
			constraint = Mixed()
		}
		return atomicInUnion(in, constraint, h, res, nested)
	}

	switch it := in.(type) {
	case TMixed:
		return false
	case TGenericParam:
		if it.Constraint == nil {
			res.coerced(nested)
			return false
		}
		return isContainedBy(it.Constraint, NewUnion(c), h, res, nested)
	case TConditional:
		return isContainedBy(it.Then, NewUnion(c), h, res, nested) &&
			isContainedBy(it.Otherwise, NewUnion(c), h, res, nested)
	case TNull:
		_, ok := c.(TNull)
		return ok
	case TVoid:
		switch c.(type) {
		case TVoid, TNull:
			return true
		}
		return false
	case TBool:
		_, ok := c.(TBool)
		return ok
	case TTrue:
		switch c.(type) {
		case TTrue, TBool:
			return true
		}
		return false
	case TFalse:
		switch c.(type) {
		case TFalse, TBool:
			return true
		}
		return false
	case TInt, TLiteralInt, TIntRange:
		return intContained(in, c)
	case TFloat:
		switch c.(type) {
		case TFloat, TNumeric:
			return true
		}
		return false
	case TLiteralFloat:
		switch ct := c.(type) {
		case TFloat, TNumeric:
			return true
		case TLiteralFloat:
			return ct.Value == it.Value
		}
		return false
	case TString:
		return stringContained(it, c)
	case TLiteralString:
		switch ct := c.(type) {
		case TLiteralString:
			return ct.Value == it.Value
		case TString:
			return stringContained(literalStringFlags(it.Value), c)
		case TArrayKey:
			return true
		case TNumeric:
			return isNumericString(it.Value)
		case TCallable:
			res.coerced(nested)
		}
		return false
	case TClassString:
		switch ct := c.(type) {
		case TClassString:
			return ct.As == "" || (it.As != "" && isA(h, it.As, ct.As))
		case TString:
			return !ct.Lowercase && !ct.Numeric
		case TArrayKey:
			return true
		}
		return false
	case TNumeric:
		_, ok := c.(TNumeric)
		return ok
	case TArrayKey:
		_, ok := c.(TArrayKey)
		return ok
	case TList:
		return listContained(it, c, h, res)
	case TKeyedArray:
		return keyedContained(it, c, h, res)
	case TObject:
		_, ok := c.(TObject)
		return ok
	case TNamedObject:
		return namedContained(it, c, h, res, nested)
	case TEnum:
		switch ct := c.(type) {
		case TEnum:
			return sameClass(it.Name, ct.Name) && (ct.Case == "" || ct.Case == it.Case)
		case TNamedObject:
			if len(ct.Intersections) > 0 {
				return false
			}
			return isA(h, it.Name, ct.Name) || sameClass(ct.Name, "UnitEnum")
		case TObject:
			return true
		}
		return false
	case TCallable:
		switch ct := c.(type) {
		case TCallable:
			if ct.IsClosure && !it.IsClosure {
				return false
			}
			if ct.Return != nil && it.Return != nil {
				return isContainedBy(it.Return, ct.Return, h, res, true)
			}
			return true
		case TNamedObject:
			return it.IsClosure && sameClass(ct.Name, "Closure")
		case TObject:
			return it.IsClosure
		}
		return false
	case TCallableAlias:
		switch ct := c.(type) {
		case TCallableAlias:
			return ct.Name == it.Name
		case TCallable:
			return true
		}
		return false
	case TResource:
		_, ok := c.(TResource)
		return ok
	}
	return in.ID() == c.ID()
}

func intContained(in, c Atomic) bool {
	lo, hi := intBounds(in)
	switch ct := c.(type) {
	case TInt, TNumeric, TArrayKey:
		return true
	case TLiteralInt:
		l, ok := in.(TLiteralInt)
		return ok && l.Value == ct.Value
	case TIntRange:
		if ct.Min != nil && (lo == nil || *lo < *ct.Min) {
			return false
		}
		if ct.Max != nil && (hi == nil || *hi > *ct.Max) {
			return false
		}
		return true
	}
	return false
}

// intBounds returns the bounds of an int atomic, nil meaning unbounded.
func intBounds(a Atomic) (*int64, *int64) {
	switch t := a.(type) {
	case TLiteralInt:
		return Bound(t.Value), Bound(t.Value)
	case TIntRange:
		return t.Min, t.Max
	}
	return nil, nil
}

func stringContained(in TString, c Atomic) bool {
	switch ct := c.(type) {
	case TString:
		if ct.Truthy && !in.Truthy {
			return false
		}
		if ct.NonEmpty && !in.NonEmpty && !in.Truthy {
			return false
		}
		if ct.Lowercase && !in.Lowercase {
			return false
		}
		if ct.Numeric && !in.Numeric {
			return false
		}
		return true
	case TArrayKey:
		return true
	case TNumeric:
		return in.Numeric
	}
	return false
}

func listContained(in TList, c Atomic, h Hierarchy, res *ComparisonResult) bool {
	switch ct := c.(type) {
	case TList:
		if ct.NonEmpty && !in.NonEmpty {
			return false
		}
		return isContainedBy(in.Value, ct.Value, h, res, true)
	case TKeyedArray:
		if ct.Key == nil || hasRequiredItem(ct.Items) {
			return false
		}
		if ct.NonEmpty && !in.NonEmpty {
			return false
		}
		return isContainedBy(Int(), ct.Key, h, res, true) && isContainedBy(in.Value, ct.Value, h, res, true)
	}
	return false
}

func keyedContained(in TKeyedArray, c Atomic, h Hierarchy, res *ComparisonResult) bool {
	switch ct := c.(type) {
	case TList:
		return in.IsEmpty() && !ct.NonEmpty
	case TKeyedArray:
		if ct.NonEmpty && !in.NonEmpty {
			return false
		}
		for _, citem := range ct.Items {
			item, ok := in.Item(citem.Key)
			if !ok {
				if !citem.Optional || (in.Key != nil && !isContainedBy(in.Value, citem.Type, h, res, true)) {
					return false
				}
				continue
			}
			if item.Optional && !citem.Optional {
				return false
			}
			if !isContainedBy(item.Type, citem.Type, h, res, true) {
				return false
			}
		}
		for _, item := range in.Items {
			if _, ok := ct.Item(item.Key); ok {
				continue
			}
			if ct.Key == nil {
				return false
			}
			if !isContainedBy(keyUnion(item.Key), ct.Key, h, res, true) || !isContainedBy(item.Type, ct.Value, h, res, true) {
				return false
			}
		}
		if in.Key != nil {
			if ct.Key == nil {
				return false
			}
			return isContainedBy(in.Key, ct.Key, h, res, true) && isContainedBy(in.Value, ct.Value, h, res, true)
		}
		return true
	}
	return false
}

func keyUnion(k ArrayKey) *Union {
	if k.IsInt {
		return LiteralInt(k.Int)
	}
	return LiteralString(k.Str)
}

func namedContained(in TNamedObject, c Atomic, h Hierarchy, res *ComparisonResult, nested bool) bool {
	switch ct := c.(type) {
	case TObject:
		return true
	case TCallable:
		return sameClass(in.Name, "Closure")
	case TEnum:
		return ct.Case == "" && sameClass(in.Name, ct.Name)
	case TNamedObject:
		inParts := in.Parts()
		for _, cpart := range ct.Parts() {
			cn, ok := cpart.(TNamedObject)
			if !ok {
				return false
			}
			matched := false
			for _, ipart := range inParts {
				ip, ok := ipart.(TNamedObject)
				if ok && isA(h, ip.Name, cn.Name) && typeParamsContained(ip, cn, h, res) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
		if ct.IsThis && !in.IsThis {
			return false
		}
		return true
	}
	return false
}

func typeParamsContained(in, c TNamedObject, h Hierarchy, res *ComparisonResult) bool {
	if len(c.TypeParams) == 0 {
		return true
	}
	if len(in.TypeParams) != len(c.TypeParams) {
		res.coerced(true)
		return true
	}
	for i := range c.TypeParams {
		if !isContainedBy(in.TypeParams[i], c.TypeParams[i], h, res, true) {
			return false
		}
	}
	return true
}

// CanBeIdentical reports whether some value belongs to both a and b.
func CanBeIdentical(a, b *Union, h Hierarchy) bool {
	for _, x := range a.atoms {
		for _, y := range b.atoms {
			if atomicsOverlap(x, y, h) {
				return true
			}
		}
	}
	return false
}

func atomicsOverlap(x, y Atomic, h Hierarchy) bool {
	if atomicContained(x, y, h, nil, false) || atomicContained(y, x, h, nil, false) {
		return true
	}
	return overlapsOneWay(x, y, h) || overlapsOneWay(y, x, h)
}

func overlapsOneWay(x, y Atomic, h Hierarchy) bool {
	switch xt := x.(type) {
	case TMixed:
		return !xt.NonNull || !isNull(y)
	case TGenericParam, TPlaceholder:
		return true
	case TInt, TLiteralInt, TIntRange:
		if !isIntAtomic(y) {
			return false
		}
		xlo, xhi := intBounds(x)
		ylo, yhi := intBounds(y)
		return (xhi == nil || ylo == nil || *ylo <= *xhi) && (yhi == nil || xlo == nil || *xlo <= *yhi)
	case TString:
		switch y.(type) {
		case TString, TNumeric, TClassString:
			return true
		}
	case TNumeric:
		switch y.(type) {
		case TArrayKey:
			return true
		}
	case TNamedObject:
		if h == nil {
			return false
		}
		switch yt := y.(type) {
		case TNamedObject:
			return h.IsInterface(xt.Name) || h.IsInterface(yt.Name)
		case TEnum:
			return h.IsInterface(xt.Name)
		}
	case TList:
		if yt, ok := y.(TKeyedArray); ok {
			return yt.Key != nil || yt.IsEmpty()
		}
	case TKeyedArray:
		_, ok := y.(TKeyedArray)
		return ok
	}
	return false
}

func isIntAtomic(a Atomic) bool {
	switch a.(type) {
	case TInt, TLiteralInt, TIntRange:
		return true
	}
	return false
}
