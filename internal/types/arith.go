package types

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// FoldResult reports what literal folding found besides the result type.
type FoldResult struct {
	DivisionByZero bool
	// Folded is set when the result was computed from literal operands.
	Folded bool
}

// BinaryOp returns the type of left op right, where op is the PHP operator
// symbol. Literal scalar operands are folded into a literal result.
func BinaryOp(op string, left, right *Union) (*Union, FoldResult) {
	var fr FoldResult
	if left.IsNever() || right.IsNever() {
		return Never(), fr
	}
	switch op {
	case "/", "%":
		if isLiteralZero(right) {
			fr.DivisionByZero = true
			return Never(), fr
		}
	}
	if l, ok := literalScalar(left); ok {
		if r, ok := literalScalar(right); ok {
			if res, ok := fold(op, l, r); ok {
				fr.Folded = true
				return res, fr
			}
		}
	}
	return binaryResultType(op, left, right), fr
}

// UnaryOp returns the type of op operand for "!", "-", "+" and "~".
func UnaryOp(op string, operand *Union) *Union {
	switch op {
	case "!":
		if operand.IsAlwaysTruthy() {
			return False()
		}
		if operand.IsAlwaysFalsy() {
			return True()
		}
		return Bool()
	case "-", "+":
		if lit, ok := literalScalar(operand); ok {
			sign := int64(1)
			if op == "-" {
				sign = -1
			}
			switch v := lit.(type) {
			case TLiteralInt:
				if op == "-" && v.Value == math.MinInt64 {
					return LiteralFloat(-float64(v.Value))
				}
				return LiteralInt(sign * v.Value)
			case TLiteralFloat:
				return LiteralFloat(float64(sign) * v.Value)
			}
		}
		return numericResult(operand, operand)
	case "~":
		if lit, ok := literalScalar(operand); ok {
			if v, ok := lit.(TLiteralInt); ok {
				return LiteralInt(^v.Value)
			}
		}
		return Int()
	}
	return Mixed()
}

func isLiteralZero(u *Union) bool {
	a, ok := u.Single()
	if !ok {
		return false
	}
	switch t := a.(type) {
	case TLiteralInt:
		return t.Value == 0
	case TLiteralFloat:
		return t.Value == 0
	case TFalse, TNull:
		return true
	}
	return false
}

// literalScalar returns the single literal member of u.
func literalScalar(u *Union) (Atomic, bool) {
	a, ok := u.Single()
	if !ok {
		return nil, false
	}
	switch a.(type) {
	case TLiteralInt, TLiteralFloat, TLiteralString, TTrue, TFalse, TNull:
		return a, true
	}
	return nil, false
}

func fold(op string, l, r Atomic) (*Union, bool) {
	switch op {
	case ".":
		return LiteralString(scalarToString(l) + scalarToString(r)), true
	case "===":
		return boolUnion(l.ID() == r.ID()), true
	case "!==":
		return boolUnion(l.ID() != r.ID()), true
	}

	li, lIsInt := toInt(l)
	ri, rIsInt := toInt(r)
	if lIsInt && rIsInt {
		return foldInts(op, li, ri)
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case "+":
		return LiteralFloat(lf + rf), true
	case "-":
		return LiteralFloat(lf - rf), true
	case "*":
		return LiteralFloat(lf * rf), true
	case "/":
		if rf == 0 {
			return nil, false
		}
		return LiteralFloat(lf / rf), true
	case "**":
		return LiteralFloat(math.Pow(lf, rf)), true
	case "<":
		return boolUnion(lf < rf), true
	case "<=":
		return boolUnion(lf <= rf), true
	case ">":
		return boolUnion(lf > rf), true
	case ">=":
		return boolUnion(lf >= rf), true
	case "==":
		return boolUnion(lf == rf), true
	case "!=":
		return boolUnion(lf != rf), true
	}
	return nil, false
}

func foldInts(op string, l, r int64) (*Union, bool) {
	if (op == "/" || op == "%") && r == 0 {
		return nil, false
	}
	switch op {
	case "+":
		sum := l + r
		if (sum > l) == (r > 0) {
			return LiteralInt(sum), true
		}
		return LiteralFloat(float64(l) + float64(r)), true
	case "-":
		diff := l - r
		if (diff < l) == (r > 0) {
			return LiteralInt(diff), true
		}
		return LiteralFloat(float64(l) - float64(r)), true
	case "*":
		hi, lo := bits.Mul64(uint64(abs(l)), uint64(abs(r)))
		if hi != 0 || lo > math.MaxInt64 {
			return LiteralFloat(float64(l) * float64(r)), true
		}
		return LiteralInt(l * r), true
	case "/":
		if l == math.MinInt64 && r == -1 {
			return LiteralFloat(-float64(l)), true
		}
		if l%r == 0 {
			return LiteralInt(l / r), true
		}
		return LiteralFloat(float64(l) / float64(r)), true
	case "%":
		return LiteralInt(l % r), true
	case "**":
		if r < 0 {
			return LiteralFloat(math.Pow(float64(l), float64(r))), true
		}
		p := math.Pow(float64(l), float64(r))
		if math.Abs(p) < math.MaxInt64 {
			return LiteralInt(int64(p)), true
		}
		return LiteralFloat(p), true
	case "&":
		return LiteralInt(l & r), true
	case "|":
		return LiteralInt(l | r), true
	case "^":
		return LiteralInt(l ^ r), true
	case "<<":
		if r < 0 || r >= 64 {
			return nil, false
		}
		return LiteralInt(l << uint(r)), true
	case ">>":
		if r < 0 || r >= 64 {
			return nil, false
		}
		return LiteralInt(l >> uint(r)), true
	case "<":
		return boolUnion(l < r), true
	case "<=":
		return boolUnion(l <= r), true
	case ">":
		return boolUnion(l > r), true
	case ">=":
		return boolUnion(l >= r), true
	case "==":
		return boolUnion(l == r), true
	case "!=":
		return boolUnion(l != r), true
	case "<=>":
		switch {
		case l < r:
			return LiteralInt(-1), true
		case l > r:
			return LiteralInt(1), true
		}
		return LiteralInt(0), true
	}
	return nil, false
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func boolUnion(b bool) *Union {
	if b {
		return True()
	}
	return False()
}

func toInt(a Atomic) (int64, bool) {
	switch t := a.(type) {
	case TLiteralInt:
		return t.Value, true
	case TTrue:
		return 1, true
	case TFalse, TNull:
		return 0, true
	case TLiteralString:
		v, err := strconv.ParseInt(strings.TrimSpace(t.Value), 10, 64)
		return v, err == nil
	}
	return 0, false
}

func toFloat(a Atomic) (float64, bool) {
	switch t := a.(type) {
	case TLiteralFloat:
		return t.Value, true
	case TLiteralString:
		v, err := strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
		return v, err == nil
	}
	if i, ok := toInt(a); ok {
		return float64(i), true
	}
	return 0, false
}

func scalarToString(a Atomic) string {
	switch t := a.(type) {
	case TLiteralInt:
		return strconv.FormatInt(t.Value, 10)
	case TLiteralFloat:
		return strconv.FormatFloat(t.Value, 'G', 14, 64)
	case TLiteralString:
		return t.Value
	case TTrue:
		return "1"
	}
	return ""
}

func binaryResultType(op string, left, right *Union) *Union {
	switch op {
	case "+", "-", "*", "**":
		if op == "+" && isArrayish(left) && isArrayish(right) {
			return Combine(left, right)
		}
		if r, ok := rangeArith(op, left, right); ok {
			return r
		}
		return numericResult(left, right)
	case "/":
		n := numericResult(left, right)
		if n.IsMixed() {
			return n
		}
		return NewUnion(TInt{}, TFloat{})
	case "%", "&", "|", "^", "<<", ">>":
		return Int()
	case ".":
		nonEmpty := nonEmptyString(left) || nonEmptyString(right)
		return NewUnion(TString{NonEmpty: nonEmpty})
	case "<=>":
		return NewUnion(TLiteralInt{Value: -1}, TLiteralInt{Value: 0}, TLiteralInt{Value: 1})
	case "===", "!==":
		if !CanBeIdentical(left, right, nil) {
			return boolUnion(op == "!==")
		}
		return Bool()
	case "==", "!=", "<", "<=", ">", ">=", "&&", "||", "and", "or", "xor":
		return Bool()
	}
	return Mixed()
}

// IntHull returns the smallest range holding every member of u, nil bounds
// being unbounded. It fails unless every member is an int.
func IntHull(u *Union) (lo, hi *int64, ok bool) {
	first := true
	for _, a := range u.atoms {
		if !isIntAtomic(a) {
			return nil, nil, false
		}
		alo, ahi := intBounds(a)
		if first {
			lo, hi, first = alo, ahi, false
			continue
		}
		lo, hi = minBound(lo, alo), maxBound(hi, ahi)
	}
	return lo, hi, !first
}

// rangeArith adds or subtracts int ranges. A bound that overflows is
// dropped.
func rangeArith(op string, left, right *Union) (*Union, bool) {
	llo, lhi, ok := IntHull(left)
	if !ok {
		return nil, false
	}
	rlo, rhi, ok := IntHull(right)
	if !ok {
		return nil, false
	}
	switch op {
	case "+":
		return NewUnion(IntRange(addBound(llo, rlo), addBound(lhi, rhi))), true
	case "-":
		return NewUnion(IntRange(subBound(llo, rhi), subBound(lhi, rlo))), true
	}
	return nil, false
}

func addBound(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	sum := *a + *b
	if (sum > *a) != (*b > 0) {
		return nil
	}
	return &sum
}

func subBound(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	diff := *a - *b
	if (diff < *a) != (*b > 0) {
		return nil
	}
	return &diff
}

func isArrayish(u *Union) bool {
	return u.All(func(a Atomic) bool {
		switch a.(type) {
		case TList, TKeyedArray:
			return true
		}
		return false
	})
}

func nonEmptyString(u *Union) bool {
	return u.All(func(a Atomic) bool {
		switch t := a.(type) {
		case TLiteralString:
			return t.Value != ""
		case TString:
			return t.NonEmpty || t.Truthy
		case TLiteralInt, TInt, TIntRange, TLiteralFloat, TFloat, TTrue, TClassString:
			return true
		}
		return false
	})
}

func numericResult(left, right *Union) *Union {
	if left.IsMixed() || right.IsMixed() {
		return Mixed()
	}
	isInt := func(u *Union) bool {
		return u.All(func(a Atomic) bool {
			switch a.(type) {
			case TInt, TLiteralInt, TIntRange, TTrue, TFalse, TBool, TNull:
				return true
			}
			return false
		})
	}
	isFloat := func(u *Union) bool {
		return u.All(func(a Atomic) bool {
			switch a.(type) {
			case TFloat, TLiteralFloat:
				return true
			}
			return false
		})
	}
	switch {
	case isInt(left) && isInt(right):
		return Int()
	case (isFloat(left) || isInt(left)) && (isFloat(right) || isInt(right)):
		return Float()
	}
	return NewUnion(TInt{}, TFloat{})
}
