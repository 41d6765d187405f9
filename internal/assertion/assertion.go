// Package assertion defines the single type constraints a condition can place
// on a tracked variable.
package assertion

import (
	"math"
	"strconv"

	"github.com/shopware/phpflow/internal/types"
)

type Kind int

const (
	Any Kind = iota
	IsType
	IsNotType
	// IsEqual and IsNotEqual are loose (==) comparisons against Type.
	IsEqual
	IsNotEqual
	Truthy
	Falsy
	Isset
	NotIsset
	NonEmptyCountable
	EmptyCountable
	Countable
	NotCountable
	HasArrayKey
	DoesNotHaveArrayKey
	// IsGreaterThan holds for integers strictly greater than Value.
	IsGreaterThan
	// IsLessThan holds for integers strictly less than Value.
	IsLessThan
)

// Assertion is a value type; two assertions with the same Key are the same
// constraint.
type Assertion struct {
	Kind     Kind
	Type     types.Atomic
	ArrayKey types.ArrayKey
	Value    int64
}

func Is(t types.Atomic) Assertion { return Assertion{Kind: IsType, Type: t} }
func IsNot(t types.Atomic) Assertion { return Assertion{Kind: IsNotType, Type: t} }
func Equals(t types.Atomic) Assertion { return Assertion{Kind: IsEqual, Type: t} }
func NotEquals(t types.Atomic) Assertion { return Assertion{Kind: IsNotEqual, Type: t} }
func Simple(k Kind) Assertion { return Assertion{Kind: k} }
func ArrayKeyExists(k types.ArrayKey) Assertion { return Assertion{Kind: HasArrayKey, ArrayKey: k} }
func GreaterThan(v int64) Assertion { return Assertion{Kind: IsGreaterThan, Value: v} }
func LessThan(v int64) Assertion { return Assertion{Kind: IsLessThan, Value: v} }

var negations = map[Kind]Kind{
	IsType:              IsNotType,
	IsNotType:           IsType,
	IsEqual:             IsNotEqual,
	IsNotEqual:          IsEqual,
	Truthy:              Falsy,
	Falsy:               Truthy,
	Isset:               NotIsset,
	NotIsset:            Isset,
	NonEmptyCountable:   EmptyCountable,
	EmptyCountable:      NonEmptyCountable,
	Countable:           NotCountable,
	NotCountable:        Countable,
	HasArrayKey:         DoesNotHaveArrayKey,
	DoesNotHaveArrayKey: HasArrayKey,
}

// Negate returns the assertion that holds exactly when a does not. Any has no
// negation and is returned unchanged.
func (a Assertion) Negate() Assertion {
	switch a.Kind {
	case Any:
		return a
	case IsGreaterThan:
		if a.Value == math.MaxInt64 {
			return Simple(Any)
		}
		return LessThan(a.Value + 1)
	case IsLessThan:
		if a.Value == math.MinInt64 {
			return Simple(Any)
		}
		return GreaterThan(a.Value - 1)
	}
	a.Kind = negations[a.Kind]
	return a
}

// IsNegation reports whether a is the negative form of its pair.
func (a Assertion) IsNegation() bool {
	switch a.Kind {
	case IsNotType, IsNotEqual, Falsy, NotIsset, EmptyCountable, NotCountable, DoesNotHaveArrayKey:
		return true
	}
	return false
}

// HasEquality reports whether a compares against a concrete value rather than
// a type, which makes a failed reconciliation ambiguous instead of impossible.
func (a Assertion) HasEquality() bool {
	return a.Kind == IsEqual || a.Kind == IsNotEqual
}

// Key identifies the assertion inside a clause.
func (a Assertion) Key() string {
	switch a.Kind {
	case Any:
		return "*"
	case IsType:
		return a.Type.ID()
	case IsNotType:
		return "!" + a.Type.ID()
	case IsEqual:
		return "=" + a.Type.ID()
	case IsNotEqual:
		return "!=" + a.Type.ID()
	case Truthy:
		return "!falsy"
	case Falsy:
		return "falsy"
	case Isset:
		return "isset"
	case NotIsset:
		return "!isset"
	case NonEmptyCountable:
		return "non-empty-countable"
	case EmptyCountable:
		return "!non-empty-countable"
	case Countable:
		return "countable"
	case NotCountable:
		return "!countable"
	case HasArrayKey:
		return "=has-key(" + a.ArrayKey.String() + ")"
	case DoesNotHaveArrayKey:
		return "!has-key(" + a.ArrayKey.String() + ")"
	case IsGreaterThan:
		return ">" + strconv.FormatInt(a.Value, 10)
	case IsLessThan:
		return "<" + strconv.FormatInt(a.Value, 10)
	}
	return "?"
}

func (a Assertion) String() string {
	return a.Key()
}
