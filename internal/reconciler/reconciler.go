// Package reconciler applies assertions to union types: it narrows a type to
// the values that satisfy an assertion and reports when the assertion was
// redundant or impossible.
package reconciler

import (
	"math"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/types"
)

type Status int

const (
	// Narrowed means the assertion removed some but not all values.
	Narrowed Status = iota
	// Redundant means every value already satisfied the assertion.
	Redundant
	// Impossible means no value satisfies the assertion.
	Impossible
)

func (s Status) String() string {
	switch s {
	case Redundant:
		return "redundant"
	case Impossible:
		return "impossible"
	}
	return "narrowed"
}

type Result struct {
	Type   *types.Union
	Status Status
}

// Reconcile narrows existing by a, or by its negation when negated is set.
// The result keeps the flags of existing, except that assertions which prove
// a value is set clear the undefinedness flags.
func Reconcile(existing *types.Union, a assertion.Assertion, negated bool, h types.Hierarchy) Result {
	if negated {
		a = a.Negate()
	}
	if h == nil {
		h = types.NoHierarchy{}
	}
	if existing.IsNever() {
		return Result{Type: existing, Status: Redundant}
	}
	narrowed := reconcile(existing, a, h)
	return Result{Type: narrowed, Status: status(existing, narrowed)}
}

func status(before, after *types.Union) Status {
	switch {
	case after.IsNever():
		return Impossible
	case after.EqualTypes(before) && after.PossiblyUndefined() == before.PossiblyUndefined():
		return Redundant
	}
	return Narrowed
}

func reconcile(existing *types.Union, a assertion.Assertion, h types.Hierarchy) *types.Union {
	switch a.Kind {
	case assertion.Any:
		return existing
	case assertion.IsType:
		if a.Type == nil {
			return existing
		}
		return eachMember(existing, func(m types.Atomic) []types.Atomic { return isType(m, a.Type, h) }, h)
	case assertion.IsNotType:
		if a.Type == nil {
			return existing
		}
		return types.Subtract(existing, types.NewUnion(a.Type), h)
	case assertion.IsEqual:
		return looseEqual(existing, a.Type, h)
	case assertion.IsNotEqual:
		return looseNotEqual(existing, a.Type, h)
	case assertion.Truthy:
		return eachMember(existing, truthy, h).AsDefined()
	case assertion.Falsy:
		return eachMember(existing, falsy, h)
	case assertion.Isset:
		return isset(existing, h)
	case assertion.NotIsset:
		return notIsset(existing)
	case assertion.NonEmptyCountable:
		return eachMember(existing, func(m types.Atomic) []types.Atomic { return countable(m, h, true) }, h).AsDefined()
	case assertion.EmptyCountable:
		return eachMember(existing, emptyCountable, h)
	case assertion.Countable:
		return eachMember(existing, func(m types.Atomic) []types.Atomic { return countable(m, h, false) }, h)
	case assertion.NotCountable:
		return eachMember(existing, func(m types.Atomic) []types.Atomic { return notCountable(m, h) }, h)
	case assertion.HasArrayKey:
		return eachMember(existing, func(m types.Atomic) []types.Atomic { return hasKey(m, a.ArrayKey) }, h).AsDefined()
	case assertion.DoesNotHaveArrayKey:
		return eachMember(existing, func(m types.Atomic) []types.Atomic { return lacksKey(m, a.ArrayKey) }, h)
	case assertion.IsGreaterThan:
		if a.Value == math.MaxInt64 {
			return types.WithoutInts(existing)
		}
		return types.IntersectIntRange(existing, types.Bound(a.Value+1), nil)
	case assertion.IsLessThan:
		if a.Value == math.MinInt64 {
			return types.WithoutInts(existing)
		}
		return types.IntersectIntRange(existing, nil, types.Bound(a.Value-1))
	}
	return existing
}

// eachMember replaces every member by the atomics fn returns for it. Members
// that are template parameters are reconciled through their constraint.
func eachMember(u *types.Union, fn func(types.Atomic) []types.Atomic, h types.Hierarchy) *types.Union {
	return u.Map(func(m types.Atomic) []types.Atomic {
		g, ok := m.(types.TGenericParam)
		if !ok {
			return fn(m)
		}
		constraint := g.Constraint
		if constraint == nil {
			constraint = types.Mixed()
		}
		narrowed := constraint.Map(fn)
		if narrowed.IsNever() {
			return nil
		}
		if !narrowed.EqualTypes(constraint) {
			g.Constraint = narrowed
		}
		return []types.Atomic{g}
	})
}

// ReconcileGroup applies an OR group: each assertion narrows existing on its
// own and the results are joined.
func ReconcileGroup(existing *types.Union, group []assertion.Assertion, h types.Hierarchy) Result {
	if len(group) == 1 {
		return Reconcile(existing, group[0], false, h)
	}
	if existing.IsNever() {
		return Result{Type: existing, Status: Redundant}
	}
	if h == nil {
		h = types.NoHierarchy{}
	}
	parts := make([]*types.Union, 0, len(group))
	for _, a := range group {
		if a.Kind == assertion.Any {
			return Result{Type: existing, Status: Redundant}
		}
		parts = append(parts, reconcile(existing, a, h))
	}
	joined := types.Simplify(types.Join(parts...), h)
	return Result{Type: joined, Status: status(existing, joined)}
}
