package formula

import (
	"errors"
	"log/slog"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/ast"
)

// ErrComplexFormula is returned when building or negating a formula would
// exceed Limits.MaxDisjunctionProduct clauses.
var ErrComplexFormula = errors.New("formula too complex")

// Limits bound the work spent on one formula.
type Limits struct {
	// MaxClauses is the largest clause list Saturate will simplify.
	MaxClauses int
	// MaxIterations bounds the simplification rounds of Saturate.
	MaxIterations int
	// MaxDisjunctionProduct bounds the clauses produced by distributing a
	// disjunction over conjunctions.
	MaxDisjunctionProduct int
}

var DefaultLimits = Limits{
	MaxClauses:            100,
	MaxIterations:         25,
	MaxDisjunctionProduct: 256,
}

// Or returns the clauses of left || right by distribution. A side without
// clauses is unconstrained, and so is the disjunction.
func Or(left, right []*Clause, limits Limits) ([]*Clause, error) {
	if len(left) == 0 || len(right) == 0 {
		return nil, nil
	}
	if limits.MaxDisjunctionProduct > 0 && len(left)*len(right) > limits.MaxDisjunctionProduct {
		return nil, ErrComplexFormula
	}
	out := make([]*Clause, 0, len(left)*len(right))
	seen := map[string]struct{}{}
	for _, l := range left {
		for _, r := range right {
			c := orClauses(l, r)
			if c == nil {
				continue
			}
			if _, ok := seen[c.key]; ok {
				continue
			}
			seen[c.key] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// orClauses returns l || r, nil when the result is a tautology.
func orClauses(l, r *Clause) *Clause {
	implied := l.Implied || r.Implied
	switch {
	case l.Wedge && r.Wedge:
		w := NewWedge(l.CreatingConditionID, l.CreatingObjectID)
		return withImplied(w, implied)
	case l.Wedge:
		return withImplied(opaque(r), implied)
	case r.Wedge:
		return withImplied(opaque(l), implied)
	}
	possibilities := make(map[string][]assertion.Assertion, len(l.Possibilities)+len(r.Possibilities))
	for v, list := range l.Possibilities {
		possibilities[v] = append([]assertion.Assertion(nil), list...)
	}
	for v, list := range r.Possibilities {
		possibilities[v] = append(possibilities[v], list...)
	}
	c := &Clause{
		Possibilities:       dedupe(possibilities),
		Reconcilable:        l.Reconcilable && r.Reconcilable,
		Generated:           l.Generated || r.Generated,
		Implied:             implied,
		CreatingConditionID: l.CreatingConditionID,
		CreatingObjectID:    l.CreatingObjectID,
	}
	if c.IsTautology() {
		return nil
	}
	c.finish()
	return c
}

// opaque returns c with a hidden wedge disjunct.
func opaque(c *Clause) *Clause {
	if !c.Reconcilable {
		return c
	}
	d := *c
	d.Reconcilable = false
	d.finish()
	return &d
}

func withImplied(c *Clause, implied bool) *Clause {
	if c.Implied == implied {
		return c
	}
	d := *c
	d.Implied = implied
	d.finish()
	return &d
}

// Negate returns the clauses of !(c1 && ... && cn). A wedge, or the wedge
// hidden in an unreconcilable clause, negates to a fresh wedge attributed to
// conditionID.
func Negate(clauses []*Clause, conditionID ast.Span, limits Limits) ([]*Clause, error) {
	clauses = withoutImplied(clauses)
	if len(clauses) == 0 {
		return []*Clause{NewWedge(conditionID, conditionID)}, nil
	}
	var result []*Clause
	for i, c := range clauses {
		negated := negateClause(c, conditionID)
		if i == 0 {
			result = negated
			continue
		}
		var err error
		result, err = Or(result, negated, limits)
		if err != nil {
			return nil, err
		}
		if len(result) == 0 {
			return nil, nil
		}
	}
	return result, nil
}

func withoutImplied(clauses []*Clause) []*Clause {
	out := make([]*Clause, 0, len(clauses))
	for _, c := range clauses {
		if !c.Implied {
			out = append(out, c)
		}
	}
	return out
}

// negateClause turns one disjunction into the conjunction of its negated
// possibilities.
func negateClause(c *Clause, conditionID ast.Span) []*Clause {
	if c.Wedge {
		return []*Clause{NewWedge(conditionID, c.CreatingObjectID)}
	}
	out := make([]*Clause, 0, c.Size()+1)
	for _, v := range c.vars {
		for _, a := range c.Possibilities[v] {
			if a.Kind == assertion.Any {
				continue
			}
			out = append(out, Unit(v, a.Negate(), conditionID, c.CreatingObjectID))
		}
	}
	if !c.Reconcilable || len(out) == 0 {
		out = append(out, NewWedge(conditionID, c.CreatingObjectID))
	}
	return out
}

// NegateOrSynthesize is Negate for an else path. When the formula cannot be
// negated within limits a fresh wedge stands in for the negation.
func NegateOrSynthesize(clauses []*Clause, conditionID ast.Span, limits Limits) []*Clause {
	negated, err := Negate(clauses, conditionID, limits)
	if err != nil {
		slog.Debug("negation exceeded limits", "section", "formula", "clauses", len(clauses), "error", err)
		return []*Clause{NewWedge(conditionID, conditionID)}
	}
	return negated
}

// Saturate simplifies clauses to a fixed point: duplicates and clauses implied
// by a smaller one are removed, unit clauses knock their negation out of other
// clauses and complementary pairs resolve. When the input is larger than
// MaxClauses or no fixed point is reached within MaxIterations rounds, the
// input is returned unmodified.
func Saturate(clauses []*Clause, limits Limits) []*Clause {
	if len(clauses) <= 1 {
		return clauses
	}
	if limits.MaxClauses > 0 && len(clauses) > limits.MaxClauses {
		slog.Debug("saturation skipped", "section", "formula", "clauses", len(clauses))
		return clauses
	}
	current := uniqueClauses(clauses)
	for i := 0; limits.MaxIterations <= 0 || i < limits.MaxIterations; i++ {
		next, changed := saturateRound(current)
		if !changed {
			return next
		}
		if limits.MaxClauses > 0 && len(next) > limits.MaxClauses {
			break
		}
		current = next
	}
	slog.Debug("saturation cut off", "section", "formula", "clauses", len(clauses))
	return clauses
}

func uniqueClauses(clauses []*Clause) []*Clause {
	seen := make(map[string]struct{}, len(clauses))
	out := make([]*Clause, 0, len(clauses))
	for _, c := range clauses {
		if _, ok := seen[c.key]; ok {
			continue
		}
		seen[c.key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func saturateRound(clauses []*Clause) ([]*Clause, bool) {
	changed := false

	// unit resolution
	resolved := make([]*Clause, len(clauses))
	copy(resolved, clauses)
	for _, unit := range clauses {
		if !unit.IsUnit() {
			continue
		}
		v := unit.vars[0]
		neg := unit.Possibilities[v][0].Negate()
		for i, c := range resolved {
			if c == unit || c.Wedge || c.Size() < 2 && c.Reconcilable {
				continue
			}
			if c.Has(v, neg) {
				resolved[i] = c.Without(v, neg)
				changed = true
			}
		}
	}

	// subsumption
	kept := make([]*Clause, 0, len(resolved))
	for i, c := range resolved {
		subsumed := false
		for j, o := range resolved {
			if i == j || o.Wedge || !o.Reconcilable || c.Wedge || !o.IsSubsetOf(c) {
				continue
			}
			// equal clauses keep the reconcilable one, then the first
			if o.Size() < c.Size() || !c.Reconcilable || j < i {
				subsumed = true
				break
			}
		}
		if subsumed {
			changed = true
			continue
		}
		kept = append(kept, c)
	}

	// complementary pairs: (a || P) && (!a || P) is P
	out := make([]*Clause, 0, len(kept))
	dropped := make([]bool, len(kept))
	for i, c := range kept {
		if dropped[i] || c.Wedge || !c.Reconcilable || c.Size() < 2 {
			continue
		}
	search:
		for j := i + 1; j < len(kept); j++ {
			o := kept[j]
			if dropped[j] || o.Wedge || !o.Reconcilable || o.Size() != c.Size() {
				continue
			}
			for _, v := range c.vars {
				for _, a := range c.Possibilities[v] {
					neg := a.Negate()
					if !o.Has(v, neg) {
						continue
					}
					rest := c.Without(v, a)
					if rest.key == o.Without(v, neg).key {
						dropped[i], dropped[j] = true, true
						out = append(out, rest)
						changed = true
						break search
					}
				}
			}
		}
	}
	for i, c := range kept {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	return uniqueClauses(out), changed
}

// Truths maps a variable to the OR groups every satisfying assignment must
// fulfil; all groups of a variable hold at once.
type Truths map[string][][]assertion.Assertion

// Active marks, per variable, the indexes of the groups in Truths that come
// from the condition being analysed rather than from earlier context.
type Active map[string]map[int]bool

// FindSatisfyingAssignments collects the reconcilable single variable clauses
// of a saturated formula. A variable without an entry is unconstrained.
func FindSatisfyingAssignments(clauses []*Clause, conditionID ast.Span) (Truths, Active) {
	truths := Truths{}
	active := Active{}
	seen := map[string]int{}
	for _, c := range clauses {
		if c.Wedge || !c.Reconcilable || len(c.vars) != 1 {
			continue
		}
		v := c.vars[0]
		group := c.Possibilities[v]
		if len(group) == 1 && group[0].Kind == assertion.Any {
			continue
		}
		idx, ok := seen[c.key]
		if !ok {
			idx = len(truths[v])
			truths[v] = append(truths[v], group)
			seen[c.key] = idx
		}
		if !conditionID.IsZero() && c.CreatingConditionID == conditionID {
			if active[v] == nil {
				active[v] = map[int]bool{}
			}
			active[v][idx] = true
		}
	}
	return truths, active
}
