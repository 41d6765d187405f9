// Package formula turns branch conditions into clauses in conjunctive normal
// form, simplifies them and solves them for the assertions every path must
// satisfy.
package formula

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/ast"
)

// Clause is one disjunction of a formula. A list of clauses is their
// conjunction.
//
// A wedge is an opaque proposition: it is true on some paths but nothing is
// known about when. A clause that is not Reconcilable carries a hidden wedge
// disjunct next to its possibilities, so none of them can be relied upon.
//
// Clauses are immutable after construction and shared between contexts.
type Clause struct {
	Possibilities map[string][]assertion.Assertion
	Wedge         bool
	Reconcilable  bool
	// Generated marks clauses derived from other clauses rather than read
	// from a condition.
	Generated bool
	// Implied clauses follow from the other clauses built for the same
	// condition. Negation skips them.
	Implied             bool
	CreatingConditionID ast.Span
	CreatingObjectID    ast.Span

	key  string
	vars []string
}

// NewClause builds a reconcilable clause. Assertions are deduplicated per
// variable, keeping their first position.
func NewClause(possibilities map[string][]assertion.Assertion, conditionID, objectID ast.Span) *Clause {
	c := &Clause{
		Possibilities:       dedupe(possibilities),
		Reconcilable:        true,
		CreatingConditionID: conditionID,
		CreatingObjectID:    objectID,
	}
	c.finish()
	return c
}

// NewWedge builds an opaque clause.
func NewWedge(conditionID, objectID ast.Span) *Clause {
	c := &Clause{
		Possibilities:       map[string][]assertion.Assertion{},
		Wedge:               true,
		CreatingConditionID: conditionID,
		CreatingObjectID:    objectID,
	}
	c.finish()
	return c
}

// Unit builds the single possibility clause "varID satisfies a".
func Unit(varID string, a assertion.Assertion, conditionID, objectID ast.Span) *Clause {
	return NewClause(map[string][]assertion.Assertion{varID: {a}}, conditionID, objectID)
}

func dedupe(possibilities map[string][]assertion.Assertion) map[string][]assertion.Assertion {
	out := make(map[string][]assertion.Assertion, len(possibilities))
	for v, list := range possibilities {
		seen := make(map[string]struct{}, len(list))
		kept := make([]assertion.Assertion, 0, len(list))
		for _, a := range list {
			k := a.Key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, a)
		}
		if len(kept) > 0 {
			out[v] = kept
		}
	}
	return out
}

func (c *Clause) finish() {
	c.vars = make([]string, 0, len(c.Possibilities))
	for v := range c.Possibilities {
		c.vars = append(c.vars, v)
	}
	sort.Strings(c.vars)

	var b strings.Builder
	if c.Implied {
		b.WriteString("^")
	}
	if c.Wedge {
		b.WriteString("wedge@" + strconv.Itoa(c.CreatingConditionID.Start) + ":" + strconv.Itoa(c.CreatingObjectID.Start))
	}
	if !c.Reconcilable {
		b.WriteString("~")
	}
	for _, v := range c.vars {
		keys := make([]string, 0, len(c.Possibilities[v]))
		for _, a := range c.Possibilities[v] {
			keys = append(keys, a.Key())
		}
		sort.Strings(keys)
		b.WriteString(v + "[" + strings.Join(keys, ",") + "]")
	}
	c.key = b.String()
}

// Key identifies clauses with the same meaning.
func (c *Clause) Key() string { return c.key }

// Vars lists the variables of the clause in sorted order.
func (c *Clause) Vars() []string { return c.vars }

// IsUnit reports whether c is a single reconcilable assertion.
func (c *Clause) IsUnit() bool {
	return !c.Wedge && c.Reconcilable && len(c.vars) == 1 && len(c.Possibilities[c.vars[0]]) == 1
}

// Size is the number of possibilities.
func (c *Clause) Size() int {
	n := 0
	for _, list := range c.Possibilities {
		n += len(list)
	}
	return n
}

// Has reports whether varID may satisfy a in c.
func (c *Clause) Has(varID string, a assertion.Assertion) bool {
	k := a.Key()
	for _, p := range c.Possibilities[varID] {
		if p.Key() == k {
			return true
		}
	}
	return false
}

// IsSubsetOf reports whether every possibility of c is also one of o.
func (c *Clause) IsSubsetOf(o *Clause) bool {
	for v, list := range c.Possibilities {
		for _, a := range list {
			if !o.Has(v, a) {
				return false
			}
		}
	}
	return true
}

// IsTautology reports whether the clause contains an assertion together with
// its negation, which makes it true on every path.
func (c *Clause) IsTautology() bool {
	for v, list := range c.Possibilities {
		for _, a := range list {
			if a.Kind != assertion.Any && c.Has(v, a.Negate()) {
				return true
			}
		}
	}
	return false
}

// Without returns c minus the single possibility (varID, a). The result keeps
// a hidden wedge if c had one.
func (c *Clause) Without(varID string, a assertion.Assertion) *Clause {
	possibilities := make(map[string][]assertion.Assertion, len(c.Possibilities))
	k := a.Key()
	for v, list := range c.Possibilities {
		if v != varID {
			possibilities[v] = list
			continue
		}
		kept := make([]assertion.Assertion, 0, len(list))
		for _, p := range list {
			if p.Key() != k {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			possibilities[v] = kept
		}
	}
	return c.derive(possibilities)
}

// AddPossibilities returns c with additional alternatives for varID.
func (c *Clause) AddPossibilities(varID string, as []assertion.Assertion) *Clause {
	possibilities := make(map[string][]assertion.Assertion, len(c.Possibilities)+1)
	for v, list := range c.Possibilities {
		possibilities[v] = list
	}
	possibilities[varID] = append(append([]assertion.Assertion(nil), possibilities[varID]...), as...)
	return c.derive(dedupe(possibilities))
}

func (c *Clause) derive(possibilities map[string][]assertion.Assertion) *Clause {
	d := &Clause{
		Possibilities:       possibilities,
		Wedge:               c.Wedge && len(possibilities) == 0,
		Reconcilable:        c.Reconcilable,
		Implied:             c.Implied,
		Generated:           true,
		CreatingConditionID: c.CreatingConditionID,
		CreatingObjectID:    c.CreatingObjectID,
	}
	if len(possibilities) == 0 && !c.Reconcilable {
		d.Wedge = true
	}
	d.finish()
	return d
}

func (c *Clause) String() string {
	if c.Wedge {
		return "<wedge>"
	}
	parts := make([]string, 0, len(c.vars))
	for _, v := range c.vars {
		for _, a := range c.Possibilities[v] {
			parts = append(parts, v+" is "+a.Key())
		}
	}
	s := strings.Join(parts, " || ")
	if !c.Reconcilable {
		s += " || <wedge>"
	}
	if len(parts) > 1 || !c.Reconcilable {
		s = "(" + s + ")"
	}
	return s
}

// Keys returns the keys of clauses in order, used to compare clause lists.
func Keys(clauses []*Clause) []string {
	keys := make([]string, len(clauses))
	for i, c := range clauses {
		keys[i] = c.key
	}
	return keys
}
