package blockctx

import (
	"fmt"
	"sort"

	"github.com/shopware/phpflow/internal/types"
)

func (bc *BlockContext) resolveReference(id string) string {
	if to, ok := bc.ReferencesInScope[id]; ok {
		return to
	}
	return id
}

// AddReference makes ref an alias of target, as in $ref = &$target. Aliasing
// a reference aliases the local it points to, and an undefined target comes
// into existence as null.
func (bc *BlockContext) AddReference(ref, target string) {
	target = bc.resolveReference(target)
	if ref == target {
		return
	}
	bc.dropReference(ref)
	if bc.ReferencedCounts[ref] > 0 {
		bc.promoteRepresentative(ref)
	}
	bc.ReferencesInScope[ref] = target
	bc.ReferencedCounts[target]++

	t, ok := bc.Local(target)
	if !ok {
		t = types.Null()
		bc.SetLocal(target, t)
	}
	bc.SetLocal(ref, t)
}

// AddExternalReference binds id by reference to something outside the
// function, constrained by c.
func (bc *BlockContext) AddExternalReference(id string, c ReferenceConstraint) {
	bc.dropReference(id)
	bc.ReferencesToExternalScope.Insert(id)
	bc.ByReferenceConstraints[id] = c
}

// dropReference detaches id from the local it aliases.
func (bc *BlockContext) dropReference(id string) {
	to, ok := bc.ReferencesInScope[id]
	if !ok {
		return
	}
	delete(bc.ReferencesInScope, id)
	bc.ReferencedCounts[to]--
	if bc.ReferencedCounts[to] <= 0 {
		delete(bc.ReferencedCounts, to)
	}
}

// BreakReference ends the aliasing of id before it is reassigned or unset, so
// in $a = &$b; $a = &$c; the first binding no longer applies.
func (bc *BlockContext) BreakReference(id string) {
	bc.dropReference(id)
	if bc.ReferencedCounts[id] > 0 {
		bc.promoteRepresentative(id)
	}
	bc.ReferencesToExternalScope.Remove(id)
	delete(bc.ByReferenceConstraints, id)
}

// RemoveLocal unsets id. When other references alias id, the first of them in
// sorted order becomes the local the remaining ones alias, so every live
// reference still resolves to exactly one live local.
func (bc *BlockContext) RemoveLocal(id string) {
	bc.dropReference(id)
	if bc.ReferencedCounts[id] > 0 {
		bc.promoteRepresentative(id)
	}
	bc.locals = bc.locals.Delete(id)
	bc.ReferencesToExternalScope.Remove(id)
	delete(bc.ByReferenceConstraints, id)
	bc.AssignedVarIDs.Remove(id)
}

// promoteRepresentative moves the references aliasing id to a surviving
// alias.
func (bc *BlockContext) promoteRepresentative(id string) {
	var aliases []string
	for ref, to := range bc.ReferencesInScope {
		if to == id {
			aliases = append(aliases, ref)
		}
	}
	delete(bc.ReferencedCounts, id)
	if len(aliases) == 0 {
		return
	}
	sort.Strings(aliases)
	rep := aliases[0]
	delete(bc.ReferencesInScope, rep)
	for _, ref := range aliases[1:] {
		bc.ReferencesInScope[ref] = rep
	}
	if n := len(aliases) - 1; n > 0 {
		bc.ReferencedCounts[rep] = n
	}
}

// ReferenceGroup returns id and every variable sharing its value, sorted.
func (bc *BlockContext) ReferenceGroup(id string) []string {
	target := bc.resolveReference(id)
	group := []string{target}
	for ref, to := range bc.ReferencesInScope {
		if to == target {
			group = append(group, ref)
		}
	}
	sort.Strings(group)
	return group
}

// CheckReferenceInvariants verifies that every reference and every aliased
// local is in scope, that references never chain and that the counts match.
func (bc *BlockContext) CheckReferenceInvariants() error {
	counts := map[string]int{}
	for ref, to := range bc.ReferencesInScope {
		if !bc.HasLocal(ref) {
			return fmt.Errorf("reference %s is not in scope", ref)
		}
		if !bc.HasLocal(to) {
			return fmt.Errorf("reference %s aliases %s which is not in scope", ref, to)
		}
		if _, chained := bc.ReferencesInScope[to]; chained {
			return fmt.Errorf("reference %s aliases reference %s", ref, to)
		}
		counts[to]++
	}
	for id, n := range bc.ReferencedCounts {
		if counts[id] != n {
			return fmt.Errorf("%s is referenced %d times, counted %d", id, counts[id], n)
		}
	}
	for id, n := range counts {
		if bc.ReferencedCounts[id] != n {
			return fmt.Errorf("%s is referenced %d times, counted %d", id, n, bc.ReferencedCounts[id])
		}
	}
	return nil
}
