package reconciler

import (
	"sort"

	"github.com/shopware/phpflow/internal/assertion"
	"github.com/shopware/phpflow/internal/types"
)

// Scope resolves the current type of a variable id.
type Scope interface {
	Lookup(varID string) (*types.Union, bool)
}

// Outcome describes how an assertion of the analysed condition affected its
// variable, so callers can report redundant and impossible conditions.
type Outcome struct {
	VarID  string
	Group  []assertion.Assertion
	Before *types.Union
	Status Status
	// Unknown is set when the variable had no type in scope.
	Unknown bool
}

// ReconcileKeyedTypes applies every group in truths to its variable. Groups
// marked in active produce an Outcome. Variables unknown to scope start out as
// mixed. The returned map holds only the variables whose type changed.
func ReconcileKeyedTypes(
	truths map[string][][]assertion.Assertion,
	active map[string]map[int]bool,
	scope Scope,
	h types.Hierarchy,
) (map[string]*types.Union, []Outcome) {
	varIDs := make([]string, 0, len(truths))
	for v := range truths {
		varIDs = append(varIDs, v)
	}
	sort.Strings(varIDs)

	changed := map[string]*types.Union{}
	var outcomes []Outcome
	for _, v := range varIDs {
		before, known := scope.Lookup(v)
		if !known {
			before = types.Mixed()
		}
		current := before
		for i, group := range truths[v] {
			r := ReconcileGroup(current, group, h)
			if active[v][i] && !isAny(group) {
				outcomes = append(outcomes, Outcome{
					VarID:   v,
					Group:   group,
					Before:  current,
					Status:  r.Status,
					Unknown: !known,
				})
			}
			current = r.Type
		}
		if !known || !current.Equal(before) {
			changed[v] = current
		}
	}
	return changed, outcomes
}

func isAny(group []assertion.Assertion) bool {
	for _, a := range group {
		if a.Kind == assertion.Any {
			return true
		}
	}
	return false
}
