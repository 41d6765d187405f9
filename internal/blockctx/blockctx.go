// Package blockctx holds the flow state of one lexical scope at one program
// point: the types of local variables, the clauses known to hold on the current
// path, the reference alias tables and the path flags.
//
// A BlockContext is forked with Clone at every branch point. Locals live in a
// persistent map and clauses in a shared slice, so a clone costs a handful of
// small set copies regardless of how many variables are in scope.
package blockctx

import (
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/hashicorp/go-set/v3"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/formula"
	"github.com/shopware/phpflow/internal/types"
)

// ReferenceSource says where a by-reference binding came from.
type ReferenceSource int

const (
	SourceGlobal ReferenceSource = iota
	SourceStatic
	SourceParameter
	SourceArgument
)

func (s ReferenceSource) String() string {
	switch s {
	case SourceGlobal:
		return "global"
	case SourceStatic:
		return "static"
	case SourceParameter:
		return "parameter"
	}
	return "argument"
}

// ReferenceConstraint records why a by-reference binding has to stay
// compatible with a type. Constraint is nil when any value may be assigned.
type ReferenceConstraint struct {
	Span       ast.Span
	Source     ReferenceSource
	Constraint *types.Union
}

// FinallyScope collects the locals of every path that enters a finally block.
// It is shared by all contexts created inside one try statement.
type FinallyScope struct {
	Locals map[string]*types.Union

	paths int
	seen  map[string]int
}

// Add combines the locals of bc into the scope.
func (f *FinallyScope) Add(bc *BlockContext) {
	if f.seen == nil {
		f.seen = map[string]int{}
	}
	f.paths++
	for id, t := range bc.Locals() {
		f.seen[id]++
		if prev, ok := f.Locals[id]; ok {
			f.Locals[id] = types.Combine(prev, t)
			continue
		}
		f.Locals[id] = t
	}
}

// Entry returns the locals the finally block starts with. A variable missing
// from one of the added paths is possibly undefined.
func (f *FinallyScope) Entry() map[string]*types.Union {
	out := make(map[string]*types.Union, len(f.Locals))
	for id, t := range f.Locals {
		if f.seen[id] < f.paths {
			t = t.AsPossiblyUndefined(true)
		}
		out[id] = t
	}
	return out
}

// TryScope collects every type a variable was assigned while inside a try
// block, so catch blocks see all intermediate values.
type TryScope struct {
	Assigned map[string]*types.Union
}

type BlockContext struct {
	locals  *immutable.SortedMap[string, *types.Union]
	clauses []*formula.Clause

	// AssignedVarIDs are assigned on every path since the set was last reset.
	AssignedVarIDs *set.Set[string]
	// PossiblyAssignedVarIDs are assigned on at least one path.
	PossiblyAssignedVarIDs *set.Set[string]
	VarsPossiblyInScope    *set.Set[string]

	// ReferencesInScope maps a reference variable to the local it aliases.
	ReferencesInScope map[string]string
	// ReferencesToExternalScope are locals bound by reference to something
	// outside the function: globals, statics and by-reference parameters.
	ReferencesToExternalScope *set.Set[string]
	// ReferencedCounts is the number of references aliasing each local.
	ReferencedCounts       map[string]int
	ByReferenceConstraints map[string]ReferenceConstraint

	InsideConditional bool
	InsideIsset       bool
	InsideLoop        bool
	InsideTry         bool
	InsideCatch       bool
	InsideFinally     bool
	InsideNegation    bool
	InsideAssignment  bool
	// HasReturned marks a dead path: return, throw, exit or an impossible
	// condition ended it.
	HasReturned bool

	// PossiblyThrownExceptions maps an exception class to the spans that may
	// throw it.
	PossiblyThrownExceptions map[string]*set.Set[ast.Span]

	FinallyScope *FinallyScope
	TryScope     *TryScope
}

// New returns an empty context for a fresh scope.
func New() *BlockContext {
	return &BlockContext{
		locals:                    immutable.NewSortedMap[string, *types.Union](nil),
		AssignedVarIDs:            set.New[string](0),
		PossiblyAssignedVarIDs:    set.New[string](0),
		VarsPossiblyInScope:       set.New[string](0),
		ReferencesInScope:         map[string]string{},
		ReferencesToExternalScope: set.New[string](0),
		ReferencedCounts:          map[string]int{},
		ByReferenceConstraints:    map[string]ReferenceConstraint{},
		PossiblyThrownExceptions:  map[string]*set.Set[ast.Span]{},
	}
}

// Clone forks bc. Types and clauses are shared with the original, the
// bookkeeping tables are copied.
func (bc *BlockContext) Clone() *BlockContext {
	c := *bc
	c.clauses = slices.Clip(bc.clauses)
	c.AssignedVarIDs = bc.AssignedVarIDs.Copy()
	c.PossiblyAssignedVarIDs = bc.PossiblyAssignedVarIDs.Copy()
	c.VarsPossiblyInScope = bc.VarsPossiblyInScope.Copy()
	c.ReferencesInScope = copyMap(bc.ReferencesInScope)
	c.ReferencesToExternalScope = bc.ReferencesToExternalScope.Copy()
	c.ReferencedCounts = copyMap(bc.ReferencedCounts)
	c.ByReferenceConstraints = copyMap(bc.ByReferenceConstraints)
	c.PossiblyThrownExceptions = make(map[string]*set.Set[ast.Span], len(bc.PossiblyThrownExceptions))
	for class, spans := range bc.PossiblyThrownExceptions {
		c.PossiblyThrownExceptions[class] = spans.Copy()
	}
	return &c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Local returns the type of a variable id.
func (bc *BlockContext) Local(id string) (*types.Union, bool) {
	return bc.locals.Get(id)
}

func (bc *BlockContext) HasLocal(id string) bool {
	_, ok := bc.locals.Get(id)
	return ok
}

// SetLocal binds id to t without following references.
func (bc *BlockContext) SetLocal(id string, t *types.Union) {
	bc.locals = bc.locals.Set(id, t)
	bc.VarsPossiblyInScope.Insert(id)
}

// SetLocalThroughReferences binds id and every variable sharing its
// reference group to t.
func (bc *BlockContext) SetLocalThroughReferences(id string, t *types.Union) {
	target := bc.resolveReference(id)
	bc.SetLocal(target, t)
	for ref, to := range bc.ReferencesInScope {
		if to == target {
			bc.SetLocal(ref, t)
		}
	}
}

// Locals iterates over the locals in variable id order.
func (bc *BlockContext) Locals() iter.Seq2[string, *types.Union] {
	return func(yield func(string, *types.Union) bool) {
		itr := bc.locals.Iterator()
		for !itr.Done() {
			id, t, _ := itr.Next()
			if !yield(id, t) {
				return
			}
		}
	}
}

// LocalIDs returns the variable ids in scope in sorted order.
func (bc *BlockContext) LocalIDs() []string {
	ids := make([]string, 0, bc.locals.Len())
	for id := range bc.Locals() {
		ids = append(ids, id)
	}
	return ids
}

// SameLocals reports whether bc and o bind the same ids to equal types.
func (bc *BlockContext) SameLocals(o *BlockContext) bool {
	if bc.locals.Len() != o.locals.Len() {
		return false
	}
	for id, t := range bc.Locals() {
		ot, ok := o.Local(id)
		if !ok || !ot.Equal(t) {
			return false
		}
	}
	return true
}

// Clauses returns the clauses known to hold on the current path. The slice is
// shared and must not be modified.
func (bc *BlockContext) Clauses() []*formula.Clause {
	return bc.clauses
}

func (bc *BlockContext) SetClauses(clauses []*formula.Clause) {
	bc.clauses = slices.Clip(clauses)
}

// AddClauses appends clauses for the current path.
func (bc *BlockContext) AddClauses(clauses ...*formula.Clause) {
	if len(clauses) == 0 {
		return
	}
	bc.clauses = append(slices.Clip(bc.clauses), clauses...)
}

// ResetLocals replaces every local binding with locals.
func (bc *BlockContext) ResetLocals(locals map[string]*types.Union) {
	b := immutable.NewSortedMapBuilder[string, *types.Union](nil)
	for id, t := range locals {
		b.Set(id, t)
		bc.VarsPossiblyInScope.Insert(id)
	}
	bc.locals = b.Map()
}

// RemoveVarFromConflictingClauses forgets everything the path knew about id:
// clauses mentioning id or a value read from it are dropped, and so are the
// locals derived from it such as $x->p or $x['k'].
func (bc *BlockContext) RemoveVarFromConflictingClauses(id string) {
	kept := make([]*formula.Clause, 0, len(bc.clauses))
	for _, c := range bc.clauses {
		if !mentions(c, id) {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(bc.clauses) {
		bc.clauses = kept
	}
	bc.RemoveDescendants(id)
}

func mentions(c *formula.Clause, id string) bool {
	for _, v := range c.Vars() {
		if v == id || ast.IsDescendant(v, id) {
			return true
		}
	}
	return false
}

// RemoveDescendants drops the locals read through id.
func (bc *BlockContext) RemoveDescendants(id string) {
	for _, v := range bc.LocalIDs() {
		if ast.IsDescendant(v, id) {
			bc.RemoveLocal(v)
		}
	}
}

// AddThrown records that span may throw class.
func (bc *BlockContext) AddThrown(class string, span ast.Span) {
	class = strings.TrimPrefix(class, "\\")
	spans, ok := bc.PossiblyThrownExceptions[class]
	if !ok {
		spans = set.New[ast.Span](1)
		bc.PossiblyThrownExceptions[class] = spans
	}
	spans.Insert(span)
}

// CatchThrown removes the thrown classes that one of catches handles and
// returns them in sorted order.
func (bc *BlockContext) CatchThrown(catches []string, h types.Hierarchy) []string {
	var caught []string
	for class := range bc.PossiblyThrownExceptions {
		for _, c := range catches {
			if isA(h, class, c) {
				caught = append(caught, class)
				break
			}
		}
	}
	sort.Strings(caught)
	for _, class := range caught {
		delete(bc.PossiblyThrownExceptions, class)
	}
	return caught
}

func isA(h types.Hierarchy, class, parent string) bool {
	parent = strings.TrimPrefix(parent, "\\")
	if strings.EqualFold(class, parent) || strings.EqualFold(parent, "Throwable") {
		return true
	}
	return h != nil && h.IsSubclassOf(class, parent)
}

// ThrownClasses lists the possibly thrown exception classes in sorted order.
func (bc *BlockContext) ThrownClasses() []string {
	classes := make([]string, 0, len(bc.PossiblyThrownExceptions))
	for class := range bc.PossiblyThrownExceptions {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// MergeThrown adds the thrown exceptions of o to bc.
func (bc *BlockContext) MergeThrown(o *BlockContext) {
	for class, spans := range o.PossiblyThrownExceptions {
		if mine, ok := bc.PossiblyThrownExceptions[class]; ok {
			mine.InsertSet(spans)
			continue
		}
		bc.PossiblyThrownExceptions[class] = spans.Copy()
	}
}

// FoldInto closes bc: the side tables every exit of a scope contributes to
// are merged into parent. Dead paths still contribute their exceptions.
func (bc *BlockContext) FoldInto(parent *BlockContext) {
	parent.MergeThrown(bc)
	parent.VarsPossiblyInScope.InsertSet(bc.VarsPossiblyInScope)
}

// RecordTryAssignment remembers t as one of the values id held inside the
// enclosing try block.
func (bc *BlockContext) RecordTryAssignment(id string, t *types.Union) {
	if bc.TryScope == nil {
		return
	}
	if prev, ok := bc.TryScope.Assigned[id]; ok {
		t = types.Combine(prev, t)
	}
	bc.TryScope.Assigned[id] = t
}
