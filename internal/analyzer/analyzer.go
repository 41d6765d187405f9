// Package analyzer drives the flow sensitive analysis of PHP code: it walks
// statements and expressions, forks block contexts at every branch point,
// narrows them by the clauses of the branch condition and merges the exits of
// each construct back together.
package analyzer

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/pkg/errors"

	"github.com/shopware/phpflow/internal/artifacts"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/blockctx"
	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/formula"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/types"
)

// InternalError is an invariant of the analyzer that did not hold, such as
// metadata missing for a declaration the file contains. It aborts the
// function or method being analysed; the rest of the file continues.
type InternalError struct {
	Unit string
	Span ast.Span
	err  error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s at %s: %v", e.Unit, e.Span, e.err)
}

func (e *InternalError) Unwrap() error {
	return e.err
}

// Format prints the stack of the violated invariant with %+v.
func (e *InternalError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "internal error in %s at %s: %+v", e.Unit, e.Span, e.err)
		return
	}
	fmt.Fprint(s, e.Error())
}

// bailout carries an InternalError up to the enclosing unit.
type bailout struct {
	err *InternalError
}

// Result is what AnalyzeFile learned about a file.
type Result struct {
	Table *artifacts.Table
	// Context is the block context at the end of the top level code.
	Context *blockctx.BlockContext
	Errors  []error
}

// unit is the function, method or closure body being analysed.
type unit struct {
	name     string
	self     string
	parent   string
	declared *types.Union
	// throws are the classes the unit declares with @throws.
	throws  []string
	returns []*types.Union
	loops   []*loopScope
}

// Analyzer analyses one file at a time. It is not safe for concurrent use;
// parallel workers each own one and share the frozen codebase.
type Analyzer struct {
	cb       *codebase.Codebase
	cfg      config.Config
	issues   issue.Collector
	combiner types.Combiner
	limits   formula.Limits
	logger   *slog.Logger

	table  *artifacts.Table
	unit   *unit
	errors []error
	// muted suppresses issues while loop bodies are iterated towards their
	// fixed point; only the final pass reports.
	muted int
	seen  map[issueKey]struct{}
}

type issueKey struct {
	code issue.Code
	span ast.Span
	msg  string
}

// New returns an analyzer over a frozen codebase. A nil codebase stands for
// the builtins only.
func New(cb *codebase.Codebase, cfg config.Config, issues issue.Collector) *Analyzer {
	if cb == nil {
		cb = codebase.New().Freeze()
	}
	if issues == nil {
		issues = issue.Discard{}
	}
	return &Analyzer{
		cb:       cb,
		cfg:      cfg,
		issues:   issues,
		combiner: types.Combiner{LiteralLimit: cfg.LiteralLimit},
		limits: formula.Limits{
			MaxClauses:            cfg.Saturation.MaxClauses,
			MaxIterations:         cfg.Saturation.MaxIterations,
			MaxDisjunctionProduct: cfg.Formula.MaxDisjunctionProduct,
		},
		logger: slog.Default().With("section", "analyzer"),
		table:  artifacts.New(),
		unit:   &unit{name: "{main}"},
		seen:   map[issueKey]struct{}{},
	}
}

// Table is the artifact table of the file being analysed.
func (a *Analyzer) Table() *artifacts.Table {
	return a.table
}

// AnalyzeFile analyses the top level statements of f and every function,
// method and closure it declares.
func (a *Analyzer) AnalyzeFile(f *ast.File) Result {
	prev := a.issues
	a.issues = issue.ForFile{Path: f.Path, Next: prev}
	defer func() { a.issues = prev }()

	a.table = artifacts.New()
	a.unit = &unit{name: "{main}"}
	a.errors = nil
	a.seen = map[issueKey]struct{}{}

	bc := blockctx.New()
	for _, s := range f.Stmts {
		if bc.HasReturned {
			break
		}
		_ = a.Analyze(s, bc)
	}
	a.recordUnhandled(bc)
	return Result{Table: a.table, Context: bc, Errors: a.errors}
}

// Analyze analyses one statement or expression in bc. The inferred types end
// up in the artifact table and bc is advanced past the node. The returned
// error is an *InternalError when an invariant broke inside the node.
func (a *Analyzer) Analyze(node ast.Node, bc *blockctx.BlockContext) error {
	return a.guard(a.unit.name, func() {
		switch n := node.(type) {
		case ast.Stmt:
			a.stmt(n, bc)
		case ast.Expr:
			a.expr(n, bc)
		default:
			a.fail(node.Span(), errors.Errorf("cannot analyse %T", node))
		}
	})
}

// guard runs fn and turns a bailout into the error of the unit.
func (a *Analyzer) guard(name string, fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		a.logger.Debug("unit aborted", "unit", name, "error", b.err)
		a.errors = append(a.errors, b.err)
		err = b.err
	}()
	fn()
	return nil
}

// fail aborts the current unit.
func (a *Analyzer) fail(span ast.Span, err error) {
	panic(bailout{err: &InternalError{Unit: a.unit.name, Span: span, err: errors.WithStack(err)}})
}

func (a *Analyzer) report(level issue.Level, code issue.Code, span ast.Span, format string, args ...any) {
	a.reportIssue(issue.Issue{Level: level, Code: code, Span: span, Message: fmt.Sprintf(format, args...)})
}

func (a *Analyzer) reportIssue(i issue.Issue) {
	if a.muted > 0 {
		return
	}
	k := issueKey{code: i.Code, span: i.Span, msg: i.Message}
	if _, dup := a.seen[k]; dup {
		return
	}
	a.seen[k] = struct{}{}
	a.issues.Report(i)
}

// recordUnhandled exposes the exceptions that escape a unit without being
// declared in the artifact table.
func (a *Analyzer) recordUnhandled(bc *blockctx.BlockContext) {
	for _, class := range bc.ThrownClasses() {
		if a.declaresThrows(class) {
			continue
		}
		spans := bc.PossiblyThrownExceptions[class].Slice()
		slices.SortFunc(spans, func(x, y ast.Span) int { return x.Start - y.Start })
		for _, span := range spans {
			a.table.AddUnhandled(class, span)
		}
	}
}

func (a *Analyzer) declaresThrows(class string) bool {
	for _, t := range a.unit.throws {
		if a.isA(class, t) {
			return true
		}
	}
	return false
}

func (a *Analyzer) isA(child, parent string) bool {
	return types.AtomicIsContainedBy(types.TNamedObject{Name: child}, types.TNamedObject{Name: parent}, a.cb, nil)
}

func (a *Analyzer) builder() *formula.Builder {
	return &formula.Builder{Resolver: a.table, Limits: a.limits, Self: a.unit.self}
}

// edge records a data flow edge once, on the reporting pass over a loop.
func (a *Analyzer) edge(e artifacts.Edge) {
	if a.muted > 0 {
		return
	}
	a.table.AddEdge(e)
}

// record stores the type of e in the artifact table.
func (a *Analyzer) record(e ast.Node, t *types.Union) *types.Union {
	a.table.Record(e.Span(), t)
	return t
}
