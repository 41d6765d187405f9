// Package artifacts records what the analyzer learned about a file: the type
// inferred for every analysed expression, the data flow between values and
// the exceptions left unhandled.
package artifacts

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/types"
)

type EdgeKind int

const (
	// Assignment flows a value into a variable.
	Assignment EdgeKind = iota
	// Reference binds two variables to one value.
	Reference
	// Argument flows a value into a parameter of a call.
	Argument
	// Return flows a value out of a function.
	Return
)

func (k EdgeKind) String() string {
	switch k {
	case Reference:
		return "reference"
	case Argument:
		return "argument"
	case Return:
		return "return"
	}
	return "assignment"
}

// Edge connects two data flow nodes, named like "$x", "strlen#0" for the
// first parameter of strlen or "App\Foo::bar#return".
type Edge struct {
	Kind EdgeKind
	From string
	To   string
	Span ast.Span
}

type Unhandled struct {
	Class string
	Span  ast.Span
}

// Table is the artifact table of one file. It is not safe for concurrent use.
type Table struct {
	types     map[ast.Span]*types.Union
	edges     []Edge
	unhandled []Unhandled
}

func New() *Table {
	return &Table{types: map[ast.Span]*types.Union{}}
}

// Record stores t as the type of the node at span. A node analysed more than
// once, as in a loop body, keeps its last type.
func (t *Table) Record(span ast.Span, typ *types.Union) {
	if span.IsZero() {
		return
	}
	t.types[span] = typ
}

func (t *Table) TypeAt(span ast.Span) (*types.Union, bool) {
	typ, ok := t.types[span]
	return typ, ok
}

// TypeOf returns the recorded type of e, nil when e was not analysed.
func (t *Table) TypeOf(e ast.Expr) *types.Union {
	if e == nil {
		return nil
	}
	return t.types[e.Span()]
}

func (t *Table) Len() int {
	return len(t.types)
}

// Spans returns the recorded spans ordered by position.
func (t *Table) Spans() []ast.Span {
	spans := make([]ast.Span, 0, len(t.types))
	for s := range t.types {
		spans = append(spans, s)
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	return spans
}

// Innermost returns the shortest recorded span containing offset.
func (t *Table) Innermost(offset int) (ast.Span, *types.Union, bool) {
	var (
		best  ast.Span
		found bool
	)
	for s := range t.types {
		if s.Start > offset || offset >= s.End {
			continue
		}
		if !found || s.End-s.Start < best.End-best.Start ||
			(s.End-s.Start == best.End-best.Start && s.Start > best.Start) {
			best, found = s, true
		}
	}
	if !found {
		return ast.Span{}, nil, false
	}
	return best, t.types[best], true
}

func (t *Table) AddEdge(e Edge) {
	t.edges = append(t.edges, e)
}

func (t *Table) Edges() []Edge {
	return t.edges
}

// EdgesFrom returns the edges leaving node.
func (t *Table) EdgesFrom(node string) []Edge {
	var out []Edge
	for _, e := range t.edges {
		if e.From == node {
			out = append(out, e)
		}
	}
	return out
}

func (t *Table) AddUnhandled(class string, span ast.Span) {
	t.unhandled = append(t.unhandled, Unhandled{Class: class, Span: span})
}

func (t *Table) Unhandled() []Unhandled {
	return t.unhandled
}

// JSON exports the table. Source text is taken from file when it is not nil.
func (t *Table) JSON(file *ast.File) ([]byte, error) {
	out := []byte(`{"types":[],"edges":[],"unhandled":[]}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			out, err = sjson.SetBytes(out, path, value)
		}
	}
	if file != nil {
		set("file", file.Path)
	}
	for i, span := range t.Spans() {
		p := "types." + strconv.Itoa(i) + "."
		set(p+"start", span.Start)
		set(p+"end", span.End)
		set(p+"line", span.Line+1)
		set(p+"type", t.types[span].String())
		if file != nil {
			set(p+"text", file.Text(span))
		}
	}
	for i, e := range t.edges {
		p := "edges." + strconv.Itoa(i) + "."
		set(p+"kind", e.Kind.String())
		set(p+"from", e.From)
		set(p+"to", e.To)
		set(p+"line", e.Span.Line+1)
	}
	for i, u := range t.unhandled {
		p := "unhandled." + strconv.Itoa(i) + "."
		set(p+"class", u.Class)
		set(p+"line", u.Span.Line+1)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifacts: %w", err)
	}
	return pretty.Pretty(out), nil
}
