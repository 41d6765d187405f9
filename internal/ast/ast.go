// Package ast holds the lowered PHP syntax tree the analyzer walks.
// Names inside the tree are fully qualified; namespaces and use statements are
// resolved while lowering.
package ast

import "fmt"

// Span locates a node in its source file. Start and End are byte offsets,
// Line and Column are zero based and describe the start position.
type Span struct {
	Start  int
	End    int
	Line   int
	Column int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line+1, s.Column+1)
}

func (s Span) IsZero() bool {
	return s == Span{}
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return o.Start >= s.Start && o.End <= s.End
}

type Node interface {
	Span() Span
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

// Base carries the span of a node and is embedded in every node type.
type Base struct {
	Loc Span
}

func (b Base) Span() Span { return b.Loc }

type File struct {
	Path   string
	Source []byte
	Stmts  []Stmt
}

// Text returns the source text covered by span.
func (f *File) Text(span Span) string {
	if f == nil || span.Start < 0 || span.End > len(f.Source) || span.Start > span.End {
		return ""
	}
	return string(f.Source[span.Start:span.End])
}

// Unsupported stands in for any construct the lowering does not model.
// It is valid both as an expression and as a statement.
type Unsupported struct {
	Base
	Kind string
}

func (*Unsupported) exprNode() {}
func (*Unsupported) stmtNode() {}
