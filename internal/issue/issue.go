// Package issue defines the diagnostics the analyzer reports and the
// collectors that receive them.
package issue

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopware/phpflow/internal/ast"
)

type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	}
	return "info"
}

// ParseLevel maps "info", "warning" and "error" to a Level, defaulting to
// Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "error":
		return Error
	case "warning", "warn":
		return Warning
	}
	return Info
}

type Code string

const (
	UndefinedVariable            Code = "UndefinedVariable"
	PossiblyUndefinedVariable    Code = "PossiblyUndefinedVariable"
	TypeDoesNotContainType       Code = "TypeDoesNotContainType"
	RedundantCondition           Code = "RedundantCondition"
	ParadoxicalCondition         Code = "ParadoxicalCondition"
	UnreachableMatchArm          Code = "UnreachableMatchArm"
	UnhandledMatchCondition      Code = "UnhandledMatchCondition"
	DivisionByZero               Code = "DivisionByZero"
	MixedMethodCall              Code = "MixedMethodCall"
	MixedPropertyFetch           Code = "MixedPropertyFetch"
	NullReference                Code = "NullReference"
	PossiblyNullReference        Code = "PossiblyNullReference"
	RedundantNullsafeOperator    Code = "RedundantNullsafeOperator"
	UndefinedClass               Code = "UndefinedClass"
	UndefinedMethod              Code = "UndefinedMethod"
	UndefinedProperty            Code = "UndefinedProperty"
	UndefinedFunction            Code = "UndefinedFunction"
	InvalidReturnType            Code = "InvalidReturnType"
	ReferenceConstraintViolation Code = "ReferenceConstraintViolation"
	UnsupportedConstruct         Code = "UnsupportedConstruct"
	ImpossibleAssignment         Code = "ImpossibleAssignment"
)

// Fix replaces the source text of Span with Replacement.
type Fix struct {
	Span        ast.Span
	Replacement string
}

type Issue struct {
	Level   Level
	Code    Code
	Message string
	File    string
	Span    ast.Span
	// Related points at other spans involved, e.g. the declaration a
	// reassignment conflicts with.
	Related []ast.Span
	Fix     *Fix
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%s: %s %s: %s", i.File, i.Span, i.Level, i.Code, i.Message)
}

// Collector receives issues. Reporting is one way: nothing the analyzer does
// depends on what was reported.
type Collector interface {
	Report(Issue)
}

// Buffer collects issues in memory. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	issues []Issue
}

func (b *Buffer) Report(i Issue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issues = append(b.issues, i)
}

// Issues returns the reported issues at or above min, ordered by file and
// position.
func (b *Buffer) Issues(min Level) []Issue {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Issue, 0, len(b.issues))
	for _, i := range b.issues {
		if i.Level >= min {
			out = append(out, i)
		}
	}
	Sort(out)
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.issues)
}

// Sort orders issues by file, position and code.
func Sort(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		return a.Code < b.Code
	})
}

// ForFile sets File on every issue passed through to the wrapped collector.
type ForFile struct {
	Path string
	Next Collector
}

func (f ForFile) Report(i Issue) {
	if i.File == "" {
		i.File = f.Path
	}
	f.Next.Report(i)
}

// Discard drops every issue.
type Discard struct{}

func (Discard) Report(Issue) {}
