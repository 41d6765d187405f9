package types

import "strings"

// Hierarchy answers the class questions the algebra needs. Names are fully
// qualified and compared case-insensitively.
type Hierarchy interface {
	// IsSubclassOf reports whether child extends or implements parent,
	// directly or transitively.
	IsSubclassOf(child, parent string) bool
	IsInterface(name string) bool
	// EnumCases lists the cases of an enum, false if name is not an enum.
	EnumCases(name string) ([]string, bool)
}

// NoHierarchy knows no classes; only identical names are related.
type NoHierarchy struct{}

func (NoHierarchy) IsSubclassOf(string, string) bool { return false }
func (NoHierarchy) IsInterface(string) bool { return false }
func (NoHierarchy) EnumCases(string) ([]string, bool) { return nil, false }

func sameClass(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "\\"), strings.TrimPrefix(b, "\\"))
}

func isA(h Hierarchy, child, parent string) bool {
	if sameClass(child, parent) {
		return true
	}
	if h == nil {
		return false
	}
	return h.IsSubclassOf(child, parent)
}
