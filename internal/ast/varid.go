package ast

import (
	"strconv"
	"strings"
)

// VarID returns the identifier under which the analyzer tracks the value of e:
// "$x", "$x->prop", "$x['key']", "$x[0]" or "Foo::$prop". Expressions without a
// stable identity return false.
func VarID(e Expr) (string, bool) {
	switch n := e.(type) {
	case *Variable:
		return "$" + n.Name, true
	case *PropertyFetch:
		if n.Nullsafe {
			return "", false
		}
		parent, ok := VarID(n.Object)
		if !ok {
			return "", false
		}
		return parent + "->" + n.Name, true
	case *StaticPropertyFetch:
		return n.Class + "::$" + n.Name, true
	case *ArrayDimFetch:
		if n.Dim == nil {
			return "", false
		}
		parent, ok := VarID(n.Array)
		if !ok {
			return "", false
		}
		switch d := n.Dim.(type) {
		case *IntLit:
			return parent + "[" + strconv.FormatInt(d.Value, 10) + "]", true
		case *StringLit:
			return parent + "['" + d.Value + "']", true
		}
	}
	return "", false
}

// RootVar returns the variable a tracked identifier hangs off, e.g. "$x" for
// "$x->a['b']".
func RootVar(id string) string {
	if i := strings.IndexAny(id, "-["); i > 0 {
		return id[:i]
	}
	return id
}

// IsDescendant reports whether child is a property or offset path below parent.
func IsDescendant(child, parent string) bool {
	if len(child) <= len(parent) || !strings.HasPrefix(child, parent) {
		return false
	}
	rest := child[len(parent):]
	return strings.HasPrefix(rest, "->") || strings.HasPrefix(rest, "[")
}
