package php

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	treesitterhelper "github.com/shopware/phpflow/internal/tree_sitter_helper"
)

// typeHint renders a native type declaration as a type string with class
// names resolved.
func (l *lowerer) typeHint(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "named_type":
		if len(treesitterhelper.NamedChildren(node)) == 0 {
			return l.names.ResolveClass(l.text(node))
		}
		return l.names.ResolveClass(l.text(treesitterhelper.NamedChildren(node)[0]))
	case "name", "qualified_name":
		return l.names.ResolveClass(l.text(node))
	case "primitive_type", "bottom_type":
		return strings.ToLower(l.text(node))
	case "optional_type":
		children := treesitterhelper.NamedChildren(node)
		if len(children) == 0 {
			return ""
		}
		return "?" + l.typeHint(children[0])
	case "union_type", "disjunctive_normal_form_type":
		return l.joinTypes(node, "|")
	case "intersection_type":
		return l.joinTypes(node, "&")
	case "type_list":
		return l.joinTypes(node, "|")
	case "parenthesized_type":
		children := treesitterhelper.NamedChildren(node)
		if len(children) == 0 {
			return ""
		}
		return "(" + l.typeHint(children[0]) + ")"
	}
	return l.text(node)
}

func (l *lowerer) joinTypes(node *tree_sitter.Node, sep string) string {
	var parts []string
	for _, child := range treesitterhelper.NamedChildren(node) {
		if t := l.typeHint(child); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, sep)
}

// declaredType finds the type node under field, or the first direct child
// spelling a type, and renders it.
func (l *lowerer) declaredType(node *tree_sitter.Node, field string) string {
	if t := node.ChildByFieldName(field); t != nil {
		return l.typeHint(t)
	}
	return ""
}
