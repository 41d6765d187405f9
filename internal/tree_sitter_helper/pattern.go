package treesitterhelper

import (
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// PHP patterns used while lowering the syntax tree.
var (
	// PHPDocCommentPattern matches a /** ... */ comment.
	PHPDocCommentPattern = And(
		NodeKind("comment"),
		FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
			return strings.HasPrefix(node.Utf8Text(content), "/**")
		}),
	)

	// PHPFunctionCallPattern matches a call of one of the named functions,
	// ignoring case and a leading namespace separator.
	PHPFunctionCallPattern = func(names ...string) Pattern {
		return And(
			NodeKind("function_call_expression"),
			FuncPattern(func(node *tree_sitter.Node, content []byte) bool {
				fn := node.ChildByFieldName("function")
				if fn == nil || (fn.Kind() != "name" && fn.Kind() != "qualified_name") {
					return false
				}
				name := strings.ToLower(strings.TrimPrefix(fn.Utf8Text(content), "\\"))
				return slices.Contains(names, name)
			}),
		)
	}
)

// Pattern defines a pattern that can be matched against a tree-sitter node
type Pattern interface {
	Matches(node *tree_sitter.Node, content []byte) bool
}

type funcPattern func(node *tree_sitter.Node, content []byte) bool

func (f funcPattern) Matches(node *tree_sitter.Node, content []byte) bool {
	return node != nil && f(node, content)
}

// FuncPattern turns a predicate into a pattern. The predicate never sees a
// nil node.
func FuncPattern(matchFunc func(node *tree_sitter.Node, content []byte) bool) Pattern {
	return funcPattern(matchFunc)
}

func And(patterns ...Pattern) Pattern {
	return funcPattern(func(node *tree_sitter.Node, content []byte) bool {
		for _, p := range patterns {
			if !p.Matches(node, content) {
				return false
			}
		}
		return true
	})
}

func Not(pattern Pattern) Pattern {
	return funcPattern(func(node *tree_sitter.Node, content []byte) bool {
		return !pattern.Matches(node, content)
	})
}

func NodeKind(kind string) Pattern {
	return funcPattern(func(node *tree_sitter.Node, _ []byte) bool {
		return node.Kind() == kind
	})
}

func AnyNodeKind(kinds ...string) Pattern {
	return funcPattern(func(node *tree_sitter.Node, _ []byte) bool {
		return slices.Contains(kinds, node.Kind())
	})
}

// Ancestor matches a node with an ancestor at most maxDepth levels up that
// matches pattern.
func Ancestor(pattern Pattern, maxDepth int) Pattern {
	return funcPattern(func(node *tree_sitter.Node, content []byte) bool {
		current := node.Parent()
		for depth := 0; current != nil && depth < maxDepth; depth++ {
			if pattern.Matches(current, content) {
				return true
			}
			current = current.Parent()
		}
		return false
	})
}

// FindFirst returns the first node in pre-order matching pattern.
func FindFirst(root *tree_sitter.Node, pattern Pattern, content []byte) *tree_sitter.Node {
	if root == nil {
		return nil
	}
	if pattern.Matches(root, content) {
		return root
	}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		if result := FindFirst(root.NamedChild(i), pattern, content); result != nil {
			return result
		}
	}
	return nil
}

func FindAll(root *tree_sitter.Node, pattern Pattern, content []byte) []*tree_sitter.Node {
	var results []*tree_sitter.Node
	var visit func(node *tree_sitter.Node)
	visit = func(node *tree_sitter.Node) {
		if node == nil {
			return
		}
		if pattern.Matches(node, content) {
			results = append(results, node)
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(root)
	return results
}

// GetFirstNodeOfKind returns the first direct child of node of kind.
func GetFirstNodeOfKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// NamedChildren returns the named children of node, skipping comments.
func NamedChildren(node *tree_sitter.Node) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*tree_sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil && child.Kind() != "comment" {
			out = append(out, child)
		}
	}
	return out
}

// DocComment returns the doc comment directly in front of node, or "".
func DocComment(node *tree_sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	prev := node.PrevNamedSibling()
	if prev == nil && node.Parent() != nil && node.Parent().Kind() == "expression_statement" {
		prev = node.Parent().PrevNamedSibling()
	}
	if PHPDocCommentPattern.Matches(prev, content) {
		return prev.Utf8Text(content)
	}
	return ""
}
