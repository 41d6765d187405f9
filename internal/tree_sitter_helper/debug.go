package treesitterhelper

import (
	"fmt"
	"io"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// PrintAllNodes writes the named nodes below node, one per line, with the
// text of the leaves.
func PrintAllNodes(w io.Writer, node *tree_sitter.Node, content []byte, depth int) {
	if node == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	if node.NamedChildCount() == 0 {
		fmt.Fprintf(w, "%s%s %q\n", indent, node.Kind(), node.Utf8Text(content))
		return
	}
	fmt.Fprintf(w, "%s%s\n", indent, node.Kind())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		PrintAllNodes(w, node.NamedChild(i), content, depth+1)
	}
}
