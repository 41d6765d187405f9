package treesitterhelper

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

func parsePHP(t *testing.T, code []byte) *tree_sitter.Tree {
	t.Helper()
	parser := tree_sitter.NewParser()
	t.Cleanup(parser.Close)
	require.NoError(t, parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())))
	tree := parser.Parse(code, nil)
	t.Cleanup(tree.Close)
	return tree
}

func TestPHPPatterns(t *testing.T) {
	code := []byte(`<?php
	if (isset($a) && !EMPTY($b)) {
		\count($a);
		strlen($b);
	}
	`)
	tree := parsePHP(t, code)

	intrinsics := FindAll(tree.RootNode(), PHPFunctionCallPattern("isset", "empty"), code)
	assert.Len(t, intrinsics, 2)

	count := FindFirst(tree.RootNode(), PHPFunctionCallPattern("count"), code)
	require.NotNil(t, count)
	assert.Equal(t, `\count($a)`, count.Utf8Text(code))

	insideIf := And(
		PHPFunctionCallPattern("strlen"),
		Ancestor(NodeKind("if_statement"), 4),
	)
	assert.Len(t, FindAll(tree.RootNode(), insideIf, code), 1)
	assert.Empty(t, FindAll(tree.RootNode(), And(PHPFunctionCallPattern("strlen"), Not(Ancestor(NodeKind("if_statement"), 4))), code))
}

func TestDocComment(t *testing.T) {
	code := []byte(`<?php
	// plain
	function a() {}

	/** @return int */
	function b() {}
	`)
	tree := parsePHP(t, code)

	fns := FindAll(tree.RootNode(), NodeKind("function_definition"), code)
	require.Len(t, fns, 2)
	assert.Equal(t, "", DocComment(fns[0], code))
	assert.Equal(t, "/** @return int */", DocComment(fns[1], code))
}

func TestPrintAllNodes(t *testing.T) {
	code := []byte(`<?php $a = 1;`)
	tree := parsePHP(t, code)

	var buf bytes.Buffer
	PrintAllNodes(&buf, tree.RootNode(), code, 0)

	assert.Contains(t, buf.String(), "assignment_expression")
	assert.Contains(t, buf.String(), `integer "1"`)
}
