package php

import (
	"fmt"
	"log/slog"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/shopware/phpflow/internal/ast"
	treesitterhelper "github.com/shopware/phpflow/internal/tree_sitter_helper"
)

// Parser turns PHP source into the lowered syntax tree and the declarations
// of the file. A Parser owns a tree-sitter parser and must not be shared
// between goroutines.
type Parser struct {
	ts *tree_sitter.Parser
}

func NewParser() (*Parser, error) {
	ts := tree_sitter.NewParser()
	if err := ts.SetLanguage(tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())); err != nil {
		ts.Close()
		return nil, fmt.Errorf("failed to set PHP language: %w", err)
	}
	return &Parser{ts: ts}, nil
}

func (p *Parser) Close() {
	p.ts.Close()
}

// Parse parses src and lowers it.
func (p *Parser) Parse(path string, src []byte) (*ast.File, *Declarations, error) {
	tree := p.ts.Parse(src, nil)
	if tree == nil {
		return nil, nil, fmt.Errorf("failed to parse %s", path)
	}
	defer tree.Close()

	file, decls := Lower(path, tree.RootNode(), src)
	return file, decls, nil
}

// Lower converts the tree-sitter tree of a PHP file. Names are resolved
// against the namespaces and use statements of the file while lowering.
func Lower(path string, root *tree_sitter.Node, src []byte) (*ast.File, *Declarations) {
	l := &lowerer{
		src:    src,
		path:   path,
		names:  NewAliasResolver(""),
		decls:  newDeclarations(),
		logger: slog.With("section", "php.lower"),
	}
	l.declareFunctions(root)

	file := &ast.File{Path: path, Source: src}
	if root != nil {
		file.Stmts = l.statements(treesitterhelper.NamedChildren(root))
	}
	return file, l.decls
}

// lowerer holds the state of lowering one file.
type lowerer struct {
	src    []byte
	path   string
	names  *AliasResolver
	decls  *Declarations
	logger *slog.Logger

	// class is the class whose body is being lowered.
	class     string
	parent    string
	templates map[string]bool
}

func (l *lowerer) span(n *tree_sitter.Node) ast.Span {
	if n == nil {
		return ast.Span{}
	}
	p := n.StartPosition()
	return ast.Span{Start: int(n.StartByte()), End: int(n.EndByte()), Line: int(p.Row), Column: int(p.Column)}
}

func (l *lowerer) base(n *tree_sitter.Node) ast.Base {
	return ast.Base{Loc: l.span(n)}
}

func (l *lowerer) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(l.src)
}

func (l *lowerer) unsupported(n *tree_sitter.Node) *ast.Unsupported {
	kind := n.Kind()
	if n.IsError() || n.IsMissing() {
		kind = "syntax error"
	}
	l.logger.Debug("unsupported node", "kind", n.Kind(), "file", l.path, "line", n.StartPosition().Row+1)
	return &ast.Unsupported{Base: l.base(n), Kind: kind}
}

// declareFunctions registers the functions of every namespace before any
// call is lowered, so calls ahead of a declaration resolve to it.
func (l *lowerer) declareFunctions(root *tree_sitter.Node) {
	if root == nil {
		return
	}
	fns := treesitterhelper.NodeKind("function_definition")
	for _, child := range treesitterhelper.NamedChildren(root) {
		if child.Kind() != "namespace_definition" {
			for _, fn := range treesitterhelper.FindAll(child, fns, l.src) {
				l.names.DeclareFunction(l.text(fn.ChildByFieldName("name")))
			}
			continue
		}
		l.names.EnterNamespace(l.text(child.ChildByFieldName("name")))
		if body := child.ChildByFieldName("body"); body != nil {
			for _, fn := range treesitterhelper.FindAll(body, fns, l.src) {
				l.names.DeclareFunction(l.text(fn.ChildByFieldName("name")))
			}
			l.names.EnterNamespace("")
		}
	}
	l.names.EnterNamespace("")
}
