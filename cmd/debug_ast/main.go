package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopware/phpflow/internal/analyzer"
	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/indexer"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/php"
	treesitterhelper "github.com/shopware/phpflow/internal/tree_sitter_helper"
)

// debug_ast prints the lowered tree of one PHP file with the type inferred
// for every expression. Only the declarations of the file itself are known.
// With -tree the raw tree-sitter tree is printed instead.
func main() {
	rawTree := flag.Bool("tree", false, "print the tree-sitter syntax tree")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run cmd/debug_ast/main.go [-tree] <php_file_path>")
		os.Exit(1)
	}

	filePath := flag.Arg(0)
	src, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	if *rawTree {
		ts := indexer.CreateTreesitterParser()
		defer ts.Close()
		tree := ts.Parse(src, nil)
		defer tree.Close()
		treesitterhelper.PrintAllNodes(os.Stdout, tree.RootNode(), src, 0)
		return
	}

	parser, err := php.NewParser()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create parser: %v\n", err)
		os.Exit(1)
	}
	defer parser.Close()

	file, decls, err := parser.Parse(filePath, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse file: %v\n", err)
		os.Exit(1)
	}

	cb := codebase.New()
	decls.AddTo(cb)

	issues := &issue.Buffer{}
	result := analyzer.New(cb.Freeze(), config.Default(), issues).AnalyzeFile(file)

	fmt.Printf("Analyzing AST for file: %s\n\n", filePath)
	php.DumpAST(os.Stdout, file, func(n ast.Node) string {
		e, ok := n.(ast.Expr)
		if !ok {
			return ""
		}
		if t := result.Table.TypeOf(e); t != nil {
			return " :: " + t.String()
		}
		return ""
	})

	fmt.Println()
	for _, i := range issues.Issues(issue.Info) {
		fmt.Println(i.String())
	}
	for _, e := range result.Errors {
		fmt.Printf("internal error: %v\n", e)
	}
}
