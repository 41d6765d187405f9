package indexer

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

var scannedFileTypes = []string{
	".php",
}

// CreateTreesitterParser returns a PHP parser. Parsers are not safe for
// concurrent use, every worker owns its own.
func CreateTreesitterParser() *tree_sitter.Parser {
	parser := tree_sitter.NewParser()
	_ = parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()))
	return parser
}
