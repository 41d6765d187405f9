package indexer

import (
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/shopware/phpflow/internal/codebase"
	"github.com/shopware/phpflow/internal/php"
)

const declarationsKey = "declarations"

// DeclarationIndexer caches the classes, functions and constants declared
// by every PHP file and assembles them into a codebase for analysis.
type DeclarationIndexer struct {
	dataIndexer *DataIndexer[php.Declarations]
	logger      *slog.Logger
}

func NewDeclarationIndexer(cacheDir string) (*DeclarationIndexer, error) {
	dataIndexer, err := NewDataIndexer[php.Declarations](filepath.Join(cacheDir, "declarations.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open declaration index: %w", err)
	}
	return &DeclarationIndexer{
		dataIndexer: dataIndexer,
		logger:      slog.With("section", "indexer.declarations"),
	}, nil
}

func (idx *DeclarationIndexer) ID() string {
	return "php.declarations"
}

func (idx *DeclarationIndexer) Index(path string, node *tree_sitter.Node, fileContent []byte) error {
	_, decls := php.Lower(path, node, fileContent)

	items := map[string]php.Declarations{}
	if !decls.Empty() {
		items[declarationsKey] = *decls
	}
	idx.logger.Debug("Indexed file", "path", path, "classes", len(decls.Classes), "functions", len(decls.Functions))
	return idx.dataIndexer.BatchSaveItems(map[string]map[string]php.Declarations{path: items})
}

func (idx *DeclarationIndexer) RemovedFiles(paths []string) error {
	return idx.dataIndexer.BatchDeleteByFilePaths(paths)
}

// Declarations returns what path declared when it was last indexed.
func (idx *DeclarationIndexer) Declarations(path string) (*php.Declarations, error) {
	values, err := idx.dataIndexer.GetValuesByPath(path)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return &values[0], nil
}

// Paths returns the files that declare anything.
func (idx *DeclarationIndexer) Paths() ([]string, error) {
	return idx.dataIndexer.GetAllPaths()
}

// Codebase builds a frozen codebase from every indexed file. overrides
// replace the stored declarations of their file, e.g. for an unsaved editor
// buffer.
func (idx *DeclarationIndexer) Codebase(overrides map[string]*php.Declarations) (*codebase.Codebase, error) {
	cb := codebase.New()

	stored, err := idx.dataIndexer.GetAllValuesByPath()
	if err != nil {
		return nil, fmt.Errorf("failed to load declarations: %w", err)
	}
	// a name declared twice resolves to the file sorting last
	for _, path := range slices.Sorted(maps.Keys(stored)) {
		if _, ok := overrides[path]; ok {
			continue
		}
		for i := range stored[path] {
			stored[path][i].AddTo(cb)
		}
	}
	for _, path := range slices.Sorted(maps.Keys(overrides)) {
		overrides[path].AddTo(cb)
	}

	return cb.Freeze(), nil
}

func (idx *DeclarationIndexer) Clear() error {
	return idx.dataIndexer.Clear()
}

func (idx *DeclarationIndexer) Close() error {
	return idx.dataIndexer.Close()
}
