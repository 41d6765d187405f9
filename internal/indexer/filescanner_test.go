package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/shopware/phpflow/internal/config"
)

// mockIndexer records which files it was handed
type mockIndexer struct {
	mu           sync.Mutex
	indexedFiles map[string]int
	cleared      bool
}

func newMockIndexer() *mockIndexer {
	return &mockIndexer{indexedFiles: map[string]int{}}
}

func (m *mockIndexer) ID() string {
	return "mock"
}

func (m *mockIndexer) Index(path string, node *tree_sitter.Node, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexedFiles[path]++
	return nil
}

func (m *mockIndexer) RemovedFiles(paths []string) error {
	return nil
}

func (m *mockIndexer) Close() error {
	return nil
}

func (m *mockIndexer) Clear() error {
	m.cleared = true
	return nil
}

func (m *mockIndexer) count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexedFiles[path]
}

func createTestFiles(t *testing.T, baseDir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(baseDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestScanner(t *testing.T, root string, cfg config.Config) *FileScanner {
	t.Helper()
	fs, err := NewFileScanner(root, filepath.Join(t.TempDir(), "hashes.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func TestFileScannerSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	createTestFiles(t, root, map[string]string{
		"src/Product.php":              "<?php class Product {}",
		"src/README.md":                "# not php",
		"node_modules/pkg/file.php":    "<?php",
		"nested/node_modules/file.php": "<?php",
		"vendor-bin/tool/file.php":     "<?php",
		"var/cache/Container.php":      "<?php",
		"build/tool.phar.php":          "<?php",
	})

	cfg := config.Default()
	cfg.ExcludeDirs = []string{"var/cache", "/tests/"}
	fs := newTestScanner(t, root, cfg)

	files, err := fs.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "Product.php")}, files)
}

func TestFileScannerExcludedPaths(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.ExcludeDirs = []string{"var/cache", "tests"}
	fs := newTestScanner(t, root, cfg)

	testCases := []struct {
		path string
		want bool
	}{
		{path: "src/Product.php", want: false},
		{path: "tests/ProductTest.php", want: true},
		{path: "src/tests/Fixture.php", want: false},
		{path: "var/cache/dev/Container.php", want: true},
		{path: "var/cached.php", want: false},
		{path: "lib/.git/hooks/x.php", want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, fs.excluded(filepath.Join(root, filepath.FromSlash(tc.path))))
		})
	}
}

func TestFileScannerIndexesChangedFilesOnly(t *testing.T) {
	root := t.TempDir()
	createTestFiles(t, root, map[string]string{
		"src/A.php": "<?php class A {}",
		"src/B.php": "<?php class B {}",
	})
	a := filepath.Join(root, "src", "A.php")
	b := filepath.Join(root, "src", "B.php")

	fs := newTestScanner(t, root, config.Default())
	mock := newMockIndexer()
	fs.AddIndexer(mock)

	var updates [][]string
	fs.SetOnUpdate(func(changed []string) { updates = append(updates, changed) })

	require.NoError(t, fs.IndexAll(context.Background()))
	assert.Equal(t, 1, mock.count(a))
	assert.Equal(t, 1, mock.count(b))
	require.Len(t, updates, 1)
	assert.Equal(t, []string{a, b}, updates[0])

	require.NoError(t, fs.IndexAll(context.Background()))
	assert.Equal(t, 1, mock.count(a), "unchanged file must not be reindexed")
	assert.Len(t, updates, 1)

	createTestFiles(t, root, map[string]string{"src/A.php": "<?php class A { public int $id; }"})
	require.NoError(t, fs.IndexAll(context.Background()))
	assert.Equal(t, 2, mock.count(a))
	assert.Equal(t, 1, mock.count(b))

	require.NoError(t, fs.ClearHashes())
	assert.True(t, mock.cleared)
	require.NoError(t, fs.IndexFiles(context.Background(), []string{b}))
	assert.Equal(t, 2, mock.count(b))
}

func TestFileScannerRemovesVanishedFiles(t *testing.T) {
	root := t.TempDir()
	createTestFiles(t, root, map[string]string{
		"src/A.php": "<?php class A {}",
		"src/B.php": "<?php class B {}",
	})
	b := filepath.Join(root, "src", "B.php")

	fs := newTestScanner(t, root, config.Default())
	require.NoError(t, fs.IndexAll(context.Background()))

	require.NoError(t, os.Remove(b))

	var removed []string
	fs.SetOnUpdate(func(changed []string) { removed = changed })
	require.NoError(t, fs.IndexAll(context.Background()))
	assert.Equal(t, []string{b}, removed)

	paths, err := fs.hashes.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "A.php")}, paths)
}

func TestFileScannerCancelled(t *testing.T) {
	root := t.TempDir()
	createTestFiles(t, root, map[string]string{"a.php": "<?php"})

	fs := newTestScanner(t, root, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fs.IndexFiles(ctx, []string{filepath.Join(root, "a.php")})
	assert.ErrorIs(t, err, context.Canceled)
}
