package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/issue"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func openTestProject(t *testing.T, files map[string]string) *Project {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)

	p, err := OpenWithCache(root, t.TempDir(), config.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.Index(context.Background()))
	return p
}

func codes(issues []issue.Issue) []issue.Code {
	out := make([]issue.Code, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func TestAnalyzeFilesAcrossDeclarations(t *testing.T) {
	p := openTestProject(t, map[string]string{
		"src/Repository.php": `<?php
namespace App;

class Repository
{
    public function find(int $id): ?Product
    {
        return null;
    }
}
`,
		"src/Product.php": `<?php
namespace App;

class Product
{
    public function name(): string
    {
        return 'p';
    }
}
`,
		"src/use.php": `<?php
namespace App;

function show(Repository $repo): string
{
    $product = $repo->find(1);
    if ($product !== null) {
        return $product->name();
    }
    return $product->name();
}
`,
	})

	files, err := p.Scanner.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)

	results, err := p.AnalyzeFiles(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, files[i], r.Path, "results keep the order of files")
		assert.Empty(t, r.Errors)
	}

	all := Issues(results)
	require.NotEmpty(t, all)
	for _, i := range all {
		assert.Equal(t, filepath.Join(p.Root, "src", "use.php"), i.File)
	}
	assert.Contains(t, codes(all), issue.NullReference)
	assert.NotContains(t, codes(all), issue.UndefinedClass)
}

func TestAnalyzeSourceUsesBufferDeclarations(t *testing.T) {
	p := openTestProject(t, map[string]string{
		"src/a.php": `<?php function helper(): int { return 1; }`,
	})
	path := filepath.Join(p.Root, "src", "a.php")

	r, err := p.AnalyzeSource(path, []byte(`<?php
function helper(): string { return 1; }
`))
	require.NoError(t, err)
	assert.Equal(t, []issue.Code{issue.InvalidReturnType}, codes(r.Issues))
	assert.Positive(t, r.Table.Len())
}

func TestAnalyzeFilesHonoursMinLevel(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.php": "<?php\necho $missing;\n$x = 1 / 0;\n"})

	cfg := config.Default()
	cfg.MinLevel = "error"
	p, err := OpenWithCache(root, t.TempDir(), cfg)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()
	require.NoError(t, p.Index(context.Background()))

	results, err := p.AnalyzeFiles(context.Background(), []string{filepath.Join(root, "a.php")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	for _, i := range results[0].Issues {
		assert.Equal(t, issue.Error, i.Level)
	}
}

func TestAnalyzeFilesMissingFile(t *testing.T) {
	p := openTestProject(t, map[string]string{"a.php": "<?php"})

	_, err := p.AnalyzeFiles(context.Background(), []string{filepath.Join(p.Root, "missing.php")})
	assert.Error(t, err)
}
