package lsp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/config"
	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/lsp/protocol"
	"github.com/shopware/phpflow/internal/project"
)

func TestLineIndex(t *testing.T) {
	li := newLineIndex([]byte("<?php\n$ä = 1;\n$x = 2;"))

	testCases := []struct {
		offset int
		pos    protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{6, protocol.Position{Line: 1, Character: 0}},
		// ä takes two bytes but one UTF-16 unit
		{9, protocol.Position{Line: 1, Character: 2}},
		{15, protocol.Position{Line: 2, Character: 0}},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.pos, li.Position(tc.offset), "offset %d", tc.offset)
		assert.Equal(t, tc.offset, li.Offset(tc.pos), "position %v", tc.pos)
	}

	assert.Equal(t, 0, li.Offset(protocol.Position{Line: -1}))
	assert.Equal(t, len(li.text), li.Offset(protocol.Position{Line: 10}))
	assert.Equal(t, 14, li.Offset(protocol.Position{Line: 1, Character: 40}), "clamped to the end of the line")
}

func TestURIConversion(t *testing.T) {
	path := filepath.Join(string(filepath.Separator)+"tmp", "my project", "a.php")
	uri := pathToURI(path)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.Contains(t, uri, "my%20project")
	assert.Equal(t, path, uriToPath(uri))
	assert.Equal(t, "relative.php", uriToPath("relative.php"))
}

func TestDocumentManagerDropsStaleResults(t *testing.T) {
	m := NewDocumentManager()
	m.UpdateDocument("file:///a.php", "<?php", 1)
	m.UpdateDocument("file:///a.php", "<?php echo 1;", 2)

	assert.False(t, m.SetResult("file:///a.php", 1, &project.FileResult{}))
	assert.True(t, m.SetResult("file:///a.php", 2, &project.FileResult{}))

	doc, ok := m.GetDocument("file:///a.php")
	require.True(t, ok)
	assert.NotNil(t, doc.Result)
	assert.Equal(t, "/a.php", doc.Path)

	m.CloseDocument("file:///a.php")
	assert.Empty(t, m.Documents())
	assert.False(t, m.SetResult("file:///a.php", 2, &project.FileResult{}))
}

func TestToDiagnostics(t *testing.T) {
	doc := &TextDocument{URI: "file:///a.php", Lines: newLineIndex([]byte("<?php\n$a?->b;"))}
	diagnostics := toDiagnostics(doc, []issue.Issue{
		{Level: issue.Info, Code: issue.RedundantNullsafeOperator, Message: "m", Span: ast.Span{Start: 8, End: 11}},
		{Level: issue.Error, Code: issue.DivisionByZero, Message: "d", Span: ast.Span{Start: 6, End: 7}, Related: []ast.Span{{Start: 0, End: 5}}},
	})

	require.Len(t, diagnostics, 2)
	assert.Equal(t, protocol.DiagnosticSeverityInformation, diagnostics[0].Severity)
	assert.Equal(t, []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}, diagnostics[0].Tags)
	assert.Equal(t, protocol.Range{Start: protocol.Position{Line: 1, Character: 2}, End: protocol.Position{Line: 1, Character: 5}}, diagnostics[0].Range)
	assert.Equal(t, protocol.DiagnosticSeverityError, diagnostics[1].Severity)
	assert.Equal(t, "DivisionByZero", diagnostics[1].Code)
	require.Len(t, diagnostics[1].RelatedInformation, 1)
	assert.Equal(t, doc.URI, diagnostics[1].RelatedInformation[0].Location.URI)
}

func newTestServer(t *testing.T, files map[string]string) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	cacheDir := t.TempDir()

	s := NewServer(func(root string) (*project.Project, error) {
		return project.OpenWithCache(root, cacheDir, config.Default())
	})
	_, err := s.initialize(context.Background(), &protocol.InitializeParams{RootURI: pathToURI(root)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.CloseAll() })
	require.NoError(t, s.currentProject().Index(context.Background()))
	return s, root
}

func TestAnalyzeDocumentHoverAndCodeAction(t *testing.T) {
	s, root := newTestServer(t, map[string]string{
		"Product.php": `<?php
class Product
{
    public string $name = '';
}
`,
	})

	src := `<?php
function show(Product $p): string
{
    $n = $p?->name;
    return $n;
}
`
	uri := pathToURI(filepath.Join(root, "show.php"))
	doc := s.documentManager.UpdateDocument(uri, src, 1)
	require.NoError(t, s.analyzeDocument(context.Background(), doc))

	doc, ok := s.documentManager.GetDocument(uri)
	require.True(t, ok)
	require.NotNil(t, doc.Result)

	var codes []issue.Code
	for _, i := range doc.Result.Issues {
		codes = append(codes, i.Code)
	}
	assert.Contains(t, codes, issue.RedundantNullsafeOperator)

	offset := strings.Index(src, "$n = ")
	hover, err := s.hover(context.Background(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     doc.Lines.Position(offset + 1),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Contains(t, hover.Contents.Value, "string")

	line := doc.Lines.Position(strings.Index(src, "?->")).Line
	actions := s.codeActions(context.Background(), &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Range: protocol.Range{
			Start: protocol.Position{Line: line},
			End:   protocol.Position{Line: line, Character: 80},
		},
	})
	require.Len(t, actions, 1)
	assert.Equal(t, protocol.CodeActionQuickFix, actions[0].Kind)
	edits := actions[0].Edit.Changes[uri]
	require.Len(t, edits, 1)
	assert.Equal(t, "->", edits[0].NewText)
}

func TestCodeActionsWithoutResult(t *testing.T) {
	s := NewServer(nil)
	actions := s.codeActions(context.Background(), &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///unknown.php"},
	})
	assert.Empty(t, actions)

	hover, err := s.hover(context.Background(), &protocol.HoverParams{})
	assert.NoError(t, err)
	assert.Nil(t, hover)
}
