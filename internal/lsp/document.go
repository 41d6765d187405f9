package lsp

import (
	"sync"

	"github.com/shopware/phpflow/internal/project"
)

// TextDocument is a document open in the editor together with the result
// of its last analysis. Documents are replaced, never modified, so a
// *TextDocument can be read without holding the manager lock.
type TextDocument struct {
	URI     string
	Path    string
	Text    []byte
	Version int
	Lines   *lineIndex
	Result  *project.FileResult
}

// DocumentManager manages the open text documents.
type DocumentManager struct {
	documents map[string]*TextDocument
	mu        sync.RWMutex
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{documents: make(map[string]*TextDocument)}
}

// UpdateDocument stores the text of uri, opening the document when needed.
// The previous analysis result is dropped.
func (m *DocumentManager) UpdateDocument(uri string, text string, version int) *TextDocument {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := &TextDocument{
		URI:     uri,
		Path:    uriToPath(uri),
		Text:    []byte(text),
		Version: version,
	}
	doc.Lines = newLineIndex(doc.Text)
	m.documents[uri] = doc
	return doc
}

// SetResult attaches result to the document if it still has version.
func (m *DocumentManager) SetResult(uri string, version int, result *project.FileResult) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[uri]
	if !ok || doc.Version != version {
		return false
	}
	updated := *doc
	updated.Result = result
	m.documents[uri] = &updated
	return true
}

func (m *DocumentManager) CloseDocument(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, uri)
}

func (m *DocumentManager) GetDocument(uri string) (*TextDocument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[uri]
	return doc, ok
}

// Documents returns a snapshot of the open documents.
func (m *DocumentManager) Documents() []*TextDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]*TextDocument, 0, len(m.documents))
	for _, doc := range m.documents {
		docs = append(docs, doc)
	}
	return docs
}
