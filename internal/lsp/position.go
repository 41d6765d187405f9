package lsp

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/shopware/phpflow/internal/ast"
	"github.com/shopware/phpflow/internal/lsp/protocol"
)

// lineIndex converts between byte offsets and LSP positions, which count
// UTF-16 code units.
type lineIndex struct {
	text   []byte
	starts []int
}

func newLineIndex(text []byte) *lineIndex {
	starts := []int{0}
	for i, b := range text {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{text: text, starts: starts}
}

func (li *lineIndex) Position(offset int) protocol.Position {
	offset = max(0, min(offset, len(li.text)))
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1

	character := 0
	for _, r := range string(li.text[li.starts[line]:offset]) {
		character += utf16.RuneLen(r)
	}
	return protocol.Position{Line: line, Character: character}
}

func (li *lineIndex) Offset(pos protocol.Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(li.starts) {
		return len(li.text)
	}

	offset := li.starts[pos.Line]
	for units := 0; units < pos.Character && offset < len(li.text); {
		r, size := utf8.DecodeRune(li.text[offset:])
		if r == '\n' {
			break
		}
		units += utf16.RuneLen(r)
		offset += size
	}
	return offset
}

func (li *lineIndex) Range(span ast.Span) protocol.Range {
	return protocol.Range{Start: li.Position(span.Start), End: li.Position(span.End)}
}

// uriToPath turns a file:// URI into a local path. Other values are taken
// as paths already.
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return filepath.FromSlash(u.Path)
}

func pathToURI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
