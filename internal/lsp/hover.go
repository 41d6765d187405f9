package lsp

import (
	"context"
	"fmt"

	"github.com/shopware/phpflow/internal/lsp/protocol"
)

// hover shows the type the analyzer inferred for the innermost expression
// under the cursor, after narrowing.
func (s *Server) hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.documentManager.GetDocument(params.TextDocument.URI)
	if !ok || doc.Result == nil || doc.Result.Table == nil {
		return nil, nil
	}

	offset := doc.Lines.Offset(params.Position)
	span, typ, ok := doc.Result.Table.Innermost(offset)
	if !ok {
		return nil, nil
	}

	r := doc.Lines.Range(span)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: fmt.Sprintf("```php\n%s\n```", typ.String()),
		},
		Range: &r,
	}, nil
}
