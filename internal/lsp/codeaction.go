package lsp

import (
	"context"

	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/lsp/protocol"
)

func overlaps(a, b protocol.Range) bool {
	before := func(x, y protocol.Position) bool {
		return x.Line < y.Line || (x.Line == y.Line && x.Character < y.Character)
	}
	return !before(a.End, b.Start) && !before(b.End, a.Start)
}

// codeActions offers the fixes of the issues in the requested range.
func (s *Server) codeActions(ctx context.Context, params *protocol.CodeActionParams) []protocol.CodeAction {
	doc, ok := s.documentManager.GetDocument(params.TextDocument.URI)
	if !ok || doc.Result == nil {
		return []protocol.CodeAction{}
	}

	actions := []protocol.CodeAction{}
	for _, i := range doc.Result.Issues {
		if i.Fix == nil {
			continue
		}
		r := doc.Lines.Range(i.Span)
		if !overlaps(r, params.Range) {
			continue
		}
		actions = append(actions, protocol.CodeAction{
			Title:       "Replace with " + i.Fix.Replacement,
			Kind:        protocol.CodeActionQuickFix,
			Diagnostics: toDiagnostics(doc, []issue.Issue{i}),
			IsPreferred: true,
			Edit: &protocol.WorkspaceEdit{
				Changes: map[string][]protocol.TextEdit{
					doc.URI: {{Range: doc.Lines.Range(i.Fix.Span), NewText: i.Fix.Replacement}},
				},
			},
		})
	}
	return actions
}
