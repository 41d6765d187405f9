package lsp

import (
	"context"
	"fmt"

	"github.com/shopware/phpflow/internal/issue"
	"github.com/shopware/phpflow/internal/lsp/protocol"
	"github.com/shopware/phpflow/internal/project"
)

const diagnosticSource = "phpflow"

func severity(l issue.Level) protocol.DiagnosticSeverity {
	switch l {
	case issue.Error:
		return protocol.DiagnosticSeverityError
	case issue.Warning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

// unnecessary marks code an editor may render faded.
var unnecessary = map[issue.Code]bool{
	issue.RedundantCondition:        true,
	issue.RedundantNullsafeOperator: true,
}

func toDiagnostics(doc *TextDocument, issues []issue.Issue) []protocol.Diagnostic {
	diagnostics := make([]protocol.Diagnostic, 0, len(issues))
	for _, i := range issues {
		d := protocol.Diagnostic{
			Range:    doc.Lines.Range(i.Span),
			Severity: severity(i.Level),
			Code:     string(i.Code),
			Source:   diagnosticSource,
			Message:  i.Message,
		}
		if unnecessary[i.Code] {
			d.Tags = []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary}
		}
		for _, related := range i.Related {
			d.RelatedInformation = append(d.RelatedInformation, protocol.DiagnosticRelatedInformation{
				Location: protocol.Location{URI: doc.URI, Range: doc.Lines.Range(related)},
				Message:  "related",
			})
		}
		diagnostics = append(diagnostics, d)
	}
	return diagnostics
}

// analyzeDocument analyses the current text of doc and publishes the
// issues unless the document changed in the meantime.
func (s *Server) analyzeDocument(ctx context.Context, doc *TextDocument) error {
	p := s.currentProject()
	if p == nil {
		return nil
	}
	result, err := p.AnalyzeSource(doc.Path, doc.Text)
	if err != nil {
		return fmt.Errorf("failed to analyse %s: %w", doc.URI, err)
	}
	for _, e := range result.Errors {
		s.logger.Debug("Internal error", "uri", doc.URI, "error", e)
	}
	if !s.documentManager.SetResult(doc.URI, doc.Version, &result) {
		return nil
	}
	return s.publish(ctx, doc, result.Issues)
}

func (s *Server) publish(ctx context.Context, doc *TextDocument, issues []issue.Issue) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Diagnostics: toDiagnostics(doc, issues),
	})
}

// analyzeWorkspace analyses every project file that is not open and
// publishes its issues.
func (s *Server) analyzeWorkspace(ctx context.Context) error {
	p := s.currentProject()
	if p == nil {
		return nil
	}
	files, err := p.Scanner.Files()
	if err != nil {
		return err
	}

	open := map[string]bool{}
	for _, doc := range s.documentManager.Documents() {
		open[doc.Path] = true
	}
	var closed []string
	for _, f := range files {
		if !open[f] {
			closed = append(closed, f)
		}
	}

	results, err := p.AnalyzeFiles(ctx, closed)
	if err != nil {
		s.logger.Warn("Workspace analysis incomplete", "error", err)
	}
	for _, r := range results {
		if err := s.publishResult(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) publishResult(ctx context.Context, r project.FileResult) error {
	doc := &TextDocument{URI: pathToURI(r.Path), Path: r.Path, Lines: newLineIndex(r.File.Source)}
	return s.publish(ctx, doc, r.Issues)
}
