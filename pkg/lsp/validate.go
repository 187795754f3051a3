package lsp

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/qlikls/pkg/diagnostic"
	"github.com/walteh/qlikls/pkg/position"
)

// publishDiagnostics validates doc and sends the result to the client.
// Unknown-variable warnings are only produced once the client has told us
// which variables exist.
func (s *Server) publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, doc *Document) error {
	text, tokens := doc.Snapshot()

	vars := doc.Provider.UserVariables()
	if len(vars) == 0 {
		vars = nil
	}

	found := diagnostic.NewDefaultGenerator(doc.Provider.Grammar(), vars).Generate(ctx, tokens)
	s.debugf(ctx, "%d diagnostics for %s", found.Len(), doc.URI)

	lines := position.SplitLines(text)
	out := make([]Diagnostic, 0, found.Len())
	for _, d := range found.All() {
		out = append(out, toLSPDiagnostic(lines, d))
	}

	if err := conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Diagnostics: out,
	}); err != nil {
		return errors.Errorf("publishing diagnostics for %s: %w", doc.URI, err)
	}
	return nil
}

// toLSPDiagnostic converts a 1-based byte-column diagnostic to LSP form.
func toLSPDiagnostic(lines []string, d diagnostic.Diagnostic) Diagnostic {
	rng := position.Range{
		Start: position.Place{Line: d.Line - 1, Character: d.Column - 1},
		End:   position.Place{Line: d.EndLine - 1, Character: d.EndCol - 1},
	}
	return Diagnostic{
		Range:    fromRange(lines, rng),
		Severity: DiagnosticSeverity(d.Severity.LSP()),
		Source:   "qlikls",
		Message:  d.Message,
	}
}

func (s *Server) republish(ctx context.Context, conn *jsonrpc2.Conn, uri string) error {
	doc, ok := s.documents.Get(uri)
	if !ok {
		return nil
	}
	return s.publishDiagnostics(ctx, conn, doc)
}

func (s *Server) republishAll(ctx context.Context, conn *jsonrpc2.Conn) error {
	var err error
	s.documents.Range(func(doc *Document) bool {
		err = multierr.Append(err, s.publishDiagnostics(ctx, conn, doc))
		return true
	})
	return err
}
