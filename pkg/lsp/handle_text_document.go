package lsp

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/completion/providers"
	"github.com/walteh/qlikls/pkg/hover"
	"github.com/walteh/qlikls/pkg/position"
	"github.com/walteh/qlikls/pkg/semtok"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

func (s *Server) handleTextDocumentDidOpen(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/didOpen")

	var params DidOpenTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	uri := params.TextDocument.URI
	if old, ok := s.documents.Delete(uri); ok {
		// a client reopening without closing first
		if err := old.Provider.Dispose(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("uri", uri).Msg("disposing replaced provider")
		}
	}

	p, handle := s.openProvider(ctx, uri)
	doc := &Document{
		URI:      uri,
		Version:  params.TextDocument.Version,
		content:  params.TextDocument.Text,
		tokens:   tokenizer.New(p.Grammar()).NewDocument(params.TextDocument.Text),
		Provider: p,
		Handle:   handle,
	}
	s.documents.Store(doc)

	s.debugf(ctx, "document stored: %s (provider %s)", uri, handle)
	return nil, s.publishDiagnostics(ctx, conn, doc)
}

func (s *Server) handleTextDocumentDidChange(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/didChange")

	var params DidChangeTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	// full sync: the last change carries the whole text
	if len(params.ContentChanges) == 0 {
		return nil, nil
	}
	n := doc.Update(params.TextDocument.Version, params.ContentChanges[len(params.ContentChanges)-1].Text)
	s.debugf(ctx, "re-tokenized %d lines of %s", n, doc.URI)

	return nil, s.publishDiagnostics(ctx, conn, doc)
}

func (s *Server) handleTextDocumentDidClose(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/didClose")

	var params DidCloseTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	doc, ok := s.documents.Delete(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	if err := doc.Provider.Dispose(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("uri", doc.URI).Msg("disposing provider")
	}

	return nil, conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) handleTextDocumentCompletion(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/completion")

	var params CompletionParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	if params.Context != nil {
		s.debugf(ctx, "completion triggered (kind %d, character %q)", params.Context.TriggerKind, params.Context.TriggerCharacter)
	}

	text, _ := doc.Snapshot()
	res := doc.Provider.ProvideCompletions(text, toPlace(text, params.Position))

	s.debugf(ctx, "completion context %s: %d candidates", res.Context.Kind, len(res.Candidates))

	lines := position.SplitLines(text)
	edit := fromRange(lines, res.Replace)

	items := make([]CompletionItem, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		items = append(items, completionItem(c, edit))
	}

	limit := doc.Provider.Config().MaxSuggestions
	return CompletionList{
		IsIncomplete: limit > 0 && len(items) >= limit,
		Items:        items,
	}, nil
}

func completionItem(c completion.Candidate, edit Range) CompletionItem {
	item := CompletionItem{
		Label:            c.Label,
		Kind:             completionItemKind(c.Kind),
		Detail:           c.Detail,
		Deprecated:       c.Deprecated,
		SortText:         c.SortKey,
		InsertTextFormat: InsertTextFormatPlainText,
		TextEdit:         &TextEdit{Range: edit, NewText: c.InsertText},
	}
	if c.Documentation != "" {
		item.Documentation = &MarkupContent{Kind: "markdown", Value: c.Documentation}
	}
	if c.Snippet {
		item.InsertTextFormat = InsertTextFormatSnippet
	}
	return item
}

func completionItemKind(k completion.CandidateKind) CompletionItemKind {
	switch k {
	case completion.KindKeyword:
		return CompletionItemKeyword
	case completion.KindFunction:
		return CompletionItemFunction
	case completion.KindVariable:
		return CompletionItemVariable
	case completion.KindField:
		return CompletionItemField
	case completion.KindSnippet:
		return CompletionItemSnippet
	default:
		return CompletionItemText
	}
}

func (s *Server) handleTextDocumentHover(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/hover")

	var params HoverParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	text, tokens := doc.Snapshot()
	info := hover.BuildHoverResponse(ctx, doc.Provider.Grammar(), tokens, toPlace(text, params.Position), doc.Provider.UserVariables())
	if info == nil {
		return nil, nil
	}

	rng := fromRange(position.SplitLines(text), info.Range)
	return Hover{
		Contents: MarkupContent{
			Kind:  "markdown",
			Value: strings.Join(info.Content, "\n\n"),
		},
		Range: &rng,
	}, nil
}

func (s *Server) handleTextDocumentSignatureHelp(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/signatureHelp")

	var params SignatureHelpParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	text, _ := doc.Snapshot()
	place := toPlace(text, params.Position)
	line, _ := position.LineAt(text, place.Line)
	before := line[:position.ClampColumn(line, place.Character)]

	g := doc.Provider.Grammar()
	ec := completion.NewAnalyzer(g).Classify(before, "")
	if ec.Kind != completion.ContextInsideFunctionArgs {
		return nil, nil
	}

	fn, ok := g.FunctionSpec(ec.Function)
	if !ok {
		return nil, nil
	}

	sig := SignatureInformation{
		Label:      providers.Signature(fn),
		Parameters: []ParameterInformation{},
	}
	if fn.Documentation != "" {
		sig.Documentation = &MarkupContent{Kind: "markdown", Value: fn.Documentation}
	}
	for _, p := range signatureParameters(sig.Label) {
		sig.Parameters = append(sig.Parameters, ParameterInformation{Label: p})
	}

	return SignatureHelp{
		Signatures:      []SignatureInformation{sig},
		ActiveParameter: activeParameter(before),
	}, nil
}

// signatureParameters splits "Name(a, b)" into its parameter labels.
func signatureParameters(label string) []string {
	open := strings.IndexByte(label, '(')
	closing := strings.LastIndexByte(label, ')')
	if open < 0 || closing <= open+1 {
		return nil
	}
	var out []string
	for _, p := range strings.Split(label[open+1:closing], ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// activeParameter counts the top-level commas between the innermost open
// call and the end of before. Commas inside quotes and nested parentheses
// do not count.
func activeParameter(before string) int {
	type frame struct{ commas int }
	var stack []frame
	var quote byte

	for i := 0; i < len(before); i++ {
		c := before[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			stack = append(stack, frame{})
		case ')':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].commas++
			}
		}
	}

	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1].commas
}

func (s *Server) handleSemanticTokensFull(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/semanticTokens/full")

	var params SemanticTokensParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	text, tokens := doc.Snapshot()
	toks := semtok.GetTokensForDocument(doc.Provider.Grammar(), tokens)
	return SemanticTokens{Data: semtok.Encode(toks, position.SplitLines(text))}, nil
}

func (s *Server) handleSemanticTokensRange(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling textDocument/semanticTokens/range")

	var params SemanticTokensRangeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	text, tokens := doc.Snapshot()
	toks := semtok.GetTokensForRange(doc.Provider.Grammar(), tokens, params.Range.Start.Line, params.Range.End.Line)
	return SemanticTokens{Data: semtok.Encode(toks, position.SplitLines(text))}, nil
}
