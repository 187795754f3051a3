package lsp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/semtok"
)

const testURI = "file:///work/script.qvs"

type testClient struct {
	conn  *jsonrpc2.Conn
	diags chan PublishDiagnosticsParams
}

func (c *testClient) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	if req.Method != "textDocument/publishDiagnostics" || req.Params == nil {
		return nil, nil
	}
	var params PublishDiagnosticsParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, err
	}
	select {
	case c.diags <- params:
	default:
	}
	return nil, nil
}

func startServer(t *testing.T, opts ...ServerOption) (*testClient, *Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()

	srv := NewServer(ctx, opts...)
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, serverSide) }()

	c := &testClient{diags: make(chan PublishDiagnosticsParams, 64)}
	c.conn = jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), jsonrpc2.HandlerWithError(c.handle))

	t.Cleanup(func() {
		c.conn.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
		cancel()
	})

	return c, srv
}

func (c *testClient) call(t *testing.T, method string, params, result any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.conn.Call(ctx, method, params, result), "calling %s", method)
}

func (c *testClient) notify(t *testing.T, method string, params any) {
	t.Helper()
	require.NoError(t, c.conn.Notify(context.Background(), method, params), "notifying %s", method)
}

func (c *testClient) waitDiagnostics(t *testing.T, uri string) PublishDiagnosticsParams {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case d := <-c.diags:
			if d.URI == uri {
				return d
			}
		case <-timeout:
			t.Fatalf("no diagnostics for %s", uri)
			return PublishDiagnosticsParams{}
		}
	}
}

func (c *testClient) initialize(t *testing.T, opts InitializationOptions) InitializeResult {
	t.Helper()
	raw, err := json.Marshal(opts)
	require.NoError(t, err)

	var result InitializeResult
	c.call(t, "initialize", InitializeParams{RootURI: "file:///work", InitializationOptions: raw}, &result)
	c.notify(t, "initialized", struct{}{})
	return result
}

func (c *testClient) open(t *testing.T, text string) PublishDiagnosticsParams {
	t.Helper()
	c.notify(t, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: testURI, LanguageID: "qlik", Version: 1, Text: text},
	})
	return c.waitDiagnostics(t, testURI)
}

func labels(list CompletionList) []string {
	out := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, item.Label)
	}
	return out
}

func TestInitialize(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()), WithVersion("v0.0.1"))

	result := c.initialize(t, InitializationOptions{})

	caps := result.Capabilities
	assert.True(t, caps.HoverProvider)
	assert.True(t, caps.TextDocumentSync.OpenClose)
	assert.Equal(t, TextDocumentSyncFull, caps.TextDocumentSync.Change)
	assert.Equal(t, []string{".", "$", "["}, caps.CompletionProvider.TriggerCharacters)
	assert.Equal(t, []string{"(", ","}, caps.SignatureHelpProvider.TriggerCharacters)
	assert.Equal(t, semtok.TokenTypes, caps.SemanticTokensProvider.Legend.TokenTypes)
	assert.True(t, caps.SemanticTokensProvider.Full)

	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "qlikls", result.ServerInfo.Name)
	assert.Equal(t, "v0.0.1", result.ServerInfo.Version)
}

func TestRequestBeforeInitialize(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var list CompletionList
	err := c.conn.Call(ctx, "textDocument/completion", CompletionParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
	}, &list)
	require.Error(t, err)

	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.EqualValues(t, -32002, rpcErr.Code)
}

func TestCompletion(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{
		UserVariables: []completion.UserVariable{{Name: "vYear", Description: "Fiscal year"}},
		KnownFields:   []string{"OrderDate"},
	})

	c.open(t, "LET x = $(vYe);\nLOAD [Ord\nLOAD ")

	t.Run("variable", func(t *testing.T) {
		var list CompletionList
		c.call(t, "textDocument/completion", CompletionParams{
			TextDocument: TextDocumentIdentifier{URI: testURI},
			Position:     Position{Line: 0, Character: 13},
		}, &list)

		require.NotEmpty(t, list.Items)
		first := list.Items[0]
		assert.Equal(t, "$(vYear)", first.Label)
		assert.EqualValues(t, CompletionItemVariable, first.Kind)
		require.NotNil(t, first.TextEdit)
		assert.Equal(t, Range{Start: Position{Line: 0, Character: 8}, End: Position{Line: 0, Character: 14}}, first.TextEdit.Range)
		assert.Equal(t, "$(vYear)", first.TextEdit.NewText)
	})

	t.Run("field", func(t *testing.T) {
		var list CompletionList
		c.call(t, "textDocument/completion", CompletionParams{
			TextDocument: TextDocumentIdentifier{URI: testURI},
			Position:     Position{Line: 1, Character: 9},
		}, &list)

		assert.Contains(t, labels(list), "[OrderDate]")
		for _, item := range list.Items {
			assert.EqualValues(t, CompletionItemField, item.Kind)
			assert.Equal(t, 5, item.TextEdit.Range.Start.Character, "replacement starts at the bracket")
		}
	})

	t.Run("statement", func(t *testing.T) {
		var list CompletionList
		c.call(t, "textDocument/completion", CompletionParams{
			TextDocument: TextDocumentIdentifier{URI: testURI},
			Position:     Position{Line: 2, Character: 5},
		}, &list)

		got := labels(list)
		assert.Contains(t, got, "LOAD")
		assert.Contains(t, got, "Sum")
		for _, item := range list.Items {
			if item.Label == "Sum" {
				assert.Equal(t, InsertTextFormatSnippet, item.InsertTextFormat)
				assert.EqualValues(t, CompletionItemFunction, item.Kind)
			}
		}
	})
}

func TestCompletionUTF16Columns(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{VariableNames: []string{"vYear"}})

	// "😀" is two UTF-16 code units and four bytes
	c.open(t, "// 😀\nLET é = $(v")

	var list CompletionList
	c.call(t, "textDocument/completion", CompletionParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: 1, Character: 11},
	}, &list)

	require.NotEmpty(t, list.Items)
	assert.Equal(t, "$(vYear)", list.Items[0].Label)
	assert.Equal(t, Position{Line: 1, Character: 8}, list.Items[0].TextEdit.Range.Start)
}

func TestHover(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{})
	c.open(t, "LOAD Sum(Amount)")

	var h Hover
	c.call(t, "textDocument/hover", HoverParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: 0, Character: 6},
	}, &h)

	assert.Equal(t, "markdown", h.Contents.Kind)
	assert.Contains(t, h.Contents.Value, "Sum(expression)")
	require.NotNil(t, h.Range)
	assert.Equal(t, Range{Start: Position{Line: 0, Character: 5}, End: Position{Line: 0, Character: 8}}, *h.Range)
}

func TestSignatureHelp(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{})
	c.open(t, "LOAD Left(Name, ")

	var help SignatureHelp
	c.call(t, "textDocument/signatureHelp", SignatureHelpParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: 0, Character: 16},
	}, &help)

	require.Len(t, help.Signatures, 1)
	assert.Equal(t, "Left(text, count)", help.Signatures[0].Label)
	assert.Equal(t, []ParameterInformation{{Label: "text"}, {Label: "count"}}, help.Signatures[0].Parameters)
	assert.Equal(t, 1, help.ActiveParameter)
}

func TestSemanticTokens(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{})
	c.open(t, "LOAD x\n// note")

	var full SemanticTokens
	c.call(t, "textDocument/semanticTokens/full", SemanticTokensParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
	}, &full)

	require.GreaterOrEqual(t, len(full.Data), 10)
	assert.Equal(t, []uint32{0, 0, 4, uint32(semtok.TokenKeyword)}, full.Data[:4])

	var rng SemanticTokens
	c.call(t, "textDocument/semanticTokens/range", SemanticTokensRangeParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Range:        Range{Start: Position{Line: 1}, End: Position{Line: 1, Character: 7}},
	}, &rng)

	require.Len(t, rng.Data, 5)
	assert.Equal(t, []uint32{1, 0, 7, uint32(semtok.TokenComment), 0}, rng.Data)
}

func TestDiagnostics(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{})

	diags := c.open(t, "LOAD 'abc")
	require.Len(t, diags.Diagnostics, 1)
	assert.Equal(t, "unterminated string literal", diags.Diagnostics[0].Message)
	assert.Equal(t, SeverityError, diags.Diagnostics[0].Severity)
	assert.Equal(t, Range{Start: Position{Line: 0, Character: 5}, End: Position{Line: 0, Character: 9}}, diags.Diagnostics[0].Range)

	c.notify(t, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: testURI, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "LOAD 'abc'"}},
	})
	diags = c.waitDiagnostics(t, testURI)
	assert.Empty(t, diags.Diagnostics)
	assert.Equal(t, 2, diags.Version)

	c.notify(t, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
	})
	diags = c.waitDiagnostics(t, testURI)
	assert.Empty(t, diags.Diagnostics)
}

func TestSetUserVariables(t *testing.T) {
	c, srv := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{})

	diags := c.open(t, "LET y = $(vYear);")
	assert.Empty(t, diags.Diagnostics, "no variable list yet, so nothing is unknown")

	c.notify(t, MethodSetUserVariables, SetUserVariablesParams{Names: []string{"vOther"}})
	diags = c.waitDiagnostics(t, testURI)
	require.Len(t, diags.Diagnostics, 1)
	assert.Equal(t, "unknown variable vYear", diags.Diagnostics[0].Message)

	c.notify(t, MethodSetUserVariables, SetUserVariablesParams{
		URI:       testURI,
		Variables: []completion.UserVariable{{Name: "vYear", Deprecated: true}},
	})
	diags = c.waitDiagnostics(t, testURI)
	require.Len(t, diags.Diagnostics, 1)
	assert.Equal(t, SeverityHint, diags.Diagnostics[0].Severity)

	doc, ok := srv.Documents().Get(testURI)
	require.True(t, ok)
	assert.Equal(t, []completion.UserVariable{{Name: "vYear", Deprecated: true}}, doc.Provider.UserVariables())
}

func TestSetKnownFields(t *testing.T) {
	c, _ := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{})
	c.open(t, "LOAD [")

	c.notify(t, MethodSetKnownFields, SetKnownFieldsParams{Fields: []string{"Region"}})

	var list CompletionList
	c.call(t, "textDocument/completion", CompletionParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: 0, Character: 6},
	}, &list)
	assert.Contains(t, labels(list), "[Region]")
}

func TestDidChangeConfiguration(t *testing.T) {
	c, srv := startServer(t, WithFs(afero.NewMemMapFs()))
	c.initialize(t, InitializationOptions{})
	c.open(t, "LOAD ")

	c.notify(t, "workspace/didChangeConfiguration", DidChangeConfigurationParams{
		Settings: json.RawMessage(`{"qlik": {"autocomplete": {"enableKeywords": false, "maxSuggestions": 3}}}`),
	})
	c.waitDiagnostics(t, testURI)

	var list CompletionList
	c.call(t, "textDocument/completion", CompletionParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: 0, Character: 5},
	}, &list)

	assert.Len(t, list.Items, 3)
	assert.True(t, list.IsIncomplete)
	assert.NotContains(t, labels(list), "LOAD")

	doc, ok := srv.Documents().Get(testURI)
	require.True(t, ok)
	assert.False(t, doc.Provider.Config().EnableKeywords)
}

func TestSettingsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/qlik.yaml", []byte(`
variable_names: [vRegion]
functions:
  - name: MyFn
    params: "${1:arg}"
    doc: Custom helper.
`), 0o644))

	c, _ := startServer(t, WithFs(fs))
	c.initialize(t, InitializationOptions{SettingsFile: "/work/qlik.yaml"})
	c.open(t, "LET x = MyFn(1);\nLET y = $(")

	var h Hover
	c.call(t, "textDocument/hover", HoverParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: 0, Character: 9},
	}, &h)
	assert.Contains(t, h.Contents.Value, "MyFn(arg)")

	var list CompletionList
	c.call(t, "textDocument/completion", CompletionParams{
		TextDocument: TextDocumentIdentifier{URI: testURI},
		Position:     Position{Line: 1, Character: 10},
	}, &list)
	require.NotEmpty(t, list.Items)
	assert.Equal(t, "$(vRegion)", list.Items[0].Label)
}

func TestActiveParameter(t *testing.T) {
	tests := []struct {
		name   string
		before string
		want   int
	}{
		{name: "first", before: "Left(", want: 0},
		{name: "second", before: "Left(x, ", want: 1},
		{name: "nested_call_closed", before: "Left(Mid(a, b), ", want: 1},
		{name: "inside_nested", before: "Left(Mid(a, ", want: 1},
		{name: "quoted_comma", before: "Left('a,b', ", want: 1},
		{name: "no_call", before: "LOAD a, b", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, activeParameter(tt.before))
		})
	}
}

func TestParseConfiguration(t *testing.T) {
	scoped, err := parseConfiguration(json.RawMessage(`{"qlik": {"knownFields": ["A"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, scoped.KnownFields)

	flat, err := parseConfiguration(json.RawMessage(`{"variableNames": ["vX"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"vX"}, flat.VariableNames)

	empty, err := parseConfiguration(nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Autocomplete)

	_, err = parseConfiguration(json.RawMessage(`[1]`))
	assert.Error(t, err)
}

func TestURIToPath(t *testing.T) {
	path, err := uriToPath("file:///work/a%20b.qvs")
	require.NoError(t, err)
	assert.Equal(t, "/work/a b.qvs", path)

	_, err = uriToPath("untitled:Untitled-1")
	assert.Error(t, err)
}
