package lsp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/autocomplete"
	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/grammar"
)

// normalizeURI ensures consistent URI handling by removing the file:// prefix if present
// and converting to a clean path
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	// remove the file:/private prefix
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// defaults are applied to every document opened after they are set.
type defaults struct {
	patch     completion.ConfigPatch
	variables []completion.UserVariable
	fields    []string
}

// Server represents an LSP server instance
type Server struct {
	// Document management
	documents *DocumentManager
	// providers maps a registration handle to the live provider of a document
	providers *sync.Map // map[uuid.UUID]*autocomplete.Provider

	fs      afero.Fs
	version string

	mu          sync.Mutex
	grammar     *grammar.Grammar
	defaults    defaults
	workspace   string
	initialized bool
	shutdown    bool

	// Server identification
	id    string
	debug bool
}

type ServerOption func(*Server)

func WithDebug(debug bool) ServerOption {
	return func(s *Server) { s.debug = debug }
}

// WithFs sets the filesystem settings files are read from.
func WithFs(fs afero.Fs) ServerOption {
	return func(s *Server) { s.fs = fs }
}

func WithGrammar(g *grammar.Grammar) ServerOption {
	return func(s *Server) { s.grammar = g }
}

func WithVersion(version string) ServerOption {
	return func(s *Server) { s.version = version }
}

func NewServer(ctx context.Context, opts ...ServerOption) *Server {
	s := &Server{
		id:        xid.New().String(),
		documents: NewDocumentManager(),
		providers: &sync.Map{},
		fs:        afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.grammar == nil {
		s.grammar = grammar.MustLoad(ctx)
	}
	return s
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

func (s *Server) currentGrammar() *grammar.Grammar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grammar
}

// Run serves one client over rwc until the connection closes. Log output is
// forwarded to the client as window/logMessage notifications.
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	writer := NewLSPWriter(ctx, s.id)
	ctx = s.ApplyLSPWriter(ctx, writer)

	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), jsonrpc2.HandlerWithError(s.handle))
	writer.Attach(conn)

	s.debugf(ctx, "language server %s started", s.id)

	<-conn.DisconnectNotify()

	s.closeAll(ctx)
	return nil
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.mu.Lock()
	initialized, shutdown := s.initialized, s.shutdown
	s.mu.Unlock()

	if !initialized && req.Method != "initialize" && req.Method != "exit" {
		return nil, &jsonrpc2.Error{Code: -32002, Message: "server not initialized"}
	}
	if shutdown && req.Method != "exit" {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(ctx, req)
	case "initialized", "$/setTrace", "$/cancelRequest":
		return nil, nil
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	case "exit":
		return nil, conn.Close()
	case "textDocument/didOpen":
		return s.handleTextDocumentDidOpen(ctx, conn, req)
	case "textDocument/didChange":
		return s.handleTextDocumentDidChange(ctx, conn, req)
	case "textDocument/didClose":
		return s.handleTextDocumentDidClose(ctx, conn, req)
	case "textDocument/didSave":
		return nil, nil
	case "textDocument/completion":
		return s.handleTextDocumentCompletion(ctx, req)
	case "textDocument/hover":
		return s.handleTextDocumentHover(ctx, req)
	case "textDocument/signatureHelp":
		return s.handleTextDocumentSignatureHelp(ctx, req)
	case "textDocument/semanticTokens/full":
		return s.handleSemanticTokensFull(ctx, req)
	case "textDocument/semanticTokens/range":
		return s.handleSemanticTokensRange(ctx, req)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(ctx, conn, req)
	case MethodSetUserVariables:
		return s.handleSetUserVariables(ctx, conn, req)
	case MethodSetKnownFields:
		return s.handleSetKnownFields(ctx, req)
	default:
		s.debugf(ctx, "unhandled method %s", req.Method)
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	}
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errors.Errorf("missing params for %s", req.Method)
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return errors.Errorf("failed to unmarshal %s params: %w", req.Method, err)
	}
	return nil
}

// openProvider creates the completion provider of a new document and
// registers it under a fresh handle.
func (s *Server) openProvider(ctx context.Context, uri string) (*autocomplete.Provider, uuid.UUID) {
	s.mu.Lock()
	g := s.grammar
	d := s.defaults
	s.mu.Unlock()

	patch := d.patch
	if path, err := uriToPath(uri); err == nil && path != "" {
		indent, err := autocomplete.IndentPatch(path)
		if err != nil {
			s.debugf(ctx, "no editorconfig indent for %s: %v", path, err)
		} else {
			patch = indent.Merge(patch)
		}
	}

	p := autocomplete.New(ctx, g,
		autocomplete.WithConfig(patch),
		autocomplete.WithUserVariables(d.variables),
		autocomplete.WithKnownFields(d.fields),
	)

	handle := uuid.New()
	s.providers.Store(handle, p)
	p.Attach(autocomplete.HandleFunc(func() error {
		if _, ok := s.providers.LoadAndDelete(handle); !ok {
			return errors.Errorf("provider %s was not registered", handle)
		}
		return nil
	}))

	return p, handle
}

// eachProvider calls fn for the provider of uri, or for every live provider
// when uri is empty.
func (s *Server) eachProvider(uri string, fn func(p *autocomplete.Provider)) {
	if uri != "" {
		if doc, ok := s.documents.Get(uri); ok {
			fn(doc.Provider)
		}
		return
	}
	s.providers.Range(func(_, value any) bool {
		fn(value.(*autocomplete.Provider))
		return true
	})
}

func (s *Server) closeAll(ctx context.Context) {
	var uris []string
	s.documents.Range(func(doc *Document) bool {
		uris = append(uris, doc.URI)
		return true
	})
	for _, uri := range uris {
		if doc, ok := s.documents.Delete(uri); ok {
			if err := doc.Provider.Dispose(); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("uri", uri).Msg("disposing provider")
			}
		}
	}
}
