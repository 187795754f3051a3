package lsp

import (
	"context"
	"encoding/json"

	"github.com/sourcegraph/jsonrpc2"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/autocomplete"
	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/semtok"
)

func (s *Server) handleInitialize(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	s.debugf(ctx, "handling initialize request")

	var params InitializeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	// Convert workspace URI to filesystem path
	workspacePath, err := uriToPath(params.RootURI)
	if err != nil {
		return nil, errors.Errorf("invalid workspace URI: %w", err)
	}

	var opts InitializationOptions
	if len(params.InitializationOptions) > 0 && string(params.InitializationOptions) != "null" {
		if err := json.Unmarshal(params.InitializationOptions, &opts); err != nil {
			return nil, errors.Errorf("failed to unmarshal initialization options: %w", err)
		}
	}

	if opts.SettingsFile != "" {
		if err := s.loadSettingsFile(ctx, opts.SettingsFile); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.workspace = workspacePath
	applyOptions(&s.defaults, opts)
	s.initialized = true
	config := completion.DefaultConfig().Merge(s.defaults.patch)
	s.mu.Unlock()

	s.debugf(ctx, "workspace path: %s", workspacePath)

	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: TextDocumentSyncKind{
				OpenClose: true,
				Change:    TextDocumentSyncFull,
			},
			HoverProvider: true,
			CompletionProvider: CompletionOptions{
				TriggerCharacters: config.TriggerCharacters,
			},
			SignatureHelpProvider: SignatureHelpOptions{
				TriggerCharacters: []string{"(", ","},
			},
			SemanticTokensProvider: SemanticTokensOptions{
				Legend: SemanticTokensLegend{
					TokenTypes:     semtok.TokenTypes,
					TokenModifiers: semtok.TokenModifiers,
				},
				Full:  true,
				Range: true,
			},
		},
		ServerInfo: &ServerInfo{
			Name:    "qlikls",
			Version: s.version,
		},
	}, nil
}

// loadSettingsFile extends the grammar and the defaults from a YAML or HCL
// settings file. Relative paths resolve against the workspace.
func (s *Server) loadSettingsFile(ctx context.Context, path string) error {
	settings, err := autocomplete.LoadSettings(s.fs, path)
	if err != nil {
		return errors.Errorf("loading settings file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.grammar = settings.Extend(s.grammar)
	if settings.Autocomplete != nil {
		s.defaults.patch = s.defaults.patch.Merge(*settings.Autocomplete)
	}
	s.defaults.variables = append(append([]completion.UserVariable(nil), settings.Variables...),
		completion.UserVariablesFromNames(settings.VariableNames)...)
	s.defaults.fields = append([]string(nil), settings.KnownFields...)

	s.debugf(ctx, "loaded settings from %s", path)
	return nil
}

// applyOptions folds client options into d. Fields left empty keep their
// current value.
func applyOptions(d *defaults, opts InitializationOptions) {
	if opts.Autocomplete != nil {
		d.patch = d.patch.Merge(*opts.Autocomplete)
	}
	if vars := variablesOf(opts.UserVariables, opts.VariableNames); vars != nil {
		d.variables = vars
	}
	if opts.KnownFields != nil {
		d.fields = append([]string(nil), opts.KnownFields...)
	}
}

// variablesOf prefers described variables over bare names. It returns nil
// when neither is set.
func variablesOf(vars []completion.UserVariable, names []string) []completion.UserVariable {
	switch {
	case vars != nil:
		return append([]completion.UserVariable(nil), vars...)
	case names != nil:
		return completion.UserVariablesFromNames(names)
	default:
		return nil
	}
}

func (s *Server) handleDidChangeConfiguration(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	var params DidChangeConfigurationParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	opts, err := parseConfiguration(params.Settings)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	applyOptions(&s.defaults, opts)
	s.mu.Unlock()

	s.eachProvider("", func(p *autocomplete.Provider) {
		if opts.Autocomplete != nil {
			p.UpdateConfig(*opts.Autocomplete)
		}
		if vars := variablesOf(opts.UserVariables, opts.VariableNames); vars != nil {
			p.SetUserVariables(vars)
		}
		if opts.KnownFields != nil {
			p.SetKnownFields(opts.KnownFields)
		}
	})

	s.debugf(ctx, "configuration changed")
	return nil, s.republishAll(ctx, conn)
}

// parseConfiguration accepts the options either at the top level or nested
// under a "qlik" section, which is how most clients scope settings.
func parseConfiguration(raw json.RawMessage) (InitializationOptions, error) {
	var opts InitializationOptions
	if len(raw) == 0 || string(raw) == "null" {
		return opts, nil
	}

	var scoped struct {
		Qlik *InitializationOptions `json:"qlik"`
	}
	if err := json.Unmarshal(raw, &scoped); err != nil {
		return opts, errors.Errorf("failed to unmarshal configuration: %w", err)
	}
	if scoped.Qlik != nil {
		return *scoped.Qlik, nil
	}

	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, errors.Errorf("failed to unmarshal configuration: %w", err)
	}
	return opts, nil
}

func (s *Server) handleSetUserVariables(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	var params SetUserVariablesParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	vars := variablesOf(params.Variables, params.Names)
	if vars == nil {
		vars = []completion.UserVariable{}
	}

	if params.URI == "" {
		s.mu.Lock()
		s.defaults.variables = vars
		s.mu.Unlock()
	}

	s.eachProvider(params.URI, func(p *autocomplete.Provider) {
		p.SetUserVariables(vars)
	})

	s.debugf(ctx, "set %d user variables for %q", len(vars), params.URI)

	if params.URI != "" {
		return nil, s.republish(ctx, conn, params.URI)
	}
	return nil, s.republishAll(ctx, conn)
}

func (s *Server) handleSetKnownFields(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
	var params SetKnownFieldsParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	if params.URI == "" {
		s.mu.Lock()
		s.defaults.fields = append([]string(nil), params.Fields...)
		s.mu.Unlock()
	}

	s.eachProvider(params.URI, func(p *autocomplete.Provider) {
		p.SetKnownFields(params.Fields)
	})

	s.debugf(ctx, "set %d known fields for %q", len(params.Fields), params.URI)
	return nil, nil
}
