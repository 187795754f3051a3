package lsp

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/completion"
)

// LSP types based on the specification
// https://microsoft.github.io/language-server-protocol/specifications/specification-current/

// MessageType represents the type of a message
type MessageType int

const (
	Error      MessageType = 1
	Warning    MessageType = 2
	Info       MessageType = 3
	Debug      MessageType = 4
	Trace      MessageType = 5
	Dependency MessageType = 6
	Unknown    MessageType = 7
)

func (mt MessageType) String() string {
	switch mt {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	case Dependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// LogMessageParams represents the parameters for a window/logMessage notification
type LogMessageParams struct {
	Type    MessageType    `json:"type"`
	Message string         `json:"message"`
	Source  string         `json:"source"`
	Raw     string         `json:"raw"`
	Extra   map[string]any `json:"extra"`
	Time    string         `json:"time"`
}

func MustParseLogMessageParams(msg any) LogMessageParams {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	var params LogMessageParams
	err = json.Unmarshal(msgBytes, &params)
	if err != nil {
		panic(err)
	}
	return params
}

func ParseMessageTypeFromZerolog(level string) MessageType {
	zlgLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return Unknown
	}
	switch zlgLevel {
	case zerolog.InfoLevel:
		return Info
	case zerolog.ErrorLevel:
		return Error
	case zerolog.WarnLevel:
		return Warning
	case zerolog.DebugLevel:
		return Debug
	case zerolog.TraceLevel:
		return Trace
	default:
		return Unknown
	}
}

// DiagnosticSeverity represents the severity of a diagnostic
type DiagnosticSeverity int

const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

func (ds DiagnosticSeverity) String() string {
	switch ds {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

type InitializeParams struct {
	ProcessID             int             `json:"processId,omitempty"`
	RootURI               string          `json:"rootUri"`
	InitializationOptions json.RawMessage `json:"initializationOptions,omitempty"`
}

// InitializationOptions is what a client may pass in initializationOptions
// and in workspace/didChangeConfiguration settings.
type InitializationOptions struct {
	Autocomplete  *completion.ConfigPatch   `json:"autocomplete,omitempty"`
	UserVariables []completion.UserVariable `json:"userVariables,omitempty"`
	VariableNames []string                  `json:"variableNames,omitempty"`
	KnownFields   []string                  `json:"knownFields,omitempty"`
	// SettingsFile is a YAML or HCL settings file read at initialize.
	SettingsFile string `json:"settingsFile,omitempty"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ServerInfo        `json:"serverInfo,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type ServerCapabilities struct {
	TextDocumentSync       TextDocumentSyncKind  `json:"textDocumentSync"`
	HoverProvider          bool                  `json:"hoverProvider"`
	CompletionProvider     CompletionOptions     `json:"completionProvider"`
	SignatureHelpProvider  SignatureHelpOptions  `json:"signatureHelpProvider"`
	SemanticTokensProvider SemanticTokensOptions `json:"semanticTokensProvider"`
}

// TextDocumentSyncKind mirrors TextDocumentSyncOptions; only full sync is
// supported.
type TextDocumentSyncKind struct {
	OpenClose bool `json:"openClose"`
	Change    int  `json:"change"`
}

const TextDocumentSyncFull = 1

type CompletionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
}

type SignatureHelpOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
}

type SemanticTokensLegend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`
}

type SemanticTokensOptions struct {
	Legend SemanticTokensLegend `json:"legend"`
	Full   bool                 `json:"full"`
	Range  bool                 `json:"range"`
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type DidChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

// Custom notifications an embedding editor uses to push script context.
const (
	MethodSetUserVariables = "qlik/setUserVariables"
	MethodSetKnownFields   = "qlik/setKnownFields"
)

// SetUserVariablesParams is the payload of qlik/setUserVariables. Variables
// wins over Names when both are set. An empty URI applies to every document.
type SetUserVariablesParams struct {
	URI       string                    `json:"uri,omitempty"`
	Variables []completion.UserVariable `json:"variables,omitempty"`
	Names     []string                  `json:"names,omitempty"`
}

// SetKnownFieldsParams is the payload of qlik/setKnownFields.
type SetKnownFieldsParams struct {
	URI    string   `json:"uri,omitempty"`
	Fields []string `json:"fields"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Version     int          `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type HoverParams = TextDocumentPositionParams

type SignatureHelpParams = TextDocumentPositionParams

type CompletionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
	Context      *CompletionContext     `json:"context,omitempty"`
}

type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

type SemanticTokensParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type SemanticTokensRangeParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
}

type SemanticTokens struct {
	Data []uint32 `json:"data"`
}

type ParameterInformation struct {
	Label string `json:"label"`
}

type SignatureInformation struct {
	Label         string                 `json:"label"`
	Documentation *MarkupContent         `json:"documentation,omitempty"`
	Parameters    []ParameterInformation `json:"parameters"`
}

type SignatureHelp struct {
	Signatures      []SignatureInformation `json:"signatures"`
	ActiveSignature int                    `json:"activeSignature"`
	ActiveParameter int                    `json:"activeParameter"`
}

// ParseHover parses a hover result from JSON
func ParseHover(msg any) (*Hover, error) {
	if msg == nil {
		return nil, nil
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Errorf("marshalling hover: %w", err)
	}
	var hover Hover
	err = json.Unmarshal(msgBytes, &hover)
	if err != nil {
		return nil, errors.Errorf("unmarshalling hover: %w", err)
	}
	return &hover, nil
}
