// Package diagnostic reports problems the tokenizer found in a script.
package diagnostic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

// Generator produces diagnostics for a tokenized document.
type Generator interface {
	Generate(ctx context.Context, doc *tokenizer.Document) *Diagnostics
}

// Diagnostics groups diagnostics by severity.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Hints    []Diagnostic
}

// Len is the total number of diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Hints)
}

// All returns errors, then warnings, then hints.
func (d *Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, 0, d.Len())
	out = append(out, d.Errors...)
	out = append(out, d.Warnings...)
	return append(out, d.Hints...)
}

// Diagnostic is a single message. Lines and columns are one-based; columns
// count bytes and EndCol is exclusive.
type Diagnostic struct {
	Message  string             `json:"message"`
	Line     int                `json:"line"`
	Column   int                `json:"column"`
	EndLine  int                `json:"endLine"`
	EndCol   int                `json:"endColumn"`
	Severity DiagnosticSeverity `json:"severity"`
}

type DiagnosticSeverity string

const (
	Error   DiagnosticSeverity = "error"
	Warning DiagnosticSeverity = "warning"
	Info    DiagnosticSeverity = "info"
	Hint    DiagnosticSeverity = "hint"
)

// LSP maps the severity to the protocol's numeric DiagnosticSeverity.
func (s DiagnosticSeverity) LSP() int {
	switch s {
	case Error:
		return 1
	case Warning:
		return 2
	case Info:
		return 3
	default:
		return 4
	}
}

// DefaultGenerator reports malformed tokens, an unclosed block comment at
// the end of the document and, when variables are known, references to
// variables nobody defined.
type DefaultGenerator struct {
	grammar *grammar.Grammar
	// variables is nil when the embedding application never told us which
	// variables exist; unknown references are only flagged otherwise.
	variables map[string]completion.UserVariable
}

func NewDefaultGenerator(g *grammar.Grammar, vars []completion.UserVariable) *DefaultGenerator {
	gen := &DefaultGenerator{grammar: g}
	if vars != nil {
		gen.variables = make(map[string]completion.UserVariable, len(vars))
		for _, v := range vars {
			gen.variables[v.Name] = v
		}
	}
	return gen
}

// Generate implements Generator.
func (g *DefaultGenerator) Generate(ctx context.Context, doc *tokenizer.Document) *Diagnostics {
	diagnostics := &Diagnostics{
		Errors:   make([]Diagnostic, 0),
		Warnings: make([]Diagnostic, 0),
	}

	var defined map[string]struct{}
	if g.variables != nil {
		defined = definedVariables(doc)
	}

	for line := 0; line < doc.LineCount(); line++ {
		for _, tok := range doc.Tokens(line) {
			switch tok.Kind {
			case tokenizer.KindInvalid:
				diagnostics.Errors = append(diagnostics.Errors, span(tok, invalidMessage(tok.Text), Error))
			case tokenizer.KindVariable:
				g.checkVariable(diagnostics, tok, defined)
			}
		}
	}

	if doc.EndState() == tokenizer.StateInBlockComment {
		if tok, ok := openingComment(doc); ok {
			diagnostics.Errors = append(diagnostics.Errors, span(tok, "unterminated block comment", Error))
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("errors", len(diagnostics.Errors)).
		Int("warnings", len(diagnostics.Warnings)).
		Msg("generated diagnostics")

	return diagnostics
}

func (g *DefaultGenerator) checkVariable(d *Diagnostics, tok tokenizer.Token, defined map[string]struct{}) {
	if g.variables == nil {
		return
	}

	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok.Text, "$("), ")"))
	if !isPlainName(name) {
		// expressions like $(=Max(x)) or parameterised calls
		return
	}

	if v, ok := g.variables[name]; ok {
		if v.Deprecated {
			d.Hints = append(d.Hints, span(tok, fmt.Sprintf("variable %s is deprecated", name), Hint))
		}
		return
	}
	if _, ok := defined[name]; ok {
		return
	}
	if g.grammar != nil {
		if _, ok := g.grammar.SystemVariable(name); ok {
			return
		}
	}
	d.Warnings = append(d.Warnings, span(tok, fmt.Sprintf("unknown variable %s", name), Warning))
}

// definedVariables collects the names assigned by LET and SET anywhere in
// doc. The target is the first word after the keyword, possibly on a later
// line.
func definedVariables(doc *tokenizer.Document) map[string]struct{} {
	defined := make(map[string]struct{})
	pending := false
	for line := 0; line < doc.LineCount(); line++ {
		for _, tok := range doc.Tokens(line) {
			switch tok.Kind {
			case tokenizer.KindWhitespace, tokenizer.KindComment:
				continue
			case tokenizer.KindKeyword:
				if strings.EqualFold(tok.Text, "LET") || strings.EqualFold(tok.Text, "SET") {
					pending = true
					continue
				}
				if pending {
					defined[tok.Text] = struct{}{}
				}
			case tokenizer.KindIdentifier, tokenizer.KindFunction:
				if pending {
					defined[tok.Text] = struct{}{}
				}
			}
			pending = false
		}
	}
	return defined
}

func isPlainName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func invalidMessage(text string) string {
	switch {
	case strings.HasPrefix(text, "'") || strings.HasPrefix(text, `"`):
		return "unterminated string literal"
	case strings.HasPrefix(text, "$("):
		return "unterminated variable expansion"
	case strings.HasPrefix(text, "["):
		return "unterminated field reference"
	default:
		return fmt.Sprintf("unexpected character %q", text)
	}
}

// openingComment finds the "/*" token that is still open at the end of doc.
func openingComment(doc *tokenizer.Document) (tokenizer.Token, bool) {
	line := doc.LineCount() - 1
	for line > 0 && doc.StartState(line) == tokenizer.StateInBlockComment {
		line--
	}
	toks := doc.Tokens(line)
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].Kind == tokenizer.KindComment && strings.HasPrefix(toks[i].Text, "/*") {
			return toks[i], true
		}
	}
	return tokenizer.Token{}, false
}

func span(tok tokenizer.Token, msg string, sev DiagnosticSeverity) Diagnostic {
	return Diagnostic{
		Message:  msg,
		Line:     tok.Line + 1,
		Column:   tok.Start + 1,
		EndLine:  tok.Line + 1,
		EndCol:   tok.End + 1,
		Severity: sev,
	}
}

// Formatter formats diagnostics into different output formats
type Formatter interface {
	Format(diagnostics *Diagnostics) ([]byte, error)
}

// VSCodeFormatter formats diagnostics into VSCode-compatible format
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type vscodeRange struct {
	Start vscodePosition `json:"start"`
	End   vscodePosition `json:"end"`
}

type vscodeDiagnostic struct {
	Severity int         `json:"severity"`
	Message  string      `json:"message"`
	Source   string      `json:"source"`
	Range    vscodeRange `json:"range"`
}

// Format implements Formatter. Positions become zero-based.
func (f *VSCodeFormatter) Format(diagnostics *Diagnostics) ([]byte, error) {
	if diagnostics == nil {
		return nil, errors.Errorf("diagnostics is nil")
	}

	result := make([]vscodeDiagnostic, 0, diagnostics.Len())
	for _, d := range diagnostics.All() {
		result = append(result, vscodeDiagnostic{
			Severity: d.Severity.LSP(),
			Message:  d.Message,
			Source:   "qlikls",
			Range: vscodeRange{
				Start: vscodePosition{Line: d.Line - 1, Character: d.Column - 1},
				End:   vscodePosition{Line: d.EndLine - 1, Character: d.EndCol - 1},
			},
		})
	}

	return json.Marshal(result)
}
