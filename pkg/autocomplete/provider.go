package autocomplete

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/walteh/qlikls/pkg/completion"
	"github.com/walteh/qlikls/pkg/completion/providers"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/position"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

// Handle is a registration held on behalf of the editor, such as a
// completion provider registered with a widget. Dispose releases it.
type Handle interface {
	Release() error
}

// HandleFunc adapts a plain function to Handle.
type HandleFunc func() error

func (f HandleFunc) Release() error { return f() }

// snapshot is replaced as a whole on every update and never mutated after it
// is published.
type snapshot struct {
	config    completion.Config
	variables []completion.UserVariable
	fields    []string
}

type Option func(*snapshot)

// WithConfig merges patch into the default config.
func WithConfig(patch completion.ConfigPatch) Option {
	return func(s *snapshot) {
		s.config = s.config.Merge(patch)
	}
}

func WithUserVariables(vars []completion.UserVariable) Option {
	return func(s *snapshot) {
		s.variables = append([]completion.UserVariable(nil), vars...)
	}
}

func WithKnownFields(fields []string) Option {
	return func(s *snapshot) {
		s.fields = append([]string(nil), fields...)
	}
}

// Provider is the completion state of one editor instance. Its setters may be
// called at any time; a request always sees either the old or the new state
// in full.
type Provider struct {
	logger    zerolog.Logger
	grammar   *grammar.Grammar
	analyzer  *completion.Analyzer
	tokenizer *tokenizer.Tokenizer

	state atomic.Pointer[snapshot]

	docMu sync.Mutex
	doc   *tokenizer.Document

	handleMu sync.Mutex
	handles  []Handle
	disposed bool
}

func New(ctx context.Context, g *grammar.Grammar, opts ...Option) *Provider {
	p := &Provider{
		logger:    zerolog.Ctx(ctx).With().Str("component", "autocomplete").Logger(),
		grammar:   g,
		analyzer:  completion.NewAnalyzer(g),
		tokenizer: tokenizer.New(g),
	}

	s := &snapshot{config: completion.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	p.state.Store(s)

	p.logger.Debug().
		Int("user_variables", len(s.variables)).
		Int("known_fields", len(s.fields)).
		Msg("autocomplete provider created")

	return p
}

func (p *Provider) Grammar() *grammar.Grammar {
	return p.grammar
}

func (p *Provider) update(fn func(next *snapshot)) {
	for {
		old := p.state.Load()
		next := *old
		fn(&next)
		if p.state.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetUserVariables replaces the user variable list.
func (p *Provider) SetUserVariables(vars []completion.UserVariable) {
	vars = append([]completion.UserVariable(nil), vars...)
	p.update(func(next *snapshot) {
		next.variables = vars
	})
	p.logger.Debug().Int("count", len(vars)).Msg("user variables replaced")
}

// SetVariableNames replaces the user variables with plain string variables.
func (p *Provider) SetVariableNames(names []string) {
	p.SetUserVariables(completion.UserVariablesFromNames(names))
}

// SetKnownFields replaces the field names offered inside "[".
func (p *Provider) SetKnownFields(fields []string) {
	fields = append([]string(nil), fields...)
	p.update(func(next *snapshot) {
		next.fields = fields
	})
	p.logger.Debug().Int("count", len(fields)).Msg("known fields replaced")
}

// UpdateConfig merges patch into the current config.
func (p *Provider) UpdateConfig(patch completion.ConfigPatch) {
	p.update(func(next *snapshot) {
		next.config = next.config.Merge(patch)
	})
	p.logger.Debug().Interface("config", p.Config()).Msg("autocomplete config updated")
}

func (p *Provider) Config() completion.Config {
	return p.state.Load().config.Clone()
}

func (p *Provider) UserVariables() []completion.UserVariable {
	return append([]completion.UserVariable(nil), p.state.Load().variables...)
}

func (p *Provider) request(ctx completion.EditContext) providers.Request {
	s := p.state.Load()
	return providers.Request{
		Context:       ctx,
		Grammar:       p.grammar,
		UserVariables: s.variables,
		KnownFields:   s.fields,
		Config:        s.config,
	}
}

// Complete classifies lineBeforeCursor and returns the ranked candidates.
func (p *Provider) Complete(lineBeforeCursor, word string) []completion.Candidate {
	return GetCompletions(p.request(p.analyzer.Classify(lineBeforeCursor, word)))
}

// Result is the answer to a document-level completion request.
type Result struct {
	Context    completion.EditContext `json:"context"`
	Candidates []completion.Candidate `json:"candidates"`
	// Replace is the span the chosen candidate overwrites, in byte columns.
	Replace position.Range `json:"replace"`
}

// ProvideCompletions answers a completion request for the cursor at pos in
// documentText. pos.Character is a byte column. A cursor inside a comment
// yields no candidates.
func (p *Provider) ProvideCompletions(documentText string, pos position.Place) Result {
	doc := p.document(documentText)

	line := doc.Line(pos.Line)
	col := position.ClampColumn(line, pos.Character)
	start, end, word := position.WordAt(line, col)

	replace := position.Range{
		Start: position.Place{Line: pos.Line, Character: start},
		End:   position.Place{Line: pos.Line, Character: end},
	}

	tok, ok := doc.TokenAt(pos.Line, col)
	inComment := ok && insideComment(tok, col, doc.StartState(pos.Line))
	if !ok && line == "" {
		inComment = doc.StartState(pos.Line) == tokenizer.StateInBlockComment
	}
	if inComment {
		return Result{
			Context: completion.EditContext{Kind: completion.ContextInsideComment, Anchor: -1, Word: word},
			Replace: replace,
		}
	}

	ec := p.analyzer.Classify(line[:col], word)

	var closer byte
	switch ec.Kind {
	case completion.ContextInsideVariable:
		closer = ')'
	case completion.ContextInsideField:
		closer = ']'
	}
	if closer != 0 {
		replace.Start.Character = ec.Anchor
		if end < len(line) && line[end] == closer {
			replace.End.Character = end + 1
		}
	}

	return Result{
		Context:    ec,
		Candidates: GetCompletions(p.request(ec)),
		Replace:    replace,
	}
}

// document updates the cached tokenized document to text and returns a
// private copy of it.
func (p *Provider) document(text string) *tokenizer.Document {
	p.docMu.Lock()
	defer p.docMu.Unlock()

	if p.doc == nil {
		p.doc = p.tokenizer.NewDocument(text)
	} else {
		p.doc.SetText(text)
	}
	return p.doc.Clone()
}

func insideComment(tok tokenizer.Token, col int, lineStart tokenizer.State) bool {
	if tok.Kind != tokenizer.KindComment {
		return false
	}
	continued := tok.Start == 0 && lineStart == tokenizer.StateInBlockComment
	if col <= tok.Start && !continued {
		return false
	}
	if col < tok.End {
		return true
	}
	// the cursor sits right after the comment
	return !strings.HasSuffix(tok.Text, "*/")
}

// Attach keeps h until Dispose. Attaching to a disposed provider releases h
// right away.
func (p *Provider) Attach(h Handle) {
	if h == nil {
		return
	}

	p.handleMu.Lock()
	if !p.disposed {
		p.handles = append(p.handles, h)
		p.handleMu.Unlock()
		return
	}
	p.handleMu.Unlock()

	if err := h.Release(); err != nil {
		p.logger.Warn().Err(err).Msg("releasing handle attached after dispose")
	}
}

// Dispose releases every attached handle. Only the first call does any work;
// later calls return nil.
func (p *Provider) Dispose() error {
	p.handleMu.Lock()
	if p.disposed {
		p.handleMu.Unlock()
		return nil
	}
	p.disposed = true
	handles := p.handles
	p.handles = nil
	p.handleMu.Unlock()

	var err error
	for _, h := range handles {
		err = multierr.Append(err, h.Release())
	}

	if err != nil {
		p.logger.Error().Err(err).Int("handles", len(handles)).Msg("releasing autocomplete handles")
	} else {
		p.logger.Debug().Int("handles", len(handles)).Msg("autocomplete provider disposed")
	}

	p.docMu.Lock()
	p.doc = nil
	p.docMu.Unlock()

	return err
}

// Disposed reports whether Dispose has been called.
func (p *Provider) Disposed() bool {
	p.handleMu.Lock()
	defer p.handleMu.Unlock()
	return p.disposed
}
