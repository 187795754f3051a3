package tokenizer

import (
	"github.com/walteh/qlikls/pkg/position"
)

// Document caches per-line tokens and scanner states for a whole script so
// that edits only re-tokenize the lines they touch, plus whatever follows
// until the carried state settles again.
type Document struct {
	tok    *Tokenizer
	lines  []string
	starts []State
	ends   []State
	tokens [][]Token
}

// NewDocument tokenizes text in full.
func (t *Tokenizer) NewDocument(text string) *Document {
	d := &Document{tok: t}
	d.SetText(text)
	return d
}

// SetText replaces the document content and returns how many lines had to be
// re-tokenized. Unchanged leading lines are kept as they are; unchanged
// trailing lines are reused as soon as their start state matches the cached
// one.
func (d *Document) SetText(text string) int {
	next := position.SplitLines(text)

	prefix := 0
	for prefix < len(next) && prefix < len(d.lines) && next[prefix] == d.lines[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(next)-prefix && suffix < len(d.lines)-prefix &&
		next[len(next)-1-suffix] == d.lines[len(d.lines)-1-suffix] {
		suffix++
	}

	starts := make([]State, len(next))
	ends := make([]State, len(next))
	tokens := make([][]Token, len(next))

	copy(starts, d.starts[:prefix])
	copy(ends, d.ends[:prefix])
	copy(tokens, d.tokens[:prefix])

	state := StateRoot
	if prefix > 0 {
		state = ends[prefix-1]
	}

	retokenized := 0
	reuse := false
	oldOffset := len(d.lines) - len(next)

	for i := prefix; i < len(next); i++ {
		if i >= len(next)-suffix {
			old := i + oldOffset
			if reuse || d.starts[old] == state {
				reuse = true
				starts[i] = d.starts[old]
				ends[i] = d.ends[old]
				tokens[i] = restamp(d.tokens[old], i)
				state = ends[i]
				continue
			}
		}

		starts[i] = state
		tokens[i], ends[i] = d.tok.tokenizeLine(next[i], i, state)
		state = ends[i]
		retokenized++
	}

	d.lines, d.starts, d.ends, d.tokens = next, starts, ends, tokens
	return retokenized
}

// UpdateLine replaces a single line and returns how many lines were
// re-tokenized. Out of range indexes are ignored.
func (d *Document) UpdateLine(index int, text string) int {
	if index < 0 || index >= len(d.lines) {
		return 0
	}
	d.lines[index] = text

	retokenized := 0
	state := d.starts[index]
	for i := index; i < len(d.lines); i++ {
		if i > index && d.starts[i] == state {
			break
		}
		d.starts[i] = state
		d.tokens[i], d.ends[i] = d.tok.tokenizeLine(d.lines[i], i, state)
		state = d.ends[i]
		retokenized++
	}
	return retokenized
}

func (t *Tokenizer) tokenizeLine(line string, index int, start State) ([]Token, State) {
	toks, end := t.Tokenize(line, start)
	return restamp(toks, index), end
}

func restamp(toks []Token, line int) []Token {
	if len(toks) == 0 || toks[0].Line == line {
		return toks
	}
	out := make([]Token, len(toks))
	for i, tok := range toks {
		tok.Line = line
		out[i] = tok
	}
	return out
}

// Clone returns an independent copy. Per-line token slices are never
// modified in place, so they are shared.
func (d *Document) Clone() *Document {
	return &Document{
		tok:    d.tok,
		lines:  append([]string(nil), d.lines...),
		starts: append([]State(nil), d.starts...),
		ends:   append([]State(nil), d.ends...),
		tokens: append([][]Token(nil), d.tokens...),
	}
}

// LineCount is the number of lines in the document.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line returns the text of line i, or "" when out of range.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// Tokens returns the tokens of line i.
func (d *Document) Tokens(i int) []Token {
	if i < 0 || i >= len(d.tokens) {
		return nil
	}
	return d.tokens[i]
}

// StartState is the scanner state at the beginning of line i.
func (d *Document) StartState(i int) State {
	if i < 0 || i >= len(d.starts) {
		return StateRoot
	}
	return d.starts[i]
}

// EndState is the state after the last line.
func (d *Document) EndState() State {
	if len(d.ends) == 0 {
		return StateRoot
	}
	return d.ends[len(d.ends)-1]
}

// All returns every token of the document in order.
func (d *Document) All() []Token {
	var out []Token
	for _, toks := range d.tokens {
		out = append(out, toks...)
	}
	return out
}

// TokenAt returns the token under the byte column col of line. When the
// cursor sits between two tokens the left one wins, unless it is whitespace.
func (d *Document) TokenAt(line, col int) (Token, bool) {
	toks := d.Tokens(line)
	var found *Token
	for i := range toks {
		if !toks[i].Contains(col) {
			continue
		}
		if found == nil || found.Kind == KindWhitespace {
			found = &toks[i]
		}
	}
	if found == nil {
		return Token{}, false
	}
	return *found, true
}
