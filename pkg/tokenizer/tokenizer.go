// Package tokenizer splits Qlik load script into classified tokens, one line
// at a time, carrying a small resumable state between lines so that an editor
// can re-tokenize only the lines that changed.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/walteh/qlikls/pkg/grammar"
)

// Tokenizer classifies script text against a grammar. It holds no per-call
// state and is safe for concurrent use.
type Tokenizer struct {
	grammar *grammar.Grammar
}

func New(g *grammar.Grammar) *Tokenizer {
	return &Tokenizer{grammar: g}
}

// Grammar returns the grammar the tokenizer classifies against.
func (t *Tokenizer) Grammar() *grammar.Grammar {
	return t.grammar
}

// Tokenize scans one line starting in the given state. The returned tokens are
// contiguous and cover the whole line. It never panics: malformed spans come
// back as KindInvalid and scanning continues.
func (t *Tokenizer) Tokenize(line string, start State) ([]Token, State) {
	s := &scanner{
		grammar:        t.grammar,
		src:            line,
		statementStart: true,
	}
	return s.run(start)
}

type scanner struct {
	grammar *grammar.Grammar
	src     string
	pos     int
	tokens  []Token

	// statementStart is true until the first significant token of a statement,
	// which is where REM starts a comment.
	statementStart bool
}

func (s *scanner) emit(kind Kind, end int) {
	if end <= s.pos {
		return
	}
	s.tokens = append(s.tokens, Token{
		Kind:  kind,
		Text:  s.src[s.pos:end],
		Start: s.pos,
		End:   end,
	})
	if kind != KindWhitespace && kind != KindComment {
		s.statementStart = false
	}
	s.pos = end
}

func (s *scanner) emitNumber(kind NumberKind, end int) {
	s.emit(KindNumber, end)
	s.tokens[len(s.tokens)-1].Number = kind
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *scanner) run(state State) ([]Token, State) {
	if state == StateInBlockComment {
		idx := strings.Index(s.src, "*/")
		if idx < 0 {
			s.emit(KindComment, len(s.src))
			return s.tokens, StateInBlockComment
		}
		s.emit(KindComment, idx+2)
	}

	for s.pos < len(s.src) {
		c := s.src[s.pos]
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])

		switch {
		case c == '$' && s.peek(1) == '(':
			s.scanVariable()
		case isIdentStart(r):
			s.scanIdentifier()
		case c == '[':
			s.scanField()
		case unicode.IsSpace(r):
			s.scanWhitespace()
		case c == '/' && s.peek(1) == '/':
			s.emit(KindComment, len(s.src))
		case c == '/' && s.peek(1) == '*':
			if !s.scanBlockComment() {
				return s.tokens, StateInBlockComment
			}
		case isDigit(c) || (c == '.' && isDigit(s.peek(1))):
			s.scanNumber()
		case isBracket(c) || c == ',' || c == ';':
			s.emit(KindDelimiter, s.pos+1)
			if c == ';' {
				s.statementStart = true
			}
		case c == '\'' || c == '"':
			s.scanString(c)
		case isSymbol(c):
			s.scanOperator()
		default:
			s.emit(KindInvalid, s.pos+size)
		}
	}

	return s.tokens, StateRoot
}

func (s *scanner) scanWhitespace() {
	end := s.pos
	for end < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[end:])
		if !unicode.IsSpace(r) {
			break
		}
		end += size
	}
	s.emit(KindWhitespace, end)
}

func (s *scanner) scanIdentifier() {
	end := s.pos
	for end < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[end:])
		if end == s.pos && !isIdentStart(r) {
			break
		}
		if end > s.pos && !isIdentPart(r) {
			break
		}
		end += size
	}

	word := s.src[s.pos:end]

	if s.statementStart && strings.EqualFold(word, "REM") && (end == len(s.src) || isSpaceByte(s.src[end])) {
		s.emit(KindComment, len(s.src))
		return
	}

	// Num#, Date# and friends
	if end < len(s.src) && s.src[end] == '#' && s.grammar.IsFunction(word+"#") {
		end++
		word = s.src[s.pos:end]
	}

	isKeyword := s.grammar.IsKeyword(word)
	isFunction := s.grammar.IsFunction(word)

	switch {
	case isKeyword && isFunction:
		if s.callFollows(end) {
			s.emit(KindFunction, end)
		} else {
			s.emit(KindKeyword, end)
		}
	case isKeyword:
		s.emit(KindKeyword, end)
	case isFunction:
		s.emit(KindFunction, end)
	default:
		s.emit(KindIdentifier, end)
	}
}

// callFollows reports whether the next non-blank byte after end is '('.
func (s *scanner) callFollows(end int) bool {
	for i := end; i < len(s.src); i++ {
		if isSpaceByte(s.src[i]) {
			continue
		}
		return s.src[i] == '('
	}
	return false
}

func (s *scanner) scanVariable() {
	depth := 0
	for i := s.pos + 1; i < len(s.src); i++ {
		switch s.src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				s.emit(KindVariable, i+1)
				return
			}
		}
	}
	s.emit(KindInvalid, len(s.src))
}

func (s *scanner) scanField() {
	idx := strings.IndexByte(s.src[s.pos+1:], ']')
	if idx < 0 {
		s.emit(KindInvalid, len(s.src))
		return
	}
	s.emit(KindField, s.pos+1+idx+1)
}

// scanBlockComment returns false when the comment runs past the end of line.
func (s *scanner) scanBlockComment() bool {
	idx := strings.Index(s.src[s.pos+2:], "*/")
	if idx < 0 {
		s.emit(KindComment, len(s.src))
		return false
	}
	s.emit(KindComment, s.pos+2+idx+2)
	return true
}

func (s *scanner) scanString(quote byte) {
	// StateInString: only escapes and the closing quote matter here.
	for i := s.pos + 1; i < len(s.src); i++ {
		switch s.src[i] {
		case '\\':
			i++
		case quote:
			s.emit(KindString, i+1)
			return
		}
	}
	s.emit(KindInvalid, len(s.src))
}

func (s *scanner) scanNumber() {
	src := s.src
	start := s.pos

	if src[start] == '0' && start+1 < len(src) {
		switch src[start+1] {
		case 'x', 'X':
			if end := scanDigits(src, start+2, isHexDigit); end > start+2 {
				s.emitNumber(NumberHex, end)
				return
			}
		case 'b', 'B':
			if end := scanDigits(src, start+2, isBinaryDigit); end > start+2 {
				s.emitNumber(NumberBinary, end)
				return
			}
		case 'o', 'O':
			if end := scanDigits(src, start+2, isOctalDigit); end > start+2 {
				s.emitNumber(NumberOctal, end)
				return
			}
		}
	}

	kind := NumberInteger
	end := scanDigits(src, start, isDigit)

	if end < len(src) && src[end] == '.' && end+1 < len(src) && isDigit(src[end+1]) {
		kind = NumberFloat
		end = scanDigits(src, end+1, isDigit)
	}

	if end < len(src) && (src[end] == 'e' || src[end] == 'E') {
		exp := end + 1
		if exp < len(src) && (src[exp] == '+' || src[exp] == '-') {
			exp++
		}
		if expEnd := scanDigits(src, exp, isDigit); expEnd > exp {
			kind = NumberFloat
			end = expEnd
		}
	}

	if kind == NumberInteger && end-start > 1 && src[start] == '0' && scanDigits(src, start, isOctalDigit) == end {
		kind = NumberOctal
	}

	s.emitNumber(kind, end)
}

func (s *scanner) scanOperator() {
	run := s.pos
	for run < len(s.src) && isSymbol(s.src[run]) {
		run++
	}

	longest := s.grammar.MaxOperatorLen()
	if run-s.pos < longest {
		longest = run - s.pos
	}

	for l := longest; l > 0; l-- {
		if s.grammar.IsOperator(s.src[s.pos : s.pos+l]) {
			s.emit(KindOperator, s.pos+l)
			return
		}
	}

	s.emit(KindInvalid, s.pos+1)
}

func scanDigits(src string, from int, ok func(byte) bool) int {
	i := from
	for i < len(src) && ok(src[i]) {
		i++
	}
	return i
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(c byte) bool       { return c >= '0' && c <= '9' }
func isOctalDigit(c byte) bool  { return c >= '0' && c <= '7' }
func isBinaryDigit(c byte) bool { return c == '0' || c == '1' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v'
}

func isBracket(c byte) bool {
	switch c {
	case '(', ')', '{', '}', ']':
		return true
	}
	return false
}

func isSymbol(c byte) bool {
	return strings.IndexByte("=><!~?:&|+-*/^%.@#", c) >= 0
}
