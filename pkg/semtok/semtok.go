package semtok

import (
	"sort"
	"strings"

	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/position"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

// GetTokensForDocument returns the semantic tokens of every line in doc.
func GetTokensForDocument(g *grammar.Grammar, doc *tokenizer.Document) []Token {
	var out []Token
	for i := 0; i < doc.LineCount(); i++ {
		out = append(out, FromTokens(g, doc.Tokens(i))...)
	}
	return out
}

// GetTokensForRange is GetTokensForDocument restricted to lines
// [startLine, endLine].
func GetTokensForRange(g *grammar.Grammar, doc *tokenizer.Document, startLine, endLine int) []Token {
	var out []Token
	for i := max(startLine, 0); i <= endLine && i < doc.LineCount(); i++ {
		out = append(out, FromTokens(g, doc.Tokens(i))...)
	}
	return out
}

// FromTokens maps tokenizer tokens to semantic tokens, dropping kinds that
// carry no colour.
func FromTokens(g *grammar.Grammar, toks []tokenizer.Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, tok := range toks {
		st := Token{
			Line:      tok.Line,
			Character: tok.Start,
			Length:    tok.End - tok.Start,
		}

		switch tok.Kind {
		case tokenizer.KindKeyword:
			st.Type = TokenKeyword
		case tokenizer.KindFunction:
			st.Type = TokenFunction
			st.Modifier = ModifierDefaultLibrary
		case tokenizer.KindVariable:
			st.Type = TokenVariable
			if g != nil {
				if _, ok := g.SystemVariable(variableName(tok.Text)); ok {
					st.Modifier = ModifierReadonly
				}
			}
		case tokenizer.KindField:
			st.Type = TokenProperty
		case tokenizer.KindString:
			st.Type = TokenString
		case tokenizer.KindNumber:
			st.Type = TokenNumber
		case tokenizer.KindComment:
			st.Type = TokenComment
		case tokenizer.KindOperator:
			st.Type = TokenOperator
		default:
			continue
		}

		out = append(out, st)
	}
	return out
}

func variableName(text string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "$("), ")"))
}

// Encode produces the LSP relative encoding. lines are the document lines
// the tokens were computed from; they are needed to express columns in
// UTF-16 code units.
func Encode(tokens []Token, lines []string) []uint32 {
	sorted := append([]Token(nil), tokens...)
	// LSP requires tokens to be sorted by line and character
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Character < sorted[j].Character
	})

	data := make([]uint32, 0, len(sorted)*5)
	var prevLine, prevChar uint32

	for _, tok := range sorted {
		if tok.Line < 0 || tok.Line >= len(lines) {
			continue
		}
		text := lines[tok.Line]

		line := uint32(tok.Line)
		char := uint32(position.UTF16Column(text, tok.Character))
		length := uint32(position.UTF16Column(text, tok.Character+tok.Length)) - char

		deltaLine := line - prevLine
		deltaChar := char
		if deltaLine == 0 {
			deltaChar = char - prevChar
		}

		// [deltaLine, deltaChar, length, tokenType, tokenModifiers]
		data = append(data, deltaLine, deltaChar, length, uint32(tok.Type), uint32(tok.Modifier))

		prevLine = line
		prevChar = char
	}

	return data
}
