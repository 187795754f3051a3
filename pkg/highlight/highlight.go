// Package highlight renders tokenized scripts through chroma formatters, so
// the CLI can print coloured script text to a terminal or as HTML.
package highlight

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/qlikls/pkg/tokenizer"
)

// TokenType maps a script token to the chroma token type used to colour it.
func TokenType(tok tokenizer.Token) chroma.TokenType {
	switch tok.Kind {
	case tokenizer.KindKeyword:
		return chroma.Keyword
	case tokenizer.KindFunction:
		return chroma.NameBuiltin
	case tokenizer.KindVariable:
		return chroma.NameVariable
	case tokenizer.KindField:
		return chroma.NameAttribute
	case tokenizer.KindString:
		return chroma.LiteralString
	case tokenizer.KindNumber:
		switch tok.Number {
		case tokenizer.NumberFloat:
			return chroma.LiteralNumberFloat
		case tokenizer.NumberHex:
			return chroma.LiteralNumberHex
		case tokenizer.NumberOctal:
			return chroma.LiteralNumberOct
		case tokenizer.NumberBinary:
			return chroma.LiteralNumberBin
		default:
			return chroma.LiteralNumberInteger
		}
	case tokenizer.KindComment:
		return chroma.Comment
	case tokenizer.KindOperator:
		return chroma.Operator
	case tokenizer.KindDelimiter:
		return chroma.Punctuation
	case tokenizer.KindIdentifier:
		return chroma.Name
	case tokenizer.KindInvalid:
		return chroma.Error
	default:
		return chroma.TextWhitespace
	}
}

// Tokens converts a whole document to chroma tokens, with newlines between
// lines.
func Tokens(doc *tokenizer.Document) []chroma.Token {
	var out []chroma.Token
	for i := 0; i < doc.LineCount(); i++ {
		if i > 0 {
			out = append(out, chroma.Token{Type: chroma.TextWhitespace, Value: "\n"})
		}
		for _, tok := range doc.Tokens(i) {
			out = append(out, chroma.Token{Type: TokenType(tok), Value: tok.Text})
		}
	}
	return out
}

// Render writes doc to w with the named chroma formatter and style. Unknown
// names fall back to chroma's defaults.
func Render(w io.Writer, doc *tokenizer.Document, formatterName, styleName string) error {
	formatter := formatters.Get(formatterName)
	style := styles.Get(styleName)

	if err := formatter.Format(w, style, chroma.Literator(Tokens(doc)...)); err != nil {
		return errors.Errorf("formatting with %s: %w", formatterName, err)
	}
	return nil
}
