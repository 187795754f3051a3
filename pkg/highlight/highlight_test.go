package highlight_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/highlight"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

func newDoc(t *testing.T, text string) *tokenizer.Document {
	t.Helper()
	return tokenizer.New(grammar.MustLoad(context.Background())).NewDocument(text)
}

func TestTokens(t *testing.T) {
	doc := newDoc(t, "LOAD Sum(0x1F) // c\n'x'")

	got := highlight.Tokens(doc)
	want := []chroma.Token{
		{Type: chroma.Keyword, Value: "LOAD"},
		{Type: chroma.TextWhitespace, Value: " "},
		{Type: chroma.NameBuiltin, Value: "Sum"},
		{Type: chroma.Punctuation, Value: "("},
		{Type: chroma.LiteralNumberHex, Value: "0x1F"},
		{Type: chroma.Punctuation, Value: ")"},
		{Type: chroma.TextWhitespace, Value: " "},
		{Type: chroma.Comment, Value: "// c"},
		{Type: chroma.TextWhitespace, Value: "\n"},
		{Type: chroma.LiteralString, Value: "'x'"},
	}
	assert.Equal(t, want, got)
}

func TestRender(t *testing.T) {
	script := "LOAD [a], $(v)\n/* c */ x = 1.5;"
	doc := newDoc(t, script)

	tests := []struct {
		name      string
		formatter string
		check     func(t *testing.T, out string)
	}{
		{
			name:      "noop reproduces the text",
			formatter: "noop",
			check: func(t *testing.T, out string) {
				assert.Equal(t, script, out)
			},
		},
		{
			name:      "terminal adds escapes",
			formatter: "terminal256",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "\x1b[")
				assert.Contains(t, out, "LOAD")
			},
		},
		{
			name:      "html",
			formatter: "html",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "<pre")
				assert.Contains(t, out, "$(v)")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, highlight.Render(&buf, doc, tt.formatter, "monokai"))
			tt.check(t, buf.String())
		})
	}
}
