package tokenizer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

func newTokenizer(t *testing.T) *tokenizer.Tokenizer {
	t.Helper()
	g, err := grammar.Load(context.Background())
	require.NoError(t, err, "loading grammar")
	return tokenizer.New(g)
}

type kt struct {
	kind tokenizer.Kind
	text string
}

func simplify(toks []tokenizer.Token) []kt {
	out := make([]kt, 0, len(toks))
	for _, tok := range toks {
		out = append(out, kt{kind: tok.Kind, text: tok.Text})
	}
	return out
}

func TestTokenize(t *testing.T) {
	tok := newTokenizer(t)

	tests := []struct {
		name      string
		line      string
		start     tokenizer.State
		want      []kt
		wantState tokenizer.State
	}{
		{
			name: "line_comment",
			line: "// comment",
			want: []kt{{tokenizer.KindComment, "// comment"}},
		},
		{
			name: "keyword_and_identifier",
			line: "LOAD x",
			want: []kt{
				{tokenizer.KindKeyword, "LOAD"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindIdentifier, "x"},
			},
		},
		{
			name:      "block_comment_opens",
			line:      "/* start",
			want:      []kt{{tokenizer.KindComment, "/* start"}},
			wantState: tokenizer.StateInBlockComment,
		},
		{
			name:      "block_comment_continues",
			line:      " still in comment",
			start:     tokenizer.StateInBlockComment,
			want:      []kt{{tokenizer.KindComment, " still in comment"}},
			wantState: tokenizer.StateInBlockComment,
		},
		{
			name:  "block_comment_closes",
			line:  " end */ LOAD",
			start: tokenizer.StateInBlockComment,
			want: []kt{
				{tokenizer.KindComment, " end */"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindKeyword, "LOAD"},
			},
		},
		{
			name: "inline_block_comment",
			line: "LOAD /* x */ y",
			want: []kt{
				{tokenizer.KindKeyword, "LOAD"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindComment, "/* x */"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindIdentifier, "y"},
			},
		},
		{
			name: "unterminated_string",
			line: "LOAD 'abc",
			want: []kt{
				{tokenizer.KindKeyword, "LOAD"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindInvalid, "'abc"},
			},
		},
		{
			name: "escaped_quote",
			line: `'it\'s' "x"`,
			want: []kt{
				{tokenizer.KindString, `'it\'s'`},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindString, `"x"`},
			},
		},
		{
			name: "variable_and_field",
			line: "$(vYear) [Order Date]",
			want: []kt{
				{tokenizer.KindVariable, "$(vYear)"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindField, "[Order Date]"},
			},
		},
		{
			name: "nested_variable",
			line: "$(=Max($(vField)))",
			want: []kt{{tokenizer.KindVariable, "$(=Max($(vField)))"}},
		},
		{
			name: "unterminated_variable",
			line: "x = $(vYe",
			want: []kt{
				{tokenizer.KindIdentifier, "x"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindOperator, "="},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindInvalid, "$(vYe"},
			},
		},
		{
			name: "unterminated_field",
			line: "[Order",
			want: []kt{{tokenizer.KindInvalid, "[Order"}},
		},
		{
			name: "function_call",
			line: "Sum(Amount)",
			want: []kt{
				{tokenizer.KindFunction, "Sum"},
				{tokenizer.KindDelimiter, "("},
				{tokenizer.KindIdentifier, "Amount"},
				{tokenizer.KindDelimiter, ")"},
			},
		},
		{
			name: "hash_function",
			line: "Date#(x)",
			want: []kt{
				{tokenizer.KindFunction, "Date#"},
				{tokenizer.KindDelimiter, "("},
				{tokenizer.KindIdentifier, "x"},
				{tokenizer.KindDelimiter, ")"},
			},
		},
		{
			name: "left_join_is_keyword",
			line: "LEFT JOIN",
			want: []kt{
				{tokenizer.KindKeyword, "LEFT"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindKeyword, "JOIN"},
			},
		},
		{
			name: "left_call_is_function",
			line: "Left (x, 2)",
			want: []kt{
				{tokenizer.KindFunction, "Left"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindDelimiter, "("},
				{tokenizer.KindIdentifier, "x"},
				{tokenizer.KindDelimiter, ","},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindNumber, "2"},
				{tokenizer.KindDelimiter, ")"},
			},
		},
		{
			name: "rem_comment",
			line: "  REM this is ignored; LOAD",
			want: []kt{
				{tokenizer.KindWhitespace, "  "},
				{tokenizer.KindComment, "REM this is ignored; LOAD"},
			},
		},
		{
			name: "rem_after_semicolon",
			line: "x; REM rest",
			want: []kt{
				{tokenizer.KindIdentifier, "x"},
				{tokenizer.KindDelimiter, ";"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindComment, "REM rest"},
			},
		},
		{
			name: "rem_mid_statement_is_identifier",
			line: "LOAD REM",
			want: []kt{
				{tokenizer.KindKeyword, "LOAD"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindIdentifier, "REM"},
			},
		},
		{
			name: "operators",
			line: "a<>b<=c&d",
			want: []kt{
				{tokenizer.KindIdentifier, "a"},
				{tokenizer.KindOperator, "<>"},
				{tokenizer.KindIdentifier, "b"},
				{tokenizer.KindOperator, "<="},
				{tokenizer.KindIdentifier, "c"},
				{tokenizer.KindOperator, "&"},
				{tokenizer.KindIdentifier, "d"},
			},
		},
		{
			name: "unknown_symbol",
			line: "a @ b",
			want: []kt{
				{tokenizer.KindIdentifier, "a"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindInvalid, "@"},
				{tokenizer.KindWhitespace, " "},
				{tokenizer.KindIdentifier, "b"},
			},
		},
		{
			name: "empty_line",
			line: "",
			want: []kt{},
		},
		{
			name:      "empty_line_keeps_comment_state",
			line:      "",
			start:     tokenizer.StateInBlockComment,
			want:      []kt{},
			wantState: tokenizer.StateInBlockComment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, state := tok.Tokenize(tt.line, tt.start)
			assert.Equal(t, tt.want, simplify(toks), "tokens should match")
			assert.Equal(t, tt.wantState, state, "end state should match")
		})
	}
}

func TestNumbers(t *testing.T) {
	tok := newTokenizer(t)

	tests := []struct {
		name string
		text string
		kind tokenizer.NumberKind
	}{
		{name: "integer", text: "42", kind: tokenizer.NumberInteger},
		{name: "zero", text: "0", kind: tokenizer.NumberInteger},
		{name: "float", text: "3.14", kind: tokenizer.NumberFloat},
		{name: "leading_dot", text: ".5", kind: tokenizer.NumberFloat},
		{name: "scientific", text: "1.5E-3", kind: tokenizer.NumberFloat},
		{name: "scientific_integer", text: "2e10", kind: tokenizer.NumberFloat},
		{name: "hex", text: "0x1F", kind: tokenizer.NumberHex},
		{name: "binary", text: "0b1010", kind: tokenizer.NumberBinary},
		{name: "octal_prefix", text: "0o17", kind: tokenizer.NumberOctal},
		{name: "octal_leading_zero", text: "017", kind: tokenizer.NumberOctal},
		{name: "not_octal", text: "019", kind: tokenizer.NumberInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, _ := tok.Tokenize(tt.text, tokenizer.StateRoot)
			require.Len(t, toks, 1, "expected a single token for %q", tt.text)
			assert.Equal(t, tokenizer.KindNumber, toks[0].Kind)
			assert.Equal(t, tt.text, toks[0].Text)
			assert.Equal(t, tt.kind, toks[0].Number)
		})
	}
}

var coverageLines = []string{
	"LOAD CustomerID, Sum(Amount) AS Total",
	"FROM [lib://Data/sales.qvd] (qvd) WHERE Year(OrderDate) >= $(vCurrentYear);",
	"LET vName = 'it''s' & \"quoted\" // trailing",
	"SET x = 0x1F + 1.5e3 - .25 * 0b11 / 017;",
	"LOAD 'abc",
	"[unterminated field",
	"$(unterminated",
	"/* open comment",
	"closing */ REM trailing",
	"weird ¿ chars € and émoji 😀 @#~",
	"\t\t  ",
	"",
	"\xff\xfe invalid utf8",
	"IF x THEN /* a */ /* b",
}

func TestCoverageInvariant(t *testing.T) {
	tok := newTokenizer(t)

	for _, start := range []tokenizer.State{tokenizer.StateRoot, tokenizer.StateInBlockComment} {
		for _, line := range coverageLines {
			toks, _ := tok.Tokenize(line, start)

			var sb strings.Builder
			prevEnd := 0
			for _, tk := range toks {
				require.Equal(t, prevEnd, tk.Start, "gap or overlap in %q", line)
				require.Greater(t, tk.End, tk.Start, "empty token in %q", line)
				require.Equal(t, line[tk.Start:tk.End], tk.Text)
				prevEnd = tk.End
				sb.WriteString(tk.Text)
			}
			assert.Equal(t, line, sb.String(), "tokens must reconstruct %q", line)
		}
	}
}

func TestIdempotence(t *testing.T) {
	tok := newTokenizer(t)

	for _, line := range coverageLines {
		for _, start := range []tokenizer.State{tokenizer.StateRoot, tokenizer.StateInBlockComment} {
			a, aState := tok.Tokenize(line, start)
			b, bState := tok.Tokenize(line, start)
			assert.Equal(t, a, b, "tokens for %q", line)
			assert.Equal(t, aState, bState, "state for %q", line)
		}
	}
}

func TestNeverReturnsStringState(t *testing.T) {
	tok := newTokenizer(t)

	for _, line := range []string{"'open", `"open`, `'a\`, "'"} {
		_, state := tok.Tokenize(line, tokenizer.StateRoot)
		assert.Equal(t, tokenizer.StateRoot, state, "unterminated string %q must not leak state", line)
	}
}
