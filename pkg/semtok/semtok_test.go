package semtok_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/qlikls/pkg/grammar"
	"github.com/walteh/qlikls/pkg/position"
	"github.com/walteh/qlikls/pkg/semtok"
	"github.com/walteh/qlikls/pkg/tokenizer"
)

func TestGetTokensForDocument(t *testing.T) {
	g := grammar.MustLoad(context.Background())
	tok := tokenizer.New(g)

	tests := []struct {
		name     string
		input    string
		expected []semtok.Token
	}{
		{
			name:  "test_keyword_and_function",
			input: "LOAD Sum(x)",
			expected: []semtok.Token{
				{Type: semtok.TokenKeyword, Line: 0, Character: 0, Length: 4},
				{Type: semtok.TokenFunction, Modifier: semtok.ModifierDefaultLibrary, Line: 0, Character: 5, Length: 3},
			},
		},
		{
			name:  "test_system_variable_is_readonly",
			input: "$(vToday) $(vMine)",
			expected: []semtok.Token{
				{Type: semtok.TokenVariable, Modifier: semtok.ModifierReadonly, Line: 0, Character: 0, Length: 9},
				{Type: semtok.TokenVariable, Line: 0, Character: 10, Length: 8},
			},
		},
		{
			name:  "test_field_string_number",
			input: "[A B] 'x' 1",
			expected: []semtok.Token{
				{Type: semtok.TokenProperty, Line: 0, Character: 0, Length: 5},
				{Type: semtok.TokenString, Line: 0, Character: 6, Length: 3},
				{Type: semtok.TokenNumber, Line: 0, Character: 10, Length: 1},
			},
		},
		{
			name:  "test_multi_line_comment",
			input: "/* a\nb */ x = 1",
			expected: []semtok.Token{
				{Type: semtok.TokenComment, Line: 0, Character: 0, Length: 4},
				{Type: semtok.TokenComment, Line: 1, Character: 0, Length: 4},
				{Type: semtok.TokenOperator, Line: 1, Character: 7, Length: 1},
				{Type: semtok.TokenNumber, Line: 1, Character: 9, Length: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tok.NewDocument(tt.input)
			got := semtok.GetTokensForDocument(g, doc)
			assert.Equal(t, tt.expected, got, "tokens should match expected")
		})
	}
}

func TestGetTokensForRange(t *testing.T) {
	g := grammar.MustLoad(context.Background())
	doc := tokenizer.New(g).NewDocument("LOAD\nFROM\nWHERE")

	got := semtok.GetTokensForRange(g, doc, 1, 1)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Line)

	assert.Empty(t, semtok.GetTokensForRange(g, doc, 5, 9))
}

func TestEncode(t *testing.T) {
	lines := position.SplitLines("LOAD x\n  FROM é'a'")

	tokens := []semtok.Token{
		// out of order on purpose
		{Type: semtok.TokenString, Line: 1, Character: 9, Length: 3},
		{Type: semtok.TokenKeyword, Line: 0, Character: 0, Length: 4},
		{Type: semtok.TokenKeyword, Line: 1, Character: 2, Length: 4},
	}

	got := semtok.Encode(tokens, lines)
	want := []uint32{
		0, 0, 4, uint32(semtok.TokenKeyword), 0,
		1, 2, 4, uint32(semtok.TokenKeyword), 0,
		// 'é' is two bytes but one UTF-16 unit
		0, 6, 3, uint32(semtok.TokenString), 0,
	}
	assert.Equal(t, want, got)
}

func TestLegend(t *testing.T) {
	assert.Equal(t, "property", semtok.TokenProperty.String())
	assert.Equal(t, "operator", semtok.TokenOperator.String())
	assert.Len(t, semtok.TokenModifiers, 2)
}
