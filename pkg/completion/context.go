package completion

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/walteh/qlikls/pkg/grammar"
)

// ContextKind tags an EditContext.
type ContextKind uint8

const (
	ContextStatement ContextKind = iota
	ContextInsideVariable
	ContextInsideField
	ContextInsideString
	ContextInsideFunctionArgs
	ContextInsideComment
)

func (k ContextKind) String() string {
	switch k {
	case ContextStatement:
		return "statement"
	case ContextInsideVariable:
		return "inside_variable"
	case ContextInsideField:
		return "inside_field"
	case ContextInsideString:
		return "inside_string"
	case ContextInsideFunctionArgs:
		return "inside_function_args"
	case ContextInsideComment:
		return "inside_comment"
	default:
		return "unknown"
	}
}

func (k ContextKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// EditContext describes where the cursor is for a completion request. It is
// derived per request and never stored.
type EditContext struct {
	Kind ContextKind `json:"kind"`
	// Function is set for ContextInsideFunctionArgs.
	Function string `json:"function,omitempty"`
	// Anchor is the byte column of the opening "$(" or "[" for
	// ContextInsideVariable and ContextInsideField, and -1 otherwise.
	Anchor int `json:"anchor"`
	// Word is the partial word left of the cursor.
	Word string `json:"word,omitempty"`
}

// Statement is the fallback context.
func Statement(word string) EditContext {
	return EditContext{Kind: ContextStatement, Anchor: -1, Word: word}
}

// Analyzer classifies the text left of the cursor.
type Analyzer struct {
	grammar *grammar.Grammar
}

func NewAnalyzer(g *grammar.Grammar) *Analyzer {
	return &Analyzer{grammar: g}
}

// Classify applies the context rules to the current line up to the cursor,
// first match wins:
//
//  1. an unclosed "$(" means InsideVariable
//  2. an unclosed "[" means InsideField
//  3. an unterminated quote means InsideString
//  4. the innermost unclosed "name(" with a known function name means
//     InsideFunctionArgs
//  5. anything else is Statement
//
// Only the current line is looked at; a "[" or "$(" opened on an earlier line
// does not count.
func (a *Analyzer) Classify(lineBeforeCursor, word string) EditContext {
	if anchor := unclosedVariable(lineBeforeCursor); anchor >= 0 {
		return EditContext{Kind: ContextInsideVariable, Anchor: anchor, Word: word}
	}

	if open := strings.LastIndexByte(lineBeforeCursor, '['); open >= 0 && open > strings.LastIndexByte(lineBeforeCursor, ']') {
		return EditContext{Kind: ContextInsideField, Anchor: open, Word: word}
	}

	if insideQuote(lineBeforeCursor) {
		return EditContext{Kind: ContextInsideString, Anchor: -1, Word: word}
	}

	if name := innermostCall(lineBeforeCursor); name != "" && a.grammar != nil {
		if spec, ok := a.grammar.FunctionSpec(name); ok {
			return EditContext{Kind: ContextInsideFunctionArgs, Function: spec.Name, Anchor: -1, Word: word}
		}
	}

	return Statement(word)
}

// unclosedVariable returns the column of the innermost "$(" that is still
// open at the end of text, or -1.
func unclosedVariable(text string) int {
	type open struct {
		col      int
		variable bool
	}
	var stack []open

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '$':
			if i+1 < len(text) && text[i+1] == '(' {
				stack = append(stack, open{col: i, variable: true})
				i++
			}
		case '(':
			stack = append(stack, open{col: i})
		case ')':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].variable {
			return stack[i].col
		}
	}
	return -1
}

func insideQuote(text string) bool {
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\':
			i++
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case c == quote:
			quote = 0
		}
	}
	return quote != 0
}

// innermostCall returns the name of the nearest enclosing call that is still
// open at the end of text. Grouping parens without a name are skipped, and
// parens inside quoted spans are ignored.
func innermostCall(text string) string {
	var stack []string
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			stack = append(stack, identifierBefore(text, i))
		case c == ')':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] != "" {
			return stack[i]
		}
	}
	return ""
}

func identifierBefore(text string, paren int) string {
	end := paren
	for end > 0 && (text[end-1] == ' ' || text[end-1] == '\t') {
		end--
	}
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if r != '_' && r != '#' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		start -= size
	}
	return text[start:end]
}
