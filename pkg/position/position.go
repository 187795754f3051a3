// Package position converts between the byte offsets used by the tokenizer
// and completion engine and the line/character positions editors speak.
package position

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Place is a zero-based line and byte column.
type Place struct {
	Line      int
	Character int
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range is a half-open span between two places.
type Range struct {
	Start Place
	End   Place
}

// SplitLines splits text on '\n', dropping a trailing '\r' from each line.
// It always returns at least one (possibly empty) line.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LineAt returns line i of text and whether it exists.
func LineAt(text string, i int) (string, bool) {
	lines := SplitLines(text)
	if i < 0 || i >= len(lines) {
		return "", false
	}
	return lines[i], true
}

// ClampColumn keeps a byte column inside [0, len(line)] and moves it back to
// the start of a rune if it points into the middle of one.
func ClampColumn(line string, col int) int {
	if col < 0 {
		return 0
	}
	if col > len(line) {
		return len(line)
	}
	for col > 0 && col < len(line) && !utf8.RuneStart(line[col]) {
		col--
	}
	return col
}

// ByteColumn converts a UTF-16 code unit column (the LSP default) to a byte
// column in line. Columns past the end clamp to len(line).
func ByteColumn(line string, utf16Col int) int {
	if utf16Col <= 0 {
		return 0
	}
	units := 0
	for i, r := range line {
		if units >= utf16Col {
			return i
		}
		units += utf16.RuneLen(r)
		if units > utf16Col {
			return i
		}
	}
	return len(line)
}

// UTF16Column converts a byte column in line to UTF-16 code units.
func UTF16Column(line string, byteCol int) int {
	byteCol = ClampColumn(line, byteCol)
	units := 0
	for _, r := range line[:byteCol] {
		units += utf16.RuneLen(r)
	}
	return units
}

// WordAt returns the byte span of the identifier-like word touching col,
// together with the part of the word left of col. Characters that may appear
// in a Qlik identifier are letters, digits, '_', '$' and '#'.
func WordAt(line string, col int) (start, end int, prefix string) {
	col = ClampColumn(line, col)

	start = col
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}

	end = col
	for end < len(line) {
		r, size := utf8.DecodeRuneInString(line[end:])
		if !isWordRune(r) {
			break
		}
		end += size
	}

	return start, end, line[start:col]
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
