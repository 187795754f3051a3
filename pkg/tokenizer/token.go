package tokenizer

// Kind classifies a span of script text.
type Kind uint8

const (
	KindWhitespace Kind = iota
	KindKeyword
	KindFunction
	KindVariable
	KindField
	KindString
	KindNumber
	KindComment
	KindOperator
	KindDelimiter
	KindIdentifier
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindWhitespace:
		return "whitespace"
	case KindKeyword:
		return "keyword"
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	case KindField:
		return "field"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindComment:
		return "comment"
	case KindOperator:
		return "operator"
	case KindDelimiter:
		return "delimiter"
	case KindIdentifier:
		return "identifier"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// MarshalText lets tokens print as readable JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NumberKind keeps the literal form of a Number token for highlighting.
type NumberKind uint8

const (
	NumberNone NumberKind = iota
	NumberInteger
	NumberFloat
	NumberHex
	NumberOctal
	NumberBinary
)

func (n NumberKind) String() string {
	switch n {
	case NumberInteger:
		return "integer"
	case NumberFloat:
		return "float"
	case NumberHex:
		return "hex"
	case NumberOctal:
		return "octal"
	case NumberBinary:
		return "binary"
	default:
		return ""
	}
}

// State is the scanner state carried from the end of one line to the start of
// the next.
type State uint8

const (
	StateRoot State = iota
	StateInBlockComment
	// StateInString is only used while scanning a quoted literal. Strings do not
	// continue onto the next line, so Tokenize never returns it.
	StateInString
)

func (s State) String() string {
	switch s {
	case StateRoot:
		return "root"
	case StateInBlockComment:
		return "in_block_comment"
	case StateInString:
		return "in_string"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Token is a classified span of one line. Start and End are byte offsets into
// the line; End is exclusive.
type Token struct {
	Kind   Kind       `json:"kind"`
	Text   string     `json:"text"`
	Start  int        `json:"start"`
	End    int        `json:"end"`
	Line   int        `json:"line"`
	Number NumberKind `json:"-"`
}

// Contains reports whether the byte column col falls inside the token. A
// cursor sitting right after the last byte counts as inside.
func (t Token) Contains(col int) bool {
	return col >= t.Start && col <= t.End
}
