package semtok

// TokenType is an index into TokenTypes.
type TokenType uint32

const (
	TokenKeyword TokenType = iota
	TokenFunction
	TokenVariable
	TokenProperty
	TokenString
	TokenNumber
	TokenComment
	TokenOperator
)

// TokenTypes is the legend advertised to the client, indexed by TokenType.
var TokenTypes = []string{
	"keyword",  // 0
	"function", // 1
	"variable", // 2
	"property", // 3
	"string",   // 4
	"number",   // 5
	"comment",  // 6
	"operator", // 7
}

func (t TokenType) String() string {
	if int(t) < len(TokenTypes) {
		return TokenTypes[t]
	}
	return "unknown"
}

// TokenModifier is a bit set over TokenModifiers.
type TokenModifier uint32

const (
	ModifierNone           TokenModifier = 0
	ModifierDefaultLibrary TokenModifier = 1 << 0
	ModifierReadonly       TokenModifier = 1 << 1
)

// TokenModifiers is the modifier legend, indexed by bit position.
var TokenModifiers = []string{
	"defaultLibrary", // 1 << 0
	"readonly",       // 1 << 1
}

func (m TokenModifier) String() string {
	switch m {
	case ModifierNone:
		return "none"
	case ModifierDefaultLibrary:
		return "defaultLibrary"
	case ModifierReadonly:
		return "readonly"
	default:
		return "mixed"
	}
}

// Token is a semantic token on a single line. Character and Length are in
// bytes of that line.
type Token struct {
	Type      TokenType
	Modifier  TokenModifier
	Line      int
	Character int
	Length    int
}
