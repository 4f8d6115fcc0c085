package parser

// TokenType represents the type of token scanned from the input.
type TokenType uint8

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Keywords
	COMMODITY // commodity
	PRICE     // price
	OPTION    // option
	INCLUDE   // include

	// Literals
	DATE   // YYYY-MM-DD
	STRING // "quoted string"
	NUMBER // 1.10 or -0.5
	IDENT  // EUR, metadata keys

	// Symbols
	COLON // :
)

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	COMMODITY: "commodity",
	PRICE:     "price",
	OPTION:    "option",
	INCLUDE:   "include",

	DATE:   "DATE",
	STRING: "STRING",
	NUMBER: "NUMBER",
	IDENT:  "IDENT",

	COLON: ":",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsKeyword reports whether the token type is a directive keyword.
func (t TokenType) IsKeyword() bool {
	return t >= COMMODITY && t <= INCLUDE
}

// Token is a lexical token. It stores byte offsets into the source buffer
// instead of its text.
type Token struct {
	Type   TokenType
	Start  int // Byte offset into source buffer
	End    int // End offset (exclusive)
	Line   int // Line number (1-indexed)
	Column int // Column number (1-indexed)
}

// String returns the token text.
func (t Token) String(source []byte) string {
	if t.Start >= len(source) || t.End > len(source) || t.Start > t.End {
		return ""
	}
	return string(source[t.Start:t.End])
}

// Bytes returns the token text without copying.
func (t Token) Bytes(source []byte) []byte {
	if t.Start >= len(source) || t.End > len(source) || t.Start > t.End {
		return nil
	}
	return source[t.Start:t.End]
}

// Len returns the length of the token in bytes.
func (t Token) Len() int {
	return t.End - t.Start
}
