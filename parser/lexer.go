package parser

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned by ScanAll when the source is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("source is not valid UTF-8")

// Lexer tokenizes records files in a single pass. Tokens hold byte offsets
// into the source, so scanning does not allocate per token.
type Lexer struct {
	source   []byte
	filename string
	pos      int // Current byte position
	line     int // Current line (1-indexed)
	column   int // Current column (1-indexed)
	tokens   []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source []byte, filename string) *Lexer {
	// A price line is around 40 bytes and 5 tokens.
	estimatedTokens := len(source)/8 + 16

	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		column:   1,
		tokens:   make([]Token, 0, estimatedTokens),
	}
}

// ScanAll lexes the entire source and returns its tokens, terminated by EOF.
// Comments and whitespace produce no tokens.
func (l *Lexer) ScanAll() ([]Token, error) {
	if !utf8.Valid(l.source) {
		return nil, ErrInvalidUTF8
	}

	for l.pos < len(l.source) {
		l.skipWhitespace()

		if l.pos >= len(l.source) {
			break
		}

		if l.peek() == ';' {
			l.skipComment()
			continue
		}

		l.tokens = append(l.tokens, l.scanToken())
	}

	l.tokens = append(l.tokens, Token{
		Type:   EOF,
		Start:  l.pos,
		End:    l.pos,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens, nil
}

func (l *Lexer) scanToken() Token {
	start := l.pos
	startLine := l.line
	startCol := l.column

	ch := l.advance()

	switch {
	// Dates before numbers, both start with a digit.
	case ch >= '0' && ch <= '9':
		if l.isDatePattern(start) {
			return l.scanDate(start, startLine, startCol)
		}
		return l.scanNumber(start, startLine, startCol)
	case ch == '-' && l.peekIsDigit():
		return l.scanNumber(start, startLine, startCol)

	case ch == '"':
		return l.scanString(start, startLine, startCol)

	case ch >= 'A' && ch <= 'Z' || ch >= 0x80:
		return l.scanIdent(start, startLine, startCol)

	case ch >= 'a' && ch <= 'z':
		return l.scanKeywordOrIdent(start, startLine, startCol)

	case ch == ':':
		return Token{COLON, start, l.pos, startLine, startCol}

	default:
		return Token{ILLEGAL, start, l.pos, startLine, startCol}
	}
}

// isDatePattern checks for digit{4}-digit{2}-digit{2} at start.
func (l *Lexer) isDatePattern(start int) bool {
	if start+10 > len(l.source) {
		return false
	}

	src := l.source[start:]
	for i := 0; i < 10; i++ {
		switch i {
		case 4, 7:
			if src[i] != '-' {
				return false
			}
		default:
			if src[i] < '0' || src[i] > '9' {
				return false
			}
		}
	}
	return true
}

func (l *Lexer) scanDate(start, line, col int) Token {
	// First digit already consumed
	for i := 0; i < 9; i++ {
		l.advance()
	}
	return Token{DATE, start, l.pos, line, col}
}

// scanNumber scans -?[0-9]+(\.[0-9]+)?
func (l *Lexer) scanNumber(start, line, col int) Token {
	for l.peekIsDigit() {
		l.advance()
	}

	if l.peek() == '.' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1]) {
		l.advance() // consume '.'
		for l.peekIsDigit() {
			l.advance()
		}
	}

	return Token{NUMBER, start, l.pos, line, col}
}

// scanString scans a quoted string. Strings do not span lines; an
// unterminated string ends at the newline and is rejected by the parser.
func (l *Lexer) scanString(start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '"' {
			l.advance()
			break
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' && l.pos+1 < len(l.source) && l.source[l.pos+1] != '\n' {
			l.advance()
		}
		l.advance()
	}

	return Token{STRING, start, l.pos, line, col}
}

// scanIdent scans a currency code like EUR, BRK.B or ÉCU.
func (l *Lexer) scanIdent(start, line, col int) Token {
	for l.pos < len(l.source) && isIdentByte(l.source[l.pos]) {
		l.advance()
	}
	return Token{IDENT, start, l.pos, line, col}
}

// scanKeywordOrIdent scans a lowercase word: a keyword or a metadata key.
func (l *Lexer) scanKeywordOrIdent(start, line, col int) Token {
	for l.pos < len(l.source) && isIdentByte(l.source[l.pos]) {
		l.advance()
	}

	return Token{keywordType(l.source[start:l.pos]), start, l.pos, line, col}
}

func keywordType(word []byte) TokenType {
	switch {
	case bytes.Equal(word, []byte("commodity")):
		return COMMODITY
	case bytes.Equal(word, []byte("price")):
		return PRICE
	case bytes.Equal(word, []byte("option")):
		return OPTION
	case bytes.Equal(word, []byte("include")):
		return INCLUDE
	default:
		return IDENT
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			break
		}
		l.advance()
	}
}

func (l *Lexer) skipComment() {
	for l.pos < len(l.source) && l.source[l.pos] != '\n' {
		l.advance()
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekIsDigit() bool {
	return l.pos < len(l.source) && isDigit(l.source[l.pos])
}

// advance consumes one byte. Columns count runes, so UTF-8 continuation
// bytes do not move the column.
func (l *Lexer) advance() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	switch {
	case ch == '\n':
		l.line++
		l.column = 1
	case ch&0xC0 != 0x80:
		l.column++
	}
	return ch
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentByte(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' || isDigit(ch) ||
		ch == '.' || ch == '_' || ch == '-' || ch == '\'' || ch >= 0x80
}
