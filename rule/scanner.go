package rule

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// scanner walks a rule rune by rune. It never backtracks.
type scanner struct {
	source string
	pos    int // Current byte offset
}

// eof is returned by peek when the input is exhausted.
const eof rune = -1

func (s *scanner) peek() rune {
	if s.pos >= len(s.source) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	return r
}

func (s *scanner) advance() rune {
	if s.pos >= len(s.source) {
		return eof
	}
	r, size := utf8.DecodeRuneInString(s.source[s.pos:])
	s.pos += size
	return r
}

func (s *scanner) skipWhitespace() {
	for unicode.IsSpace(s.peek()) {
		s.advance()
	}
}

// isDelimiter reports whether r terminates an instrument part.
func isDelimiter(r rune) bool {
	switch r {
	case '(', ')', ',', '/', ':', eof:
		return true
	}
	return false
}

// scanPart consumes characters up to the next delimiter and returns them with
// all whitespace removed.
func (s *scanner) scanPart() string {
	var buf strings.Builder
	for !isDelimiter(s.peek()) {
		r := s.advance()
		if !unicode.IsSpace(r) {
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
