package parser

import (
	"fmt"

	"github.com/robinvdvleuten/ratebook/ast"
)

// ParseError represents a syntax error in a records file.
type ParseError struct {
	Pos     ast.Position
	Message string
}

func newErrorf(pos ast.Position, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = fmt.Sprintf("line %d", e.Pos.Line)
	}

	return fmt.Sprintf("%s: %s", location, e.Message)
}

// Position returns where the error occurred.
func (e *ParseError) Position() ast.Position {
	return e.Pos
}
