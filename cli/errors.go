package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/ratebook/ast"
	"github.com/robinvdvleuten/ratebook/parser"
	"github.com/robinvdvleuten/ratebook/rule"
)

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling and source context.
// Errors positioned in other files (includes) have their source read on demand.
type ErrorRenderer struct {
	sources map[string][]byte
}

// NewErrorRenderer creates a renderer with the root file's source for context.
func NewErrorRenderer(filename string, source []byte) *ErrorRenderer {
	return &ErrorRenderer{sources: map[string][]byte{filename: source}}
}

// Render formats a single error with styling and context.
func (r *ErrorRenderer) Render(err error) string {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		if source := r.source(parseErr.Pos.Filename); source != nil {
			return r.renderWithSourceContext(parseErr.Pos, err.Error(), source)
		}
		return errorStyle.Render(err.Error())
	}

	var syntaxErr *rule.SyntaxError
	if errors.As(err, &syntaxErr) {
		return r.renderRule(err.Error(), syntaxErr)
	}

	return err.Error()
}

// RenderAll formats multiple errors, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(r.Render(err))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

func (r *ErrorRenderer) source(filename string) []byte {
	if source, ok := r.sources[filename]; ok {
		return source
	}
	if filename == "" || filename == stdinFilename {
		return nil
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		source = nil
	}
	r.sources[filename] = source
	return source
}

func (r *ErrorRenderer) renderWithSourceContext(pos ast.Position, message string, sourceContent []byte) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	startLine := max(pos.Line-3, 0)
	endLine := min(pos.Line+1, len(sourceLines)-1)

	for i := startLine; i <= endLine; i++ {
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(sourceLines[i]))
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString(errCaretStyle.Render("^"))
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// renderRule shows the offending rule with a caret under the syntax error.
func (r *ErrorRenderer) renderRule(message string, err *rule.SyntaxError) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n   ")
	buf.WriteString(errContextStyle.Render(err.Rule))
	buf.WriteString("\n   ")

	offset := min(max(err.Offset, 0), len(err.Rule))
	buf.WriteString(strings.Repeat(" ", runewidth.StringWidth(err.Rule[:offset])))
	buf.WriteString(errCaretStyle.Render("^"))
	buf.WriteByte('\n')

	return buf.String()
}
