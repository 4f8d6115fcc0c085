// Package cli implements the ratebook command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/robinvdvleuten/ratebook/loader"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	warningSymbol = "!"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FFAF00", Dark: "#FFAF00"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printWarning(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		warningStyle.Render(warningSymbol),
		message,
	)
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// errNotInteractive is returned when a prompt is needed but stdin is not a terminal.
var errNotInteractive = errors.New("not running in an interactive terminal")

// promptSymbol lets the user pick one of the known currencies.
func promptSymbol(codes []string) (string, error) {
	if !isTerminal() {
		return "", errNotInteractive
	}

	var symbol string

	form := huh.NewSelect[string]().
		Title("Convert which currency?").
		Options(huh.NewOptions(codes...)...).
		Value(&symbol)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}

	return symbol, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

const stdinFilename = "<stdin>"

// FileOrStdin accepts either a file path or "-" for stdin.
// For stdin: Filename="<stdin>", Contents populated.
// For files: Filename set, Contents nil (read by loader).
type FileOrStdin struct {
	Filename string
	Contents []byte
}

// Decode implements kong.MapperValue.
func (f *FileOrStdin) Decode(ctx *kong.DecodeContext) error {
	var filename string
	if err := ctx.Scan.PopValueInto("filename", &filename); err != nil {
		return err
	}

	if filename == "-" || filename == "" {
		return f.readStdin()
	}

	if _, err := os.Stat(filename); err != nil {
		return err
	}
	f.Filename = filename
	f.Contents = nil

	return nil
}

// EnsureContents populates Contents from stdin if Filename is empty.
func (f *FileOrStdin) EnsureContents() error {
	if f.Filename == "" {
		return f.readStdin()
	}
	return nil
}

func (f *FileOrStdin) readStdin() error {
	contents, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read from stdin: %w", err)
	}
	f.Filename = stdinFilename
	f.Contents = contents
	return nil
}

// IsStdin reports whether the input was read from stdin.
func (f *FileOrStdin) IsStdin() bool {
	return f.Filename == stdinFilename
}

// SourceContent returns the raw input, for formatting and error context.
func (f *FileOrStdin) SourceContent() ([]byte, error) {
	if f.IsStdin() {
		return f.Contents, nil
	}
	return os.ReadFile(f.Filename)
}

// AbsoluteFilename returns the absolute path, or "<stdin>" for stdin.
func (f *FileOrStdin) AbsoluteFilename() string {
	if f.IsStdin() {
		return f.Filename
	}
	absPath, err := filepath.Abs(f.Filename)
	if err != nil {
		return f.Filename
	}
	return absPath
}

// Load loads the records using LoadBytes for stdin or Load for files.
// Includes cannot be resolved relative to stdin, so they are rejected there.
func (f *FileOrStdin) Load(ctx context.Context, ldr *loader.Loader) (*loader.Result, error) {
	absFilename := f.AbsoluteFilename()

	if !f.IsStdin() {
		return ldr.Load(ctx, absFilename)
	}

	result, err := loader.New().LoadBytes(ctx, absFilename, f.Contents)
	if err != nil {
		return nil, err
	}
	if ldr.FollowIncludes && len(result.File.Includes) > 0 {
		return nil, fmt.Errorf("include directives are not supported when reading from stdin")
	}
	return result, nil
}
