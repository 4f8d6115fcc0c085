// Package loader reads records files, optionally following their include
// directives, and turns them into the currencies and price observations a
// converter is built from.
//
// Files ending in ".csv" are read as price tables with the header
// "date,symbol,currency,price,provider", both as the root file and as an
// include target.
//
// Example usage:
//
//	ldr := loader.New(loader.WithFollowIncludes())
//	result, err := ldr.Load(ctx, "prices.bean")
//	if err != nil {
//	    return err
//	}
//	conv, err := result.Build(ctx)
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/ratebook/ast"
	"github.com/robinvdvleuten/ratebook/converter"
	"github.com/robinvdvleuten/ratebook/parser"
	"github.com/robinvdvleuten/ratebook/prices"
	"github.com/robinvdvleuten/ratebook/telemetry"
)

// Loader loads records files.
//
// Configure the loader using functional options passed to New:
//
//	ldr := New(WithFollowIncludes())
type Loader struct {
	// FollowIncludes determines whether include directives are loaded and
	// merged. When false they are kept in the returned file untouched.
	FollowIncludes bool
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes makes the loader resolve include directives relative
// to the including file, load each file once, and merge everything into a
// single file. Include cycles are harmless.
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result is a loaded records file ready to build a converter from.
type Result struct {
	// File holds the merged directives, sorted by date. Its Includes are
	// empty when includes were followed.
	File *ast.File

	// Root is the absolute path of the loaded file.
	Root string

	// Includes are the absolute paths of all files loaded through includes,
	// in load order.
	Includes []string

	Currencies   []converter.Currency
	Observations []prices.Observation

	// Options maps option names to their values, root file first.
	Options map[string][]string
}

// Files returns Root followed by Includes.
func (r *Result) Files() []string {
	return append([]string{r.Root}, r.Includes...)
}

// Config returns the converter configuration set by the file's options.
func (r *Result) Config() (*converter.Config, error) {
	return converter.ConfigFromOptions(r.Options)
}

// Build creates a converter from the loaded records using the file's options.
func (r *Result) Build(ctx context.Context) (*converter.Converter, error) {
	cfg, err := r.Config()
	if err != nil {
		return nil, err
	}
	return converter.New(cfg.WithContext(ctx), r.Currencies, r.Observations)
}

// Load reads and parses filename.
func (l *Loader) Load(ctx context.Context, filename string) (*Result, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return l.LoadBytes(ctx, filename, data)
}

// LoadBytes parses data as if it were read from filename. Includes are
// resolved relative to filename's directory.
func (l *Loader) LoadBytes(ctx context.Context, filename string, data []byte) (*Result, error) {
	timer := telemetry.FromContext(ctx).Start("loader.load " + filepath.Base(filename))
	defer timer.End()

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %s: %w", filename, err)
	}

	state := &loaderState{
		follow:  l.FollowIncludes,
		visited: map[string]bool{absPath: true},
		timer:   timer,
	}

	file, err := state.parse(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	if l.FollowIncludes {
		file, err = state.resolveIncludes(ctx, absPath, file)
		if err != nil {
			return nil, err
		}
	}
	file.Directives.Sort()

	result, err := newResult(file)
	if err != nil {
		return nil, err
	}
	result.Root = absPath
	result.Includes = state.loaded

	zerolog.Ctx(ctx).Debug().
		Str("file", absPath).
		Int("includes", len(state.loaded)).
		Int("currencies", len(result.Currencies)).
		Int("observations", len(result.Observations)).
		Msg("loaded records")

	return result, nil
}

// loaderState tracks state during recursive loading.
type loaderState struct {
	follow  bool
	visited map[string]bool // Absolute paths of files already loaded
	loaded  []string
	timer   telemetry.Timer
}

func (s *loaderState) parse(ctx context.Context, filename string, data []byte) (*ast.File, error) {
	timer := s.timer.Child("parse " + filepath.Base(filename))
	defer timer.End()

	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return parseCSV(filename, data)
	}
	return parser.ParseBytes(ctx, filename, data)
}

// resolveIncludes loads the includes of file depth first and merges them in.
func (s *loaderState) resolveIncludes(ctx context.Context, absPath string, file *ast.File) (*ast.File, error) {
	baseDir := filepath.Dir(absPath)
	merged := &ast.File{
		Filename:   file.Filename,
		Directives: file.Directives,
		Options:    file.Options,
	}

	for _, inc := range file.Includes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		includePath := inc.Filename
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}
		includePath = filepath.Clean(includePath)

		if s.visited[includePath] {
			continue
		}
		s.visited[includePath] = true

		data, err := os.ReadFile(includePath)
		if err != nil {
			return nil, fmt.Errorf("%s: include %q: %w", inc.Pos, inc.Filename, err)
		}

		included, err := s.parse(ctx, includePath, data)
		if err != nil {
			return nil, err
		}
		s.loaded = append(s.loaded, includePath)

		included, err = s.resolveIncludes(ctx, includePath, included)
		if err != nil {
			return nil, err
		}

		merged.Directives = append(merged.Directives, included.Directives...)
		// Root options come first, so they take precedence.
		merged.Options = append(merged.Options, included.Options...)
	}

	return merged, nil
}

func newResult(file *ast.File) (*Result, error) {
	result := &Result{
		File:    file,
		Options: make(map[string][]string, len(file.Options)),
	}

	for _, opt := range file.Options {
		result.Options[opt.Name] = append(result.Options[opt.Name], opt.Value)
	}

	for _, directive := range file.Directives {
		switch d := directive.(type) {
		case *ast.Commodity:
			result.Currencies = append(result.Currencies, converter.Currency{
				Code: d.Currency,
				Rule: d.Rule(),
			})

		case *ast.Price:
			obs, err := observation(d)
			if err != nil {
				return nil, err
			}
			result.Observations = append(result.Observations, obs)
		}
	}

	return result, nil
}

// observation converts a price directive. An empty amount becomes a missing
// price, which the index drops.
func observation(p *ast.Price) (prices.Observation, error) {
	obs := prices.Observation{
		Symbol:   p.Symbol,
		Date:     p.Date,
		Provider: p.Provider(),
	}
	if p.Amount == nil {
		return obs, nil
	}

	obs.Currency = p.Amount.Currency
	if p.Amount.Value != "" {
		price, err := decimal.NewFromString(p.Amount.Value)
		if err != nil {
			return obs, &parser.ParseError{Pos: p.Pos, Message: fmt.Sprintf("invalid price %q", p.Amount.Value)}
		}
		obs.Price = decimal.NewNullDecimal(price)
	}

	return obs, nil
}
