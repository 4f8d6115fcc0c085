package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/robinvdvleuten/ratebook/ast"
	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/parser"
)

// csvColumns are the columns of a price table. provider is optional.
var csvColumns = []string{"date", "symbol", "currency", "price", "provider"}

// parseCSV reads a price table into price directives. Empty cells become
// missing fields rather than errors.
func parseCSV(filename string, data []byte) (*ast.File, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = ';'

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &ast.File{Filename: filename}, nil
	}
	if err != nil {
		return nil, csvError(filename, err)
	}

	columns, err := csvHeader(filename, header)
	if err != nil {
		return nil, err
	}

	file := &ast.File{Filename: filename}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(filename, err)
		}

		line, _ := r.FieldPos(0)
		pos := ast.Position{Filename: filename, Line: line, Column: 1}

		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		price := &ast.Price{
			Pos:    pos,
			Symbol: cell("symbol"),
			Amount: ast.NewAmount(cell("price"), cell("currency")),
		}
		if raw := cell("date"); raw != "" {
			price.Date, err = date.Parse(raw)
			if err != nil {
				return nil, &parser.ParseError{Pos: pos, Message: fmt.Sprintf("invalid date %q", raw)}
			}
		}
		if provider := cell("provider"); provider != "" {
			price.AddMetadata(ast.NewMetadata("source", provider))
		}

		file.Directives = append(file.Directives, price)
	}

	return file, nil
}

func csvHeader(filename string, header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range csvColumns[:4] {
		if _, ok := columns[name]; !ok {
			return nil, &parser.ParseError{
				Pos:     ast.Position{Filename: filename, Line: 1, Column: 1},
				Message: fmt.Sprintf("missing column %q, want header %q", name, strings.Join(csvColumns, ",")),
			}
		}
	}

	return columns, nil
}

func csvError(filename string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &parser.ParseError{
			Pos:     ast.Position{Filename: filename, Line: perr.Line, Column: perr.Column},
			Message: perr.Err.Error(),
		}
	}
	return fmt.Errorf("failed to read %s: %w", filename, err)
}
