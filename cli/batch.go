package cli

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/robinvdvleuten/ratebook/converter"
	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/telemetry"
)

type BatchCmd struct {
	File    string      `help:"Records file to convert with." arg:"" type:"existingfile"`
	Queries FileOrStdin `help:"CSV file with a date,amount,symbol header (use '-' for stdin)." arg:""`
	Jobs    int         `help:"Number of conversions to run concurrently." default:"4" short:"j"`
}

// batchColumns are the output columns; the first three echo the query.
var batchColumns = []string{"date", "amount", "symbol", "result", "error"}

type batchQuery struct {
	line   int
	date   string
	amount string
	symbol string
}

func (cmd *BatchCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := globals.runContext(ctx, fmt.Sprintf("batch %s", filepath.Base(cmd.File)))
	defer report()

	source, err := cmd.Queries.SourceContent()
	if err != nil {
		return fmt.Errorf("failed to read queries: %w", err)
	}
	queries, err := readQueries(cmd.Queries.Filename, bytes.NewReader(source))
	if err != nil {
		return err
	}

	conv, err := buildConverter(runCtx, ctx, cmd.File)
	if err != nil {
		return err
	}

	timer := telemetry.FromContext(runCtx).Start(fmt.Sprintf("batch.convert %d queries", len(queries)))
	rows := make([][]string, len(queries))

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(max(cmd.Jobs, 1))
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = convertQuery(conv, q)
			return nil
		})
	}
	err = g.Wait()
	timer.End()
	if err != nil {
		return err
	}

	w := csv.NewWriter(ctx.Stdout)
	_ = w.Write(batchColumns)
	failed := 0
	for i, row := range rows {
		if row[4] != "" {
			failed++
			zerolog.Ctx(runCtx).Debug().Int("line", queries[i].line).Str("error", row[4]).Msg("Query failed")
		}
		_ = w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if failed > 0 {
		printWarning(ctx.Stderr, fmt.Sprintf("%d of %d queries failed", failed, len(rows)))
		return NewCommandError(1)
	}
	return nil
}

// readQueries reads query rows, locating columns by the header.
func readQueries(filename string, r io.Reader) ([]batchQuery, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range batchColumns[:3] {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%s: missing column %q, want header \"date,amount,symbol\"", filename, name)
		}
	}

	var queries []batchQuery
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return queries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}

		cell := func(name string) string {
			if i := columns[name]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		line, _ := cr.FieldPos(0)
		queries = append(queries, batchQuery{
			line:   line,
			date:   cell("date"),
			amount: cell("amount"),
			symbol: cell("symbol"),
		})
	}
}

// convertQuery converts one query into an output row. Failures land in the
// error column.
func convertQuery(conv *converter.Converter, q batchQuery) []string {
	row := []string{q.date, q.amount, q.symbol, "", ""}

	on, err := date.Parse(q.date)
	if err != nil {
		row[4] = err.Error()
		return row
	}

	amount, err := decimal.NewFromString(q.amount)
	if err != nil {
		row[4] = fmt.Sprintf("invalid amount %q", q.amount)
		return row
	}

	value, err := conv.Convert(on, amount, q.symbol)
	if err != nil {
		row[4] = err.Error()
		return row
	}

	row[3] = value.StringFixed(conv.Config().Places)
	return row
}
