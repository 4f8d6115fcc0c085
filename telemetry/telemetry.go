// Package telemetry collects hierarchical timings of the build steps behind a
// conversion: loading records files, compiling rules, indexing prices.
//
// Collectors travel through a context, so instrumented code only needs the
// context it already receives:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.FromContext(ctx).Start("load prices.bean")
//	parse := timer.Child("parse")
//	// ... work ...
//	parse.End()
//	timer.End()
//
//	collector.Report(os.Stderr)
//
// Without a collector in the context every call is a no-op.
package telemetry

import (
	"context"
	"io"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

var collectorKey = contextKey{}

// Collector records timings.
type Collector interface {
	// Start begins timing an operation. When another timer started by the
	// same collector is still running, the new timer nests under it.
	Start(name string) Timer

	// Report writes the collected timings to w.
	Report(w io.Writer)
}

// Timer tracks a single operation.
type Timer interface {
	// End stops the timer.
	End()

	// Child starts a timer nested under this one.
	Child(name string) Timer
}

// Entry is a flattened timing, as returned by TimingCollector.Entries.
type Entry struct {
	Name     string
	Depth    int
	Duration time.Duration
}

// WithCollector adds a collector to a context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext extracts the collector from context, or a no-op collector when
// there is none.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}
