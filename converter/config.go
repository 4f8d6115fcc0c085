package converter

import (
	"context"
	"fmt"
	"strconv"
)

// DefaultPlaces is the number of fractional digits conversion results are rounded to.
const DefaultPlaces int32 = 4

// Config holds conversion settings.
type Config struct {
	// Places is the number of fractional digits results are rounded to,
	// half to even.
	Places int32
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Places: DefaultPlaces,
	}
}

// ConfigFromOptions parses records-file options into a Config.
// Supports:
//   - option "precision" "4"
//
// Unknown options are ignored. When an option is repeated the first value wins.
func ConfigFromOptions(options map[string][]string) (*Config, error) {
	cfg := NewConfig()

	if vals := options["precision"]; len(vals) > 0 {
		places, err := strconv.ParseInt(vals[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid precision %q: %w", vals[0], err)
		}
		if places < 0 || places > 28 {
			return nil, fmt.Errorf("invalid precision %q, expected 0 to 28", vals[0])
		}
		cfg.Places = int32(places)
	}

	return cfg, nil
}

// contextKey is a private type to avoid key collisions in context.
type contextKey struct{}

// WithContext returns a new context with the Config attached.
func (c *Config) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ConfigFromContext retrieves the Config from context.
// Returns a default Config if not found.
func ConfigFromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok && cfg != nil {
		return cfg
	}
	return NewConfig()
}
