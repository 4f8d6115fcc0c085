// Package web provides an HTTP API for converting amounts with a records file.
//
// The server loads the records file (following includes), builds a converter
// and answers JSON queries against it. With watching enabled, edits to the
// root file or any include rebuild the converter and notify clients over
// Server-Sent Events.
//
// SECURITY WARNING: This server has no authentication and should only be
// bound to localhost (127.0.0.1). Do not expose it to untrusted networks.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/robinvdvleuten/ratebook/converter"
	"github.com/robinvdvleuten/ratebook/loader"
	"github.com/robinvdvleuten/ratebook/telemetry"
)

type Server struct {
	Port         int
	Host         string
	Version      string
	CommitSHA    string
	WatchEnabled bool

	mu        sync.RWMutex
	conv      *converter.Converter
	files     []string // Root file followed by its includes
	loadedAt  time.Time
	inputFile string

	log zerolog.Logger

	// SSE clients for broadcasting reload events
	sseClients map[chan string]struct{}
	sseMu      sync.Mutex
}

func New(port int, recordsFile string) *Server {
	return NewWithVersion(port, recordsFile, "", "")
}

func NewWithVersion(port int, recordsFile, version, commitSHA string) *Server {
	return &Server{
		Port:       port,
		Host:       "127.0.0.1",
		Version:    version,
		CommitSHA:  commitSHA,
		inputFile:  recordsFile,
		log:        zerolog.Nop(),
		sseClients: make(map[chan string]struct{}),
	}
}

// Start loads the records file and serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.inputFile == "" {
		return fmt.Errorf("records file is required")
	}

	s.log = zerolog.Ctx(ctx).With().Str("component", "web").Logger()

	collector := telemetry.FromContext(ctx)
	timer := collector.Start(fmt.Sprintf("web.start %s:%d", s.Host, s.Port))

	loadTimer := timer.Child(fmt.Sprintf("web.load %s", filepath.Base(s.inputFile)))
	if err := s.reload(ctx); err != nil {
		loadTimer.End()
		timer.End()
		return fmt.Errorf("failed to load records: %w", err)
	}
	loadTimer.End()

	if s.WatchEnabled {
		if err := s.startWatcher(ctx); err != nil {
			timer.End()
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	setupTimer := timer.Child("web.setup_router")
	handler := s.Handler()
	setupTimer.End()
	timer.End()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.Host, s.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", srv.Addr).Strs("files", s.Files()).Msg("Starting HTTP server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// reload loads the records file and swaps in a freshly built converter.
// On failure the previous converter stays in place.
// Caller must NOT hold the mutex - this method acquires it internally.
func (s *Server) reload(ctx context.Context) error {
	ldr := loader.New(loader.WithFollowIncludes())

	result, err := ldr.Load(ctx, s.inputFile)
	if err != nil {
		return err
	}

	conv, err := result.Build(ctx)
	if err != nil {
		return err
	}

	for _, err := range conv.Validate() {
		s.log.Warn().Err(err).Msg("Conversion rule cannot be served")
	}

	s.mu.Lock()
	s.conv = conv
	s.files = result.Files()
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.log.Debug().
		Int("currencies", len(conv.Currencies())).
		Int("series", conv.Index().Len()).
		Int("dropped", conv.Index().Dropped()).
		Msg("Converter built")

	return nil
}

// converter returns the converter currently being served.
func (s *Server) converter() *converter.Converter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv
}

// Files returns the root file and its includes as last loaded.
func (s *Server) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.files...)
}
