package web

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/robinvdvleuten/ratebook/telemetry"
)

// Debounce delay; editors often write files in multiple steps.
const debounceDelay = 100 * time.Millisecond

// startWatcher starts a file watcher for the root file and all includes.
// It rebuilds the converter and broadcasts SSE events when files change.
func (s *Server) startWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	for _, file := range s.Files() {
		if err := watcher.Add(file); err != nil {
			s.log.Warn().Err(err).Str("file", file).Msg("Failed to watch file")
		}
	}

	go s.runWatcher(ctx, watcher)

	return nil
}

// runWatcher processes file system events with debouncing.
func (s *Server) runWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Remove and Rename are common in atomic saves
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.handleFileChange(ctx, watcher)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Error().Err(err).Msg("File watcher error")
		}
	}
}

// handleFileChange rebuilds the converter and updates the watch list.
func (s *Server) handleFileChange(ctx context.Context, watcher *fsnotify.Watcher) {
	oldFiles := make(map[string]bool)
	for _, f := range s.Files() {
		oldFiles[f] = true
	}

	collector := telemetry.NewTimingCollector()
	timer := collector.Start("web.rebuild")
	err := s.reload(telemetry.WithCollector(ctx, collector))
	timer.End()

	for _, entry := range collector.Entries() {
		s.log.Debug().Str("timer", entry.Name).Int("depth", entry.Depth).Dur("duration", entry.Duration).Msg("Rebuild timing")
	}

	if err != nil {
		s.log.Error().Err(err).Msg("Failed to rebuild converter, keeping previous one")
		return
	}

	newFiles := make(map[string]bool)
	for _, f := range s.Files() {
		newFiles[f] = true
	}

	for file := range oldFiles {
		if !newFiles[file] {
			_ = watcher.Remove(file)
		}
	}

	// Re-add everything to catch re-created files.
	for file := range newFiles {
		if err := watcher.Add(file); err != nil {
			s.log.Warn().Err(err).Str("file", file).Msg("Failed to watch file")
		}
	}

	s.log.Info().Int("files", len(newFiles)).Msg("Converter rebuilt")
	s.broadcast("reload")
}
