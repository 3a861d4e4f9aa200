// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/moodchat/internal/util"
)

// =============================================================================
// PERSONA FILE
// =============================================================================

// LoadFile reads a persona from disk and normalizes it.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read persona file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("persona file %s: %w", path, ErrEmpty)
	}
	return Normalize(text), nil
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// Watcher re-applies a persona file to a Store whenever the file changes.
// A file edit is just another writer: it races with mood changes and the
// last write wins.
type Watcher struct {
	path    string
	store   *Store
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher for path. The parent directory is watched so
// editors that replace the file via rename are still observed.
func NewWatcher(path string, store *Store, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		store:   store,
		logger:  logger,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// Run processes file system events until ctx is canceled or Close is called.
func (pw *Watcher) Run(ctx context.Context) {
	defer close(pw.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				pw.reload()
			}

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn("PERSONA_WATCH_ERROR", zap.Error(err))
		}
	}
}

// reload reads the file and commits it; unreadable or blank files are ignored.
func (pw *Watcher) reload() {
	text, err := LoadFile(pw.path)
	if err != nil {
		pw.logger.Warn("PERSONA_RELOAD_SKIPPED", zap.String("path", pw.path), zap.Error(err))
		return
	}
	if err := pw.store.Set(text); err != nil {
		return
	}
	pw.logger.Info("PERSONA_RELOADED",
		zap.String("path", pw.path),
		zap.String("preview", util.TruncateRunes(text, 100)),
	)
}

// Close stops the watcher and waits for Run to return if it was started.
func (pw *Watcher) Close() error {
	return pw.watcher.Close()
}

// Done is closed when Run returns.
func (pw *Watcher) Done() <-chan struct{} {
	return pw.done
}
