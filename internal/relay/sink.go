// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"fmt"
	"io"
	"net/http"
)

// Sink receives the reply. Emit returns only after the text has been handed
// to the client connection.
type Sink interface {
	Emit(text string) error
}

// =============================================================================
// HTTP SINK
// =============================================================================

// HTTPSink writes to an http.ResponseWriter and flushes after every write.
type HTTPSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewHTTPSink wraps w.
func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	return &HTTPSink{w: w, rc: http.NewResponseController(w)}
}

// CommitHeaders sets the streaming headers and sends the status line.
func (s *HTTPSink) CommitHeaders() error {
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	return s.flush()
}

// Emit writes text and flushes it.
func (s *HTTPSink) Emit(text string) error {
	if _, err := io.WriteString(s.w, text); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return s.flush()
}

func (s *HTTPSink) flush() error {
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
