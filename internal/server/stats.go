// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jeranaias/moodchat/internal/guard"
	"github.com/jeranaias/moodchat/internal/relay"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats counts relay outcomes since startup. Safe for concurrent use.
type ServerStats struct {
	startTime time.Time

	requests       atomic.Int64
	rejected       atomic.Int64
	completed      atomic.Int64
	streamFailures atomic.Int64
	moodChanges    atomic.Int64
	guardTrips     atomic.Int64
	charsForwarded atomic.Int64
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{startTime: time.Now()}
}

// RecordRejected records a chat request answered with an error document.
func (s *ServerStats) RecordRejected() {
	s.requests.Add(1)
	s.rejected.Add(1)
}

// RecordRelay records a chat request that started streaming.
func (s *ServerStats) RecordRelay(sum relay.Summary, failed bool) {
	s.requests.Add(1)
	if failed {
		s.streamFailures.Add(1)
	} else {
		s.completed.Add(1)
	}
	if sum.MoodChanged {
		s.moodChanges.Add(1)
	}
	if sum.Trip != guard.ReasonNone {
		s.guardTrips.Add(1)
	}
	if sum.SecondLegTrip != guard.ReasonNone {
		s.guardTrips.Add(1)
	}
	s.charsForwarded.Add(int64(sum.Chars + sum.SecondLegChars))
}

// Uptime returns the server uptime duration.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// StatsResponse represents the usage statistics response.
type StatsResponse struct {
	TotalRequests  int64  `json:"total_requests"`
	Rejected       int64  `json:"rejected"`
	Completed      int64  `json:"completed"`
	StreamFailures int64  `json:"stream_failures"`
	MoodChanges    int64  `json:"mood_changes"`
	GuardTrips     int64  `json:"guard_trips"`
	CharsForwarded int64  `json:"chars_forwarded"`
	PersonaChanges uint64 `json:"persona_changes"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// Snapshot returns the current counters.
func (s *ServerStats) Snapshot() StatsResponse {
	return StatsResponse{
		TotalRequests:  s.requests.Load(),
		Rejected:       s.rejected.Load(),
		Completed:      s.completed.Load(),
		StreamFailures: s.streamFailures.Load(),
		MoodChanges:    s.moodChanges.Load(),
		GuardTrips:     s.guardTrips.Load(),
		CharsForwarded: s.charsForwarded.Load(),
		UptimeSeconds:  int64(s.Uptime().Seconds()),
	}
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()
	snap.PersonaChanges = s.engine.Persona().Changes()
	writeJSON(w, http.StatusOK, snap)
}
