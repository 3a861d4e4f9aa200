// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/moodchat/internal/gateway"
	"github.com/jeranaias/moodchat/internal/model"
	"github.com/jeranaias/moodchat/internal/relay"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// Version is reported by /health and the version command.
	Version = "1.0.0"

	// DefaultAddr is used when Options.Addr is empty.
	DefaultAddr = "127.0.0.1:3000"

	// MaxRequestBodySize is the default request body limit (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr         string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
	CORS         *CORSConfig
	Logger       *zap.Logger
}

// Server is the HTTP API server in front of a relay engine.
type Server struct {
	opts   Options
	engine *relay.Engine
	router *http.ServeMux
	stats  *ServerStats
	logger *zap.Logger

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// New creates a Server that relays chat requests through engine.
func New(engine *relay.Engine, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = MaxRequestBodySize
	}
	if opts.CORS == nil {
		opts.CORS = DefaultCORSConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Server{
		opts:   opts,
		engine: engine,
		router: http.NewServeMux(),
		stats:  NewServerStats(),
		logger: opts.Logger,
	}
	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /api/chat", s.handlePersona)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(s.opts.CORS),
		LoggingMiddleware(s.logger),
	)(s.router)
}

// ============================================================================
// REQUEST/RESPONSE TYPES
// ============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string           `json:"message"`
	History []model.WireTurn `json:"history"`
}

// PersonaResponse is the body of GET /api/chat.
type PersonaResponse struct {
	SystemInstruction string `json:"systemInstruction"`
}

// ErrorResponse is the error document.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := s.logger.With(zap.String("request_id", RequestID(r.Context())))

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.stats.RecordRejected()
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", tooLarge.Limit))
			return
		}
		// Full details stay in the log
		log.Warn("INVALID_REQUEST", zap.Error(err))
		s.stats.RecordRejected()
		writeError(w, http.StatusInternalServerError, "Invalid request body")
		return
	}

	history, err := model.FromWire(req.History)
	if err != nil {
		log.Warn("INVALID_REQUEST", zap.Error(err))
		s.stats.RecordRejected()
		writeError(w, http.StatusInternalServerError, "Invalid request body")
		return
	}

	stream, err := s.engine.Open(r.Context(), req.Message, history)
	if err != nil {
		s.stats.RecordRejected()
		if errors.Is(err, relay.ErrNotConfigured) {
			log.Error("GATEWAY_NOT_CONFIGURED", zap.String("provider", s.engine.Provider()))
			writeError(w, http.StatusInternalServerError, notConfiguredMessage(s.engine.Provider()))
			return
		}
		log.Error("GATEWAY_FAILED", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer stream.Close()

	sink := relay.NewHTTPSink(w)
	if err := sink.CommitHeaders(); err != nil {
		s.stats.RecordRelay(stream.Summary(), true)
		log.Warn("STREAM_ABORTED", zap.Error(err))
		panic(http.ErrAbortHandler)
	}

	err = stream.Run(r.Context(), sink)
	s.stats.RecordRelay(stream.Summary(), err != nil)
	if err != nil {
		// Headers are out; only a broken connection can signal failure.
		if r.Context().Err() != nil {
			log.Info("CLIENT_DISCONNECTED", zap.Error(err))
		} else {
			log.Error("STREAM_FAILED", zap.Error(err), zap.Stringer("state", stream.State()))
		}
		panic(http.ErrAbortHandler)
	}
}

// notConfiguredMessage names the missing credential.
func notConfiguredMessage(provider string) string {
	switch provider {
	case gateway.ProviderGemini, "":
		return "Google API key not configured"
	case gateway.ProviderAnthropic:
		return "Anthropic API key not configured"
	case gateway.ProviderOpenAI:
		return "OpenAI API key not configured"
	default:
		return fmt.Sprintf("%s API key not configured", provider)
	}
}

// ============================================================================
// PERSONA HANDLER
// ============================================================================

// handlePersona handles GET /api/chat.
func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PersonaResponse{
		SystemInstruction: s.engine.Persona().Get(),
	})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:     "ok",
		Version:    Version,
		Provider:   s.engine.Provider(),
		Model:      s.engine.Model(),
		Configured: s.engine.Configured(),
	}
	if !health.Configured {
		health.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
// Once Shutdown has been called, Serve closes ln and returns nil at once.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: s.opts.ReadTimeout,
		IdleTimeout: s.opts.IdleTimeout,
		// No WriteTimeout: replies stream for as long as the model talks.
		ErrorLog: zap.NewStdLog(s.logger.Named("http")),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("SERVER_START",
		zap.String("addr", ln.Addr().String()),
		zap.String("version", Version),
		zap.String("provider", s.engine.Provider()),
		zap.Bool("configured", s.engine.Configured()),
	)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. It is terminal: a Serve that
// has not started yet returns without serving.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	s.logger.Info("SERVER_SHUTDOWN", zap.String("phase", "graceful"))
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: strings.TrimSpace(message)})
}
