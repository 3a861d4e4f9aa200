// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the chat relay over HTTP.
//
// # Endpoints
//
//   - POST /api/chat - Stream a plain-text reply to {message, history}
//   - GET  /api/chat - Current persona as {systemInstruction}
//   - GET  /health   - Provider, model and credential status
//   - GET  /stats    - Relay outcome counters since startup
//
// Errors detected before the reply starts are returned as {error} documents.
// Once the reply has started the only way to report a failure is to break
// the connection, which the handler does by panicking with
// http.ErrAbortHandler.
//
// # Middleware
//
//   - RecoveryMiddleware: turns handler panics into 500s, passes aborts through
//   - SecurityHeadersMiddleware: nosniff, frame denial, strict CSP
//   - CORSMiddleware: origin allowlist and preflight handling
//   - LoggingMiddleware: request IDs and one zap line per request
//
// # Usage
//
//	srv := server.New(engine, server.Options{Addr: "127.0.0.1:3000", Logger: logger})
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
