// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay streams a model reply to a client while guarding its output
// and handling in-band mood changes.
//
// A relay has two phases. Open composes the conversation (current persona,
// caller history, new message), starts the gateway stream and pulls the
// first event. Errors up to that point are reported to the caller before
// anything is written, so the transport can still answer with a JSON error
// document. Run then forwards the reply to a Sink.
//
// # States
//
//	Streaming     forwarding text from the first leg
//	ToolHandled   a changeMood call was honored; the second leg is streaming
//	Resuming      the second leg ended; back to the first leg
//	Done          stream exhausted, guard tripped, or failed
//
// At most one changeMood call is honored per request. The second leg is sent
// without a tool manifest, so it cannot ask for another one, and later calls
// on the first leg are ignored.
//
// # Errors
//
//   - ErrNotConfigured: no gateway credential; no gateway call was made
//   - ErrGateway: the gateway failed before the first event
//   - ErrStream: failure after output started
//
// A guard trip is not an error.
package relay
