// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the process logger.
//
// Logs go to stderr as JSON (or console text for local runs). When a file
// is configured, every entry is also written to a size-rotated file.
// Messages use upper-case event names with typed fields:
//
//	logger.Info("MOOD_CHANGED", zap.String("persona_preview", preview))
package logging
