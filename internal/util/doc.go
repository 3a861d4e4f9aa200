// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the moodchat packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis, used for log previews
//   - RuneLen: character count used by the output guard
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync, used by config Save
//
// # Usage
//
//	preview := util.TruncateRunes(persona, 100)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
