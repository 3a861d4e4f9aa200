// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard bounds the length of a streamed reply and stops degenerate
// repetitive output.
//
// A Guard is created per gateway leg and inspects every text fragment
// before it is forwarded. When a limit is hit the fragment is rejected as a
// whole and the leg ends. A trip is not an error: the reply is simply cut.
//
// # Limits
//
//   - MaxChars: ceiling on forwarded characters (Unicode code points)
//   - RepeatRun: any single character repeated this many times in a row
//   - ScriptRun: ScriptChar repeated this many times in a row
//
// Patterns are matched against all text seen by the leg, so a run that is
// split across fragments is still detected.
//
// # Legs
//
// Patterns.New starts an independent leg. Guard.Child starts a leg with its
// own pattern state that spends the parent's character ceiling.
package guard
