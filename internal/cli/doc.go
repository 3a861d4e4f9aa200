// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the moodchat command line.
//
// # Commands
//
//   - serve (default): run the chat relay HTTP server
//   - config: show, get, set and list configuration keys
//   - persona: print the startup persona or normalize an instruction
//   - version: print build information
//
// # Usage
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
//	    os.Exit(1)
//	}
package cli
