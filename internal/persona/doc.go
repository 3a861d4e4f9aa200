// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona owns the active system instruction ("mood") of the bot.
//
// The persona is a single process-wide string. It is read at the start of
// every relay and replaced whenever the model calls changeMood. Writers do
// not coordinate: the last write wins and concurrent requests may observe
// either value. The Store only guarantees that a read never sees a torn or
// empty value.
//
// # Key Types
//
//   - Store: Lockable state cell injected into the relay engine
//   - Watcher: Optional fsnotify watcher that re-applies a persona file
//
// # Usage
//
//	store := persona.NewStore("")        // starts with persona.Default
//	committed, ok := store.Apply(args["new_system_instruction"])
//	if ok {
//	    log.Printf("persona now %q", committed)
//	}
package persona
