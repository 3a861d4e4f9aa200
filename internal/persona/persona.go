// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Default is the persona the process starts with.
const Default = "אתה מאוד מעצבן, מתלהב כמו ילד קטן, ולא מרפה מהמשתמש המסכן. תענה בעברית בלבד ותהיה מלא אנרגיה וחיוכים. אל תחזור על עצמך יותר מדי ותנסה להיות יצירתי בתגובות שלך. חשוב מאוד: תגובותיך צריכות להיות קצרות ולא יותר מ-3 משפטים. אל תחזור על אותיות או מילים באופן מוגזם (למשל \"היייי\" ארוך). תהיה מתלהב אבל קצר ולעניין."

// ConstraintPhrase marks an instruction that already carries the brevity constraint.
const ConstraintPhrase = "תגובותיך צריכות להיות קצרות"

// ConstraintSuffix is appended to instructions missing ConstraintPhrase:
// at most three sentences, no excessive repetition of letters or words.
const ConstraintSuffix = "חשוב מאוד: תגובותיך צריכות להיות קצרות ולא יותר מ-3 משפטים. אל תחזור על אותיות או מילים באופן מוגזם."

// ErrEmpty is returned when an empty instruction is offered to the store.
var ErrEmpty = errors.New("persona: instruction is empty")

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize returns the instruction with ConstraintSuffix appended unless
// ConstraintPhrase is already present. The instruction bytes are kept as
// given; only the phrase lookup compares in NFC. Normalize is idempotent.
func Normalize(instruction string) string {
	if strings.Contains(norm.NFC.String(instruction), ConstraintPhrase) {
		return instruction
	}
	return instruction + " " + ConstraintSuffix
}

// =============================================================================
// STORE
// =============================================================================

// Store is the process-wide persona cell.
// Reads and writes are atomic with respect to each other; there is no
// read-modify-write transaction, so the last Set wins.
type Store struct {
	mu      sync.RWMutex
	current string
	changes uint64
}

// NewStore creates a store holding initial, or Default when initial is blank.
func NewStore(initial string) *Store {
	if strings.TrimSpace(initial) == "" {
		initial = Default
	}
	return &Store{current: initial}
}

// Get returns the current persona.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Changes returns how many times the persona has been replaced since startup.
func (s *Store) Changes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changes
}

// Set replaces the persona verbatim. Blank instructions are rejected and the
// prior value is kept.
func (s *Store) Set(instruction string) error {
	if strings.TrimSpace(instruction) == "" {
		return ErrEmpty
	}
	s.mu.Lock()
	s.current = instruction
	s.changes++
	s.mu.Unlock()
	return nil
}

// Apply validates a raw tool argument, normalizes it and commits it.
// Returns the committed persona and true, or "" and false when the argument
// is not a non-blank string (the store is left untouched).
func (s *Store) Apply(raw any) (string, bool) {
	proposed, ok := raw.(string)
	if !ok || strings.TrimSpace(proposed) == "" {
		return "", false
	}
	normalized := Normalize(proposed)
	if err := s.Set(normalized); err != nil {
		return "", false
	}
	return normalized, true
}
