// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package guard

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/jeranaias/moodchat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxChars is the default ceiling on forwarded characters per leg.
	DefaultMaxChars = 800

	// DefaultRepeatRun trips on any character repeated 11 times in a row.
	DefaultRepeatRun = 11

	// DefaultScriptChar is the Hebrew letter yod, which the persona tends to
	// stretch ("היייייי").
	DefaultScriptChar = 'י'

	// DefaultScriptRun trips on DefaultScriptChar repeated 15 times in a row.
	DefaultScriptRun = 15

	// matchTimeout bounds a single pattern evaluation.
	matchTimeout = 100 * time.Millisecond
)

// =============================================================================
// TRIP REASONS
// =============================================================================

// Reason describes why a guard stopped forwarding.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonRepetition Reason = "repetition"
	ReasonScriptRun  Reason = "script_repetition"
	ReasonMaxChars   Reason = "max_chars"
)

// String returns the string representation of the reason.
func (r Reason) String() string {
	if r == ReasonNone {
		return "none"
	}
	return string(r)
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds the guard limits.
type Config struct {
	MaxChars   int
	RepeatRun  int
	ScriptChar rune
	ScriptRun  int
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxChars:   DefaultMaxChars,
		RepeatRun:  DefaultRepeatRun,
		ScriptChar: DefaultScriptChar,
		ScriptRun:  DefaultScriptRun,
	}
}

// Validate checks that every limit is usable.
func (c Config) Validate() error {
	if c.MaxChars <= 0 {
		return fmt.Errorf("max_chars must be positive, got %d", c.MaxChars)
	}
	if c.RepeatRun < 2 {
		return fmt.Errorf("repeat_run must be at least 2, got %d", c.RepeatRun)
	}
	if c.ScriptRun < 2 {
		return fmt.Errorf("script_run must be at least 2, got %d", c.ScriptRun)
	}
	if c.ScriptChar == 0 {
		return fmt.Errorf("script_char must be set")
	}
	return nil
}

// =============================================================================
// PATTERNS
// =============================================================================

// Patterns holds the compiled repetition matchers for a Config.
// Patterns are immutable and safe to share between guards.
type Patterns struct {
	cfg    Config
	repeat *regexp2.Regexp
	script *regexp2.Regexp
}

// Compile builds the repetition matchers for cfg.
func Compile(cfg Config) (*Patterns, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// (.)\1{N-1,} : one character followed by N-1 copies of itself.
	repeat, err := regexp2.Compile(fmt.Sprintf(`(.)\1{%d,}`, cfg.RepeatRun-1), regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("failed to compile repeat pattern: %w", err)
	}
	repeat.MatchTimeout = matchTimeout

	script, err := regexp2.Compile(fmt.Sprintf(`%s{%d,}`, regexp2.Escape(string(cfg.ScriptChar)), cfg.ScriptRun), regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script pattern: %w", err)
	}
	script.MatchTimeout = matchTimeout

	return &Patterns{cfg: cfg, repeat: repeat, script: script}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(cfg Config) *Patterns {
	p, err := Compile(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the limits the patterns were compiled for.
func (p *Patterns) Config() Config {
	return p.cfg
}

// match reports which pattern, if any, matches text.
// A pattern that times out is treated as a match: runaway input is exactly
// what the guard exists to stop.
func (p *Patterns) match(text string) Reason {
	if ok, err := p.repeat.MatchString(text); ok || err != nil {
		return ReasonRepetition
	}
	if ok, err := p.script.MatchString(text); ok || err != nil {
		return ReasonScriptRun
	}
	return ReasonNone
}

// New creates a fresh guard using these patterns.
func (p *Patterns) New() *Guard {
	return &Guard{patterns: p, budget: new(int)}
}

// =============================================================================
// GUARD
// =============================================================================

// Guard is the per-leg output guard state.
type Guard struct {
	patterns *Patterns
	seen     strings.Builder
	chars    int
	budget   *int // characters admitted by every guard sharing the ceiling
	tripped  Reason
}

// Child returns a guard with fresh pattern state that draws on the same
// character ceiling as g. Tripping the child does not trip g.
func (g *Guard) Child() *Guard {
	return &Guard{patterns: g.patterns, budget: g.budget}
}

// Admit inspects a fragment. It returns true when the fragment may be
// forwarded. Once Admit returns false the guard stays tripped and rejects
// everything after.
func (g *Guard) Admit(fragment string) bool {
	if g.tripped != ReasonNone {
		return false
	}

	g.seen.WriteString(fragment)
	if reason := g.patterns.match(g.seen.String()); reason != ReasonNone {
		g.tripped = reason
		return false
	}

	n := util.RuneLen(fragment)
	if *g.budget+n > g.patterns.cfg.MaxChars {
		g.tripped = ReasonMaxChars
		return false
	}
	*g.budget += n
	g.chars += n
	return true
}

// Tripped returns the trip reason, or ReasonNone.
func (g *Guard) Tripped() Reason {
	return g.tripped
}

// Chars returns the number of characters this guard admitted.
func (g *Guard) Chars() int {
	return g.chars
}

// Used returns the characters admitted against the shared ceiling.
func (g *Guard) Used() int {
	return *g.budget
}
