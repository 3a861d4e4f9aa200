// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/jeranaias/moodchat/internal/gateway"
	"github.com/jeranaias/moodchat/internal/guard"
	"github.com/jeranaias/moodchat/internal/model"
	"github.com/jeranaias/moodchat/internal/persona"
	"github.com/jeranaias/moodchat/internal/tools"
	"github.com/jeranaias/moodchat/internal/util"
)

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine.
type Options struct {
	// Gateway streams model replies; nil behaves like an unconfigured gateway
	Gateway gateway.Gateway

	// Persona is the process-wide persona cell
	Persona *persona.Store

	// Guard holds the compiled output limits; nil uses guard.DefaultConfig
	Guard *guard.Patterns

	// SharedBudget makes the mood-change leg spend the first leg's ceiling
	SharedBudget bool

	// Model overrides the gateway's default model
	Model string

	// ResponseMIMEType is requested from the gateway; empty means text/plain
	ResponseMIMEType string

	Logger *zap.Logger
}

// Engine relays chat requests to the model gateway. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	gw           gateway.Gateway
	persona      *persona.Store
	patterns     *guard.Patterns
	sharedBudget bool
	model        string
	mimeType     string
	logger       *zap.Logger
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		gw:           opts.Gateway,
		persona:      opts.Persona,
		patterns:     opts.Guard,
		sharedBudget: opts.SharedBudget,
		model:        opts.Model,
		mimeType:     opts.ResponseMIMEType,
		logger:       opts.Logger,
	}
	if e.persona == nil {
		e.persona = persona.NewStore("")
	}
	if e.patterns == nil {
		e.patterns = guard.MustCompile(guard.DefaultConfig())
	}
	if e.mimeType == "" {
		e.mimeType = DefaultResponseMIMEType
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Persona returns the persona cell the engine reads and writes.
func (e *Engine) Persona() *persona.Store {
	return e.persona
}

// Provider returns the gateway's provider name, or "" without a gateway.
func (e *Engine) Provider() string {
	if e.gw == nil {
		return ""
	}
	return e.gw.Provider()
}

// Model returns the model id requests are sent with.
func (e *Engine) Model() string {
	if e.model != "" || e.gw == nil {
		return e.model
	}
	return e.gw.Model()
}

// Configured reports whether the gateway can be called.
func (e *Engine) Configured() bool {
	return e.gw != nil && e.gw.Configured()
}

// Open starts a relay for message on top of history. It returns
// ErrNotConfigured without calling the gateway when no credential is set,
// and ErrGateway when the gateway fails before its first event.
// A nil error means the caller may commit response headers and call Run.
func (e *Engine) Open(ctx context.Context, message string, history model.Conversation) (*Stream, error) {
	if !e.Configured() {
		return nil, ErrNotConfigured
	}

	current := e.persona.Get()
	conv := model.Compose(current, history, message)

	e.logger.Info("RELAY_START",
		zap.String("provider", e.gw.Provider()),
		zap.Int("history_turns", len(history)),
		zap.Int("message_chars", util.RuneLen(message)),
	)

	seq, err := e.gw.Stream(ctx, gateway.Request{
		Model:            e.model,
		Conversation:     conv,
		Tools:            tools.Manifest(),
		ResponseMIMEType: e.mimeType,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrNoCredential) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	next, stop := iter.Pull2(seq)
	first, ferr, ok := next()
	if ferr != nil {
		stop()
		return nil, fmt.Errorf("%w: %w", ErrGateway, ferr)
	}

	s := &Stream{
		engine:  e,
		next:    next,
		stop:    stop,
		history: history,
		message: message,
		guard:   e.patterns.New(),
	}
	if ok {
		s.pending = &first
	}
	s.enter(StateStreaming)
	return s, nil
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is one open relay. It is not safe for concurrent use.
type Stream struct {
	engine  *Engine
	next    func() (gateway.Event, error, bool)
	stop    func()
	pending *gateway.Event
	closed  bool

	history model.Conversation
	message string

	guard   *guard.Guard
	state   State
	summary Summary
}

// State returns the current state.
func (s *Stream) State() State {
	return s.state
}

// Summary returns what the relay has done so far.
func (s *Stream) Summary() Summary {
	sum := s.summary
	sum.Transitions = append([]State(nil), s.summary.Transitions...)
	return sum
}

// Close releases the gateway stream. It is safe to call more than once.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.stop()
	s.pending = nil
}

func (s *Stream) enter(state State) {
	s.state = state
	s.summary.Transitions = append(s.summary.Transitions, state)
}

// pull returns the next first-leg event.
func (s *Stream) pull() (gateway.Event, error, bool) {
	if s.pending != nil {
		ev := *s.pending
		s.pending = nil
		return ev, nil, true
	}
	return s.next()
}

// Run forwards the reply to sink until the gateway sequence is exhausted,
// the guard trips, or ctx is cancelled. It always closes the stream.
func (s *Stream) Run(ctx context.Context, sink Sink) error {
	defer s.Close()
	if s.closed {
		return fmt.Errorf("%w: stream already closed", ErrStream)
	}

	log := s.engine.logger
	for {
		if err := ctx.Err(); err != nil {
			s.enter(StateDone)
			return fmt.Errorf("%w: %w", ErrStream, err)
		}

		ev, err, ok := s.pull()
		if !ok {
			s.enter(StateDone)
			log.Info("RELAY_DONE",
				zap.Int("chars", s.summary.Chars),
				zap.Int("second_leg_chars", s.summary.SecondLegChars),
				zap.Bool("mood_changed", s.summary.MoodChanged),
			)
			return nil
		}
		if err != nil {
			s.enter(StateDone)
			return fmt.Errorf("%w: %w", ErrStream, err)
		}

		switch ev.Kind {
		case gateway.EventText:
			if !s.guard.Admit(ev.Text) {
				s.summary.Trip = s.guard.Tripped()
				s.enter(StateDone)
				log.Info("GUARD_TRIP",
					zap.Int("leg", 1),
					zap.Stringer("reason", s.summary.Trip),
					zap.Int("chars", s.summary.Chars),
				)
				return nil
			}
			if err := sink.Emit(ev.Text); err != nil {
				s.enter(StateDone)
				return fmt.Errorf("%w: %w", ErrStream, err)
			}
			s.summary.Chars = s.guard.Chars()

		case gateway.EventToolCall:
			instruction, ok := s.honorable(ev.Call)
			if !ok {
				s.summary.IgnoredCalls++
				log.Debug("TOOL_CALL_IGNORED",
					zap.String("name", ev.Call.Name),
					zap.Bool("mood_changed", s.summary.MoodChanged),
				)
				continue
			}
			if err := s.changeMood(ctx, sink, instruction); err != nil {
				s.enter(StateDone)
				return err
			}
			s.enter(StateResuming)
			s.enter(StateStreaming)
		}
	}
}

// honorable reports whether call is a changeMood call that may be honored.
func (s *Stream) honorable(call gateway.ToolCall) (string, bool) {
	if s.summary.MoodChanged || call.Name != tools.ChangeMoodName {
		return "", false
	}
	return tools.MoodInstruction(call.Args)
}

// =============================================================================
// MOOD CHANGE
// =============================================================================

// changeMood commits the new persona, emits the marker and streams the
// second leg. A guard trip ends only the second leg.
func (s *Stream) changeMood(ctx context.Context, sink Sink, instruction string) error {
	e := s.engine
	committed, ok := e.persona.Apply(instruction)
	if !ok {
		s.summary.IgnoredCalls++
		return nil
	}
	s.summary.MoodChanged = true
	s.enter(StateToolHandled)

	e.logger.Info("MOOD_CHANGED",
		zap.String("persona_preview", util.TruncateRunes(committed, 100)),
		zap.Uint64("changes", e.persona.Changes()),
	)

	if err := sink.Emit(Marker); err != nil {
		return fmt.Errorf("%w: %w", ErrStream, err)
	}

	seq, err := e.gw.Stream(ctx, gateway.Request{
		Model:            e.model,
		Conversation:     model.Compose(committed, s.history, s.message),
		ResponseMIMEType: e.mimeType,
	})
	if err != nil {
		return fmt.Errorf("%w: second leg: %w", ErrStream, err)
	}

	leg := e.patterns.New()
	if e.sharedBudget {
		leg = s.guard.Child()
	}

	for ev, err := range seq {
		if err != nil {
			return fmt.Errorf("%w: second leg: %w", ErrStream, err)
		}
		if ev.Kind != gateway.EventText {
			s.summary.IgnoredCalls++
			continue
		}
		if !leg.Admit(ev.Text) {
			s.summary.SecondLegTrip = leg.Tripped()
			e.logger.Info("GUARD_TRIP",
				zap.Int("leg", 2),
				zap.Stringer("reason", s.summary.SecondLegTrip),
				zap.Int("chars", s.summary.SecondLegChars),
			)
			break
		}
		if err := sink.Emit(ev.Text); err != nil {
			return fmt.Errorf("%w: %w", ErrStream, err)
		}
		s.summary.SecondLegChars = leg.Chars()
	}
	return nil
}
