// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"

	"github.com/jeranaias/moodchat/internal/gateway"
)

// =============================================================================
// FAKE GATEWAY
// =============================================================================

// step is one scripted gateway item.
type step struct {
	ev  gateway.Event
	err error
}

func text(s string) step { return step{ev: gateway.TextEvent(s)} }

func call(name string, args map[string]any) step {
	return step{ev: gateway.CallEvent(name, args)}
}

func mood(instruction string) step {
	return call("changeMood", map[string]any{"new_system_instruction": instruction})
}

func fail(msg string) step { return step{err: errors.New(msg)} }

// fakeGateway replays one script per Stream call.
type fakeGateway struct {
	mu         sync.Mutex
	scripts    [][]step
	requests   []gateway.Request
	stops      int
	unconfig   bool
	streamErrs map[int]error
}

func newFake(scripts ...[]step) *fakeGateway {
	return &fakeGateway{scripts: scripts}
}

func (f *fakeGateway) Provider() string { return "fake" }
func (f *fakeGateway) Model() string    { return "fake-model" }
func (f *fakeGateway) Configured() bool { return !f.unconfig }

func (f *fakeGateway) Stream(ctx context.Context, req gateway.Request) (iter.Seq2[gateway.Event, error], error) {
	f.mu.Lock()
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	err := f.streamErrs[idx]
	var script []step
	if idx < len(f.scripts) {
		script = f.scripts[idx]
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return func(yield func(gateway.Event, error) bool) {
		defer func() {
			f.mu.Lock()
			f.stops++
			f.mu.Unlock()
		}()
		for _, st := range script {
			if err := ctx.Err(); err != nil {
				yield(gateway.Event{}, err)
				return
			}
			if !yield(st.ev, st.err) {
				return
			}
			if st.err != nil {
				return
			}
		}
	}, nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGateway) request(i int) gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func (f *fakeGateway) stopped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// =============================================================================
// RECORDING SINK
// =============================================================================

// recordingSink collects emitted fragments.
type recordingSink struct {
	fragments []string
	failAt    int // fail on this 1-based emit; 0 never fails
	onEmit    func(n int)
}

func (r *recordingSink) Emit(text string) error {
	n := len(r.fragments) + 1
	if r.failAt > 0 && n == r.failAt {
		return errors.New("broken pipe")
	}
	r.fragments = append(r.fragments, text)
	if r.onEmit != nil {
		r.onEmit(n)
	}
	return nil
}

func (r *recordingSink) String() string {
	return strings.Join(r.fragments, "")
}
