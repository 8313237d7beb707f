// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tabu

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Progress is one immutable iteration report. The engine emits exactly
// one per completed iteration, synchronously at the iteration boundary;
// consumers decide their own rendering cadence and may sample.
type Progress struct {
	// RunID ties the event to one attack run.
	RunID string `json:"run_id"`

	// Iteration is the 1-based iteration counter.
	Iteration int `json:"iteration"`

	// CurrentScore is the score of the candidate after this iteration's
	// move was applied.
	CurrentScore int `json:"current_score"`

	// BestScore is the best score seen so far. Non-increasing across
	// the event sequence of a run.
	BestScore int `json:"best_score"`

	// TabuSize is the number of live tabu entries.
	TabuSize int `json:"tabu_size"`

	// Applied is the move this iteration committed.
	Applied Move `json:"applied"`

	// Aspired marks an applied move that was tabu but overrode the list
	// by beating the best score.
	Aspired bool `json:"aspired,omitempty"`

	// BestState is a copy of the best permutation, attached only every
	// SnapshotEvery iterations (nil otherwise).
	BestState []int `json:"best_state,omitempty"`

	// Timestamp is when the iteration committed.
	Timestamp time.Time `json:"timestamp"`
}

// Handler is a function that processes progress events.
type Handler func(p Progress)

// Filter decides whether a subscription sees an event.
type Filter func(p Progress) bool

type subscription struct {
	handler Handler
	filter  Filter
	ch      chan Progress
}

// Emitter broadcasts progress events to subscribers. The engine owns one
// and emits from the search loop only, never from scoring workers.
//
// Thread Safety: safe for concurrent Subscribe/Unsubscribe against a
// running emit loop.
type Emitter struct {
	mu   sync.RWMutex
	subs map[string]*subscription
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[string]*subscription)}
}

// Subscribe registers a synchronous handler. A nil filter receives every
// event. Returns the subscription ID for Unsubscribe.
func (e *Emitter) Subscribe(h Handler, f Filter) string {
	id := uuid.New().String()
	e.mu.Lock()
	e.subs[id] = &subscription{handler: h, filter: f}
	e.mu.Unlock()
	return id
}

// Channel registers a buffered channel subscriber and returns the receive
// side plus a cancel function that unsubscribes and closes it. When the
// buffer is full new events are dropped rather than blocking the search
// loop, so slow consumers see a sampled stream.
func (e *Emitter) Channel(buffer int) (<-chan Progress, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Progress, buffer)
	id := uuid.New().String()

	e.mu.Lock()
	e.subs[id] = &subscription{ch: ch}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// Unsubscribe removes a handler subscription.
func (e *Emitter) Unsubscribe(id string) {
	e.mu.Lock()
	sub, ok := e.subs[id]
	if ok {
		delete(e.subs, id)
		if sub.ch != nil {
			close(sub.ch)
		}
	}
	e.mu.Unlock()
}

// Emit delivers p to every matching subscriber. Handlers run inline on
// the caller's goroutine.
func (e *Emitter) Emit(p Progress) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, sub := range e.subs {
		if sub.filter != nil && !sub.filter(p) {
			continue
		}
		if sub.handler != nil {
			sub.handler(p)
		}
		if sub.ch != nil {
			select {
			case sub.ch <- p:
			default: // drop for slow consumers
			}
		}
	}
}

// Close drops all subscriptions and closes channel subscribers. The
// engine calls it when a run reaches a terminal state.
func (e *Emitter) Close() {
	e.mu.Lock()
	for id, sub := range e.subs {
		delete(e.subs, id)
		if sub.ch != nil {
			close(sub.ch)
		}
	}
	e.mu.Unlock()
}
