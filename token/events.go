// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import "sync"

// EventHub is a Notifier implementation that facades embed. The zero value is
// ready to use.
type EventHub struct {
	mu          sync.Mutex
	nextID      int
	subs        map[int]func(Event)
	interaction Interaction
}

// Subscribe implements Notifier.
func (h *EventHub) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = map[int]func(Event){}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

// InteractionInProgress implements Notifier.
func (h *EventHub) InteractionInProgress() Interaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interaction == "" {
		return InteractionNone
	}
	return h.interaction
}

// SetInteraction records the interaction status and publishes
// EventInteractionStatusChanged when it changed.
func (h *EventHub) SetInteraction(i Interaction) {
	h.mu.Lock()
	prev := h.interaction
	if prev == "" {
		prev = InteractionNone
	}
	h.interaction = i
	h.mu.Unlock()
	if prev != i {
		h.Publish(Event{Type: EventInteractionStatusChanged})
	}
}

// Publish delivers e to every subscriber, in no particular order, on the
// calling goroutine. The event's Interaction is filled in with the current
// status.
func (h *EventHub) Publish(e Event) {
	h.mu.Lock()
	e.Interaction = h.interaction
	if e.Interaction == "" {
		e.Interaction = InteractionNone
	}
	subs := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}
