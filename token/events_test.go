// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventHub(t *testing.T) {
	t.Parallel()
	t.Run("subscribe-publish-unsubscribe", func(t *testing.T) {
		assert := assert.New(t)
		var h EventHub
		var got []EventType
		unsubscribe := h.Subscribe(func(e Event) { got = append(got, e.Type) })

		h.Publish(Event{Type: EventLoginStart})
		h.Publish(Event{Type: EventLoginSuccess})
		unsubscribe()
		unsubscribe() // safe to call twice
		h.Publish(Event{Type: EventLogoutStart})

		assert.Equal([]EventType{EventLoginStart, EventLoginSuccess}, got)
	})
	t.Run("interaction-status", func(t *testing.T) {
		assert := assert.New(t)
		var h EventHub
		assert.Equal(InteractionNone, h.InteractionInProgress())

		var got []Event
		h.Subscribe(func(e Event) { got = append(got, e) })

		h.SetInteraction(InteractionLogin)
		h.SetInteraction(InteractionLogin) // unchanged, no event
		assert.Equal(InteractionLogin, h.InteractionInProgress())
		h.SetInteraction(InteractionNone)

		if assert.Len(got, 2) {
			assert.Equal(EventInteractionStatusChanged, got[0].Type)
			assert.Equal(InteractionLogin, got[0].Interaction)
			assert.Equal(InteractionNone, got[1].Interaction)
		}
	})
	t.Run("nil-subscriber", func(t *testing.T) {
		var h EventHub
		unsubscribe := h.Subscribe(nil)
		h.Publish(Event{Type: EventLoginStart})
		unsubscribe()
	})
}

func TestEvent_ChangesSession(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.True(Event{Type: EventAccountAdded}.ChangesSession())
	assert.True(Event{Type: EventInteractionStatusChanged}.ChangesSession())
	assert.True(Event{Type: EventLogoutSuccess}.ChangesSession())
	assert.False(Event{Type: EventAcquireTokenSuccess}.ChangesSession())
	assert.False(Event{Type: EventActiveAccountChanged}.ChangesSession())
}
