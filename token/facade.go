// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import (
	"context"

	"golang.org/x/oauth2"
)

// Facade is the session store of the vendor authentication library. It owns
// accounts, cached tokens and the active-account selection; this module never
// persists its own copy of a token.
//
// AcquireTokenSilent must return an error matching ErrInteractionRequired when
// the token cannot be obtained without user action.
//
// AcquireTokenInteractive and SignOutInteractive hand control to the user's
// browser. A nil error means the flow was initiated; it says nothing about
// whether a token is now available.
type Facade interface {
	Accounts(ctx context.Context) ([]Account, error)
	ActiveAccount() (Account, bool)
	SetActiveAccount(a Account)
	AcquireTokenSilent(ctx context.Context, s Scopes, a Account, opt ...Option) (*oauth2.Token, error)
	AcquireTokenInteractive(ctx context.Context, s Scopes, opt ...Option) error
	SignOutInteractive(ctx context.Context, a Account) error
	Notifier
}

// Notifier reports what the authentication library is doing.
type Notifier interface {
	// InteractionInProgress returns the interactive flow currently running,
	// or InteractionNone when the library is idle.
	InteractionInProgress() Interaction

	// Subscribe registers fn for every subsequent Event. The returned func
	// removes the subscription.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Interaction is the kind of interactive flow the library is running.
type Interaction string

const (
	InteractionNone         Interaction = "none"
	InteractionLogin        Interaction = "login"
	InteractionLogout       Interaction = "logout"
	InteractionAcquireToken Interaction = "acquireToken"
)

// EventType classifies an Event.
type EventType string

const (
	EventLoginStart               EventType = "login_start"
	EventLoginSuccess             EventType = "login_success"
	EventLoginFailure             EventType = "login_failure"
	EventLogoutStart              EventType = "logout_start"
	EventLogoutSuccess            EventType = "logout_success"
	EventLogoutFailure            EventType = "logout_failure"
	EventAcquireTokenSuccess      EventType = "acquire_token_success"
	EventAcquireTokenFailure      EventType = "acquire_token_failure"
	EventAccountAdded             EventType = "account_added"
	EventAccountRemoved           EventType = "account_removed"
	EventActiveAccountChanged     EventType = "active_account_changed"
	EventInteractionStatusChanged EventType = "interaction_status_changed"
)

// Event is a notification from the authentication library.
type Event struct {
	Type EventType

	// Account is set for account, login and logout events.
	Account *Account

	// Interaction is the interaction status after the event.
	Interaction Interaction

	// Err is set for failure events.
	Err error
}

// ChangesSession reports whether e can change the set of known accounts or
// the library's busy/idle status.
func (e Event) ChangesSession() bool {
	switch e.Type {
	case EventAcquireTokenSuccess, EventAcquireTokenFailure, EventActiveAccountChanged:
		return false
	default:
		return true
	}
}
