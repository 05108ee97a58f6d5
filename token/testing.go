// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TestFacade is an in-memory Facade which makes writing tests much easier.
// Every operation is counted, and the outcome of each operation can be
// replaced with a func.
//
// By default AcquireTokenSilent returns a bearer token named after the
// audience, AcquireTokenInteractive adds TestAccount when no account is known,
// and SignOutInteractive removes the account.
type TestFacade struct {
	EventHub

	mu       sync.Mutex
	accounts []Account
	active   *Account

	silentFn      func(ctx context.Context, s Scopes, a Account, opts SilentOptions) (*oauth2.Token, error)
	interactiveFn func(ctx context.Context, s Scopes, opts InteractiveOptions) error
	signOutFn     func(ctx context.Context, a Account) error

	silentCalls      []SilentOptions
	interactiveCalls []InteractiveOptions
	signOutCalls     int
	activeSets       int
}

var _ Facade = (*TestFacade)(nil)

// TestAccount is the account TestFacade signs in by default.
var TestAccount = Account{
	HomeAccountID: "00000000-0000-0000-0000-000000000001.72f988bf-86f1-41af-91ab-2d7cd011db47",
	Username:      "alice@example.com",
	TenantID:      "72f988bf-86f1-41af-91ab-2d7cd011db47",
	Environment:   "login.microsoftonline.com",
}

// NewTestFacade creates a TestFacade that knows the given accounts.
func NewTestFacade(accounts ...Account) *TestFacade {
	return &TestFacade{accounts: append([]Account(nil), accounts...)}
}

// SetAccounts replaces the known accounts. It does not publish events.
func (f *TestFacade) SetAccounts(accounts ...Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append([]Account(nil), accounts...)
}

// SetSilent replaces the AcquireTokenSilent behavior.
func (f *TestFacade) SetSilent(fn func(ctx context.Context, s Scopes, a Account, opts SilentOptions) (*oauth2.Token, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silentFn = fn
}

// SetInteractive replaces the AcquireTokenInteractive behavior.
func (f *TestFacade) SetInteractive(fn func(ctx context.Context, s Scopes, opts InteractiveOptions) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interactiveFn = fn
}

// SetSignOut replaces the SignOutInteractive behavior.
func (f *TestFacade) SetSignOut(fn func(ctx context.Context, a Account) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutFn = fn
}

// SilentCalls returns the number of AcquireTokenSilent calls.
func (f *TestFacade) SilentCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.silentCalls)
}

// SilentOptionsSeen returns the options of every AcquireTokenSilent call.
func (f *TestFacade) SilentOptionsSeen() []SilentOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SilentOptions(nil), f.silentCalls...)
}

// InteractiveCalls returns the number of AcquireTokenInteractive calls.
func (f *TestFacade) InteractiveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.interactiveCalls)
}

// InteractiveOptionsSeen returns the options of every
// AcquireTokenInteractive call.
func (f *TestFacade) InteractiveOptionsSeen() []InteractiveOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]InteractiveOptions(nil), f.interactiveCalls...)
}

// SignOutCalls returns the number of SignOutInteractive calls.
func (f *TestFacade) SignOutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

// ActiveAccountSets returns the number of SetActiveAccount calls.
func (f *TestFacade) ActiveAccountSets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeSets
}

// Accounts implements Facade.
func (f *TestFacade) Accounts(_ context.Context) ([]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Account(nil), f.accounts...), nil
}

// ActiveAccount implements Facade.
func (f *TestFacade) ActiveAccount() (Account, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return Account{}, false
	}
	return *f.active, true
}

// SetActiveAccount implements Facade.
func (f *TestFacade) SetActiveAccount(a Account) {
	f.mu.Lock()
	f.activeSets++
	changed := f.active == nil || !f.active.Equal(a)
	f.active = &a
	f.mu.Unlock()
	if changed {
		f.Publish(Event{Type: EventActiveAccountChanged, Account: &a})
	}
}

// AcquireTokenSilent implements Facade.
func (f *TestFacade) AcquireTokenSilent(ctx context.Context, s Scopes, a Account, opt ...Option) (*oauth2.Token, error) {
	opts := GetSilentOpts(opt...)
	f.mu.Lock()
	f.silentCalls = append(f.silentCalls, opts)
	fn := f.silentFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, s, a, opts)
	}
	return &oauth2.Token{
		AccessToken: fmt.Sprintf("test-access-token:%s", s.Audience()),
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

// AcquireTokenInteractive implements Facade.
func (f *TestFacade) AcquireTokenInteractive(ctx context.Context, s Scopes, opt ...Option) error {
	opts := GetInteractiveOpts(opt...)
	f.mu.Lock()
	f.interactiveCalls = append(f.interactiveCalls, opts)
	fn := f.interactiveFn
	f.mu.Unlock()

	f.SetInteraction(InteractionLogin)
	defer f.SetInteraction(InteractionNone)
	f.Publish(Event{Type: EventLoginStart})

	if fn != nil {
		if err := fn(ctx, s, opts); err != nil {
			f.Publish(Event{Type: EventLoginFailure, Err: err})
			return err
		}
		f.Publish(Event{Type: EventLoginSuccess})
		return nil
	}

	f.mu.Lock()
	added := len(f.accounts) == 0
	if added {
		f.accounts = append(f.accounts, TestAccount)
	}
	f.mu.Unlock()
	acct := TestAccount
	if added {
		f.Publish(Event{Type: EventAccountAdded, Account: &acct})
	}
	f.Publish(Event{Type: EventLoginSuccess, Account: &acct})
	return nil
}

// SignOutInteractive implements Facade.
func (f *TestFacade) SignOutInteractive(ctx context.Context, a Account) error {
	f.mu.Lock()
	f.signOutCalls++
	fn := f.signOutFn
	f.mu.Unlock()

	f.SetInteraction(InteractionLogout)
	defer f.SetInteraction(InteractionNone)
	f.Publish(Event{Type: EventLogoutStart, Account: &a})

	if fn != nil {
		if err := fn(ctx, a); err != nil {
			f.Publish(Event{Type: EventLogoutFailure, Account: &a, Err: err})
			return err
		}
	}

	f.mu.Lock()
	kept := f.accounts[:0]
	for _, acct := range f.accounts {
		if !acct.Equal(a) {
			kept = append(kept, acct)
		}
	}
	f.accounts = kept
	if f.active != nil && f.active.Equal(a) {
		f.active = nil
	}
	f.mu.Unlock()

	f.Publish(Event{Type: EventAccountRemoved, Account: &a})
	f.Publish(Event{Type: EventLogoutSuccess, Account: &a})
	return nil
}
