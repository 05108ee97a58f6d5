// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/cap-entra/token"
	"github.com/hashicorp/go-hclog"
)

// State is a snapshot of the session.
type State struct {
	IsCheckingSilentLogin bool
	IsAuthenticated       bool
	IsLoginInProgress     bool
	IsLogoutInProgress    bool

	// Error is the last user-visible error, or "".
	Error string
}

// Monitor keeps the session State current by following the facade's events.
// Results of work started before Unmount are ignored.
type Monitor struct {
	facade       token.Facade
	fetcher      *token.Fetcher
	returnTarget string
	logger       hclog.Logger

	mu          sync.Mutex
	state       State
	ignore      *atomic.Bool
	unsubscribe func()
	hub         observers

	// evaluations tracks event driven evaluations still running.
	evaluations sync.WaitGroup
}

// New creates a Monitor. The fetcher's audience is the default audience: its
// scopes are requested by Login and it is used to probe the session.
//
// Supported options:
//   - WithLogger
//   - WithReturnTarget
func New(facade token.Facade, fetcher *token.Fetcher, opt ...Option) (*Monitor, error) {
	const op = "session.New"
	switch {
	case facade == nil:
		return nil, fmt.Errorf("%s: facade is nil: %w", op, ErrNilParameter)
	case fetcher == nil:
		return nil, fmt.Errorf("%s: fetcher is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	ignore := new(atomic.Bool)
	ignore.Store(true)
	return &Monitor{
		facade:       facade,
		fetcher:      fetcher,
		returnTarget: opts.withReturnTarget,
		logger:       opts.withLogger.Named("session"),
		state:        State{IsCheckingSilentLogin: true},
		ignore:       ignore,
	}, nil
}

// State returns a snapshot of the session.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn to be called with the new State after every
// change. The returned func unsubscribes fn.
func (m *Monitor) Subscribe(fn func(State)) func() {
	return m.hub.subscribe(fn)
}

// Mount subscribes to the facade's events and evaluates the session. The
// initial evaluation has completed when Mount returns; later evaluations run
// in the background with ctx. Mounting an already mounted Monitor is a no-op.
func (m *Monitor) Mount(ctx context.Context) {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return
	}
	latch := new(atomic.Bool)
	m.ignore = latch
	m.unsubscribe = m.facade.Subscribe(func(e token.Event) {
		if !e.ChangesSession() || latch.Load() {
			return
		}
		m.evaluations.Add(1)
		go func() {
			defer m.evaluations.Done()
			m.evaluate(ctx, latch)
		}()
	})
	m.mu.Unlock()

	m.evaluate(ctx, latch)
}

// Unmount unsubscribes from the facade's events. Evaluations, logins and
// logouts still running keep running, but their results are ignored.
func (m *Monitor) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignore.Store(true)
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// evaluate recomputes the session from the facade. While the facade is busy
// with an interactive flow nothing changes; the flow's completion triggers
// another evaluation.
func (m *Monitor) evaluate(ctx context.Context, latch *atomic.Bool) {
	if it := m.facade.InteractionInProgress(); it != token.InteractionNone {
		m.logger.Trace("interaction in progress, waiting", "interaction", it)
		return
	}
	accounts, err := m.facade.Accounts(ctx)
	if err != nil {
		m.logger.Error("unable to list accounts", "error", err)
	}
	if len(accounts) == 0 {
		m.update(latch, func(s *State) {
			s.IsAuthenticated = false
			s.IsCheckingSilentLogin = false
		})
		return
	}
	m.update(latch, func(s *State) {
		s.IsAuthenticated = true
	})

	acct, ok := m.facade.ActiveAccount()
	if !ok || acct.IsZero() {
		acct = accounts[0]
	}
	// liveness probe only, a failure here is never shown to the user
	if _, err := m.fetcher.Fetch(ctx, acct, token.WithoutInteraction()); err != nil {
		m.logger.Warn("silent sign-in probe failed", "account", acct.String(), "error", err)
	}
	m.update(latch, func(s *State) {
		s.IsCheckingSilentLogin = false
	})
}

// Login starts the interactive sign-in flow for the default audience. A
// failure to start the flow is recorded in State.Error.
func (m *Monitor) Login(ctx context.Context) {
	latch := m.latch()
	m.update(latch, func(s *State) {
		s.IsLoginInProgress = true
		s.Error = ""
	})
	defer m.update(latch, func(s *State) {
		s.IsLoginInProgress = false
	})

	err := m.facade.AcquireTokenInteractive(ctx, m.fetcher.Scopes(), token.WithReturnTarget(m.returnTarget))
	if err != nil {
		m.logger.Error("login failed", "error", err)
		m.update(latch, func(s *State) {
			s.Error = fmt.Sprintf("login failed: %s", err)
		})
	}
}

// Logout starts the interactive sign-out flow for the active account. A
// failure is recorded in State.Error.
func (m *Monitor) Logout(ctx context.Context) {
	latch := m.latch()
	m.update(latch, func(s *State) {
		s.IsLogoutInProgress = true
		s.Error = ""
	})
	defer m.update(latch, func(s *State) {
		s.IsLogoutInProgress = false
	})

	acct, ok := m.facade.ActiveAccount()
	if !ok {
		if accounts, err := m.facade.Accounts(ctx); err == nil && len(accounts) > 0 {
			acct = accounts[0]
		}
	}
	if err := m.facade.SignOutInteractive(ctx, acct); err != nil {
		m.logger.Error("logout failed", "account", acct.String(), "error", err)
		m.update(latch, func(s *State) {
			s.Error = fmt.Sprintf("logout failed: %s", err)
		})
	}
}

// latch returns the latch of the current mount. Calls made while unmounted
// still update the State.
func (m *Monitor) latch() *atomic.Bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe == nil {
		return new(atomic.Bool)
	}
	return m.ignore
}

// update applies fn to the State unless latch is set, and notifies the
// subscribers when the State changed.
func (m *Monitor) update(latch *atomic.Bool, fn func(*State)) {
	m.mu.Lock()
	if latch.Load() {
		m.mu.Unlock()
		return
	}
	prev := m.state
	fn(&m.state)
	next := m.state
	m.mu.Unlock()
	if next != prev {
		m.hub.publish(next)
	}
}

type observers struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(State)
}

func (o *observers) subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = map[int]func(State){}
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
		})
	}
}

func (o *observers) publish(s State) {
	o.mu.Lock()
	fns := make([]func(State), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
