// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package profile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// ViewState is a snapshot of a View.
type ViewState struct {
	Profile *Profile
	Loading bool
	Error   string
}

// View holds the most recently loaded profile. Loads that complete after
// Close are dropped.
type View struct {
	src    Source
	logger hclog.Logger

	mu      sync.Mutex
	state   ViewState
	ignore  *atomic.Bool
	pending int
}

// NewView creates a View reading from src.
//
// Supported options:
//   - WithLogger
func NewView(src Source, opt ...Option) (*View, error) {
	const op = "NewView"
	if src == nil {
		return nil, fmt.Errorf("%s: source is nil: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &View{
		src:    src,
		logger: opts.withLogger.Named("view"),
		ignore: new(atomic.Bool),
	}, nil
}

// State returns a snapshot of the view.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Load reads the profile from the source. On success the profile replaces
// the current one and the error is cleared; on failure the error is recorded
// and the previous profile is kept. The source's result is returned either
// way.
func (v *View) Load(ctx context.Context) (*Profile, error) {
	v.mu.Lock()
	ignore := v.ignore
	v.pending++
	v.state.Loading = true
	v.mu.Unlock()

	p, err := v.src.Me(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if ignore.Load() {
		v.logger.Debug("view closed, dropping profile result")
		return p, err
	}
	v.pending--
	v.state.Loading = v.pending > 0
	if err != nil {
		v.logger.Error("unable to load profile", "error", err)
		v.state.Error = err.Error()
		return nil, err
	}
	v.state.Profile = p
	v.state.Error = ""
	return p, nil
}

// Close drops the results of every outstanding Load. Loads started after
// Close update the view again.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ignore.Store(true)
	v.ignore = new(atomic.Bool)
	v.pending = 0
	v.state.Loading = false
}
