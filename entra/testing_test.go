// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"context"
	"sync"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
)

// fakeVendor is an in-memory MSAL public client.
type fakeVendor struct {
	mu       sync.Mutex
	cached   []public.Account
	signedIn public.Account

	silentErr      error
	interactiveErr error
	removeErr      error

	silentClaims []string
	loginHints   []string
	removed      []public.Account
}

var testMSALAccount = public.Account{
	HomeAccountID:     "uid.72f988bf-86f1-41af-91ab-2d7cd011db47",
	Environment:       "login.microsoftonline.com",
	Realm:             "72f988bf-86f1-41af-91ab-2d7cd011db47",
	PreferredUsername: "alice@example.com",
}

func (f *fakeVendor) accounts(context.Context) ([]public.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]public.Account(nil), f.cached...), nil
}

func (f *fakeVendor) silent(_ context.Context, scopes []string, a public.Account, claims string) (public.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silentClaims = append(f.silentClaims, claims)
	if f.silentErr != nil {
		return public.AuthResult{}, f.silentErr
	}
	return public.AuthResult{
		Account:     a,
		AccessToken: "at:" + scopes[0],
		ExpiresOn:   time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeVendor) interactive(_ context.Context, scopes []string, loginHint string) (public.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginHints = append(f.loginHints, loginHint)
	if f.interactiveErr != nil {
		return public.AuthResult{}, f.interactiveErr
	}
	a := f.signedIn
	if a.HomeAccountID == "" {
		a = testMSALAccount
	}
	if _, ok := findAccount(f.cached, toAccount(a)); !ok {
		f.cached = append(f.cached, a)
	}
	return public.AuthResult{Account: a, AccessToken: "at:" + scopes[0], ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func (f *fakeVendor) remove(_ context.Context, a public.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, a)
	kept := f.cached[:0]
	for _, c := range f.cached {
		if c.HomeAccountID != a.HomeAccountID {
			kept = append(kept, c)
		}
	}
	f.cached = kept
	return nil
}

type fakeOBO struct {
	authority string
	calls     int
	err       error
}

func (f *fakeOBO) onBehalfOf(_ context.Context, assertion string, scopes []string) (confidential.AuthResult, error) {
	f.calls++
	if f.err != nil {
		return confidential.AuthResult{}, f.err
	}
	return confidential.AuthResult{AccessToken: "obo:" + assertion + ":" + scopes[0], ExpiresOn: time.Now().Add(time.Hour)}, nil
}
