// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package token

import "strings"

// Account identifies a signed-in principal. Accounts are issued by the
// Facade; callers only read and compare them.
type Account struct {
	// HomeAccountID is the identity key of the account.
	HomeAccountID string

	// Username is the preferred username (usually a UPN or email).
	Username string

	// TenantID is the directory the account signed in to.
	TenantID string

	// Environment is the authority host that issued the account.
	Environment string
}

// IsZero reports whether a is the zero Account.
func (a Account) IsZero() bool {
	return a.HomeAccountID == ""
}

// Equal reports whether a and b identify the same principal.
func (a Account) Equal(b Account) bool {
	return !a.IsZero() && strings.EqualFold(a.HomeAccountID, b.HomeAccountID)
}

// String returns the username, falling back to the home account id.
func (a Account) String() string {
	if a.Username != "" {
		return a.Username
	}
	return a.HomeAccountID
}
