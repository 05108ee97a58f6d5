// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"strings"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/hashicorp/cap-entra/token"
)

func toAccount(a public.Account) token.Account {
	return token.Account{
		HomeAccountID: a.HomeAccountID,
		Username:      a.PreferredUsername,
		TenantID:      a.Realm,
		Environment:   a.Environment,
	}
}

func toAccounts(in []public.Account) []token.Account {
	out := make([]token.Account, 0, len(in))
	for _, a := range in {
		out = append(out, toAccount(a))
	}
	return out
}

// findAccount returns the cached MSAL account for a.
func findAccount(cached []public.Account, a token.Account) (public.Account, bool) {
	for _, c := range cached {
		if strings.EqualFold(c.HomeAccountID, a.HomeAccountID) {
			return c, true
		}
	}
	return public.Account{}, false
}
