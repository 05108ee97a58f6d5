// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package entra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/hashicorp/cap-entra/token"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrAccountNotCached = errors.New("account not in token cache")
)

// interactionCodes are the OAuth error codes which mean the user has to
// sign in again.
var interactionCodes = []string{
	"interaction_required",
	"login_required",
	"consent_required",
	"invalid_grant",
}

// cacheMissMessages are returned by MSAL when it holds no usable refresh
// token for the account.
var cacheMissMessages = []string{
	"no token found",
	"not found in cache",
	"no refresh token",
}

// classifySilent marks silent acquisition failures which only the user can
// resolve with token.ErrInteractionRequired. Context and transport failures
// are returned unchanged.
func classifySilent(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrAccountNotCached) {
		return fmt.Errorf("%w: %w", token.ErrInteractionRequired, err)
	}
	var callErr msalerrors.CallErr
	if errors.As(err, &callErr) {
		if callErr.Resp == nil || callErr.Resp.StatusCode < http.StatusBadRequest || callErr.Resp.StatusCode >= http.StatusInternalServerError {
			return err
		}
		if containsAny(callErr.Error(), interactionCodes) {
			return fmt.Errorf("%w: %w", token.ErrInteractionRequired, err)
		}
		return err
	}
	if containsAny(err.Error(), cacheMissMessages) {
		return fmt.Errorf("%w: %w", token.ErrInteractionRequired, err)
	}
	return err
}

func containsAny(s string, substrs []string) bool {
	s = strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
