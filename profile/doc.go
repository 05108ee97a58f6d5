// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package profile reads the signed in user's profile from Microsoft Graph or
// from the backend's /me endpoint and keeps the latest result for display.
package profile
