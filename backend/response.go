// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Code)
	return nil
}

func renderError(w http.ResponseWriter, r *http.Request, code int, message string) {
	_ = render.Render(w, r, &ErrorResponse{Code: code, Message: message})
}
