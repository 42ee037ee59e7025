// Package http exposes the ledger services as a JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses and to turn service errors into status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"sysfinance/internal/auth"
	"sysfinance/internal/core"
	applog "sysfinance/internal/log"
	"sysfinance/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: code, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "invalid_input", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "unauthorized", message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal server error")
}

// FromError maps a service error to its response. Unknown errors become a
// 500 without leaking their text.
func FromError(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return UnauthorizedError(err.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrInvalidInput):
		return BadRequestError(err.Error())
	case errors.Is(err, core.ErrConflict):
		return ErrorResponse(http.StatusConflict, "conflict", err.Error())
	default:
		return InternalServerError()
	}
}

// writeError writes the response for err and logs server-side failures
// with the request scoped logger.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, operation, applog.NewFields())
	}
	resp.Write(w)
}
