// Package http provides the JSON API server and its handlers.
//
// This file implements a fluent builder for JSON responses so every handler
// produces the same envelope and header set.

package http

import (
	"encoding/json"
	"net/http"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.headers[key] = value
	return b
}

// JSON sets an arbitrary payload to be marshalled as the response body.
func (b *ResponseBuilder) JSON(payload any) *ResponseBuilder {
	b.payload = payload
	return b
}

// Success wraps data in the standard {"success": true, "data": ...} envelope.
func (b *ResponseBuilder) Success(data any) *ResponseBuilder {
	b.payload = map[string]any{"success": true, "data": data}
	return b
}

// Error sets an error envelope and the given status code.
func (b *ResponseBuilder) Error(code int, message string) *ResponseBuilder {
	b.statusCode = code
	b.payload = map[string]any{"success": false, "error": message}
	return b
}

// Write sends the built response. Marshal failures fall back to a plain 500
// since headers may not have been written yet.
func (b *ResponseBuilder) Write(w http.ResponseWriter) error {
	body, err := json.Marshal(b.payload)
	if err != nil {
		http.Error(w, `{"success":false,"error":"internal error"}`, http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	for key, value := range b.headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(b.statusCode)
	_, err = w.Write(body)
	return err
}

// writeJSON is the short form for handlers without custom headers.
func writeJSON(w http.ResponseWriter, code int, payload any) {
	_ = NewResponse().Status(code).JSON(payload).Write(w)
}

// writeError sends the standard error envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	_ = NewResponse().Error(code, message).Write(w)
}
