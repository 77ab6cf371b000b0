// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package web is a collection of functions and types for building web services.
package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/educk/educk/internal/cli"
	"github.com/educk/educk/internal/logger"
)

// StatusErr is a sentinel error type used to represent HTTP status code errors.
type StatusErr int

// Error implements the error interface.
// It returns a lowercase representation of the HTTP status text for the wrapped code.
func (se StatusErr) Error() string { return strings.ToLower(http.StatusText(int(se))) }

const (
	// ErrBadRequest represents a bad request error (HTTP 400).
	ErrBadRequest StatusErr = http.StatusBadRequest
	// ErrUnauthorized represents an unauthorized access error (HTTP 401).
	ErrUnauthorized StatusErr = http.StatusUnauthorized
	// ErrForbidden represents a forbidden access error (HTTP 403).
	ErrForbidden StatusErr = http.StatusForbidden
	// ErrNotFound represents a not found error (HTTP 404).
	ErrNotFound StatusErr = http.StatusNotFound
	// ErrMethodNotAllowed represents a method not allowed error (HTTP 405).
	ErrMethodNotAllowed StatusErr = http.StatusMethodNotAllowed
	// ErrInternalServerError represents an internal server error (HTTP 500).
	ErrInternalServerError StatusErr = http.StatusInternalServerError
	// ErrBadGateway represents a failure of an upstream service (HTTP 502).
	ErrBadGateway StatusErr = http.StatusBadGateway
	// ErrServiceUnavailable represents a service that is not configured or
	// not ready (HTTP 503).
	ErrServiceUnavailable StatusErr = http.StatusServiceUnavailable
)

// StatusOf returns the HTTP status code carried by err, or 500 if err does
// not wrap a [StatusErr].
func StatusOf(err error) int {
	var se StatusErr
	if errors.As(err, &se) {
		return int(se)
	}
	return http.StatusInternalServerError
}

// errorResponse is a struct used to represent an error response in JSON format.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RespondJSON marshals the provided response object as JSON and writes it to
// the [http.ResponseWriter].
// It sets the Content-Type header to application/json before marshalling.
// In case of marshalling errors, it writes an internal server error with the error message.
func RespondJSON(w http.ResponseWriter, response any) {
	respondJSON(w, http.StatusOK, response, false)
}

// RespondJSONStatus is like [RespondJSON], but writes the given status code.
func RespondJSONStatus(w http.ResponseWriter, code int, response any) {
	respondJSON(w, code, response, false)
}

func respondJSON(w http.ResponseWriter, code int, response any, wroteStatus bool) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		if !wroteStatus {
			w.WriteHeader(http.StatusInternalServerError)
		}
		fmt.Fprintf(w, `{
  "status": "error",
  "error": "JSON marshal error: %s"
}`, escapeForJSON(err.Error()))
		return
	}
	if !wroteStatus {
		w.WriteHeader(code)
	}
	w.Write(b)
	w.Write([]byte("\n"))
}

var (
	//go:embed templates/error.html
	errorTemplateStr string
	errorTemplate    = template.Must(template.New("error").Parse(errorTemplateStr))
)

// RespondError writes an error response in HTML format to w and logs the error
// with the request's logger (see [ContextWithLogger]) if err is a server
// error (5xx).
//
// If the error is a [StatusErr] or wraps it, it extracts the HTTP status code and
// sets the response status code accordingly. Otherwise, it sets the response
// status code to [http.StatusInternalServerError].
//
// You can wrap any error with [fmt.Errorf] to create a [StatusErr] and set a
// specific HTTP status code:
//
//	// This will set the status code to 404 (Not Found).
//	web.RespondError(w, r, fmt.Errorf("resource %w", web.ErrNotFound))
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(false, w, r, err)
}

// RespondJSONError writes an error response in JSON format to w and logs the
// error like [RespondError] does.
func RespondJSONError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(true, w, r, err)
}

func respondError(json bool, w http.ResponseWriter, r *http.Request, err error) {
	code := StatusOf(err)
	if code >= 500 {
		LoggerFromContext(r.Context()).Errorf("%s %s: error %d (%s): %v", r.Method, r.URL.Path, code, http.StatusText(code), err)
	}
	writeError(json, w, code, err)
}

func writeError(json bool, w http.ResponseWriter, code int, err error) {
	if json {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		respondJSON(w, code, &errorResponse{Status: "error", Error: err.Error()}, true)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	data := struct {
		StatusCode int
		StatusText string
	}{
		StatusCode: code,
		StatusText: http.StatusText(code),
	}
	var buf bytes.Buffer
	if err := errorTemplate.Execute(&buf, data); err != nil {
		// Fallback, if template execution fails.
		fmt.Fprintf(w, "%d: %s", data.StatusCode, data.StatusText)
		return
	}
	buf.WriteTo(w)
}

func escapeForJSON(s string) string {
	var sb strings.Builder
	for _, ch := range s {
		switch ch {
		case '\\', '"', '/', '\b', '\n', '\r', '\t':
			sb.WriteRune('\\')
			sb.WriteRune(ch)
		default:
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

type loggerContextKey struct{}

// ContextWithLogger returns a copy of ctx carrying l. [Server] attaches its
// logger to every request context this way.
func ContextWithLogger(ctx context.Context, l *logger.Leveled) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// LoggerFromContext returns the logger carried by ctx. Without one, it writes
// to the standard error of the [cli.Env] carried by ctx.
func LoggerFromContext(ctx context.Context) *logger.Leveled {
	if l, ok := ctx.Value(loggerContextKey{}).(*logger.Leveled); ok && l != nil {
		return l
	}
	return logger.NewLeveled(cli.GetEnv(ctx).Logf, logger.LevelDebug)
}
