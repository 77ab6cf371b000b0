// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/educk/educk/internal/syncx"
	"github.com/educk/educk/internal/version"
)

const healthPath = "/health"

// Health returns the [HealthHandler] of mux, mounting a new one at /health on
// first use.
func Health(mux *http.ServeMux) *HealthHandler {
	h, pat := mux.Handler(&http.Request{Method: http.MethodGet, URL: &url.URL{Path: healthPath}})
	if hh, ok := h.(*HealthHandler); ok && pat == healthPath {
		return hh
	}
	hh := &HealthHandler{checks: syncx.Guard(make(checksMap))}
	mux.Handle(healthPath, hh)
	return hh
}

// HealthHandler reports the state of every registered subsystem as JSON. It
// answers 503 when any check fails.
type HealthHandler struct {
	checks *syncx.Guarded[checksMap]
	cors   atomic.Bool
}

type checksMap = map[string]HealthFunc

// HealthFunc reports the state of one subsystem. It must be safe for
// concurrent use.
type HealthFunc func() (status string, ok bool)

// RegisterFunc adds the check f under name. It panics if name is taken.
func (h *HealthHandler) RegisterFunc(name string, f HealthFunc) {
	h.checks.Write(func(checks checksMap) {
		if _, dup := checks[name]; dup {
			panic(fmt.Sprintf("health: check %q is already registered", name))
		}
		checks[name] = f
	})
}

// AllowCORS makes the handler answer cross-origin requests the way [CORS]
// does.
func (h *HealthHandler) AllowCORS() { h.cors.Store(true) }

// HealthResponse is the body of a /health response.
type HealthResponse struct {
	OK      bool                     `json:"ok"`
	Version string                   `json:"version"`
	Checks  map[string]CheckResponse `json:"checks"`
}

// CheckResponse is the outcome of one check.
type CheckResponse struct {
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

// ServeHTTP implements the [http.Handler] interface.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.cors.Load() {
		CORS(http.HandlerFunc(h.serve)).ServeHTTP(w, r)
		return
	}
	h.serve(w, r)
}

func (h *HealthHandler) serve(w http.ResponseWriter, _ *http.Request) {
	resp := h.run()
	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	RespondJSONStatus(w, code, resp)
}

func (h *HealthHandler) run() *HealthResponse {
	resp := &HealthResponse{
		OK:      true,
		Version: version.Version().Version,
		Checks:  make(map[string]CheckResponse),
	}
	h.checks.Read(func(checks checksMap) {
		for name, check := range checks {
			status, ok := check()
			resp.OK = resp.OK && ok
			resp.Checks[name] = CheckResponse{Status: status, OK: ok}
		}
	})
	return resp
}
