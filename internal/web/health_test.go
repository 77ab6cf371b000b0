// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/educk/educk/internal/syncx"
	"github.com/educk/educk/internal/testutil"
	"github.com/educk/educk/internal/version"
)

func TestHealthHandler(t *testing.T) {
	ver := version.Version().Version

	cases := map[string]struct {
		checks       map[string]HealthFunc
		wantResponse HealthResponse
		wantStatus   int
	}{
		"no checks": {
			checks: map[string]HealthFunc{},
			wantResponse: HealthResponse{
				OK:      true,
				Version: ver,
				Checks:  map[string]CheckResponse{},
			},
			wantStatus: http.StatusOK,
		},
		"check that always returns ok": {
			checks: map[string]HealthFunc{
				"always-ok": func() (status string, ok bool) {
					return "this check always returns ok", true
				},
			},
			wantResponse: HealthResponse{
				OK:      true,
				Version: ver,
				Checks: map[string]CheckResponse{
					"always-ok": {OK: true, Status: "this check always returns ok"},
				},
			},
			wantStatus: http.StatusOK,
		},
		"check that always returns not ok": {
			checks: map[string]HealthFunc{
				"always-not-ok": func() (status string, ok bool) {
					return "this check always returns not ok", false
				},
			},
			wantResponse: HealthResponse{
				OK:      false,
				Version: ver,
				Checks: map[string]CheckResponse{
					"always-not-ok": {OK: false, Status: "this check always returns not ok"},
				},
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		"two checks": {
			checks: map[string]HealthFunc{
				"ok":     func() (status string, ok bool) { return "ok", true },
				"not-ok": func() (status string, ok bool) { return "not ok", false },
			},
			wantResponse: HealthResponse{
				OK:      false,
				Version: ver,
				Checks: map[string]CheckResponse{
					"ok":     {OK: true, Status: "ok"},
					"not-ok": {OK: false, Status: "not ok"},
				},
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			mux := http.NewServeMux()
			h := Health(mux)
			h.checks = syncx.Guard(tc.checks)

			got := testutil.UnmarshalJSON[HealthResponse](t, []byte(send(t, mux, http.MethodGet, "/health", tc.wantStatus)))
			testutil.AssertEqual(t, got, tc.wantResponse)
		})
	}
}

func TestHealthIdempotent(t *testing.T) {
	mux := http.NewServeMux()
	if Health(mux) != Health(mux) {
		t.Fatal("Health returned different handlers for the same mux")
	}
}

func TestHealthHandlerRegisterFuncDuplicate(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("RegisterFunc did not panic when using an already existing name")
		}
	}()

	mux := http.NewServeMux()
	h := Health(mux)
	h.RegisterFunc("foo", func() (status string, ok bool) {
		return "foo", true
	})
	h.RegisterFunc("foo", func() (status string, ok bool) {
		return "not foo", true
	})
}

func TestHealthCORS(t *testing.T) {
	mux := http.NewServeMux()
	h := Health(mux)

	w := serve(t, mux, httptest.NewRequest(http.MethodGet, "/health", nil))
	testutil.AssertEqual(t, w.Header().Get("Access-Control-Allow-Origin"), "")

	h.AllowCORS()
	if Health(mux) != h {
		t.Fatal("AllowCORS must not replace the mounted handler")
	}

	w = serve(t, mux, httptest.NewRequest(http.MethodGet, "/health", nil))
	testutil.AssertEqual(t, w.Code, http.StatusOK)
	testutil.AssertEqual(t, w.Header().Get("Access-Control-Allow-Origin"), "*")

	preflight := httptest.NewRequest(http.MethodOptions, "/health", nil)
	preflight.Header.Set("Origin", "https://example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = serve(t, mux, preflight)
	testutil.AssertEqual(t, w.Code, http.StatusNoContent)
	testutil.AssertEqual(t, w.Header().Get("Access-Control-Allow-Methods"), "GET, HEAD, OPTIONS")
}
