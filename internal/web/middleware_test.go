// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/educk/educk/internal/logger"
	"github.com/educk/educk/internal/testutil"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request ID %q is not a UUID: %v", seen, err)
	}
	testutil.AssertEqual(t, rec.Header().Get(RequestIDHeader), seen)

	t.Run("client ID kept", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, id)
		serve(t, h, req)
		testutil.AssertEqual(t, seen, id)
	})

	t.Run("garbage ID replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		serve(t, h, req)
		if seen == "<script>" {
			t.Fatal("invalid client request ID was kept")
		}
	})
}

func TestRecover(t *testing.T) {
	var logged strings.Builder
	l := logger.NewLeveled(func(format string, args ...any) {
		fmt.Fprintf(&logged, format, args...)
	}, logger.LevelInfo)

	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req = req.WithContext(ContextWithLogger(req.Context(), l))

	rec := serve(t, h, req)
	testutil.AssertEqual(t, rec.Code, http.StatusInternalServerError)
	if !strings.Contains(logged.String(), "panic serving GET /boom: kaboom") {
		t.Fatalf("panic was not logged: %q", logged.String())
	}
}

func TestAccessLog(t *testing.T) {
	var logged strings.Builder
	l := logger.NewLeveled(func(format string, args ...any) {
		fmt.Fprintf(&logged, format, args...)
	}, logger.LevelDebug)

	h := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	req := httptest.NewRequest(http.MethodGet, "/tea?cups=2", nil)
	req.Header.Set(RequestIDHeader, "3f333df6-90a4-4fda-8dd3-9485d27cee36")
	req = req.WithContext(ContextWithLogger(req.Context(), l))
	serve(t, h, req)

	got := logged.String()
	for _, want := range []string{"DEBUG", "GET /tea?cups=2 418", "3f333df6-90a4-4fda-8dd3-9485d27cee36"} {
		if !strings.Contains(got, want) {
			t.Errorf("access log %q doesn't contain %q", got, want)
		}
	}
}

func TestAccessLogBelowLevel(t *testing.T) {
	var logged strings.Builder
	l := logger.NewLeveled(func(format string, args ...any) {
		fmt.Fprintf(&logged, format, args...)
	}, logger.LevelInfo)

	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	serve(t, h, req.WithContext(ContextWithLogger(req.Context(), l)))

	testutil.AssertEqual(t, logged.String(), "")
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.NotFoundHandler())
	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertEqual(t, rec.Header().Get("X-Content-Type-Options"), "nosniff")
	testutil.AssertEqual(t, rec.Header().Get("Referrer-Policy"), "same-origin")
}

func TestCORS(t *testing.T) {
	var called bool
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	t.Run("simple request", func(t *testing.T) {
		called = false
		rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil))
		testutil.AssertEqual(t, rec.Header().Get("Access-Control-Allow-Origin"), "*")
		testutil.AssertEqual(t, called, true)
	})

	t.Run("preflight", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/countries", nil)
		req.Header.Set("Access-Control-Request-Method", "GET")
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		rec := serve(t, h, req)
		testutil.AssertEqual(t, rec.Code, http.StatusNoContent)
		testutil.AssertEqual(t, rec.Header().Get("Access-Control-Allow-Headers"), "content-type")
		testutil.AssertEqual(t, called, false)
	})
}
