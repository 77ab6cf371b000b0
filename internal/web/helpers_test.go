// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func send(t testing.TB, h http.Handler, method, path string, wantStatus int) string {
	t.Helper()
	rec := serve(t, h, httptest.NewRequest(method, path, nil))
	if wantStatus != rec.Code {
		t.Fatalf("%s %s: want response code %d, got %d", method, path, wantStatus, rec.Code)
	}
	return rec.Body.String()
}

func serve(t testing.TB, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
