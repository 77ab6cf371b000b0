// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package logger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/educk/educk/internal/testutil"
)

func TestLogfWriter(t *testing.T) {
	t.Parallel()

	var (
		logged  bool
		message string
	)
	logf := func(format string, args ...any) {
		logged = true
		message = fmt.Sprintf(format, args...)
	}
	Logf(logf).Write([]byte("hello"))
	testutil.AssertEqual(t, logged, true)
	testutil.AssertEqual(t, message, "hello")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in      string
		want    Level
		wantErr error
	}{
		"debug":           {in: "debug", want: LevelDebug},
		"trace is debug":  {in: "trace", want: LevelDebug},
		"info":            {in: "info", want: LevelInfo},
		"upper case":      {in: "INFO", want: LevelInfo},
		"with whitespace": {in: " warn\n", want: LevelWarn},
		"warning":         {in: "warning", want: LevelWarn},
		"error":           {in: "error", want: LevelError},
		"unknown":         {in: "verbose", wantErr: ErrUnknownLevel},
		"empty":           {in: "", wantErr: ErrUnknownLevel},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestLeveled(t *testing.T) {
	t.Parallel()

	rec := new(recorder)
	l := NewLeveled(rec.logf, LevelWarn)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)
	l.At(LevelError)("via Logf: %s", "100%")

	testutil.AssertEqual(t, rec.lines, []string{
		"WARN  warn 3",
		"ERROR error 4",
		"ERROR via Logf: 100%",
	})
	testutil.AssertEqual(t, l.Enabled(LevelDebug), false)
	testutil.AssertEqual(t, l.Enabled(LevelError), true)
	testutil.AssertEqual(t, l.Level(), LevelWarn)
}

func TestLeveledNil(t *testing.T) {
	t.Parallel()

	var l *Leveled
	l.Errorf("must not panic")
	testutil.AssertEqual(t, l.Enabled(LevelError), false)
}

func TestStreamer(t *testing.T) {
	t.Parallel()

	s := NewStreamer(5)

	testLines := []string{
		"Line 1",
		"Line 2",
		"Line 3",
		"Line 4",
		"Line 5",
		"Line 6", // This should push out "Line 1" due to buffer size.
	}

	for _, line := range testLines {
		_, err := s.Write([]byte(line + "\n"))
		if err != nil {
			t.Fatalf("Failed to write line: %v", err)
		}
	}

	lines := s.Lines()
	if len(lines) != 5 {
		t.Errorf("Expected 5 lines, got %d", len(lines))
	}
	if lines[0] != "Line 2\n" || lines[4] != "Line 6\n" {
		t.Errorf("Unexpected lines content: %v", lines)
	}

	// Partial lines are kept until the newline arrives.
	s.Write([]byte("Par"))
	s.Write([]byte("tial\n"))
	lines = s.Lines()
	testutil.AssertEqual(t, lines[len(lines)-1], "Partial\n")

	stream, done := s.Stream()
	defer done()

	go func() {
		if _, err := s.Write([]byte("New line\n")); err != nil {
			t.Errorf("Failed to write new line: %v", err)
		}
	}()

	select {
	case line := <-stream:
		if line != "New line\n" {
			t.Errorf("Expected 'New line\\n', got '%s'", line)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for streamed line")
	}
}

func TestStreamerServeHTTP(t *testing.T) {
	t.Parallel()

	s := NewStreamer(10)

	req := httptest.NewRequest(http.MethodGet, "/debug/log", nil)
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()

	go func() {
		time.Sleep(100 * time.Millisecond)
		if _, err := s.Write([]byte("HTTP line\n")); err != nil {
			t.Errorf("Failed to write HTTP line: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(req.Context(), 500*time.Millisecond)
	defer cancel()
	s.ServeHTTP(w, req.WithContext(ctx))

	resp := w.Result()
	testutil.AssertEqual(t, resp.StatusCode, http.StatusOK)
	testutil.AssertEqual(t, resp.Header.Get("Content-Type"), "text/event-stream")

	if body := w.Body.String(); !strings.Contains(body, "event: logline\ndata: HTTP line\n") {
		t.Errorf("unexpected body %q", body)
	}
}
