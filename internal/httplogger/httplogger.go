// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package httplogger provides a http.RoundTripper middleware that logs HTTP
// requests and responses.
//
// Each request is logged twice: when it starts and when it finishes, with the
// status or error and the elapsed time. Concurrent requests are drawn as
// columns of | so that nesting is visible.
package httplogger

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/educk/educk/internal/logger"
)

// New creates a new http.RoundTripper that logs information about HTTP requests
// and responses. A nil t means [http.DefaultTransport]. Query strings are
// passed through scrub, if it's not nil, before logging.
func New(t http.RoundTripper, logf logger.Logf, scrub *strings.Replacer) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	if logf == nil {
		logf = logger.Discard
	}
	return &loggingTransport{transport: t, logf: logf, scrub: scrub}
}

type loggingTransport struct {
	transport http.RoundTripper
	logf      logger.Logf
	scrub     *strings.Replacer

	mu     sync.Mutex
	active []byte
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	url := r.URL.String()
	if t.scrub != nil {
		url = t.scrub.Replace(url)
	}

	t.mu.Lock()
	index := len(t.active)
	start := time.Now()
	t.logf("HTTP: %s %s+ %s %s", timeFormat(start), t.active, r.Method, url)
	t.active = append(t.active, '|')
	t.mu.Unlock()

	resp, err := t.transport.RoundTrip(r)

	last := r.URL.Path
	if i := strings.LastIndex(last, "/"); i >= 0 {
		last = last[i:]
	}
	display := last
	if resp != nil {
		display += " " + resp.Status
	}
	if err != nil {
		msg := err.Error()
		if t.scrub != nil {
			msg = t.scrub.Replace(msg)
		}
		display += " error: " + msg
	}
	now := time.Now()

	t.mu.Lock()
	t.active[index] = '-'
	t.logf("HTTP: %s %s %s (%.3fs)", timeFormat(now), t.active, display, now.Sub(start).Seconds())
	t.active[index] = ' '
	n := len(t.active)
	for n%4 == 0 && n >= 4 && t.active[n-1] == ' ' && t.active[n-2] == ' ' && t.active[n-3] == ' ' && t.active[n-4] == ' ' {
		t.active = t.active[:n-4]
		n -= 4
	}
	t.mu.Unlock()

	return resp, err
}

func timeFormat(t time.Time) string {
	return t.Format("15:04:05.000")
}
