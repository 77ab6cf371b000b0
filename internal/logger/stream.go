// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package logger

import (
	"container/ring"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Streamer is an [io.Writer] that keeps the last logged lines and allows to
// stream them.
type Streamer interface {
	io.Writer
	http.Handler

	// Lines returns all kept lines, oldest first.
	Lines() []string

	// Stream generates a new channel which will stream any newly logged lines.
	// Deregister the stream by calling the returned function.
	Stream() (<-chan string, func())
}

// NewStreamer returns a new Streamer backed by a ring buffer of the given size.
func NewStreamer(size int) Streamer {
	return &ringBuffer{
		size:    size,
		r:       ring.New(size),
		streams: make(map[chan string]struct{}),
	}
}

type ringBuffer struct {
	mu        sync.RWMutex
	size      int
	remainder string // partial line without trailing newline
	r         *ring.Ring
	streams   map[chan string]struct{}
}

func (rb *ringBuffer) Write(b []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	text := rb.remainder + string(b)
	for {
		idx := strings.IndexByte(text, '\n')
		if idx == -1 {
			break
		}
		line := text[:idx+1]
		rb.r.Value = line
		rb.r = rb.r.Next()
		for stream := range rb.streams {
			select {
			case stream <- line:
			default:
				// Slow reader, drop the line.
			}
		}
		text = text[idx+1:]
	}
	rb.remainder = text
	return len(b), nil
}

func (rb *ringBuffer) Lines() []string {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	lines := make([]string, 0, rb.size)
	rb.r.Do(func(x any) {
		if x != nil {
			lines = append(lines, x.(string))
		}
	})
	return lines
}

func (rb *ringBuffer) Stream() (<-chan string, func()) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	stream := make(chan string, rb.size+1)
	rb.streams[stream] = struct{}{}

	var once sync.Once
	return stream, func() {
		once.Do(func() {
			rb.mu.Lock()
			defer rb.mu.Unlock()
			delete(rb.streams, stream)
			close(stream)
		})
	}
}

// ServeHTTP streams new log lines to the client until it goes away. Clients
// that send "Accept: text/event-stream" receive server-sent events.
func (rb *ringBuffer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	sse := strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/event-stream")
	if sse {
		w.Header().Set("Content-Type", "text/event-stream")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
	flush()

	stream, done := rb.Stream()
	defer done()

	for {
		select {
		case line := <-stream:
			if sse {
				fmt.Fprintf(w, "event: logline\ndata: %s\n", line)
			} else {
				io.WriteString(w, line)
			}
			flush()
		case <-r.Context().Done():
			return
		}
	}
}
