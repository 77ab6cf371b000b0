// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"bytes"
	"context"
	"time"

	"github.com/educk/educk/internal/syncx"
)

// MemStore keeps cached forecast documents in process memory. It is lost on
// restart.
type MemStore struct {
	ttl     time.Duration
	now     func() time.Time
	entries syncx.Map[string, memEntry]
}

type memEntry struct {
	doc     []byte
	touched time.Time
}

// NewMemStore returns a MemStore whose entries live for ttl after their last
// use. A background sweep drops stale entries every ttl until ctx is done.
func NewMemStore(ctx context.Context, ttl time.Duration) *MemStore {
	s := &MemStore{ttl: ttl, now: time.Now}
	go func() {
		tick := time.NewTicker(ttl)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				s.Sweep()
			}
		}
	}()
	return s
}

// Sweep drops every entry that has not been used within the TTL and reports
// how many were dropped.
func (s *MemStore) Sweep() (dropped int) {
	s.entries.Range(func(key string, e memEntry) bool {
		if s.stale(e) {
			s.entries.Delete(key)
			dropped++
		}
		return true
	})
	return dropped
}

func (s *MemStore) stale(e memEntry) bool { return s.now().Sub(e.touched) > s.ttl }

// Get returns a copy of the document stored under key, or nil if there is
// none or it went stale. A hit extends the entry's life.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.entries.Load(key)
	switch {
	case !ok:
		return nil, nil
	case s.stale(e):
		s.entries.Delete(key)
		return nil, nil
	}
	e.touched = s.now()
	s.entries.Store(key, e)
	return bytes.Clone(e.doc), nil
}

// Set stores a copy of doc under key.
func (s *MemStore) Set(_ context.Context, key string, doc []byte) error {
	s.entries.Store(key, memEntry{doc: bytes.Clone(doc), touched: s.now()})
	return nil
}

// Len returns the number of entries, counting stale ones not swept yet.
func (s *MemStore) Len() int { return s.entries.Len() }

// Close implements [Store]. There is nothing to release.
func (s *MemStore) Close() error { return nil }
