// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package syncx holds the small concurrency helpers shared by the service:
// a lock-guarded value, a run-once initializer and a typed concurrent map.
package syncx

import "sync"

// Guard returns a [Guarded] holding val.
func Guard[T any](val T) *Guarded[T] { return &Guarded[T]{val: val} }

// Guarded serializes access to a value of type T behind a read-write mutex.
// Callers never see the value outside of the callback.
type Guarded[T any] struct {
	mu  sync.RWMutex
	val T
}

// Read calls f with the value while holding the read lock. Several readers
// may run at once.
func (g *Guarded[T]) Read(f func(T)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f(g.val)
}

// Write calls f with the value while holding the write lock.
func (g *Guarded[T]) Write(f func(T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f(g.val)
}

// Lazy computes a value on first use and caches it. A failed computation is
// cached too.
type Lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

// Get returns the cached value, running f if this is the first call.
// Concurrent callers block until f returns.
func (l *Lazy[T]) Get(f func() T) T {
	l.once.Do(func() { l.val = f() })
	return l.val
}

// GetErr is like Get for computations that can fail.
func (l *Lazy[T]) GetErr(f func() (T, error)) (T, error) {
	l.once.Do(func() { l.val, l.err = f() })
	return l.val, l.err
}

// Map is a [sync.Map] with typed keys and values. The zero value is empty and
// ready to use.
type Map[K comparable, V any] struct{ m sync.Map }

// Load reports the value stored under key, if any.
func (m *Map[K, V]) Load(key K) (V, bool) {
	v, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Store puts value under key, replacing any previous one.
func (m *Map[K, V]) Store(key K, value V) { m.m.Store(key, value) }

// Delete drops key.
func (m *Map[K, V]) Delete(key K) { m.m.Delete(key) }

// Range walks the entries in no particular order until f returns false.
func (m *Map[K, V]) Range(f func(K, V) bool) {
	m.m.Range(func(k, v any) bool { return f(k.(K), v.(V)) })
}

// Len counts entries by walking the map.
func (m *Map[K, V]) Len() (n int) {
	m.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
