// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger defines a type for writing to logs, log levels, and a
// thread-safe [io.Writer] that buffers log lines in a ring buffer and allows
// them to be streamed through an HTTP endpoint or retrieved as a snapshot.
package logger

import (
	"errors"
	"fmt"
	"strings"
)

// Logf is the basic logger type: a printf-like func. Like [log.Printf], the
// format need not end in a newline. Logf functions must be safe for concurrent
// use.
type Logf func(format string, args ...any)

// Write implements the [io.Writer] interface.
func (f Logf) Write(p []byte) (n int, err error) {
	f("%s", p)
	return len(p), nil
}

// Discard is a [Logf] that throws everything away.
func Discard(format string, args ...any) {}

// Level is the severity of a log line.
type Level int8

// Known levels, from the most verbose to the least.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String implements the [fmt.Stringer] interface.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int8(l))
}

// ErrUnknownLevel is returned by [ParseLevel] for unrecognized level names.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel parses a case-insensitive level name: debug, info, warn
// (or warning) and error. trace is accepted as an alias for debug.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return 0, fmt.Errorf("%w %q (want debug, info, warn or error)", ErrUnknownLevel, s)
}

// Leveled is a logger that writes lines at or above its minimum level to a
// sink [Logf], prefixing each line with its level. A nil *Leveled discards
// everything.
type Leveled struct {
	min  Level
	sink Logf
}

// NewLeveled returns a [Leveled] logger writing to sink lines of level min
// and above.
func NewLeveled(sink Logf, min Level) *Leveled {
	if sink == nil {
		sink = Discard
	}
	return &Leveled{min: min, sink: sink}
}

// Level returns the minimum level of l.
func (l *Leveled) Level() Level {
	if l == nil {
		return LevelError + 1
	}
	return l.min
}

// Enabled reports whether lines of level lv are written.
func (l *Leveled) Enabled(lv Level) bool { return l != nil && lv >= l.min }

// Logf writes a line of level lv.
func (l *Leveled) Logf(lv Level, format string, args ...any) {
	if !l.Enabled(lv) {
		return
	}
	l.sink("%-5s "+format, append([]any{lv}, args...)...)
}

// Debugf writes a line of level [LevelDebug].
func (l *Leveled) Debugf(format string, args ...any) { l.Logf(LevelDebug, format, args...) }

// Infof writes a line of level [LevelInfo].
func (l *Leveled) Infof(format string, args ...any) { l.Logf(LevelInfo, format, args...) }

// Warnf writes a line of level [LevelWarn].
func (l *Leveled) Warnf(format string, args ...any) { l.Logf(LevelWarn, format, args...) }

// Errorf writes a line of level [LevelError].
func (l *Leveled) Errorf(format string, args ...any) { l.Logf(LevelError, format, args...) }

// At returns a [Logf] that writes lines of level lv to l. It is used to hand
// l to code that accepts a plain Logf.
func (l *Leveled) At(lv Level) Logf {
	return func(format string, args ...any) { l.Logf(lv, format, args...) }
}
