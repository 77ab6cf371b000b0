// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package systemd reports service state to systemd over the sd_notify
// protocol.
//
// See https://www.freedesktop.org/software/systemd/man/sd_notify.html.
package systemd

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/educk/educk/internal/logger"
)

// State is a single sd_notify assignment.
type State string

const (
	// Ready tells the service manager that startup is finished.
	Ready State = "READY=1"
	// Stopping tells the service manager that the service is shutting down.
	Stopping State = "STOPPING=1"
	// Watchdog updates the watchdog timestamp.
	Watchdog State = "WATCHDOG=1"
)

// Status returns a state that sets the free-form status shown by systemctl.
func Status(msg string) State { return State("STATUS=" + msg) }

// Notifier sends states to the service manager. The zero value and a nil
// *Notifier do nothing, as when not running under systemd.
type Notifier struct {
	// Socket is the datagram socket from NOTIFY_SOCKET.
	Socket string
	// WatchdogInterval is the watchdog timeout from WATCHDOG_USEC, or zero
	// if the watchdog is disabled.
	WatchdogInterval time.Duration
	// Logf receives delivery failures.
	Logf logger.Logf
}

// FromEnv returns a Notifier configured from the environment that systemd
// passes to services.
func FromEnv(getenv func(string) string, logf logger.Logf) (*Notifier, error) {
	n := &Notifier{Socket: getenv("NOTIFY_SOCKET"), Logf: logf}
	if s := getenv("WATCHDOG_USEC"); s != "" {
		usec, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("systemd: parsing WATCHDOG_USEC: %w", err)
		}
		if usec <= 0 {
			return nil, fmt.Errorf("systemd: WATCHDOG_USEC must be positive, got %d", usec)
		}
		n.WatchdogInterval = time.Duration(usec) * time.Microsecond
	}
	return n, nil
}

// Notify sends states in one message. Failures are logged.
func (n *Notifier) Notify(states ...State) {
	if n == nil || n.Socket == "" || len(states) == 0 {
		return
	}
	if err := n.send(states); err != nil {
		n.logf("systemd: notifying %v: %v", states, err)
	}
}

func (n *Notifier) send(states []State) error {
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Net: "unixgram", Name: n.Socket})
	if err != nil {
		return err
	}
	defer conn.Close()

	lines := make([]string, len(states))
	for i, s := range states {
		lines[i] = string(s)
	}
	_, err = conn.Write([]byte(strings.Join(lines, "\n")))
	return err
}

func (n *Notifier) logf(format string, args ...any) {
	if n.Logf != nil {
		n.Logf(format, args...)
	}
}

// Watchdog pings the watchdog at half its interval until ctx is done. It
// returns immediately if the watchdog is disabled.
func (n *Notifier) Watchdog(ctx context.Context) {
	if n == nil || n.Socket == "" || n.WatchdogInterval <= 0 {
		return
	}
	ticker := time.NewTicker(n.WatchdogInterval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.Notify(Watchdog)
		case <-ctx.Done():
			return
		}
	}
}
