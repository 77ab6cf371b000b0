// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/educk/educk/internal/syncx"
	"github.com/educk/educk/internal/version"
)

// Conns returns an [http.Handler] that displays the list of active
// HTTP connections of s. It must be called before s starts serving.
// A ConnState callback already set on s keeps being called.
func Conns(s *http.Server) http.Handler {
	ch := &connsHandler{conns: make(ConnMap), next: s.ConnState}
	s.ConnState = ch.connState
	return ch
}

// ConnMap represents active connections to the HTTP server.
type ConnMap map[string]*Conn

// Conn represents an active HTTP connection.
type Conn struct {
	Network string
	Addr    string
	Time    time.Time
	State   http.ConnState
}

// connsHandler is a [http.Handler] that displays the list of active connections.
// It's inspired by https://x.com/bradfitz/status/1349825913136017415.
type connsHandler struct {
	mu    sync.Mutex
	conns ConnMap
	next  func(net.Conn, http.ConnState)

	tpl syncx.Lazy[*template.Template]
}

// connState implements the http.Server.ConnState callback function.
func (ch *connsHandler) connState(c net.Conn, state http.ConnState) {
	if ch.next != nil {
		ch.next(c, state)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	addr := c.RemoteAddr().String()
	if state == http.StateClosed || state == http.StateHijacked {
		delete(ch.conns, addr)
		return
	}
	ac, ok := ch.conns[addr]
	if !ok {
		ac = &Conn{
			Network: c.RemoteAddr().Network(),
			Addr:    addr,
			Time:    time.Now(),
		}
		ch.conns[addr] = ac
	}
	ac.State = state
}

// snapshot returns a copy of active connections sorted by the time they were
// opened.
func (ch *connsHandler) snapshot() (ConnMap, []Conn) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	m := make(ConnMap, len(ch.conns))
	list := make([]Conn, 0, len(ch.conns))
	for addr, c := range ch.conns {
		cc := *c
		m[addr] = &cc
		list = append(list, cc)
	}
	slices.SortFunc(list, func(a, b Conn) int { return a.Time.Compare(b.Time) })
	return m, list
}

func (ch *connsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, list := ch.snapshot()

	if r.FormValue("format") == "json" {
		RespondJSON(w, m)
		return
	}

	tpl, err := ch.tpl.GetErr(func() (*template.Template, error) {
		return template.New("conns").Funcs(template.FuncMap{
			"since": func(t time.Time) time.Duration { return time.Since(t).Round(time.Millisecond) },
			"state": stateName,
		}).Parse(connsTemplate)
	})
	if err != nil {
		RespondError(w, r, fmt.Errorf("conns: failed to initialize template: %w", err))
		return
	}

	data := struct {
		CmdName string
		Conns   []Conn
		Summary string
	}{
		CmdName: version.CmdName(),
		Conns:   list,
		Summary: connSummary(list),
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func connSummary(conns []Conn) string {
	var idle int
	for _, c := range conns {
		if c.State == http.StateIdle {
			idle++
		}
	}
	word := "connection"
	if len(conns) != 1 {
		word += "s"
	}
	return fmt.Sprintf("%d %s, %d idle.", len(conns), word, idle)
}

//go:embed templates/conns.html
var connsTemplate string

func stateName(s http.ConnState) string { return strings.ToLower(s.String()) }
