// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file located at
// https://github.com/tailscale/tailscale/blob/main/LICENSE.

// Adapted from https://pkg.go.dev/tailscale.com/tsweb#Debugger.

package web

import (
	"bytes"
	"cmp"
	_ "embed"
	"html"
	"html/template"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/educk/educk/internal/version"
)

//go:embed templates/debug.html
var debugTemplate string

var debugTpl = template.Must(template.New("debug").Parse(debugTemplate))

// DebugHandler serves the /debug/ index page of a single [http.ServeMux].
//
// The page shows a header menu, a list of runtime values and links to the
// other debug endpoints. Use MenuFunc, KV, KVFunc and Link to fill these in,
// and Handle to mount an endpoint under /debug/ together with its link.
//
// All methods are safe for concurrent use.
type DebugHandler struct {
	mux *http.ServeMux

	mu    sync.RWMutex
	rows  []debugRow
	links []debugLink
	menu  func(*http.Request) []MenuItem
}

type (
	debugRow struct {
		Key   string
		value func() any
	}
	debugLink struct{ URL, Desc string }
	debugPage struct {
		CmdName   string
		Version   version.Info
		MenuItems []MenuItem
		KVs       []debugValue
		Links     []debugLink
	}
	debugValue struct {
		K string
		V any
	}
)

// MenuItem is an entry of the debug page header.
type MenuItem interface {
	ToHTML() template.HTML
}

// LinkItem is a [MenuItem] rendered as a plain link.
type LinkItem struct {
	Name   string
	Target string
}

// ToHTML implements [MenuItem].
func (li LinkItem) ToHTML() template.HTML {
	return template.HTML("<a href=" + li.Target + ">" + html.EscapeString(li.Name) + "</a>")
}

// Debugger returns the [DebugHandler] mounted on mux at /debug/. The first
// call mounts it along with the pprof and GC endpoints.
func Debugger(mux *http.ServeMux) *DebugHandler {
	if h, pat := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/"}}); pat == "/debug/" {
		if d, ok := h.(*DebugHandler); ok {
			return d
		}
	}

	d := &DebugHandler{mux: mux}
	mux.Handle("/debug/", d)

	if host, err := os.Hostname(); err == nil {
		d.KV("Machine", host)
	}
	d.KV("Go", runtime.Version())
	d.KVFunc("Uptime", func() any { return time.Since(started).Round(time.Second) })
	d.KVFunc("Goroutines", func() any { return runtime.NumGoroutine() })

	d.Handle("pprof/", "pprof", http.HandlerFunc(pprof.Index))
	d.Handle("gc", "Force GC", http.HandlerFunc(forceGC))
	d.Link("/debug/pprof/goroutine?debug=1", "Goroutines (collapsed)")
	d.Link("/debug/pprof/goroutine?debug=2", "Goroutines (full)")
	// Covered by the pprof index, so no link.
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	return d
}

var started = time.Now()

func forceGC(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Running GC...\n"))
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	runtime.GC()
	w.Write([]byte("Done.\n"))
}

// ServeHTTP implements the [http.Handler] interface.
func (d *DebugHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Everything below /debug/ that is not registered lands here.
	if r.URL.Path != "/debug/" {
		RespondError(w, r, ErrNotFound)
		return
	}

	var buf bytes.Buffer
	if err := debugTpl.Execute(&buf, d.page(r)); err != nil {
		RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (d *DebugHandler) page(r *http.Request) *debugPage {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p := &debugPage{
		CmdName: version.CmdName(),
		Version: version.Version(),
		Links:   slices.Clone(d.links),
	}
	if d.menu != nil {
		p.MenuItems = d.menu(r)
	}
	for _, row := range d.rows {
		p.KVs = append(p.KVs, debugValue{K: row.Key, V: row.value()})
	}
	return p
}

// Handle mounts handler at /debug/<slug> and links it from the index page.
func (d *DebugHandler) Handle(slug, desc string, handler http.Handler) {
	path := "/debug/" + slug
	d.mux.Handle(path, handler)
	d.Link(path, desc)
}

// HandleFunc is like Handle for plain functions.
func (d *DebugHandler) HandleFunc(slug, desc string, handler func(http.ResponseWriter, *http.Request)) {
	d.Handle(slug, desc, http.HandlerFunc(handler))
}

// KV adds a fixed value to the index page.
func (d *DebugHandler) KV(k string, v any) {
	d.KVFunc(k, func() any { return v })
}

// KVFunc adds a value to the index page. v is evaluated on every render.
func (d *DebugHandler) KVFunc(k string, v func() any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = append(d.rows, debugRow{Key: k, value: v})
}

// Link adds a link to the index page. Links are listed by description.
func (d *DebugHandler) Link(url, desc string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, debugLink{URL: url, Desc: desc})
	slices.SortStableFunc(d.links, func(a, b debugLink) int { return cmp.Compare(a.Desc, b.Desc) })
}

// MenuFunc sets the function that builds the header menu for a request.
func (d *DebugHandler) MenuFunc(f func(*http.Request) []MenuItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.menu = f
}
