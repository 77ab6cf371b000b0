// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package templates loads a directory of templates into an immutable set and
// renders them by key.
//
// Keys are slash-separated paths relative to the loaded directory. Files with
// .html, .htm or .tmpl extensions are parsed with [html/template], Markdown
// files (.md) are executed with [text/template] and converted to HTML, and
// everything else is parsed with [text/template].
package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"slices"
	"strings"
	texttemplate "text/template"

	"rsc.io/markdown"
)

// ErrNotFound is returned by [Set.Render] for a key not in the set.
var ErrNotFound = errors.New("template not found")

// TemplateLoadError is returned when a template directory can't be loaded.
type TemplateLoadError struct {
	Dir  string // directory being loaded
	Path string // file that failed, empty if the directory itself failed
	Err  error
}

func (e *TemplateLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("loading templates from %q: %v", e.Dir, e.Err)
	}
	return fmt.Sprintf("loading template %q from %q: %v", e.Path, e.Dir, e.Err)
}

func (e *TemplateLoadError) Unwrap() error { return e.Err }

// RenderError is returned when executing a template fails.
type RenderError struct {
	Key string
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("rendering %q: %v", e.Key, e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

type executor interface {
	Execute(w io.Writer, data any) error
}

// Template is a single loaded template.
type Template struct {
	Key         string
	ContentType string

	exec     executor
	markdown bool
}

// Execute renders t with data into w.
func (t *Template) Execute(w io.Writer, data any) error {
	if !t.markdown {
		return t.exec.Execute(w, data)
	}
	var buf bytes.Buffer
	if err := t.exec.Execute(&buf, data); err != nil {
		return err
	}
	p := &markdown.Parser{Table: true, TaskListItems: true}
	_, err := io.WriteString(w, markdown.ToHTML(p.Parse(buf.String())))
	return err
}

// Set is an immutable collection of templates addressed by key. It is safe for
// concurrent use.
type Set struct {
	byKey map[string]*Template
	keys  []string
}

// LoadDir loads every regular file under dir.
func LoadDir(dir string) (*Set, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, &TemplateLoadError{Dir: dir, Err: err}
	}
	if !fi.IsDir() {
		return nil, &TemplateLoadError{Dir: dir, Err: errors.New("not a directory")}
	}
	s, err := Load(os.DirFS(dir))
	if err != nil {
		var tle *TemplateLoadError
		if errors.As(err, &tle) {
			tle.Dir = dir
		}
		return nil, err
	}
	return s, nil
}

// Load loads every regular file of fsys. Hidden files and directories (with
// names starting with a dot) are skipped.
func Load(fsys fs.FS) (*Set, error) {
	s := &Set{byKey: make(map[string]*Template)}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &TemplateLoadError{Dir: ".", Path: p, Err: err}
		}
		if p != "." && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return &TemplateLoadError{Dir: ".", Path: p, Err: err}
		}
		t, err := parse(p, string(b))
		if err != nil {
			return &TemplateLoadError{Dir: ".", Path: p, Err: err}
		}
		s.byKey[p] = t
		s.keys = append(s.keys, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(s.keys)
	return s, nil
}

func parse(key, text string) (*Template, error) {
	ext := strings.ToLower(path.Ext(key))
	t := &Template{Key: key, ContentType: contentType(ext)}
	switch ext {
	case ".html", ".htm", ".tmpl":
		tpl, err := htmltemplate.New(key).Funcs(htmlFuncs).Parse(text)
		if err != nil {
			return nil, err
		}
		t.exec = tpl
	default:
		tpl, err := texttemplate.New(key).Funcs(textFuncs).Parse(text)
		if err != nil {
			return nil, err
		}
		t.exec = tpl
		t.markdown = ext == ".md"
	}
	return t, nil
}

func contentType(ext string) string {
	switch ext {
	case ".tmpl", ".md", "":
		return "text/html; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "text/html; charset=utf-8"
}

var (
	htmlFuncs = htmltemplate.FuncMap{
		"json": func(v any) (htmltemplate.JS, error) {
			b, err := json.Marshal(v)
			return htmltemplate.JS(b), err
		},
	}
	textFuncs = texttemplate.FuncMap{
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
)

// Lookup returns the template with key.
func (s *Set) Lookup(key string) (*Template, bool) {
	t, ok := s.byKey[key]
	return t, ok
}

// Keys returns the sorted keys of all templates in s.
func (s *Set) Keys() []string { return slices.Clone(s.keys) }

// Len returns the number of templates in s.
func (s *Set) Len() int { return len(s.keys) }

// Resolve maps a request path to a template key: "/" maps to index.html, and
// any other path p to the first existing key of p, p.html, p.md and
// p/index.html. Partials, whose file name starts with an underscore, are
// never resolved; handlers render them by key.
func (s *Set) Resolve(urlPath string) (string, bool) {
	p := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if p == "" {
		p = "index.html"
	}
	for _, key := range []string{p, p + ".html", p + ".md", path.Join(p, "index.html")} {
		if _, ok := s.byKey[key]; ok && !IsPartial(key) {
			return key, true
		}
	}
	return "", false
}

// IsPartial reports whether key names a partial template.
func IsPartial(key string) bool { return strings.HasPrefix(path.Base(key), "_") }

// Render executes the template with key into w. The output is buffered, so
// nothing is written to w if rendering fails.
func (s *Set) Render(w io.Writer, key string, data any) error {
	t, ok := s.byKey[key]
	if !ok {
		return &RenderError{Key: key, Err: ErrNotFound}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return &RenderError{Key: key, Err: err}
	}
	_, err := buf.WriteTo(w)
	return err
}
