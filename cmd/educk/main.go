// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/educk/educk/internal/cli"
	"github.com/educk/educk/internal/entsoe"
	"github.com/educk/educk/internal/httplogger"
	"github.com/educk/educk/internal/logger"
	"github.com/educk/educk/internal/store"
	"github.com/educk/educk/internal/summary"
	"github.com/educk/educk/internal/syncx"
	"github.com/educk/educk/internal/systemd"
	"github.com/educk/educk/internal/templates"
	"github.com/educk/educk/internal/web"
)

func main() { cli.Main(new(engine)) }

const (
	defaultPort            = "3044"
	defaultLogLevel        = "info"
	defaultTemplatesDir    = "templates"
	defaultCacheTTL        = 15 * time.Minute
	defaultShutdownTimeout = 30 * time.Second

	logLineLimit    = 300
	outboundTimeout = 30 * time.Second
)

type engine struct {
	init syncx.Lazy[error] // main initialization

	// initialized by doInit
	cfg        *config
	log        *logger.Leveled
	logStream  logger.Streamer
	tpls       *templates.Set
	entsoec    *entsoe.Client
	summarizer summary.Summarizer
	store      store.Store
	mux        *http.ServeMux
	srv        *web.Server
	notifier   *systemd.Notifier

	// flags
	port         string
	logLevel     string
	templatesDir string
	debug        bool

	// for tests
	httpc         *http.Client     // outgoing requests
	now           func() time.Time // clock for forecast windows
	noServerStart bool
	ready         func(net.Addr) // see web.Server.Ready
}

func (e *engine) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.port, "port", "", "Listen on `port` (default "+defaultPort+").")
	fs.StringVar(&e.logLevel, "log-level", "", "Log `level`: debug, info, warn or error (default "+defaultLogLevel+").")
	fs.StringVar(&e.templatesDir, "templates", "", "Load templates from `dir` (default "+defaultTemplatesDir+").")
	fs.BoolVar(&e.debug, "debug", false, "Serve debug pages at /debug/.")
}

// config is the configuration of a running server. It is read-only after
// startup.
type config struct {
	Port            int
	LogLevel        logger.Level
	TemplatesDir    string
	EntsoeKey       string
	EntsoeBaseURL   string
	CacheTTL        time.Duration
	CachePath       string
	GeminiKey       string
	GeminiModel     string
	ShutdownTimeout time.Duration
	Debug           bool
}

// ConfigError is returned when a configuration value is invalid.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

var errPortRange = errors.New("must be between 1 and 65535")

func (e *engine) loadConfig(env *cli.Env) (*config, error) {
	c := &config{
		TemplatesDir:  cmp.Or(e.templatesDir, env.Getenv("TEMPLATES_DIR"), defaultTemplatesDir),
		EntsoeKey:     env.Getenv("ENTSOE_API_KEY"),
		EntsoeBaseURL: env.Getenv("ENTSOE_BASE_URL"),
		CachePath:     env.Getenv("CACHE_PATH"),
		GeminiKey:     env.Getenv("GEMINI_KEY"),
		GeminiModel:   cmp.Or(env.Getenv("GEMINI_MODEL"), summary.DefaultModel),
	}

	port := cmp.Or(e.port, env.Getenv("PORT"), defaultPort)
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, &ConfigError{Field: "port", Value: port, Err: err}
	}
	if p < 1 || p > 65535 {
		return nil, &ConfigError{Field: "port", Value: port, Err: errPortRange}
	}
	c.Port = p

	level := cmp.Or(e.logLevel, env.Getenv("LOG_LEVEL"), defaultLogLevel)
	if c.LogLevel, err = logger.ParseLevel(level); err != nil {
		return nil, &ConfigError{Field: "log level", Value: level, Err: err}
	}

	if c.CacheTTL, err = durationEnv(env, "CACHE_TTL", defaultCacheTTL, true); err != nil {
		return nil, err
	}
	if c.ShutdownTimeout, err = durationEnv(env, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout, false); err != nil {
		return nil, err
	}

	c.Debug = e.debug
	if v := env.Getenv("DEBUG"); v != "" && !c.Debug {
		if c.Debug, err = strconv.ParseBool(v); err != nil {
			return nil, &ConfigError{Field: "DEBUG", Value: v, Err: err}
		}
	}

	return c, nil
}

func durationEnv(env *cli.Env, name string, def time.Duration, allowZero bool) (time.Duration, error) {
	v := env.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &ConfigError{Field: name, Value: v, Err: err}
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, &ConfigError{Field: name, Value: v, Err: errors.New("must be positive")}
	}
	return d, nil
}

func (e *engine) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if err := e.init.Get(func() error {
		return e.doInit(ctx, env)
	}); err != nil {
		return err
	}

	// Used in tests.
	if e.noServerStart {
		return nil
	}

	go e.notifier.Watchdog(ctx)
	stop := context.AfterFunc(ctx, func() { e.notifier.Notify(systemd.Stopping) })
	defer stop()

	defer func() {
		if e.store != nil {
			if err := e.store.Close(); err != nil {
				e.log.Warnf("Closing cache: %v", err)
			}
		}
		if c, ok := e.summarizer.(io.Closer); ok {
			if err := c.Close(); err != nil {
				e.log.Warnf("Closing summarizer: %v", err)
			}
		}
	}()
	return e.srv.ListenAndServe(ctx)
}

func (e *engine) doInit(ctx context.Context, env *cli.Env) error {
	cfg, err := e.loadConfig(env)
	if err != nil {
		return err
	}
	e.cfg = cfg

	if e.now == nil {
		e.now = time.Now
	}

	e.logStream = logger.NewStreamer(logLineLimit)
	var w io.Writer = e.logStream
	if env.Stderr != nil {
		w = io.MultiWriter(env.Stderr, e.logStream)
	}
	e.log = logger.NewLeveled(log.New(w, "", log.LstdFlags|log.LUTC).Printf, cfg.LogLevel)

	if e.notifier, err = systemd.FromEnv(env.Getenv, e.log.At(logger.LevelWarn)); err != nil {
		return err
	}

	// Templates are loaded before anything binds or dials.
	e.tpls, err = templates.LoadDir(cfg.TemplatesDir)
	if err != nil {
		return err
	}
	e.log.Infof("Loaded %d templates from %s.", e.tpls.Len(), cfg.TemplatesDir)

	if cfg.CacheTTL > 0 {
		if cfg.CachePath != "" {
			s, err := store.NewSQLiteStore(ctx, cfg.CachePath, cfg.CacheTTL)
			if err != nil {
				return err
			}
			e.store = s
		} else {
			e.store = store.NewMemStore(ctx, cfg.CacheTTL)
		}
	}

	if cfg.EntsoeKey != "" {
		e.entsoec = &entsoe.Client{
			APIKey:  cfg.EntsoeKey,
			BaseURL: cfg.EntsoeBaseURL,
			Store:   e.store,
			Logger:  e.log,
		}
		e.entsoec.HTTPClient = e.outboundClient(e.entsoec.Scrubber())
	} else {
		e.log.Warnf("ENTSOE_API_KEY is not set, forecast endpoints will answer 503.")
	}

	if cfg.GeminiKey != "" && e.summarizer == nil {
		g, err := summary.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		e.summarizer = g
	}

	e.initRoutes()

	e.srv = &web.Server{
		Addr:            net.JoinHostPort("", strconv.Itoa(cfg.Port)),
		Mux:             e.mux,
		Logger:          e.log,
		Debuggable:      cfg.Debug,
		Streamer:        e.logStream,
		Ready:           e.serverReady,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Middleware: []web.Middleware{
			web.RequestID,
			web.AccessLog,
			web.Recover,
			web.SecurityHeaders,
		},
	}
	return nil
}

// outboundClient returns the HTTP client for upstream APIs. At debug level
// every request is logged with secrets scrubbed.
func (e *engine) outboundClient(scrub *strings.Replacer) *http.Client {
	if e.httpc != nil {
		return e.httpc
	}
	c := &http.Client{Timeout: outboundTimeout}
	if e.log.Enabled(logger.LevelDebug) {
		c.Transport = httplogger.New(nil, e.log.At(logger.LevelDebug), scrub)
	}
	return c
}

func (e *engine) serverReady(addr net.Addr) {
	e.notifier.Notify(systemd.Ready, systemd.Status("Listening on "+addr.String()))
	if e.ready != nil {
		e.ready(addr)
	}
}
