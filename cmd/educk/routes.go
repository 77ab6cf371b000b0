// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/educk/educk/internal/entsoe"
	"github.com/educk/educk/internal/store"
	"github.com/educk/educk/internal/summary"
	"github.com/educk/educk/internal/version"
	"github.com/educk/educk/internal/web"
)

const (
	defaultHours = 24
	maxHours     = 7 * 24
	nightWindow  = 48 * time.Hour

	notFoundTemplate = "404.html"
	plotTemplate     = "_plot.html"
)

func (e *engine) initRoutes() {
	e.mux = http.NewServeMux()

	// Template pages.
	e.mux.HandleFunc("/", e.handleTemplate)

	// Renewable surplus API.
	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/countries", e.handleCountries)
	api.HandleFunc("GET /api/v1/zones/{country}", e.handleZones)
	api.HandleFunc("GET /api/v1/renewable-surplus/{country}/{view}", e.handleSurplus)
	api.HandleFunc("/api/", handleAPINotFound)
	e.mux.Handle("/api/", web.CORS(api))

	// Health check.
	health := web.Health(e.mux)
	health.AllowCORS()
	health.RegisterFunc("templates", func() (status string, ok bool) {
		n := e.tpls.Len()
		return fmt.Sprintf("%d loaded", n), n > 0
	})
	health.RegisterFunc("entsoe", func() (status string, ok bool) {
		if e.entsoec == nil {
			return "API key is not configured", true
		}
		return "configured", true
	})
	health.RegisterFunc("cache", func() (status string, ok bool) {
		switch {
		case e.store == nil:
			return "disabled", true
		case e.cfg.CachePath != "":
			return "sqlite, ttl " + e.cfg.CacheTTL.String(), true
		default:
			return "memory, ttl " + e.cfg.CacheTTL.String(), true
		}
	})

	if e.cfg.Debug {
		dbg := web.Debugger(e.mux)
		dbg.MenuFunc(func(*http.Request) []web.MenuItem {
			return []web.MenuItem{
				web.LinkItem{Name: "Home", Target: "/"},
				web.LinkItem{Name: "Health", Target: "/health"},
			}
		})
		dbg.KV("Templates", strings.Join(e.tpls.Keys(), ", "))
		dbg.KV("Log level", e.cfg.LogLevel)
		dbg.KVFunc("Cache entries", func() any {
			if ms, ok := e.store.(*store.MemStore); ok {
				return ms.Len()
			}
			return "n/a"
		})
	}
}

// pageData is passed to every rendered template.
type pageData struct {
	CmdName   string
	Version   string
	Path      string
	Query     url.Values
	Countries []string
}

func (e *engine) page(r *http.Request) pageData {
	return pageData{
		CmdName:   version.CmdName(),
		Version:   version.Version().Version,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Countries: entsoe.Countries(),
	}
}

func (e *engine) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		web.RespondError(w, r, web.ErrMethodNotAllowed)
		return
	}
	key, ok := e.tpls.Resolve(r.URL.Path)
	if !ok || key == notFoundTemplate {
		e.notFound(w, r)
		return
	}
	e.render(w, r, http.StatusOK, key, e.page(r))
}

func (e *engine) notFound(w http.ResponseWriter, r *http.Request) {
	if _, ok := e.tpls.Lookup(notFoundTemplate); ok {
		e.render(w, r, http.StatusNotFound, notFoundTemplate, e.page(r))
		return
	}
	web.RespondError(w, r, web.ErrNotFound)
}

func (e *engine) render(w http.ResponseWriter, r *http.Request, code int, key string, data any) {
	t, ok := e.tpls.Lookup(key)
	if !ok {
		web.RespondError(w, r, fmt.Errorf("template %q: %w", key, web.ErrNotFound))
		return
	}
	var buf bytes.Buffer
	if err := e.tpls.Render(&buf, key, data); err != nil {
		web.RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", t.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		buf.WriteTo(w)
	}
}

// apiResponse is the envelope of every API response.
type apiResponse struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func respondAPI(w http.ResponseWriter, data any) {
	web.RespondJSON(w, apiResponse{Success: true, Data: data})
}

// respondAPIFailure answers 200 with success set to false. It is used when
// the request was valid but there is nothing to report.
func respondAPIFailure(w http.ResponseWriter, msg string) {
	web.RespondJSON(w, apiResponse{Error: &msg})
}

// respondAPIError answers with the status carried by err. Server errors are
// logged and their details are not sent to the client.
func respondAPIError(w http.ResponseWriter, r *http.Request, err error) {
	code := web.StatusOf(err)
	msg := err.Error()
	if code >= 500 {
		web.LoggerFromContext(r.Context()).Errorf("%s %s: error %d (%s): %v", r.Method, r.URL.Path, code, http.StatusText(code), err)
		msg = strings.ToLower(http.StatusText(code))
	}
	web.RespondJSONStatus(w, code, apiResponse{Error: &msg})
}

func handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		respondAPIError(w, r, web.ErrMethodNotAllowed)
		return
	}
	respondAPIError(w, r, fmt.Errorf("no API route for %s: %w", r.URL.Path, web.ErrNotFound))
}

func (e *engine) handleCountries(w http.ResponseWriter, r *http.Request) {
	respondAPI(w, entsoe.Countries())
}

type zoneInfo struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	TSO  *string `json:"tso"`
}

func (e *engine) handleZones(w http.ResponseWriter, r *http.Request) {
	country := r.PathValue("country")
	zones, ok := entsoe.ZonesByCountry(country)
	if !ok {
		respondAPIError(w, r, fmt.Errorf("unknown country %q: %w", country, web.ErrNotFound))
		return
	}
	infos := make([]zoneInfo, 0, len(zones))
	for _, z := range zones {
		info := zoneInfo{Code: z.Code, Name: z.Name}
		if z.TSO != "" {
			info.TSO = &z.TSO
		}
		infos = append(infos, info)
	}
	respondAPI(w, infos)
}

// surplusRequest is a validated request to one of the renewable surplus
// views.
type surplusRequest struct {
	country string // as requested
	zone    entsoe.Zone
	now     time.Time
	hours   int
}

// window returns the period to request from ENTSO-E when looking ahead d
// from now. It starts at the beginning of the current hour.
func (sr surplusRequest) window(d time.Duration) (start, end time.Time) {
	start = sr.now.Truncate(time.Hour)
	return start, start.Add(d)
}

type surplusView struct {
	serve func(e *engine, w http.ResponseWriter, r *http.Request, sr surplusRequest)
	hours bool // reads the hours query parameter
}

var surplusViews = map[string]surplusView{
	"night":     {serve: (*engine).serveNight},
	"next-6h":   {serve: fixedHours(6)},
	"next-24h":  {serve: fixedHours(24)},
	"next":      {serve: (*engine).serveNext, hours: true},
	"plot":      {serve: (*engine).servePlot, hours: true},
	"plot-json": {serve: (*engine).servePlotJSON, hours: true},
	"summary":   {serve: (*engine).serveSummary, hours: true},
}

func fixedHours(n int) func(*engine, http.ResponseWriter, *http.Request, surplusRequest) {
	return func(e *engine, w http.ResponseWriter, r *http.Request, sr surplusRequest) {
		sr.hours = n
		e.serveNext(w, r, sr)
	}
}

func (e *engine) handleSurplus(w http.ResponseWriter, r *http.Request) {
	view, ok := surplusViews[r.PathValue("view")]
	if !ok {
		respondAPIError(w, r, fmt.Errorf("unknown view %q: %w", r.PathValue("view"), web.ErrNotFound))
		return
	}
	if e.entsoec == nil {
		respondAPIError(w, r, fmt.Errorf("%w: %w", web.ErrServiceUnavailable, entsoe.ErrNoAPIKey))
		return
	}

	country := r.PathValue("country")
	zone, ok := entsoe.PrimaryZone(country)
	if !ok {
		respondAPIError(w, r, fmt.Errorf("unknown country %q: %w", country, web.ErrBadRequest))
		return
	}
	hours := defaultHours
	if view.hours {
		var err error
		if hours, err = parseHours(r.URL.Query().Get("hours")); err != nil {
			respondAPIError(w, r, err)
			return
		}
	}

	view.serve(e, w, r, surplusRequest{
		country: strings.ToUpper(strings.TrimSpace(country)),
		zone:    zone,
		now:     e.now().UTC(),
		hours:   hours,
	})
}

func parseHours(s string) (int, error) {
	if s == "" {
		return defaultHours, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxHours {
		return 0, fmt.Errorf("hours must be an integer between 1 and %d, got %q: %w", maxHours, s, web.ErrBadRequest)
	}
	return n, nil
}

// series fetches the surplus series for sr looking ahead d. A window
// without published data is an empty series.
func (e *engine) series(r *http.Request, sr surplusRequest, d time.Duration) ([]entsoe.Surplus, error) {
	start, end := sr.window(d)
	series, err := e.entsoec.SurplusSeries(r.Context(), sr.zone.Code, start, end)
	if entsoe.IsNoData(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetching forecast for %s: %w", web.ErrBadGateway, sr.zone.Code, err)
	}
	return series, nil
}

// maxSurplusResponse describes the moment of peak surplus in a window.
type maxSurplusResponse struct {
	CountryCode          string  `json:"country_code"`
	Timestamp            string  `json:"timestamp"`
	TimestampUTC         string  `json:"timestamp_utc"`
	GenerationMW         float64 `json:"generation_mw"`
	LoadMW               float64 `json:"load_mw"`
	SurplusMW            float64 `json:"surplus_mw"`
	SurplusPercentage    float64 `json:"surplus_percentage"`
	RenewablePenetration float64 `json:"renewable_penetration"`
	FilterApplied        string  `json:"filter_applied"`
}

func newMaxSurplusResponse(country, filter string, s entsoe.Surplus) maxSurplusResponse {
	t := s.Time.UTC()
	return maxSurplusResponse{
		CountryCode:          country,
		Timestamp:            t.Format(time.RFC3339),
		TimestampUTC:         t.Format("2006-01-02 15:04:05 UTC"),
		GenerationMW:         s.Generation,
		LoadMW:               s.Load,
		SurplusMW:            s.Surplus,
		SurplusPercentage:    s.Percentage(),
		RenewablePenetration: s.Penetration(),
		FilterApplied:        filter,
	}
}

func (e *engine) serveNight(w http.ResponseWriter, r *http.Request, sr surplusRequest) {
	series, err := e.series(r, sr, nightWindow)
	if err != nil {
		respondAPIError(w, r, err)
		return
	}
	peak, ok := entsoe.Max(entsoe.FilterNight(series))
	if !ok {
		respondAPIFailure(w, "No night hours found in forecast period")
		return
	}
	respondAPI(w, newMaxSurplusResponse(sr.country, "Night hours (22:00-06:00)", peak))
}

func (e *engine) serveNext(w http.ResponseWriter, r *http.Request, sr surplusRequest) {
	series, err := e.series(r, sr, time.Duration(sr.hours+1)*time.Hour)
	if err != nil {
		respondAPIError(w, r, err)
		return
	}
	peak, ok := entsoe.Max(entsoe.FilterNext(series, sr.now, sr.hours))
	if !ok {
		respondAPIFailure(w, fmt.Sprintf("No data found for next %d hours", sr.hours))
		return
	}
	respondAPI(w, newMaxSurplusResponse(sr.country, fmt.Sprintf("Next %d hours from now", sr.hours), peak))
}

// plotData is the chart data served as JSON.
type plotData struct {
	Timestamps []string  `json:"timestamps"`
	Generation []float64 `json:"generation"`
	Load       []float64 `json:"load"`
	Surplus    []float64 `json:"surplus"`
}

func newPlotData(series []entsoe.Surplus, layout string) plotData {
	pd := plotData{
		Timestamps: make([]string, 0, len(series)),
		Generation: make([]float64, 0, len(series)),
		Load:       make([]float64, 0, len(series)),
		Surplus:    make([]float64, 0, len(series)),
	}
	for _, s := range series {
		pd.Timestamps = append(pd.Timestamps, s.Time.UTC().Format(layout))
		pd.Generation = append(pd.Generation, s.Generation)
		pd.Load = append(pd.Load, s.Load)
		pd.Surplus = append(pd.Surplus, s.Surplus)
	}
	return pd
}

func (e *engine) servePlotJSON(w http.ResponseWriter, r *http.Request, sr surplusRequest) {
	series, err := e.series(r, sr, time.Duration(sr.hours+1)*time.Hour)
	if err != nil {
		respondAPIError(w, r, err)
		return
	}
	if len(series) == 0 {
		respondAPIFailure(w, "No data available")
		return
	}
	respondAPI(w, newPlotData(series, time.RFC3339))
}

// plotPage is passed to the plot template.
type plotPage struct {
	pageData
	CountryCode string
	CountryName string
	PeriodStart string
	PeriodEnd   string
	DataPoints  int
	Traces      []plotTrace
	Layout      plotLayout
}

func (e *engine) servePlot(w http.ResponseWriter, r *http.Request, sr surplusRequest) {
	if _, ok := e.tpls.Lookup(plotTemplate); !ok {
		web.RespondError(w, r, fmt.Errorf("%s: %w", plotTemplate, web.ErrNotFound))
		return
	}
	series, err := e.series(r, sr, time.Duration(sr.hours+1)*time.Hour)
	if err != nil {
		web.RespondError(w, r, err)
		return
	}
	if len(series) == 0 {
		web.RespondError(w, r, fmt.Errorf("no forecast data for %s: %w", sr.zone.Code, web.ErrNotFound))
		return
	}

	const periodLayout = "2006-01-02 15:04 UTC"
	e.render(w, r, http.StatusOK, plotTemplate, plotPage{
		pageData:    e.page(r),
		CountryCode: sr.country,
		CountryName: sr.zone.Name,
		PeriodStart: series[0].Time.UTC().Format(periodLayout),
		PeriodEnd:   series[len(series)-1].Time.UTC().Format(periodLayout),
		DataPoints:  len(series),
		Traces:      newPlotTraces(series),
		Layout:      newPlotLayout(),
	})
}

// summaryResponse is the natural-language description of a forecast.
type summaryResponse struct {
	CountryCode string `json:"country_code"`
	Zone        string `json:"zone"`
	Hours       int    `json:"hours"`
	DataPoints  int    `json:"data_points"`
	Summary     string `json:"summary"`
}

func (e *engine) serveSummary(w http.ResponseWriter, r *http.Request, sr surplusRequest) {
	if e.summarizer == nil {
		respondAPIError(w, r, fmt.Errorf("summaries are not configured: %w", web.ErrNotFound))
		return
	}
	series, err := e.series(r, sr, time.Duration(sr.hours+1)*time.Hour)
	if err != nil {
		respondAPIError(w, r, err)
		return
	}
	series = entsoe.FilterNext(series, sr.now, sr.hours)
	text, err := e.summarizer.Summarize(r.Context(), summary.Request{
		Country: sr.country,
		Zone:    sr.zone.Name,
		Series:  series,
	})
	if errors.Is(err, summary.ErrNoData) {
		respondAPIFailure(w, fmt.Sprintf("No data found for next %d hours", sr.hours))
		return
	}
	if err != nil {
		respondAPIError(w, r, fmt.Errorf("%w: %w", web.ErrBadGateway, err))
		return
	}
	respondAPI(w, summaryResponse{
		CountryCode: sr.country,
		Zone:        sr.zone.Code,
		Hours:       sr.hours,
		DataPoints:  len(series),
		Summary:     text,
	})
}
