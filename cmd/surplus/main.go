// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/educk/educk/internal/cli"
	"github.com/educk/educk/internal/entsoe"
	"github.com/educk/educk/internal/httplogger"
	"github.com/educk/educk/internal/logger"
)

func main() { cli.Main(new(app)) }

const (
	defaultZone   = "BE"
	defaultPeriod = 24 * time.Hour

	listedHours    = 10
	listedPeriods  = 5
	exportedRows   = 24
	highSurplusPct = 10
)

type app struct {
	zone    string
	start   string
	end     string
	csv     bool
	verbose bool

	// for tests
	httpc *http.Client
	now   func() time.Time
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.zone, "zone", defaultZone, "Bidding `zone`: EIC area code or country code.")
	fs.StringVar(&a.start, "start", "", "Period start as `YYYYMMDDHHMM` in UTC (default the current hour).")
	fs.StringVar(&a.end, "end", "", "Period end as `YYYYMMDDHHMM` in UTC (default 24 hours after start).")
	fs.BoolVar(&a.csv, "csv", false, "Append a CSV export of the first 24 hours.")
	fs.BoolVar(&a.verbose, "v", false, "Log outgoing requests to stderr.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if len(env.Args) > 0 {
		return fmt.Errorf("%w: unexpected arguments %q", cli.ErrInvalidArgs, env.Args)
	}
	key := env.Getenv("ENTSOE_API_KEY")
	if key == "" {
		return fmt.Errorf("missing environment variable ENTSOE_API_KEY: %w", entsoe.ErrNoAPIKey)
	}
	zone, ok := entsoe.LookupZone(a.zone)
	if !ok {
		return fmt.Errorf("%w: unknown bidding zone %q", cli.ErrInvalidArgs, a.zone)
	}
	start, end, err := a.period()
	if err != nil {
		return err
	}

	level := logger.LevelWarn
	if a.verbose {
		level = logger.LevelDebug
	}
	c := &entsoe.Client{
		APIKey:  key,
		BaseURL: env.Getenv("ENTSOE_BASE_URL"),
		Logger:  logger.NewLeveled(env.Logf, level),
	}
	c.HTTPClient = a.httpc
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if a.verbose {
		c.HTTPClient.Transport = httplogger.New(c.HTTPClient.Transport, env.Logf, c.Scrubber())
	}

	series, err := c.SurplusSeries(ctx, zone.Code, start, end)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return entsoe.ErrNoMatchingData
	}
	return report(env.Stdout, zone, series, a.csv)
}

func (a *app) period() (start, end time.Time, err error) {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	start = now().UTC().Truncate(time.Hour)
	if a.start != "" {
		if start, err = entsoe.ParsePeriod(a.start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: -start: %v", cli.ErrInvalidArgs, err)
		}
	}
	end = start.Add(defaultPeriod)
	if a.end != "" {
		if end, err = entsoe.ParsePeriod(a.end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: -end: %v", cli.ErrInvalidArgs, err)
		}
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: period end %s is not after start %s",
			cli.ErrInvalidArgs, entsoe.FormatPeriod(end), entsoe.FormatPeriod(start))
	}
	return start, end, nil
}

const (
	timeLayout  = "2006-01-02 15:04"
	stampLayout = "2006-01-02 15:04:05 UTC"
)

func report(w io.Writer, zone entsoe.Zone, series []entsoe.Surplus, withCSV bool) error {
	peak, _ := entsoe.Max(series)

	p := &printer{w: w}
	p.printf("=== Finding Maximum Renewable Energy Surplus ===\n\n")
	p.printf("Zone: %s\n\n", zone)
	p.printf("Peak Renewable Energy Availability:\n")
	p.printf("  Time: %s\n", peak.Time.UTC().Format(stampLayout))
	p.printf("  Generation: %.2f MW\n", peak.Generation)
	p.printf("  Load: %.2f MW\n", peak.Load)
	p.printf("  Surplus: %.2f MW\n", peak.Surplus)
	p.printf("  Surplus %%: %.2f%%\n", peak.Percentage())

	p.printf("\n=== Full Renewable Surplus Time Series ===\n\n")
	p.printf("Total data points: %d\n", len(series))
	p.printf("\nFirst %d hours:\n", listedHours)
	for _, s := range series[:min(listedHours, len(series))] {
		indicator := "✗"
		if s.HasExcess() {
			indicator = "✓"
		}
		p.printf("  %s %s | Gen: %7.2f MW | Load: %7.2f MW | Surplus: %+7.2f MW\n",
			s.Time.UTC().Format(timeLayout), indicator, s.Generation, s.Load, s.Surplus)
	}

	high := entsoe.FilterAbove(series, highSurplusPct)
	p.printf("\n=== Periods with >%d%% Renewable Surplus ===\n(%d hours)\n", highSurplusPct, len(high))
	for _, s := range high[:min(listedPeriods, len(high))] {
		p.printf("  %s | Surplus: %.2f MW (%.1f%%)\n", s.Time.UTC().Format(timeLayout), s.Surplus, s.Percentage())
	}

	if withCSV {
		p.printf("\n=== CSV Export ===\n")
		p.printf("Timestamp,Generation (MW),Load (MW),Surplus (MW),Surplus %%\n")
		for _, s := range series[:min(exportedRows, len(series))] {
			p.printf("%s,%.2f,%.2f,%.2f,%.2f\n",
				s.Time.UTC().Format(time.RFC3339), s.Generation, s.Load, s.Surplus, s.Percentage())
		}
	}
	return p.err
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
