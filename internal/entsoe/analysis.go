// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package entsoe

import (
	"context"
	"errors"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Surplus is the forecast renewable surplus at one point in time.
type Surplus struct {
	Time       time.Time
	Generation float64 // MW
	Load       float64 // MW
	Surplus    float64 // Generation - Load, MW
}

// Percentage returns the surplus as a percentage of generation.
func (s Surplus) Percentage() float64 {
	if s.Generation == 0 {
		return 0
	}
	return s.Surplus / s.Generation * 100
}

// Penetration returns generation as a percentage of load.
func (s Surplus) Penetration() float64 {
	if s.Load == 0 {
		return 0
	}
	return s.Generation / s.Load * 100
}

// HasExcess reports whether generation exceeds load.
func (s Surplus) HasExcess() bool { return s.Surplus > 0 }

// ErrNoMatchingData reports that generation and load forecasts share no
// timestamps.
var ErrNoMatchingData = errors.New("entsoe: no matching data points found")

// Join matches generation points with load points by timestamp. Points
// without a counterpart are dropped. The result is sorted by time.
func Join(generation, load []Point) []Surplus {
	loadAt := make(map[time.Time]float64, len(load))
	for _, p := range load {
		loadAt[p.Time] = p.Quantity
	}
	out := make([]Surplus, 0, len(generation))
	for _, g := range generation {
		l, ok := loadAt[g.Time]
		if !ok {
			continue
		}
		out = append(out, Surplus{
			Time:       g.Time,
			Generation: g.Quantity,
			Load:       l,
			Surplus:    g.Quantity - l,
		})
	}
	slices.SortFunc(out, func(a, b Surplus) int { return a.Time.Compare(b.Time) })
	return out
}

// Max returns the entry with the largest surplus. The earliest one wins a
// tie. ok is false for an empty series.
func Max(series []Surplus) (s Surplus, ok bool) {
	for i, e := range series {
		if i == 0 || e.Surplus > s.Surplus {
			s = e
		}
	}
	return s, len(series) > 0
}

// FilterNight keeps the entries from 22:00 to 05:59 UTC.
func FilterNight(series []Surplus) []Surplus {
	return filter(series, func(s Surplus) bool {
		h := s.Time.UTC().Hour()
		return h >= 22 || h < 6
	})
}

// FilterNext keeps the entries between now and now plus hours, both
// inclusive.
func FilterNext(series []Surplus, now time.Time, hours int) []Surplus {
	end := now.Add(time.Duration(hours) * time.Hour)
	return filter(series, func(s Surplus) bool {
		return !s.Time.Before(now) && !s.Time.After(end)
	})
}

// FilterAbove keeps the entries with excess generation and a surplus
// percentage above pct.
func FilterAbove(series []Surplus, pct float64) []Surplus {
	return filter(series, func(s Surplus) bool {
		return s.HasExcess() && s.Percentage() > pct
	})
}

func filter(series []Surplus, keep func(Surplus) bool) []Surplus {
	out := make([]Surplus, 0, len(series))
	for _, s := range series {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// SurplusSeries fetches generation and load forecasts of a bidding zone
// concurrently and joins them. The first failing fetch cancels the other.
func (c *Client) SurplusSeries(ctx context.Context, zone string, start, end time.Time) ([]Surplus, error) {
	var gen, load *Document

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gen, err = c.FetchGenerationForecast(ctx, zone, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		load, err = c.FetchLoadForecast(ctx, zone, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	genPoints, err := gen.Points()
	if err != nil {
		return nil, err
	}
	loadPoints, err := load.Points()
	if err != nil {
		return nil, err
	}
	return Join(genPoints, loadPoints), nil
}
