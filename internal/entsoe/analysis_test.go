// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package entsoe

import (
	"testing"
	"time"

	"github.com/educk/educk/internal/testutil"
)

func TestSurplusRatios(t *testing.T) {
	cases := map[string]struct {
		s               Surplus
		wantPercentage  float64
		wantPenetration float64
		wantExcess      bool
	}{
		"excess": {
			s:               Surplus{Generation: 200, Load: 100, Surplus: 100},
			wantPercentage:  50,
			wantPenetration: 200,
			wantExcess:      true,
		},
		"deficit": {
			s:               Surplus{Generation: 50, Load: 100, Surplus: -50},
			wantPercentage:  -100,
			wantPenetration: 50,
		},
		"no generation": {
			s:               Surplus{Load: 100, Surplus: -100},
			wantPercentage:  0,
			wantPenetration: 0,
		},
		"no load": {
			s:               Surplus{Generation: 10, Surplus: 10},
			wantPercentage:  100,
			wantPenetration: 0,
			wantExcess:      true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, tc.s.Percentage(), tc.wantPercentage)
			testutil.AssertEqual(t, tc.s.Penetration(), tc.wantPenetration)
			testutil.AssertEqual(t, tc.s.HasExcess(), tc.wantExcess)
		})
	}
}

func TestJoin(t *testing.T) {
	gen := []Point{{hour(2), 30}, {hour(0), 10}, {hour(1), 20}, {hour(5), 99}}
	load := []Point{{hour(0), 5}, {hour(1), 25}, {hour(2), 30}}

	testutil.AssertEqual(t, Join(gen, load), []Surplus{
		{Time: hour(0), Generation: 10, Load: 5, Surplus: 5},
		{Time: hour(1), Generation: 20, Load: 25, Surplus: -5},
		{Time: hour(2), Generation: 30, Load: 30, Surplus: 0},
	})
	testutil.AssertEqual(t, len(Join(nil, load)), 0)
}

func TestMax(t *testing.T) {
	if _, ok := Max(nil); ok {
		t.Fatal("Max of empty series reported ok")
	}
	series := []Surplus{
		{Time: hour(0), Surplus: -10},
		{Time: hour(1), Surplus: 7},
		{Time: hour(2), Surplus: 7},
		{Time: hour(3), Surplus: -1},
	}
	got, ok := Max(series)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, got.Time, hour(1))

	got, _ = Max(series[:1])
	testutil.AssertEqual(t, got.Surplus, -10.0)
}

func series(start time.Time, n int) []Surplus {
	out := make([]Surplus, n)
	for i := range out {
		out[i] = Surplus{Time: start.Add(time.Duration(i) * time.Hour), Surplus: float64(i)}
	}
	return out
}

func TestFilterNight(t *testing.T) {
	var hours []int
	for _, s := range FilterNight(series(hour(0), 24)) {
		hours = append(hours, s.Time.Hour())
	}
	testutil.AssertEqual(t, hours, []int{0, 1, 2, 3, 4, 5, 22, 23})
}

func TestFilterNext(t *testing.T) {
	now := hour(3).Add(30 * time.Minute)
	got := FilterNext(series(hour(0), 12), now, 3)

	var hours []int
	for _, s := range got {
		hours = append(hours, s.Time.Hour())
	}
	// 03:30 to 06:30 inclusive.
	testutil.AssertEqual(t, hours, []int{4, 5, 6})

	// Both ends are inclusive.
	got = FilterNext(series(hour(0), 12), hour(2), 2)
	testutil.AssertEqual(t, len(got), 3)
}

func TestFilterAbove(t *testing.T) {
	in := []Surplus{
		{Generation: 100, Load: 95, Surplus: 5},
		{Generation: 100, Load: 80, Surplus: 20},
		{Generation: 0, Load: 10, Surplus: -10},
	}
	testutil.AssertEqual(t, FilterAbove(in, 10), in[1:2])
}
