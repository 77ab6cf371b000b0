// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package entsoe

import (
	"slices"
	"testing"

	"github.com/educk/educk/internal/testutil"
)

func TestZonesTable(t *testing.T) {
	testutil.AssertEqual(t, len(zones), 48)

	seen := make(map[string]bool)
	for _, z := range zones {
		if seen[z.Code] {
			t.Errorf("duplicate zone code %q", z.Code)
		}
		seen[z.Code] = true
	}
}

func TestCountries(t *testing.T) {
	got := Countries()
	testutil.AssertEqual(t, len(got), 41)
	if !slices.IsSorted(got) {
		t.Fatal("Countries is not sorted")
	}
	// Mutating the result must not affect later calls.
	got[0] = "XX"
	testutil.AssertEqual(t, Countries()[0], "AL")
}

func TestZonesByCountry(t *testing.T) {
	de, ok := ZonesByCountry("de")
	if !ok {
		t.Fatal("no zones for DE")
	}
	testutil.AssertEqual(t, len(de), 5)
	testutil.AssertEqual(t, de[0].Code, "10Y1001A1001A83F")

	if _, ok := ZonesByCountry("XX"); ok {
		t.Fatal("zones found for unknown country")
	}
}

func TestPrimaryZone(t *testing.T) {
	cases := map[string]struct {
		country string
		want    string
		wantOK  bool
	}{
		"single zone":      {country: "BE", want: "10YBE----------2", wantOK: true},
		"several zones":    {country: "IT", want: "10YIT-GRTN-----B", wantOK: true},
		"lowercase":        {country: " cz ", want: "10YCZ-CEPS-----N", wantOK: true},
		"unknown":          {country: "ZZ"},
		"primary not name": {country: "RU", want: "10Y1001A1001A50U", wantOK: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			z, ok := PrimaryZone(tc.country)
			testutil.AssertEqual(t, ok, tc.wantOK)
			testutil.AssertEqual(t, z.Code, tc.want)
		})
	}
}

func TestLookupZone(t *testing.T) {
	z, ok := LookupZone("10YDE-EON------1")
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, z.String(), "Germany (DE) - TenneT")

	z, ok = LookupZone("nl")
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, z.String(), "Netherlands (NL)")

	if _, ok := ZoneByCode("nl"); ok {
		t.Fatal("ZoneByCode matched a country code")
	}
}
