// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package entsoe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/educk/educk/internal/store"
	"github.com/educk/educk/internal/testutil"
)

const testKey = "s3cr3t-t0ken"

// fakeAPI serves testdata documents the way the Transparency Platform does.
type fakeAPI struct {
	t     *testing.T
	load  []byte
	gen   []byte
	calls atomic.Int32
	// status, if set, is used for all responses.
	status int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	q := r.URL.Query()
	if q.Get("securityToken") != testKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if got := q.Get("processType"); got != "A01" {
		f.t.Errorf("processType = %q, want A01", got)
	}
	if got := q.Get("periodStart"); got != "202308140000" {
		f.t.Errorf("periodStart = %q", got)
	}
	if got := q.Get("periodEnd"); got != "202308140400" {
		f.t.Errorf("periodEnd = %q", got)
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	switch q.Get("documentType") {
	case "A65":
		if q.Get("outBiddingZone_Domain") != "10YCZ-CEPS-----N" {
			f.t.Errorf("unexpected load query %v", q)
		}
		w.Write(f.load)
	case "A71":
		if q.Get("in_Domain") != "10YCZ-CEPS-----N" {
			f.t.Errorf("unexpected generation query %v", q)
		}
		w.Write(f.gen)
	default:
		f.t.Errorf("unexpected documentType %q", q.Get("documentType"))
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return &Client{
		APIKey:     testKey,
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}
}

func TestSurplusSeries(t *testing.T) {
	api := &fakeAPI{t: t, load: readTestdata(t, "load.xml"), gen: readTestdata(t, "generation.xml")}
	c := newTestClient(t, api)

	got, err := c.SurplusSeries(context.Background(), "10YCZ-CEPS-----N", hour(0), hour(4))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, []Surplus{
		{Time: hour(0), Generation: 4100, Load: 4933, Surplus: -833},
		{Time: hour(1), Generation: 4200, Load: 4800, Surplus: -600},
		{Time: hour(2), Generation: 5000, Load: 4650, Surplus: 350},
		{Time: hour(3), Generation: 5000, Load: 4700, Surplus: 300},
	})

	peak, ok := Max(got)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, peak.Time, hour(2))
}

func TestFetchCache(t *testing.T) {
	api := &fakeAPI{t: t, load: readTestdata(t, "load.xml"), gen: readTestdata(t, "generation.xml")}
	c := newTestClient(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Store = store.NewMemStore(ctx, time.Hour)

	for range 3 {
		if _, err := c.FetchLoadForecast(ctx, "10YCZ-CEPS-----N", hour(0), hour(4)); err != nil {
			t.Fatal(err)
		}
	}
	testutil.AssertEqual(t, api.calls.Load(), int32(1))
}

func TestFetchAcknowledgement(t *testing.T) {
	ack := readTestdata(t, "nodata.xml")
	for name, status := range map[string]int{"200": 0, "400": http.StatusBadRequest} {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{t: t, load: ack, gen: ack, status: status}
			c := newTestClient(t, api)
			_, err := c.FetchLoadForecast(context.Background(), "10YCZ-CEPS-----N", hour(0), hour(4))
			if !IsNoData(err) {
				t.Fatalf("want no data error, got %v", err)
			}
		})
	}
}

func TestFetchScrubsKey(t *testing.T) {
	api := &fakeAPI{t: t, status: http.StatusInternalServerError}
	c := newTestClient(t, api)

	_, err := c.FetchLoadForecast(context.Background(), "10YCZ-CEPS-----N", hour(0), hour(4))
	if err == nil {
		t.Fatal("want error")
	}
	if strings.Contains(err.Error(), testKey) {
		t.Fatalf("error leaks the API key: %v", err)
	}
	if !strings.Contains(err.Error(), "[EXPUNGED]") {
		t.Fatalf("error doesn't mention the scrubbed URL: %v", err)
	}
}

func TestFetchValidation(t *testing.T) {
	var c Client
	if _, err := c.FetchLoadForecast(context.Background(), "x", hour(0), hour(1)); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("want ErrNoAPIKey, got %v", err)
	}
	c.APIKey = testKey
	if _, err := c.FetchLoadForecast(context.Background(), "x", hour(1), hour(1)); err == nil {
		t.Fatal("want error for empty period")
	}
}

func TestSurplusSeriesFailure(t *testing.T) {
	api := &fakeAPI{t: t, load: []byte("<not xml"), gen: readTestdata(t, "generation.xml")}
	c := newTestClient(t, api)
	if _, err := c.SurplusSeries(context.Background(), "10YCZ-CEPS-----N", hour(0), hour(4)); err == nil {
		t.Fatal("want error for a malformed load document")
	}
}

func TestPeriodFormat(t *testing.T) {
	ts := time.Date(2026, 1, 7, 9, 5, 0, 0, time.FixedZone("CET", 3600))
	testutil.AssertEqual(t, FormatPeriod(ts), "202601070805")
	got, err := ParsePeriod("202601070805")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(ts) {
		t.Fatalf("ParsePeriod = %v, want %v", got, ts)
	}
}
