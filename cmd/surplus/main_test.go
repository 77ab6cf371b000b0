// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/educk/educk/internal/cli"
	"github.com/educk/educk/internal/cli/clitest"
	"github.com/educk/educk/internal/entsoe"
	"github.com/educk/educk/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

var update = flag.Bool("update", false, "update golden files in testdata")

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

const testAPIKey = "surplus-test-token"

// fakeAPI serves the documents in testdata for Belgium and no data for any
// other zone.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	docs := map[string]string{
		"A71": "testdata/generation.xml",
		"A65": "testdata/load.xml",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("securityToken") != testAPIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if q.Get("periodStart") != "202308140000" || q.Get("periodEnd") != "202308140400" {
			http.Error(w, "unexpected period", http.StatusBadRequest)
			return
		}
		domain := q.Get("in_Domain") + q.Get("outBiddingZone_Domain")
		if domain != "10YBE----------2" {
			http.Error(w, "unknown domain", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, docs[q.Get("documentType")])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	t.Parallel()

	srv := fakeAPI(t)
	env := map[string]string{
		"ENTSOE_API_KEY":  testAPIKey,
		"ENTSOE_BASE_URL": srv.URL,
	}
	period := []string{"-start", "202308140000", "-end", "202308140400"}

	clitest.Run(t, func(t *testing.T) *app {
		return &app{now: func() time.Time { return time.Date(2023, time.August, 14, 0, 20, 0, 0, time.UTC) }}
	}, map[string]clitest.Case[*app]{
		"prints usage with help flag": {
			Args:         []string{"-h"},
			WantErr:      flag.ErrHelp,
			WantInStderr: "ENTSOE_API_KEY",
		},
		"version": {
			Args:    []string{"-version"},
			WantErr: cli.ErrExitVersion,
		},
		"no api key": {
			Args:    period,
			WantErr: entsoe.ErrNoAPIKey,
		},
		"unknown zone": {
			Args:    append([]string{"-zone", "XX"}, period...),
			Env:     env,
			WantErr: cli.ErrInvalidArgs,
		},
		"bad start": {
			Args:    []string{"-start", "yesterday"},
			Env:     env,
			WantErr: cli.ErrInvalidArgs,
		},
		"end before start": {
			Args:    []string{"-start", "202308140400", "-end", "202308140000"},
			Env:     env,
			WantErr: cli.ErrInvalidArgs,
		},
		"extra arguments": {
			Args:    []string{"BE"},
			Env:     env,
			WantErr: cli.ErrInvalidArgs,
		},
		"report by country": {
			Args:         period,
			Env:          env,
			WantInStdout: "  Surplus: 600.00 MW\n",
		},
		"report by EIC code": {
			Args:         append([]string{"-zone", "10YBE----------2"}, period...),
			Env:          env,
			WantInStdout: "(1 hours)\n  2023-08-14 02:00 | Surplus: 600.00 MW (12.0%)\n",
		},
		"no csv by default": {
			Args: period,
			Env:  env,
			CheckFunc: func(t *testing.T, a *app) {
				testutil.AssertEqual(t, a.csv, false)
			},
		},
		"upstream failure": {
			Args: append([]string{"-zone", "NL"}, period...),
			Env:  env,
			CheckErr: func(t *testing.T, err error) {
				if !strings.Contains(err.Error(), "unknown domain") {
					t.Fatalf("error must carry the upstream message, got %v", err)
				}
				if strings.Contains(err.Error(), testAPIKey) {
					t.Fatalf("error leaks the API key: %v", err)
				}
			},
		},
		"default period": {
			Args: nil,
			Env:  env,
			CheckErr: func(t *testing.T, err error) {
				// The fake only knows the four-hour test period.
				if !strings.Contains(err.Error(), "unexpected period") {
					t.Fatalf("want the default 24-hour period to be requested, got %v", err)
				}
			},
		},
	})
}

func TestReportGolden(t *testing.T) {
	srv := fakeAPI(t)

	var stdout bytes.Buffer
	err := cli.Run(cli.WithEnv(context.Background(), &cli.Env{
		Args: []string{"-csv", "-start", "202308140000", "-end", "202308140400"},
		Getenv: func(name string) string {
			return map[string]string{
				"ENTSOE_API_KEY":  testAPIKey,
				"ENTSOE_BASE_URL": srv.URL,
			}[name]
		},
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
	}), new(app))
	if err != nil {
		t.Fatal(err)
	}

	golden := filepath.Join("testdata", "report.golden")
	if *update {
		if err := os.WriteFile(golden, stdout.Bytes(), 0o644); err != nil {
			t.Fatalf("unable to write golden file %q: %v", golden, err)
		}
		return
	}
	want, err := os.ReadFile(golden)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(want), stdout.String()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

type failingWriter struct{}

var errWrite = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) { return 0, errWrite }

func TestReportWriteError(t *testing.T) {
	series := []entsoe.Surplus{{Time: time.Unix(0, 0), Generation: 1, Load: 1}}
	zone, _ := entsoe.PrimaryZone("BE")
	if err := report(failingWriter{}, zone, series, true); !errors.Is(err, errWrite) {
		t.Fatalf("want %v, got %v", errWrite, err)
	}
}
