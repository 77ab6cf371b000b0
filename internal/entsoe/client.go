// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package entsoe is a client for the ENTSO-E Transparency Platform API and
// computes renewable surplus series from its day-ahead forecasts.
package entsoe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/educk/educk/internal/logger"
	"github.com/educk/educk/internal/request"
	"github.com/educk/educk/internal/store"
	"github.com/educk/educk/internal/syncx"
)

// DefaultBaseURL is the production endpoint of the Transparency Platform API.
const DefaultBaseURL = "https://web-api.tp.entsoe.eu/api"

// PeriodLayout is the time layout of periodStart and periodEnd parameters.
const PeriodLayout = "200601021504"

// FormatPeriod formats a period boundary for the API.
func FormatPeriod(t time.Time) string { return t.UTC().Format(PeriodLayout) }

// ParsePeriod parses a period boundary in [PeriodLayout].
func ParsePeriod(s string) (time.Time, error) {
	return time.ParseInLocation(PeriodLayout, s, time.UTC)
}

// ErrNoAPIKey is returned when the client has no security token.
var ErrNoAPIKey = errors.New("entsoe: no API key configured")

// Client fetches forecasts from the ENTSO-E Transparency Platform.
type Client struct {
	// APIKey is the security token to authenticate with.
	APIKey string
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// HTTPClient is used for requests. If nil, request.DefaultClient is used.
	HTTPClient *http.Client
	// Store caches raw documents, if set.
	Store store.Store
	// Logger receives cache diagnostics. May be nil.
	Logger *logger.Leveled

	scrubber syncx.Lazy[*strings.Replacer]
}

type documentQuery struct {
	docType     string
	processType string
	domainParam string
	domain      string
	start, end  time.Time
}

func (q documentQuery) cacheKey() string {
	return "entsoe/" + q.docType + "/" + q.domain + "/" + FormatPeriod(q.start) + "-" + FormatPeriod(q.end)
}

// FetchLoadForecast fetches the day-ahead total load forecast (A65) of a
// bidding zone.
func (c *Client) FetchLoadForecast(ctx context.Context, zone string, start, end time.Time) (*Document, error) {
	return c.fetch(ctx, documentQuery{
		docType:     "A65",
		processType: "A01",
		domainParam: "outBiddingZone_Domain",
		domain:      zone,
		start:       start,
		end:         end,
	})
}

// FetchGenerationForecast fetches the day-ahead generation forecast (A71) of
// a bidding zone.
func (c *Client) FetchGenerationForecast(ctx context.Context, zone string, start, end time.Time) (*Document, error) {
	return c.fetch(ctx, documentQuery{
		docType:     "A71",
		processType: "A01",
		domainParam: "in_Domain",
		domain:      zone,
		start:       start,
		end:         end,
	})
}

func (c *Client) fetch(ctx context.Context, q documentQuery) (*Document, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if !q.end.After(q.start) {
		return nil, fmt.Errorf("entsoe: period end %v is not after start %v", q.end, q.start)
	}

	key := q.cacheKey()
	if c.Store != nil {
		b, err := c.Store.Get(ctx, key)
		switch {
		case err != nil:
			c.Logger.Warnf("entsoe: reading cache %q: %v", key, err)
		case b != nil:
			if doc, err := ParseDocument(b); err == nil {
				c.Logger.Debugf("entsoe: cache hit %q", key)
				return doc, nil
			}
		}
	}

	b, err := request.Make(ctx, request.Params{
		URL:        c.url(q),
		HTTPClient: c.HTTPClient,
		Scrubber:   c.scrub(),
	})
	if err != nil {
		// ENTSO-E reports query problems as an acknowledgement document
		// with a 4xx status.
		var se *request.StatusError
		if errors.As(err, &se) {
			if apiErr := parseAcknowledgement(se.Body); apiErr != nil {
				return nil, apiErr
			}
		}
		return nil, fmt.Errorf("entsoe: fetching %s for %s: %w", q.docType, q.domain, err)
	}

	doc, err := ParseDocument(b)
	if err != nil {
		return nil, err
	}

	if c.Store != nil {
		if err := c.Store.Set(ctx, key, b); err != nil {
			c.Logger.Warnf("entsoe: writing cache %q: %v", key, err)
		}
	}
	return doc, nil
}

func (c *Client) url(q documentQuery) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	v := url.Values{}
	v.Set("securityToken", c.APIKey)
	v.Set("documentType", q.docType)
	v.Set("processType", q.processType)
	v.Set(q.domainParam, q.domain)
	v.Set("periodStart", FormatPeriod(q.start))
	v.Set("periodEnd", FormatPeriod(q.end))
	return base + "?" + v.Encode()
}

func (c *Client) scrub() *strings.Replacer {
	return c.scrubber.Get(func() *strings.Replacer {
		if c.APIKey == "" {
			return strings.NewReplacer()
		}
		return strings.NewReplacer(c.APIKey, "[EXPUNGED]", url.QueryEscape(c.APIKey), "[EXPUNGED]")
	})
}

// Scrubber returns a replacer that removes the security token from strings,
// for use with loggers of outgoing requests.
func (c *Client) Scrubber() *strings.Replacer { return c.scrub() }
