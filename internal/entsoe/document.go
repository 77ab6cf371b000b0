// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package entsoe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"
)

// Document is a parsed GL_MarketDocument, the format ENTSO-E uses for load
// and generation forecasts.
type Document struct {
	XMLName         xml.Name     `xml:"GL_MarketDocument"`
	MRID            string       `xml:"mRID"`
	RevisionNumber  string       `xml:"revisionNumber"`
	Type            string       `xml:"type"`
	ProcessType     string       `xml:"process.processType"`
	Sender          Participant  `xml:"sender_MarketParticipant.mRID"`
	SenderRole      string       `xml:"sender_MarketParticipant.marketRole.type"`
	Receiver        Participant  `xml:"receiver_MarketParticipant.mRID"`
	ReceiverRole    string       `xml:"receiver_MarketParticipant.marketRole.type"`
	CreatedDateTime string       `xml:"createdDateTime"`
	TimePeriod      TimeInterval `xml:"time_Period.timeInterval"`
	TimeSeries      []TimeSeries `xml:"TimeSeries"`
}

// Participant is a coded identifier of a market participant or area.
type Participant struct {
	Value        string `xml:",chardata"`
	CodingScheme string `xml:"codingScheme,attr"`
}

// TimeInterval is a start/end pair as ENTSO-E writes it, for example
// 2023-08-14T00:00Z.
type TimeInterval struct {
	Start string `xml:"start"`
	End   string `xml:"end"`
}

// Bounds parses both ends of the interval.
func (ti TimeInterval) Bounds() (start, end time.Time, err error) {
	if start, err = parseTime(ti.Start); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = parseTime(ti.End); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// TimeSeries is one series of a document.
type TimeSeries struct {
	MRID              string       `xml:"mRID"`
	BusinessType      string       `xml:"businessType"`
	ObjectAggregation string       `xml:"objectAggregation"`
	OutBiddingZone    *Participant `xml:"outBiddingZone_Domain.mRID"`
	InBiddingZone     *Participant `xml:"inBiddingZone_Domain.mRID"`
	MeasureUnit       string       `xml:"quantity_Measure_Unit.name"`
	CurveType         string       `xml:"curveType"`
	Periods           []Period     `xml:"Period"`
}

// Period is a run of equally spaced points.
type Period struct {
	TimeInterval TimeInterval `xml:"timeInterval"`
	Resolution   string       `xml:"resolution"`
	Points       []RawPoint   `xml:"Point"`
}

// RawPoint is a point as it appears in a document: a 1-based position within
// its period.
type RawPoint struct {
	Position int     `xml:"position"`
	Quantity float64 `xml:"quantity"`
}

// Point is a quantity at an absolute time.
type Point struct {
	Time     time.Time
	Quantity float64
}

// curveVariableBlocks marks series in which a point holds its quantity until
// the next listed position, so positions may be omitted.
const curveVariableBlocks = "A03"

// ParseDocument parses a GL_MarketDocument. ENTSO-E error documents are
// reported as *[APIError].
func ParseDocument(b []byte) (*Document, error) {
	if apiErr := parseAcknowledgement(b); apiErr != nil {
		return nil, apiErr
	}
	doc := new(Document)
	if err := xml.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("parsing market document: %w", err)
	}
	return doc, nil
}

// Points returns all points of the document with absolute timestamps, sorted
// by time. Quantities of points sharing a timestamp are summed.
func (d *Document) Points() ([]Point, error) {
	sums := make(map[time.Time]float64)
	for _, ts := range d.TimeSeries {
		for _, p := range ts.Periods {
			pts, err := p.points(ts.CurveType == curveVariableBlocks)
			if err != nil {
				return nil, fmt.Errorf("time series %s: %w", ts.MRID, err)
			}
			for _, pt := range pts {
				sums[pt.Time] += pt.Quantity
			}
		}
	}
	out := make([]Point, 0, len(sums))
	for t, q := range sums {
		out = append(out, Point{Time: t, Quantity: q})
	}
	slices.SortFunc(out, func(a, b Point) int { return a.Time.Compare(b.Time) })
	return out, nil
}

func (p Period) points(fill bool) ([]Point, error) {
	start, end, err := p.TimeInterval.Bounds()
	if err != nil {
		return nil, err
	}
	res, err := ParseResolution(p.Resolution)
	if err != nil {
		return nil, err
	}
	raw := slices.Clone(p.Points)
	slices.SortFunc(raw, func(a, b RawPoint) int { return a.Position - b.Position })

	var out []Point
	for i, rp := range raw {
		if rp.Position < 1 {
			return nil, fmt.Errorf("invalid point position %d", rp.Position)
		}
		last := rp.Position
		if fill {
			// The quantity holds until the next position or the period end.
			if i+1 < len(raw) {
				last = raw[i+1].Position - 1
			} else {
				last = int(end.Sub(start) / res)
			}
			last = max(last, rp.Position)
		}
		for pos := rp.Position; pos <= last; pos++ {
			out = append(out, Point{
				Time:     start.Add(time.Duration(pos-1) * res),
				Quantity: rp.Quantity,
			})
		}
	}
	return out, nil
}

var timeLayouts = []string{
	"2006-01-02T15:04Z07:00",
	time.RFC3339,
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

var resolutionRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?)?$`)

// ParseResolution parses the ISO 8601 durations ENTSO-E uses for period
// resolutions, such as PT15M, PT60M or P1D.
func ParseResolution(s string) (time.Duration, error) {
	m := resolutionRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid resolution %q", s)
	}
	var d time.Duration
	for i, unit := range []time.Duration{24 * time.Hour, time.Hour, time.Minute} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid resolution %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid resolution %q", s)
	}
	return d, nil
}

// APIError is an error reported by ENTSO-E in an Acknowledgement_MarketDocument.
type APIError struct {
	Code string
	Text string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("entsoe: %s (code %s)", e.Text, e.Code)
}

// codeNoData is the reason code ENTSO-E answers with when no document
// matches the query.
const codeNoData = "999"

// NoData reports whether the error means the query matched no data.
func (e *APIError) NoData() bool { return e.Code == codeNoData }

// IsNoData reports whether err is an [APIError] that means the query matched
// no data.
func IsNoData(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NoData()
}

type acknowledgement struct {
	XMLName xml.Name `xml:"Acknowledgement_MarketDocument"`
	Reasons []struct {
		Code string `xml:"code"`
		Text string `xml:"text"`
	} `xml:"Reason"`
}

func parseAcknowledgement(b []byte) *APIError {
	if !bytes.Contains(b, []byte("Acknowledgement_MarketDocument")) {
		return nil
	}
	var ack acknowledgement
	if err := xml.Unmarshal(b, &ack); err != nil || len(ack.Reasons) == 0 {
		return &APIError{Text: "unparsable error document"}
	}
	return &APIError{Code: ack.Reasons[0].Code, Text: ack.Reasons[0].Text}
}
