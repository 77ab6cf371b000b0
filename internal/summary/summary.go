// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package summary writes natural-language summaries of renewable surplus
// forecasts with Gemini.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/educk/educk/internal/entsoe"
	"github.com/educk/educk/internal/version"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

var (
	// ErrNoData is returned when the request has an empty series.
	ErrNoData = errors.New("summary: no data to summarize")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("summary: model returned no text")
)

// Request describes the forecast to summarize.
type Request struct {
	Country string
	Zone    string
	Series  []entsoe.Surplus
}

// Summarizer summarizes surplus forecasts.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

const systemInstruction = `You are an energy analyst. You receive an hourly day-ahead forecast of
wind and solar generation and total load for one European bidding zone,
with all times in UTC. Write a short summary for a general audience: when
renewable generation is expected to exceed demand, the peak surplus and
its time, and the hours best suited for flexible consumption such as
charging electric vehicles. Use at most five sentences. Do not invent data.`

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini is a [Summarizer] backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  generator
}

// NewGemini creates a Gemini summarizer. An empty model means DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Gemini, error) {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.ClientOption{
		option.WithAPIKey(apiKey),
		option.WithUserAgent(version.UserAgent()),
	}, opts...)
	c, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("summary: creating Gemini client: %w", err)
	}
	m := c.GenerativeModel(model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}
	m.SetTemperature(0.2)
	return &Gemini{client: c, model: m}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Summarize implements [Summarizer].
func (g *Gemini) Summarize(ctx context.Context, req Request) (string, error) {
	if len(req.Series) == 0 {
		return "", ErrNoData
	}
	resp, err := g.model.GenerateContent(ctx, genai.Text(Prompt(req)))
	if err != nil {
		return "", fmt.Errorf("summary: generating content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Prompt builds the user prompt for req: a header line followed by one line
// per hour.
func Prompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bidding zone: %s (%s)\n", req.Zone, req.Country)
	if peak, ok := entsoe.Max(req.Series); ok {
		fmt.Fprintf(&sb, "Peak surplus: %+.0f MW at %s\n", peak.Surplus, peak.Time.UTC().Format("2006-01-02 15:04 UTC"))
	}
	sb.WriteString("time, generation MW, load MW, surplus MW, surplus %\n")
	for _, s := range req.Series {
		fmt.Fprintf(&sb, "%s, %.0f, %.0f, %+.0f, %.1f\n",
			s.Time.UTC().Format("2006-01-02 15:04"), s.Generation, s.Load, s.Surplus, s.Percentage())
	}
	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// The first candidate with content is enough.
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}
