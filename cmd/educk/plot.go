// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import "github.com/educk/educk/internal/entsoe"

// Plotly trace and layout objects. Only the attributes used by the chart are
// modeled.

type plotTrace struct {
	X      []string   `json:"x"`
	Y      []float64  `json:"y"`
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Mode   string     `json:"mode"`
	Line   plotLine   `json:"line"`
	Marker plotMarker `json:"marker"`
}

type plotLine struct {
	Color string `json:"color"`
	Width int    `json:"width"`
}

type plotMarker struct {
	Size int `json:"size"`
}

type plotLayout struct {
	Title        plotTitle  `json:"title"`
	XAxis        plotAxis   `json:"xaxis"`
	YAxis        plotAxis   `json:"yaxis"`
	HoverMode    string     `json:"hovermode"`
	PlotBGColor  string     `json:"plot_bgcolor"`
	PaperBGColor string     `json:"paper_bgcolor"`
	ShowLegend   bool       `json:"showlegend"`
	Legend       plotLegend `json:"legend"`
}

type plotTitle struct {
	Text string   `json:"text"`
	Font plotFont `json:"font"`
}

type plotFont struct {
	Size int `json:"size"`
}

type plotAxis struct {
	Title     string `json:"title"`
	TickAngle int    `json:"tickangle,omitempty"`
}

type plotLegend struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	BGColor     string  `json:"bgcolor"`
	BorderColor string  `json:"bordercolor"`
	BorderWidth int     `json:"borderwidth"`
}

const plotTimeLayout = "2006-01-02 15:04"

func newPlotTraces(series []entsoe.Surplus) []plotTrace {
	pd := newPlotData(series, plotTimeLayout)
	trace := func(name, color string, y []float64) plotTrace {
		return plotTrace{
			X:      pd.Timestamps,
			Y:      y,
			Name:   name,
			Type:   "scatter",
			Mode:   "lines+markers",
			Line:   plotLine{Color: color, Width: 2},
			Marker: plotMarker{Size: 4},
		}
	}
	return []plotTrace{
		trace("Wind + Solar Generation", "rgb(34, 139, 34)", pd.Generation),
		trace("Total Load", "rgb(30, 144, 255)", pd.Load),
		trace("Surplus (Generation - Load)", "rgb(255, 140, 0)", pd.Surplus),
	}
}

func newPlotLayout() plotLayout {
	return plotLayout{
		Title:        plotTitle{Text: "Renewable Energy Forecast", Font: plotFont{Size: 20}},
		XAxis:        plotAxis{Title: "Time", TickAngle: -45},
		YAxis:        plotAxis{Title: "Power (MW)"},
		HoverMode:    "x unified",
		PlotBGColor:  "rgb(250, 250, 250)",
		PaperBGColor: "white",
		ShowLegend:   true,
		Legend: plotLegend{
			X:           0.01,
			Y:           0.99,
			BGColor:     "rgba(255, 255, 255, 0.8)",
			BorderColor: "rgba(0, 0, 0, 0.2)",
			BorderWidth: 1,
		},
	}
}
