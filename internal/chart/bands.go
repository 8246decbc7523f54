package chart

import (
	"github.com/i474232898/weather-bands-dashboard/internal/weather"
)

const schemaURL = "https://vega.github.io/schema/vega-lite/v5.json"

// Blues4 is the four-step blue palette, darkest first.
var Blues4 = [4]string{"#2171b5", "#6baed6", "#bdd7e7", "#eff3ff"}

// Layer is one band (quad) layer: a rectangle per row spanning [left, right]
// horizontally and [Bottom, Top] vertically.
type Layer struct {
	Name    string
	Bottom  string
	Top     string
	Color   string
	Opacity float64
	Stroke  string
}

// DefaultLayers draws records behind averages behind the actual year.
func DefaultLayers() []Layer {
	return []Layer{
		{Name: "Record", Bottom: "record_min", Top: "record_max", Color: Blues4[2], Opacity: 1},
		{Name: "Average", Bottom: "avg_min", Top: "avg_max", Color: Blues4[1], Opacity: 1},
		{Name: "Actual", Bottom: "actual_min", Top: "actual_max", Color: Blues4[0], Opacity: 0.5, Stroke: "black"},
	}
}

// BandChart is a live chart bound to a replaceable set of rows. Replacing the
// rows or the title changes the next rendered spec; the page redraws from it.
// BandChart is not safe for concurrent use.
type BandChart struct {
	title   string
	errText string
	rows    []weather.DailyStatRow
	layers  []Layer
	width   int
	height  int
	yTitle  string
}

func NewBandChart(title string) *BandChart {
	return &BandChart{
		title:  title,
		layers: DefaultLayers(),
		width:  800,
		height: 400,
		yTitle: "Temperature (C)",
	}
}

// Replace swaps the entire bound dataset.
func (c *BandChart) Replace(rows []weather.DailyStatRow) {
	c.rows = append([]weather.DailyStatRow(nil), rows...)
}

func (c *BandChart) SetTitle(title string) { c.title = title }

func (c *BandChart) Title() string { return c.title }

// ShowError sets the error banner without touching the bound data.
func (c *BandChart) ShowError(msg string) { c.errText = msg }

func (c *BandChart) ClearError() { c.errText = "" }

func (c *BandChart) ErrorText() string { return c.errText }

// Rows returns a copy of the bound dataset.
func (c *BandChart) Rows() []weather.DailyStatRow {
	return append([]weather.DailyStatRow(nil), c.rows...)
}

// Spec renders the chart as a Vega-Lite specification.
func (c *BandChart) Spec() map[string]any {
	names := make([]string, 0, len(c.layers))
	colors := make([]string, 0, len(c.layers))
	for _, l := range c.layers {
		names = append(names, l.Name)
		colors = append(colors, l.Color)
	}

	layers := make([]map[string]any, 0, len(c.layers))
	for _, l := range c.layers {
		mark := map[string]any{
			"type":    "rect",
			"opacity": l.Opacity,
		}
		if l.Stroke != "" {
			mark["stroke"] = l.Stroke
			mark["strokeWidth"] = 0.5
		}
		layers = append(layers, map[string]any{
			"mark": mark,
			"encoding": map[string]any{
				"y":  map[string]any{"field": l.Bottom, "type": "quantitative", "title": c.yTitle},
				"y2": map[string]any{"field": l.Top},
				"color": map[string]any{
					"datum":  l.Name,
					"type":   "nominal",
					"scale":  map[string]any{"domain": names, "range": colors},
					"legend": map[string]any{"title": nil, "orient": "top-left"},
				},
			},
		})
	}

	rows := c.rows
	if rows == nil {
		rows = []weather.DailyStatRow{}
	}

	return map[string]any{
		"$schema": schemaURL,
		"title":   c.title,
		"width":   c.width,
		"height":  c.height,
		"data":    map[string]any{"values": rows},
		"encoding": map[string]any{
			"x": map[string]any{
				"field": "left",
				"type":  "temporal",
				"title": nil,
				"scale": map[string]any{"padding": 0},
			},
			"x2": map[string]any{"field": "right"},
		},
		"layer": layers,
		"config": map[string]any{
			"axis": map[string]any{
				"titleFontWeight": "bold",
				"gridOpacity":     0.3,
			},
			"mark": map[string]any{"invalid": "filter"},
		},
	}
}
