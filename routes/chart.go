/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/humaidq/qsolog/db"
)

// renderBandChart renders a bar chart of QSOs per band as HTML. It returns
// an empty string when there is nothing to plot.
func renderBandChart(counts []db.BandCount) (string, error) {
	if len(counts) == 0 {
		return "", nil
	}

	bands := make([]string, 0, len(counts))
	values := make([]opts.BarData, 0, len(counts))

	for _, count := range counts {
		bands = append(bands, count.Band)
		values = append(values, opts.BarData{Value: count.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "320px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "QSOs per band",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "QSOs",
		}),
	)

	bar.SetXAxis(bands).AddSeries("QSOs", values)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}
