package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Skufu/healthpredict/internal/predictor"
	"github.com/Skufu/healthpredict/internal/risk"
)

const (
	colorTextPrimary   = "#1f2937"
	colorTextSecondary = "#6b7280"

	chartWidthPx  = 720
	chartHeightPx = 420
)

var tierColors = map[risk.Severity]string{
	risk.Low:      "#22c55e",
	risk.Moderate: "#f97316",
	risk.High:     "#ef4444",
}

// SeverityChart builds a bar chart of tier counts in Low, Moderate, High order.
func SeverityChart(title string, summary []predictor.TierCount) *charts.Bar {
	total := 0
	for _, tc := range summary {
		total += tc.Count
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     fmt.Sprintf("%dpx", chartWidthPx),
			Height:    fmt.Sprintf("%dpx", chartHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         title,
			Subtitle:      fmt.Sprintf("%d records", total),
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "Count",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	xAxis := make([]string, 0, len(summary))
	data := make([]opts.BarData, 0, len(summary))
	for _, tc := range summary {
		xAxis = append(xAxis, tc.Severity.String())
		data = append(data, opts.BarData{
			Name:      tc.Severity.String(),
			Value:     tc.Count,
			ItemStyle: &opts.ItemStyle{Color: tierColors[tc.Severity]},
		})
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Records", data)
	return bar
}

// RenderChart writes the severity chart as a standalone HTML page.
func RenderChart(w io.Writer, title string, summary []predictor.TierCount) error {
	return SeverityChart(title, summary).Render(w)
}
