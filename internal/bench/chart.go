package bench

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func toBarItems(vals []float64) []opts.BarData {
	out := make([]opts.BarData, len(vals))
	for i, v := range vals {
		out[i] = opts.BarData{Value: fmt.Sprintf("%.4f", v)}
	}
	return out
}

// newLatencyChart draws one bar group per variant with one bar per operation.
func newLatencyChart(title, subtitle string, results []*Result, pick func(*Result) [3]float64) *charts.Bar {
	variants := make([]string, len(results))
	series := [3][]float64{}
	for i, r := range results {
		variants[i] = r.Variant
		v := pick(r)
		for op := range series {
			series[op] = append(series[op], v[op])
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
	)
	bar.SetXAxis(variants).
		AddSeries("keygen", toBarItems(series[0])).
		AddSeries("encapsulate", toBarItems(series[1])).
		AddSeries("decapsulate", toBarItems(series[2]))
	return bar
}

// WriteHTML renders average and worst-case latency charts for results.
func WriteHTML(w io.Writer, results []*Result) error {
	if len(results) == 0 {
		return fmt.Errorf("bench: no results to render")
	}
	subtitle := fmt.Sprintf("%d iterations per variant", results[0].Iterations)

	page := components.NewPage()
	page.SetPageTitle("ML-KEM latency")
	page.AddCharts(
		newLatencyChart("Average latency", subtitle, results, func(r *Result) [3]float64 {
			return [3]float64{r.KeygenAvgMs, r.EncapAvgMs, r.DecapAvgMs}
		}),
		newLatencyChart("Worst-case latency", subtitle, results, func(r *Result) [3]float64 {
			return [3]float64{r.KeygenMaxMs, r.EncapMaxMs, r.DecapMaxMs}
		}),
	)
	return page.Render(w)
}

// SaveHTML renders the charts of WriteHTML to path.
func SaveHTML(path string, results []*Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteHTML(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
