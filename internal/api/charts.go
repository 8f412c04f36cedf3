package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/mapdiff/internal/httputil"
)

// handleRunsChart renders a quick HTML line chart of extra-point percentage
// over recent runs using go-echarts. This is a debugging view, not part of
// the viewer contract.
func (s *Server) handleRunsChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runs, err := s.store.ListRuns(200)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list runs: %v", err))
		return
	}
	if len(runs) == 0 {
		httputil.NotFound(w, "no compare runs recorded yet")
		return
	}

	// ListRuns is newest-first; plot oldest-first.
	labels := make([]string, 0, len(runs))
	percents := make([]opts.LineData, 0, len(runs))
	counts := make([]opts.LineData, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		labels = append(labels, time.Unix(0, run.CreatedAtNs).UTC().Format("01-02 15:04:05"))
		percents = append(percents, opts.LineData{Value: run.ExtraGenPercent})
		counts = append(counts, opts.LineData{Value: run.ExtraGenCount})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Map Drift History", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Extra points in gen vs base", Subtitle: fmt.Sprintf("last %d runs", len(runs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "run time (UTC)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "extra_gen % of base"}),
	)
	line.SetXAxis(labels).
		AddSeries("extra_gen %", percents).
		AddSeries("extra_gen count", counts)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
