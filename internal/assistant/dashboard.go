package assistant

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/emspark/internal/insight"
	"github.com/joelkehle/emspark/internal/metrics"
	"github.com/joelkehle/emspark/internal/queryparse"
	"github.com/joelkehle/emspark/internal/report"
)

var dashboardMarkets = []string{"DAM", "GDAM", "RTM"}

// buildDashboard renders the cross-market sections around the primary spec:
// snapshot, year-over-year comparison, bid analysis and AI insights. Fetch
// failures here drop the affected market rather than the whole answer.
func (a *Assistant) buildDashboard(ctx context.Context, spec queryparse.QuerySpec, query string) []string {
	ctx, span := a.tracer.Start(ctx, "assistant.buildDashboard",
		trace.WithAttributes(attribute.String("market", string(spec.Market))))
	defer span.End()

	current := map[string]metrics.Result{}
	comparison := map[string]report.MarketData{}
	prevStart := spec.StartDate.AddDate(-1, 0, 0)
	prevEnd := spec.EndDate.AddDate(-1, 0, 0)

	for _, market := range dashboardMarkets {
		res, ok := a.fullDayResult(ctx, market, spec)
		if !ok {
			continue
		}
		current[market] = res

		data := report.MarketData{Current: res}
		prevSpec := spec
		prevSpec.StartDate, prevSpec.EndDate = prevStart, prevEnd
		if prev, ok := a.fullDayResult(ctx, market, prevSpec); ok && len(prev.Rows) > 0 {
			data.Previous = prev
			data.HasPrev = true
		}
		comparison[market] = data
	}

	var timeLabel string
	if spec.Granularity == queryparse.GranularityQuarter {
		timeLabel, _, _ = report.LabelSlotRanges(spec.Slots)
	} else {
		timeLabel, _, _ = report.LabelHourRanges(spec.Hours)
	}

	primary := current[string(spec.Market)]
	sections := []string{
		report.BuildSnapshot(string(spec.Market), spec.StartDate, timeLabel, primary),
		report.BuildComparison(spec.StartDate.Year(), comparison),
	}

	bids, tightness := report.BuildBidAnalysis(current)
	sections = append(sections, bids)

	bullets := a.insights.Bullets(ctx, insight.Input{
		Query:     query,
		Date:      spec.StartDate,
		Markets:   current,
		Tightness: tightness,
	})
	sections = append(sections, report.BuildInsights(bullets))
	return sections
}

// fullDayResult aggregates a market over the whole day for the spec's date
// window, hourly first with the quarter fallback.
func (a *Assistant) fullDayResult(ctx context.Context, market string, spec queryparse.QuerySpec) (metrics.Result, bool) {
	rows, err := a.source.FetchHourly(ctx, market, spec.StartDate, spec.EndDate, 0, 0)
	if err != nil {
		log.Printf("assistant: dashboard fetch %s: %v", market, err)
		return metrics.Result{}, false
	}
	if len(rows) > 0 {
		return metrics.ComputeHourly(rows), true
	}
	qrows, err := a.source.FetchQuarter(ctx, market, spec.StartDate, spec.EndDate, 0, 0)
	if err != nil {
		log.Printf("assistant: dashboard fetch %s: %v", market, err)
		return metrics.Result{}, false
	}
	return metrics.ComputeQuarter(qrows), true
}
