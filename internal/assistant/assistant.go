package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joelkehle/emspark/internal/insight"
	"github.com/joelkehle/emspark/internal/metrics"
	"github.com/joelkehle/emspark/internal/queryparse"
	"github.com/joelkehle/emspark/internal/report"
)

// PriceSource is the narrow read surface the assistant needs. Block and slot
// bounds of 0 mean the whole day.
type PriceSource interface {
	FetchHourly(ctx context.Context, market string, start, end time.Time, blockStart, blockEnd int) ([]metrics.Row, error)
	FetchQuarter(ctx context.Context, market string, start, end time.Time, slotStart, slotEnd int) ([]metrics.Row, error)
}

// Answer is one complete response to a free-text query.
type Answer struct {
	Markdown string
	Specs    []queryparse.QuerySpec
}

// Assistant turns free-text market queries into markdown reports: parse into
// specifications, fetch and aggregate cleared data per spec, then render the
// snapshot, comparison, bid and insight sections.
type Assistant struct {
	source   PriceSource
	parser   *queryparse.Parser
	insights *insight.Generator
	tracer   trace.Tracer
}

func New(source PriceSource, parser *queryparse.Parser, insights *insight.Generator) *Assistant {
	return &Assistant{
		source:   source,
		parser:   parser,
		insights: insights,
		tracer:   otel.Tracer("emspark/assistant"),
	}
}

// Answer resolves the query end to end. A failing spec degrades to an error
// note in its own section; the answer as a whole only fails when the context
// is cancelled. progress, when non-nil, receives short status lines.
func (a *Assistant) Answer(ctx context.Context, query string, progress func(string)) (Answer, error) {
	ctx, span := a.tracer.Start(ctx, "assistant.Answer",
		trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	emit := func(text string) {
		if progress != nil {
			progress(text)
		}
	}

	emit("Understanding your query...")
	specs := a.parser.Parse(ctx, query)
	span.SetAttributes(attribute.Int("specs", len(specs)))

	var sections []string
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return Answer{}, err
		}
		emit(fmt.Sprintf("Fetching %s data (%d of %d)...", spec.Market, i+1, len(specs)))

		section, err := a.buildSection(ctx, spec)
		if err != nil {
			log.Printf("assistant: spec %s failed: %v", spec.Key(), err)
			section = fmt.Sprintf("## Spot Market (%s) — %s\n\n_Could not load data for this selection: %v_\n",
				spec.Market, report.FormatDateRange(spec.StartDate, spec.EndDate), err)
		}
		sections = append(sections, section)

		// The dashboard sections (cross-market comparison, bids and
		// insights) accompany the primary spec only.
		if i == 0 {
			emit("Comparing markets...")
			sections = append(sections, a.buildDashboard(ctx, spec, query)...)
		}
	}

	return Answer{Markdown: report.Compose(sections...), Specs: specs}, nil
}

// buildSection renders the selection header and price KPI (plus table for
// list queries) for one spec.
func (a *Assistant) buildSection(ctx context.Context, spec queryparse.QuerySpec) (string, error) {
	ctx, span := a.tracer.Start(ctx, "assistant.buildSection",
		trace.WithAttributes(
			attribute.String("market", string(spec.Market)),
			attribute.String("granularity", string(spec.Granularity)),
			attribute.String("stat", string(spec.Stat)),
		))
	defer span.End()

	var (
		timeLabel string
		count     int
	)
	if spec.Granularity == queryparse.GranularityQuarter {
		timeLabel, _, count = report.LabelSlotRanges(spec.Slots)
	} else {
		timeLabel, _, count = report.LabelHourRanges(spec.Hours)
	}
	header := buildHeader(spec, timeLabel, count)

	kpi, table, err := a.fetchAndFormat(ctx, spec)
	if err != nil {
		return "", err
	}
	if table != "" {
		return header + "\n" + kpi + table + "\n", nil
	}
	return header + "\n" + kpi, nil
}

func buildHeader(spec queryparse.QuerySpec, timeLabel string, count int) string {
	var hoursStr string
	if spec.Granularity == queryparse.GranularityQuarter {
		hoursStr = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", float64(count)*0.25), "0"), ".")
	} else {
		hoursStr = fmt.Sprintf("%d", count)
	}
	return fmt.Sprintf(
		"## Spot Market (%s) — %s to %s\n\n"+
			"| **Parameter** | **Value** |\n"+
			"|---------------|------------|\n"+
			"| **Market** | %s |\n"+
			"| **Period** | %s to %s |\n"+
			"| **Duration** | %s (%s hrs) |\n",
		spec.Market, report.FormatDate(spec.StartDate), report.FormatDate(spec.EndDate),
		spec.Market,
		report.FormatDate(spec.StartDate), report.FormatDate(spec.EndDate),
		timeLabel, hoursStr)
}

// fetchAndFormat loads the spec's rows and renders its KPI line and optional
// table. Hour-granularity specs with no hourly data fall back to the
// 15-minute slots covering the same blocks.
func (a *Assistant) fetchAndFormat(ctx context.Context, spec queryparse.QuerySpec) (kpi, table string, err error) {
	if spec.Granularity == queryparse.GranularityQuarter {
		rows, err := a.fetchQuarterRanges(ctx, spec, report.CompressRanges(spec.Slots))
		if err != nil {
			return "", "", err
		}
		return formatQuarter(spec, metrics.FilterQuarter(rows, spec.Slots), false)
	}

	hourRanges := report.CompressRanges(spec.Hours)
	var rows []metrics.Row
	for _, r := range hourRanges {
		got, err := a.source.FetchHourly(ctx, string(spec.Market), spec.StartDate, spec.EndDate, r.Start, r.End)
		if err != nil {
			return "", "", fmt.Errorf("fetch hourly %s: %w", spec.Market, err)
		}
		rows = append(rows, got...)
	}
	// The bounds passed to the source are a hint; re-filter here so the
	// numbers never depend on the collaborator's bound semantics.
	rows = metrics.FilterHourly(rows, spec.Hours)

	if len(rows) == 0 {
		// Some markets publish only slot-level data.
		slotRanges := report.HourBlocksToSlotRanges(hourRanges)
		qrows, err := a.fetchQuarterRanges(ctx, spec, slotRanges)
		if err != nil {
			return "", "", err
		}
		return formatQuarter(spec, metrics.FilterQuarter(qrows, expandRanges(slotRanges)), true)
	}

	res := metrics.ComputeHourly(rows)
	kpi = fmt.Sprintf("**Average price: %s /kWh**\n\n", report.FormatMoney(primaryValue(spec.Stat, res)))
	switch spec.Stat {
	case queryparse.StatList:
		table = report.HourlyTable(rows)
	case queryparse.StatDailyAvg:
		table = report.DailyAverageTable(metrics.DailyAveragesHourly(rows))
	}
	return kpi, table, nil
}

func (a *Assistant) fetchQuarterRanges(ctx context.Context, spec queryparse.QuerySpec, ranges []report.Range) ([]metrics.Row, error) {
	var rows []metrics.Row
	for _, r := range ranges {
		got, err := a.source.FetchQuarter(ctx, string(spec.Market), spec.StartDate, spec.EndDate, r.Start, r.End)
		if err != nil {
			return nil, fmt.Errorf("fetch quarter %s: %w", spec.Market, err)
		}
		rows = append(rows, got...)
	}
	return rows, nil
}

func formatQuarter(spec queryparse.QuerySpec, rows []metrics.Row, viaFallback bool) (string, string, error) {
	res := metrics.ComputeQuarter(rows)
	note := ""
	if viaFallback {
		note = " _(via 15-min slots)_"
	}
	kpi := fmt.Sprintf("**Average price: %s /kWh**%s\n\n", report.FormatMoney(primaryValue(spec.Stat, res)), note)
	var table string
	switch spec.Stat {
	case queryparse.StatList:
		table = report.QuarterTable(rows)
	case queryparse.StatDailyAvg:
		table = report.DailyAverageTable(metrics.DailyAveragesQuarter(rows))
	}
	return kpi, table, nil
}

func expandRanges(ranges []report.Range) []int {
	var out []int
	for _, r := range ranges {
		for v := r.Start; v <= r.End; v++ {
			out = append(out, v)
		}
	}
	return out
}

func primaryValue(stat queryparse.Statistic, res metrics.Result) float64 {
	if stat == queryparse.StatVWAP {
		return res.Vwap
	}
	return res.Twap
}
