package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/emspark/internal/metrics"
	"github.com/joelkehle/emspark/internal/queryparse"
)

type fetchCall struct {
	table      string
	market     string
	start, end time.Time
	lo, hi     int
}

// fakeSource serves canned rows keyed by table and market and records every
// fetch so tests can assert the access pattern.
type fakeSource struct {
	hourly  map[string][]metrics.Row
	quarter map[string][]metrics.Row
	err     error
	calls   []fetchCall
}

func (f *fakeSource) FetchHourly(_ context.Context, market string, start, end time.Time, lo, hi int) ([]metrics.Row, error) {
	f.calls = append(f.calls, fetchCall{"hourly", market, start, end, lo, hi})
	if f.err != nil {
		return nil, f.err
	}
	return filterBlocks(f.hourly[market], "block_index", lo, hi), nil
}

func (f *fakeSource) FetchQuarter(_ context.Context, market string, start, end time.Time, lo, hi int) ([]metrics.Row, error) {
	f.calls = append(f.calls, fetchCall{"quarter", market, start, end, lo, hi})
	if f.err != nil {
		return nil, f.err
	}
	return filterBlocks(f.quarter[market], "slot_index", lo, hi), nil
}

func filterBlocks(rows []metrics.Row, key string, lo, hi int) []metrics.Row {
	if lo == 0 && hi == 0 {
		return rows
	}
	var out []metrics.Row
	for _, r := range rows {
		idx := int(r[key].(int64))
		if idx >= lo && idx <= hi {
			out = append(out, r)
		}
	}
	return out
}

func hourlyDay(date string, price float64) []metrics.Row {
	rows := make([]metrics.Row, 0, 24)
	for b := 1; b <= 24; b++ {
		rows = append(rows, metrics.Row{
			"delivery_date":        date,
			"block_index":          int64(b),
			"price_avg_rs_per_mwh": price,
			"scheduled_mw_sum":     float64(100),
			"purchase_bid_avg":     float64(120),
			"sell_bid_avg":         float64(100),
			"duration_min":         int64(60),
		})
	}
	return rows
}

func fixedParser() *queryparse.Parser {
	p := queryparse.NewParser(queryparse.StatTWAP)
	p.Now = func() time.Time {
		return time.Date(2025, time.November, 17, 9, 30, 0, 0, time.UTC)
	}
	return p
}

func TestAnswerSingleDayQuery(t *testing.T) {
	src := &fakeSource{hourly: map[string][]metrics.Row{
		"DAM":  hourlyDay("2025-11-14", 5000),
		"GDAM": hourlyDay("2025-11-14", 6000),
		"RTM":  hourlyDay("2025-11-14", 4000),
	}}
	a := New(src, fixedParser(), nil)

	var progress []string
	got, err := a.Answer(context.Background(), "DAM rate for 14 Nov 2025", func(s string) {
		progress = append(progress, s)
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(got.Specs) != 1 {
		t.Fatalf("specs = %d, want 1", len(got.Specs))
	}

	for _, want := range []string{
		"## Spot Market (DAM) — 14 Nov 2025 to 14 Nov 2025",
		"| **Duration** | 00:00–24:00 (24 hrs) |",
		"**Average price: ₹5.0000 /kWh**",
		"DAM Snapshot - 14 Nov 2025",
		"Market Comparison · 2025 vs 2024",
		"Bids & Scheduling Analysis",
		"EM-SPARK AI Insights",
	} {
		if !strings.Contains(got.Markdown, want) {
			t.Errorf("markdown missing %q\n%s", want, got.Markdown)
		}
	}
	if len(progress) == 0 {
		t.Error("no progress messages emitted")
	}
}

func TestAnswerQuarterFallback(t *testing.T) {
	// No hourly rows for GDAM; the slot table covers the same window.
	quarter := make([]metrics.Row, 0, 96)
	for s := 1; s <= 96; s++ {
		quarter = append(quarter, metrics.Row{
			"delivery_date":  "2025-11-14",
			"slot_index":     int64(s),
			"mcp_rs_per_mwh": float64(7000),
			"scheduled_mw":   float64(50),
			"duration_min":   int64(15),
		})
	}
	src := &fakeSource{
		hourly:  map[string][]metrics.Row{},
		quarter: map[string][]metrics.Row{"GDAM": quarter},
	}
	a := New(src, fixedParser(), nil)

	got, err := a.Answer(context.Background(), "gdam price for 14 Nov 2025", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(got.Markdown, "**Average price: ₹7.0000 /kWh** _(via 15-min slots)_") {
		t.Errorf("missing slot-fallback KPI:\n%s", got.Markdown)
	}

	// The section fetch must try hourly blocks 1-24 first, then slots 1-96.
	var sawHourly, sawQuarter bool
	for _, c := range src.calls {
		if c.table == "hourly" && c.market == "GDAM" && c.lo == 1 && c.hi == 24 {
			sawHourly = true
		}
		if c.table == "quarter" && c.market == "GDAM" && c.lo == 1 && c.hi == 96 {
			sawQuarter = true
		}
	}
	if !sawHourly || !sawQuarter {
		t.Errorf("fallback fetch order wrong: %+v", src.calls)
	}
}

func TestAnswerListStatRendersTable(t *testing.T) {
	src := &fakeSource{hourly: map[string][]metrics.Row{
		"DAM": hourlyDay("2025-11-14", 5000),
	}}
	a := New(src, fixedParser(), nil)

	got, err := a.Answer(context.Background(), "list dam prices for 14 Nov 2025", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(got.Markdown, "| 2025-11-14 | 00:00–01:00 |  1 | 5.0000 | 100.00 |") {
		t.Errorf("list table missing:\n%s", got.Markdown)
	}
}

func TestAnswerSpecErrorDegrades(t *testing.T) {
	src := &fakeSource{err: errors.New("disk gone")}
	a := New(src, fixedParser(), nil)

	got, err := a.Answer(context.Background(), "DAM rate for 14 Nov 2025", nil)
	if err != nil {
		t.Fatalf("Answer should degrade, got error: %v", err)
	}
	if !strings.Contains(got.Markdown, "Could not load data for this selection") {
		t.Errorf("missing degradation note:\n%s", got.Markdown)
	}
}

func TestAnswerComparisonFetchesPreviousYear(t *testing.T) {
	src := &fakeSource{hourly: map[string][]metrics.Row{
		"DAM": hourlyDay("2025-11-14", 5000),
	}}
	a := New(src, fixedParser(), nil)

	if _, err := a.Answer(context.Background(), "DAM rate for 14 Nov 2025", nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	want := time.Date(2024, time.November, 14, 0, 0, 0, 0, time.UTC)
	found := false
	for _, c := range src.calls {
		if c.market == "DAM" && c.start.Equal(want) && c.lo == 0 && c.hi == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("no previous-year full-day fetch for DAM: %+v", src.calls)
	}
}

func TestAnswerMultiSpecOnlyFirstGetsDashboard(t *testing.T) {
	src := &fakeSource{hourly: map[string][]metrics.Row{
		"DAM": hourlyDay("2025-11-14", 5000),
		"RTM": hourlyDay("2025-11-14", 4000),
	}}
	a := New(src, fixedParser(), nil)

	got, err := a.Answer(context.Background(), "compare dam and rtm for 14 Nov 2025", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(got.Specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(got.Specs))
	}
	if n := strings.Count(got.Markdown, "Market Comparison ·"); n != 1 {
		t.Errorf("comparison sections = %d, want 1", n)
	}
	if n := strings.Count(got.Markdown, "## Spot Market"); n != 2 {
		t.Errorf("spot market sections = %d, want 2", n)
	}
}

func TestAnswerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := New(&fakeSource{}, fixedParser(), nil)
	if _, err := a.Answer(ctx, "DAM rate for 14 Nov 2025", nil); err == nil {
		t.Fatal("expected context error")
	}
}
