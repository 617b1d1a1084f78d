package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joelkehle/emspark/internal/metrics"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "prices.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFetchHourlyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := day(2025, time.November, 14)

	for block := 1; block <= 24; block++ {
		err := s.UpsertHourly(ctx, HourlyPrice{
			Market:        "DAM",
			DeliveryDate:  date,
			BlockIndex:    block,
			PriceRsPerMWh: 5000,
			ScheduledMW:   100,
			PurchaseBidMW: 120,
			SellBidMW:     110,
			MCVMW:         100,
		})
		if err != nil {
			t.Fatalf("upsert block %d: %v", block, err)
		}
	}

	rows, err := s.FetchHourly(ctx, "DAM", date, date, 0, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 24 {
		t.Fatalf("rows = %d, want 24", len(rows))
	}
	if metrics.BlockIndex(rows[0]) != 1 || metrics.BlockIndex(rows[23]) != 24 {
		t.Errorf("rows out of order: first=%d last=%d", metrics.BlockIndex(rows[0]), metrics.BlockIndex(rows[23]))
	}
	if got := metrics.FirstPresent(rows[0], metrics.HourlyPriceAliases, 0); got != 5000 {
		t.Errorf("price = %f", got)
	}
	if got := metrics.DurationMin(rows[0], 0); got != 60 {
		t.Errorf("duration = %d, want schema default 60", got)
	}

	res := metrics.ComputeHourly(rows)
	if res.Twap != 5.0 {
		t.Errorf("twap = %f, want 5.0", res.Twap)
	}
}

func TestFetchHourlyBlockBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := day(2025, time.November, 14)

	for block := 1; block <= 24; block++ {
		if err := s.UpsertHourly(ctx, HourlyPrice{Market: "DAM", DeliveryDate: date, BlockIndex: block, PriceRsPerMWh: 4000}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.FetchHourly(ctx, "DAM", date, date, 7, 9)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if metrics.BlockIndex(rows[0]) != 7 || metrics.BlockIndex(rows[2]) != 9 {
		t.Errorf("bounds not applied: %v", rows)
	}
}

func TestFetchHourlyFiltersMarketAndDates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, tc := range []struct {
		market string
		date   time.Time
	}{
		{"DAM", day(2025, time.October, 30)},
		{"DAM", day(2025, time.October, 31)},
		{"RTM", day(2025, time.October, 31)},
	} {
		if err := s.UpsertHourly(ctx, HourlyPrice{Market: tc.market, DeliveryDate: tc.date, BlockIndex: 1, PriceRsPerMWh: 4000}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.FetchHourly(ctx, "DAM", day(2025, time.October, 31), day(2025, time.October, 31), 0, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
}

func TestFetchQuarterSlotBounds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := day(2025, time.October, 31)

	for slot := 1; slot <= 96; slot++ {
		if err := s.UpsertQuarter(ctx, QuarterPrice{Market: "RTM", DeliveryDate: date, SlotIndex: slot, PriceRsPerMWh: 3500, ScheduledMW: 40}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.FetchQuarter(ctx, "RTM", date, date, 20, 50)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 31 {
		t.Fatalf("rows = %d, want 31", len(rows))
	}
	if metrics.SlotIndex(rows[0]) != 20 || metrics.SlotIndex(rows[30]) != 50 {
		t.Errorf("bounds not applied")
	}
	if got := metrics.DurationMin(rows[0], 0); got != 15 {
		t.Errorf("duration = %d, want schema default 15", got)
	}
}

func TestFetchQuarterEmpty(t *testing.T) {
	s := newTestStore(t)
	rows, err := s.FetchQuarter(context.Background(), "GDAM", day(2025, time.January, 1), day(2025, time.January, 1), 0, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}

func TestUpsertReplacesExistingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	date := day(2025, time.November, 14)

	if err := s.UpsertHourly(ctx, HourlyPrice{Market: "DAM", DeliveryDate: date, BlockIndex: 5, PriceRsPerMWh: 4000}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertHourly(ctx, HourlyPrice{Market: "DAM", DeliveryDate: date, BlockIndex: 5, PriceRsPerMWh: 4500}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.FetchHourly(ctx, "DAM", date, date, 5, 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if got := metrics.FirstPresent(rows[0], metrics.HourlyPriceAliases, 0); got != 4500 {
		t.Errorf("price = %f, want replaced value", got)
	}
}
