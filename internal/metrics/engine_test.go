package metrics

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeHourlyTWAP(t *testing.T) {
	rows := []Row{
		{"block_index": 1, "price_avg_rs_per_mwh": 5000.0, "scheduled_mw_sum": 100.0, "duration_min": 60},
	}
	res := ComputeHourly(rows)
	if !almostEqual(res.Twap, 5.0) {
		t.Errorf("twap = %f, want 5.0", res.Twap)
	}
	if !almostEqual(res.TotalVolumeGWh, 0.1) {
		t.Errorf("volume = %f GWh, want 0.1", res.TotalVolumeGWh)
	}
}

func TestComputeHourlyTWAPWeightsByDuration(t *testing.T) {
	rows := []Row{
		{"price_avg_rs_per_mwh": 4000.0, "duration_min": 60},
		{"price_avg_rs_per_mwh": 8000.0, "duration_min": 30},
	}
	res := ComputeHourly(rows)
	// (4000*60 + 8000*30) / 90 / 1000
	if !almostEqual(res.Twap, 16.0/3) {
		t.Errorf("twap = %f, want %f", res.Twap, 16.0/3)
	}
}

func TestComputeVWAPWeightsByVolume(t *testing.T) {
	rows := []Row{
		{"price_avg_rs_per_mwh": 4000.0, "scheduled_mw_sum": 300.0, "duration_min": 60},
		{"price_avg_rs_per_mwh": 8000.0, "scheduled_mw_sum": 100.0, "duration_min": 60},
	}
	res := ComputeHourly(rows)
	// (4000*300 + 8000*100) / 400 / 1000
	if !almostEqual(res.Vwap, 5.0) {
		t.Errorf("vwap = %f, want 5.0", res.Vwap)
	}
	if !almostEqual(res.Twap, 6.0) {
		t.Errorf("twap = %f, want 6.0", res.Twap)
	}
}

func TestComputeVWAPFallsBackToTWAP(t *testing.T) {
	rows := []Row{
		{"price_avg_rs_per_mwh": 4000.0, "duration_min": 60},
	}
	res := ComputeHourly(rows)
	if !almostEqual(res.Vwap, res.Twap) {
		t.Errorf("vwap = %f, twap = %f; must match when no volume cleared", res.Vwap, res.Twap)
	}
}

// Bid columns are per-interval totals: two 100 MW intervals are 200 MW of
// bids, not an average of 100.
func TestComputeBidTotalsAreSummed(t *testing.T) {
	rows := []Row{
		{"price_avg_rs_per_mwh": 5000.0, "purchase_bid_avg": 100.0, "sell_bid_avg": 80.0, "duration_min": 60},
		{"price_avg_rs_per_mwh": 5000.0, "purchase_bid_avg": 100.0, "sell_bid_avg": 80.0, "duration_min": 60},
	}
	res := ComputeHourly(rows)
	if !almostEqual(res.PurchaseBidTotalMW, 200.0) {
		t.Errorf("purchase total = %f, want 200", res.PurchaseBidTotalMW)
	}
	if !almostEqual(res.SellBidTotalMW, 160.0) {
		t.Errorf("sell total = %f, want 160", res.SellBidTotalMW)
	}
}

func TestComputeMinMaxSkipsMissingPrices(t *testing.T) {
	rows := []Row{
		{"price_avg_rs_per_mwh": 3000.0, "duration_min": 60},
		{"price_avg_rs_per_mwh": nil, "duration_min": 60},
		{"price_avg_rs_per_mwh": 9000.0, "duration_min": 60},
	}
	res := ComputeHourly(rows)
	if !almostEqual(res.MinPrice, 3.0) || !almostEqual(res.MaxPrice, 9.0) {
		t.Errorf("min/max = %f/%f, want 3/9", res.MinPrice, res.MaxPrice)
	}
}

func TestComputeEmptyRows(t *testing.T) {
	res := ComputeQuarter(nil)
	if res.Twap != 0 || res.Vwap != 0 || res.TotalVolumeGWh != 0 || res.MinPrice != 0 {
		t.Errorf("empty input must yield zero result, got %+v", res)
	}
}

func TestComputeQuarterAliasesAndDefaults(t *testing.T) {
	rows := []Row{
		{"slot_index": 9, "mcp_rs_per_mwh": "6,000", "scheduled_mw_txt": "50 MW"},
	}
	res := ComputeQuarter(rows)
	if !almostEqual(res.Twap, 6.0) {
		t.Errorf("twap = %f, want 6.0 via alias", res.Twap)
	}
	// 50 MW for the default quarter duration of 15 minutes.
	if !almostEqual(res.TotalVolumeGWh, 50.0*15/60/1000) {
		t.Errorf("volume = %f", res.TotalVolumeGWh)
	}
	if !almostEqual(res.DurationHours, 0.25) {
		t.Errorf("duration = %f hrs, want 0.25", res.DurationHours)
	}
}
