package metrics

// Result carries every aggregate the presentation layer needs for one
// market/window. Prices are in ₹/kWh, volumes in GWh, bid totals in MW.
type Result struct {
	Twap               float64
	Vwap               float64
	MinPrice           float64
	MaxPrice           float64
	TotalVolumeGWh     float64
	PurchaseBidTotalMW float64
	SellBidTotalMW     float64
	ScheduledTotalMW   float64
	MCVTotalMW         float64
	DurationHours      float64
	Rows               []Row
}

type fieldSet struct {
	price       []string
	scheduled   []string
	purchase    []string
	sell        []string
	mcv         []string
	durationMin int
}

var (
	hourlyFields  = fieldSet{HourlyPriceAliases, HourlyScheduledAliases, HourlyPurchaseAliases, HourlySellAliases, HourlyMCVAliases, 60}
	quarterFields = fieldSet{QuarterPriceAliases, QuarterScheduledAliases, QuarterPurchaseAliases, QuarterSellAliases, QuarterMCVAliases, 15}
)

// ComputeHourly aggregates hourly block rows.
func ComputeHourly(rows []Row) Result {
	return compute(rows, hourlyFields)
}

// ComputeQuarter aggregates 15-minute slot rows.
func ComputeQuarter(rows []Row) Result {
	return compute(rows, quarterFields)
}

// compute derives the window aggregates. Prices arrive in ₹/MWh and are
// reported in ₹/kWh. TWAP weights each row by its interval length so mixed
// hourly/sub-hourly partitions average correctly; VWAP additionally weights
// by scheduled volume and falls back to TWAP when the window cleared no
// volume. Bid and MCV columns are per-interval totals and are summed, never
// averaged.
func compute(rows []Row, f fieldSet) Result {
	res := Result{Rows: rows}
	if len(rows) == 0 {
		return res
	}

	var (
		twapNum, twapDen float64
		vwapNum, vwapDen float64
	)
	first := true
	for _, r := range rows {
		price := FirstPresent(r, f.price, 0)
		sched := FirstPresent(r, f.scheduled, 0)
		min := float64(DurationMin(r, f.durationMin))

		twapNum += price * min
		twapDen += min

		w := sched * min
		vwapNum += price * w
		vwapDen += w

		res.TotalVolumeGWh += sched * min / 60 / 1000
		res.ScheduledTotalMW += sched
		res.PurchaseBidTotalMW += FirstPresent(r, f.purchase, 0)
		res.SellBidTotalMW += FirstPresent(r, f.sell, 0)
		res.MCVTotalMW += FirstPresent(r, f.mcv, 0)
		res.DurationHours += min / 60

		if price > 0 {
			kwh := price / 1000
			if first || kwh < res.MinPrice {
				res.MinPrice = kwh
			}
			if first || kwh > res.MaxPrice {
				res.MaxPrice = kwh
			}
			first = false
		}
	}

	if twapDen > 0 {
		res.Twap = twapNum / twapDen / 1000
	}
	if vwapDen > 0 {
		res.Vwap = vwapNum / vwapDen / 1000
	} else {
		res.Vwap = res.Twap
	}
	return res
}
