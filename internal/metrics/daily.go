package metrics

import "sort"

// DayAverage is one delivery day's time-weighted average price in ₹/kWh.
type DayAverage struct {
	Date string
	Twap float64
}

// DailyAveragesHourly groups hourly rows by delivery date and computes the
// per-day TWAP.
func DailyAveragesHourly(rows []Row) []DayAverage {
	return dailyAverages(rows, hourlyFields)
}

// DailyAveragesQuarter groups 15-minute slot rows by delivery date and
// computes the per-day TWAP.
func DailyAveragesQuarter(rows []Row) []DayAverage {
	return dailyAverages(rows, quarterFields)
}

func dailyAverages(rows []Row, f fieldSet) []DayAverage {
	type acc struct{ num, den float64 }
	byDay := map[string]*acc{}
	for _, r := range rows {
		day := RowDate(r)
		if day == "" {
			continue
		}
		a := byDay[day]
		if a == nil {
			a = &acc{}
			byDay[day] = a
		}
		min := float64(DurationMin(r, f.durationMin))
		a.num += FirstPresent(r, f.price, 0) * min
		a.den += min
	}

	out := make([]DayAverage, 0, len(byDay))
	for day, a := range byDay {
		avg := DayAverage{Date: day}
		if a.den > 0 {
			avg.Twap = a.num / a.den / 1000
		}
		out = append(out, avg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// RowDate returns the row's delivery date as stored, empty when absent.
func RowDate(r Row) string {
	switch v := r["delivery_date"].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}
