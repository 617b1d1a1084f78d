package report

import (
	"fmt"
	"strings"

	"github.com/joelkehle/emspark/internal/metrics"
)

// tableLimit caps list output; beyond it only the head and tail are shown.
const tableLimit = 120

// HourlyTable renders hourly rows as a markdown price table. Long result
// sets are truncated to the first and last 60 rows.
func HourlyTable(rows []metrics.Row) string {
	if len(rows) == 0 {
		return "_No data available._"
	}
	show := rows
	if len(rows) > tableLimit {
		show = append(append([]metrics.Row{}, rows[:60]...), rows[len(rows)-60:]...)
	}

	lines := []string{
		"| Date | Hour | Block | Price (₹/kWh) | Sched MW |",
		"|------|------|------:|--------------:|---------:|",
	}
	for _, r := range show {
		block := metrics.BlockIndex(r)
		price := metrics.FirstPresent(r, metrics.HourlyPriceAliases, 0) / 1000
		sched := metrics.FirstPresent(r, metrics.HourlyScheduledAliases, 0)
		lines = append(lines, fmt.Sprintf("| %s | %s | %2d | %.4f | %.2f |",
			metrics.RowDate(r), HourWindow(block), block, price, sched))
	}
	if len(rows) > tableLimit {
		lines = append(lines[:2], append([]string{fmt.Sprintf("_Showing first 60 and last 60 of %d rows_", len(rows))}, lines[2:]...)...)
	}
	return strings.Join(lines, "\n")
}

// DailyAverageTable renders per-day TWAP values.
func DailyAverageTable(days []metrics.DayAverage) string {
	if len(days) == 0 {
		return "_No data available._"
	}
	lines := []string{
		"| Date | Daily Avg (₹/kWh) |",
		"|------|------------------:|",
	}
	for _, d := range days {
		lines = append(lines, fmt.Sprintf("| %s | %.4f |", d.Date, d.Twap))
	}
	return strings.Join(lines, "\n")
}

// QuarterTable renders 15-minute slot rows as a markdown price table.
func QuarterTable(rows []metrics.Row) string {
	if len(rows) == 0 {
		return "_No data available._"
	}
	show := rows
	if len(rows) > tableLimit {
		show = append(append([]metrics.Row{}, rows[:60]...), rows[len(rows)-60:]...)
	}

	lines := []string{
		"| Date | Slot | Slot # | Price (₹/kWh) | Sched MW |",
		"|------|------|-------:|--------------:|---------:|",
	}
	for _, r := range show {
		slot := metrics.SlotIndex(r)
		price := metrics.FirstPresent(r, metrics.QuarterPriceAliases, 0) / 1000
		sched := metrics.FirstPresent(r, metrics.QuarterScheduledAliases, 0)
		lines = append(lines, fmt.Sprintf("| %s | %s | %2d | %.4f | %.2f |",
			metrics.RowDate(r), SlotWindow(slot), slot, price, sched))
	}
	if len(rows) > tableLimit {
		lines = append(lines[:2], append([]string{fmt.Sprintf("_Showing first 60 and last 60 of %d rows_", len(rows))}, lines[2:]...)...)
	}
	return strings.Join(lines, "\n")
}
