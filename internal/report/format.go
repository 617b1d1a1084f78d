package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatDate renders a delivery date as "01 Jan 2025".
func FormatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// FormatDateRange collapses a single-day range to one date and a same-month
// range to "Jan 2025".
func FormatDateRange(start, end time.Time) string {
	if start.Equal(end) {
		return FormatDate(start)
	}
	if start.Year() == end.Year() && start.Month() == end.Month() && start.Day() == 1 {
		if end.AddDate(0, 0, 1).Month() != start.Month() {
			return start.Format("Jan 2006")
		}
	}
	return FormatDate(start) + " to " + FormatDate(end)
}

// FormatMoney renders a ₹/kWh price with four decimals.
func FormatMoney(value float64) string {
	return fmt.Sprintf("₹%.4f", value)
}

// formatTimeHHMM renders minutes since midnight, with the day boundary as
// "24:00" rather than "00:00".
func formatTimeHHMM(totalMinutes int) string {
	if totalMinutes == 24*60 {
		return "24:00"
	}
	return fmt.Sprintf("%02d:%02d", (totalMinutes/60)%24, totalMinutes%60)
}

// Range is one contiguous run of hour blocks or slots, both ends inclusive.
type Range struct {
	Start, End int
}

// CompressRanges collapses an index list into contiguous runs:
// [1 2 3 5 6 8] becomes [(1,3) (5,6) (8,8)].
func CompressRanges(indices []int) []Range {
	if len(indices) == 0 {
		return nil
	}
	uniq := map[int]bool{}
	for _, v := range indices {
		uniq[v] = true
	}
	sorted := make([]int, 0, len(uniq))
	for v := range uniq {
		sorted = append(sorted, v)
	}
	sort.Ints(sorted)

	var out []Range
	start, prev := sorted[0], sorted[0]
	for _, cur := range sorted[1:] {
		if cur == prev+1 {
			prev = cur
			continue
		}
		out = append(out, Range{start, prev})
		start, prev = cur, cur
	}
	return append(out, Range{start, prev})
}

// LabelHourRanges renders an hour-block selection as clock windows and index
// runs: [1 2 3 6 7] yields ("00:00–03:00 + 05:00–07:00", "1–3, 6–7", 5).
func LabelHourRanges(hours []int) (timeLabel, idxLabel string, count int) {
	return labelRanges(CompressRanges(hours), 60)
}

// LabelSlotRanges is LabelHourRanges for 15-minute slots.
func LabelSlotRanges(slots []int) (timeLabel, idxLabel string, count int) {
	return labelRanges(CompressRanges(slots), 15)
}

func labelRanges(ranges []Range, minutesPer int) (string, string, int) {
	var timeParts, idxParts []string
	count := 0
	for _, r := range ranges {
		timeParts = append(timeParts,
			formatTimeHHMM((r.Start-1)*minutesPer)+"–"+formatTimeHHMM(r.End*minutesPer))
		if r.Start == r.End {
			idxParts = append(idxParts, fmt.Sprintf("%d", r.Start))
		} else {
			idxParts = append(idxParts, fmt.Sprintf("%d–%d", r.Start, r.End))
		}
		count += r.End - r.Start + 1
	}
	return strings.Join(timeParts, " + "), strings.Join(idxParts, ", "), count
}

// HourBlocksToSlotRanges maps hour-block runs to the slot runs they cover:
// block b spans slots (b-1)*4+1 through b*4.
func HourBlocksToSlotRanges(hourRanges []Range) []Range {
	out := make([]Range, 0, len(hourRanges))
	for _, r := range hourRanges {
		out = append(out, Range{(r.Start-1)*4 + 1, r.End * 4})
	}
	return out
}

// HourWindow renders one hour block as its clock window, e.g. block 1 is
// "00:00–01:00".
func HourWindow(block int) string {
	return fmt.Sprintf("%02d:00–%02d:00", block-1, block)
}

// SlotWindow renders one 15-minute slot as its clock window.
func SlotWindow(slot int) string {
	start := (slot - 1) * 15
	end := slot * 15
	return formatTimeHHMM(start) + "–" + formatTimeHHMM(end)
}
