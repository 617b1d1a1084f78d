package queryparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TimeGroup is one hour-block or 15-minute-slot selection extracted from a
// query. Exactly one of Hours/Slots is populated, matching Granularity.
type TimeGroup struct {
	Granularity Granularity
	Hours       []int
	Slots       []int
}

var (
	quarterHintRe = regexp.MustCompile(`\b(blocks?|slots?|quarters?)\b`)
	hourHintRe    = regexp.MustCompile(`\b(hours?|hrs?)\b`)

	clockRangeRe    = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:to|-)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	hourRangeRe     = regexp.MustCompile(`\b(\d{1,2})\s*(?:to|-)\s*(\d{1,2})\s*(?:hours?|hrs?)\b`)
	explicitSlotRe  = regexp.MustCompile(`\b(\d{1,2})\s*(?:to|-)\s*(\d{1,2})\s*(?:blocks?|slots?|quarters?)\b`)
	plainRangeRe    = regexp.MustCompile(`\b(\d{1,2})\s*(?:to|-)\s*(\d{1,2})\b`)
	numericDateRe   = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	dayMonthDateRe  = regexp.MustCompile(`\b\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s+\d{4}\b`)
)

type span struct{ lo, hi int }

// ResolveTimeGroups extracts hour-block and slot selections from the text.
// The extraction strategies target disjoint token shapes and all run; their
// contributions are unioned per granularity. Returns an empty slice when the
// text carries no time signal, letting the caller apply the full-day default.
func ResolveTimeGroups(text string) []TimeGroup {
	lower := strings.ToLower(text)

	preferQuarter := quarterHintRe.MatchString(lower)
	preferHour := hourHintRe.MatchString(lower)

	var hourSpans, slotSpans []span

	ch, cs, rest := parseClockRanges(lower)
	hourSpans = append(hourSpans, ch...)
	slotSpans = append(slotSpans, cs...)

	hourSpans = append(hourSpans, parseHourRanges(rest)...)
	slotSpans = append(slotSpans, parseExplicitSlots(rest)...)

	for _, sp := range parsePlainRanges(rest) {
		if sp.hi <= 24 && !preferQuarter {
			hourSpans = append(hourSpans, sp)
		} else {
			slotSpans = append(slotSpans, sp)
		}
	}

	var out []TimeGroup
	if len(hourSpans) > 0 {
		out = append(out, TimeGroup{Granularity: GranularityHour, Hours: expandSpans(hourSpans)})
	}
	if len(slotSpans) > 0 {
		out = append(out, TimeGroup{Granularity: GranularityQuarter, Slots: expandSpans(slotSpans)})
	}

	// An explicit unit word in the text is a stronger signal than the
	// magnitude heuristic; when both granularities were produced, the
	// hinted one wins.
	if len(out) > 1 {
		if preferQuarter && !preferHour {
			out = filterGranularity(out, GranularityQuarter)
		} else if preferHour && !preferQuarter {
			out = filterGranularity(out, GranularityHour)
		}
	}
	return out
}

// parseClockRanges handles "HH:MM to HH:MM" and "3pm to 5pm" shapes. A match
// with neither minutes nor an am/pm marker on either side is a bare numeric
// range and is left for parsePlainRanges to classify. Consumed matches are
// blanked out of the returned text so later strategies cannot re-read their
// digits.
func parseClockRanges(text string) (hourSpans, slotSpans []span, rest string) {
	out := []byte(text)
	for _, idx := range clockRangeRe.FindAllStringSubmatchIndex(text, -1) {
		m := submatches(text, idx, 6)
		if m[2] == "" && m[3] == "" && m[5] == "" && m[6] == "" {
			continue
		}
		for i := idx[0]; i < idx[1]; i++ {
			out[i] = ' '
		}
		h1, _ := strconv.Atoi(m[1])
		m1 := 0
		if m[2] != "" {
			m1, _ = strconv.Atoi(m[2])
		}
		h2, _ := strconv.Atoi(m[4])
		m2 := 0
		if m[5] != "" {
			m2, _ = strconv.Atoi(m[5])
		}
		H1 := to24Hour(h1, m[3])
		H2 := to24Hour(h2, m[6])

		// Hour blocks: an opening bound of 08:05 begins inside block 9;
		// a closing bound on the hour ends at that block.
		startBlock := H1 + 1
		if m1 > 0 {
			startBlock++
		}
		if startBlock > 24 {
			startBlock = 24
		}
		endBlock := H2
		if m2 > 0 {
			endBlock = H2 + 1
			if endBlock > 24 {
				endBlock = 24
			}
		}
		if endBlock < 1 {
			endBlock = 1
		}
		if endBlock >= startBlock {
			hourSpans = append(hourSpans, span{startBlock, endBlock})
		}

		// 15-minute slots: ceiling on the start minute, floor on the end.
		// A sub-quarter window whose bounds invert contributes nothing.
		sslot := clamp((H1*60+m1+14)/15+1, 1, 96)
		eslot := clamp((H2*60+m2)/15, 1, 96)
		if eslot >= sslot {
			slotSpans = append(slotSpans, span{sslot, eslot})
		}
	}
	return hourSpans, slotSpans, string(out)
}

// submatches extracts capture groups 0..n from a FindAllStringSubmatchIndex
// entry, empty string for unmatched groups.
func submatches(text string, idx []int, n int) []string {
	m := make([]string, n+1)
	for g := 0; g <= n; g++ {
		if idx[2*g] >= 0 {
			m[g] = text[idx[2*g]:idx[2*g+1]]
		}
	}
	return m
}

// parseHourRanges handles "H to H hrs". Hour label H denotes the block ending
// at H:00, so "6 to 8 hours" selects blocks 7-8.
func parseHourRanges(text string) []span {
	clean := numericDateRe.ReplaceAllString(text, " ")
	var out []span
	for _, m := range hourRangeRe.FindAllStringSubmatch(clean, -1) {
		h1, _ := strconv.Atoi(m[1])
		h2, _ := strconv.Atoi(m[2])
		h1 = clamp(h1, 0, 23)
		h2 = clamp(h2, 0, 24)

		start := h1 + 1
		if start > 24 {
			start = 24
		}
		end := 24
		if h2 != 24 {
			end = clamp(h2, 1, 24)
		}
		if end >= start {
			out = append(out, span{start, end})
		}
	}
	return out
}

func parseExplicitSlots(text string) []span {
	var out []span
	for _, m := range explicitSlotRe.FindAllStringSubmatch(text, -1) {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		out = append(out, span{clamp(lo, 1, 96), clamp(hi, 1, 96)})
	}
	return out
}

func parsePlainRanges(text string) []span {
	clean := dayMonthDateRe.ReplaceAllString(text, " ")
	clean = numericDateRe.ReplaceAllString(clean, " ")
	var out []span
	for _, m := range plainRangeRe.FindAllStringSubmatch(clean, -1) {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo >= 1 && hi <= 96 {
			out = append(out, span{lo, hi})
		}
	}
	return out
}

func to24Hour(hour int, ampm string) int {
	if ampm != "" {
		hour = hour % 12
		if ampm == "pm" {
			hour += 12
		}
	}
	return clamp(hour, 0, 23)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func expandSpans(spans []span) []int {
	seen := map[int]bool{}
	for _, sp := range spans {
		for v := sp.lo; v <= sp.hi; v++ {
			seen[v] = true
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func filterGranularity(groups []TimeGroup, g Granularity) []TimeGroup {
	var out []TimeGroup
	for _, tg := range groups {
		if tg.Granularity == g {
			out = append(out, tg)
		}
	}
	return out
}
