package queryparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// dateMin rejects single numeric dates that are probably day/month confusion
// (e.g. a US-style MM/DD read as DD/MM landing decades in the past).
var dateMin = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

// Period is one inclusive calendar date range extracted from a query.
type Period struct {
	Start time.Time
	End   time.Time
}

var (
	monthYearListRe = regexp.MustCompile(`(?i)\b(` + monthPattern + `)\s+(\d{4})\b(?:(?:\s*,\s*|\s+)(?:and\s+)?(\d{4})\b)+`)
	monthYearPairRe = regexp.MustCompile(`(?i)\b(` + monthPattern + `)\s+(\d{4})\b`)
	fourDigitRe     = regexp.MustCompile(`\b\d{4}\b`)

	dayMonthToDayMonthYearRe = regexp.MustCompile(`(?:from\s+)?(\d{1,2})\s+(` + monthPattern + `)\s+(?:to|-)\s+(\d{1,2})\s+(` + monthPattern + `)\s+(\d{2,4})`)
	dayMonthYearRangeRe      = regexp.MustCompile(`\b(?:from\s*)?(\d{1,2})\s+(` + monthPattern + `)\s+(\d{2,4})\s*(?:to|-)\s*(\d{1,2})\s+(` + monthPattern + `)\s+(\d{2,4})\b`)
	dayRangeSameMonthRe      = regexp.MustCompile(`\b(\d{1,2})\s*(?:to|-)\s*(\d{1,2})\s+(` + monthPattern + `)(?:\s+(\d{2,4}))?\b`)
	numericRangeRe           = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\s*(?:to|-)\s*(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	singleNumericRe          = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	singleDayMonthRe         = regexp.MustCompile(`\b(\d{1,2})\s+(` + monthPattern + `)(?:\s+(\d{2,4}))?\b`)
	monthToMonthRe           = regexp.MustCompile(`(?:from\s+)?(` + monthPattern + `)\s+(\d{2,4})\s*(?:to|-)\s*(` + monthPattern + `)\s+(\d{2,4})`)
	monthYearOnlyRe          = regexp.MustCompile(`(` + monthPattern + `)\s+(\d{2,4})\b`)
	yearOnlyRe               = regexp.MustCompile(`\b(?:in\s+|full\s+year\s+|year\s+)(20\d{2})\b`)
)

// civilDate builds a UTC calendar date and rejects impossible component
// combinations (time.Date silently normalizes 31 Feb to 2-3 Mar).
func civilDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func monthSpan(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

func normalizeYear(raw string) (int, bool) {
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if y < 100 {
		y += 2000
	}
	return y, true
}

// ResolvePeriods extracts multi-period comparison lists such as
// "November 2022, 2023, 2024" or "Nov 2022, Nov 2023 and Nov 2024".
// It returns nil unless at least two distinct periods are found, so a
// single-date query falls through to ResolveSingleRange.
func ResolvePeriods(text string) []Period {
	lower := strings.ToLower(text)

	// Month followed by a comma-separated year list.
	if m := monthYearListRe.FindString(lower); m != "" {
		name := monthYearPairRe.FindStringSubmatch(m)
		if name != nil {
			if month, ok := months[strings.ToLower(name[1])]; ok {
				var out []Period
				for _, ys := range fourDigitRe.FindAllString(m, -1) {
					year, _ := strconv.Atoi(ys)
					if year < 2000 || year > 2100 {
						continue
					}
					start, end := monthSpan(year, month)
					out = append(out, Period{Start: start, End: end})
				}
				if len(out) > 1 {
					return out
				}
			}
		}
	}

	// Two or more independent "Month YYYY" mentions.
	matches := monthYearPairRe.FindAllStringSubmatch(lower, -1)
	if len(matches) > 1 {
		seen := map[string]bool{}
		var out []Period
		for _, m := range matches {
			month, ok := months[strings.ToLower(m[1])]
			if !ok {
				continue
			}
			year, err := strconv.Atoi(m[2])
			if err != nil || year < 2000 || year > 2100 {
				continue
			}
			key := m[2] + "-" + m[1]
			if seen[key] {
				continue
			}
			seen[key] = true
			start, end := monthSpan(year, month)
			out = append(out, Period{Start: start, End: end})
		}
		if len(out) > 1 {
			return out
		}
	}

	return nil
}

type rangeResolver func(text string, today time.Time) (time.Time, time.Time, bool)

// singleRangeResolvers is ordered most-specific first. Patterns are prefixes
// of one another (a day-month-year string contains a valid month-year
// substring), so a looser resolver must never run before a stricter one.
var singleRangeResolvers = []rangeResolver{
	resolveDayMonthToDayMonthYear, // "24 September to 24 October 2025"
	resolveDayMonthYearRange,      // "24 Sep 2024 to 25 Oct 2024"
	resolveDayRangeSameMonth,      // "1-10 Nov 2025"
	resolveNumericRange,           // "31/10/2025 to 15/11/2025"
	resolveSingleNumericDate,      // "31/10/2025"
	resolveSingleDayMonth,         // "14 Nov 2025"
	resolveMonthToMonth,           // "Nov 2024 to Feb 2025"
	resolveMonthYear,              // "Nov 2025"
	resolveYearOnly,               // "in 2024"
}

// ResolveSingleRange extracts one inclusive date range from the text, trying
// relative keywords first and then the explicit-pattern resolvers in strict
// precedence order. A resolver that matches malformed components (day=31 in
// February) simply fails and the next one is tried. Returns ok=false when no
// date signal is found at all.
func ResolveSingleRange(text string, today time.Time) (time.Time, time.Time, bool) {
	lower := " " + strings.ToLower(strings.TrimSpace(text)) + " "

	if strings.Contains(lower, " yesterday ") {
		d := today.AddDate(0, 0, -1)
		return d, d, true
	}
	if strings.Contains(lower, " today ") {
		return today, today, true
	}
	if strings.Contains(lower, " this month ") {
		start, end := monthSpan(today.Year(), today.Month())
		return start, end, true
	}
	if strings.Contains(lower, " last month ") {
		prev := today.AddDate(0, 0, -today.Day())
		start, end := monthSpan(prev.Year(), prev.Month())
		return start, end, true
	}

	for _, resolve := range singleRangeResolvers {
		if start, end, ok := resolve(lower, today); ok {
			if start.After(end) {
				start, end = end, start
			}
			return start, end, true
		}
	}
	return time.Time{}, time.Time{}, false
}

func resolveDayMonthToDayMonthYear(text string, _ time.Time) (time.Time, time.Time, bool) {
	m := dayMonthToDayMonthYearRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	d1, _ := strconv.Atoi(m[1])
	d2, _ := strconv.Atoi(m[3])
	year, ok := normalizeYear(m[5])
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start, ok1 := civilDate(year, months[m[2]], d1)
	end, ok2 := civilDate(year, months[m[4]], d2)
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func resolveDayMonthYearRange(text string, _ time.Time) (time.Time, time.Time, bool) {
	m := dayMonthYearRangeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	d1, _ := strconv.Atoi(m[1])
	y1, ok1 := normalizeYear(m[3])
	d2, _ := strconv.Atoi(m[4])
	y2, ok2 := normalizeYear(m[6])
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	start, oks := civilDate(y1, months[m[2]], d1)
	end, oke := civilDate(y2, months[m[5]], d2)
	if !oks || !oke {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func resolveDayRangeSameMonth(text string, today time.Time) (time.Time, time.Time, bool) {
	m := dayRangeSameMonthRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	d1, _ := strconv.Atoi(m[1])
	d2, _ := strconv.Atoi(m[2])
	year := today.Year()
	if m[4] != "" {
		y, ok := normalizeYear(m[4])
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		year = y
	}
	start, ok1 := civilDate(year, months[m[3]], d1)
	end, ok2 := civilDate(year, months[m[3]], d2)
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func resolveNumericRange(text string, _ time.Time) (time.Time, time.Time, bool) {
	m := numericRangeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	d1, _ := strconv.Atoi(m[1])
	mo1, _ := strconv.Atoi(m[2])
	y1, ok1 := normalizeYear(m[3])
	d2, _ := strconv.Atoi(m[4])
	mo2, _ := strconv.Atoi(m[5])
	y2, ok2 := normalizeYear(m[6])
	if !ok1 || !ok2 || mo1 < 1 || mo1 > 12 || mo2 < 1 || mo2 > 12 {
		return time.Time{}, time.Time{}, false
	}
	start, oks := civilDate(y1, time.Month(mo1), d1)
	end, oke := civilDate(y2, time.Month(mo2), d2)
	if !oks || !oke {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func resolveSingleNumericDate(text string, _ time.Time) (time.Time, time.Time, bool) {
	m := singleNumericRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	y, ok := normalizeYear(m[3])
	if !ok || mo < 1 || mo > 12 {
		return time.Time{}, time.Time{}, false
	}
	t, okd := civilDate(y, time.Month(mo), d)
	if !okd || t.Before(dateMin) {
		return time.Time{}, time.Time{}, false
	}
	return t, t, true
}

func resolveSingleDayMonth(text string, today time.Time) (time.Time, time.Time, bool) {
	m := singleDayMonthRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	d, _ := strconv.Atoi(m[1])
	year := today.Year()
	if m[3] != "" {
		y, ok := normalizeYear(m[3])
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		year = y
	}
	t, ok := civilDate(year, months[m[2]], d)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return t, t, true
}

func resolveMonthToMonth(text string, _ time.Time) (time.Time, time.Time, bool) {
	m := monthToMonthRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	y1, ok1 := normalizeYear(m[2])
	y2, ok2 := normalizeYear(m[4])
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	start, _ := monthSpan(y1, months[m[1]])
	_, end := monthSpan(y2, months[m[3]])
	return start, end, true
}

// resolveMonthYear matches a bare "Nov 2025" but must not fire when a day
// number precedes the month, which is resolveSingleDayMonth's input. Go's
// regexp has no lookbehind, so the guard inspects the two characters before
// each candidate match instead.
func resolveMonthYear(text string, _ time.Time) (time.Time, time.Time, bool) {
	for _, loc := range monthYearOnlyRe.FindAllStringSubmatchIndex(text, -1) {
		start := loc[0]
		if start >= 2 {
			prev := text[start-2 : start]
			if prev[1] == ' ' && prev[0] >= '0' && prev[0] <= '9' {
				continue
			}
		}
		name := text[loc[2]:loc[3]]
		year, ok := normalizeYear(text[loc[4]:loc[5]])
		if !ok {
			continue
		}
		s, e := monthSpan(year, months[name])
		return s, e, true
	}
	return time.Time{}, time.Time{}, false
}

// resolveYearOnly requires an explicit context word; a bare 4-digit number is
// never a date (it is far more likely a slot count or a price).
func resolveYearOnly(text string, _ time.Time) (time.Time, time.Time, bool) {
	m := yearOnlyRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC), true
}
