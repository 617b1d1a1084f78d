package queryparse

import (
	"regexp"
	"sort"
)

var (
	rtmRe  = regexp.MustCompile(`(?i)\b(rtm|real[-\s]*time)\b`)
	gdamRe = regexp.MustCompile(`(?i)\b(gdam|green\s*day[-\s]*ahead)\b`)
	damRe  = regexp.MustCompile(`(?i)\b(dam|day[-\s]*ahead)\b`)

	vwapStatRe  = regexp.MustCompile(`(?i)\b(vwap|weighted)\b`)
	dailyStatRe = regexp.MustCompile(`(?i)\bdaily\s+(avg|average)\b`)
	listStatRe  = regexp.MustCompile(`(?i)\b(list|table|rows|detailed)\b`)
	twapStatRe  = regexp.MustCompile(`(?i)\b(avg|average|mean|twap)\b`)
)

// ExtractMarkets returns every market mentioned in the text, ordered by first
// occurrence. "day-ahead" inside a "green day-ahead" mention does not count as
// a DAM reference. Defaults to DAM when no market keyword appears.
func ExtractMarkets(text string) []Market {
	type hit struct {
		market Market
		pos    int
	}
	var hits []hit

	if loc := rtmRe.FindStringIndex(text); loc != nil {
		hits = append(hits, hit{MarketRTM, loc[0]})
	}
	gdamSpans := gdamRe.FindAllStringIndex(text, -1)
	if len(gdamSpans) > 0 {
		hits = append(hits, hit{MarketGDAM, gdamSpans[0][0]})
	}
	for _, loc := range damRe.FindAllStringIndex(text, -1) {
		if withinAny(loc, gdamSpans) {
			continue
		}
		hits = append(hits, hit{MarketDAM, loc[0]})
		break
	}

	if len(hits) == 0 {
		return []Market{MarketDAM}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]Market, len(hits))
	for i, h := range hits {
		out[i] = h.market
	}
	return out
}

func withinAny(loc []int, spans [][]int) bool {
	for _, sp := range spans {
		if loc[0] >= sp[0] && loc[1] <= sp[1] {
			return true
		}
	}
	return false
}

// DetectStatistic picks the requested aggregation statistic, first match wins
// in priority order. Falls back to def (or twap when def is not a valid
// statistic).
func DetectStatistic(text string, def Statistic) Statistic {
	switch {
	case vwapStatRe.MatchString(text):
		return StatVWAP
	case dailyStatRe.MatchString(text):
		return StatDailyAvg
	case listStatRe.MatchString(text):
		return StatList
	case twapStatRe.MatchString(text):
		return StatTWAP
	}
	if ValidStatistic(def) {
		return def
	}
	return StatTWAP
}
