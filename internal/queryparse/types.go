package queryparse

import (
	"fmt"
	"strings"
	"time"
)

type Market string

const (
	MarketDAM  Market = "DAM"
	MarketGDAM Market = "GDAM"
	MarketRTM  Market = "RTM"
)

type Granularity string

const (
	GranularityHour    Granularity = "hour"
	GranularityQuarter Granularity = "quarter"
)

type Statistic string

const (
	StatTWAP     Statistic = "twap"
	StatVWAP     Statistic = "vwap"
	StatList     Statistic = "list"
	StatDailyAvg Statistic = "daily_avg"
)

// ValidStatistic reports whether s is one of the recognized aggregation
// statistics.
func ValidStatistic(s Statistic) bool {
	switch s {
	case StatTWAP, StatVWAP, StatList, StatDailyAvg:
		return true
	}
	return false
}

// QuerySpec is the structured result of parsing one market/period/time-window
// combination out of a free-text query. It is immutable after construction and
// consumed once by the storage layer.
type QuerySpec struct {
	Market      Market
	StartDate   time.Time
	EndDate     time.Time
	Granularity Granularity
	Hours       []int
	Slots       []int
	Stat        Statistic
	Area        string
	// AutoAdded marks the guaranteed-fallback spec produced when no
	// date or period signal could be extracted from the query.
	AutoAdded bool
}

// Key is the identity used for deduplication. Area and AutoAdded are
// presentation metadata and deliberately excluded.
func (s QuerySpec) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		s.Market,
		s.StartDate.Format("2006-01-02"),
		s.EndDate.Format("2006-01-02"),
		s.Granularity,
		joinInts(s.Hours),
		joinInts(s.Slots),
		s.Stat,
	)
}

func (s QuerySpec) String() string {
	window := fmt.Sprintf("hours=%v", s.Hours)
	if s.Granularity == GranularityQuarter {
		window = fmt.Sprintf("slots=%v", s.Slots)
	}
	return fmt.Sprintf("QuerySpec(%s, %s to %s, %s, %s, stat=%s)",
		s.Market,
		s.StartDate.Format("2006-01-02"),
		s.EndDate.Format("2006-01-02"),
		s.Granularity, window, s.Stat)
}

func joinInts(vals []int) string {
	if len(vals) == 0 {
		return ""
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

// FullDayHours returns the hour blocks covering a whole delivery day.
func FullDayHours() []int {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i + 1
	}
	return hours
}

// DefaultSpec is the guaranteed fallback when nothing could be parsed:
// DAM, today, full day, time-weighted average.
func DefaultSpec(today time.Time) QuerySpec {
	return QuerySpec{
		Market:      MarketDAM,
		StartDate:   today,
		EndDate:     today,
		Granularity: GranularityHour,
		Hours:       FullDayHours(),
		Stat:        StatTWAP,
		Area:        "ALL",
		AutoAdded:   true,
	}
}
