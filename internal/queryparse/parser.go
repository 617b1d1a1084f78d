package queryparse

import (
	"context"
	"log"
	"time"
)

// Parser turns a free-text query into a deduplicated, guaranteed non-empty
// list of query specifications. The zero value is not usable; construct with
// NewParser. Clock and default statistic are explicit values rather than
// process-wide state so parses stay pure and testable.
type Parser struct {
	DefaultStat Statistic
	// Now supplies the date reference for relative terms ("today",
	// "last month"). It is read once per Parse call so a parse that
	// straddles midnight stays internally consistent.
	Now func() time.Time
	// LLM is the optional last-resort parse tier. The deterministic
	// pipeline never depends on its availability.
	LLM SpecGenerator
}

func NewParser(defaultStat Statistic) *Parser {
	return &Parser{DefaultStat: defaultStat, Now: time.Now}
}

// Parse resolves the query into specifications. It never returns an empty
// slice: when no component resolver finds a signal (and the LLM tier, if
// configured, also fails) the result is the single auto-added default spec.
func (p *Parser) Parse(ctx context.Context, query string) []QuerySpec {
	normalized := Normalize(query)
	today := dateOnly(p.now())

	markets := ExtractMarkets(normalized)
	stat := DetectStatistic(normalized, p.DefaultStat)

	periods := ResolvePeriods(normalized)
	if len(periods) == 0 {
		if start, end, ok := ResolveSingleRange(normalized, today); ok {
			periods = []Period{{Start: start, End: end}}
		}
	}

	groups := ResolveTimeGroups(normalized)

	specs := BuildSpecs(markets, periods, groups, stat)

	if len(specs) == 0 && p.LLM != nil {
		got, err := p.LLM.GenerateSpecs(ctx, query)
		if err != nil {
			log.Printf("queryparse: llm tier failed, using default spec: %v", err)
		} else if len(got) > 0 {
			specs = ApplyTimeGroups(got, groups)
		}
	}

	if len(specs) == 0 {
		specs = []QuerySpec{DefaultSpec(today)}
	}
	return Dedupe(specs)
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BuildSpecs is the Cartesian combination of markets, periods and time groups
// into deduplicated specifications. An empty time-group list means the whole
// day at hour granularity. An empty period list yields no specs; the caller
// owns the guaranteed default.
func BuildSpecs(markets []Market, periods []Period, groups []TimeGroup, stat Statistic) []QuerySpec {
	if len(periods) == 0 {
		return nil
	}
	if len(markets) == 0 {
		markets = []Market{MarketDAM}
	}
	if len(groups) == 0 {
		groups = []TimeGroup{{Granularity: GranularityHour, Hours: FullDayHours()}}
	}

	var specs []QuerySpec
	for _, market := range markets {
		for _, period := range periods {
			for _, group := range groups {
				start, end := period.Start, period.End
				if start.After(end) {
					start, end = end, start
				}
				specs = append(specs, QuerySpec{
					Market:      market,
					StartDate:   start,
					EndDate:     end,
					Granularity: group.Granularity,
					Hours:       group.Hours,
					Slots:       group.Slots,
					Stat:        stat,
					Area:        "ALL",
				})
			}
		}
	}
	return Dedupe(specs)
}

// ApplyTimeGroups overlays deterministically extracted time groups on specs
// coming from the LLM tier. A spec that already carries a custom (non
// full-day) selection is left alone; otherwise one copy per group is emitted.
func ApplyTimeGroups(specs []QuerySpec, groups []TimeGroup) []QuerySpec {
	if len(groups) == 0 {
		return Dedupe(specs)
	}
	var out []QuerySpec
	for _, spec := range specs {
		if hasCustomWindow(spec) {
			out = append(out, spec)
			continue
		}
		for _, group := range groups {
			adjusted := spec
			adjusted.Granularity = group.Granularity
			adjusted.Hours = group.Hours
			adjusted.Slots = group.Slots
			out = append(out, adjusted)
		}
	}
	if len(out) == 0 {
		return Dedupe(specs)
	}
	return Dedupe(out)
}

func hasCustomWindow(spec QuerySpec) bool {
	if len(spec.Slots) > 0 && len(spec.Slots) != 96 {
		return true
	}
	if len(spec.Hours) > 0 && len(spec.Hours) != 24 {
		return true
	}
	return false
}

// Dedupe removes duplicate specifications by identity key, first occurrence
// wins, ordering otherwise preserved.
func Dedupe(specs []QuerySpec) []QuerySpec {
	seen := map[string]bool{}
	out := make([]QuerySpec, 0, len(specs))
	for _, spec := range specs {
		key := spec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, spec)
	}
	return out
}
