package queryparse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const parseSystemPrompt = "You are a query parser for an Indian energy market analysis system. Respond with strict JSON only."

// SpecGenerator is the optional LLM-backed parse tier, consulted only after
// every deterministic strategy has failed.
type SpecGenerator interface {
	GenerateSpecs(ctx context.Context, query string) ([]QuerySpec, error)
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicSpecParser struct {
	messages AnthropicMessager
	now      func() time.Time
}

func NewAnthropicSpecParserFromEnv() (*AnthropicSpecParser, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicSpecParser{messages: &c.Messages, now: time.Now}, nil
}

type wireSpec struct {
	Market      string `json:"market"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Granularity string `json:"granularity"`
	Hours       []int  `json:"hours"`
	Slots       []int  `json:"slots"`
	Stat        string `json:"stat"`
}

type wireEnvelope struct {
	Queries []wireSpec `json:"queries"`
}

func (a *AnthropicSpecParser) GenerateSpecs(ctx context.Context, query string) ([]QuerySpec, error) {
	today := a.now().Format("2006-01-02")
	prompt := fmt.Sprintf(`Parse the user's electricity-market query and extract:
- market: "DAM", "GDAM", or "RTM" (default "DAM")
- start_date, end_date: YYYY-MM-DD, inclusive
- granularity: "hour" or "quarter" (default "hour")
- hours: integers 1-24 when granularity is hour
- slots: integers 1-96 when granularity is quarter
- stat: "twap", "vwap", "list", or "daily_avg" (default "twap")

Today is %s. For comparison queries return one entry per period.
Return JSON of the form {"queries": [ ... ]} with no explanations.

Query: %s`, today, query)

	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   1024,
		System:      []anthropic.TextBlockParam{{Text: parseSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	raw := stripCodeFences(sb.String())
	if raw == "" {
		return nil, errors.New("empty response")
	}

	var env wireEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || len(env.Queries) == 0 {
		// Some responses come back as a single object or a bare array.
		var one wireSpec
		if err2 := json.Unmarshal([]byte(raw), &one); err2 == nil && one.StartDate != "" {
			env.Queries = []wireSpec{one}
		} else {
			var list []wireSpec
			if err3 := json.Unmarshal([]byte(raw), &list); err3 != nil {
				return nil, fmt.Errorf("parse llm response: %w", err)
			}
			env.Queries = list
		}
	}

	var specs []QuerySpec
	for _, w := range env.Queries {
		spec, ok := w.toSpec()
		if !ok {
			continue
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, errors.New("no usable specs in llm response")
	}
	return specs, nil
}

func (w wireSpec) toSpec() (QuerySpec, bool) {
	start, err := time.Parse("2006-01-02", w.StartDate)
	if err != nil {
		return QuerySpec{}, false
	}
	end, err := time.Parse("2006-01-02", w.EndDate)
	if err != nil {
		return QuerySpec{}, false
	}
	if start.After(end) {
		start, end = end, start
	}

	market := Market(strings.ToUpper(strings.TrimSpace(w.Market)))
	switch market {
	case MarketDAM, MarketGDAM, MarketRTM:
	default:
		market = MarketDAM
	}

	stat := Statistic(strings.ToLower(strings.TrimSpace(w.Stat)))
	if !ValidStatistic(stat) {
		stat = StatTWAP
	}

	spec := QuerySpec{
		Market:    market,
		StartDate: start,
		EndDate:   end,
		Stat:      stat,
		Area:      "ALL",
	}
	if Granularity(w.Granularity) == GranularityQuarter || (len(w.Slots) > 0 && len(w.Hours) == 0) {
		spec.Granularity = GranularityQuarter
		spec.Slots = sanitizeIndices(w.Slots, 96)
		if len(spec.Slots) == 0 {
			return QuerySpec{}, false
		}
	} else {
		spec.Granularity = GranularityHour
		spec.Hours = sanitizeIndices(w.Hours, 24)
		if len(spec.Hours) == 0 {
			spec.Hours = FullDayHours()
		}
	}
	return spec, true
}

func sanitizeIndices(vals []int, max int) []int {
	seen := map[int]bool{}
	for _, v := range vals {
		if v >= 1 && v <= max {
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

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
