package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/emspark/internal/metrics"
)

// Input is the market picture one insight request is based on: the cleared
// aggregates for each market over the selected window.
type Input struct {
	Query     string
	Date      time.Time
	Markets   map[string]metrics.Result
	Tightness string
}

// Generator produces analyst commentary for a market snapshot. A nil caller
// (or any LLM failure) degrades to deterministic bullets derived from the
// data itself; the answering pipeline never fails because insights did.
type Generator struct {
	caller LLMCaller
}

func NewGenerator(caller LLMCaller) *Generator {
	return &Generator{caller: caller}
}

// Bullets returns 3-4 insight bullet points. Transient transport failures are
// retried twice with backoff before degrading to the deterministic fallback.
func (g *Generator) Bullets(ctx context.Context, in Input) []string {
	if g == nil || g.caller == nil {
		return FallbackBullets(in)
	}
	prompt := buildPrompt(in)
	for attempt := 1; attempt <= 3; attempt++ {
		raw, err := g.caller.GenerateText(ctx, prompt)
		if err != nil {
			class := classifyTransportError(err)
			if attempt < 3 && (class == failureTimeout || class == failureRateLimit || class == failureServer) {
				time.Sleep(backoffDelay(attempt))
				continue
			}
			return FallbackBullets(in)
		}
		if bullets := parseBullets(raw); len(bullets) > 0 {
			return bullets
		}
		return FallbackBullets(in)
	}
	return FallbackBullets(in)
}

func buildPrompt(in Input) string {
	dam := in.Markets["DAM"]
	gdam := in.Markets["GDAM"]
	rtm := in.Markets["RTM"]

	premium := 0.0
	if dam.Twap > 0 && gdam.Twap > 0 {
		premium = (gdam.Twap - dam.Twap) / dam.Twap * 100
	}

	return fmt.Sprintf(`Analyze the following Indian energy market data and provide 3-4 concise, actionable insights in bullet points.

Market Data for %s:
- DAM Price: ₹%.4f/kWh, Volume: %.1f GWh
- GDAM Price: ₹%.4f/kWh, Volume: %.1f GWh (GDAM Premium: %+.1f%%)
- RTM Price: ₹%.4f/kWh, Volume: %.1f GWh

Purchase Bids (MW):
- DAM: %.0f
- GDAM: %.0f
- RTM: %.0f

Provide insights on:
1. Price trends and volatility
2. Volume patterns
3. GDAM vs DAM comparison (is GDAM cheaper or more expensive? By how much?)
4. Procurement recommendations

Format as bullet points starting with "•". Keep each point to 1-2 sentences. Be specific with numbers.`,
		in.Date.Format("02 Jan 2006"),
		dam.Twap, dam.TotalVolumeGWh,
		gdam.Twap, gdam.TotalVolumeGWh, premium,
		rtm.Twap, rtm.TotalVolumeGWh,
		dam.PurchaseBidTotalMW, gdam.PurchaseBidTotalMW, rtm.PurchaseBidTotalMW)
}

// parseBullets extracts bullet lines from the model's response, tolerating
// "•", "-" and "*" markers.
func parseBullets(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range []string{"•", "- ", "* "} {
			if strings.HasPrefix(line, marker) {
				if text := strings.TrimSpace(strings.TrimPrefix(line, marker)); text != "" {
					out = append(out, text)
				}
				break
			}
		}
	}
	return out
}

// FallbackBullets derives commentary from the numbers alone, so a response
// carries insight bullets even with no LLM configured.
func FallbackBullets(in Input) []string {
	dam := in.Markets["DAM"]
	gdam := in.Markets["GDAM"]
	rtm := in.Markets["RTM"]

	var out []string

	if dam.Twap > 0 {
		spread := dam.MaxPrice - dam.MinPrice
		out = append(out, fmt.Sprintf(
			"DAM cleared at ₹%.2f/kWh on average with a ₹%.2f/kWh intraday spread between the cheapest and most expensive blocks.",
			dam.Twap, spread))
	}

	if dam.Twap > 0 && gdam.Twap > 0 {
		premium := (gdam.Twap - dam.Twap) / dam.Twap * 100
		direction := "premium over"
		if premium < 0 {
			direction = "discount to"
		}
		out = append(out, fmt.Sprintf(
			"GDAM traded at a %.1f%% %s DAM (₹%.2f vs ₹%.2f per kWh) on %.1f GWh of green volume.",
			abs(premium), direction, gdam.Twap, dam.Twap, gdam.TotalVolumeGWh))
	}

	if rtm.TotalVolumeGWh > 0 {
		out = append(out, fmt.Sprintf(
			"RTM cleared %.1f GWh at ₹%.2f/kWh, indicating active near-delivery balancing.",
			rtm.TotalVolumeGWh, rtm.Twap))
	}

	if in.Tightness != "" {
		out = append(out, fmt.Sprintf("Aggregate buy/sell bid ratios point to %s market conditions.", strings.ToLower(in.Tightness)))
	}

	if len(out) == 0 {
		out = []string{
			"No cleared market data is available for the selected window.",
			"Try a recent delivery date or widen the time selection.",
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
