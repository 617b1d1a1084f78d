package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/emspark/internal/metrics"
)

var marketOrder = []string{"DAM", "GDAM", "RTM"}

var marketEmoji = map[string]string{
	"DAM":  "📊",
	"GDAM": "🟢",
	"RTM":  "🔵",
}

// MarketData pairs a market's aggregates for the selected window with the
// same window one year earlier, when available.
type MarketData struct {
	Current  metrics.Result
	Previous metrics.Result
	HasPrev  bool
}

// BuildSnapshot renders the headline card for the primary market: TWAP,
// block price extremes and cleared volume.
func BuildSnapshot(market string, date time.Time, timeLabel string, res metrics.Result) string {
	emoji := marketEmoji[market]
	if emoji == "" {
		emoji = "📈"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s Snapshot - %s\n", emoji, market, FormatDate(date))
	fmt.Fprintf(&b, "%s\n\n", timeLabel)
	fmt.Fprintf(&b, "**TWAP Price**  \n%s /kWh\n\n", FormatMoney(res.Twap))
	fmt.Fprintf(&b, "**Min / Max Block Price**  \n%s / %s /kWh\n\n", FormatMoney(res.MinPrice), FormatMoney(res.MaxPrice))
	fmt.Fprintf(&b, "**Total Cleared Volume**  \n%.1f GWh\n\n---\n", res.TotalVolumeGWh)
	return b.String()
}

// BuildComparison renders the three-market table with year-over-year volume
// and price columns. Markets with no previous-year data show a dash delta.
func BuildComparison(year int, data map[string]MarketData) string {
	prevYear := year - 1
	var b strings.Builder
	fmt.Fprintf(&b, "## 📈 Market Comparison · %d vs %d\n", year, prevYear)
	b.WriteString("Volumes (GWh) and average prices (₹/kWh)\n\n")
	fmt.Fprintf(&b, "| Market | Volume %d | Volume %d | Price %d | Price %d | YoY Δ |\n",
		year, prevYear, year, prevYear)
	b.WriteString("|--------|----------:|----------:|---------:|---------:|-------|\n")

	for _, market := range marketOrder {
		d := data[market]
		delta := "—"
		prevVol, prevPrice := 0.0, 0.0
		if d.HasPrev {
			prevVol = d.Previous.TotalVolumeGWh
			prevPrice = d.Previous.Twap
			delta = formatDelta(d.Current.Twap, d.Previous.Twap)
		}
		fmt.Fprintf(&b, "| %s %s | %.2f GWh | %.2f GWh | %s /kWh | %s /kWh | %s |\n",
			marketEmoji[market], market,
			d.Current.TotalVolumeGWh, prevVol,
			FormatMoney(d.Current.Twap), FormatMoney(prevPrice), delta)
	}
	b.WriteString("\n---\n")
	return b.String()
}

func formatDelta(current, previous float64) string {
	if previous <= 0 {
		return "—"
	}
	change := (current - previous) / previous * 100
	icon := "➖"
	if change > 0 {
		icon = "🔺"
	} else if change < 0 {
		icon = "🔻"
	}
	return fmt.Sprintf("%s %.1f%%", icon, abs(change))
}

// BuildBidAnalysis renders aggregated purchase/sell bids, scheduled volume
// and the buy/sell ratio per market, plus a tightness verdict averaged over
// the markets that cleared. The verdict string is returned so the insight
// layer can reuse it.
func BuildBidAnalysis(data map[string]metrics.Result) (section, tightness string) {
	var b strings.Builder
	b.WriteString("## 📊 Market Bids & Scheduling Analysis\n\n")

	var ratios []float64
	lines := map[string][3]string{}
	for _, market := range marketOrder {
		d := data[market]
		ratio := 0.0
		if d.SellBidTotalMW > 0 {
			ratio = d.PurchaseBidTotalMW / d.SellBidTotalMW
			ratios = append(ratios, ratio)
		}
		lines[market] = [3]string{
			fmt.Sprintf("%.0f", d.PurchaseBidTotalMW),
			fmt.Sprintf("%.0f", d.SellBidTotalMW),
			fmt.Sprintf("%.2f", ratio),
		}
	}

	b.WriteString("**PURCHASE BIDS (MW)**\n")
	for _, market := range marketOrder {
		fmt.Fprintf(&b, "• **%s:** %s MW\n", market, lines[market][0])
	}
	b.WriteString("\n**SELL BIDS (MW)**\n")
	for _, market := range marketOrder {
		fmt.Fprintf(&b, "• **%s:** %s MW\n", market, lines[market][1])
	}
	b.WriteString("\n**SCHEDULED MW & BID RATIO**\n")
	fmt.Fprintf(&b, "• **Scheduled:** DAM %.0f · GDAM %.0f · RTM %.0f\n",
		data["DAM"].ScheduledTotalMW, data["GDAM"].ScheduledTotalMW, data["RTM"].ScheduledTotalMW)
	fmt.Fprintf(&b, "• **Bid Ratio (Buy/Sell):** DAM %s · GDAM %s · RTM %s\n\n",
		lines["DAM"][2], lines["GDAM"][2], lines["RTM"][2])

	avg := 0.0
	for _, r := range ratios {
		avg += r
	}
	if len(ratios) > 0 {
		avg /= float64(len(ratios))
	}
	tightness = TightnessVerdict(avg)
	switch tightness {
	case "Tight":
		b.WriteString("**Market Tightness: Tight** (Buy pressure exceeds sell)\n")
	case "Balanced":
		b.WriteString("**Market Tightness: Balanced**\n")
	default:
		b.WriteString("**Market Tightness: Loose** (Sell pressure exceeds buy)\n")
	}
	b.WriteString("\n---\n")
	return b.String(), tightness
}

// TightnessVerdict classifies the average buy/sell bid ratio.
func TightnessVerdict(avgRatio float64) string {
	if avgRatio > 1.05 {
		return "Tight"
	}
	if avgRatio > 0.95 {
		return "Balanced"
	}
	return "Loose"
}

// BuildInsights renders the analyst bullet list.
func BuildInsights(bullets []string) string {
	var b strings.Builder
	b.WriteString("## 🤖 EM-SPARK AI Insights\n\n")
	for _, line := range bullets {
		fmt.Fprintf(&b, "• %s\n\n", line)
	}
	b.WriteString("---\n")
	return b.String()
}

// Compose joins the report sections into the final markdown document.
func Compose(sections ...string) string {
	var kept []string
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
