package metrics

import (
	"strconv"
	"strings"
)

// Row is one price record as it comes off the database, keyed by column name.
// Upstream sources are inconsistent about both naming and typing (numeric
// columns sometimes arrive as decorated text), so all access goes through the
// alias and coercion helpers below.
type Row = map[string]any

// Column aliases in lookup order. The first name is the canonical one; the
// rest are legacy spellings still present in older partitions.
var (
	HourlyPriceAliases     = []string{"price_avg_rs_per_mwh", "mcp_rs_per_mwh"}
	HourlyScheduledAliases = []string{"scheduled_mw_sum", "scheduled_mw_txt", "scheduled_mw"}
	HourlyPurchaseAliases  = []string{"purchase_bid_avg", "purchase_bid_txt", "purchase_bid"}
	HourlySellAliases      = []string{"sell_bid_avg", "sell_bid_txt", "sell_bid"}
	HourlyMCVAliases       = []string{"mcv_sum", "mcv_txt", "mcv"}

	QuarterPriceAliases     = []string{"price_rs_per_mwh", "mcp_rs_per_mwh"}
	QuarterScheduledAliases = []string{"scheduled_mw", "scheduled_mw_txt"}
	QuarterPurchaseAliases  = []string{"purchase_bid", "purchase_bid_txt"}
	QuarterSellAliases      = []string{"sell_bid", "sell_bid_txt"}
	QuarterMCVAliases       = []string{"mcv", "mcv_txt"}
)

// FirstPresent returns the first alias carried by the row, coerced to a
// float. When no alias matches exactly it falls back to a case-insensitive
// substring scan over the row's keys before giving up and returning def.
func FirstPresent(row Row, aliases []string, def float64) float64 {
	for _, name := range aliases {
		if v, ok := row[name]; ok && v != nil {
			return CoerceFloat(v)
		}
	}
	for _, name := range aliases {
		needle := strings.ToLower(name)
		for key, v := range row {
			if v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(key), needle) {
				return CoerceFloat(v)
			}
		}
	}
	return def
}

// coerceStripper removes the decorations seen in *_txt columns: thousands
// separators, currency markers and unit suffixes.
var coerceStripper = strings.NewReplacer(
	",", "", "₹", "",
	"rs", "", "RS", "", "Rs", "",
	"MWh", "", "kWh", "",
	"MW", "", "mw", "",
)

// CoerceFloat converts a database value to a float64, tolerating text columns
// like "1,234.5 MW". Anything unparseable is 0.
func CoerceFloat(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case []byte:
		return coerceString(string(x))
	case string:
		return coerceString(x)
	}
	return 0
}

func coerceString(s string) float64 {
	s = strings.TrimSpace(coerceStripper.Replace(s))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// DurationMin returns the row's interval length in minutes, def when absent
// or zero.
func DurationMin(row Row, def int) int {
	if v, ok := row["duration_min"]; ok {
		if d := int(CoerceFloat(v)); d > 0 {
			return d
		}
	}
	return def
}

// BlockIndex returns the row's hour block (1-24), 0 when absent.
func BlockIndex(row Row) int {
	return int(CoerceFloat(row["block_index"]))
}

// SlotIndex returns the row's 15-minute slot (1-96). A row carrying only an
// hour block is mapped to the first slot of that block.
func SlotIndex(row Row) int {
	if v, ok := row["slot_index"]; ok && v != nil {
		if s := int(CoerceFloat(v)); s > 0 {
			return s
		}
	}
	if b := BlockIndex(row); b > 0 {
		return (b-1)*4 + 1
	}
	return 0
}

// FilterHourly keeps only the rows whose block index is in hours. A nil or
// empty selection keeps everything.
func FilterHourly(rows []Row, hours []int) []Row {
	if len(hours) == 0 {
		return rows
	}
	want := intSet(hours)
	var out []Row
	for _, r := range rows {
		if want[BlockIndex(r)] {
			out = append(out, r)
		}
	}
	return out
}

// FilterQuarter keeps only the rows whose slot index is in slots, deriving
// the slot from the hour block for rows that carry no slot column.
func FilterQuarter(rows []Row, slots []int) []Row {
	if len(slots) == 0 {
		return rows
	}
	want := intSet(slots)
	var out []Row
	for _, r := range rows {
		if want[SlotIndex(r)] {
			out = append(out, r)
		}
	}
	return out
}

func intSet(vals []int) map[int]bool {
	set := make(map[int]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
