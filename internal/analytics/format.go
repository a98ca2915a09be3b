package analytics

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatNumber renders a KPI with thousands grouping. Values of 100 or more
// are shown without decimals, smaller values with at most one.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	if math.Abs(v) >= 100 {
		return printer.Sprintf("%.0f", v)
	}
	rounded := math.Round(v*10) / 10
	if rounded == math.Trunc(rounded) {
		return printer.Sprintf("%.0f", rounded)
	}
	return printer.Sprintf("%.1f", rounded)
}

// FormatPercent renders a percentage with one decimal
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", v)
}

// FormatPagesPerVisit renders the pages per visit KPI with two decimals
func FormatPagesPerVisit(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatDelta renders a delta caption such as "▲ 12.5% vs previous 30d"
func FormatDelta(d Delta, label string) string {
	arrow := "▼"
	if d.IsUp() {
		arrow = "▲"
	}
	return fmt.Sprintf("%s %.1f%% vs previous %s", arrow, math.Abs(d.Percent), label)
}
