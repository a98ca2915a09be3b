package analytics

import (
	"minidash/internal/rows"
	"minidash/internal/timeframe"
)

// Summary holds the preformatted KPI captions of the dashboard
type Summary struct {
	TotalVisits         string `json:"total_visits"`
	VisitsDelta         string `json:"visits_delta"`
	ConversionRate      string `json:"conversion_rate"`
	PagesPerVisit       string `json:"pages_per_visit"`
	PagesPerVisitDelta  string `json:"pages_per_visit_delta"`
	UniqueVisitors      string `json:"unique_visitors"`
	UniqueVisitorsDelta string `json:"unique_visitors_delta"`
}

// Dashboard is everything the dashboard page renders for one range
type Dashboard struct {
	Range                 timeframe.RangeSize `json:"range"`
	Empty                 bool                `json:"empty"`
	CurrentDates          int                 `json:"current_dates"`
	PreviousDates         int                 `json:"previous_dates"`
	Totals                Totals              `json:"totals"`
	PreviousTotals        Totals              `json:"previous_totals"`
	PagesPerVisit         float64             `json:"pages_per_visit"`
	PreviousPagesPerVisit float64             `json:"previous_pages_per_visit"`
	ConversionRate        float64             `json:"conversion_rate"`
	Comparison            ComparisonMetrics   `json:"comparison"`
	Sparkline             []SparklinePoint    `json:"sparkline"`
	Monthly               []MonthlyBucket     `json:"monthly"`
	Categories            []CategoryLegend    `json:"categories"`
	NewVsReturning        []Segment           `json:"new_vs_returning"`
	Summary               Summary             `json:"summary"`
}

// BuildDashboard sorts, windows and aggregates rows for the given range
func BuildDashboard(in []rows.Row, size timeframe.RangeSize) Dashboard {
	sorted := rows.SortByDate(in)
	window := timeframe.Split(sorted, int(size))

	totals := Aggregate(window.Current)
	previous := Aggregate(window.Previous)
	comparison := CalculateComparisonMetrics(totals, previous)

	sparkSource := window.Current
	if len(sparkSource) == 0 {
		sparkSource = sorted
	}

	label := size.Label()
	return Dashboard{
		Range:                 size,
		Empty:                 len(window.Current) == 0,
		CurrentDates:          len(window.CurrentDates),
		PreviousDates:         len(window.PreviousDates),
		Totals:                totals,
		PreviousTotals:        previous,
		PagesPerVisit:         totals.PagesPerVisit(),
		PreviousPagesPerVisit: previous.PagesPerVisit(),
		ConversionRate:        totals.ConversionRate(),
		Comparison:            comparison,
		Sparkline:             BuildSparkline(sparkSource),
		Monthly:               BuildMonthlySeries(window.Current),
		Categories:            BuildCategoryLegend(),
		NewVsReturning:        BuildNewVsReturning(window.Current),
		Summary: Summary{
			TotalVisits:         FormatNumber(totals.Sessions),
			VisitsDelta:         FormatDelta(comparison.Visits, label),
			ConversionRate:      FormatPercent(totals.ConversionRate()),
			PagesPerVisit:       FormatPagesPerVisit(totals.PagesPerVisit()),
			PagesPerVisitDelta:  FormatDelta(comparison.PagesPerVisit, label),
			UniqueVisitors:      FormatNumber(totals.Users),
			UniqueVisitorsDelta: FormatDelta(comparison.UniqueVisitors, label),
		},
	}
}
