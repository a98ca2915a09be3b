package analytics

import (
	"sort"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"minidash/internal/rows"
)

// SparklineLength is the number of most recent rows shown in a sparkline
const SparklineLength = 30

// Segment colours for the new vs returning chart
const (
	NewVisitorsColor       = "#ef4444"
	ReturningVisitorsColor = "#22c55e"
)

var categoryColors = map[rows.Category]string{
	rows.Direct:   "#22c55e",
	rows.Organic:  "#0ea5e9",
	rows.Paid:     "#ef4444",
	rows.Referral: "#f59e0b",
	rows.Social:   "#8b5cf6",
	rows.Email:    "#14b8a6",
}

// SparklinePoint is one entry of the compact trend line
type SparklinePoint struct {
	Date          string  `json:"date"`
	Sessions      float64 `json:"sessions"`
	PagesPerVisit float64 `json:"pagesPerVisit"`
	Users         float64 `json:"users"`
}

// BuildSparkline takes the most recent rows and labels them by month-day
func BuildSparkline(in []rows.Row) []SparklinePoint {
	recent := in
	if len(recent) > SparklineLength {
		recent = recent[len(recent)-SparklineLength:]
	}
	return lo.Map(recent, func(r rows.Row, _ int) SparklinePoint {
		return SparklinePoint{
			Date:          monthDay(r.Date),
			Sessions:      r.Sessions,
			PagesPerVisit: ratio(r.Pageviews, r.Sessions),
			Users:         r.Users,
		}
	})
}

func monthDay(date string) string {
	if len(date) <= 5 {
		return ""
	}
	return date[5:]
}

// MonthlyBucket holds sessions per category for one calendar month
type MonthlyBucket struct {
	Month    string  `json:"month"`
	Order    int     `json:"order"`
	Direct   float64 `json:"direct"`
	Organic  float64 `json:"organic"`
	Paid     float64 `json:"paid"`
	Referral float64 `json:"referral"`
	Social   float64 `json:"social"`
	Email    float64 `json:"email"`
}

// Get returns the sessions recorded for a category
func (b MonthlyBucket) Get(c rows.Category) float64 {
	switch c {
	case rows.Organic:
		return b.Organic
	case rows.Paid:
		return b.Paid
	case rows.Referral:
		return b.Referral
	case rows.Social:
		return b.Social
	case rows.Email:
		return b.Email
	default:
		return b.Direct
	}
}

func (b *MonthlyBucket) add(c rows.Category, v float64) {
	switch c {
	case rows.Organic:
		b.Organic += v
	case rows.Paid:
		b.Paid += v
	case rows.Referral:
		b.Referral += v
	case rows.Social:
		b.Social += v
	case rows.Email:
		b.Email += v
	default:
		b.Direct += v
	}
}

// BuildMonthlySeries buckets sessions by calendar month and category.
// Rows whose date does not parse are skipped.
func BuildMonthlySeries(in []rows.Row) []MonthlyBucket {
	buckets := make(map[int]*MonthlyBucket)
	for _, r := range in {
		t, ok := rows.ParseDate(r.Date)
		if !ok {
			continue
		}
		key := t.Year()*12 + int(t.Month()) - 1
		b, exists := buckets[key]
		if !exists {
			b = &MonthlyBucket{Month: t.Month().String()[:3], Order: key}
			buckets[key] = b
		}
		b.add(r.Medium, r.Sessions)
	}

	out := make([]MonthlyBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// CategoryLegend describes one stacked series of the monthly chart
type CategoryLegend struct {
	Key   rows.Category `json:"key"`
	Label string        `json:"label"`
	Color string        `json:"color"`
}

// BuildCategoryLegend lists the categories in display order
func BuildCategoryLegend() []CategoryLegend {
	title := cases.Title(language.English)
	return lo.Map(rows.Categories(), func(c rows.Category, _ int) CategoryLegend {
		return CategoryLegend{Key: c, Label: title.String(string(c)), Color: categoryColors[c]}
	})
}

// Segment is one slice of the new vs returning chart
type Segment struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Color   string  `json:"color"`
	Percent float64 `json:"percent"`
}

// BuildNewVsReturning splits users into new and returning shares
func BuildNewVsReturning(in []rows.Row) []Segment {
	totalNew := lo.SumBy(in, func(r rows.Row) float64 { return r.UsersNew })
	totalReturning := lo.SumBy(in, func(r rows.Row) float64 { return r.UsersReturning })

	denominator := totalNew + totalReturning
	if denominator == 0 {
		denominator = 1
	}

	return []Segment{
		{Name: "New", Value: totalNew, Color: NewVisitorsColor, Percent: totalNew / denominator * 100},
		{Name: "Returning", Value: totalReturning, Color: ReturningVisitorsColor, Percent: totalReturning / denominator * 100},
	}
}
