package sample

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"minidash/internal/rows"
)

// categoryShare is the fraction of daily sessions each category receives
var categoryShare = map[rows.Category]float64{
	rows.Direct:   0.28,
	rows.Organic:  0.34,
	rows.Paid:     0.14,
	rows.Referral: 0.10,
	rows.Social:   0.09,
	rows.Email:    0.05,
}

// conversionRate per session, by category
var conversionRate = map[rows.Category]float64{
	rows.Direct:   0.030,
	rows.Organic:  0.025,
	rows.Paid:     0.045,
	rows.Referral: 0.020,
	rows.Social:   0.012,
	rows.Email:    0.055,
}

// Generator produces a synthetic per-category daily dataset
type Generator struct {
	Days        int
	End         time.Time
	BaseVisits  float64
	DailyGrowth float64
	Seed        uint64
}

// NewGenerator returns a generator for days ending on end
func NewGenerator(days int, end time.Time) *Generator {
	return &Generator{
		Days:        days,
		End:         end,
		BaseVisits:  900,
		DailyGrowth: 0.002,
		Seed:        42,
	}
}

// Generate builds the dataset. The same settings always produce the same rows.
func (g *Generator) Generate() []rows.Row {
	if g.Days <= 0 {
		return nil
	}

	rng := rand.New(rand.NewPCG(g.Seed, uint64(g.Days)))
	start := g.End.AddDate(0, 0, -(g.Days - 1))
	out := make([]rows.Row, 0, g.Days*len(categoryShare))

	for day := 0; day < g.Days; day++ {
		date := start.AddDate(0, 0, day)
		visits := g.BaseVisits * math.Pow(1+g.DailyGrowth, float64(day)) * weekdayFactor(date.Weekday())

		for _, category := range rows.Categories() {
			noise := 0.85 + rng.Float64()*0.3
			sessions := math.Round(visits * categoryShare[category] * noise)
			users := math.Round(sessions * (0.72 + rng.Float64()*0.1))
			usersNew := math.Round(users * (0.35 + rng.Float64()*0.25))
			conversions := math.Round(sessions * conversionRate[category] * (0.8 + rng.Float64()*0.4))
			revenue := math.Round(conversions*(35+rng.Float64()*30)*100) / 100

			out = append(out, rows.Row{
				Date:           date.Format(rows.DateLayout),
				Medium:         category,
				Sessions:       sessions,
				Users:          users,
				Pageviews:      math.Round(sessions * (1.8 + rng.Float64()*1.4)),
				Conversions:    conversions,
				Revenue:        revenue,
				UsersNew:       usersNew,
				UsersReturning: users - usersNew,
			})
		}
	}
	return out
}

func weekdayFactor(d time.Weekday) float64 {
	switch d {
	case time.Saturday:
		return 0.68
	case time.Sunday:
		return 0.74
	case time.Monday:
		return 1.08
	default:
		return 1
	}
}

// WriteFile stores rows as an indented JSON array, creating parent directories
func WriteFile(path string, in []rows.Row) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sample rows: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create sample directory: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write sample file: %w", err)
	}
	return nil
}
