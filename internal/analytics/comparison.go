package analytics

// Direction is the sign of a period-over-period change
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Delta is the percentage change between a current and a previous total
type Delta struct {
	Percent   float64   `json:"percent"`
	Direction Direction `json:"direction"`
}

// IsUp reports whether the change is non-negative
func (d Delta) IsUp() bool {
	return d.Direction == DirectionUp
}

// ComputeDelta compares current against previous. A zero or negative
// baseline counts any positive current value as a full 100% increase.
func ComputeDelta(current, previous float64) Delta {
	if previous <= 0 {
		d := Delta{Direction: DirectionDown}
		if current > 0 {
			d.Percent = 100
		}
		if current >= 0 {
			d.Direction = DirectionUp
		}
		return d
	}

	change := (current - previous) / previous * 100
	if change >= 0 {
		return Delta{Percent: change, Direction: DirectionUp}
	}
	return Delta{Percent: change, Direction: DirectionDown}
}

// ComparisonMetrics holds the deltas shown next to the dashboard KPIs
type ComparisonMetrics struct {
	Visits         Delta `json:"visits"`
	PagesPerVisit  Delta `json:"pages_per_visit"`
	UniqueVisitors Delta `json:"unique_visitors"`
	Conversions    Delta `json:"conversions"`
	Revenue        Delta `json:"revenue"`
}

// CalculateComparisonMetrics computes period-over-period deltas between two totals
func CalculateComparisonMetrics(current, previous Totals) ComparisonMetrics {
	return ComparisonMetrics{
		Visits:         ComputeDelta(current.Sessions, previous.Sessions),
		PagesPerVisit:  ComputeDelta(current.PagesPerVisit(), previous.PagesPerVisit()),
		UniqueVisitors: ComputeDelta(current.Users, previous.Users),
		Conversions:    ComputeDelta(current.Conversions, previous.Conversions),
		Revenue:        ComputeDelta(current.Revenue, previous.Revenue),
	}
}
