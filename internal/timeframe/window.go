// Package timeframe splits date-ordered rows into a current window and the
// comparison window immediately preceding it.
package timeframe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"minidash/internal/rows"
)

// RangeSize is the number of unique dates in a dashboard window
type RangeSize int

const (
	Range30 RangeSize = 30
	Range60 RangeSize = 60
	Range90 RangeSize = 90
)

// DefaultRangeSize is used when no range is requested
const DefaultRangeSize = Range30

// RangeSizes returns the selectable window sizes
func RangeSizes() []RangeSize {
	return []RangeSize{Range30, Range60, Range90}
}

// IsValid reports whether r is one of the selectable sizes
func (r RangeSize) IsValid() bool {
	return lo.Contains(RangeSizes(), r)
}

// Label renders the range as used in comparison captions, e.g. "30d"
func (r RangeSize) Label() string {
	return fmt.Sprintf("%dd", int(r))
}

// ParseRangeSize parses a requested range. Empty input returns the default.
func ParseRangeSize(s string) (RangeSize, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "d")
	if s == "" {
		return DefaultRangeSize, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid range %q: %w", s, err)
	}
	r := RangeSize(n)
	if !r.IsValid() {
		return 0, fmt.Errorf("invalid range %d: must be one of 30, 60 or 90", n)
	}
	return r, nil
}

// Window is the pair of row sets compared on the dashboard
type Window struct {
	Current       []rows.Row
	Previous      []rows.Row
	CurrentDates  []string
	PreviousDates []string
}

// UniqueDates returns the dates of rows in first-occurrence order
func UniqueDates(in []rows.Row) []string {
	return lo.Uniq(lo.Map(in, func(r rows.Row, _ int) string {
		return r.Date
	}))
}

// Split selects the last n unique dates as the current window and the n
// dates before them as the previous window. Rows must already be sorted by
// date. Rows whose date does not parse belong to neither window. Short
// histories shrink or empty the previous window; n <= 0 yields empty windows.
func Split(sorted []rows.Row, n int) Window {
	window := Window{
		Current:       []rows.Row{},
		Previous:      []rows.Row{},
		CurrentDates:  []string{},
		PreviousDates: []string{},
	}
	if len(sorted) == 0 || n <= 0 {
		return window
	}

	dates := lo.Filter(UniqueDates(sorted), func(d string, _ int) bool {
		_, ok := rows.ParseDate(d)
		return ok
	})
	total := len(dates)
	currentStart := max(total-n, 0)
	previousStart := max(currentStart-n, 0)

	window.CurrentDates = dates[currentStart:]
	window.PreviousDates = dates[previousStart:currentStart]

	current := lo.SliceToMap(window.CurrentDates, func(d string) (string, struct{}) { return d, struct{}{} })
	previous := lo.SliceToMap(window.PreviousDates, func(d string) (string, struct{}) { return d, struct{}{} })

	for _, r := range sorted {
		if _, ok := current[r.Date]; ok {
			window.Current = append(window.Current, r)
		} else if _, ok := previous[r.Date]; ok {
			window.Previous = append(window.Previous, r)
		}
	}
	return window
}
