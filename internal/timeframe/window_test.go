package timeframe

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidash/internal/rows"
)

func makeDays(n int) []rows.Row {
	out := make([]rows.Row, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, rows.Row{Date: fmt.Sprintf("2024-01-%02d", i), Sessions: float64(i)})
	}
	return out
}

func dates(in []rows.Row) []string {
	out := make([]string, len(in))
	for i, r := range in {
		out[i] = r.Date
	}
	return out
}

func TestSplit(t *testing.T) {
	t.Run("ten days with a five day window", func(t *testing.T) {
		w := Split(makeDays(10), 5)
		assert.Equal(t, []string{"2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10"}, dates(w.Current))
		assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}, dates(w.Previous))
	})

	t.Run("short history leaves previous window empty", func(t *testing.T) {
		w := Split(makeDays(3), 5)
		assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, dates(w.Current))
		assert.Empty(t, w.Previous)
		assert.Empty(t, w.PreviousDates)
	})

	t.Run("partial previous window", func(t *testing.T) {
		w := Split(makeDays(7), 5)
		assert.Len(t, w.Current, 5)
		assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, dates(w.Previous))
	})

	t.Run("rows sharing a date fall into the same window", func(t *testing.T) {
		in := []rows.Row{
			{Date: "2024-01-01", Medium: rows.Organic},
			{Date: "2024-01-01", Medium: rows.Paid},
			{Date: "2024-01-02", Medium: rows.Organic},
			{Date: "2024-01-02", Medium: rows.Paid},
			{Date: "2024-01-03", Medium: rows.Email},
		}
		w := Split(in, 2)
		assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, w.CurrentDates)
		assert.Len(t, w.Current, 3)
		assert.Equal(t, []string{"2024-01-01"}, w.PreviousDates)
		assert.Len(t, w.Previous, 2)
	})

	t.Run("undated rows stay out of both windows", func(t *testing.T) {
		in := append(makeDays(30), rows.Row{Date: "n/a", Sessions: 1000})
		w := Split(rows.SortByDate(in), 30)

		assert.Len(t, w.CurrentDates, 30)
		assert.Equal(t, "2024-01-01", w.CurrentDates[0])
		assert.NotContains(t, dates(w.Current), "n/a")
		assert.Empty(t, w.Previous)
	})

	t.Run("empty input", func(t *testing.T) {
		w := Split(nil, 30)
		assert.Empty(t, w.Current)
		assert.Empty(t, w.Previous)
	})

	t.Run("windows are disjoint", func(t *testing.T) {
		w := Split(makeDays(45), 30)
		seen := map[string]bool{}
		for _, r := range w.Current {
			seen[r.Date] = true
		}
		for _, r := range w.Previous {
			assert.False(t, seen[r.Date], "date %s in both windows", r.Date)
		}
		assert.Len(t, w.Current, 30)
		assert.Len(t, w.Previous, 15)
	})
}

func TestUniqueDates(t *testing.T) {
	in := []rows.Row{{Date: "b"}, {Date: "a"}, {Date: "b"}, {Date: "c"}, {Date: "a"}}
	assert.Equal(t, []string{"b", "a", "c"}, UniqueDates(in))
}

func TestParseRangeSize(t *testing.T) {
	tests := []struct {
		input    string
		expected RangeSize
		wantErr  bool
	}{
		{"", Range30, false},
		{"30", Range30, false},
		{"60", Range60, false},
		{"90d", Range90, false},
		{" 60 ", Range60, false},
		{"45", 0, true},
		{"abc", 0, true},
		{"-30", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRangeSize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRangeSizeLabel(t *testing.T) {
	assert.Equal(t, "60d", Range60.Label())
}
