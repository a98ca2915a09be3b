package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidash/internal/rows"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"", FormatEmpty},
		{"   \n\t ", FormatEmpty},
		{`[{"date":"2024-01-01"}]`, FormatJSON},
		{"  \n{\"rows\":[]}", FormatJSON},
		{"date,sessions\n2024-01-01,3", FormatCSV},
		{"[broken", FormatJSON},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectFormat(tt.input), "input %q", tt.input)
	}
}

func TestParseEmptyInput(t *testing.T) {
	result, err := Parse("   \n  ")
	require.NoError(t, err)
	assert.Equal(t, FormatEmpty, result.Format)
	assert.Empty(t, result.Rows)
}

func TestParseCSV(t *testing.T) {
	t.Run("header and single row", func(t *testing.T) {
		result, err := Parse("date,sessions,users\n2024-01-01,100,50\n")
		require.NoError(t, err)
		assert.Equal(t, FormatCSV, result.Format)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, rows.Row{
			Date:           "2024-01-01",
			Medium:         rows.DefaultCategory,
			Sessions:       100,
			Users:          50,
			UsersReturning: 50,
		}, result.Rows[0])
	})

	t.Run("row with empty date is dropped", func(t *testing.T) {
		result, err := Parse("date,sessions\n,10\n2024-01-02,5")
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "2024-01-02", result.Rows[0].Date)
	})

	t.Run("headers are case insensitive and unknown columns ignored", func(t *testing.T) {
		result, err := Parse("DATE,Medium,Sessions,Bounce_Rate,PageViews\n2024-02-01,paid,7,0.4,21")
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		row := result.Rows[0]
		assert.Equal(t, rows.Paid, row.Medium)
		assert.Equal(t, 7.0, row.Sessions)
		assert.Equal(t, 21.0, row.Pageviews)
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		result, err := Parse("date,sessions\n\n2024-01-01,1\n   \n,,\n2024-01-02,2\n")
		require.NoError(t, err)
		assert.Len(t, result.Rows, 2)
	})

	t.Run("non numeric values coerce to zero", func(t *testing.T) {
		result, err := Parse("date,sessions,users\n2024-01-01,n/a,")
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, 0.0, result.Rows[0].Sessions)
		assert.Equal(t, 0.0, result.Rows[0].Users)
	})

	t.Run("missing date column yields no rows", func(t *testing.T) {
		result, err := Parse("day,sessions\n2024-01-01,1")
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
	})
}

func TestParseJSON(t *testing.T) {
	t.Run("array of objects", func(t *testing.T) {
		result, err := Parse(`[
			{"date":"2024-01-01","medium":"social","sessions":"12","users":4,"users_new":1,"extra":"ignored"},
			{"date":"2024-01-02","sessions":3}
		]`)
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, result.Format)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, rows.Social, result.Rows[0].Medium)
		assert.Equal(t, 12.0, result.Rows[0].Sessions)
		assert.Equal(t, 3.0, result.Rows[0].UsersReturning)
		assert.Equal(t, 3.0, result.Rows[1].Sessions)
	})

	t.Run("non objects and invalid dates are dropped", func(t *testing.T) {
		result, err := Parse(`[1, "x", null, {"sessions":5}, {"date":""}, {"date":20240101}, {"date":"2024-01-01"}]`)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "2024-01-01", result.Rows[0].Date)
	})

	t.Run("api envelope is accepted", func(t *testing.T) {
		result, err := Parse(`{"ok":true,"rows":[{"date":"2024-01-01","sessions":1}]}`)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 1)
	})

	t.Run("object without rows is rejected", func(t *testing.T) {
		_, err := Parse(`{"date":"2024-01-01"}`)
		assert.ErrorIs(t, err, ErrUnexpectedJSONShape)
	})

	t.Run("out of range numbers coerce to zero", func(t *testing.T) {
		result, err := Parse(`[{"date":"2024-01-01","sessions":1e400,"users":-1e400,"pageviews":7}]`)
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, 0.0, result.Rows[0].Sessions)
		assert.Equal(t, 0.0, result.Rows[0].Users)
		assert.Equal(t, 7.0, result.Rows[0].Pageviews)
	})

	t.Run("trailing data after the array is malformed", func(t *testing.T) {
		_, err := Parse(`[{"date":"2024-01-01"}] {"date":"2024-01-02"}`)
		assert.ErrorIs(t, err, ErrMalformedJSON)
	})

	t.Run("malformed json reports a diagnostic", func(t *testing.T) {
		result, err := Parse(`[{"date": "2024-01-01",}`)
		assert.ErrorIs(t, err, ErrMalformedJSON)
		assert.Equal(t, FormatJSON, result.Format)
		assert.Empty(t, result.Rows)
	})
}

func TestParseJSONRoundTrip(t *testing.T) {
	original := []rows.Row{
		{Date: "2024-01-01", Medium: rows.Organic, Sessions: 10, Users: 8, Pageviews: 30, Conversions: 1, Revenue: 12.5, UsersNew: 3, UsersReturning: 5},
		{Date: "2024-01-02", Medium: rows.Email, Sessions: 4, Users: 4, Pageviews: 4, UsersNew: 4},
		{Date: "2024-01-03", Medium: rows.Direct},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	result, err := Parse(string(data))
	require.NoError(t, err)
	assert.Equal(t, original, result.Rows)
}
