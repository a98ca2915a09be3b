// Package ingest turns pasted or uploaded text (CSV or JSON) into normalized rows.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"minidash/internal/rows"
)

// Format is the detected encoding of an input payload
type Format string

const (
	FormatEmpty Format = "empty"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

var (
	// ErrMalformedJSON is returned when input looks like JSON but does not decode.
	ErrMalformedJSON = errors.New("malformed JSON input")
	// ErrUnexpectedJSONShape is returned when JSON decodes to something other than rows.
	ErrUnexpectedJSONShape = errors.New("JSON input must be an array of objects")
)

// Result holds the parsed rows and the format they were read as
type Result struct {
	Format Format     `json:"format"`
	Rows   []rows.Row `json:"rows"`
}

// DetectFormat decides how text should be parsed without attempting a parse.
func DetectFormat(text string) Format {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return FormatEmpty
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}
	return FormatCSV
}

// Parse detects the format of text and parses it into normalized rows.
// Empty input yields no rows and no error.
func Parse(text string) (Result, error) {
	format := DetectFormat(text)
	result := Result{Format: format, Rows: []rows.Row{}}

	var (
		records []rows.Record
		err     error
	)
	switch format {
	case FormatEmpty:
		return result, nil
	case FormatJSON:
		records, err = ParseJSONRecords([]byte(text))
	case FormatCSV:
		records, err = ParseCSVRecords(strings.NewReader(text))
	}
	if err != nil {
		return result, err
	}

	result.Rows = rows.NormalizeAll(records)
	return result, nil
}

// ParseJSONRecords decodes a JSON array of objects (or an {"rows": [...]}
// envelope) into records. Non-object elements and elements without a
// non-empty string date are dropped.
func ParseJSONRecords(data []byte) ([]rows.Record, error) {
	// Numbers stay json.Number so out-of-range values coerce to 0 per field
	// instead of failing the whole payload.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrMalformedJSON)
	}

	var items []any
	switch v := decoded.(type) {
	case []any:
		items = v
	case map[string]any:
		inner, ok := v["rows"].([]any)
		if !ok {
			return nil, ErrUnexpectedJSONShape
		}
		items = inner
	default:
		return nil, ErrUnexpectedJSONShape
	}

	records := make([]rows.Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := rows.RecordFromMap(obj)
		date, ok := rec.Get(rows.FieldDate).Text()
		if !ok || date == "" {
			continue
		}
		records = append(records, keepKnown(rec))
	}
	return records, nil
}

// ParseCSVRecords reads CSV with a header line. Header names are matched
// case-insensitively against the known fields; other columns are ignored.
// Rows with an empty date or broken quoting are skipped.
func ParseCSVRecords(r io.Reader) ([]rows.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return []rows.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	known := make(map[string]bool)
	for _, name := range rows.KnownFields() {
		known[name] = true
	}
	columns := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if known[key] {
			columns[i] = key
		}
	}

	records := []rows.Record{}
	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if isBlank(line) {
			continue
		}

		rec := rows.Record{}
		for i, val := range line {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			rec[columns[i]] = rows.StringField(strings.TrimSpace(val))
		}

		date, _ := rec.Get(rows.FieldDate).Text()
		if date == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func isBlank(line []string) bool {
	for _, v := range line {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// keepKnown drops fields outside the row schema
func keepKnown(rec rows.Record) rows.Record {
	out := make(rows.Record, len(rec))
	for _, name := range rows.KnownFields() {
		if f, ok := rec[name]; ok {
			out[name] = f
		}
	}
	return out
}
