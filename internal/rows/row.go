// Package rows defines the normalized analytics row and the rules that
// coerce loosely-typed input records into it.
package rows

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Category is the traffic medium a row belongs to
type Category string

const (
	Direct   Category = "direct"
	Organic  Category = "organic"
	Paid     Category = "paid"
	Referral Category = "referral"
	Social   Category = "social"
	Email    Category = "email"
)

// DefaultCategory is used when the input medium is absent or unrecognized
const DefaultCategory = Direct

// DateLayout is the canonical date form of a Row
const DateLayout = "2006-01-02"

// Categories returns the closed category set in display order
func Categories() []Category {
	return []Category{Direct, Organic, Paid, Referral, Social, Email}
}

// IsValidCategory checks if the given value is part of the category set
func IsValidCategory(c Category) bool {
	for _, valid := range Categories() {
		if c == valid {
			return true
		}
	}
	return false
}

// Row is one normalized observation for a date and medium.
type Row struct {
	Date           string   `json:"date"`
	Medium         Category `json:"medium"`
	Sessions       float64  `json:"sessions"`
	Users          float64  `json:"users"`
	Pageviews      float64  `json:"pageviews"`
	Conversions    float64  `json:"conversions"`
	Revenue        float64  `json:"revenue"`
	UsersNew       float64  `json:"users_new"`
	UsersReturning float64  `json:"users_returning"`
}

// Field names recognized in input records
const (
	FieldDate           = "date"
	FieldMedium         = "medium"
	FieldCategory       = "category"
	FieldSessions       = "sessions"
	FieldUsers          = "users"
	FieldPageviews      = "pageviews"
	FieldConversions    = "conversions"
	FieldRevenue        = "revenue"
	FieldUsersNew       = "users_new"
	FieldUsersReturning = "users_returning"
)

// MetricFields lists the numeric fields declared by the row schema
func MetricFields() []string {
	return []string{
		FieldSessions,
		FieldUsers,
		FieldPageviews,
		FieldConversions,
		FieldRevenue,
		FieldUsersNew,
		FieldUsersReturning,
	}
}

// KnownFields lists every input column the ingestion layer accepts
func KnownFields() []string {
	return append([]string{FieldDate, FieldMedium, FieldCategory}, MetricFields()...)
}

// Normalize coerces a loosely-typed record into a Row. It never fails.
func Normalize(rec Record) Row {
	users := math.Max(0, rec.Get(FieldUsers).Number())
	usersNew := math.Min(users, math.Max(0, rec.Get(FieldUsersNew).Number()))

	return Row{
		Date:           normalizeDate(rec.Get(FieldDate)),
		Medium:         normalizeCategory(rec),
		Sessions:       math.Max(0, rec.Get(FieldSessions).Number()),
		Users:          users,
		Pageviews:      math.Max(0, rec.Get(FieldPageviews).Number()),
		Conversions:    math.Max(0, rec.Get(FieldConversions).Number()),
		Revenue:        math.Max(0, rec.Get(FieldRevenue).Number()),
		UsersNew:       usersNew,
		UsersReturning: math.Max(0, users-usersNew),
	}
}

// NormalizeAll normalizes every record in order
func NormalizeAll(records []Record) []Row {
	out := make([]Row, 0, len(records))
	for _, rec := range records {
		out = append(out, Normalize(rec))
	}
	return out
}

func normalizeCategory(rec Record) Category {
	field := rec.Get(FieldMedium)
	if field.IsMissing() {
		field = rec.Get(FieldCategory)
	}
	value, ok := field.Text()
	if !ok {
		return DefaultCategory
	}
	c := Category(value)
	if IsValidCategory(c) {
		return c
	}
	return DefaultCategory
}

func normalizeDate(f Field) string {
	raw := strings.TrimSpace(f.String())
	if t, ok := ParseDate(raw); ok {
		return t.Format(DateLayout)
	}
	return raw
}

var dateLayouts = []string{DateLayout, "20060102", "2006-1-2"}

// ParseDate parses the date forms accepted on input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByDate returns a copy of rows ordered ascending by date. Rows with
// unparsable dates keep their relative order and sort after dated rows.
func SortByDate(in []Row) []Row {
	out := make([]Row, len(in))
	copy(out, in)

	type key struct {
		t  time.Time
		ok bool
	}
	keys := make(map[string]key, len(out))
	for _, r := range out {
		if _, seen := keys[r.Date]; !seen {
			t, ok := ParseDate(r.Date)
			keys[r.Date] = key{t: t, ok: ok}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := keys[out[i].Date], keys[out[j].Date]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.t.Before(b.t)
	})
	return out
}
