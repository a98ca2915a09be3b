// Package analytics turns normalized rows into dashboard totals, comparisons
// and chart series.
package analytics

import (
	"minidash/internal/rows"
)

// Totals is the per-field sum of a row collection
type Totals struct {
	Sessions       float64 `json:"sessions"`
	Users          float64 `json:"users"`
	Pageviews      float64 `json:"pageviews"`
	Conversions    float64 `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	UsersNew       float64 `json:"users_new"`
	UsersReturning float64 `json:"users_returning"`
}

// Aggregate sums every metric field across rows
func Aggregate(in []rows.Row) Totals {
	var t Totals
	for _, r := range in {
		t.Sessions += r.Sessions
		t.Users += r.Users
		t.Pageviews += r.Pageviews
		t.Conversions += r.Conversions
		t.Revenue += r.Revenue
		t.UsersNew += r.UsersNew
		t.UsersReturning += r.UsersReturning
	}
	return t
}

// PagesPerVisit returns pageviews per session, or 0 without sessions
func (t Totals) PagesPerVisit() float64 {
	return ratio(t.Pageviews, t.Sessions)
}

// ConversionRate returns conversions per session as a percentage, or 0 without sessions
func (t Totals) ConversionRate() float64 {
	return ratio(t.Conversions, t.Sessions) * 100
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
