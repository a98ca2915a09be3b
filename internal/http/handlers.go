// Package http holds the JSON API handlers of the dashboard.
package http

import (
	"github.com/go-playground/validator/v10"

	"minidash/internal/config"
	"minidash/internal/ga4"
	"minidash/internal/reports"
	"minidash/internal/sample"
)

// Dependencies are resolved once when routes are mounted
type Dependencies struct {
	Config   *config.Config
	Sample   *sample.Loader
	Reports  *reports.Store
	Reporter ga4.Reporter
	// ReporterErr is the configuration error that prevented building Reporter.
	ReporterErr error
}

// Handlers serves the API routes
type Handlers struct {
	cfg         *config.Config
	sample      *sample.Loader
	reports     *reports.Store
	reporter    ga4.Reporter
	reporterErr error
	validate    *validator.Validate
}

func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		cfg:         deps.Config,
		sample:      deps.Sample,
		reports:     deps.Reports,
		reporter:    deps.Reporter,
		reporterErr: deps.ReporterErr,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}
