// Package internal contains core application functionality
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"minidash/internal/config"
	"minidash/internal/database"
	"minidash/internal/jobs"
	"minidash/internal/reports"
)

// Application wraps cartridge.Application with the dashboard components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // DB manager with migration methods
	Reports   *reports.Store
	Scheduler *jobs.Scheduler
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := reports.NewStore(dbManager.GetConnection(), cfg.ReportCacheTTL(), logger)
	scheduler := jobs.NewScheduler(store, cfg.JobInterval(), logger)

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		RouteMountFunc: func(srv *cartridge.Server) {
			MountAppRoutesWithStore(srv, cfg, store)
		},
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Reports:     store,
		Scheduler:   scheduler,
	}, nil
}
