package jobs

import (
	"context"
	"log/slog"

	"minidash/internal/metrics"
	"minidash/internal/reports"
)

// CleanupJob removes expired upstream reports from the report cache
type CleanupJob struct {
	store  *reports.Store
	logger *slog.Logger
}

func NewCleanupJob(store *reports.Store, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		store:  store,
		logger: logger,
	}
}

// Run deletes expired cache entries in batches
func (j *CleanupJob) Run(ctx context.Context) error {
	deleted, err := j.store.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("Failed to purge expired reports",
			slog.Any("error", err),
			slog.Int64("deleted_so_far", deleted))
		return err
	}

	if deleted == 0 {
		j.logger.Debug("No expired reports to clean up")
		return nil
	}

	metrics.ReportCachePurged.Add(float64(deleted))
	j.logger.Info("Cleaned up expired reports", slog.Int64("deleted_count", deleted))
	return nil
}
