package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"minidash/internal/metrics"
	"minidash/internal/reports"
)

const cleanupJobName = "report_cache_cleanup"

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	interval  time.Duration
	enabled   bool
	isRunning bool

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	cleanupJob    *CleanupJob
	cleanupTicker *time.Ticker
	done          chan struct{}
}

// NewScheduler creates a scheduler that purges expired reports every interval.
// The scheduler does nothing when the report cache is disabled.
func NewScheduler(store *reports.Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		interval:   interval,
		enabled:    store.Enabled() && interval > 0,
		cleanupJob: NewCleanupJob(store, logger),
		done:       make(chan struct{}),
	}
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func(context.Context) error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	err := jobFunc(s.ctx)
	metrics.RecordJobRun(jobName, err)
	if err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.isRunning = true
	s.logger.Info("Starting report cache cleanup job", slog.Duration("interval", s.interval))
	s.cleanupTicker = time.NewTicker(s.interval)

	go func() {
		defer close(s.done)

		s.executeJobSafely(cleanupJobName, s.cleanupJob.Run)

		for {
			select {
			case <-s.cleanupTicker.C:
				s.executeJobSafely(cleanupJobName, s.cleanupJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Cleanup job stopped")
				return
			}
		}
	}()

	return nil
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")

	if s.cleanupTicker != nil {
		s.cleanupTicker.Stop()
	}

	s.cancel()
	if s.isRunning {
		<-s.done
	}
	s.isRunning = false
	s.enabled = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RunCleanup triggers the cleanup job immediately
func (s *Scheduler) RunCleanup(ctx context.Context) error {
	return s.cleanupJob.Run(ctx)
}
