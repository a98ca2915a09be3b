package ga4

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/samber/lo"

	"minidash/internal/metrics"
	"minidash/internal/reports"
	"minidash/internal/rows"
)

// CachedReporter serves reports from the report cache when a fresh copy exists
type CachedReporter struct {
	next     Reporter
	store    *reports.Store
	identity []string
	logger   *slog.Logger
}

// NewCachedReporter keys cached entries by property and service account so a
// credential change never serves another account's data.
func NewCachedReporter(next Reporter, store *reports.Store, settings *Settings, logger *slog.Logger) *CachedReporter {
	return &CachedReporter{
		next:     next,
		store:    store,
		identity: []string{settings.Property(), settings.Credentials.ClientEmail},
		logger:   logger,
	}
}

func (c *CachedReporter) key(report string, extra ...string) string {
	return reports.Key(report, append(append([]string{}, c.identity...), extra...)...)
}

func (c *CachedReporter) lookup(ctx context.Context, report, key string) ([]rows.Row, bool) {
	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Report cache read failed", slog.String("report", report), slog.Any("error", err))
		return nil, false
	}
	if ok {
		metrics.ReportCacheHits.WithLabelValues(report).Inc()
		return cached, true
	}
	metrics.ReportCacheMisses.WithLabelValues(report).Inc()
	return nil, false
}

func (c *CachedReporter) save(ctx context.Context, report, key string, in []rows.Row) {
	if err := c.store.Put(ctx, key, report, in); err != nil {
		c.logger.Warn("Report cache write failed", slog.String("report", report), slog.Any("error", err))
	}
}

func (c *CachedReporter) DemoReport(ctx context.Context) ([]DemoRow, error) {
	if !c.store.Enabled() {
		return c.next.DemoReport(ctx)
	}

	key := c.key(ReportDemo)
	if cached, ok := c.lookup(ctx, ReportDemo, key); ok {
		return lo.Map(cached, func(r rows.Row, _ int) DemoRow {
			return DemoRow{Date: r.Date, Sessions: int64(r.Sessions), Users: int64(r.Users)}
		}), nil
	}

	fresh, err := c.next.DemoReport(ctx)
	if err != nil {
		return nil, err
	}
	c.save(ctx, ReportDemo, key, lo.Map(fresh, func(d DemoRow, _ int) rows.Row {
		return rows.Row{Date: d.Date, Sessions: float64(d.Sessions), Users: float64(d.Users)}
	}))
	return fresh, nil
}

func (c *CachedReporter) ChannelReport(ctx context.Context, days int) ([]rows.Row, error) {
	if !c.store.Enabled() {
		return c.next.ChannelReport(ctx, days)
	}

	key := c.key(ReportChannels, strconv.Itoa(days))
	if cached, ok := c.lookup(ctx, ReportChannels, key); ok {
		return cached, nil
	}

	fresh, err := c.next.ChannelReport(ctx, days)
	if err != nil {
		return nil, err
	}
	c.save(ctx, ReportChannels, key, fresh)
	return fresh, nil
}
