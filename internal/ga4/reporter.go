package ga4

import (
	"context"
	"log/slog"
	"time"

	"minidash/internal/channels"
	"minidash/internal/reports"
)

// NewReporter builds the production reporter chain: cache, then breaker, then the API client.
// Configuration errors are returned unchanged so callers can surface their messages.
func NewReporter(ctx context.Context, propertyID, credentialsJSON string, store *reports.Store, logger *slog.Logger, timeout time.Duration) (Reporter, error) {
	settings, err := LoadSettings(propertyID, credentialsJSON)
	if err != nil {
		return nil, err
	}

	classifier, err := channels.Default()
	if err != nil {
		return nil, err
	}

	client, err := NewClient(ctx, settings, classifier, logger, timeout)
	if err != nil {
		return nil, err
	}

	return NewCachedReporter(NewBreaker(client, logger), store, settings, logger), nil
}
