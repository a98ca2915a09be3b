// Package reports stores upstream report rows in SQLite for a short time so
// repeated dashboard loads do not hit the reporting API on every request.
package reports

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"minidash/internal/rows"
)

// purgeBatchSize bounds each delete so the database is not locked for long
const purgeBatchSize = 500

// CachedReport is one serialized upstream report
type CachedReport struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Kind      string    `gorm:"index;not null"`
	Payload   string    `gorm:"type:text;not null"`
	RowCount  int       `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CachedReport) TableName() string {
	return "report_cache"
}

// Store reads and writes cached reports
type Store struct {
	db     *gorm.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewStore returns a store whose entries live for ttl. A zero ttl disables caching.
func NewStore(db *gorm.DB, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether the store keeps anything
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil && s.ttl > 0
}

// Key derives a fixed-length cache key from the report kind and its parameters.
func Key(kind string, parts ...string) string {
	sum := blake2b.Sum256([]byte(kind + "\x00" + strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached rows for key. The boolean is false on a miss or an expired entry.
func (s *Store) Get(ctx context.Context, key string) ([]rows.Row, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}

	var record CachedReport
	err := s.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, s.now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached report: %w", err)
	}

	var out []rows.Row
	if err := json.Unmarshal([]byte(record.Payload), &out); err != nil {
		s.logger.Warn("Discarding unreadable cached report", slog.String("kind", record.Kind), slog.Any("error", err))
		return nil, false, nil
	}
	return out, true, nil
}

// Put stores rows under key, replacing any previous entry
func (s *Store) Put(ctx context.Context, key, kind string, in []rows.Row) error {
	if !s.Enabled() {
		return nil
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	now := s.now()
	record := CachedReport{
		Key:       key,
		Kind:      kind,
		Payload:   string(payload),
		RowCount:  len(in),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "payload", "row_count", "expires_at", "created_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired entries in batches and returns how many were removed
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}

	cutoff := s.now()
	var total int64
	for {
		result := s.db.WithContext(ctx).Exec(
			"DELETE FROM report_cache WHERE key IN (SELECT key FROM report_cache WHERE expires_at <= ? LIMIT ?)",
			cutoff, purgeBatchSize)
		if result.Error != nil {
			return total, fmt.Errorf("failed to purge expired reports: %w", result.Error)
		}
		total += result.RowsAffected
		if result.RowsAffected < purgeBatchSize {
			return total, nil
		}
	}
}

// PurgeAll removes every cached report
func (s *Store) PurgeAll(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("1 = 1").Delete(&CachedReport{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge reports: %w", result.Error)
	}
	return result.RowsAffected, nil
}
