// Package sample loads and generates the bundled demo dataset.
package sample

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/karloscodes/cartridge/cache"

	"minidash/internal/ingest"
	"minidash/internal/rows"
)

// ErrSampleUnavailable wraps every failure to read or decode the sample file
var ErrSampleUnavailable = errors.New("sample data unavailable")

// Loader serves the sample file, keeping the decoded rows in memory for a while
type Loader struct {
	path   string
	cache  *cache.Cache[string, []rows.Row]
	logger *slog.Logger
}

// NewLoader creates a loader for path. A non-positive ttl reads the file on every call.
func NewLoader(path string, ttl time.Duration, logger *slog.Logger) *Loader {
	l := &Loader{path: path, logger: logger}
	if ttl > 0 {
		l.cache = cache.NewCache[string, []rows.Row](logger, ttl, ReadFile)
	}
	return l
}

// Path returns the file the loader reads
func (l *Loader) Path() string {
	return l.path
}

// Load returns the sample rows
func (l *Loader) Load() ([]rows.Row, error) {
	if l.cache == nil {
		return ReadFile(l.path)
	}
	return l.cache.Get(l.path)
}

// Invalidate drops the cached copy so the next Load rereads the file
func (l *Loader) Invalidate() {
	if l.cache != nil {
		l.cache.Clear()
	}
}

// ReadFile reads and normalizes a sample file. The file must hold a JSON array
// of row objects; missing or unparsable files are errors.
func ReadFile(path string) ([]rows.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSampleUnavailable, err)
	}

	records, err := ingest.ParseJSONRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSampleUnavailable, path, err)
	}
	return rows.NormalizeAll(records), nil
}
