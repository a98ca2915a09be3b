package sample

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidash/internal/rows"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerator(t *testing.T) {
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(10, end)

	generated := g.Generate()
	require.Len(t, generated, 10*len(rows.Categories()))
	assert.Equal(t, "2024-03-22", generated[0].Date)
	assert.Equal(t, "2024-03-31", generated[len(generated)-1].Date)
	assert.Equal(t, generated, g.Generate(), "generation is deterministic")

	for _, r := range generated {
		assert.GreaterOrEqual(t, r.Sessions, 0.0)
		assert.LessOrEqual(t, r.UsersNew, r.Users)
		assert.Equal(t, r.Users-r.UsersNew, r.UsersReturning)
		assert.True(t, rows.IsValidCategory(r.Medium))
	}

	assert.Empty(t, NewGenerator(0, end).Generate())
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.json")
	generated := NewGenerator(3, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)).Generate()

	require.NoError(t, WriteFile(path, generated))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, generated, loaded)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrSampleUnavailable)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`[{"date":`), 0o644))
	_, err = ReadFile(corrupt)
	assert.ErrorIs(t, err, ErrSampleUnavailable)
}

func TestLoaderCachesUntilInvalidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"date":"2024-01-01","sessions":5}]`), 0o644))

	l := NewLoader(path, time.Minute, testLogger())
	first, err := l.Load()
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 5.0, first[0].Sessions)
	assert.Equal(t, rows.Direct, first[0].Medium)

	require.NoError(t, os.WriteFile(path, []byte(`[{"date":"2024-01-01","sessions":9}]`), 0o644))
	cached, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 5.0, cached[0].Sessions)

	l.Invalidate()
	fresh, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 9.0, fresh[0].Sessions)
}

func TestLoaderWithoutCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.json")
	l := NewLoader(path, 0, testLogger())
	assert.Equal(t, path, l.Path())

	_, err := l.Load()
	assert.ErrorIs(t, err, ErrSampleUnavailable)
	l.Invalidate()
}
