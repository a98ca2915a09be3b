package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"minidash/internal"
	"minidash/internal/config"
	"minidash/internal/database"
	"minidash/internal/http"
	"minidash/internal/reports"
	"minidash/internal/rows"
	"minidash/internal/sample"
)

// testDBCache caches test databases by test name so repeated calls within
// the same test share one database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates an in-memory database with every model migrated.
// cache=shared lets the pool's connections see the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", rootName, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// NewTestConfig loads a configuration for the test environment with upstream
// credentials cleared and caches enabled
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Environment = config.Test
	cfg.GA4PropertyID = ""
	cfg.CredentialsJSON = ""
	cfg.BigQueryProjectID = ""
	cfg.ReportCacheTTLSeconds = 300
	cfg.SampleCacheTTLSeconds = 60
	return cfg
}

// WriteSampleFile stores rows as a sample file in a temporary directory and returns its path
func WriteSampleFile(t *testing.T, in []rows.Row) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample_analytics.json")
	require.NoError(t, sample.WriteFile(path, in))
	return path
}

// NewDependencies builds handler dependencies around db. The reporter is
// left for the caller to set.
func NewDependencies(t *testing.T, cfg *config.Config, db *gorm.DB) http.Dependencies {
	t.Helper()

	return http.Dependencies{
		Config:  cfg,
		Sample:  sample.NewLoader(cfg.SampleDataPath, cfg.SampleCacheTTL(), GetLogger()),
		Reports: reports.NewStore(db, cfg.ReportCacheTTL(), GetLogger()),
	}
}

// CreateMinimalTestApp creates a server with the API mounted on deps
func CreateMinimalTestApp(t *testing.T, db *gorm.DB, deps http.Dependencies) *fiber.App {
	t.Helper()

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = deps.Config
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)
	// API clients are scripts and other origins, so no Sec-Fetch-Site header is sent
	cfg.EnableSecFetchSite = false

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAPIRoutes(srv, deps.Config, http.NewHandlers(deps))
	return srv.App()
}
