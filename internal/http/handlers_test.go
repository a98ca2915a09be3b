// Package http_test contains tests for the API handlers
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidash/internal/ga4"
	"minidash/internal/reports"
	"minidash/internal/rows"
	"minidash/internal/sample"
	"minidash/internal/testsupport"
)

type fakeReporter struct {
	mu       sync.Mutex
	demo     []ga4.DemoRow
	channels []rows.Row
	err      error
	days     []int
}

func (f *fakeReporter) DemoReport(ctx context.Context) ([]ga4.DemoRow, error) {
	return f.demo, f.err
}

func (f *fakeReporter) ChannelReport(ctx context.Context, days int) ([]rows.Row, error) {
	f.mu.Lock()
	f.days = append(f.days, days)
	f.mu.Unlock()
	return f.channels, f.err
}

func testDay() time.Time {
	return time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
}

func sampleRows() []rows.Row {
	return sample.NewGenerator(70, testDay()).Generate()
}

type testApp struct {
	app   *fiber.App
	store *reports.Store
}

func newTestApp(t *testing.T, reporter ga4.Reporter, reporterErr error) testApp {
	t.Helper()

	db := testsupport.SetupTestDB(t)
	cfg := testsupport.NewTestConfig(t)
	cfg.SampleDataPath = testsupport.WriteSampleFile(t, sampleRows())

	deps := testsupport.NewDependencies(t, cfg, db)
	deps.Reporter = reporter
	deps.ReporterErr = reporterErr

	return testApp{
		app:   testsupport.CreateMinimalTestApp(t, db, deps),
		store: deps.Reports,
	}
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), "body: %s", string(body))
	return out
}

func TestHealthIndexAction(t *testing.T) {
	ta := newTestApp(t, nil, ga4.ErrMissingPropertyID)

	resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/health", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, body)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, map[string]interface{}{
		"GA4_PROPERTY_ID":                     false,
		"GOOGLE_APPLICATION_CREDENTIALS_JSON": false,
		"BIGQUERY_PROJECT_ID":                 false,
	}, out["env"])

	cache := out["cache"].(map[string]interface{})
	assert.Equal(t, true, cache["enabled"])
	assert.Equal(t, "ok", cache["db_status"])

	ts, ok := out["ts"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(ts, "Z"), "timestamp should be UTC: %s", ts)
}

func TestGA4DemoIndexAction(t *testing.T) {
	t.Run("reports missing configuration", func(t *testing.T) {
		ta := newTestApp(t, nil, ga4.ErrMissingPropertyID)

		resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/ga4-demo", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		out := decode(t, body)
		assert.Equal(t, false, out["ok"])
		assert.Equal(t, "Missing GA4_PROPERTY_ID environment variable", out["error"])
	})

	t.Run("returns report rows", func(t *testing.T) {
		reporter := &fakeReporter{demo: []ga4.DemoRow{
			{Date: "2024-05-01", Sessions: 12, Users: 9},
			{Date: "2024-05-02", Sessions: 20, Users: 15},
		}}
		ta := newTestApp(t, reporter, nil)

		resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/ga4-demo", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decode(t, body)
		assert.Equal(t, true, out["ok"])
		reportRows := out["rows"].([]interface{})
		require.Len(t, reportRows, 2)
		assert.Equal(t, map[string]interface{}{"date": "2024-05-01", "sessions": float64(12), "users": float64(9)}, reportRows[0])
	})

	t.Run("empty report is an empty list", func(t *testing.T) {
		ta := newTestApp(t, &fakeReporter{}, nil)

		_, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/ga4-demo", nil))
		assert.Equal(t, []interface{}{}, decode(t, body)["rows"])
	})

	t.Run("upstream failure", func(t *testing.T) {
		ta := newTestApp(t, &fakeReporter{err: ga4.ErrUpstreamUnavailable}, nil)

		resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/ga4-demo", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, ga4.ErrUpstreamUnavailable.Error(), decode(t, body)["error"])
	})
}

func TestGA4DashboardAction(t *testing.T) {
	reporter := &fakeReporter{channels: sampleRows()}
	ta := newTestApp(t, reporter, nil)

	resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/ga4/dashboard?range=60", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, body)
	assert.Equal(t, "ga4", out["source"])
	dashboard := out["dashboard"].(map[string]interface{})
	assert.Equal(t, float64(60), dashboard["range"])
	assert.Equal(t, float64(60), dashboard["current_dates"])
	assert.Equal(t, []int{60}, reporter.days)

	resp, _ = doRequest(t, ta.app, httptest.NewRequest("GET", "/api/ga4/dashboard?range=45", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, reporter.days, 1, "invalid range must not reach upstream")
}

func TestSampleIndexAction(t *testing.T) {
	t.Run("returns normalized sample rows", func(t *testing.T) {
		ta := newTestApp(t, nil, nil)

		resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/sample", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decode(t, body)
		assert.Equal(t, true, out["ok"])
		sampled := out["rows"].([]interface{})
		assert.Len(t, sampled, len(sampleRows()))

		first := sampled[0].(map[string]interface{})
		for _, key := range []string{"date", "medium", "sessions", "users", "pageviews", "conversions", "revenue", "users_new", "users_returning"} {
			assert.Contains(t, first, key)
		}
	})

	t.Run("missing sample file", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		cfg := testsupport.NewTestConfig(t)
		cfg.SampleDataPath = t.TempDir() + "/missing.json"
		app := testsupport.CreateMinimalTestApp(t, db, testsupport.NewDependencies(t, cfg, db))

		resp, body := doRequest(t, app, httptest.NewRequest("GET", "/api/sample", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		out := decode(t, body)
		assert.Equal(t, false, out["ok"])
		assert.Contains(t, out["error"], "sample data unavailable")
	})
}

func TestSampleDashboardAction(t *testing.T) {
	ta := newTestApp(t, nil, nil)

	resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/sample/dashboard", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dashboard := decode(t, body)["dashboard"].(map[string]interface{})
	assert.Equal(t, float64(30), dashboard["range"])
	assert.Equal(t, float64(30), dashboard["current_dates"])
	assert.Equal(t, float64(30), dashboard["previous_dates"])
	assert.Equal(t, false, dashboard["empty"])
	assert.Len(t, dashboard["sparkline"], 30)

	resp, body = doRequest(t, ta.app, httptest.NewRequest("GET", "/api/sample/dashboard?range=7", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, decode(t, body)["ok"])
}

func TestSampleSparklineAction(t *testing.T) {
	ta := newTestApp(t, nil, nil)

	resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/sample/sparkline.png?w=200&h=50", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	resp, _ = doRequest(t, ta.app, httptest.NewRequest("GET", "/api/sample/sparkline.png?w=5000", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseCreateAction(t *testing.T) {
	ta := newTestApp(t, nil, nil)

	postJSON := func(payload map[string]interface{}) (*http.Response, map[string]interface{}) {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/api/parse", bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		resp, body := doRequest(t, ta.app, req)
		return resp, decode(t, body)
	}

	t.Run("parses CSV text", func(t *testing.T) {
		csv := "date,medium,sessions,users,pageviews\n2024-01-01,organic,10,8,20\n2024-01-02,cpc,5,4,9\n"
		resp, out := postJSON(map[string]interface{}{"text": csv, "range": "30"})
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", out)

		assert.Equal(t, "csv", out["format"])
		parsed := out["rows"].([]interface{})
		require.Len(t, parsed, 2)
		assert.Equal(t, "organic", parsed[0].(map[string]interface{})["medium"])
		assert.Equal(t, "direct", parsed[1].(map[string]interface{})["medium"], "unknown mediums fall back to the default category")

		dashboard := out["dashboard"].(map[string]interface{})
		assert.Equal(t, float64(2), dashboard["current_dates"])
	})

	t.Run("parses JSON text", func(t *testing.T) {
		text := `[{"date":"2024-01-01","medium":"email","sessions":"7","revenue":"12.5"},{"sessions":3}]`
		resp, out := postJSON(map[string]interface{}{"text": text})
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", out)

		assert.Equal(t, "json", out["format"])
		parsed := out["rows"].([]interface{})
		require.Len(t, parsed, 1, "rows without a date are dropped")
		row := parsed[0].(map[string]interface{})
		assert.Equal(t, float64(7), row["sessions"])
		assert.Equal(t, 12.5, row["revenue"])
	})

	t.Run("malformed JSON", func(t *testing.T) {
		resp, out := postJSON(map[string]interface{}{"text": `[{"date": "2024-01-01",`})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, false, out["ok"])
		assert.Equal(t, "json", out["format"])
		assert.NotEmpty(t, out["error"])
	})

	t.Run("empty input", func(t *testing.T) {
		resp, out := postJSON(map[string]interface{}{"text": "   "})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "No rows parsed from input", out["error"])
	})

	t.Run("invalid range", func(t *testing.T) {
		resp, out := postJSON(map[string]interface{}{"text": "date,sessions\n2024-01-01,1\n", "range": "45"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "range must be one of 30, 60 or 90", out["error"])
	})

	t.Run("raw CSV body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/parse?range=60d", strings.NewReader("date,sessions\n2024-01-01,4\n"))
		req.Header.Set("Content-Type", "text/csv")
		resp, body := doRequest(t, ta.app, req)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", string(body))

		out := decode(t, body)
		assert.Equal(t, "csv", out["format"])
		assert.Equal(t, float64(60), out["dashboard"].(map[string]interface{})["range"])
	})

	t.Run("oversized input is measured in bytes", func(t *testing.T) {
		// two-byte runes: under the limit in runes, over it in bytes
		text := "date,medium\n2024-01-01," + strings.Repeat("é", 1<<20+1) + "\n"
		req := httptest.NewRequest("POST", "/api/parse", strings.NewReader(text))
		req.Header.Set("Content-Type", "text/csv")
		resp, body := doRequest(t, ta.app, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "text exceeds the maximum size of 2097152 bytes", decode(t, body)["error"])
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/parse", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := doRequest(t, ta.app, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCachePurgeAction(t *testing.T) {
	ta := newTestApp(t, nil, nil)

	key := reports.Key(ga4.ReportChannels, "properties/1", "30")
	require.NoError(t, ta.store.Put(context.Background(), key, ga4.ReportChannels, []rows.Row{{Date: "2024-01-01", Medium: rows.Direct, Sessions: 1}}))

	resp, body := doRequest(t, ta.app, httptest.NewRequest("POST", "/api/cache/purge", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, body)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(1), out["reports_deleted"])

	_, found, err := ta.store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMetricsIndexAction(t *testing.T) {
	ta := newTestApp(t, nil, nil)

	doRequest(t, ta.app, httptest.NewRequest("GET", "/api/health", nil))

	resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "minidash_api_requests_total")
}

func TestUnknownErrorsKeepEnvelope(t *testing.T) {
	ta := newTestApp(t, &fakeReporter{err: errors.New("quota exceeded")}, nil)

	resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/api/ga4/dashboard", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"ok": false, "error": "quota exceeded"}, decode(t, body))
}

func TestDashboardPageAction(t *testing.T) {
	ta := newTestApp(t, nil, nil)

	resp, body := doRequest(t, ta.app, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	page := string(body)
	assert.Contains(t, page, "/dashboard?range=")
	assert.Contains(t, page, "/api/parse")
	assert.Contains(t, page, "/api/sample/sparkline.png")

	// the endpoint the page loads first must answer with a summary
	resp, body = doRequest(t, ta.app, httptest.NewRequest("GET", "/api/sample/dashboard?range=30", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dashboard := decode(t, body)["dashboard"].(map[string]interface{})
	summary, ok := dashboard["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, summary["total_visits"])
}
