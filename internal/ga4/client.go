package ga4

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"minidash/internal/channels"
	"minidash/internal/metrics"
	"minidash/internal/rows"
)

// Report names used for metrics, logging and cache keys
const (
	ReportDemo     = "ga4_demo"
	ReportChannels = "ga4_channels"
)

const maxReportRows = 100000

// DemoRow is one day of the fixed seven day report
type DemoRow struct {
	Date     string `json:"date"`
	Sessions int64  `json:"sessions"`
	Users    int64  `json:"users"`
}

// Reporter produces upstream analytics reports
type Reporter interface {
	// DemoReport returns sessions and users for the last seven complete days.
	DemoReport(ctx context.Context) ([]DemoRow, error)
	// ChannelReport returns per-category rows covering two windows of days,
	// enough to compare the current window with the previous one.
	ChannelReport(ctx context.Context, days int) ([]rows.Row, error)
}

// Client calls the Data API runReport method
type Client struct {
	svc        *analyticsdata.Service
	property   string
	classifier *channels.Classifier
	logger     *slog.Logger
}

// NewClient authenticates with a service-account JWT and prepares the Data API service.
// No network call is made until a report is requested.
func NewClient(ctx context.Context, settings *Settings, classifier *channels.Classifier, logger *slog.Logger, timeout time.Duration) (*Client, error) {
	tokenURL := settings.Credentials.TokenURI
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}

	jwtCfg := &jwt.Config{
		Email:        settings.Credentials.ClientEmail,
		PrivateKey:   []byte(settings.Credentials.PrivateKey),
		PrivateKeyID: settings.Credentials.PrivateKeyID,
		Scopes:       []string{analyticsdata.AnalyticsReadonlyScope},
		TokenURL:     tokenURL,
	}

	// token requests and API calls share the same bounded transport
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := jwtCfg.Client(ctx)
	httpClient.Timeout = timeout

	svc, err := analyticsdata.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics data service: %w", err)
	}

	return NewClientWithService(svc, settings.Property(), classifier, logger), nil
}

// NewClientWithService wraps an existing service, used by tests pointing at a fake endpoint
func NewClientWithService(svc *analyticsdata.Service, property string, classifier *channels.Classifier, logger *slog.Logger) *Client {
	return &Client{
		svc:        svc,
		property:   property,
		classifier: classifier,
		logger:     logger,
	}
}

func (c *Client) runReport(ctx context.Context, report string, req *analyticsdata.RunReportRequest) (*analyticsdata.RunReportResponse, error) {
	start := time.Now()
	resp, err := c.svc.Properties.RunReport(c.property, req).Context(ctx).Do()
	metrics.RecordUpstreamCall(report, err, time.Since(start))
	if err != nil {
		c.logger.Error("Analytics report request failed",
			slog.String("report", report),
			slog.String("property", c.property),
			slog.Any("error", err))
		return nil, fmt.Errorf("analytics report request failed: %w", err)
	}

	c.logger.Debug("Analytics report fetched",
		slog.String("report", report),
		slog.Int("rows", len(resp.Rows)),
		slog.Duration("duration", time.Since(start)))
	return resp, nil
}

// DemoReport fetches daily sessions and total users for 7daysAgo..yesterday
func (c *Client) DemoReport(ctx context.Context) ([]DemoRow, error) {
	resp, err := c.runReport(ctx, ReportDemo, &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: "7daysAgo", EndDate: "yesterday"}},
		Dimensions: []*analyticsdata.Dimension{{Name: "date"}},
		Metrics:    []*analyticsdata.Metric{{Name: "sessions"}, {Name: "totalUsers"}},
		OrderBys:   []*analyticsdata.OrderBy{{Dimension: &analyticsdata.DimensionOrderBy{DimensionName: "date"}}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]DemoRow, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		out = append(out, DemoRow{
			Date:     reportDate(dimensionValue(row, 0)),
			Sessions: leadingInt(metricValue(row, 0)),
			Users:    leadingInt(metricValue(row, 1)),
		})
	}
	return out, nil
}

// ChannelReport fetches per-medium metrics for the last 2*days complete days and
// folds mediums into dashboard categories.
func (c *Client) ChannelReport(ctx context.Context, days int) ([]rows.Row, error) {
	if days <= 0 {
		return nil, fmt.Errorf("invalid report length: %d days", days)
	}

	resp, err := c.runReport(ctx, ReportChannels, &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: fmt.Sprintf("%ddaysAgo", days*2), EndDate: "yesterday"}},
		Dimensions: []*analyticsdata.Dimension{{Name: "date"}, {Name: "sessionMedium"}},
		Metrics: []*analyticsdata.Metric{
			{Name: "sessions"},
			{Name: "totalUsers"},
			{Name: "screenPageViews"},
			{Name: "keyEvents"},
			{Name: "totalRevenue"},
			{Name: "newUsers"},
		},
		OrderBys: []*analyticsdata.OrderBy{{Dimension: &analyticsdata.DimensionOrderBy{DimensionName: "date"}}},
		Limit:    maxReportRows,
	})
	if err != nil {
		return nil, err
	}

	normalized := make([]rows.Row, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		record := rows.Record{
			rows.FieldDate:        rows.StringField(reportDate(dimensionValue(row, 0))),
			rows.FieldMedium:      rows.StringField(string(c.classifier.Classify(dimensionValue(row, 1)))),
			rows.FieldSessions:    rows.StringField(metricValue(row, 0)),
			rows.FieldUsers:       rows.StringField(metricValue(row, 1)),
			rows.FieldPageviews:   rows.StringField(metricValue(row, 2)),
			rows.FieldConversions: rows.StringField(metricValue(row, 3)),
			rows.FieldRevenue:     rows.StringField(metricValue(row, 4)),
			rows.FieldUsersNew:    rows.StringField(metricValue(row, 5)),
		}
		normalized = append(normalized, rows.Normalize(record))
	}

	return rows.SortByDate(mergeByDateAndCategory(normalized)), nil
}

// mergeByDateAndCategory sums rows whose mediums were folded into the same category
func mergeByDateAndCategory(in []rows.Row) []rows.Row {
	type key struct {
		date     string
		category rows.Category
	}

	index := make(map[key]int, len(in))
	out := make([]rows.Row, 0, len(in))
	for _, r := range in {
		k := key{r.Date, r.Medium}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		m := &out[i]
		m.Sessions += r.Sessions
		m.Users += r.Users
		m.Pageviews += r.Pageviews
		m.Conversions += r.Conversions
		m.Revenue += r.Revenue
		m.UsersNew += r.UsersNew
		m.UsersReturning += r.UsersReturning
	}
	return out
}

func dimensionValue(row *analyticsdata.Row, i int) string {
	if row == nil || i >= len(row.DimensionValues) || row.DimensionValues[i] == nil {
		return ""
	}
	return row.DimensionValues[i].Value
}

func metricValue(row *analyticsdata.Row, i int) string {
	if row == nil || i >= len(row.MetricValues) || row.MetricValues[i] == nil {
		return "0"
	}
	return row.MetricValues[i].Value
}

// reportDate converts the API's YYYYMMDD form to YYYY-MM-DD
func reportDate(raw string) string {
	if t, ok := rows.ParseDate(raw); ok {
		return t.Format(rows.DateLayout)
	}
	return strings.TrimSpace(raw)
}

// leadingInt parses the leading integer of s, returning 0 when there is none.
// "12.7" yields 12 and "abc" yields 0.
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		return -n
	}
	return n
}
