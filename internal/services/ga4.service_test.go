package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/logging"
	"github.com/platformbuilds/ga4-insights/internal/models"
)

const runReportPath = "/v1beta/properties/123:runReport"

func newTestGA4Service(t *testing.T, srv *httptest.Server, cfg config.GA4Config) *GA4Service {
	t.Helper()
	if cfg.PropertyID == "" {
		cfg.PropertyID = "123"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	svc, err := NewGA4Service(context.Background(), cfg, nil, logging.New(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return svc
}

func writeGA4Error(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg, "status": http.StatusText(code)},
	})
}

func TestGA4Service_RunReport(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, runReportPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dimensionHeaders": [{"name": "city"}],
			"metricHeaders": [{"name": "activeUsers", "type": "TYPE_INTEGER"}],
			"rows": [
				{"dimensionValues": [{"value": "Madrid"}], "metricValues": [{"value": "42"}]},
				{"dimensionValues": [{"value": "Bilbao"}], "metricValues": [{"value": "2"}]}
			],
			"rowCount": 2
		}`))
	}))
	defer srv.Close()

	svc := newTestGA4Service(t, srv, config.GA4Config{RowLimit: 500, Retries: 1})
	assert.Equal(t, "properties/123", svc.Property())

	rows, err := svc.RunReport(context.Background(), models.ReportSpec{
		Metrics:    []string{"activeUsers"},
		Dimensions: []string{"city"},
		DateRange:  models.DateRange{StartDate: "7daysAgo", EndDate: "today"},
		DimensionFilter: &models.FilterExpression{AndGroup: []models.FilterExpression{
			{Filter: &models.StringFilter{FieldName: "city", MatchType: models.MatchTypeContains, Value: "mad"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.ReportRow{
		{DimensionValues: []string{"Madrid"}, MetricValues: []string{"42"}},
		{DimensionValues: []string{"Bilbao"}, MetricValues: []string{"2"}},
	}, rows)

	// request body carries the report definition
	assert.Equal(t, "500", got["limit"])
	assert.Equal(t, []any{map[string]any{"name": "activeUsers"}}, got["metrics"])
	assert.Equal(t, []any{map[string]any{"startDate": "7daysAgo", "endDate": "today"}}, got["dateRanges"])
	filter := got["dimensionFilter"].(map[string]any)
	exprs := filter["andGroup"].(map[string]any)["expressions"].([]any)
	require.Len(t, exprs, 1)
	f := exprs[0].(map[string]any)["filter"].(map[string]any)
	assert.Equal(t, "city", f["fieldName"])
	assert.Equal(t, map[string]any{"matchType": "CONTAINS", "value": "mad"}, f["stringFilter"])
}

func TestGA4Service_NoFilterOmitted(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	rows, err := newTestGA4Service(t, srv, config.GA4Config{Retries: 1}).RunReport(context.Background(), models.ReportSpec{
		Metrics:   []string{"sessions"},
		DateRange: models.DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"},
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	_, hasFilter := got["dimensionFilter"]
	assert.False(t, hasFilter)
}

func TestGA4Service_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeGA4Error(w, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
		_, _ = w.Write([]byte(`{"rows":[{"metricValues":[{"value":"7"}]}]}`))
	}))
	defer srv.Close()

	svc := newTestGA4Service(t, srv, config.GA4Config{Retries: 3})
	rows, err := svc.RunReport(context.Background(), models.ReportSpec{Metrics: []string{"sessions"}})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{"7"}, rows[0].MetricValues)
}

func TestGA4Service_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeGA4Error(w, http.StatusInternalServerError, "internal")
	}))
	defer srv.Close()

	_, err := newTestGA4Service(t, srv, config.GA4Config{Retries: 2}).RunReport(context.Background(), models.ReportSpec{Metrics: []string{"sessions"}})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	var berr *models.BackendError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, http.StatusInternalServerError, berr.StatusCode)
	assert.True(t, berr.Retryable())
}

func TestGA4Service_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeGA4Error(w, http.StatusBadRequest, "Field bogus is not a valid metric.")
	}))
	defer srv.Close()

	_, err := newTestGA4Service(t, srv, config.GA4Config{Retries: 3}).RunReport(context.Background(), models.ReportSpec{Metrics: []string{"bogus"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var berr *models.BackendError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, http.StatusBadRequest, berr.StatusCode)
	assert.Contains(t, berr.Message, "not a valid metric")
	assert.Equal(t, "backend", models.Category(err))
}

func TestGA4Service_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	svc := newTestGA4Service(t, srv, config.GA4Config{Retries: 1, Timeout: 50 * time.Millisecond})
	_, err := svc.RunReport(context.Background(), models.ReportSpec{Metrics: []string{"sessions"}})
	require.Error(t, err)

	var berr *models.BackendError
	require.True(t, errors.As(err, &berr))
	assert.True(t, berr.Timeout)
}

func TestNewGA4Service_RequiresProperty(t *testing.T) {
	_, err := NewGA4Service(context.Background(), config.GA4Config{}, nil, nil, option.WithoutAuthentication())
	assert.Error(t, err)
}
