package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/logging"
	"github.com/platformbuilds/ga4-insights/internal/metrics"
	"github.com/platformbuilds/ga4-insights/internal/models"
)

// ReportBackend executes one report request against the analytics backend.
type ReportBackend interface {
	RunReport(ctx context.Context, spec models.ReportSpec) ([]models.ReportRow, error)
}

// GA4Service runs reports through the Google Analytics Data API.
type GA4Service struct {
	svc           *analyticsdata.Service
	property      string
	timeout       time.Duration
	retries       int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	rowLimit      int64
	logger        logging.Logger
}

// NewGA4Service creates the Data API client. creds may be nil when opts
// already carry authentication (or disable it, as tests do).
func NewGA4Service(ctx context.Context, cfg config.GA4Config, creds *CredentialStore, logger logging.Logger, opts ...option.ClientOption) (*GA4Service, error) {
	if strings.TrimSpace(cfg.PropertyID) == "" {
		return nil, errors.New("GA4 property id is required")
	}

	clientOpts := []option.ClientOption{option.WithScopes(analyticsdata.AnalyticsReadonlyScope)}
	if creds != nil {
		raw, err := creds.Load()
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(raw))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := analyticsdata.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GA4 client: %w", err)
	}

	s := &GA4Service{
		svc:           svc,
		property:      "properties/" + strings.TrimSpace(cfg.PropertyID),
		timeout:       cfg.Timeout,
		retries:       cfg.Retries,
		retryDelay:    cfg.RetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		rowLimit:      cfg.RowLimit,
		logger:        logging.OrNop(logger),
	}
	if s.timeout <= 0 {
		s.timeout = time.Duration(config.DefaultGA4Timeout) * time.Second
	}
	if s.retries < 1 {
		s.retries = 1
	}
	if s.retryDelay <= 0 {
		s.retryDelay = time.Duration(config.DefaultRetryDelay) * time.Millisecond
	}
	if s.maxRetryDelay < s.retryDelay {
		s.maxRetryDelay = s.retryDelay
	}
	return s, nil
}

// Property returns the resource name reports are run against.
func (s *GA4Service) Property() string { return s.property }

// RunReport executes spec, retrying transport errors and 5xx responses with
// exponential backoff. Every failure is returned as *models.BackendError.
func (s *GA4Service) RunReport(ctx context.Context, spec models.ReportSpec) ([]models.ReportRow, error) {
	req := toRunReportRequest(spec, s.rowLimit)
	start := time.Now()
	attempt := 0

	op := func() ([]models.ReportRow, error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		resp, err := s.svc.Properties.RunReport(s.property, req).Context(callCtx).Do()
		if err == nil {
			metrics.RecordBackendAttempt("success")
			return fromRunReportResponse(resp), nil
		}

		berr := classifyBackendError(err)
		if !berr.Retryable() || ctx.Err() != nil || attempt >= s.retries {
			metrics.RecordBackendAttempt("error")
			return nil, backoff.Permanent(berr)
		}
		metrics.RecordBackendAttempt("retry")
		s.logger.Warn("GA4 report failed, retrying",
			"attempt", attempt, "property", s.property, "status", berr.StatusCode, "error", berr.Message)
		return nil, berr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryDelay
	bo.MaxInterval = s.maxRetryDelay

	rows, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(s.retries)),
	)
	if err != nil {
		var berr *models.BackendError
		if !errors.As(err, &berr) {
			// cancelled while waiting between attempts
			berr = classifyBackendError(err)
		}
		s.logger.Error("GA4 report failed",
			"property", s.property, "attempts", attempt, "status", berr.StatusCode, "error", berr.Message)
		return nil, berr
	}

	metrics.RecordBackendReport(time.Since(start), len(rows))
	s.logger.Debug("GA4 report executed",
		"property", s.property, "attempts", attempt, "rows", len(rows), "duration", time.Since(start))
	return rows, nil
}

func classifyBackendError(err error) *models.BackendError {
	var gerr *googleapi.Error
	switch {
	case errors.As(err, &gerr):
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &models.BackendError{StatusCode: gerr.Code, Message: msg, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &models.BackendError{Message: "request timed out", Timeout: true, Err: err}
	default:
		return &models.BackendError{Message: err.Error(), Err: err}
	}
}

func toRunReportRequest(spec models.ReportSpec, limit int64) *analyticsdata.RunReportRequest {
	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{
			StartDate: spec.DateRange.StartDate,
			EndDate:   spec.DateRange.EndDate,
		}},
		Metrics:    make([]*analyticsdata.Metric, 0, len(spec.Metrics)),
		Dimensions: make([]*analyticsdata.Dimension, 0, len(spec.Dimensions)),
		Limit:      limit,
	}
	for _, m := range spec.Metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m})
	}
	for _, d := range spec.Dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: d})
	}
	if spec.DimensionFilter != nil {
		req.DimensionFilter = toFilterExpression(*spec.DimensionFilter)
	}
	return req
}

func toFilterExpression(expr models.FilterExpression) *analyticsdata.FilterExpression {
	if expr.Filter != nil {
		return &analyticsdata.FilterExpression{
			Filter: &analyticsdata.Filter{
				FieldName: expr.Filter.FieldName,
				StringFilter: &analyticsdata.StringFilter{
					MatchType:     expr.Filter.MatchType,
					Value:         expr.Filter.Value,
					CaseSensitive: expr.Filter.CaseSensitive,
				},
			},
		}
	}
	group := &analyticsdata.FilterExpressionList{
		Expressions: make([]*analyticsdata.FilterExpression, 0, len(expr.AndGroup)),
	}
	for _, e := range expr.AndGroup {
		group.Expressions = append(group.Expressions, toFilterExpression(e))
	}
	return &analyticsdata.FilterExpression{AndGroup: group}
}

func fromRunReportResponse(resp *analyticsdata.RunReportResponse) []models.ReportRow {
	if resp == nil {
		return []models.ReportRow{}
	}
	rows := make([]models.ReportRow, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		if r == nil {
			continue
		}
		row := models.ReportRow{
			DimensionValues: make([]string, 0, len(r.DimensionValues)),
			MetricValues:    make([]string, 0, len(r.MetricValues)),
		}
		for _, v := range r.DimensionValues {
			row.DimensionValues = append(row.DimensionValues, valueOf(v))
		}
		for _, v := range r.MetricValues {
			var s string
			if v != nil {
				s = v.Value
			}
			row.MetricValues = append(row.MetricValues, s)
		}
		rows = append(rows, row)
	}
	return rows
}

func valueOf(v *analyticsdata.DimensionValue) string {
	if v == nil {
		return ""
	}
	return v.Value
}
