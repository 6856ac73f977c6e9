package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platformbuilds/ga4-insights/internal/api/handlers"
	"github.com/platformbuilds/ga4-insights/internal/api/middleware"
	"github.com/platformbuilds/ga4-insights/internal/models"
)

type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: timeout}}
}

// APIError is a non-2xx response from the server. Fallback is set when the
// server could fetch the report but not summarize it.
type APIError struct {
	Status   int
	Code     string
	Message  string
	Fallback *models.QueryResult
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	var body middleware.FallbackResponse
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &APIError{Status: status, Message: strings.TrimSpace(string(data))}
	}
	apiErr := &APIError{Status: status, Code: body.Code, Message: body.Error}
	if body.Code == "SUMMARIZATION_FAILED" {
		apiErr.Fallback = &models.QueryResult{Rows: body.Rows, Insights: body.Insights}
	}
	return apiErr
}

func (c *client) Query(ctx context.Context, req models.GA4Request) (*models.QueryResult, error) {
	var resp handlers.ReportResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/ga4", req, &resp); err != nil {
		return nil, err
	}
	return &models.QueryResult{Rows: resp.Rows, Insights: resp.Insights}, nil
}

func (c *client) Ask(ctx context.Context, message string) (string, error) {
	var resp handlers.AnswerResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/ga4", models.GA4Request{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}

func (c *client) Schema(ctx context.Context) (*handlers.SchemaResponse, error) {
	var resp handlers.SchemaResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/ga4/schema", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// fallbackOf returns the report carried by a summarization failure, if any.
func fallbackOf(err error) *models.QueryResult {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fallback
	}
	return nil
}
