package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/ga4-insights/internal/models"
	"github.com/platformbuilds/ga4-insights/internal/schema"
	"github.com/platformbuilds/ga4-insights/internal/services"
	"github.com/platformbuilds/ga4-insights/internal/validation"
)

type fakeBackend struct {
	mu    sync.Mutex
	specs []models.ReportSpec
	rows  []models.ReportRow
	err   error
}

func (f *fakeBackend) RunReport(_ context.Context, spec models.ReportSpec) ([]models.ReportRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	return f.rows, f.err
}

func (f *fakeBackend) Property() string { return "123" }

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.specs)
}

type fakeLLM struct {
	call    *services.ToolCall
	callErr error

	answer     string
	summaryErr error

	system        string
	toolName      string
	summaryResult []byte
	toolCalls     int
	summaryCalls  int
}

func (f *fakeLLM) CallTool(_ context.Context, system, _ string, tool services.ToolDefinition) (*services.ToolCall, error) {
	f.toolCalls++
	f.system = system
	f.toolName = tool.Name
	return f.call, f.callErr
}

func (f *fakeLLM) Summarize(_ context.Context, _, _ string, _ *services.ToolCall, result []byte) (string, error) {
	f.summaryCalls++
	f.summaryResult = result
	return f.answer, f.summaryErr
}

func (f *fakeLLM) GetProviderName() string { return "fake" }
func (f *fakeLLM) GetModelName() string    { return "fake-1" }

func newOrchestrator(t *testing.T, backend *fakeBackend, llm services.LLMService) *Orchestrator {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	o, err := New(Deps{
		Validator:        validation.NewWithClock(schema.Default(), clock),
		Backend:          backend,
		LLM:              llm,
		ExtractionPrompt: "Extract.",
		SummaryPrompt:    "Summarize.",
		Clock:            clock,
	})
	require.NoError(t, err)
	return o
}

func toolCall(args string) *services.ToolCall {
	return &services.ToolCall{ID: "call_1", Name: "getGa4Report", Arguments: json.RawMessage(args)}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{Backend: &fakeBackend{}})
	assert.Error(t, err)

	_, err = New(Deps{Validator: validation.New(schema.Default())})
	assert.Error(t, err)
}

func TestHandle_StructuredQuery(t *testing.T) {
	backend := &fakeBackend{rows: []models.ReportRow{
		{DimensionValues: []string{"Madrid"}, MetricValues: []string{"85"}},
		{DimensionValues: []string{"Bilbao"}, MetricValues: []string{"10"}},
	}}
	llm := &fakeLLM{}
	o := newOrchestrator(t, backend, llm)

	out, err := o.Handle(context.Background(), models.GA4Request{
		Metrics:    []string{"bounceRate"},
		Dimensions: []string{"city"},
		StartDate:  "2024-06-01",
		EndDate:    "2024-06-07",
		Message:    "ignored when the structured query is complete",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.False(t, out.Conversational)
	assert.Equal(t, []models.NormalizedRow{
		{"city": "Madrid", "bounceRate": "85"},
		{"city": "Bilbao", "bounceRate": "10"},
	}, out.Result.Rows)
	assert.Equal(t, []string{"1 segments have bounce rate above 80%."}, out.Result.Insights)

	assert.Zero(t, llm.toolCalls, "structured queries never reach the model")
	require.Equal(t, 1, backend.calls())
	assert.Equal(t, []string{"bounceRate"}, backend.specs[0].Metrics)
	assert.Nil(t, backend.specs[0].DimensionFilter)
}

func TestHandle_SingularFieldsFolded(t *testing.T) {
	backend := &fakeBackend{}
	o := newOrchestrator(t, backend, nil)

	out, err := o.Handle(context.Background(), models.GA4Request{
		Metric:    "sessions",
		Dimension: "country",
		StartDate: "7daysAgo",
		EndDate:   "today",
	})
	require.NoError(t, err)
	assert.NotNil(t, out.Result.Rows)
	assert.Empty(t, out.Result.Rows)
	assert.Empty(t, out.Result.Insights)
	require.Equal(t, 1, backend.calls())
	assert.Equal(t, []string{"country"}, backend.specs[0].Dimensions)
}

func TestHandle_InvalidNamesNeverReachBackend(t *testing.T) {
	backend := &fakeBackend{}
	o := newOrchestrator(t, backend, nil)

	_, err := o.Handle(context.Background(), models.GA4Request{
		Metrics:    []string{"sessions", "madeUpMetric"},
		Dimensions: []string{"notADimension"},
		StartDate:  "2024-06-01",
		EndDate:    "2024-06-07",
		Filters:    map[string]string{"bogusKey": "x"},
	})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"madeUpMetric"}, ve.Result.InvalidMetrics)
	assert.Equal(t, []string{"notADimension"}, ve.Result.InvalidDimensions)
	assert.Equal(t, []string{"bogusKey"}, ve.Result.InvalidFilterKeys)
	assert.Zero(t, backend.calls())
}

func TestHandle_PartialStructuredQuery(t *testing.T) {
	backend := &fakeBackend{}
	o := newOrchestrator(t, backend, &fakeLLM{})

	_, err := o.Handle(context.Background(), models.GA4Request{Metrics: []string{"sessions"}})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))

	fields := map[string]bool{}
	for _, p := range ve.Problems {
		fields[p.Field] = true
	}
	assert.True(t, fields["dimensions"])
	assert.True(t, fields["startDate"])
	assert.True(t, fields["endDate"])
	assert.Zero(t, backend.calls())
}

func TestHandle_MissingDimensionsIsNotStructured(t *testing.T) {
	backend := &fakeBackend{}
	llm := &fakeLLM{}
	o := newOrchestrator(t, backend, llm)

	_, err := o.Handle(context.Background(), models.GA4Request{
		Metrics: []string{"sessions"}, StartDate: "7daysAgo", EndDate: "today",
	})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Problems, 1)
	assert.Equal(t, "dimensions", ve.Problems[0].Field)
	assert.Zero(t, backend.calls())
	assert.Zero(t, llm.toolCalls)
}

func TestHandle_MessageWithIncompleteStructuredFields(t *testing.T) {
	backend := &fakeBackend{rows: []models.ReportRow{
		{DimensionValues: []string{"Madrid"}, MetricValues: []string{"40"}},
	}}
	llm := &fakeLLM{
		call:   toolCall(`{"metrics":["sessions"],"dimensions":["city"],"startDate":"7daysAgo","endDate":"today"}`),
		answer: "Madrid had 40 sessions.",
	}
	o := newOrchestrator(t, backend, llm)

	out, err := o.Handle(context.Background(), models.GA4Request{
		Metrics:   []string{"sessions"},
		StartDate: "7daysAgo",
		EndDate:   "today",
		Message:   "how many sessions per city last week?",
	})
	require.NoError(t, err)
	assert.True(t, out.Conversational)
	assert.Equal(t, "Madrid had 40 sessions.", out.Answer)
	assert.Equal(t, 1, llm.toolCalls)
	require.Equal(t, 1, backend.calls())
	assert.Equal(t, []string{"city"}, backend.specs[0].Dimensions)
}

func TestHandle_EmptyRequest(t *testing.T) {
	o := newOrchestrator(t, &fakeBackend{}, &fakeLLM{})

	_, err := o.Handle(context.Background(), models.GA4Request{Message: "   "})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Problems, 1)
	assert.Equal(t, "message", ve.Problems[0].Field)
}

func TestHandle_BackendFailure(t *testing.T) {
	for name, tc := range map[string]struct {
		err     error
		timeout bool
	}{
		"typed":    {err: &models.BackendError{StatusCode: 503, Message: "unavailable"}},
		"deadline": {err: context.DeadlineExceeded, timeout: true},
		"other":    {err: errors.New("connection reset")},
	} {
		t.Run(name, func(t *testing.T) {
			o := newOrchestrator(t, &fakeBackend{err: tc.err}, nil)
			_, err := o.Handle(context.Background(), models.GA4Request{
				Metrics: []string{"sessions"}, Dimensions: []string{"date"}, StartDate: "yesterday", EndDate: "today",
			})
			var be *models.BackendError
			require.True(t, errors.As(err, &be))
			assert.Equal(t, tc.timeout, be.Timeout)
			assert.Equal(t, "backend", models.Category(err))
		})
	}
}

func TestHandle_MisalignedRowsAreBackendErrors(t *testing.T) {
	backend := &fakeBackend{rows: []models.ReportRow{
		{DimensionValues: []string{"Madrid", "extra"}, MetricValues: []string{"1"}},
	}}
	o := newOrchestrator(t, backend, nil)

	_, err := o.Handle(context.Background(), models.GA4Request{
		Metrics: []string{"sessions"}, Dimensions: []string{"city"}, StartDate: "yesterday", EndDate: "today",
	})
	var be *models.BackendError
	assert.True(t, errors.As(err, &be))
}

func TestAsk_HappyPath(t *testing.T) {
	backend := &fakeBackend{rows: []models.ReportRow{
		{DimensionValues: []string{"mobile"}, MetricValues: []string{"2"}},
	}}
	llm := &fakeLLM{
		call:   toolCall(`{"metrics":"activeusers","dimensions":["device"],"startDate":"7daysAgo","endDate":"today","filters":{"country":"Spain"}}`),
		answer: "Mobile had 2 active users.",
	}
	o := newOrchestrator(t, backend, llm)

	out, err := o.Handle(context.Background(), models.GA4Request{Message: "How many users on mobile last week?"})
	require.NoError(t, err)
	assert.True(t, out.Conversational)
	assert.Equal(t, "Mobile had 2 active users.", out.Answer)
	assert.Nil(t, out.Result)

	assert.Equal(t, "getGa4Report", llm.toolName)
	assert.Equal(t, "Extract.\nToday is 2024-06-10.", llm.system)

	require.Equal(t, 1, backend.calls())
	spec := backend.specs[0]
	assert.Equal(t, []string{"activeUsers"}, spec.Metrics)
	assert.Equal(t, []string{"deviceCategory"}, spec.Dimensions)
	require.NotNil(t, spec.DimensionFilter)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(llm.summaryResult, &payload))
	assert.Contains(t, payload, "rows")
	assert.Contains(t, payload, "insights")
	assert.Equal(t, 1, llm.summaryCalls)
}

func TestAsk_NoModelConfigured(t *testing.T) {
	o := newOrchestrator(t, &fakeBackend{}, nil)

	_, err := o.Handle(context.Background(), models.GA4Request{Message: "hello"})
	var ee *models.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, models.ReasonNoModel, ee.Reason)
}

func TestAsk_ExtractionFailures(t *testing.T) {
	tests := []struct {
		name     string
		llm      *fakeLLM
		reason   string
		upstream bool
	}{
		{name: "model error", llm: &fakeLLM{callErr: errors.New("502 from provider")}, reason: models.ReasonModelCall, upstream: true},
		{name: "no tool call", llm: &fakeLLM{}, reason: models.ReasonNoToolCall},
		{name: "malformed arguments", llm: &fakeLLM{call: toolCall(`{"metrics":`)}, reason: models.ReasonBadArguments},
		{name: "empty arguments", llm: &fakeLLM{call: toolCall(``)}, reason: models.ReasonBadArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			o := newOrchestrator(t, backend, tt.llm)

			_, err := o.Handle(context.Background(), models.GA4Request{Message: "traffic?"})
			var ee *models.ExtractionError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tt.reason, ee.Reason)
			assert.Equal(t, tt.upstream, ee.Upstream())
			assert.Equal(t, 1, tt.llm.toolCalls, "model calls are not retried")
			assert.Zero(t, backend.calls())
			assert.Zero(t, tt.llm.summaryCalls)
		})
	}
}

func TestAsk_ValidationFailureIsTerminal(t *testing.T) {
	backend := &fakeBackend{}
	llm := &fakeLLM{call: toolCall(`{"metrics":["revenuePerUnicorn"],"dimensions":["city"],"startDate":"2024-06-01","endDate":"2024-06-07"}`)}
	o := newOrchestrator(t, backend, llm)

	_, err := o.Handle(context.Background(), models.GA4Request{Message: "unicorn revenue"})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"revenuePerUnicorn"}, ve.Result.InvalidMetrics)
	assert.Equal(t, 1, llm.toolCalls)
	assert.Zero(t, llm.summaryCalls)
	assert.Zero(t, backend.calls())
}

func TestAsk_SummarizationFailureKeepsData(t *testing.T) {
	backend := &fakeBackend{rows: []models.ReportRow{
		{DimensionValues: []string{"Madrid"}, MetricValues: []string{"1"}},
	}}
	llm := &fakeLLM{
		call:       toolCall(`{"metrics":["activeUsers"],"dimensions":["city"],"startDate":"yesterday","endDate":"today"}`),
		summaryErr: errors.New("rate limited"),
	}
	o := newOrchestrator(t, backend, llm)

	_, err := o.Handle(context.Background(), models.GA4Request{Message: "users by city"})
	var se *models.SummarizationError
	require.True(t, errors.As(err, &se))
	require.NotNil(t, se.Fallback)
	assert.Equal(t, []models.NormalizedRow{{"city": "Madrid", "activeUsers": "1"}}, se.Fallback.Rows)
	assert.Equal(t, []string{"1 segments have fewer than 3 active users."}, se.Fallback.Insights)
	assert.Equal(t, 1, llm.summaryCalls)
}

func TestHandle_ConcurrentRequests(t *testing.T) {
	backend := &fakeBackend{rows: []models.ReportRow{
		{DimensionValues: []string{"Madrid"}, MetricValues: []string{"5"}},
	}}
	o := newOrchestrator(t, backend, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Handle(context.Background(), models.GA4Request{
				Metrics: []string{"sessions"}, Dimensions: []string{"city"}, StartDate: "yesterday", EndDate: "today",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, backend.calls())
}
