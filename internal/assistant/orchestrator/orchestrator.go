package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"

	"github.com/platformbuilds/ga4-insights/internal/assistant/intent"
	"github.com/platformbuilds/ga4-insights/internal/assistant/summariser"
	"github.com/platformbuilds/ga4-insights/internal/logging"
	"github.com/platformbuilds/ga4-insights/internal/metrics"
	"github.com/platformbuilds/ga4-insights/internal/models"
	"github.com/platformbuilds/ga4-insights/internal/report"
	"github.com/platformbuilds/ga4-insights/internal/services"
	"github.com/platformbuilds/ga4-insights/internal/tracing"
	"github.com/platformbuilds/ga4-insights/internal/validation"
)

// Outcome is the result of one Handle call. Exactly one of Result and
// Answer is set, depending on Conversational.
type Outcome struct {
	Conversational bool
	Result         *models.QueryResult
	Answer         string
}

// Deps are the collaborators of an Orchestrator. LLM may be nil, in which
// case only structured queries are served.
type Deps struct {
	Validator *validation.Validator
	Backend   services.ReportBackend
	LLM       services.LLMService

	ExtractionPrompt string
	SummaryPrompt    string

	Logger logging.Logger
	Tracer *tracing.PipelineTracer
	Clock  clockwork.Clock
}

// Orchestrator drives a request through validation, report execution,
// normalization and insights, and for free-text requests through the
// extraction and summarization model calls. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	validator *validation.Validator
	backend   services.ReportBackend
	llm       services.LLMService
	tool      services.ToolDefinition

	extractionPrompt string
	summaryPrompt    string

	logger logging.Logger
	tracer *tracing.PipelineTracer
	clock  clockwork.Clock
}

func New(d Deps) (*Orchestrator, error) {
	if d.Validator == nil {
		return nil, errors.New("orchestrator: validator is required")
	}
	if d.Backend == nil {
		return nil, errors.New("orchestrator: report backend is required")
	}
	tool, err := intent.Tool()
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		validator:        d.Validator,
		backend:          d.Backend,
		llm:              d.LLM,
		tool:             tool,
		extractionPrompt: d.ExtractionPrompt,
		summaryPrompt:    d.SummaryPrompt,
		logger:           logging.OrNop(d.Logger),
		tracer:           d.Tracer,
		clock:            d.Clock,
	}
	if o.tracer == nil {
		o.tracer = tracing.Noop()
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	return o, nil
}

// Handle routes a request. A complete structured query wins over a message.
func (o *Orchestrator) Handle(ctx context.Context, req models.GA4Request) (*Outcome, error) {
	mode := "conversational"
	if req.HasStructuredQuery() || strings.TrimSpace(req.Message) == "" {
		mode = "structured"
	}

	ctx, span := o.tracer.StartRequestSpan(ctx, mode)
	defer span.End()

	outcome, err := o.route(ctx, req)
	if err != nil {
		o.tracer.RecordError(span, err)
		metrics.RecordPipeline(mode, models.Category(err))
		return nil, err
	}
	metrics.RecordPipeline(mode, "ok")
	return outcome, nil
}

func (o *Orchestrator) route(ctx context.Context, req models.GA4Request) (*Outcome, error) {
	switch {
	case req.HasStructuredQuery():
		result, err := o.RunQuery(ctx, req.Query())
		if err != nil {
			return nil, err
		}
		return &Outcome{Result: result}, nil

	case strings.TrimSpace(req.Message) != "":
		answer, err := o.Ask(ctx, strings.TrimSpace(req.Message))
		if err != nil {
			return nil, err
		}
		return &Outcome{Conversational: true, Answer: answer}, nil

	case req.HasAnyStructuredField():
		// incomplete structured query: report what is missing
		if err := o.validator.ValidateQuery(req.Query()); err != nil {
			return nil, err
		}
	}

	ve := &models.ValidationError{}
	ve.Add("message", "provide either a message or metrics, dimensions, startDate and endDate")
	return nil, ve
}

// RunQuery validates q, executes it and returns normalized rows with insights.
func (o *Orchestrator) RunQuery(ctx context.Context, q models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	if err := o.stage(ctx, "validate", func(context.Context) error {
		return o.validator.ValidateQuery(q)
	}); err != nil {
		o.logger.Info("Query rejected", "error", err)
		return nil, err
	}

	spec := report.Build(q)

	property := ""
	if p, ok := o.backend.(interface{ Property() string }); ok {
		property = p.Property()
	}
	bctx, bspan := o.tracer.StartBackendSpan(ctx, property, spec.Metrics, spec.Dimensions)
	rows, err := o.backend.RunReport(bctx, spec)
	if err != nil {
		o.tracer.RecordError(bspan, err)
		bspan.End()
		return nil, wrapBackend(err)
	}
	bspan.End()

	var normalized []models.NormalizedRow
	if err := o.stage(ctx, "normalize", func(context.Context) error {
		var nerr error
		normalized, nerr = report.Normalize(rows, spec.Metrics, spec.Dimensions)
		return nerr
	}); err != nil {
		o.logger.Error("Backend rows do not match the requested columns", "error", err)
		return nil, &models.BackendError{Message: err.Error(), Err: err}
	}

	insights := report.Insights(normalized, spec.Metrics)
	recordInsights(normalized, spec.Metrics)
	o.tracer.RecordReportMetrics(trace.SpanFromContext(ctx), time.Since(start), len(normalized), len(insights))

	o.logger.Info("Report executed",
		"metrics", spec.Metrics,
		"dimensions", spec.Dimensions,
		"filters", len(q.Filters),
		"rows", len(normalized),
		"insights", len(insights),
		"duration", time.Since(start))

	return &models.QueryResult{Rows: normalized, Insights: insights}, nil
}

// Ask answers a free-text question: one tool-call round to extract the
// query, the report pipeline, then one summarization round. Model calls are
// never retried and validation failures are never sent back to the model.
func (o *Orchestrator) Ask(ctx context.Context, message string) (string, error) {
	if o.llm == nil {
		return "", &models.ExtractionError{Reason: models.ReasonNoModel}
	}

	call, err := o.extract(ctx, message)
	if err != nil {
		return "", err
	}

	q, err := intent.ParseArguments(call.Arguments)
	if err != nil {
		o.logger.Warn("Model produced unusable tool arguments", "arguments", string(call.Arguments), "error", err)
		return "", &models.ExtractionError{Reason: models.ReasonBadArguments, Err: err}
	}
	o.logger.Info("Extracted report query",
		"metrics", q.Metrics, "dimensions", q.Dimensions,
		"startDate", q.StartDate, "endDate", q.EndDate, "filters", len(q.Filters))

	result, err := o.RunQuery(ctx, q)
	if err != nil {
		return "", err
	}

	payload, err := summariser.ToolResult(result)
	if err != nil {
		return "", &models.SummarizationError{Err: err, Fallback: result}
	}

	lctx, span := o.tracer.StartLLMSpan(ctx, o.llm.GetProviderName(), o.llm.GetModelName(), "summarize")
	answer, err := o.llm.Summarize(lctx, o.summaryPrompt, message, call, payload)
	if err != nil {
		o.tracer.RecordError(span, err)
		span.End()
		o.logger.Warn("Summarization failed, returning report data",
			"error", err, "fallback", summariser.FallbackText(result))
		return "", &models.SummarizationError{Err: err, Fallback: result}
	}
	span.End()
	return answer, nil
}

func (o *Orchestrator) extract(ctx context.Context, message string) (*services.ToolCall, error) {
	lctx, span := o.tracer.StartLLMSpan(ctx, o.llm.GetProviderName(), o.llm.GetModelName(), "extract")
	defer span.End()

	call, err := o.llm.CallTool(lctx, o.systemPrompt(), message, o.tool)
	if err != nil {
		o.tracer.RecordError(span, err)
		return nil, &models.ExtractionError{Reason: models.ReasonModelCall, Err: err}
	}
	if call == nil {
		err := &models.ExtractionError{Reason: models.ReasonNoToolCall}
		o.tracer.RecordError(span, err)
		return nil, err
	}
	return call, nil
}

// systemPrompt appends the current date so relative questions resolve.
func (o *Orchestrator) systemPrompt() string {
	today := o.clock.Now().UTC().Format(validation.DateLayout)
	if o.extractionPrompt == "" {
		return fmt.Sprintf("Today is %s.", today)
	}
	return fmt.Sprintf("%s\nToday is %s.", o.extractionPrompt, today)
}

func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := o.tracer.StartStageSpan(ctx, name)
	defer span.End()
	if err := fn(ctx); err != nil {
		o.tracer.RecordError(span, err)
		return err
	}
	return nil
}

// wrapBackend guarantees backend failures surface as *models.BackendError.
func wrapBackend(err error) error {
	var be *models.BackendError
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &models.BackendError{Message: "request timed out", Timeout: true, Err: err}
	}
	return &models.BackendError{Message: err.Error(), Err: err}
}

func recordInsights(rows []models.NormalizedRow, requested []string) {
	for _, rule := range report.Rules {
		if !contains(requested, rule.Metric) {
			continue
		}
		if report.Count(rows, rule) > 0 {
			metrics.InsightsEmittedTotal.WithLabelValues(rule.Metric).Inc()
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
