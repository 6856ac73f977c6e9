package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/ga4-insights/internal/assistant/orchestrator"
	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/models"
	"github.com/platformbuilds/ga4-insights/pkg/logger"
)

// Pipeline answers GA4 requests. *orchestrator.Orchestrator implements it.
type Pipeline interface {
	Handle(ctx context.Context, req models.GA4Request) (*orchestrator.Outcome, error)
}

// ReportResponse is the body of a successful structured query.
type ReportResponse struct {
	Rows     []models.NormalizedRow `json:"rows"`
	Insights []string               `json:"insights"`
}

// AnswerResponse is the body of a successful conversational query.
type AnswerResponse struct {
	Result string `json:"result"`
}

type GA4Handler struct {
	pipeline     Pipeline
	logger       logger.Logger
	maxBodyBytes int64
}

func NewGA4Handler(p Pipeline, l logger.Logger) *GA4Handler {
	return &GA4Handler{pipeline: p, logger: l, maxBodyBytes: config.MaxRequestBodySize}
}

// POST /ga4 - structured report or free-text question
func (h *GA4Handler) Query(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	var req models.GA4Request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Set("error_message", "request body too large")
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		ve := &models.ValidationError{}
		ve.Add("body", "malformed JSON: "+err.Error())
		_ = c.Error(ve)
		return
	}

	out, err := h.pipeline.Handle(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if out.Conversational {
		c.JSON(http.StatusOK, AnswerResponse{Result: out.Answer})
		return
	}

	resp := ReportResponse{Rows: []models.NormalizedRow{}, Insights: []string{}}
	if out.Result != nil {
		if out.Result.Rows != nil {
			resp.Rows = out.Result.Rows
		}
		if out.Result.Insights != nil {
			resp.Insights = out.Result.Insights
		}
	}
	h.logger.Debug("GA4 report served", "rows", len(resp.Rows), "insights", len(resp.Insights))
	c.JSON(http.StatusOK, resp)
}
