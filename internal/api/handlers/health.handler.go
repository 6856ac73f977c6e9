package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/pkg/logger"
)

// CredentialState reports whether backend credentials were loaded.
// *services.CredentialStore implements it.
type CredentialState interface {
	Loaded() bool
}

// ModelInfo names the configured language model. services.LLMService
// implements it.
type ModelInfo interface {
	GetProviderName() string
	GetModelName() string
}

type HealthHandler struct {
	credentials CredentialState
	model       ModelInfo // nil when no model is configured
	property    string
	logger      logger.Logger
}

func NewHealthHandler(creds CredentialState, model ModelInfo, property string, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		credentials: creds,
		model:       model,
		property:    property,
		logger:      logger,
	}
}

// GET /health - liveness
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   config.ServiceName,
		"version":   config.ServiceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /ready - credentials loaded and model configured
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	checks := make(map[string]interface{})
	ready := true

	if h.credentials != nil && h.credentials.Loaded() {
		checks["ga4"] = gin.H{"status": "healthy", "property": h.property}
	} else {
		checks["ga4"] = gin.H{"status": "unhealthy", "error": "credentials not loaded"}
		ready = false
	}

	if h.model != nil {
		checks["llm"] = gin.H{
			"status":   "healthy",
			"provider": h.model.GetProviderName(),
			"model":    h.model.GetModelName(),
		}
	} else {
		// structured queries still work
		checks["llm"] = gin.H{"status": "degraded", "error": "no language model configured"}
	}

	status, httpStatus := "healthy", http.StatusOK
	if !ready {
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
		h.logger.Warn("Readiness check failed", "checks", checks)
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   config.ServiceName,
		"version":   config.ServiceVersion,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
