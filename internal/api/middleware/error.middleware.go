package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/ga4-insights/internal/models"
	"github.com/platformbuilds/ga4-insights/internal/monitoring"
	"github.com/platformbuilds/ga4-insights/pkg/logger"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// FallbackResponse is sent when the report succeeded but the answer could
// not be written. Rows and insights are always present.
type FallbackResponse struct {
	ErrorResponse
	Rows     []models.NormalizedRow `json:"rows"`
	Insights []string               `json:"insights"`
}

// ValidationDetails lists what was wrong with a rejected query.
type ValidationDetails struct {
	InvalidMetrics    []string            `json:"invalidMetrics,omitempty"`
	InvalidDimensions []string            `json:"invalidDimensions,omitempty"`
	InvalidFilterKeys []string            `json:"invalidFilterKeys,omitempty"`
	Problems          []models.FieldError `json:"problems,omitempty"`
}

// ErrorHandler turns errors attached with c.Error into JSON responses. The
// typed pipeline errors decide the status; anything else is a 500 whose
// message is not exposed.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			statusCode, code := classify(err)

			logError(log, statusCode, err, c)
			monitoring.RecordError(models.Category(err), "api")

			var se *models.SummarizationError
			if errors.As(err, &se) {
				c.JSON(statusCode, fallbackResponse(se, code))
				return
			}

			resp := ErrorResponse{Error: err.Error(), Code: code}
			if statusCode == http.StatusInternalServerError {
				resp.Error = "internal server error"
			}
			if details := extractValidationDetails(err); details != nil {
				resp.Details = details
			}
			c.JSON(statusCode, resp)
			return
		}

		// Handlers may set an error status without a body.
		if c.Writer.Status() >= 400 && !c.Writer.Written() {
			statusCode := c.Writer.Status()
			resp := ErrorResponse{
				Error: http.StatusText(statusCode),
				Code:  determineErrorCodeFromStatus(statusCode),
			}
			if msg := c.GetString("error_message"); msg != "" {
				resp.Error = msg
			}

			log.Warn("HTTP Error Response",
				"status", statusCode,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", RequestIDFrom(c),
				"error", resp.Error,
			)
			c.JSON(statusCode, resp)
		}
	}
}

// classify maps an error to an HTTP status and a machine-readable code.
func classify(err error) (int, string) {
	var (
		ve *models.ValidationError
		ee *models.ExtractionError
		be *models.BackendError
		se *models.SummarizationError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.As(err, &ee):
		if ee.Upstream() {
			return http.StatusBadGateway, "MODEL_UNAVAILABLE"
		}
		return http.StatusUnprocessableEntity, "EXTRACTION_FAILED"
	case errors.As(err, &be):
		if be.Timeout {
			return http.StatusGatewayTimeout, "BACKEND_TIMEOUT"
		}
		return http.StatusBadGateway, "BACKEND_ERROR"
	case errors.As(err, &se):
		return http.StatusBadGateway, "SUMMARIZATION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// determineErrorCodeFromStatus creates error code from HTTP status
func determineErrorCodeFromStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case http.StatusInternalServerError:
		return "INTERNAL_ERROR"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}

func extractValidationDetails(err error) interface{} {
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	return ValidationDetails{
		InvalidMetrics:    ve.Result.InvalidMetrics,
		InvalidDimensions: ve.Result.InvalidDimensions,
		InvalidFilterKeys: ve.Result.InvalidFilterKeys,
		Problems:          ve.Problems,
	}
}

func fallbackResponse(se *models.SummarizationError, code string) FallbackResponse {
	resp := FallbackResponse{
		ErrorResponse: ErrorResponse{Error: se.Error(), Code: code},
		Rows:          []models.NormalizedRow{},
		Insights:      []string{},
	}
	if se.Fallback != nil {
		if se.Fallback.Rows != nil {
			resp.Rows = se.Fallback.Rows
		}
		if se.Fallback.Insights != nil {
			resp.Insights = se.Fallback.Insights
		}
	}
	return resp
}

// logError logs errors with appropriate level
func logError(log logger.Logger, statusCode int, err error, c *gin.Context) {
	fields := []interface{}{
		"status", statusCode,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
		"category", models.Category(err),
		"error", err.Error(),
	}
	if requestID := RequestIDFrom(c); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if statusCode >= 500 {
		log.Error("HTTP Error", fields...)
	} else {
		log.Warn("HTTP Error", fields...)
	}
}
