package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/ga4-insights/internal/schema"
)

// SchemaResponse lists the names a query may use.
type SchemaResponse struct {
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions"`
	FilterKeys []string `json:"filterKeys"`
}

type SchemaHandler struct {
	registry *schema.Registry
}

func NewSchemaHandler(r *schema.Registry) *SchemaHandler {
	return &SchemaHandler{registry: r}
}

// GET /api/v1/ga4/schema - allow-listed metrics, dimensions and filter keys
func (h *SchemaHandler) GetSchema(c *gin.Context) {
	c.JSON(http.StatusOK, SchemaResponse{
		Metrics:    h.registry.Metrics(),
		Dimensions: h.registry.Dimensions(),
		FilterKeys: h.registry.FilterKeys(),
	})
}
