package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smouldering-durtles/wk-search/internal/service"
	"github.com/smouldering-durtles/wk-search/pkg/response"
)

type subjectCounter interface {
	Count(ctx context.Context) (int, error)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics  *service.MetricsService
	subjects subjectCounter
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, subjects subjectCounter) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, subjects: subjects}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats godoc
// @Summary Instrumentation summary and store size
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *MetricsHandler) Stats(c *gin.Context) {
	snapshot := h.metrics.Snapshot()
	if h.subjects != nil {
		count, err := h.subjects.Count(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		snapshot.SubjectCount = count
	}
	response.JSON(c, http.StatusOK, snapshot)
}
