package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sebishield/validation-engine/internal/compliance"
	"github.com/sebishield/validation-engine/internal/metrics"
	"github.com/sebishield/validation-engine/internal/rules"
	"github.com/sebishield/validation-engine/internal/tracker"
)

// Validator is the single inbound contract of the engine.
type Validator interface {
	Validate(ctx context.Context, req *compliance.ValidationRequest) (*compliance.ValidationResult, error)
}

// ValidationHandler exposes the pipeline over HTTP. A non-compliant verdict
// is a 200; only malformed input (400) and the daily limit (429) are errors.
type ValidationHandler struct {
	pipeline   Validator
	ruleEngine *rules.Engine
	tracker    *tracker.Tracker
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewValidationHandler creates the HTTP handler set.
func NewValidationHandler(
	pipeline Validator,
	ruleEngine *rules.Engine,
	perf *tracker.Tracker,
	collector *metrics.Collector,
	logger *zap.Logger,
) *ValidationHandler {
	return &ValidationHandler{
		pipeline:   pipeline,
		ruleEngine: ruleEngine,
		tracker:    perf,
		collector:  collector,
		logger:     logger,
	}
}

// RegisterRoutes registers all validation-related routes.
func (h *ValidationHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")

	api.POST("/validate", h.Validate)
	api.GET("/rules", h.GetRules)
	api.GET("/advisors/:advisor_id/metrics", h.GetAdvisorMetrics)

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.collector.Registry(), promhttp.HandlerOpts{})))
}

// Validate handles POST /api/v1/validate
func (h *ValidationHandler) Validate(c *gin.Context) {
	var req compliance.ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}

	result, err := h.pipeline.Validate(c.Request.Context(), &req)
	if err != nil {
		var inputErr *compliance.InputError
		if errors.As(err, &inputErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": inputErr.Error()})
			return
		}
		var limitErr *compliance.LimitExceededError
		if errors.As(err, &limitErr) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": limitErr.Error(),
				"limit": limitErr.Limit,
			})
			return
		}
		h.logger.Error("Validation failed unexpectedly", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRules handles GET /api/v1/rules
func (h *ValidationHandler) GetRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": h.ruleEngine.Rules()})
}

// GetAdvisorMetrics handles GET /api/v1/advisors/:advisor_id/metrics
func (h *ValidationHandler) GetAdvisorMetrics(c *gin.Context) {
	advisorID := c.Param("advisor_id")
	if advisorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "advisor_id is required"})
		return
	}
	c.JSON(http.StatusOK, h.tracker.Metrics(advisorID))
}

// Health handles GET /health
func (h *ValidationHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "rules": h.ruleEngine.Count()})
}
