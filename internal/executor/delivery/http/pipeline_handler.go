package http

import (
	"net/http"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/internal/executor/dto"
	"golang-signal-engine/internal/executor/service"
	"golang-signal-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PipelineHandler handles HTTP requests for pipeline runs.
type PipelineHandler struct {
	apiService service.APIService
	logger     *logger.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(apiService service.APIService, logger *logger.Logger) *PipelineHandler {
	return &PipelineHandler{apiService: apiService, logger: logger}
}

// RegisterRoutes registers the pipeline routes to the Echo group.
func (h *PipelineHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/run", h.RunPipeline)
}

// RunPipeline godoc
// @Summary Run a signal pipeline synchronously
// @Description Evaluates every requested symbol of a market with optional consensus and aggregation overrides
// @Tags pipelines
// @Accept  json
// @Produce  json
// @Param   request  body    dto.RunPipelineRequest   true    "Pipeline request"
// @Success 200 {object} engine.PipelineResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /pipelines/run [post]
func (h *PipelineHandler) RunPipeline(c echo.Context) error {
	var req dto.RunPipelineRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}
	if req.Market == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "market is required"})
	}
	if req.Mode == "" {
		req.Mode = entity.JobModeRealtime
	}

	result, err := h.apiService.RunPipeline(c.Request().Context(), &req)
	if err != nil {
		h.logger.Error("Pipeline run failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}
