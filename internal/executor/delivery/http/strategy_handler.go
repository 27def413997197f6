package http

import (
	"errors"
	"net/http"

	"golang-signal-engine/internal/engine"
	"golang-signal-engine/internal/executor/dto"
	"golang-signal-engine/internal/executor/service"
	"golang-signal-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StrategyHandler handles HTTP requests for the strategy registry.
type StrategyHandler struct {
	apiService service.APIService
	logger     *logger.Logger
}

// NewStrategyHandler creates a new StrategyHandler.
func NewStrategyHandler(apiService service.APIService, logger *logger.Logger) *StrategyHandler {
	return &StrategyHandler{apiService: apiService, logger: logger}
}

// RegisterRoutes registers the strategy routes to the Echo group.
func (h *StrategyHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.ListStrategies)
	g.PUT("/:name/enabled", h.SetEnabled)
}

// ListStrategies godoc
// @Summary List registered strategies
// @Tags strategies
// @Produce  json
// @Success 200 {array} dto.StrategyStatus
// @Router /strategies [get]
func (h *StrategyHandler) ListStrategies(c echo.Context) error {
	return c.JSON(http.StatusOK, h.apiService.ListStrategies())
}

// SetEnabled godoc
// @Summary Enable or disable a strategy
// @Tags strategies
// @Accept  json
// @Produce  json
// @Param   name     path    string  true    "Strategy name"
// @Param   request  body    dto.SetStrategyEnabledRequest   true    "Enabled flag"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /strategies/{name}/enabled [put]
func (h *StrategyHandler) SetEnabled(c echo.Context) error {
	var req dto.SetStrategyEnabledRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}

	if err := h.apiService.SetStrategyEnabled(c.Param("name"), req.Enabled); err != nil {
		if errors.Is(err, engine.ErrStrategyNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("Failed to toggle strategy", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
