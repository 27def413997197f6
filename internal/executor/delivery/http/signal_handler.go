package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-signal-engine/internal/engine"
	"golang-signal-engine/internal/executor/dto"
	"golang-signal-engine/internal/executor/service"
	"golang-signal-engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SignalHandler handles HTTP requests for evaluations and signals.
type SignalHandler struct {
	apiService service.APIService
	logger     *logger.Logger
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(apiService service.APIService, logger *logger.Logger) *SignalHandler {
	return &SignalHandler{apiService: apiService, logger: logger}
}

// RegisterRoutes registers the signal routes to the Echo group.
func (h *SignalHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/evaluate", h.Evaluate)
	g.POST("/evaluate-multi-timeframe", h.EvaluateMulti)
	g.GET("", h.ListSignals)
	g.POST("/:id/cancel", h.CancelSignal)
}

// Evaluate godoc
// @Summary Evaluate one symbol on one timeframe
// @Description Runs the selected strategies and aggregates their results
// @Tags signals
// @Accept  json
// @Produce  json
// @Param   request  body    dto.EvaluateRequest   true    "Evaluation request"
// @Success 200 {object} engine.AggregatedSignal
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals/evaluate [post]
func (h *SignalHandler) Evaluate(c echo.Context) error {
	var req dto.EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}
	if req.Timeframe == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "timeframe is required"})
	}

	agg, err := h.apiService.Evaluate(c.Request().Context(), &req)
	if err != nil {
		return h.evaluationError(c, err)
	}
	return c.JSON(http.StatusOK, agg)
}

// EvaluateMulti godoc
// @Summary Evaluate one symbol across all configured timeframes
// @Description Runs per-timeframe evaluations plus the multi-timeframe MACD consensus
// @Tags signals
// @Accept  json
// @Produce  json
// @Param   request  body    dto.EvaluateMultiRequest   true    "Evaluation request"
// @Success 200 {object} engine.MultiTimeframeResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals/evaluate-multi-timeframe [post]
func (h *SignalHandler) EvaluateMulti(c echo.Context) error {
	var req dto.EvaluateMultiRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}

	result, err := h.apiService.EvaluateMulti(c.Request().Context(), &req)
	if err != nil {
		return h.evaluationError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListSignals godoc
// @Summary List active signals
// @Tags signals
// @Produce  json
// @Param   symbol_id  query   int     false   "Filter by symbol id"
// @Param   timeframe  query   string  false   "Filter by timeframe"
// @Success 200 {array} dto.SignalResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /signals [get]
func (h *SignalHandler) ListSignals(c echo.Context) error {
	var symbolID uint
	if raw := c.QueryParam("symbol_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid symbol_id"})
		}
		symbolID = uint(parsed)
	}

	signals, err := h.apiService.ListSignals(c.Request().Context(), symbolID, c.QueryParam("timeframe"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, signals)
}

// CancelSignal godoc
// @Summary Cancel an active signal
// @Tags signals
// @Produce  json
// @Param   id  path    int true    "Signal ID"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /signals/{id}/cancel [post]
func (h *SignalHandler) CancelSignal(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid signal ID"})
	}

	if err := h.apiService.CancelSignal(c.Request().Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Signal not found or not active"})
		}
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SignalHandler) evaluationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Symbol not found"})
	case errors.Is(err, engine.ErrConfigurationMissing),
		errors.Is(err, engine.ErrInsufficientStrategies),
		errors.Is(err, engine.ErrStrategyNotFound),
		errors.Is(err, engine.ErrUnknownMethod):
		return c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error("Evaluation failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}
