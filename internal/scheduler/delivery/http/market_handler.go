package http

import (
	"net/http"

	"golang-signal-engine/internal/scheduler/service"

	"github.com/labstack/echo/v4"
)

// MarketHandler exposes the tracked market session states.
type MarketHandler struct {
	marketHours service.MarketHoursService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketHours service.MarketHoursService) *MarketHandler {
	return &MarketHandler{marketHours: marketHours}
}

// RegisterRoutes registers the market routes to the Echo group.
func (h *MarketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/state", h.GetMarketStates)
}

// GetMarketStates godoc
// @Summary Current session phase of every tracked market
// @Tags markets
// @Produce  json
// @Success 200 {array} dto.MarketStateResponse
// @Router /markets/state [get]
func (h *MarketHandler) GetMarketStates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.marketHours.Snapshot())
}
