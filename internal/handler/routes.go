package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farearbitrage/internal/metrics"
)

// Routes mounts every endpoint on e.
func Routes(e *echo.Echo, search *SearchHandler, bookings *BookingHandler, budget *BudgetHandler) {
	api := e.Group("/api/v1")
	api.POST("/flights/search", search.Search)
	bookings.Register(api.Group("/bookings"))
	api.GET("/budget", budget.Get)
	api.POST("/budget/reset", budget.Reset)

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/health", HealthHandler)
}
