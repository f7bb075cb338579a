package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farearbitrage/internal/metrics"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
)

type BudgetHandler struct {
	budget *ratelimit.Budget
}

func NewBudgetHandler(b *ratelimit.Budget) *BudgetHandler {
	return &BudgetHandler{budget: b}
}

func (h *BudgetHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.budget.Snapshot())
}

// Reset starts a new billing period.
func (h *BudgetHandler) Reset(c echo.Context) error {
	h.budget.ResetPeriod()
	snap := h.budget.Snapshot()
	metrics.SetBudget(snap.Used, snap.Remaining)
	return c.JSON(http.StatusOK, snap)
}

// Metrics records request count and latency per route.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			metrics.ObserveHTTPRequest(c.Request().Method, c.Path(), c.Response().Status, time.Since(start))
			return nil
		}
	}
}
