package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

// Searcher is the arbitrage engine as seen by the HTTP layer.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{searcher: s}
}

func (h *SearchHandler) Search(c echo.Context) error {
	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	result, err := h.searcher.Search(c.Request().Context(), req)
	if err != nil {
		status, code := statusFor(err)
		return c.JSON(status, models.ErrorResponse{
			Error:   code,
			Message: err.Error(),
			Code:    status,
		})
	}
	return c.JSON(http.StatusOK, result)
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
