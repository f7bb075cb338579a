package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farearbitrage/internal/booking"
	"github.com/dharmasatrya/farearbitrage/internal/models"
)

type BookingHandler struct {
	engine *booking.Engine
	now    func() time.Time
}

func NewBookingHandler(engine *booking.Engine, now func() time.Time) *BookingHandler {
	if now == nil {
		now = time.Now
	}
	return &BookingHandler{engine: engine, now: now}
}

type sessionResponse struct {
	Success    bool                     `json:"success"`
	Session    *models.BookingSession   `json:"session"`
	Status     models.BookingStatus     `json:"status"`
	Progress   int                      `json:"progress"`
	CanModify  bool                     `json:"can_modify"`
	Search     *models.SearchResult     `json:"search,omitempty"`
	Validation *models.ValidationReport `json:"validation,omitempty"`
}

type createRequest struct {
	Timezone string `json:"timezone"`
}

type selectRequest struct {
	OfferID string `json:"offer_id"`
}

type passengersRequest struct {
	Passengers []models.PassengerDetails `json:"passengers"`
}

type extendRequest struct {
	Minutes int `json:"minutes"`
}

func (h *BookingHandler) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/stats", h.Stats)
	g.POST("/cleanup", h.Cleanup)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Cancel)
	g.POST("/:id/search", h.Search)
	g.POST("/:id/select", h.Select)
	g.POST("/:id/validate", h.Validate)
	g.POST("/:id/passengers", h.Passengers)
	g.POST("/:id/payment", h.Payment)
	g.POST("/:id/confirm", h.Confirm)
	g.POST("/:id/extend", h.Extend)
	g.POST("/:id/restart", h.Restart)
}

func (h *BookingHandler) Create(c echo.Context) error {
	var req createRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, err)
		}
	}
	s, err := h.engine.CreateBooking(req.Timezone)
	if err != nil {
		return writeError(c, err)
	}
	return h.respond(c, http.StatusCreated, s)
}

func (h *BookingHandler) Get(c echo.Context) error {
	s, err := h.engine.GetBooking(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return h.respond(c, http.StatusOK, s)
}

func (h *BookingHandler) Search(c echo.Context) error {
	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	s, result, err := h.engine.SearchFlights(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	resp := h.view(s)
	resp.Search = result
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) Select(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	return h.apply(c, func(id string) (*models.BookingSession, error) {
		return h.engine.SelectFlight(id, req.OfferID)
	})
}

func (h *BookingHandler) Validate(c echo.Context) error {
	s, report, err := h.engine.ValidateFlight(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	resp := h.view(s)
	resp.Validation = report
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) Passengers(c echo.Context) error {
	var req passengersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	return h.apply(c, func(id string) (*models.BookingSession, error) {
		return h.engine.SubmitPassengerDetails(id, req.Passengers)
	})
}

func (h *BookingHandler) Payment(c echo.Context) error {
	var req models.PaymentDetails
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	return h.apply(c, func(id string) (*models.BookingSession, error) {
		return h.engine.ProcessPayment(id, req)
	})
}

func (h *BookingHandler) Confirm(c echo.Context) error {
	return h.apply(c, h.engine.ConfirmBooking)
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.apply(c, h.engine.CancelBooking)
}

func (h *BookingHandler) Extend(c echo.Context) error {
	var req extendRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	return h.apply(c, func(id string) (*models.BookingSession, error) {
		return h.engine.ExtendSession(id, req.Minutes)
	})
}

func (h *BookingHandler) Restart(c echo.Context) error {
	s, err := h.engine.RestartBooking(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return h.respond(c, http.StatusCreated, s)
}

func (h *BookingHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.GetStats())
}

func (h *BookingHandler) Cleanup(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{
		"removed": h.engine.CleanupExpiredSessions(),
	})
}

func (h *BookingHandler) apply(c echo.Context, op func(id string) (*models.BookingSession, error)) error {
	s, err := op(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return h.respond(c, http.StatusOK, s)
}

func (h *BookingHandler) respond(c echo.Context, status int, s *models.BookingSession) error {
	return c.JSON(status, h.view(s))
}

func (h *BookingHandler) view(s *models.BookingSession) sessionResponse {
	now := h.now()
	return sessionResponse{
		Success:   true,
		Session:   s,
		Status:    s.EffectiveStatus(now),
		Progress:  s.Progress(now),
		CanModify: s.CanModify(now),
	}
}
