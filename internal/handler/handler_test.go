package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/farearbitrage/internal/arbitrage"
	"github.com/dharmasatrya/farearbitrage/internal/booking"
	"github.com/dharmasatrya/farearbitrage/internal/cache"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/providers"
	"github.com/dharmasatrya/farearbitrage/internal/quote"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
)

type testServer struct {
	echo   *echo.Echo
	budget *ratelimit.Budget
}

func newTestServer(t *testing.T, ceiling int) *testServer {
	t.Helper()
	p, err := providers.NewFixtureProvider(0)
	require.NoError(t, err)

	budget := ratelimit.NewBudget(ceiling)
	client := quote.NewClient(p, cache.NewMemoryCache(cache.MemoryConfig{}), nil, budget, quote.Config{Timeout: time.Second})
	search := arbitrage.NewEngine(client, budget, arbitrage.DefaultConfig())
	bookings := booking.NewEngine(booking.NewStore(nil), search, client, booking.Config{})

	e := echo.New()
	Routes(e, NewSearchHandler(search), NewBookingHandler(bookings, nil), NewBudgetHandler(budget))
	return &testServer{echo: e, budget: budget}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func searchBody() map[string]any {
	return map[string]any{
		"origin":         "lhr",
		"destination":    "cdg",
		"departure_date": "2024-06-15",
		"return_date":    "2024-06-20",
		"adults":         1,
		"currency":       "GBP",
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t, 100)

	code, body := s.do(t, http.MethodPost, "/api/v1/flights/search", searchBody())
	require.Equal(t, http.StatusOK, code)

	criteria := body["search_criteria"].(map[string]any)
	assert.Equal(t, "LHR", criteria["origin"])
	assert.NotNil(t, body["standard"])
	assert.NotNil(t, body["best"])
	assert.NotEmpty(t, body["all_options"])

	meta := body["metadata"].(map[string]any)
	executed := meta["strategies_executed"].([]any)
	assert.Equal(t, "standard", executed[0])
	assert.Contains(t, executed, "split_ticket")
	assert.Positive(t, meta["upstream_calls"])

	best := body["best"].(map[string]any)
	std := body["standard"].(map[string]any)
	assert.LessOrEqual(t, best["total_price"].(float64), std["total_price"].(float64))
}

func TestSearchEndpointValidation(t *testing.T) {
	s := newTestServer(t, 100)

	body := searchBody()
	body["destination"] = "LHR"
	code, resp := s.do(t, http.MethodPost, "/api/v1/flights/search", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, booking.CodeValidation, resp["error"])
}

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, 100)

	code, body := s.do(t, http.MethodPost, "/api/v1/bookings", map[string]string{"timezone": "Europe/London"})
	require.Equal(t, http.StatusCreated, code)
	session := body["session"].(map[string]any)
	id := session["id"].(string)
	assert.Equal(t, "searching", body["status"])
	assert.Equal(t, float64(10), body["progress"])

	oneWay := searchBody()
	delete(oneWay, "return_date")
	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/search", oneWay)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "selecting", body["status"])
	candidates := body["session"].(map[string]any)["candidates"].([]any)
	require.NotEmpty(t, candidates)
	first := candidates[0].(map[string]any)

	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/select", map[string]string{"offer_id": "nope"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, booking.CodeFlightNotFound, body["error"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/select", map[string]string{"offer_id": first["id"].(string)})
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/validate", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["validation"].(map[string]any)["seats_available"])

	passenger := models.PassengerDetails{
		Type: models.PassengerAdult, FirstName: "", LastName: "Smith", DateOfBirth: "1985-04-12",
		Nationality: "GB", PassportNumber: "123456789", PassportExpiry: "2035-01-01", PassportCountry: "GB",
		Email: "j.smith@example.com", Phone: "+44 20 7946 0958",
	}
	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/passengers", map[string]any{"passengers": []models.PassengerDetails{passenger}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["errors"])

	passenger.FirstName = "Jane"
	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/passengers", map[string]any{"passengers": []models.PassengerDetails{passenger}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "booking", body["status"])

	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/payment", map[string]any{"method": "credit_card", "currency": "GBP", "amount": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, booking.CodeAmountMismatch, body["error"])

	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "booking", body["state"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/payment", map[string]any{"method": "credit_card", "currency": "GBP", "amount": first["total_price"]})
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "confirmed", body["status"])
	conf := body["session"].(map[string]any)["confirmation"].(map[string]any)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, conf["booking_reference"])

	code, _ = s.do(t, http.MethodDelete, "/api/v1/bookings/"+id, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/restart", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEqual(t, id, body["session"].(map[string]any)["id"])

	code, body = s.do(t, http.MethodGet, "/api/v1/bookings/stats", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["total"])
}

func TestUnknownBookingIsNotFound(t *testing.T) {
	s := newTestServer(t, 100)
	code, body := s.do(t, http.MethodGet, "/api/v1/bookings/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, booking.CodeSessionNotFound, body["error"])
}

func TestValidateWithoutBudgetIsRateLimited(t *testing.T) {
	s := newTestServer(t, 100)

	_, body := s.do(t, http.MethodPost, "/api/v1/bookings", nil)
	id := body["session"].(map[string]any)["id"].(string)
	oneWay := searchBody()
	delete(oneWay, "return_date")
	_, body = s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/search", oneWay)
	offerID := body["session"].(map[string]any)["candidates"].([]any)[0].(map[string]any)["id"].(string)
	s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/select", map[string]string{"offer_id": offerID})

	for s.budget.Admit(1) {
	}
	code, _ := s.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/validate", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestBudgetEndpoints(t *testing.T) {
	s := newTestServer(t, 10)
	require.True(t, s.budget.Admit(4))

	code, body := s.do(t, http.MethodGet, "/api/v1/budget", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), body["used"])
	assert.Equal(t, float64(6), body["remaining"])

	code, body = s.do(t, http.MethodPost, "/api/v1/budget/reset", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["used"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 10)
	code, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
