package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tixgate/internal/middleware"
)

// setupRouter wires the buyer routes the way the server does, with nil
// services behind them. Requests in these tests must fail during identity
// or binding checks, before any handler touches a service.
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	h := NewHandlers(nil)

	api := r.Group("/api")
	authed := api.Group("")
	authed.Use(middleware.Identity())
	{
		authed.PATCH("/reservations/seats/select", h.SelectSeat)
		authed.PATCH("/reservations/zones/reserve", h.ReserveZone)
		authed.POST("/orders", h.CreateOrder)
		authed.POST("/tickets/issue", h.IssueTickets)
		authed.PATCH("/tickets/redeem", h.RedeemTicket)
	}

	return r
}

func doJSON(r *gin.Engine, method, path, body, userID string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentityRequired(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/orders", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSelectSeat_RejectsMissingFields(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing seat", `{"event_id":1,"showtime_id":2}`},
		{"missing seat_id", `{"event_id":1,"showtime_id":2,"seat":{"zone_id":"z1"}}`},
		{"malformed json", `{"event_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, "PATCH", "/api/reservations/seats/select", tt.body, "user-1")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestReserveZone_RejectsMissingFields(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "PATCH", "/api/reservations/zones/reserve",
		`{"event_id":1,"showtime_id":2}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_RejectsMissingFields(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/orders", `{"event_id":1}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueTickets_RejectsMissingPaymentID(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "POST", "/api/tickets/issue", `{"order_id":"o-1"}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedeemTicket_RejectsEmptyBody(t *testing.T) {
	r := setupRouter()

	w := doJSON(r, "PATCH", "/api/tickets/redeem", `{}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
