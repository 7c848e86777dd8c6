package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/service/flights"
	"github.com/avelic/skyfare/internal/service/purchase"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service   flights.FlightUseCase
	purchases purchase.PurchaseUseCase
}

type createFlightRequest struct {
	Name             string  `json:"name" binding:"required"`
	AirlineID        int64   `json:"airline_id" binding:"required"`
	DistanceKM       float64 `json:"distance_km" binding:"required,gt=0"`
	DurationMinutes  int     `json:"duration_minutes" binding:"required,gt=0"`
	DepartureTime    string  `json:"departure_time" binding:"required"`
	DepartureAirport string  `json:"departure_airport" binding:"required"`
	ArrivalAirport   string  `json:"arrival_airport" binding:"required"`
	TicketPriceCents int64   `json:"ticket_price_cents" binding:"required,gt=0"`
}

type rejectFlightRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type flightResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	AirlineID        int64   `json:"airline_id"`
	DistanceKM       float64 `json:"distance_km"`
	DurationMinutes  int     `json:"duration_minutes"`
	DepartureTime    string  `json:"departure_time"`
	LandingTime      string  `json:"landing_time"`
	DepartureAirport string  `json:"departure_airport"`
	ArrivalAirport   string  `json:"arrival_airport"`
	TicketPriceCents int64   `json:"ticket_price_cents"`
	Status           string  `json:"status"`
	RejectionReason  *string `json:"rejection_reason,omitempty"`
}

func toFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:               f.ID,
		Name:             f.Name,
		AirlineID:        f.AirlineID,
		DistanceKM:       f.DistanceKM,
		DurationMinutes:  f.DurationMinutes,
		DepartureTime:    f.DepartureTime.Format(time.RFC3339),
		LandingTime:      f.LandingTime().Format(time.RFC3339),
		DepartureAirport: f.DepartureAirport,
		ArrivalAirport:   f.ArrivalAirport,
		TicketPriceCents: f.TicketPriceCents,
		Status:           string(f.Status),
		RejectionReason:  f.RejectionReason,
	}
}

func NewFlightHandler(service flights.FlightUseCase, purchases purchase.PurchaseUseCase) *FlightHandler {
	return &FlightHandler{service: service, purchases: purchases}
}

func (h *FlightHandler) Register(router *gin.RouterGroup, jwtKey []byte) {
	router.GET("", h.list)
	router.GET("/:id", h.get)

	authed := router.Group("", AuthRequired(jwtKey))
	authed.POST("", RequireRole("MANAGER", "ADMIN"), h.create)
	authed.PUT("/:id/approve", RequireRole("ADMIN"), h.approve)
	authed.PUT("/:id/reject", RequireRole("ADMIN"), h.reject)
	authed.PUT("/:id/cancel", RequireRole("ADMIN"), h.cancel)
	authed.DELETE("/:id", RequireRole("ADMIN"), h.delete)
}

func (h *FlightHandler) list(c *gin.Context) {
	all, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]flightResponse, 0, len(all))
	for i := range all {
		out = append(out, toFlightResponse(&all[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) create(c *gin.Context) {
	var req createFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "departure_time must be RFC3339"})
		return
	}

	claims := CurrentClaims(c)
	flight, err := h.service.Create(c.Request.Context(), flights.CreateFlightInput{
		Name:             req.Name,
		AirlineID:        req.AirlineID,
		DistanceKM:       req.DistanceKM,
		DurationMinutes:  req.DurationMinutes,
		DepartureTime:    departure,
		DepartureAirport: req.DepartureAirport,
		ArrivalAirport:   req.ArrivalAirport,
		TicketPriceCents: req.TicketPriceCents,
		CreatedByUserID:  claims.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFlightResponse(flight))
}

func (h *FlightHandler) approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	flight, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rejectFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := h.service.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

// cancel triggers the flight-level cancellation saga: refunds for every live
// purchase happen before this responds.
func (h *FlightHandler) cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	flight, err := h.purchases.CancelFlight(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(flight))
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
