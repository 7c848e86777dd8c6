package api

import (
	"net/http"
	"time"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/service/purchase"
	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	service purchase.PurchaseUseCase
}

type createPurchaseRequest struct {
	UserID   int64 `json:"user_id" binding:"required"`
	FlightID int64 `json:"flight_id" binding:"required"`
}

type purchaseResponse struct {
	PurchaseID       string `json:"purchase_id"`
	UserID           int64  `json:"user_id"`
	FlightID         int64  `json:"flight_id"`
	TicketPriceCents int64  `json:"ticket_price_cents"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

func toPurchaseResponse(p *domain.Purchase) purchaseResponse {
	return purchaseResponse{
		PurchaseID:       p.ID,
		UserID:           p.UserID,
		FlightID:         p.FlightID,
		TicketPriceCents: p.TicketPriceCents,
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}

func NewPurchaseHandler(service purchase.PurchaseUseCase) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

// Register wires the purchase routes. gin's tree cannot mix the ":key"
// wildcard with static siblings, so the by-id/by-flight lookups share one
// two-segment route and dispatch on the first segment.
func (h *PurchaseHandler) Register(router *gin.RouterGroup) {
	router.POST("/purchase", h.create)
	router.GET("/purchases/:key", h.listByUser)
	router.GET("/purchases/:key/:value", h.lookup)
	router.PUT("/purchases/:key/cancel", h.cancel)
}

// create starts the asynchronous purchase. The response carries IN_PROGRESS;
// settlement resolves later and clients poll or listen on the websocket.
func (h *PurchaseHandler) create(c *gin.Context) {
	var req createPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.service.StartPurchase(c.Request.Context(), req.UserID, req.FlightID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseResponse(p))
}

func (h *PurchaseHandler) listByUser(c *gin.Context) {
	userID, ok := pathID(c, "key")
	if !ok {
		return
	}
	purchases, err := h.service.ListUserPurchases(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseResponses(purchases))
}

func (h *PurchaseHandler) lookup(c *gin.Context) {
	switch c.Param("key") {
	case "by-id":
		p, err := h.service.GetPurchase(c.Request.Context(), c.Param("value"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPurchaseResponse(p))
	case "by-flight":
		flightID, ok := pathID(c, "value")
		if !ok {
			return
		}
		purchases, err := h.service.ListFlightPurchases(c.Request.Context(), flightID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPurchaseResponses(purchases))
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown purchase lookup"})
	}
}

// cancel cancels a single purchase: refund plus status update. Cancelling an
// already-cancelled purchase is a no-op; FAILED is rejected.
func (h *PurchaseHandler) cancel(c *gin.Context) {
	p, err := h.service.CancelPurchase(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPurchaseResponse(p))
}

func toPurchaseResponses(purchases []domain.Purchase) []purchaseResponse {
	out := make([]purchaseResponse, 0, len(purchases))
	for i := range purchases {
		out = append(out, toPurchaseResponse(&purchases[i]))
	}
	return out
}
