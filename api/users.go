package api

import (
	"context"
	"net/http"

	"github.com/avelic/skyfare/internal/service/users"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service users.UserUseCase
}

type userResponse struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	BalanceCents int64  `json:"balance_cents"`
}

type ledgerRequest struct {
	UserID         int64  `json:"user_id" binding:"required"`
	AmountCents    int64  `json:"amount_cents" binding:"required,gt=0"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

func NewUserHandler(service users.UserUseCase) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Register(router *gin.RouterGroup, jwtKey []byte) {
	router.GET("", AuthRequired(jwtKey), RequireRole("ADMIN"), h.list)
	router.GET("/:id", AuthRequired(jwtKey), h.get)
}

// RegisterInternal wires the ledger endpoints the flight service calls.
// These sit on a separate path prefix so a deployment can firewall them off
// from the public surface.
func (h *UserHandler) RegisterInternal(router *gin.RouterGroup) {
	router.POST("/ledger/debit", h.debit)
	router.POST("/ledger/credit", h.credit)
	router.GET("/ledger/balance/:id", h.balance)
	router.GET("/users/:id", h.get)
}

func (h *UserHandler) list(c *gin.Context) {
	all, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]userResponse, 0, len(all))
	for i := range all {
		out = append(out, toUserResponse(&all[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) balance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance_cents": user.BalanceCents})
}

func (h *UserHandler) debit(c *gin.Context) {
	h.apply(c, h.service.Debit)
}

func (h *UserHandler) credit(c *gin.Context) {
	h.apply(c, h.service.Credit)
}

func (h *UserHandler) apply(c *gin.Context, op func(ctx context.Context, userID, amountCents int64, key string) (int64, error)) {
	var req ledgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := op(c.Request.Context(), req.UserID, req.AmountCents, req.IdempotencyKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance_cents": balance})
}
