package api

import (
	"net/http"

	"github.com/avelic/skyfare/internal/service/ratings"
	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	service ratings.RatingUseCase
}

type addRatingRequest struct {
	Stars int `json:"stars" binding:"required,min=1,max=5"`
}

func NewRatingHandler(service ratings.RatingUseCase) *RatingHandler {
	return &RatingHandler{service: service}
}

func (h *RatingHandler) Register(router *gin.RouterGroup, jwtKey []byte) {
	router.GET("/:id/ratings", h.list)
	router.POST("/:id/ratings", AuthRequired(jwtKey), h.add)
}

func (h *RatingHandler) add(c *gin.Context) {
	flightID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := CurrentClaims(c)
	rating, err := h.service.Add(c.Request.Context(), claims.UserID, flightID, req.Stars)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (h *RatingHandler) list(c *gin.Context) {
	flightID, ok := pathID(c, "id")
	if !ok {
		return
	}
	all, average, err := h.service.ListByFlight(c.Request.Context(), flightID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": all, "average": average})
}
