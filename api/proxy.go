package api

import (
	"net/http"
	"strings"

	"github.com/avelic/skyfare/internal/clients"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProxyHandler forwards flight and purchase operations from the gateway to
// the flight service, passing responses through verbatim. The gateway stays
// the single public entry point while the flight service owns the data.
type ProxyHandler struct {
	flights *clients.FlightsClient
	log     *logrus.Logger
}

func NewProxyHandler(flights *clients.FlightsClient, log *logrus.Logger) *ProxyHandler {
	return &ProxyHandler{flights: flights, log: log}
}

func (h *ProxyHandler) Register(router *gin.RouterGroup, jwtKey []byte) {
	router.GET("/flights", h.forward)
	router.GET("/flights/:id", h.forward)
	router.POST("/purchase", AuthRequired(jwtKey), h.forward)
	router.GET("/purchases/:key", AuthRequired(jwtKey), h.forward)
	router.GET("/purchases/:key/:value", AuthRequired(jwtKey), h.forward)
	router.PUT("/purchases/:key/cancel", AuthRequired(jwtKey), h.forward)
	router.PUT("/flights/:id/cancel", AuthRequired(jwtKey), RequireRole("ADMIN"), h.forward)
}

func (h *ProxyHandler) forward(c *gin.Context) {
	path := "/api/v1" + strings.TrimPrefix(c.Request.URL.Path, "/api/v1")

	var body any
	if c.Request.Method != http.MethodGet {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err == nil {
			body = payload
		}
	}

	status, response, err := h.flights.Do(c.Request.Context(), c.Request.Method, path, body, c.GetHeader("Authorization"))
	if err != nil {
		h.log.WithError(err).WithField("path", path).Error("proxy: flight service call failed")
		respondError(c, err)
		return
	}
	c.Data(status, "application/json", response)
}
