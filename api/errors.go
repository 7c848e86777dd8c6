package api

import (
	"errors"
	"net/http"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/service/ratings"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP statuses. The machine-readable
// code travels with the two errors the cross-service ledger client has to
// distinguish.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := ""

	switch {
	case errors.Is(err, domain.ErrFlightNotFound),
		errors.Is(err, domain.ErrAirlineNotFound),
		errors.Is(err, domain.ErrPurchaseNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
		code = "USER_NOT_FOUND"
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusBadRequest
		code = "INSUFFICIENT_FUNDS"
	case errors.Is(err, domain.ErrFlightNotPurchasable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPurchaseNotCancellable),
		errors.Is(err, domain.ErrAlreadyRated),
		errors.Is(err, domain.ErrFlightNotRatable),
		errors.Is(err, domain.ErrAirlineCodeTaken),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, ratings.ErrStarsOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrLoginLocked):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrDownstreamUnavailable):
		status = http.StatusBadGateway
	}

	body := gin.H{"error": err.Error()}
	if code != "" {
		body["code"] = code
	}
	c.JSON(status, body)
}
