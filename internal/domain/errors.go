package domain

import "errors"

var (
	ErrFlightNotFound   = errors.New("flight not found")
	ErrAirlineNotFound  = errors.New("airline not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrPurchaseNotFound = errors.New("purchase not found")

	// ErrFlightNotPurchasable marks a purchase attempt against a flight
	// that is not in APPROVED status.
	ErrFlightNotPurchasable = errors.New("flight is not open for purchase")

	// ErrInvalidTransition marks a flight status change that is not on the
	// allowed transition graph, e.g. cancelling a completed flight.
	ErrInvalidTransition = errors.New("invalid flight status transition")

	// ErrStatusConflict is returned by compare-and-swap status updates when
	// the record was not in any of the expected prior states.
	ErrStatusConflict = errors.New("status changed concurrently")

	// ErrPurchaseNotCancellable marks an attempt to cancel a FAILED purchase.
	ErrPurchaseNotCancellable = errors.New("purchase cannot be cancelled")

	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrAirlineCodeTaken = errors.New("airline code already exists")
	ErrAlreadyRated     = errors.New("flight already rated by this user")
	ErrFlightNotRatable = errors.New("flight is not completed yet")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLoginLocked        = errors.New("too many failed login attempts")

	// ErrDownstreamUnavailable wraps transport failures talking to the
	// other service; handlers map it to 502.
	ErrDownstreamUnavailable = errors.New("downstream service unavailable")
)
