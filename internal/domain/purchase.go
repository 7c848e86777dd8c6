package domain

import "time"

type PurchaseStatus string

const (
	PurchaseStatusInProgress PurchaseStatus = "IN_PROGRESS"
	PurchaseStatusCompleted  PurchaseStatus = "COMPLETED"
	PurchaseStatusFailed     PurchaseStatus = "FAILED"
	PurchaseStatusCancelled  PurchaseStatus = "CANCELLED"
)

type Purchase struct {
	ID               string
	UserID           int64
	FlightID         int64
	TicketPriceCents int64
	Status           PurchaseStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
