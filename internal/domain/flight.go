package domain

import "time"

type FlightStatus string

const (
	FlightStatusPending    FlightStatus = "PENDING"
	FlightStatusApproved   FlightStatus = "APPROVED"
	FlightStatusRejected   FlightStatus = "REJECTED"
	FlightStatusInProgress FlightStatus = "IN_PROGRESS"
	FlightStatusCompleted  FlightStatus = "COMPLETED"
	FlightStatusCancelled  FlightStatus = "CANCELLED"
)

type Flight struct {
	ID               int64
	Name             string
	AirlineID        int64
	DistanceKM       float64
	DurationMinutes  int
	DepartureTime    time.Time
	DepartureAirport string
	ArrivalAirport   string
	CreatedByUserID  int64
	TicketPriceCents int64
	Status           FlightStatus
	RejectionReason  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LandingTime is departure plus the scheduled flight duration.
func (f *Flight) LandingTime() time.Time {
	return f.DepartureTime.Add(time.Duration(f.DurationMinutes) * time.Minute)
}
