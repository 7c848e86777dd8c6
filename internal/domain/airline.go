package domain

import "time"

type Airline struct {
	ID      int64
	Name    string
	Code    string
	Country string
}

type Rating struct {
	ID        int64
	UserID    int64
	FlightID  int64
	Stars     int
	CreatedAt time.Time
}
