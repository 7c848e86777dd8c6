package flights

import (
	"context"
	"errors"
	"time"

	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/kafka"
	"github.com/avelic/skyfare/internal/repository"
	"github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	Approve(ctx context.Context, id int64) (*domain.Flight, error)
	Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	AdvanceStatuses(ctx context.Context, now time.Time) (int, error)
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Broadcaster interface {
	Broadcast(room, eventType string, payload any)
}

type CreateFlightInput struct {
	Name             string
	AirlineID        int64
	DistanceKM       float64
	DurationMinutes  int
	DepartureTime    time.Time
	DepartureAirport string
	ArrivalAirport   string
	TicketPriceCents int64
	CreatedByUserID  int64
}

type FlightService struct {
	flights  repository.FlightRepository
	airlines repository.AirlineRepository
	cache    Cache
	log      *logrus.Logger

	producer    Producer
	eventsTopic string
	hub         Broadcaster
}

type FlightServiceOption func(*FlightService)

func WithProducer(producer Producer, eventsTopic string) FlightServiceOption {
	return func(s *FlightService) {
		s.producer = producer
		s.eventsTopic = eventsTopic
	}
}

func WithBroadcaster(hub Broadcaster) FlightServiceOption {
	return func(s *FlightService) {
		s.hub = hub
	}
}

func NewFlightService(
	flights repository.FlightRepository,
	airlines repository.AirlineRepository,
	cache Cache,
	log *logrus.Logger,
	opts ...FlightServiceOption,
) *FlightService {
	service := &FlightService{
		flights:  flights,
		airlines: airlines,
		cache:    cache,
		log:      log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.flights.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.flights.GetByID(ctx, id)
}

func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	if _, err := s.airlines.GetByID(ctx, input.AirlineID); err != nil {
		return nil, err
	}

	flight := &domain.Flight{
		Name:             input.Name,
		AirlineID:        input.AirlineID,
		DistanceKM:       input.DistanceKM,
		DurationMinutes:  input.DurationMinutes,
		DepartureTime:    input.DepartureTime,
		DepartureAirport: input.DepartureAirport,
		ArrivalAirport:   input.ArrivalAirport,
		TicketPriceCents: input.TicketPriceCents,
		CreatedByUserID:  input.CreatedByUserID,
	}
	if err := s.flights.Create(ctx, flight); err != nil {
		return nil, err
	}

	s.invalidateAndAnnounce(ctx, kafka.EventFlightCreated, flight)
	return flight, nil
}

func (s *FlightService) Approve(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.transition(ctx, id, []domain.FlightStatus{domain.FlightStatusPending}, domain.FlightStatusApproved, nil)
}

func (s *FlightService) Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error) {
	return s.transition(ctx, id, []domain.FlightStatus{domain.FlightStatusPending}, domain.FlightStatusRejected, &reason)
}

func (s *FlightService) Delete(ctx context.Context, id int64) error {
	flight, err := s.flights.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// Flights that are flying or already flown keep their history.
	if flight.Status == domain.FlightStatusInProgress || flight.Status == domain.FlightStatusCompleted {
		return domain.ErrInvalidTransition
	}
	if err := s.flights.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateFlights(ctx)
	}
	return nil
}

// AdvanceStatuses is the watcher sweep: APPROVED flights past departure move
// to IN_PROGRESS, anything past landing moves to COMPLETED. Both updates are
// conditional so the transition graph stays monotonic under concurrent
// sweeps. Returns how many flights changed.
func (s *FlightService) AdvanceStatuses(ctx context.Context, now time.Time) (int, error) {
	landed, err := s.flights.MarkLanded(ctx, now)
	if err != nil {
		return 0, err
	}
	departed, err := s.flights.MarkDeparted(ctx, now)
	if err != nil {
		return len(landed), err
	}

	changed := append(landed, departed...)
	for i := range changed {
		s.invalidateAndAnnounce(ctx, kafka.EventFlightStatusTick, &changed[i])
	}
	return len(changed), nil
}

func (s *FlightService) transition(ctx context.Context, id int64, expected []domain.FlightStatus, to domain.FlightStatus, reason *string) (*domain.Flight, error) {
	flight, err := s.flights.UpdateStatus(ctx, id, expected, to, reason)
	if errors.Is(err, domain.ErrStatusConflict) {
		if _, getErr := s.flights.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	s.invalidateAndAnnounce(ctx, kafka.EventFlightStatusTick, flight)
	return flight, nil
}

func (s *FlightService) invalidateAndAnnounce(ctx context.Context, eventType string, flight *domain.Flight) {
	if s.cache != nil {
		_ = s.cache.InvalidateFlights(ctx)
	}

	event := kafka.Event{
		Type:       eventType,
		FlightID:   flight.ID,
		FlightName: flight.Name,
		Status:     string(flight.Status),
		OccurredAt: time.Now().UTC(),
	}
	if s.producer != nil && s.eventsTopic != "" {
		if err := s.producer.Publish(ctx, s.eventsTopic, flight.Name, event); err != nil {
			s.log.WithError(err).WithField("flight_id", flight.ID).Warn("flights: publish event failed")
		}
	}
	if s.hub != nil {
		s.hub.Broadcast("flights", eventType, event)
	}
}

var _ FlightUseCase = (*FlightService)(nil)
