package purchase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/avelic/skyfare/internal/clients"
	"github.com/avelic/skyfare/internal/domain"
	"github.com/avelic/skyfare/internal/kafka"
	"github.com/avelic/skyfare/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type PurchaseUseCase interface {
	StartPurchase(ctx context.Context, userID, flightID int64) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	ListUserPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error)
	ListFlightPurchases(ctx context.Context, flightID int64) ([]domain.Purchase, error)
	CancelPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	CancelFlight(ctx context.Context, flightID int64) (*domain.Flight, error)
}

// Ledger is the gateway's balance store as seen from the flight service.
// Debit and credit take the purchase id as idempotency key.
type Ledger interface {
	Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error)
	Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error)
	GetUser(ctx context.Context, userID int64) (*clients.UserInfo, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Broadcaster interface {
	Broadcast(room, eventType string, payload any)
}

type PurchaseService struct {
	purchases repository.PurchaseRepository
	flights   repository.FlightRepository
	ledger    Ledger
	log       *logrus.Logger

	producer           Producer
	eventsTopic        string
	notificationsTopic string
	hub                Broadcaster

	delay   time.Duration
	workers int
	queue   chan string
}

type PurchaseServiceOption func(*PurchaseService)

func WithProducer(producer Producer, eventsTopic, notificationsTopic string) PurchaseServiceOption {
	return func(s *PurchaseService) {
		s.producer = producer
		s.eventsTopic = eventsTopic
		s.notificationsTopic = notificationsTopic
	}
}

func WithBroadcaster(hub Broadcaster) PurchaseServiceOption {
	return func(s *PurchaseService) {
		s.hub = hub
	}
}

func NewPurchaseService(
	purchases repository.PurchaseRepository,
	flights repository.FlightRepository,
	ledger Ledger,
	log *logrus.Logger,
	settlementDelay time.Duration,
	workers, queueCapacity int,
	opts ...PurchaseServiceOption,
) *PurchaseService {
	if workers <= 0 {
		workers = 4
	}
	if queueCapacity <= 0 {
		queueCapacity = 256
	}
	service := &PurchaseService{
		purchases: purchases,
		flights:   flights,
		ledger:    ledger,
		log:       log,
		delay:     settlementDelay,
		workers:   workers,
		queue:     make(chan string, queueCapacity),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// StartPurchase reserves funds and records the purchase, then hands the id to
// the settlement pool and returns without waiting for resolution.
func (s *PurchaseService) StartPurchase(ctx context.Context, userID, flightID int64) (*domain.Purchase, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if flight.Status != domain.FlightStatusApproved {
		return nil, domain.ErrFlightNotPurchasable
	}

	purchase := &domain.Purchase{
		ID:               uuid.NewString(),
		UserID:           userID,
		FlightID:         flightID,
		TicketPriceCents: flight.TicketPriceCents,
	}

	if _, err := s.ledger.Debit(ctx, userID, purchase.TicketPriceCents, purchase.ID); err != nil {
		return nil, err
	}

	if err := s.purchases.Create(ctx, purchase); err != nil {
		// The debit has landed; compensate before surfacing the error.
		if _, creditErr := s.ledger.Credit(ctx, userID, purchase.TicketPriceCents, purchase.ID); creditErr != nil {
			s.log.WithError(creditErr).WithFields(logrus.Fields{
				"purchase_id": purchase.ID,
				"user_id":     userID,
			}).Error("purchase: rollback credit failed, manual reconciliation required")
		}
		return nil, err
	}

	s.queue <- purchase.ID
	s.publish(ctx, kafka.EventPurchaseStarted, purchase, flight.Name, "")
	return purchase, nil
}

func (s *PurchaseService) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	return s.purchases.GetByID(ctx, id)
}

func (s *PurchaseService) ListUserPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	return s.purchases.ListByUser(ctx, userID)
}

func (s *PurchaseService) ListFlightPurchases(ctx context.Context, flightID int64) ([]domain.Purchase, error) {
	return s.purchases.ListByFlight(ctx, flightID)
}

// RunSettlements drains the settlement queue with a bounded pool. Blocks
// until ctx is cancelled; the service mains run it in a goroutine.
func (s *PurchaseService) RunSettlements(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-s.queue:
					s.settle(ctx, id)
				}
			}
		}()
	}
	<-ctx.Done()
}

// settle resolves one purchase after the simulated processing delay. The
// compare-and-swap guard means a purchase cancelled while the worker slept
// is left untouched.
func (s *PurchaseService) settle(ctx context.Context, id string) {
	timer := time.NewTimer(s.delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	purchase, err := s.purchases.UpdateStatus(ctx, id, []domain.PurchaseStatus{domain.PurchaseStatusInProgress}, domain.PurchaseStatusCompleted)
	if errors.Is(err, domain.ErrStatusConflict) {
		s.log.WithField("purchase_id", id).Debug("settlement: purchase no longer in progress, skipping")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("purchase_id", id).Error("settlement: marking purchase failed")
		failed, failErr := s.purchases.UpdateStatus(ctx, id, []domain.PurchaseStatus{domain.PurchaseStatusInProgress}, domain.PurchaseStatusFailed)
		if failErr != nil {
			s.log.WithError(failErr).WithField("purchase_id", id).Error("settlement: could not mark purchase failed")
			return
		}
		// Funds stay debited on FAILED; that is the business rule, not an
		// omission.
		s.publish(ctx, kafka.EventPurchaseFailed, failed, s.flightName(ctx, failed.FlightID), s.userEmail(ctx, failed.UserID))
		return
	}

	s.publish(ctx, kafka.EventPurchaseCompleted, purchase, s.flightName(ctx, purchase.FlightID), s.userEmail(ctx, purchase.UserID))
}

// CancelPurchase refunds and cancels a single purchase. Already-cancelled
// purchases are a no-op; FAILED purchases are not cancellable.
func (s *PurchaseService) CancelPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	purchase, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch purchase.Status {
	case domain.PurchaseStatusCancelled:
		return purchase, nil
	case domain.PurchaseStatusFailed:
		return nil, domain.ErrPurchaseNotCancellable
	}

	updated, err := s.refundAndCancel(ctx, purchase)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.EventPurchaseCancelled, updated, s.flightName(ctx, updated.FlightID), s.userEmail(ctx, updated.UserID))
	return updated, nil
}

// CancelFlight is the flight-level cancellation saga: cancel the flight,
// then refund and cancel every live purchase, notifying each passenger.
// Each step is guarded so that re-running after a partial failure never
// double-refunds.
func (s *PurchaseService) CancelFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	flight, err := s.flights.UpdateStatus(ctx, flightID,
		[]domain.FlightStatus{domain.FlightStatusPending, domain.FlightStatusApproved, domain.FlightStatusRejected, domain.FlightStatusInProgress},
		domain.FlightStatusCancelled, nil)
	if errors.Is(err, domain.ErrStatusConflict) {
		if _, getErr := s.flights.GetByID(ctx, flightID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	purchases, err := s.purchases.ListByFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}

	for i := range purchases {
		p := &purchases[i]
		if p.Status != domain.PurchaseStatusInProgress && p.Status != domain.PurchaseStatusCompleted {
			continue
		}
		updated, err := s.refundAndCancel(ctx, p)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"purchase_id": p.ID,
				"flight_id":   flightID,
			}).Error("cancel flight: purchase left for manual reconciliation")
			continue
		}
		s.publish(ctx, kafka.EventFlightCancelled, updated, flight.Name, s.userEmail(ctx, updated.UserID))
	}

	if s.hub != nil {
		s.hub.Broadcast("flights", kafka.EventFlightCancelled, flight)
	}
	return flight, nil
}

// refundAndCancel credits the passenger and then moves the purchase to
// CANCELLED. Credit comes first; the idempotency key makes it safe to re-run
// if the status update fails and the operation is retried.
func (s *PurchaseService) refundAndCancel(ctx context.Context, purchase *domain.Purchase) (*domain.Purchase, error) {
	if _, err := s.ledger.Credit(ctx, purchase.UserID, purchase.TicketPriceCents, purchase.ID); err != nil {
		return nil, err
	}

	guard := []domain.PurchaseStatus{domain.PurchaseStatusInProgress, domain.PurchaseStatusCompleted}
	updated, err := s.purchases.UpdateStatus(ctx, purchase.ID, guard, domain.PurchaseStatusCancelled)
	if errors.Is(err, domain.ErrStatusConflict) {
		refreshed, getErr := s.purchases.GetByID(ctx, purchase.ID)
		if getErr != nil {
			return nil, getErr
		}
		if refreshed.Status == domain.PurchaseStatusCancelled {
			// Someone else cancelled concurrently; the credit deduplicated on
			// the idempotency key, so nothing was double-applied.
			return refreshed, nil
		}
		// Settlement moved the purchase to FAILED while the credit was in
		// flight. FAILED keeps its debit, so take the refund back under a
		// distinct key.
		if _, debitErr := s.ledger.Debit(ctx, purchase.UserID, purchase.TicketPriceCents, purchase.ID+":rollback"); debitErr != nil {
			s.log.WithError(debitErr).WithField("purchase_id", purchase.ID).Error("cancel: rollback debit failed, manual reconciliation required")
		}
		return nil, domain.ErrPurchaseNotCancellable
	}
	if err != nil {
		// The credit landed but the status write failed; retry once before
		// handing off to manual reconciliation.
		updated, err = s.purchases.UpdateStatus(ctx, purchase.ID, guard, domain.PurchaseStatusCancelled)
		if err != nil {
			return nil, err
		}
	}
	return updated, nil
}

func (s *PurchaseService) publish(ctx context.Context, eventType string, purchase *domain.Purchase, flightName, email string) {
	event := kafka.Event{
		Type:             eventType,
		PurchaseID:       purchase.ID,
		UserID:           purchase.UserID,
		FlightID:         purchase.FlightID,
		FlightName:       flightName,
		TicketPriceCents: purchase.TicketPriceCents,
		Status:           string(purchase.Status),
		Email:            email,
		OccurredAt:       time.Now().UTC(),
	}

	if s.producer != nil && s.eventsTopic != "" {
		if err := s.producer.Publish(ctx, s.eventsTopic, purchase.ID, event); err != nil {
			s.log.WithError(err).WithField("purchase_id", purchase.ID).Warn("purchase: publish event failed")
		}
	}
	if s.producer != nil && s.notificationsTopic != "" && email != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, purchase.ID, event); err != nil {
			s.log.WithError(err).WithField("purchase_id", purchase.ID).Warn("purchase: publish notification failed")
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(userRoom(purchase.UserID), eventType, event)
		s.hub.Broadcast("admin", eventType, event)
	}
}

func (s *PurchaseService) userEmail(ctx context.Context, userID int64) string {
	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("purchase: user lookup for notification failed")
		return ""
	}
	return user.Email
}

func (s *PurchaseService) flightName(ctx context.Context, flightID int64) string {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return ""
	}
	return flight.Name
}

func userRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

var _ PurchaseUseCase = (*PurchaseService)(nil)
