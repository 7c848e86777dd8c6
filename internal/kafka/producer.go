package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is the single wire shape published to both the events topic (fed to
// the websocket hub) and the notifications topic (consumed by the mail
// worker). Fields not relevant to a given event type stay zero.
type Event struct {
	Type             string    `json:"type"`
	PurchaseID       string    `json:"purchase_id,omitempty"`
	UserID           int64     `json:"user_id,omitempty"`
	FlightID         int64     `json:"flight_id,omitempty"`
	FlightName       string    `json:"flight_name,omitempty"`
	TicketPriceCents int64     `json:"ticket_price_cents,omitempty"`
	Status           string    `json:"status,omitempty"`
	Email            string    `json:"email,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

const (
	EventPurchaseStarted   = "purchase_started"
	EventPurchaseCompleted = "purchase_completed"
	EventPurchaseFailed    = "purchase_failed"
	EventPurchaseCancelled = "purchase_cancelled"
	EventFlightCreated     = "flight_created"
	EventFlightCancelled   = "flight_cancelled"
	EventFlightStatusTick  = "flight_status_tick"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
