package kafka

import (
	"context"
	"time"

	"github.com/avelic/skyfare/config"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageSource is the slice of *kafka.Reader the consumer needs. Commits
// are issued explicitly so a message is only acknowledged once its handler
// has succeeded.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	source messageSource
	log    *logrus.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, log *logrus.Logger) *Consumer {
	return &Consumer{
		source: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.source == nil {
		return nil
	}
	return c.source.Close()
}

// Consume fetches messages and hands them to handler, committing each offset
// only after the handler returns nil. A handler error leaves the message
// uncommitted so the group redelivers it; the loop keeps going instead of
// tearing the consumer down.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.source.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("handler failed, message left uncommitted")
			continue
		}

		if err := c.source.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}
