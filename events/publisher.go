package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"tablebook/model"
)

type Type string

const (
	ReservationCreated   Type = "reservation.created"
	ReservationUpdated   Type = "reservation.updated"
	ReservationConfirmed Type = "reservation.confirmed"
	ReservationDeclined  Type = "reservation.declined"
	ReservationDeleted   Type = "reservation.deleted"
)

type Event struct {
	ID            string       `json:"id"`
	Type          Type         `json:"type"`
	ReservationID uint         `json:"reservation_id"`
	UserID        uint         `json:"user_id"`
	RestaurantID  uint         `json:"restaurant_id"`
	Status        model.Status `json:"status"`
	ActorID       uint         `json:"actor_id"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// NewReservationEvent snapshots r as seen after the change made by actor.
func NewReservationEvent(typ Type, r model.Reservation, actorID uint) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          typ,
		ReservationID: r.ReservationID,
		UserID:        r.UserID,
		RestaurantID:  r.RestaurantID,
		Status:        r.Status,
		ActorID:       actorID,
		OccurredAt:    time.Now().UTC(),
	}
}

//go:generate mockgen -source=publisher.go -destination=mocks/publisher_mock.go -package=mocks

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaPublisher returns an async publisher: Publish only queues the
// message and delivery failures are reported through the logger.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{logger: logger}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		MaxAttempts:            3,
		Async:                  true,
		Completion:             p.completed,
	}
	return p
}

// Publish keys messages by reservation id so one reservation's events stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	p.logger.Debug("write message to kafka...",
		slog.String("topic", p.writer.Topic),
		slog.String("key", string(msg.Key)),
		slog.String("type", string(event.Type)),
	)
	return errors.Wrap(p.writer.WriteMessages(ctx, msg), "write event")
}

func (p *KafkaPublisher) completed(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Warn("deliver reservation event failed",
			slog.String("topic", p.writer.Topic),
			slog.String("key", string(m.Key)),
			slog.Any("error", err),
		)
	}
}

func encode(event Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, "marshal event")
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ReservationID), 10)),
		Value: payload,
	}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}
