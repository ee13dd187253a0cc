package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"carenest-server/internal/config"
)

// EventType names an appointment lifecycle event.
type EventType string

const (
	AppointmentBooked            EventType = "appointment.booked"
	AppointmentCancelled         EventType = "appointment.cancelled"
	AppointmentStatusChanged     EventType = "appointment.status_changed"
	AppointmentPrescriptionAdded EventType = "appointment.prescription_added"
	AppointmentReminder          EventType = "appointment.reminder"
)

// AppointmentEvent is the payload published for every lifecycle change.
type AppointmentEvent struct {
	Type          EventType `json:"type"`
	AppointmentID string    `json:"appointmentId"`
	PatientID     string    `json:"patientId"`
	DoctorID      string    `json:"doctorId"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher emits appointment events. Events passed in one call are
// written as a single batch.
type Publisher interface {
	Publish(ctx context.Context, events ...AppointmentEvent) error
	Close() error
}

// New returns a Kafka publisher when a broker is configured, otherwise a no-op.
func New(cfg config.KafkaConfig, log *zap.Logger) Publisher {
	if cfg.Broker == "" {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg, log)
}

const batchTimeout = 10 * time.Millisecond

// KafkaPublisher writes events to a single topic keyed by appointment id.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, log *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Broker),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
		// kafka-go waits up to BatchTimeout for a batch to fill; the 1s
		// default would stall every synchronous publish.
		BatchTimeout: batchTimeout,
	}
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...AppointmentEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs, err := encode(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to produce %d message(s): %w", len(msgs), err)
	}

	p.log.Debug("events published", zap.String("type", string(events[0].Type)), zap.Int("count", len(msgs)))
	return nil
}

func encode(events []AppointmentEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.AppointmentID),
			Value: payload,
		})
	}
	return msgs, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...AppointmentEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
