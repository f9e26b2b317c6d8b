package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventLogin            EventType = "login"
	EventLogout           EventType = "logout"
	EventRequestCreated   EventType = "request_created"
	EventSearchCancelled  EventType = "search_cancelled"
	EventOfferMade        EventType = "offer_made"
	EventOfferSuppressed  EventType = "offer_suppressed"
	EventOfferAccepted    EventType = "offer_accepted"
	EventRideStatusChange EventType = "ride_status_changed"
	EventRideCompleted    EventType = "ride_completed"
	EventRideCancelled    EventType = "ride_cancelled"
	EventPricingUpdated   EventType = "pricing_updated"
)

// Event is one entry in the session journal.
type Event struct {
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	UserID    string    `json:"user_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	OfferID   string    `json:"offer_id,omitempty"`
	RideID    string    `json:"ride_id,omitempty"`
	DriverID  string    `json:"driver_id,omitempty"`
	Fare      float64   `json:"fare,omitempty"`
	Status    string    `json:"status,omitempty"`
}

// Publisher writes session events to Kafka. A nil Publisher is valid and
// drops everything, so callers never need to branch on configuration.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &Publisher{writer: w}
}

func (p *Publisher) Publish(e Event) error {
	if p == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(e)
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(string(e.Type)), Value: b})
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
