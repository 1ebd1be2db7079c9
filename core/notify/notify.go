/*
Package notify publishes domain events about listings and inquiries.

A Notifier is called by the HTTP handlers after a successful modification. Failing
to notify is logged by the caller and never fails the request. The default
notifier only logs, Kafka and SQS notifiers forward the events to a broker.
*/
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/logger"
)

// Event is a domain event
type Event struct {
	Resource  string          `json:"resource"`
	Operation core.Operation  `json:"operation"`
	ID        uuid.UUID       `json:"id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	// Context carries the request id of the originating request, see logger.SerializeLoggerContext
	Context   json.RawMessage `json:"context,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent creates an event for the resource with the given id. The payload is
// serialized as JSON, a nil payload is omitted.
func NewEvent(ctx context.Context, resource string, operation core.Operation, id uuid.UUID, payload interface{}) (Event, error) {
	e := Event{
		Resource:  resource,
		Operation: operation,
		ID:        id,
		Context:   logger.SerializeLoggerContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return e, fmt.Errorf("cannot marshal %s payload: %w", resource, err)
		}
		e.Payload = body
	}
	return e, nil
}

// Topic returns the routing key of the event, e.g. "listing.create"
func (e Event) Topic() string {
	return e.Resource + "." + string(e.Operation)
}

// Notifier publishes events
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// Log is a Notifier which only logs the events
type Log struct{}

// Notify logs the event
func (Log) Notify(ctx context.Context, event Event) error {
	logger.FromContext(ctx).WithField("event", event.Topic()).Infoln("notify", event.ID)
	return nil
}

// Close does nothing
func (Log) Close() error { return nil }

// Notifier types
const (
	TypeLog   = "log"
	TypeKafka = "kafka"
	TypeSQS   = "sqs"
)

// Configuration selects and configures a Notifier
type Configuration struct {
	Type         string
	KafkaBrokers []string
	KafkaTopic   string
	SQSQueueURL  string
	AWSRegion    string
}

// New returns the notifier selected by the configuration. An empty type selects the log notifier.
func New(ctx context.Context, config Configuration) (Notifier, error) {
	switch config.Type {
	case "", TypeLog:
		return Log{}, nil
	case TypeKafka:
		return NewKafka(config.KafkaBrokers, config.KafkaTopic)
	case TypeSQS:
		return NewSQS(ctx, config.SQSQueueURL, config.AWSRegion)
	default:
		return nil, fmt.Errorf("unknown notifier type '%s'", config.Type)
	}
}
