package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/carlot/core/logger"
)

// DefaultKafkaTopic is used when no topic is configured
const DefaultKafkaTopic = "carlot_notification"

// DefaultKafkaWriteTimeout bounds the time a write waits for the brokers, retries included
const DefaultKafkaWriteTimeout = 5 * time.Second

// messageWriter is the part of kafka.Writer the notifier needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events to a Kafka topic. Messages are keyed by the resource id, so
// all events of one listing end up in the same partition.
type Kafka struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewKafka returns a notifier writing to the topic on the given brokers
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka notifier needs at least one broker")
	}
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		WriteTimeout: DefaultKafkaWriteTimeout,
	}
	logger.Default().Infoln("kafka notifications enabled on topic", topic)
	return &Kafka{writer: w, topic: topic, timeout: DefaultKafkaWriteTimeout}, nil
}

// Notify implements Notifier. The write outlives a cancelled request but not the timeout.
func (k *Kafka) Notify(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	timeout := k.timeout
	if timeout == 0 {
		timeout = DefaultKafkaWriteTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Topic())},
		},
	})
	if err != nil {
		return fmt.Errorf("cannot write to kafka topic %s: %w", k.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (k *Kafka) Close() error {
	return k.writer.Close()
}
