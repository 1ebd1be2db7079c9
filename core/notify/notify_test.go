package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
	// hang blocks writes until the context is done
	hang bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("1")}, nil
}

func TestNewEvent(t *testing.T) {
	ctx, _ := logger.ContextWithLogger(context.Background())
	id := uuid.New()
	e, err := NewEvent(ctx, core.ResourceListing, core.OperationCreate, id, map[string]string{"title": "Golf"})
	require.NoError(t, err)
	assert.Equal(t, "listing.create", e.Topic())
	assert.JSONEq(t, `{"title":"Golf"}`, string(e.Payload))
	assert.Contains(t, string(e.Context), logger.RequestIDFromContext(ctx))

	e, err = NewEvent(context.Background(), core.ResourceListing, core.OperationDelete, id, nil)
	require.NoError(t, err)
	assert.Nil(t, e.Payload)
	assert.Equal(t, "{}", string(e.Context))
}

func TestNew(t *testing.T) {
	n, err := New(context.Background(), Configuration{})
	require.NoError(t, err)
	assert.IsType(t, Log{}, n)
	assert.NoError(t, n.Notify(context.Background(), Event{Resource: "listing", Operation: core.OperationUpdate}))

	_, err = New(context.Background(), Configuration{Type: "carrier-pigeon"})
	assert.Error(t, err)

	_, err = New(context.Background(), Configuration{Type: TypeKafka})
	assert.Error(t, err, "brokers are required")

	_, err = New(context.Background(), Configuration{Type: TypeSQS})
	assert.Error(t, err, "queue url is required")

	n, err = New(context.Background(), Configuration{Type: TypeKafka, KafkaBrokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	k := n.(*Kafka)
	assert.Equal(t, DefaultKafkaTopic, k.topic)
	assert.NoError(t, k.Close())
}

func TestKafka_Notify(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{writer: w, topic: "test"}
	id := uuid.New()
	e, err := NewEvent(context.Background(), core.ResourceInquiry, core.OperationCreate, id, map[string]int{"year": 2012})
	require.NoError(t, err)

	require.NoError(t, k.Notify(context.Background(), e))
	require.Len(t, w.messages, 1)
	m := w.messages[0]
	assert.Equal(t, id.String(), string(m.Key))
	require.Len(t, m.Headers, 1)
	assert.Equal(t, "inquiry.create", string(m.Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, core.OperationCreate, got.Operation)
	assert.JSONEq(t, `{"year":2012}`, string(got.Payload))

	w.err = errors.New("broker down")
	err = k.Notify(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafka_NotifyTimeout(t *testing.T) {
	k := &Kafka{writer: &fakeWriter{hang: true}, topic: "test", timeout: 50 * time.Millisecond}
	e, err := NewEvent(context.Background(), core.ResourceListing, core.OperationUpdate, uuid.New(), nil)
	require.NoError(t, err)

	start := time.Now()
	err = k.Notify(context.Background(), e)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	// a cancelled request does not abort the write
	w := &fakeWriter{}
	k = &Kafka{writer: w, topic: "test"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, k.Notify(ctx, e))
	assert.Len(t, w.messages, 1)
}

func TestSQS_Notify(t *testing.T) {
	f := &fakeSQS{}
	s := &SQS{client: f, queueURL: "https://sqs.eu-central-1.amazonaws.com/1/carlot"}
	id := uuid.New()

	require.NoError(t, s.Notify(context.Background(), Event{Resource: "listing", Operation: core.OperationDelete, ID: id}))
	require.Len(t, f.inputs, 1)
	in := f.inputs[0]
	assert.Equal(t, s.queueURL, aws.ToString(in.QueueUrl))
	assert.Equal(t, "listing.delete", aws.ToString(in.MessageAttributes["event"].StringValue))

	var got Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &got))
	assert.Equal(t, id, got.ID)

	f.err = errors.New("throttled")
	assert.Error(t, s.Notify(context.Background(), Event{ID: id}))
}

// TestKafka_Integration writes to a real broker. Set CARLOT_INTEGRATION and
// KAFKA_BROKERS, e.g. KAFKA_BROKERS=localhost:9092.
func TestKafka_Integration(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if os.Getenv("CARLOT_INTEGRATION") == "" || brokers == "" {
		t.Skip("set CARLOT_INTEGRATION and KAFKA_BROKERS to run against kafka")
	}
	topic := "carlot_test_" + uuid.NewString()[:8]
	conn, err := kafka.Dial("tcp", brokers)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))

	k, err := NewKafka([]string{brokers}, topic)
	require.NoError(t, err)
	defer k.Close()

	id := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, k.Notify(ctx, Event{Resource: "listing", Operation: core.OperationCreate, ID: id}))

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: []string{brokers}, Topic: topic})
	defer r.Close()
	m, err := r.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, id.String(), string(m.Key))
}
