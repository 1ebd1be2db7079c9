package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/goccy/go-json"

	"github.com/relabs-tech/carlot/core/logger"
)

// sqsAPI is the part of the sqs client the notifier needs
type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQS publishes events to an AWS SQS queue
type SQS struct {
	client   sqsAPI
	queueURL string
}

// NewSQS returns a notifier sending to the queue. Credentials come from the default AWS chain.
func NewSQS(ctx context.Context, queueURL, region string) (*SQS, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("sqs notifier needs a queue url")
	}
	var options []func(*config.LoadOptions) error
	if region != "" {
		options = append(options, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, err
	}
	logger.Default().Infoln("sqs notifications enabled on queue", queueURL)
	return &SQS{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Notify implements Notifier
func (s *SQS) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(event.Topic())},
		},
	})
	if err != nil {
		return fmt.Errorf("cannot send to sqs queue: %w", err)
	}
	return nil
}

// Close does nothing
func (s *SQS) Close() error { return nil }
