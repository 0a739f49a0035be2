package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"storefront/internal/config"
)

// SQSAPI is the subset of the SQS client used by SQSPublisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher publishes events to an SQS queue.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	logger   *zap.Logger
}

// NewSQSPublisher creates a publisher backed by the given SQS client.
func NewSQSPublisher(client SQSAPI, queueURL string, logger *zap.Logger) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

// NewSQSClient builds an SQS client, preferring static credentials when configured.
func NewSQSClient(ctx context.Context, cfg config.EventsConfig) (*sqs.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AWSAccessKey != "" && cfg.AWSSecret != "" {
		awsCfg, err = awsConfig.LoadDefaultConfig(ctx,
			awsConfig.WithRegion(cfg.AWSRegion),
			awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKey,
				cfg.AWSSecret,
				"",
			)),
		)
	} else {
		awsCfg, err = awsConfig.LoadDefaultConfig(ctx,
			awsConfig.WithRegion(cfg.AWSRegion),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return sqs.NewFromConfig(awsCfg), nil
}

// Publish sends the event as a JSON message with its type as a message attribute.
func (p *SQSPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send %s event: %w", event.Type, err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)

	return nil
}

// Ensure SQSPublisher implements Publisher.
var _ Publisher = (*SQSPublisher)(nil)
