// Package events fans settlement records out to off-chain consumers.
package events

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/halcyonlabs/settler-go/internal/logger"
	"github.com/halcyonlabs/settler-go/internal/store"
)

// Publisher delivers settlement records to an external consumer.
type Publisher interface {
	PublishSettlement(ctx context.Context, s store.Settlement) error
}

// SQSPublisher publishes settlement records as JSON messages on an SQS
// queue consumed by the indexer pipeline.
type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewSQSPublisher creates an SQS publisher using the ambient AWS
// configuration chain.
func NewSQSPublisher(ctx context.Context, queueURL string) (*SQSPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	return &SQSPublisher{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		logger:   logger.Log,
	}, nil
}

// PublishSettlement sends one settlement record to the queue.
func (p *SQSPublisher) PublishSettlement(ctx context.Context, s store.Settlement) error {
	body, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal settlement")
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return errors.Wrap(err, "failed to publish settlement")
	}

	p.logger.Debug("published settlement",
		zap.String("settlement_id", s.ID.String()),
		zap.String("queue_url", p.queueURL),
	)
	return nil
}

// Noop discards all settlement records. Used when no queue is configured.
type Noop struct{}

// PublishSettlement does nothing.
func (Noop) PublishSettlement(context.Context, store.Settlement) error {
	return nil
}
