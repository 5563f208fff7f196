// internal/common/camunda/publisher.go
package camunda

import (
	"context"
	"time"

	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/metrics"
)

// Lifecycle messages correlated by application id.
const (
	MessageApplicationSubmitted = "application-submitted"
	MessageApplicationReviewed  = "application-reviewed"
)

// MessagePublisher sends workflow messages.
type MessagePublisher interface {
	Publish(ctx context.Context, name, correlationKey string, variables map[string]interface{}) error
}

// Publisher publishes Zeebe messages with a fixed time-to-live.
type Publisher struct {
	client *Client
	ttl    time.Duration
	logger logger.Logger
}

func NewPublisher(client *Client, ttl time.Duration, log logger.Logger) *Publisher {
	return &Publisher{client: client, ttl: ttl, logger: logger.Component(log, "workflow-publisher")}
}

func (p *Publisher) Publish(ctx context.Context, name, correlationKey string, variables map[string]interface{}) error {
	if p.client.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.client.config.RequestTimeout)
		defer cancel()
	}

	_, err := p.client.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := p.client.client.NewPublishMessageCommand().
			MessageName(name).
			CorrelationKey(correlationKey).
			TimeToLive(p.ttl).
			VariablesFromMap(variables)
		if err != nil {
			return nil, err
		}
		return cmd.Send(ctx)
	}, "publish "+name)

	if err != nil {
		metrics.WorkflowMessagesPublished.WithLabelValues(name, "failed").Inc()
		return err
	}

	metrics.WorkflowMessagesPublished.WithLabelValues(name, "published").Inc()
	p.logger.Debug("Published workflow message", map[string]interface{}{
		"message":        name,
		"correlationKey": correlationKey,
	})
	return nil
}

// NoopPublisher is used when the workflow engine is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, name, correlationKey string, variables map[string]interface{}) error {
	metrics.WorkflowMessagesPublished.WithLabelValues(name, "disabled").Inc()
	return nil
}
