// internal/common/camunda/client.go
package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"creative-funding/internal/common/config"
	"creative-funding/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client holds the gateway connection used by the message publisher and the job workers.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress    string
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration
	RetryConfig       *RetryConfig
}

// RetryConfig bounds the backoff applied to transient gateway failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClientFromConfig connects to the gateway named in the camunda section and checks
// that the broker answers a topology request before returning.
func NewClientFromConfig(cfg config.CamundaConfig) (*Client, error) {
	return dial(&ClientConfig{
		GatewayAddress:    cfg.BrokerAddress,
		ConnectionTimeout: 10 * time.Second,
		RequestTimeout:    config.GetDuration(cfg.RequestTimeout),
		RetryConfig:       DefaultRetryConfig,
	})
}

func dial(cfg *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: cfg}
	if err := c.HealthCheck(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("broker at %s not reachable: %w", cfg.GatewayAddress, err)
	}
	return c, nil
}

// GetClient returns the raw Zeebe client used to open job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs a gateway command, retrying transient failures with
// exponential backoff. The final error is converted into a portal error.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	retry := c.config.RetryConfig
	if retry == nil {
		retry = DefaultRetryConfig
	}

	for attempt := 0; ; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}

		if !transient(err) || attempt == retry.MaxRetries {
			return nil, classify(err, operationName, attempt+1)
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err())
		}
	}
}

// Gateway errors that do not carry a gRPC status are matched on their text.
var transientPhrases = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"unreachable",
}

func transient(err error) bool {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return true
		}
		return false
	}
	return containsAny(strings.ToLower(err.Error()), transientPhrases...)
}

func classify(err error, operation string, attempts int) error {
	cause := fmt.Errorf("zeebe %s failed after %d attempt(s): %w", operation, attempts, err)

	code := codes.Unknown
	if st, ok := status.FromError(err); ok {
		code = st.Code()
	}
	msg := strings.ToLower(err.Error())

	switch {
	case code == codes.DeadlineExceeded || stderrors.Is(err, context.DeadlineExceeded) ||
		containsAny(msg, "timeout", "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", cause)

	case code == codes.NotFound || containsAny(msg, "not found"):
		return errors.NewNotFoundError("zeebe resource", cause.Error())

	case code == codes.AlreadyExists || containsAny(msg, "already exists"):
		return errors.NewBadRequestError(cause.Error())

	case code == codes.PermissionDenied || code == codes.Unauthenticated ||
		containsAny(msg, "permission denied", "unauthorized"):
		return errors.NewAuthenticationError(cause.Error())

	default:
		return errors.NewExternalServiceError("zeebe", cause)
	}
}

func containsAny(s string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// HealthCheck sends a topology request bounded by the connection timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
