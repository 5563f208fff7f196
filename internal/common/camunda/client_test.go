package camunda

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"creative-funding/internal/common/config"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func retryClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

// ==========================
// Retry Tests
// ==========================

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := retryClient(3)
	attempts := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return "ok", nil
	}, "publish application-submitted")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := retryClient(3)
	attempts := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, stderrors.New("rpc error: code = NotFound desc = process definition not found")
	}, "publish application-reviewed")

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestExecuteWithRetry_MapsExhaustedErrors(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		status int
	}{
		{name: "unavailable", msg: "unavailable", status: http.StatusBadGateway},
		{name: "deadline", msg: "context deadline exceeded", status: http.StatusGatewayTimeout},
		{name: "unauthorized", msg: "unauthorized", status: http.StatusUnauthorized},
		{name: "duplicate", msg: "message already exists", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := retryClient(1).ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
				return nil, stderrors.New(tt.msg)
			}, "op")
			require.Error(t, err)
			assert.Equal(t, tt.status, errors.HTTPStatus(err))
		})
	}
}

func TestExecuteWithRetry_UsesGRPCStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int
		status   int
	}{
		{name: "unavailable is retried", err: status.Error(codes.Unavailable, "gateway restarting"), attempts: 3, status: http.StatusBadGateway},
		{name: "already exists is final", err: status.Error(codes.AlreadyExists, "message with id app-1 was already published"), attempts: 1, status: http.StatusBadRequest},
		{name: "unauthenticated is final", err: status.Error(codes.Unauthenticated, "invalid credentials"), attempts: 1, status: http.StatusUnauthorized},
		{name: "invalid argument is final", err: status.Error(codes.InvalidArgument, "bad variables document"), attempts: 1, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			_, err := retryClient(2).ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
				attempts++
				return nil, tt.err
			}, "publish application-submitted")
			require.Error(t, err)
			assert.Equal(t, tt.attempts, attempts)
			assert.Equal(t, tt.status, errors.HTTPStatus(err))
		})
	}
}

func TestExecuteWithRetry_HonoursCancellation(t *testing.T) {
	c := &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, stderrors.New("connection reset")
	}, "op")
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Worker Registry Tests
// ==========================

func TestWorkers_DisabledWorkerIsNotOpened(t *testing.T) {
	w := NewWorkers(nil, logger.NewTestLogger(t))

	started := w.Start("send-decision-notification", config.WorkerConfig{Enabled: false}, nil)
	assert.False(t, started)
	assert.Empty(t, w.Running())
	w.Close()
}

func TestNoopPublisher(t *testing.T) {
	var p MessagePublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), MessageApplicationSubmitted, "app-1", nil))
}
