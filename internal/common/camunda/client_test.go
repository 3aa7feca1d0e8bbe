package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "broker-backoffice/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return Wrap(nil, &ClientConfig{
		ConnectionTimeout: time.Second,
		RequestTimeout:    time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   2 * time.Millisecond,
		},
	})
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	client := newTestClient()
	calls := 0

	result, err := client.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return int64(42), nil
	}, "start-process")

	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	client := newTestClient()
	calls := 0

	_, err := client.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("process lead-intake not found")
	}, "start-process")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.HasCode(err, "RESOURCE_NOT_FOUND"))
}

func TestExecuteWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	client := newTestClient()
	calls := 0

	_, err := client.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("context deadline exceeded")
	}, "start-process")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.HasCode(err, "TIMEOUT_ERROR"))
}

func TestExecuteWithRetry_HonoursCancellation(t *testing.T) {
	client := Wrap(nil, &ClientConfig{RetryConfig: &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("connection reset by peer")
	}, "start-process")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		code apperrors.ErrorCode
	}{
		{"connection refused", "EXTERNAL_SERVICE_ERROR"},
		{"deadline exceeded", "TIMEOUT_ERROR"},
		{"resource not found", "RESOURCE_NOT_FOUND"},
		{"instance already exists", "BUSINESS_RULE_VIOLATION"},
		{"permission denied", "AUTHENTICATION_ERROR"},
		{"something odd", "EXTERNAL_SERVICE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(errors.New(tt.msg), "op", 0)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}
