package syncleads

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"broker-backoffice/internal/backoffice"
	"broker-backoffice/internal/common/config"
	"broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Syncer
// ==========================

type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) SyncExternal(ctx context.Context, since time.Time) (*backoffice.SyncSummary, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backoffice.SyncSummary), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "crm-sync",
		ElementId:          "Activity_SyncLeads",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func setupHandler(t *testing.T, syncer Syncer) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		Syncer:       syncer,
		CustomConfig: DefaultConfig(),
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

// ==========================
// Configuration
// ==========================

func TestNewHandler(t *testing.T) {
	t.Run("requires syncer", func(t *testing.T) {
		_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewHandler(HandlerOptions{Syncer: &MockSyncer{}, CustomConfig: &Config{}})
		assert.Error(t, err)
	})

	t.Run("app config overlay", func(t *testing.T) {
		appCfg := &config.Config{Workers: map[string]config.WorkerConfig{
			TaskType: {Enabled: false, MaxJobsActive: 2, Timeout: 60000},
		}}
		h, err := NewHandler(HandlerOptions{AppConfig: appCfg, Syncer: &MockSyncer{}, Logger: logger.NewNoOpLogger()})
		require.NoError(t, err)
		assert.False(t, h.config.Enabled)
		assert.Equal(t, 2, h.config.MaxJobsActive)
		assert.Equal(t, time.Minute, h.config.Timeout)
	})
}

// ==========================
// Input parsing
// ==========================

func TestParseInput(t *testing.T) {
	h := setupHandler(t, &MockSyncer{})

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{"since": "2025-02-01T00:00:00Z"}))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), input.Since)

	input, err = h.parseInput(createMockJob(2, map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, input.Since.IsZero())

	_, err = h.parseInput(createMockJob(3, map[string]interface{}{"since": "ontem"}))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}

func TestParseInput_SchemaViolation(t *testing.T) {
	h := setupHandler(t, &MockSyncer{})

	_, err := h.parseInput(createMockJob(4, map[string]interface{}{"since": 20250201}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "since")
}

// ==========================
// Execute
// ==========================

func TestExecute_Success(t *testing.T) {
	syncer := &MockSyncer{}
	since := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	syncer.On("SyncExternal", mock.Anything, since).
		Return(&backoffice.SyncSummary{Fetched: 3, Created: 2, Updated: 1, Pages: 1}, nil)

	h := setupHandler(t, syncer)
	out, err := h.Execute(context.Background(), &Input{Since: since})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "3 leads fetched, 2 created, 1 updated", out.Message)
	syncer.AssertExpectations(t)
}

func TestExecute_DefaultsToLookback(t *testing.T) {
	syncer := &MockSyncer{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	syncer.On("SyncExternal", mock.Anything, now.Add(-24*time.Hour)).
		Return(&backoffice.SyncSummary{}, nil)

	h := setupHandler(t, syncer)
	h.now = func() time.Time { return now }

	_, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	syncer.AssertExpectations(t)
}

func TestExecute_SyncFailure(t *testing.T) {
	syncer := &MockSyncer{}
	syncer.On("SyncExternal", mock.Anything, mock.Anything).
		Return(nil, errors.NewCRMSyncFailedError(assert.AnError))

	h := setupHandler(t, syncer)
	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeCRMSyncFailed))
}
