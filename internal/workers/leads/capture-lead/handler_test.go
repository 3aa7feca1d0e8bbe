package capturelead

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"broker-backoffice/internal/backoffice"
	"broker-backoffice/internal/common/config"
	"broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Capturer
// ==========================

type MockCapturer struct {
	mock.Mock
}

func (m *MockCapturer) CaptureLead(ctx context.Context, lead models.Lead) (*backoffice.ContactResult, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backoffice.ContactResult), args.Error(1)
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
		BpmnProcessId:      "lead-intake",
		ElementId:          "Activity_CaptureLead",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createValidInput() *Input {
	return &Input{
		Name:        "Maria Silva",
		Email:       "maria@example.com",
		Product:     "auto",
		Message:     "Cotação para meu carro",
		Attachments: []string{"https://bucket.s3.sa-east-1.amazonaws.com/uploads/guest_1/1_cnh.pdf"},
	}
}

func createTestHandler(t *testing.T, capturer Capturer) *Handler {
	t.Helper()
	h, err := NewHandler(DefaultConfig(), capturer, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

// ==========================
// Configuration
// ==========================

func TestConfigFromApp(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 2, Timeout: 5000},
	}}
	cfg.Contact.ContentName = "Landing Auto"

	out := ConfigFromApp(cfg)
	assert.False(t, out.Enabled)
	assert.Equal(t, 2, out.MaxJobsActive)
	assert.Equal(t, 5*time.Second, out.Timeout)
	assert.Equal(t, "Landing Auto", out.ContentName)

	_, err := NewHandler(&Config{MaxJobsActive: 1}, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	capturer := new(MockCapturer)
	h := createTestHandler(t, capturer)

	capturer.On("CaptureLead", mock.Anything, mock.MatchedBy(func(l models.Lead) bool {
		return l.Name == "Maria Silva" &&
			l.Product == models.ProductMobility &&
			l.Origin == models.OriginSiteForm &&
			l.ContentName == "Formulário de Contato" &&
			len(l.Attachments) == 1
	})).Return(&backoffice.ContactResult{
		Lead:          models.Lead{ID: "lead-1", Product: models.ProductMobility, Status: models.StatusNew},
		Notifications: []string{"n1", "n2"},
	}, nil)

	out, err := h.Execute(context.Background(), createValidInput())
	require.NoError(t, err)
	assert.Equal(t, "lead-1", out.LeadID)
	assert.Equal(t, models.ProductMobility, out.Product)
	assert.Equal(t, models.StatusNew, out.Status)
	assert.Equal(t, 2, out.Notifications)
	capturer.AssertExpectations(t)
}

func TestHandler_Execute_InvalidEmail(t *testing.T) {
	capturer := new(MockCapturer)
	h := createTestHandler(t, capturer)

	input := createValidInput()
	input.Email = "maria.example.com"

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeContactValidationFailed, stdErr.Code)
	assert.Equal(t, backoffice.InvalidEmailMessage, stdErr.Message)
	capturer.AssertNotCalled(t, "CaptureLead", mock.Anything, mock.Anything)
}

func TestHandler_Execute_StoreFailure(t *testing.T) {
	capturer := new(MockCapturer)
	h := createTestHandler(t, capturer)

	capturer.On("CaptureLead", mock.Anything, mock.Anything).
		Return(nil, errors.NewLeadStoreWriteError("create", assert.AnError))

	_, err := h.Execute(context.Background(), createValidInput())
	assert.True(t, errors.HasCode(err, errors.ErrCodeLeadStoreWriteFailed))
}

func TestHandler_Execute_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	h, err := NewHandler(cfg, new(MockCapturer), logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), createValidInput())
	assert.Error(t, err)
}

// ==========================
// Input parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, new(MockCapturer))

	tests := []struct {
		name     string
		vars     map[string]interface{}
		wantCode errors.ErrorCode
		wantMsg  string
	}{
		{
			name:     "missing name",
			vars:     map[string]interface{}{"email": "maria@example.com"},
			wantCode: errors.ErrCodeContactValidationFailed,
		},
		{
			name:     "bad email",
			vars:     map[string]interface{}{"name": "Maria", "email": "nope"},
			wantCode: errors.ErrCodeContactValidationFailed,
			wantMsg:  backoffice.InvalidEmailMessage,
		},
		{
			name:     "attachments must be strings",
			vars:     map[string]interface{}{"name": "Maria", "email": "maria@example.com", "attachments": []interface{}{1}},
			wantCode: errors.ErrCodeContactValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(1, tt.vars))
			require.Error(t, err)
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, stdErr.Message)
			}
		})
	}

	input, err := h.parseInput(createMockJob(2, map[string]interface{}{
		"name":        "Maria Silva",
		"email":       "maria@example.com",
		"product":     "auto",
		"attachments": []interface{}{"https://x/1.pdf"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva", input.Name)
	assert.Equal(t, []string{"https://x/1.pdf"}, input.Attachments)
}
