// internal/workers/communication/send-notification/handler_test.go
package sendnotification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/models"
	"broker-backoffice/internal/notify"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	mu        sync.Mutex
	published []*sns.PublishInput
	err       error
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "noreply@consegseguro.com",
		AlertPhone:   "+5511999990000",
		BatchSize:    20,
		Timeout:      30 * time.Second,
	}
}

func okSES(sent *[]*ses.SendEmailInput) *MockSESService {
	return &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			*sent = append(*sent, params)
			return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
		},
	}
}

func seedQueue(t *testing.T) (*notify.MemoryQueue, models.Lead) {
	t.Helper()
	q := notify.NewMemoryQueue()
	lead := models.Lead{
		ID:           "lead-1",
		Name:         "Maria Silva",
		ContactEmail: "maria@example.com",
		Product:      models.ProductMobility,
	}
	_, err := q.Enqueue(context.Background(), notify.NewLeadEmail(lead, "consegcn@terra.com.br"))
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), notify.ConfirmationEmail(lead))
	require.NoError(t, err)
	return q, lead
}

// ==========================
// Tests
// ==========================

func TestExecute_SendsPendingAndAlertsBySMS(t *testing.T) {
	q, _ := seedQueue(t)
	var sent []*ses.SendEmailInput
	smsClient := &MockSNSService{}
	h := NewHandler(createTestConfig(), q, okSES(&sent), smsClient, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Sent)
	assert.Equal(t, 0, out.Failed)
	assert.True(t, out.SMSSent)

	require.Len(t, sent, 2)
	assert.Equal(t, "noreply@consegseguro.com", *sent[0].Source)

	require.Len(t, smsClient.published, 1)
	assert.Equal(t, "+5511999990000", *smsClient.published[0].PhoneNumber)
	assert.Contains(t, *smsClient.published[0].Message, "Maria Silva")

	pending, _ := q.Pending(context.Background(), 0)
	assert.Empty(t, pending)
}

func TestExecute_SESFailureMarksRecordFailed(t *testing.T) {
	q, _ := seedQueue(t)
	sesClient := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			if params.Destination.ToAddresses[0] == "maria@example.com" {
				return nil, errors.New("MessageRejected: Email address is not verified")
			}
			return &ses.SendEmailOutput{}, nil
		},
	}
	h := NewHandler(createTestConfig(), q, sesClient, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, 1, out.Failed)
	assert.False(t, out.SMSSent)

	pending, _ := q.Pending(context.Background(), 0)
	assert.Empty(t, pending)
}

func TestExecute_FiltersByLead(t *testing.T) {
	q, _ := seedQueue(t)
	_, err := q.Enqueue(context.Background(), models.EmailRecord{Recipient: "x@y.com", LeadID: "other", Kind: models.EmailLeadConfirmation})
	require.NoError(t, err)

	var sent []*ses.SendEmailInput
	h := NewHandler(createTestConfig(), q, okSES(&sent), nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{LeadID: "other"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"x@y.com"}, sent[0].Destination.ToAddresses)
}

func TestExecute_EmailDisabled(t *testing.T) {
	q, _ := seedQueue(t)
	cfg := createTestConfig()
	cfg.EmailEnabled = false
	h := NewHandler(cfg, q, nil, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.True(t, out.Disabled)

	pending, _ := q.Pending(context.Background(), 0)
	assert.Len(t, pending, 2)
}

func TestExecute_SMSDisabledWithoutPhone(t *testing.T) {
	q, _ := seedQueue(t)
	cfg := createTestConfig()
	cfg.AlertPhone = ""
	var sent []*ses.SendEmailInput
	smsClient := &MockSNSService{}
	h := NewHandler(cfg, q, okSES(&sent), smsClient, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.False(t, out.SMSSent)
	assert.Empty(t, smsClient.published)
}

func TestSendSMS_SenderID(t *testing.T) {
	cfg := createTestConfig()
	cfg.SMSSenderID = "CONSEG"
	smsClient := &MockSNSService{}
	h := NewHandler(cfg, notify.NewMemoryQueue(), nil, smsClient, logger.NewTestLogger(t))

	require.NoError(t, h.sendSMS(context.Background(), "+5511", "oi"))
	attr := smsClient.published[0].MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.Equal(t, "CONSEG", *attr.StringValue)

	smsClient.err = errors.New("throttled")
	err := h.sendSMS(context.Background(), "+5511", "oi")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
}
