// Package errors provides the error taxonomy shared by the back-office
// services and its BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is a stable, machine readable error identifier.
type ErrorCode string

// Form and validation errors, surfaced inline next to the offending field.
const (
	ErrCodeContactValidationFailed ErrorCode = "CONTACT_VALIDATION_FAILED"
	ErrCodeInvalidLeadStatus       ErrorCode = "INVALID_LEAD_STATUS"
	ErrCodeInvalidInput            ErrorCode = "INVALID_INPUT"
)

// Pipeline errors.
const (
	ErrCodeLeadNotFound     ErrorCode = "LEAD_NOT_FOUND"
	ErrCodeProposalRequired ErrorCode = "PROPOSAL_REQUIRED"
)

// Remote store errors. These are logged and never roll back local state.
const (
	ErrCodeLeadStoreWriteFailed     ErrorCode = "LEAD_STORE_WRITE_FAILED"
	ErrCodeLeadStoreReadFailed      ErrorCode = "LEAD_STORE_READ_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeAttachmentUploadFailed   ErrorCode = "ATTACHMENT_UPLOAD_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout            ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeVaultListFailed          ErrorCode = "VAULT_LIST_FAILED"
)

// Authentication errors. Each maps to a fixed user facing message.
const (
	ErrCodeAuthInvalidCredentials ErrorCode = "AUTH_INVALID_CREDENTIALS"
	ErrCodeAuthTooManyAttempts    ErrorCode = "AUTH_TOO_MANY_ATTEMPTS"
	ErrCodeAuthDenied             ErrorCode = "AUTH_DENIED"
	ErrCodeAuthOffline            ErrorCode = "AUTH_OFFLINE"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
)

// Integration errors.
const (
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCRMSyncFailed          ErrorCode = "CRM_SYNC_FAILED"
	ErrCodeWorkflowStartFailed    ErrorCode = "WORKFLOW_START_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err looking for a *StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewContactValidationError carries the inline message shown next to the form.
func NewContactValidationError(message, details string) *StandardError {
	return newError(ErrCodeContactValidationFailed, message, details, false)
}

func NewInvalidLeadStatusError(status string) *StandardError {
	return newError(ErrCodeInvalidLeadStatus, "Unknown pipeline status", fmt.Sprintf("status: %s", status), false)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

func NewLeadNotFoundError(leadID string) *StandardError {
	return newError(ErrCodeLeadNotFound, "Lead not found", fmt.Sprintf("leadId: %s", leadID), false)
}

// NewProposalRequiredError is returned when a lead is pushed to the quoted
// lane without a proposal value.
func NewProposalRequiredError(leadID string) *StandardError {
	return newError(ErrCodeProposalRequired, "A proposal is required to quote this lead", fmt.Sprintf("leadId: %s", leadID), false)
}

func NewLeadStoreWriteError(op string, err error) *StandardError {
	return newError(ErrCodeLeadStoreWriteFailed, "Lead store write failed", fmt.Sprintf("op: %s, error: %s", op, err), true)
}

func NewLeadStoreReadError(op string, err error) *StandardError {
	return newError(ErrCodeLeadStoreReadFailed, "Lead store read failed", fmt.Sprintf("op: %s, error: %s", op, err), true)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewAttachmentUploadError(name string, err error) *StandardError {
	return newError(ErrCodeAttachmentUploadFailed, "Attachment upload failed", fmt.Sprintf("file: %s, error: %s", name, err), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", fmt.Sprintf("index: %s, error: %s", index, err), true)
}

func NewSearchTimeoutError(index string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Search query timeout", fmt.Sprintf("index: %s", index), true)
}

func NewVaultListError(folderID string, err error) *StandardError {
	return newError(ErrCodeVaultListFailed, "Document vault listing failed", fmt.Sprintf("folderId: %s, error: %s", folderID, err), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", fmt.Sprintf("channel: %s, error: %s", channel, err), true)
}

func NewCRMSyncFailedError(err error) *StandardError {
	return newError(ErrCodeCRMSyncFailed, "CRM synchronisation failed", err.Error(), true)
}

func NewWorkflowStartFailedError(processID string, err error) *StandardError {
	return newError(ErrCodeWorkflowStartFailed, "Workflow start failed", fmt.Sprintf("process: %s, error: %s", processID, err), true)
}

// Authentication constructors carry the translated message users see.

func NewInvalidCredentialsError(details string) *StandardError {
	return newError(ErrCodeAuthInvalidCredentials, "Credenciais inválidas.", details, false)
}

func NewTooManyAttemptsError(details string) *StandardError {
	return newError(ErrCodeAuthTooManyAttempts, "Bloqueio de segurança temporário.", details, false)
}

func NewAccessDeniedError(details string) *StandardError {
	return newError(ErrCodeAuthDenied, "Acesso Negado.", details, false)
}

func NewAuthOfflineError() *StandardError {
	return newError(ErrCodeAuthOffline, "Sistema de segurança offline.", "no identity provider configured", false)
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Acesso Negado.", details, false)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError("BUSINESS_RULE_VIOLATION", message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false)
}

// ==========================
// 4. BPMN Mapping
// ==========================

// BPMNErrorMapping maps internal codes to the error codes caught by boundary
// events in the lead-intake process. Codes not listed are passed through.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeContactValidationFailed: "CONTACT_INVALID",
	ErrCodeInvalidLeadStatus:       "INVALID_LEAD_STATUS",
	ErrCodeLeadNotFound:            "LEAD_NOT_FOUND",
	ErrCodeProposalRequired:        "PROPOSAL_REQUIRED",
	ErrCodeLeadStoreWriteFailed:    "LEAD_STORE_WRITE_FAILED",
	ErrCodeLeadStoreReadFailed:     "LEAD_STORE_READ_FAILED",
	ErrCodeSearchQueryFailed:       "SEARCH_QUERY_FAILED",
	ErrCodeSearchTimeout:           "SEARCH_TIMEOUT",
	ErrCodeNotificationSendFailed:  "NOTIFICATION_SEND_FAILED",
	ErrCodeCRMSyncFailed:           "CRM_SYNC_FAILED",
}

// GetRetryCount returns how many times the engine should retry a job that
// failed with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLeadStoreWriteFailed,
		ErrCodeLeadStoreReadFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeAttachmentUploadFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeCRMSyncFailed,
		ErrCodeWorkflowStartFailed,
		"EXTERNAL_SERVICE_ERROR":
		return 3

	case ErrCodeSearchTimeout, "TIMEOUT_ERROR":
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError maps a StandardError onto the engine's error shape.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "AUTH") || codeStr == string(ErrCodeForbidden):
		return "AUTH"
	case strings.Contains(codeStr, "LEAD") || strings.Contains(codeStr, "PROPOSAL"):
		return "PIPELINE"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CRM") || strings.Contains(codeStr, "WORKFLOW") || strings.Contains(codeStr, "EXTERNAL"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "VAULT") || strings.Contains(codeStr, "ATTACHMENT"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
