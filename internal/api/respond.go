package api

import (
	"encoding/json"
	"net/http"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/session"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewInvalidInputError("malformed JSON body: " + err.Error())
	}
	return nil
}

// writeError renders err with the status of its code. Auth failures carry
// the fixed user-facing message only.
func writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)
	status := statusFor(stdErr.Code)

	body := errorBody{Code: string(stdErr.Code), Message: stdErr.Message, Details: stdErr.Details}
	switch stdErr.Code {
	case apperrors.ErrCodeAuthInvalidCredentials, apperrors.ErrCodeAuthTooManyAttempts,
		apperrors.ErrCodeAuthDenied, apperrors.ErrCodeAuthOffline:
		body.Message = session.Message(stdErr)
		body.Details = ""
	}
	if status >= http.StatusInternalServerError {
		body.Details = ""
	}
	writeJSON(w, status, body)
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeContactValidationFailed, apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidLeadStatus:
		return http.StatusBadRequest
	case apperrors.ErrCodeLeadNotFound, "RESOURCE_NOT_FOUND":
		return http.StatusNotFound
	case apperrors.ErrCodeProposalRequired:
		return http.StatusConflict
	case apperrors.ErrCodeAuthInvalidCredentials, apperrors.ErrCodeAuthDenied, "AUTHENTICATION_ERROR":
		return http.StatusUnauthorized
	case apperrors.ErrCodeAuthTooManyAttempts:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeAuthOffline:
		return http.StatusServiceUnavailable
	case "BUSINESS_RULE_VIOLATION":
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeSearchTimeout, "TIMEOUT_ERROR":
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeCRMSyncFailed, apperrors.ErrCodeSearchQueryFailed, apperrors.ErrCodeAttachmentUploadFailed,
		apperrors.ErrCodeVaultListFailed, "EXTERNAL_SERVICE_ERROR":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
