package stream

import (
	"errors"
	"net/http"

	"github.com/egrangel/facerecon-sub002/internal/backend"
)

// User-facing admission error messages. The dashboard renders these verbatim
// in the error banner, so the wording is part of the contract.
const (
	ErrMsgAuthentication = "Authentication error. Please log in again."
	ErrMsgAccessDenied   = "You do not have permission to view this stream."
	ErrMsgStartFallback  = "Failed to start stream"
)

// admissionErrorMessage derives the user-facing message for a failed session
// admission. Precedence is fixed: authentication failure, then authorization
// failure, then the backend's structured message, then the raw error text,
// then the fallback.
func admissionErrorMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return ErrMsgAuthentication
		case http.StatusForbidden:
			return ErrMsgAccessDenied
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return ErrMsgStartFallback
}
