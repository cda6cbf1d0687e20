package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/askme/backend/internal/models"
	"github.com/askme/backend/internal/provider"
)

// requestTimeout bounds every provider/store call made on behalf of a request.
const requestTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeProviderError maps a structured provider error to an HTTP status.
// Credential failures become 401, provider-side validation 400, everything
// unrecognized a 500. Never matches on message text.
func writeProviderError(w http.ResponseWriter, err error, message string) {
	var perr *provider.Error
	if !errors.As(err, &perr) {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(message))
		return
	}

	status := http.StatusInternalServerError
	switch perr.Code {
	case provider.CodeInvalidCredentials, provider.CodeInvalidGrant,
		provider.CodeBadJWT, provider.CodeRefreshNotFound:
		status = http.StatusUnauthorized
	case provider.CodeValidationFailed, provider.CodeEmailInvalid,
		provider.CodeWeakPassword, provider.CodeUserExists, provider.CodeEmailExists:
		status = http.StatusBadRequest
	}

	writeJSON(w, status, models.NewErrorResponseWithDetails(message, perr.Message))
}
