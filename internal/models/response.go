package models

// ErrorResponse is the JSON body for every error status.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// NewErrorResponseWithDetails attaches the upstream failure text to the error.
func NewErrorResponseWithDetails(message, details string) ErrorResponse {
	return ErrorResponse{Error: message, Details: details}
}

// NewValidationErrorResponse creates a validation error response
func NewValidationErrorResponse(fields map[string]string) ErrorResponse {
	return ErrorResponse{Error: "Validation failed", Fields: fields}
}

// MessageResponse is the body of endpoints that return only a confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
