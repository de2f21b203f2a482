package models

// ErrorResponse is a standardized error response for API
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse carries a human-facing confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	OK      bool   `json:"ok"`
	DBState string `json:"dbState"`
}
