package models

// ErrorResponse is the JSON error body for non-generation endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
