package transport

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewError returns an error body carrying a human-readable message.
func NewError(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}
