// Package response holds the JSON error envelope shared by handlers and
// middleware.
package response

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorPayload `json:"error"`
}

func NewError(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// NewFieldError reports a validation failure on a single input field.
func NewFieldError(field, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorPayload{
			Code:    "validation_error",
			Message: message,
			Field:   field,
		},
	}
}
