// Package response writes the JSON error envelope shared by every endpoint:
//
//	{"error": {"code": "...", "message": "...", "details": ...}, "request_id": "..."}
package response

import (
	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key holding the request correlation id.
const RequestIDKey = "request_id"

// Error codes
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	CodeInternal     = "INTERNAL_ERROR"
)

// ErrorBody is the inner error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error aborts the request with the envelope.
func Error(c *gin.Context, status int, code, message string) {
	ErrorWithDetails(c, status, code, message, nil)
}

// ErrorWithDetails aborts the request with the envelope and extra details.
func ErrorWithDetails(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     ErrorBody{Code: code, Message: message, Details: details},
		RequestID: c.GetString(RequestIDKey),
	})
}
