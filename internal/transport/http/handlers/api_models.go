package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Message: message,
		TraceID: traceIDStr,
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse describes a successful login.
type LoginResponse struct {
	Token      string `json:"token"`
	FirstLogin bool   `json:"first_login"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// RegistrationRequest defines the payload for the register endpoint.
type RegistrationRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Mobile        string `json:"mobile"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	ProfileBase64 string `json:"profileBase64"`
}

// RegistrationResponse returns the one-time generated password.
type RegistrationResponse struct {
	Message  string `json:"message"`
	Password string `json:"password"`
}

// PasswordChangeRequest defines the payload for the change-password endpoint.
type PasswordChangeRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessCheckResult reports the outcome of a single readiness probe.
type ReadinessCheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadinessResponse aggregates readiness probe results.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks []ReadinessCheckResult `json:"checks,omitempty"`
}
