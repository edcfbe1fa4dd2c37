package errors

import (
	"fmt"
	"net/http"
)

const (
	CodeInvalidDuration    = "invalid_duration"
	CodeInvalidMode        = "invalid_mode"
	CodeInvalidSettings    = "invalid_settings"
	CodeInvalidRequest     = "invalid_request"
	CodeNoActiveTimer      = "no_active_timer"
	CodeAlreadyPaused      = "already_paused"
	CodeNoPausedTimer      = "no_paused_timer"
	CodePersistenceFailure = "persistence_failure"
	CodeUnknownMessageType = "unknown_message_type"
	CodeSessionNotFound    = "session_not_found"
	CodeUnauthorized       = "unauthorized"
	CodeInternal           = "internal_error"
)

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, CodeInternal, message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

// Conflict reports an operation that is not valid in the current timer
// state (for example pausing an idle timer).
func Conflict(code, message string) *APIError {
	return New(http.StatusConflict, code, message)
}

func Persistence(message string) *APIError {
	if message == "" {
		message = "failed to persist state"
	}
	return New(http.StatusServiceUnavailable, CodePersistenceFailure, message)
}

func UnknownMessageType(messageType string) *APIError {
	return BadRequest(CodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", messageType))
}
