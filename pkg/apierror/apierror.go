package apierror

import (
	"fmt"
	"net/http"
)

const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeInternal           = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// BadRequest reports missing or malformed caller input. details usually names the field.
func BadRequest(message string, details string) *APIError {
	return New(CodeBadRequest, message, details, http.StatusBadRequest)
}

// InvalidCredentials is shared by "unknown user" and "wrong password" so the two are indistinguishable.
func InvalidCredentials() *APIError {
	return New(CodeInvalidCredentials, "invalid email or password", "", http.StatusUnauthorized)
}

// TokenInvalid covers malformed, expired, revoked and wrong-kind tokens alike.
func TokenInvalid() *APIError {
	return New(CodeTokenInvalid, "invalid or expired token", "", http.StatusUnauthorized)
}

func Unauthorized(message string) *APIError {
	return New(CodeUnauthorized, message, "", http.StatusUnauthorized)
}

func Forbidden() *APIError {
	return New(CodeForbidden, "access denied", "", http.StatusUnauthorized)
}

func NotFound(message string, details string) *APIError {
	return New(CodeNotFound, message, details, http.StatusNotFound)
}

func AlreadyExists(message string, details string) *APIError {
	return New(CodeAlreadyExists, message, details, http.StatusConflict)
}

func TooManyRequests() *APIError {
	return New(CodeTooManyRequests, "too many requests", "", http.StatusTooManyRequests)
}

func Internal() *APIError {
	return New(CodeInternal, "unexpected server error", "", http.StatusInternalServerError)
}
