package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeSessionExpired     ErrorCode = "SESSION_EXPIRED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountDisabled    ErrorCode = "ACCOUNT_DISABLED"

	// Authorization
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeNoTeamContext ErrorCode = "NO_TEAM_CONTEXT"

	// CSRF
	ErrCodeCSRFMissing ErrorCode = "CSRF_TOKEN_MISSING"
	ErrCodeCSRFInvalid ErrorCode = "CSRF_TOKEN_INVALID"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeWeakPassword    ErrorCode = "WEAK_PASSWORD"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeLastAdmin     ErrorCode = "LAST_ADMIN"

	// Rate Limiting
	ErrCodeAccountLocked     ErrorCode = "ACCOUNT_LOCKED"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Invitations
	ErrCodeInvitationExpired ErrorCode = "INVITATION_EXPIRED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	// RetryAfter, when set, is surfaced as a Retry-After header.
	RetryAfter time.Duration `json:"-"`
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// WithRetryAfter records how long the client should wait before retrying.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	e.RetryAfter = d
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// SessionExpired covers missing, unknown and expired sessions alike so
// the client-facing message never reveals which one it was.
func SessionExpired() *AppError {
	return New(ErrCodeSessionExpired, "Invalid or expired session")
}

// InvalidCredentials is deliberately uniform for unknown email and
// wrong password.
func InvalidCredentials() *AppError {
	return New(ErrCodeInvalidCredentials, "Invalid email or password")
}

func AccountDisabled() *AppError {
	return New(ErrCodeAccountDisabled, "Account has been disabled. Please contact an administrator.")
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func NoTeamContext() *AppError {
	return New(ErrCodeNoTeamContext, "No team context. Please join or create a team.")
}

func CSRFMissing() *AppError {
	return New(ErrCodeCSRFMissing, "CSRF token missing")
}

func CSRFInvalid() *AppError {
	return New(ErrCodeCSRFInvalid, "Invalid CSRF token")
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func WeakPassword(reason string) *AppError {
	return New(ErrCodeWeakPassword, reason)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

func LastAdmin() *AppError {
	return New(ErrCodeLastAdmin, "Cannot remove the last admin of a team")
}

func AccountLocked(minutes int) *AppError {
	return New(ErrCodeAccountLocked,
		fmt.Sprintf("Too many failed login attempts. Account locked for %d minutes.", minutes))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func InvitationExpired() *AppError {
	return New(ErrCodeInvitationExpired, "Invitation has expired")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
