package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError is the single error kind returned by services. It carries the
// Status the boundary reports and a stable code for programmatic checks.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code, so wrapped
// copies of a sentinel still match errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Status returns the outcome value carried by the error.
func (e *AppError) Status() Status {
	return Status{Code: e.StatusCode, Message: e.Message}
}

func domainError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: status}
}

// Domain errors. Compare with errors.Is.
var (
	ErrUserNotFound     = domainError("USER_NOT_FOUND", http.StatusBadRequest, "This user does not exist")
	ErrPropertyNotFound = domainError("PROPERTY_NOT_FOUND", http.StatusBadRequest, "Property does not exists")
	ErrSaleNotFound     = domainError("SALE_NOT_FOUND", http.StatusBadRequest, "Sale doesn't exists")
	ErrActivityNotFound = domainError("ACTIVITY_NOT_FOUND", http.StatusBadRequest, "This activity does not exist")

	ErrUsernameTaken = domainError("USERNAME_TAKEN", http.StatusBadRequest, "This username is already taken")
	ErrEmailTaken    = domainError("EMAIL_TAKEN", http.StatusBadRequest, "This email is already taken")

	ErrAlreadyActive             = domainError("ALREADY_ACTIVE", http.StatusBadRequest, "This user is already activated")
	ErrAlreadySold               = domainError("ALREADY_SOLD", http.StatusBadRequest, "Property sold")
	ErrAlreadyAvailable          = domainError("ALREADY_AVAILABLE", http.StatusBadRequest, "Property is already active")
	ErrPropertySold              = domainError("PROPERTY_SOLD", http.StatusBadRequest, "Property sold")
	ErrBuyerIsOwner              = domainError("BUYER_IS_OWNER", http.StatusBadRequest, "This buyer owns property")
	ErrUserNotActivated          = domainError("USER_NOT_ACTIVATED", http.StatusNotFound, "This user is not activated")
	ErrSelfDeactivationForbidden = domainError("SELF_DEACTIVATION_FORBIDDEN", http.StatusBadRequest, "You are not allowed to deactivate your account")
	ErrOwnerNotFound             = domainError("OWNER_NOT_FOUND", http.StatusBadRequest, "Property owner does not exists")
	ErrOwnerNotActivated         = domainError("OWNER_NOT_ACTIVATED", http.StatusBadRequest, "Property owner is not activated")
	ErrAccountNotActivated       = domainError("ACCOUNT_NOT_ACTIVATED", http.StatusNotFound, "This user is not activated")

	ErrLoginFailed       = domainError("LOGIN_FAILED", http.StatusNotFound, "Login data is incorrect")
	ErrIncorrectPassword = domainError("INCORRECT_PASSWORD", http.StatusNotFound, "Old password is incorrect")
	ErrPasswordMismatch  = domainError("PASSWORD_MISMATCH", http.StatusBadRequest, "New passwords do not match")
	ErrInvalidToken      = domainError("INVALID_TOKEN", http.StatusUnauthorized, "Token is invalid or expired")

	ErrActivityRejected      = domainError("ACTIVITY_REJECTED", http.StatusBadRequest, "Please select user")
	ErrMailEmpty             = domainError("MAIL_EMPTY", http.StatusBadRequest, "Mail can not be empty")
	ErrEmailNotRegistered    = domainError("EMAIL_NOT_REGISTERED", http.StatusNotFound, "This email is not registered")
	ErrInvalidPropertyValues = domainError("INVALID_PROPERTY_VALUES", http.StatusBadRequest, "Price and living area must not be negative")

	ErrRateLimited        = domainError("RATE_LIMITED", http.StatusTooManyRequests, "Too many attempts, please try again later")
	ErrLimiterUnavailable = domainError("RATE_LIMIT_UNAVAILABLE", http.StatusServiceUnavailable, "Rate limiting is unavailable")
)

// NewNotFoundError is returned by repositories when a lookup by id misses.
// Services translate it into the entity-specific domain error.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s with ID %v not found", resource, id),
		StatusCode: http.StatusNotFound,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsNotFound reports whether err is a repository lookup miss.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == "NOT_FOUND"
}

// StatusCodeOf returns the response status for err. Anything that is not an
// AppError is treated as internal.
func StatusCodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		// Wrapped causes of internal errors stay in the logs.
		if appErr.Err != nil && appErr.Code != "INTERNAL_ERROR" {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  "INTERNAL_ERROR",
		}
	}

	return c.Status(status).JSON(response)
}
