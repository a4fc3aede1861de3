package repository

import (
	"errors"
	"strings"

	"estate/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// notFoundOr maps gorm.ErrRecordNotFound to a not-found error for resource
// and anything else to an internal error.
func notFoundOr(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// uniqueViolation reports which user uniqueness rule err breaks, or nil.
func uniqueViolation(err error) error {
	if err == nil {
		return nil
	}

	var target string
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		if pgErr.Code != pgUniqueViolation {
			return nil
		}
		target = pgErr.ConstraintName + " " + pgErr.Detail
	case isUniqueConstraintError(err):
		target = err.Error()
	default:
		return nil
	}

	target = strings.ToLower(target)
	switch {
	case strings.Contains(target, "username"):
		return models.ErrUsernameTaken
	case strings.Contains(target, "email"):
		return models.ErrEmailTaken
	}
	return models.NewValidationError("Record already exists")
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}
