package database

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/streamgate/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"connection closed",
	"driver: bad connection",
	"database: closed",
	"sql: database is closed",
}

// IsConnectionError reports whether err looks like a lost or refused
// connection rather than a query failure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connectionPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports whether err is GORM's record-not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase converts a database error into an AppError. resource names
// the entity for not-found messages.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	if IsNotFoundError(err) {
		return apperrors.NotFound(resource, "").WithCause(err)
	}
	if IsConnectionError(err) {
		e := apperrors.Persistence(err)
		e.Message = "Database is temporarily unavailable. Please try again."
		e.HTTPStatus = http.StatusServiceUnavailable
		return e
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Persistence(err).WithDetail("reason", "duplicate key")
	}
	return apperrors.Persistence(err)
}
