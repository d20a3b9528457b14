// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"stride/internal/models"

	"gorm.io/gorm"
)

// isUniqueViolation reports whether err is a unique-constraint violation,
// for both postgres and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// storeErr wraps an unexpected database failure as an opaque store error.
// Domain errors pass through untouched.
func storeErr(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStoreError(err)
}

// notFoundOrStore maps gorm.ErrRecordNotFound to a domain not-found error
// and anything else to a store error.
func notFoundOrStore(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return storeErr(err)
}
