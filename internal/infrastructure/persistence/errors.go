package persistence

import (
	"errors"
	"fmt"

	"github.com/hms/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes mapped to domain errors
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// translateError maps driver errors to domain errors, keeping the driver error in the chain.
// Errors it does not recognise are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var target *shared.DomainError
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		target = shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		target = shared.ErrReferenceViolation
	default:
		target = domainErrorForCode(sqlState(err))
	}
	if target == nil {
		return err
	}
	return fmt.Errorf("%w: %w", target, err)
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func domainErrorForCode(code string) *shared.DomainError {
	switch code {
	case pgUniqueViolation:
		return shared.ErrAlreadyExists
	case pgForeignKeyViolation:
		return shared.ErrReferenceViolation
	case pgSerializationFailure, pgDeadlockDetected:
		return shared.ErrConcurrencyConflict
	case pgLockNotAvailable:
		return shared.ErrResourceLocked
	}
	return nil
}
