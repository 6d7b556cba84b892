package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"protocolo/internal/core/apperror"
)

// PostgreSQL error codes this service reacts to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
	codeLockNotAvailable    = "55P03"
)

// pgErr extracts the pgconn error, if any.
func pgErr(err error) (*pgconn.PgError, bool) {
	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		return pge, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if pge, ok := pgErr(err); ok {
		return pge.Code == codeUniqueViolation
	}
	return false
}

// IsRetryable reports whether err is transient contention that is safe to
// retry: serialization failure, deadlock, or lock timeout.
func IsRetryable(err error) bool {
	if pge, ok := pgErr(err); ok {
		switch pge.Code {
		case codeSerializationFail, codeDeadlockDetected, codeLockNotAvailable:
			return true
		}
	}
	return false
}

// TranslateError maps a driver error onto the service error taxonomy.
//   - unique violations become integrity errors: a duplicate (series, year,
//     seq) should be impossible and means the store invariant broke
//   - transient contention becomes a retryable concurrent-modification error
//   - everything else is a generic database error
//
// AppErrors pass through untouched.
func TranslateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if IsUniqueViolation(err) {
		return apperror.NewIntegrity("duplicate key violates store invariant").
			WithDetail("entity", entity).
			WithCause(err)
	}
	if pge, ok := pgErr(err); ok && pge.Code == codeForeignKeyViolation {
		return apperror.NewIntegrity("referenced row does not exist").
			WithDetail("entity", entity).
			WithCause(err)
	}
	if IsRetryable(err) {
		return apperror.NewConcurrentModification(entity, nil).WithCause(err)
	}
	return apperror.NewDatabase(err)
}
