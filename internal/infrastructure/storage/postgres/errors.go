package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"batchline/internal/core/apperror"
)

// Postgres SQLSTATE codes translated into typed application errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
	pgLockNotAvailable    = "55P03"
	pgQueryCanceled       = "57014"
)

// instanceCodeConstraint is the partial unique index enforcing global
// instance code uniqueness on reg_batches.
const instanceCodeConstraint = "uq_reg_batches_instance_code"

// TranslateError maps driver errors onto typed application errors so the
// domain layer never matches on SQLSTATE codes. Errors that are already
// *apperror.AppError pass through unchanged.
//
// Contention signals (serialization failure, deadlock, lock timeout and
// statement timeout cancellation) become ConcurrentModification, the one
// retryable kind. Unique violations become Duplicate, except the instance
// code index which carries its own error code.
func TranslateError(err error, entityType string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperror.NewDatabase(err)
	}

	switch pgErr.Code {
	case pgSerializationFail, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
		return apperror.NewConcurrentModification(entityType, "concurrent transaction")

	case pgUniqueViolation:
		if pgErr.ConstraintName == instanceCodeConstraint {
			return apperror.NewGroupedIdentifierRequired("instance code already in use")
		}
		return apperror.NewDuplicate(entityType, constraintField(pgErr.ConstraintName), pgErr.Detail)

	case pgForeignKeyViolation:
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("constraint", pgErr.ConstraintName)

	default:
		return apperror.NewDatabase(err)
	}
}

// constraintField extracts a readable field name from a constraint name
// like "uq_cat_products_code" or "cat_branches_code_key". Falls back to
// the raw constraint name.
func constraintField(constraint string) string {
	if constraint == "" {
		return "key"
	}
	name := strings.TrimSuffix(constraint, "_key")
	if idx := strings.LastIndex(name, "_"); idx >= 0 && idx+1 < len(name) {
		return name[idx+1:]
	}
	return name
}
