package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jcamargo/kardex-api/internal/domain"
)

// Códigos SQLSTATE que el motor devuelve en contención.
const (
	sqlstateLockNotAvailable  = "55P03" // lock_timeout agotado
	sqlstateDeadlockDetected  = "40P01"
	sqlstateSerializationFail = "40001"
	sqlstateUniqueViolation   = "23505"
)

// translateError envuelve err con la operación y lo clasifica: esperas de
// bloqueo agotadas y deadlocks detectados por el motor se mapean a errores de
// dominio reintentables; el resto queda como fallo de persistencia envuelto.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateLockNotAvailable:
			return fmt.Errorf("%s: %w", op, domain.ErrLockTimeout)
		case sqlstateDeadlockDetected, sqlstateSerializationFail:
			return fmt.Errorf("%s: %w", op, domain.ErrTxConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateUniqueViolation
	}
	return false
}
