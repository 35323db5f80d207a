package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrLockTimeout       = errors.New("tiempo de espera del bloqueo agotado") // reintentable
	ErrTxConflict        = errors.New("conflicto de transacción")             // deadlock/serialización, reintentable
)

// Retryable indica si el caller puede reintentar el lote tal cual: los fallos
// de bloqueo y de concurrencia no dejan estado parcial confirmado.
func Retryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrTxConflict)
}
