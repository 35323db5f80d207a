package repository

import (
	"context"
	"time"

	"github.com/jcamargo/kardex-api/internal/domain/entity"
)

// BalanceRepository puerto del saldo materializado por (empresa, bodega, ítem).
// Solo el procesador de movimientos escribe, y siempre bajo bloqueo de fila.
type BalanceRepository interface {
	// UpsertForUpdate asegura la existencia de la fila (en cero si no existía)
	// y la bloquea en exclusiva dentro de la transacción del caller, en un solo
	// round-trip. Devuelve la cantidad actual. Bloquea hasta obtener el lock o
	// hasta agotar el lock_timeout de la transacción.
	UpsertForUpdate(ctx context.Context, key entity.BalanceKey) (int64, error)

	// ApplyDelta suma delta a la cantidad y refresca updated_at. Solo es válido
	// mientras la misma transacción sostiene el bloqueo de UpsertForUpdate.
	ApplyDelta(ctx context.Context, key entity.BalanceKey, delta int64, at time.Time) error

	// Get lee el saldo confirmado sin bloquear; nil si la clave no existe.
	Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error)

	// ListByCompany lista saldos confirmados de la empresa, filtrando
	// opcionalmente por bodega y/o ítem, ordenados por updated_at descendente.
	ListByCompany(ctx context.Context, companyID, warehouseID, itemID string) ([]*entity.Balance, error)
}
