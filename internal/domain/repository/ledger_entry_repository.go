package repository

import (
	"context"

	"github.com/jcamargo/kardex-api/internal/domain/entity"
)

// LedgerFilter filtros opcionales para listar asientos del kardex.
// Los campos vacíos no filtran. Limit/Offset paginan (Limit <= 0 usa el default del adaptador).
type LedgerFilter struct {
	Type        string
	WarehouseID string
	ItemID      string
	Limit       int
	Offset      int
}

// KeySum suma de cantidades del kardex por clave (para reconciliación).
type KeySum struct {
	WarehouseID string
	ItemID      string
	Sum         int64
}

// LedgerEntryRepository puerto del log append-only de movimientos.
// No expone update ni delete: los asientos confirmados son permanentes.
type LedgerEntryRepository interface {
	// Append persiste un asiento dentro de la unidad de trabajo del caller;
	// es visible para lectores solo cuando esa unidad confirma.
	Append(ctx context.Context, entry *entity.LedgerEntry) error

	// GetByID devuelve un asiento de la empresa, o nil si no existe.
	GetByID(ctx context.Context, companyID, id string) (*entity.LedgerEntry, error)

	// List devuelve asientos de la empresa según filtro, del más reciente al
	// más antiguo por fecha contable (desempate por created_at).
	List(ctx context.Context, companyID string, f LedgerFilter) ([]*entity.LedgerEntry, error)

	// SumByKey agrega el kardex por (bodega, ítem) para auditoría de saldos.
	SumByKey(ctx context.Context, companyID string) ([]KeySum, error)
}
