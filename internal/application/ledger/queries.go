package ledger

import (
	"context"

	"github.com/jcamargo/kardex-api/internal/domain"
	"github.com/jcamargo/kardex-api/internal/domain/entity"
	"github.com/jcamargo/kardex-api/internal/domain/repository"
)

// QueryService proyecciones de solo lectura sobre el kardex y los saldos.
// Lee estado confirmado con repositorios atados al pool (nunca dentro de una
// transacción de escritura) y no toma bloqueos: no frena a los escritores.
type QueryService struct {
	ledgerRepo  repository.LedgerEntryRepository
	balanceRepo repository.BalanceRepository
}

// NewQueryService construye la fachada de consultas.
func NewQueryService(ledgerRepo repository.LedgerEntryRepository, balanceRepo repository.BalanceRepository) *QueryService {
	return &QueryService{ledgerRepo: ledgerRepo, balanceRepo: balanceRepo}
}

// ListLedger lista asientos de la empresa, del más reciente al más antiguo,
// con filtros opcionales por tipo, bodega e ítem.
func (s *QueryService) ListLedger(ctx context.Context, companyID string, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	if companyID == "" {
		return nil, domain.ErrInvalidInput
	}
	if f.Type != "" && !entity.ValidMovementType(f.Type) {
		return nil, domain.ErrInvalidInput
	}
	return s.ledgerRepo.List(ctx, companyID, f)
}

// ListByType asientos de un tipo de movimiento.
func (s *QueryService) ListByType(ctx context.Context, companyID, movementType string, limit, offset int) ([]*entity.LedgerEntry, error) {
	return s.ListLedger(ctx, companyID, repository.LedgerFilter{Type: movementType, Limit: limit, Offset: offset})
}

// ListByWarehouse asientos de una bodega.
func (s *QueryService) ListByWarehouse(ctx context.Context, companyID, warehouseID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	return s.ListLedger(ctx, companyID, repository.LedgerFilter{WarehouseID: warehouseID, Limit: limit, Offset: offset})
}

// ListByItem asientos de un ítem en todas las bodegas.
func (s *QueryService) ListByItem(ctx context.Context, companyID, itemID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	return s.ListLedger(ctx, companyID, repository.LedgerFilter{ItemID: itemID, Limit: limit, Offset: offset})
}

// ListByWarehouseItem asientos de un ítem en una bodega.
func (s *QueryService) ListByWarehouseItem(ctx context.Context, companyID, warehouseID, itemID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	return s.ListLedger(ctx, companyID, repository.LedgerFilter{WarehouseID: warehouseID, ItemID: itemID, Limit: limit, Offset: offset})
}

// GetEntry devuelve un asiento por ID dentro de la empresa.
func (s *QueryService) GetEntry(ctx context.Context, companyID, id string) (*entity.LedgerEntry, error) {
	if companyID == "" || id == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.ledgerRepo.GetByID(ctx, companyID, id)
}

// GetBalance devuelve el saldo actual de una clave; una clave sin movimientos
// se lee como saldo cero.
func (s *QueryService) GetBalance(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	if key.CompanyID == "" || key.WarehouseID == "" || key.ItemID == "" {
		return nil, domain.ErrInvalidInput
	}
	b, err := s.balanceRepo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &entity.Balance{CompanyID: key.CompanyID, WarehouseID: key.WarehouseID, ItemID: key.ItemID, Quantity: 0}, nil
	}
	return b, nil
}

// ListBalances saldos de la empresa, filtrando opcionalmente por bodega y/o ítem.
func (s *QueryService) ListBalances(ctx context.Context, companyID, warehouseID, itemID string) ([]*entity.Balance, error) {
	if companyID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.balanceRepo.ListByCompany(ctx, companyID, warehouseID, itemID)
}

// ReconciliationRow una clave auditada: saldo materializado vs suma del kardex.
type ReconciliationRow struct {
	WarehouseID string
	ItemID      string
	Balance     int64
	LedgerSum   int64
	Drift       bool // true si Balance != LedgerSum
}

// Reconcile re-deriva la suma del kardex por clave y la cruza contra los saldos
// materializados. Toda fila con Drift=true es una violación del invariante de
// reconciliación y debe investigarse; en operación normal la lista vuelve sin
// ninguna desviación.
func (s *QueryService) Reconcile(ctx context.Context, companyID string) ([]ReconciliationRow, error) {
	if companyID == "" {
		return nil, domain.ErrInvalidInput
	}
	sums, err := s.ledgerRepo.SumByKey(ctx, companyID)
	if err != nil {
		return nil, err
	}
	balances, err := s.balanceRepo.ListByCompany(ctx, companyID, "", "")
	if err != nil {
		return nil, err
	}

	type wk struct{ w, i string }
	byKey := make(map[wk]int64, len(sums))
	for _, ks := range sums {
		byKey[wk{ks.WarehouseID, ks.ItemID}] = ks.Sum
	}

	rows := make([]ReconciliationRow, 0, len(balances))
	seen := make(map[wk]bool, len(balances))
	for _, b := range balances {
		k := wk{b.WarehouseID, b.ItemID}
		seen[k] = true
		sum := byKey[k]
		rows = append(rows, ReconciliationRow{
			WarehouseID: b.WarehouseID,
			ItemID:      b.ItemID,
			Balance:     b.Quantity,
			LedgerSum:   sum,
			Drift:       b.Quantity != sum,
		})
	}
	// Claves con historia en el kardex pero sin fila de saldo: también es drift.
	for _, ks := range sums {
		k := wk{ks.WarehouseID, ks.ItemID}
		if !seen[k] {
			rows = append(rows, ReconciliationRow{
				WarehouseID: ks.WarehouseID,
				ItemID:      ks.ItemID,
				Balance:     0,
				LedgerSum:   ks.Sum,
				Drift:       ks.Sum != 0,
			})
		}
	}
	return rows, nil
}
