package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jcamargo/kardex-api/internal/domain/entity"
	"github.com/jcamargo/kardex-api/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL
// (tabla stock_balances; usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

// UpsertForUpdate asegura la fila y la bloquea en un solo round-trip:
// el INSERT crea el saldo en cero si no existía; el DO UPDATE (no-op) toma el
// bloqueo de fila cuando ya existía. Con esto dos primeros-escritores
// concurrentes no se pisan: uno crea, el otro espera el lock y observa la fila.
func (r *BalanceRepo) UpsertForUpdate(ctx context.Context, key entity.BalanceKey) (int64, error) {
	query := `
		INSERT INTO stock_balances (company_id, warehouse_id, item_id, quantity, updated_at)
		VALUES ($1, $2, $3, 0, now())
		ON CONFLICT (company_id, warehouse_id, item_id)
		DO UPDATE SET quantity = stock_balances.quantity
		RETURNING quantity`
	var qty int64
	err := r.q.QueryRow(ctx, query, key.CompanyID, key.WarehouseID, key.ItemID).Scan(&qty)
	if err != nil {
		return 0, translateError("upsert balance for update", err)
	}
	return qty, nil
}

// ApplyDelta suma delta a la cantidad bloqueada y refresca updated_at.
func (r *BalanceRepo) ApplyDelta(ctx context.Context, key entity.BalanceKey, delta int64, at time.Time) error {
	query := `
		UPDATE stock_balances
		SET quantity = quantity + $4, updated_at = $5
		WHERE company_id = $1 AND warehouse_id = $2 AND item_id = $3`
	tag, err := r.q.Exec(ctx, query, key.CompanyID, key.WarehouseID, key.ItemID, delta, at)
	if err != nil {
		return translateError("apply balance delta", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("apply balance delta: fila de saldo inexistente (falta UpsertForUpdate)")
	}
	return nil
}

// Get lee el saldo confirmado sin bloquear; nil si la clave no existe.
func (r *BalanceRepo) Get(ctx context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	query := `
		SELECT company_id, warehouse_id, item_id, quantity, updated_at
		FROM stock_balances
		WHERE company_id = $1 AND warehouse_id = $2 AND item_id = $3`
	var b entity.Balance
	err := r.q.QueryRow(ctx, query, key.CompanyID, key.WarehouseID, key.ItemID).Scan(
		&b.CompanyID, &b.WarehouseID, &b.ItemID, &b.Quantity, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError("get balance", err)
	}
	return &b, nil
}

// ListByCompany lista saldos de la empresa; warehouseID/itemID vacíos no filtran.
func (r *BalanceRepo) ListByCompany(ctx context.Context, companyID, warehouseID, itemID string) ([]*entity.Balance, error) {
	query := `
		SELECT company_id, warehouse_id, item_id, quantity, updated_at
		FROM stock_balances WHERE company_id = $1`
	args := []any{companyID}
	pos := 2
	if warehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, warehouseID)
		pos++
	}
	if itemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, itemID)
		pos++
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError("list balances", err)
	}
	defer rows.Close()
	var list []*entity.Balance
	for rows.Next() {
		var b entity.Balance
		if err := rows.Scan(&b.CompanyID, &b.WarehouseID, &b.ItemID, &b.Quantity, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
