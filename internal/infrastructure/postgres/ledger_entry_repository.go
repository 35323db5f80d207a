package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jcamargo/kardex-api/internal/domain/entity"
	"github.com/jcamargo/kardex-api/internal/domain/repository"
)

var _ repository.LedgerEntryRepository = (*LedgerEntryRepo)(nil)

const ledgerColumns = `id, batch_id, company_id, warehouse_id, item_id, type, quantity,
		rate, amount, vendor_id, batch_number, expiry_date, reference_number,
		notes, reason, transaction_date, created_at, created_by`

// LedgerEntryRepo implementación append-only del kardex sobre PostgreSQL
// (tabla stock_ledger; usable con pool o tx). No hay UPDATE ni DELETE.
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

// Append persiste un asiento dentro de la unidad de trabajo del caller.
func (r *LedgerEntryRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	createdBy := (*string)(nil)
	if e.CreatedBy != "" {
		createdBy = &e.CreatedBy
	}
	_, err := r.q.Exec(ctx, query,
		e.ID, e.BatchID, e.CompanyID, e.WarehouseID, e.ItemID, e.Type, e.Quantity,
		e.Rate, e.Amount, nullable(e.VendorID), nullable(e.BatchNumber), e.ExpiryDate,
		nullable(e.ReferenceNumber), nullable(e.Notes), nullable(e.Reason),
		e.TransactionDate, e.CreatedAt, createdBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append ledger entry: id duplicado %s: %w", e.ID, err)
		}
		return translateError("append ledger entry", err)
	}
	return nil
}

// GetByID obtiene un asiento por ID dentro de la empresa; nil si no existe.
func (r *LedgerEntryRepo) GetByID(ctx context.Context, companyID, id string) (*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger WHERE company_id = $1 AND id = $2`
	row := r.q.QueryRow(ctx, query, companyID, id)
	e, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError("get ledger entry", err)
	}
	return e, nil
}

// List devuelve asientos de la empresa según filtro, del más reciente al más
// antiguo por fecha contable (desempate por created_at).
func (r *LedgerEntryRepo) List(ctx context.Context, companyID string, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger WHERE company_id = $1`
	args := []any{companyID}
	pos := 2
	if f.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", pos)
		args = append(args, f.Type)
		pos++
	}
	if f.WarehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, f.WarehouseID)
		pos++
	}
	if f.ItemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, f.ItemID)
		pos++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY transaction_date DESC, created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError("list ledger entries", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// SumByKey agrega el kardex por (bodega, ítem) para la auditoría de reconciliación.
func (r *LedgerEntryRepo) SumByKey(ctx context.Context, companyID string) ([]repository.KeySum, error) {
	query := `
		SELECT warehouse_id, item_id, COALESCE(SUM(quantity), 0)
		FROM stock_ledger
		WHERE company_id = $1
		GROUP BY warehouse_id, item_id
		ORDER BY warehouse_id, item_id`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, translateError("sum ledger by key", err)
	}
	defer rows.Close()
	var sums []repository.KeySum
	for rows.Next() {
		var s repository.KeySum
		if err := rows.Scan(&s.WarehouseID, &s.ItemID, &s.Sum); err != nil {
			return nil, fmt.Errorf("scan ledger sum: %w", err)
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

// scanLedgerEntry lee una fila de stock_ledger (columnas en el orden de ledgerColumns).
func scanLedgerEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	var vendorID, batchNumber, referenceNumber, notes, reason, createdBy *string
	err := row.Scan(
		&e.ID, &e.BatchID, &e.CompanyID, &e.WarehouseID, &e.ItemID, &e.Type, &e.Quantity,
		&e.Rate, &e.Amount, &vendorID, &batchNumber, &e.ExpiryDate,
		&referenceNumber, &notes, &reason, &e.TransactionDate, &e.CreatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	e.VendorID = deref(vendorID)
	e.BatchNumber = deref(batchNumber)
	e.ReferenceNumber = deref(referenceNumber)
	e.Notes = deref(notes)
	e.Reason = deref(reason)
	e.CreatedBy = deref(createdBy)
	return &e, nil
}

// nullable convierte "" a NULL para columnas opcionales.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
