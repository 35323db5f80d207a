package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcamargo/kardex-api/internal/domain"
	"github.com/jcamargo/kardex-api/internal/domain/entity"
	"github.com/jcamargo/kardex-api/internal/domain/repository"
	"github.com/jcamargo/kardex-api/pkg/logger"
)

// Processor aplica lotes de movimientos de inventario de forma transaccional:
// bloquea cada saldo afectado (orden total por clave para evitar deadlocks),
// valida que ningún saldo quede negativo, apendiza los asientos del kardex y
// confirma todo o nada.
type Processor struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewProcessor construye el procesador de movimientos.
func NewProcessor(txRunner TxRunner, log *logger.Logger) *Processor {
	return &Processor{txRunner: txRunner, log: log}
}

// BatchLine una línea de movimiento dentro de un lote.
// Quantity es magnitud (> 0); el signo lo determina el tipo del lote.
type BatchLine struct {
	WarehouseID     string
	ItemID          string
	Quantity        int64
	Rate            decimal.Decimal // INWARD/OUTWARD
	Direction       string          // ADJUSTMENT: INCREASE | DECREASE
	Reason          string          // ADJUSTMENT
	VendorID        string
	BatchNumber     string
	ExpiryDate      *time.Time
	ReferenceNumber string
	Notes           string
	TransactionDate time.Time
}

// BatchInput entrada de ApplyBatch: empresa, tipo de movimiento y líneas.
type BatchInput struct {
	CompanyID string
	UserID    string
	Type      string // INWARD, OUTWARD, ADJUSTMENT
	Lines     []BatchLine
}

// BatchResult resultado de un lote confirmado.
type BatchResult struct {
	BatchID  string
	Balances []entity.Balance // saldos de cierre de las claves tocadas
}

// ApplyBatch valida el lote, ordena las líneas por (bodega, ítem) para fijar el
// orden de bloqueo, y dentro de una sola transacción: bloquea cada saldo
// (creándolo en cero si no existe), verifica saldo+delta >= 0, apendiza el
// asiento y aplica el delta. Cualquier fallo descarta el lote completo; nunca
// se confirma una aplicación parcial.
func (p *Processor) ApplyBatch(ctx context.Context, in BatchInput) (*BatchResult, error) {
	if err := p.validate(in); err != nil {
		return nil, err
	}

	// Copia ordenada: el orden de bloqueo es (bodega, ítem), idéntico para todo
	// lote, así dos lotes que se cruzan nunca se esperan en orden opuesto.
	lines := make([]BatchLine, len(in.Lines))
	copy(lines, in.Lines)
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].WarehouseID != lines[j].WarehouseID {
			return lines[i].WarehouseID < lines[j].WarehouseID
		}
		return lines[i].ItemID < lines[j].ItemID
	})

	now := time.Now()
	batchID := uuid.New().String()

	// Saldos bloqueados en esta tx: el lock de cada clave se toma una sola vez
	// y las líneas repetidas de la misma clave encadenan sobre el saldo en curso.
	held := make(map[entity.BalanceKey]int64)
	var order []entity.BalanceKey

	err := p.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
	) error {
		for _, ln := range lines {
			key := entity.BalanceKey{CompanyID: in.CompanyID, WarehouseID: ln.WarehouseID, ItemID: ln.ItemID}
			current, locked := held[key]
			if !locked {
				qty, err := balanceRepo.UpsertForUpdate(ctx, key)
				if err != nil {
					return err
				}
				current = qty
				order = append(order, key)
			}

			delta := signedDelta(in.Type, ln)
			if current+delta < 0 {
				return domain.ErrInsufficientStock
			}

			if err := ledgerRepo.Append(ctx, p.buildEntry(batchID, in, ln, delta, now)); err != nil {
				return err
			}
			if err := balanceRepo.ApplyDelta(ctx, key, delta, now); err != nil {
				return err
			}
			held[key] = current + delta
		}
		return nil
	})
	if err != nil {
		p.log.Warn().
			Err(err).
			Str("company_id", in.CompanyID).
			Str("type", in.Type).
			Int("lines", len(in.Lines)).
			Bool("retryable", domain.Retryable(err)).
			Msg("lote de movimientos descartado")
		return nil, err
	}

	res := &BatchResult{BatchID: batchID}
	for _, k := range order {
		res.Balances = append(res.Balances, entity.Balance{
			CompanyID:   k.CompanyID,
			WarehouseID: k.WarehouseID,
			ItemID:      k.ItemID,
			Quantity:    held[k],
			UpdatedAt:   now,
		})
	}
	p.log.Info().
		Str("company_id", in.CompanyID).
		Str("batch_id", batchID).
		Str("type", in.Type).
		Int("lines", len(in.Lines)).
		Msg("lote de movimientos confirmado")
	return res, nil
}

// validate rechaza el lote antes de tomar cualquier bloqueo.
func (p *Processor) validate(in BatchInput) error {
	if in.CompanyID == "" || !entity.ValidMovementType(in.Type) || len(in.Lines) == 0 {
		return domain.ErrInvalidInput
	}
	for _, ln := range in.Lines {
		if ln.WarehouseID == "" || ln.ItemID == "" || ln.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
		switch in.Type {
		case entity.MovementTypeINWARD, entity.MovementTypeOUTWARD:
			if ln.Rate.IsNegative() {
				return domain.ErrInvalidInput
			}
		case entity.MovementTypeADJUSTMENT:
			if ln.Direction != entity.AdjustmentIncrease && ln.Direction != entity.AdjustmentDecrease {
				return domain.ErrInvalidInput
			}
			if ln.Reason == "" {
				return domain.ErrInvalidInput
			}
		}
	}
	return nil
}

// signedDelta efecto sobre el saldo: INWARD y ajuste+ suman, OUTWARD y ajuste- restan.
func signedDelta(movementType string, ln BatchLine) int64 {
	switch movementType {
	case entity.MovementTypeINWARD:
		return ln.Quantity
	case entity.MovementTypeOUTWARD:
		return -ln.Quantity
	default: // ADJUSTMENT, dirección ya validada
		if ln.Direction == entity.AdjustmentDecrease {
			return -ln.Quantity
		}
		return ln.Quantity
	}
}

// buildEntry arma el asiento del kardex para una línea ya validada.
// En ajustes rate y amount quedan en cero; en entradas/salidas amount = |qty| * rate.
func (p *Processor) buildEntry(batchID string, in BatchInput, ln BatchLine, delta int64, now time.Time) *entity.LedgerEntry {
	rate := decimal.Zero
	amount := decimal.Zero
	if in.Type != entity.MovementTypeADJUSTMENT {
		rate = ln.Rate
		amount = rate.Mul(decimal.NewFromInt(ln.Quantity))
	}
	txDate := ln.TransactionDate
	if txDate.IsZero() {
		txDate = now
	}
	return &entity.LedgerEntry{
		ID:              uuid.New().String(),
		BatchID:         batchID,
		CompanyID:       in.CompanyID,
		WarehouseID:     ln.WarehouseID,
		ItemID:          ln.ItemID,
		Type:            in.Type,
		Quantity:        delta,
		Rate:            rate,
		Amount:          amount,
		VendorID:        ln.VendorID,
		BatchNumber:     ln.BatchNumber,
		ExpiryDate:      ln.ExpiryDate,
		ReferenceNumber: ln.ReferenceNumber,
		Notes:           ln.Notes,
		Reason:          ln.Reason,
		TransactionDate: txDate,
		CreatedAt:       now,
		CreatedBy:       in.UserID,
	}
}
