package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcamargo/kardex-api/internal/application/ledger"
	"github.com/jcamargo/kardex-api/internal/domain/entity"
)

// MovementLineRequest una línea de movimiento en el body de inward/outward/adjustment.
// quantity es magnitud (> 0); rate aplica a entradas/salidas, direction y reason a ajustes.
type MovementLineRequest struct {
	WarehouseID     string           `json:"warehouse_id"`
	ItemID          string           `json:"item_id"`
	Quantity        int64            `json:"quantity"`
	Rate            *decimal.Decimal `json:"rate,omitempty"`
	VendorID        string           `json:"vendor_id,omitempty"`
	BatchNumber     string           `json:"batch_number,omitempty"`
	ExpiryDate      *time.Time       `json:"expiry_date,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Direction       string           `json:"direction,omitempty"` // INCREASE | DECREASE
	Reason          string           `json:"reason,omitempty"`
	TransactionDate time.Time        `json:"transaction_date"`
}

// MovementBatchRequest body para POST /api/inventory/{inward,outward,adjustment}.
type MovementBatchRequest struct {
	Data []MovementLineRequest `json:"data"`
}

// ToBatchLines convierte el request a líneas del procesador.
func (r MovementBatchRequest) ToBatchLines() []ledger.BatchLine {
	lines := make([]ledger.BatchLine, 0, len(r.Data))
	for _, d := range r.Data {
		rate := decimal.Zero
		if d.Rate != nil {
			rate = *d.Rate
		}
		lines = append(lines, ledger.BatchLine{
			WarehouseID:     d.WarehouseID,
			ItemID:          d.ItemID,
			Quantity:        d.Quantity,
			Rate:            rate,
			Direction:       d.Direction,
			Reason:          d.Reason,
			VendorID:        d.VendorID,
			BatchNumber:     d.BatchNumber,
			ExpiryDate:      d.ExpiryDate,
			ReferenceNumber: d.ReferenceNumber,
			Notes:           d.Notes,
			TransactionDate: d.TransactionDate,
		})
	}
	return lines
}

// BalanceDTO saldo actual de una clave (empresa implícita en el token).
type BalanceDTO struct {
	WarehouseID string    `json:"warehouse_id"`
	ItemID      string    `json:"item_id"`
	Quantity    int64     `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewBalanceDTO mapea la entidad al DTO.
func NewBalanceDTO(b *entity.Balance) BalanceDTO {
	return BalanceDTO{
		WarehouseID: b.WarehouseID,
		ItemID:      b.ItemID,
		Quantity:    b.Quantity,
		UpdatedAt:   b.UpdatedAt,
	}
}

// MovementBatchResponse respuesta de un lote confirmado.
type MovementBatchResponse struct {
	BatchID  string       `json:"batch_id"`
	Balances []BalanceDTO `json:"balances"`
}

// LedgerEntryDTO asiento del kardex en respuestas de consulta.
type LedgerEntryDTO struct {
	ID              string          `json:"id"`
	BatchID         string          `json:"batch_id"`
	WarehouseID     string          `json:"warehouse_id"`
	ItemID          string          `json:"item_id"`
	Type            string          `json:"type"`
	Quantity        int64           `json:"quantity"` // con signo
	Rate            decimal.Decimal `json:"rate"`
	Amount          decimal.Decimal `json:"amount"`
	VendorID        string          `json:"vendor_id,omitempty"`
	BatchNumber     string          `json:"batch_number,omitempty"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewLedgerEntryDTO mapea la entidad al DTO.
func NewLedgerEntryDTO(e *entity.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:              e.ID,
		BatchID:         e.BatchID,
		WarehouseID:     e.WarehouseID,
		ItemID:          e.ItemID,
		Type:            e.Type,
		Quantity:        e.Quantity,
		Rate:            e.Rate,
		Amount:          e.Amount,
		VendorID:        e.VendorID,
		BatchNumber:     e.BatchNumber,
		ExpiryDate:      e.ExpiryDate,
		ReferenceNumber: e.ReferenceNumber,
		Notes:           e.Notes,
		Reason:          e.Reason,
		TransactionDate: e.TransactionDate,
		CreatedAt:       e.CreatedAt,
	}
}

// ReconciliationRowDTO fila del reporte de auditoría saldo vs kardex.
type ReconciliationRowDTO struct {
	WarehouseID string `json:"warehouse_id"`
	ItemID      string `json:"item_id"`
	Balance     int64  `json:"balance"`
	LedgerSum   int64  `json:"ledger_sum"`
	Drift       bool   `json:"drift"`
}
