package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del kardex.
const (
	MovementTypeINWARD     = "INWARD"     // entrada (compra, recepción)
	MovementTypeOUTWARD    = "OUTWARD"    // salida (venta, despacho)
	MovementTypeADJUSTMENT = "ADJUSTMENT" // ajuste manual (conteo físico, daño)
)

// Dirección de un ajuste manual.
const (
	AdjustmentIncrease = "INCREASE"
	AdjustmentDecrease = "DECREASE"
)

// LedgerEntry es un asiento inmutable del kardex: una entrada, salida o ajuste
// sobre un (empresa, bodega, ítem). Nunca se actualiza ni se borra; el saldo
// actual siempre debe reconciliar con la suma de sus asientos.
type LedgerEntry struct {
	ID              string
	BatchID         string // agrupa las líneas confirmadas en un mismo lote
	CompanyID       string
	WarehouseID     string
	ItemID          string
	Type            string          // INWARD, OUTWARD, ADJUSTMENT
	Quantity        int64           // efecto con signo: positivo entrada/ajuste+, negativo salida/ajuste-
	Rate            decimal.Decimal // precio unitario; cero en ajustes
	Amount          decimal.Decimal // |Quantity| * Rate; cero en ajustes
	VendorID        string
	BatchNumber     string
	ExpiryDate      *time.Time
	ReferenceNumber string
	Notes           string
	Reason          string    // solo ajustes
	TransactionDate time.Time // fecha contable, la aporta el caller
	CreatedAt       time.Time
	CreatedBy       string // UserID
}

// ValidMovementType indica si s es un tipo de movimiento conocido.
func ValidMovementType(s string) bool {
	switch s {
	case MovementTypeINWARD, MovementTypeOUTWARD, MovementTypeADJUSTMENT:
		return true
	}
	return false
}
