package entity

import "time"

// BalanceKey identifica un saldo: una fila por (empresa, bodega, ítem).
type BalanceKey struct {
	CompanyID   string
	WarehouseID string
	ItemID      string
}

// Balance es el saldo actual materializado para una clave. Derivado del kardex:
// Quantity == suma de LedgerEntry.Quantity confirmados de la misma clave,
// y Quantity >= 0 en todo momento observable. Se crea en cero con el primer
// movimiento y nunca se borra.
type Balance struct {
	CompanyID   string
	WarehouseID string
	ItemID      string
	Quantity    int64
	UpdatedAt   time.Time
}

// Key devuelve la clave del saldo.
func (b *Balance) Key() BalanceKey {
	return BalanceKey{CompanyID: b.CompanyID, WarehouseID: b.WarehouseID, ItemID: b.ItemID}
}
