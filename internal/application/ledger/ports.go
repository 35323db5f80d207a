package ledger

import (
	"context"

	"github.com/jcamargo/kardex-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad por lote: Commit si fn
// devuelve nil, Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ledgerRepo repository.LedgerEntryRepository,
		balanceRepo repository.BalanceRepository,
	) error) error
}
