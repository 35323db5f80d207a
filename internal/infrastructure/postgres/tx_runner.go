package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcamargo/kardex-api/internal/application/ledger"
	"github.com/jcamargo/kardex-api/internal/domain/repository"
)

// Ensure TxRunner implements ledger.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL, con un
// lock_timeout local: una espera de bloqueo que exceda el presupuesto aborta
// el lote (SQLSTATE 55P03 -> domain.ErrLockTimeout) sin dejar estado parcial.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool y la espera máxima por bloqueo.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, fija SET LOCAL lock_timeout, ejecuta fn con
// repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledgerRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL solo vive hasta el Commit/Rollback de esta tx.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	ledgerRepo := NewLedgerEntryRepository(tx)
	balanceRepo := NewBalanceRepository(tx)

	if err := fn(ledgerRepo, balanceRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translateError("commit transaction", err)
	}
	return nil
}
