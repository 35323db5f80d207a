package ledger_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcamargo/kardex-api/internal/application/ledger"
	"github.com/jcamargo/kardex-api/internal/domain"
	"github.com/jcamargo/kardex-api/internal/domain/entity"
	"github.com/jcamargo/kardex-api/internal/domain/repository"
	"github.com/jcamargo/kardex-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
//
// Emulan el contrato del motor de persistencia que usa el procesador: un mutex
// por fila hace de bloqueo exclusivo (SELECT FOR UPDATE) y se sostiene hasta
// Commit/Rollback; los asientos pendientes solo se publican al confirmar y el
// rollback restaura la cantidad previa de cada fila bloqueada. Así los
// escenarios de atomicidad y concurrencia ejercitan el mismo camino que la BD.
// ──────────────────────────────────────────────────────────────────────────────

type memRow struct {
	mu        sync.Mutex
	qty       int64
	updatedAt time.Time
}

type memStore struct {
	mu      sync.Mutex
	rows    map[entity.BalanceKey]*memRow
	entries []*entity.LedgerEntry
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[entity.BalanceKey]*memRow)}
}

// row devuelve la fila de la clave, creándola en cero si no existe.
func (s *memStore) row(key entity.BalanceKey) *memRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[key]
	if !ok {
		r = &memRow{}
		s.rows[key] = r
	}
	return r
}

// seed fija un saldo inicial sin pasar por el procesador (y su asiento espejo,
// para que el invariante de reconciliación arranque en verde).
func (s *memStore) seed(key entity.BalanceKey, qty int64) {
	r := s.row(key)
	r.qty = qty
	r.updatedAt = time.Now()
	s.mu.Lock()
	s.entries = append(s.entries, &entity.LedgerEntry{
		ID: "seed-" + key.WarehouseID + "-" + key.ItemID, CompanyID: key.CompanyID,
		WarehouseID: key.WarehouseID, ItemID: key.ItemID,
		Type: entity.MovementTypeINWARD, Quantity: qty,
		TransactionDate: time.Now(), CreatedAt: time.Now(),
	})
	s.mu.Unlock()
}

func (s *memStore) balance(key entity.BalanceKey) int64 {
	s.mu.Lock()
	r := s.rows[key]
	s.mu.Unlock()
	if r == nil {
		return 0
	}
	return r.qty
}

func (s *memStore) committed() []*entity.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *memStore) countEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type memTx struct {
	store   *memStore
	order   []*memRow          // filas bloqueadas, en orden de adquisición
	undo    map[*memRow]int64  // cantidad previa por fila
	pending []*entity.LedgerEntry
}

func (t *memTx) commit() {
	t.store.mu.Lock()
	t.store.entries = append(t.store.entries, t.pending...)
	t.store.mu.Unlock()
	for i := len(t.order) - 1; i >= 0; i-- {
		t.order[i].mu.Unlock()
	}
}

func (t *memTx) rollback() {
	for i := len(t.order) - 1; i >= 0; i-- {
		r := t.order[i]
		r.qty = t.undo[r]
		r.mu.Unlock()
	}
}

// memBalanceRepo implementa repository.BalanceRepository sobre memStore.
// Con tx escribe; sin tx solo lee estado confirmado.
type memBalanceRepo struct {
	store *memStore
	tx    *memTx
}

func (r *memBalanceRepo) UpsertForUpdate(_ context.Context, key entity.BalanceKey) (int64, error) {
	if r.tx == nil {
		return 0, errors.New("upsert for update fuera de transacción")
	}
	row := r.store.row(key)
	if _, held := r.tx.undo[row]; held {
		return row.qty, nil // la tx ya sostiene el bloqueo
	}
	row.mu.Lock()
	r.tx.order = append(r.tx.order, row)
	r.tx.undo[row] = row.qty
	return row.qty, nil
}

func (r *memBalanceRepo) ApplyDelta(_ context.Context, key entity.BalanceKey, delta int64, at time.Time) error {
	if r.tx == nil {
		return errors.New("apply delta fuera de transacción")
	}
	row := r.store.row(key)
	if _, held := r.tx.undo[row]; !held {
		return errors.New("apply delta sin bloqueo previo")
	}
	row.qty += delta
	row.updatedAt = at
	return nil
}

func (r *memBalanceRepo) Get(_ context.Context, key entity.BalanceKey) (*entity.Balance, error) {
	r.store.mu.Lock()
	row := r.store.rows[key]
	r.store.mu.Unlock()
	if row == nil {
		return nil, nil
	}
	return &entity.Balance{
		CompanyID: key.CompanyID, WarehouseID: key.WarehouseID, ItemID: key.ItemID,
		Quantity: row.qty, UpdatedAt: row.updatedAt,
	}, nil
}

func (r *memBalanceRepo) ListByCompany(_ context.Context, companyID, warehouseID, itemID string) ([]*entity.Balance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*entity.Balance
	for key, row := range r.store.rows {
		if key.CompanyID != companyID {
			continue
		}
		if warehouseID != "" && key.WarehouseID != warehouseID {
			continue
		}
		if itemID != "" && key.ItemID != itemID {
			continue
		}
		list = append(list, &entity.Balance{
			CompanyID: key.CompanyID, WarehouseID: key.WarehouseID, ItemID: key.ItemID,
			Quantity: row.qty, UpdatedAt: row.updatedAt,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

// memLedgerRepo implementa repository.LedgerEntryRepository sobre memStore.
// appendErr permite inyectar un fallo por asiento (pruebas de atomicidad).
type memLedgerRepo struct {
	store     *memStore
	tx        *memTx
	appendErr func(e *entity.LedgerEntry) error
}

func (r *memLedgerRepo) Append(_ context.Context, e *entity.LedgerEntry) error {
	if r.tx == nil {
		return errors.New("append fuera de transacción")
	}
	if r.appendErr != nil {
		if err := r.appendErr(e); err != nil {
			return err
		}
	}
	r.tx.pending = append(r.tx.pending, e)
	return nil
}

func (r *memLedgerRepo) GetByID(_ context.Context, companyID, id string) (*entity.LedgerEntry, error) {
	for _, e := range r.store.committed() {
		if e.CompanyID == companyID && e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memLedgerRepo) List(_ context.Context, companyID string, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	var list []*entity.LedgerEntry
	for _, e := range r.store.committed() {
		if e.CompanyID != companyID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.WarehouseID != "" && e.WarehouseID != f.WarehouseID {
			continue
		}
		if f.ItemID != "" && e.ItemID != f.ItemID {
			continue
		}
		list = append(list, e)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].TransactionDate.Equal(list[j].TransactionDate) {
			return list[i].TransactionDate.After(list[j].TransactionDate)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil, nil
	}
	if offset+limit > len(list) {
		limit = len(list) - offset
	}
	return list[offset : offset+limit], nil
}

func (r *memLedgerRepo) SumByKey(_ context.Context, companyID string) ([]repository.KeySum, error) {
	type wk struct{ w, i string }
	sums := make(map[wk]int64)
	for _, e := range r.store.committed() {
		if e.CompanyID != companyID {
			continue
		}
		sums[wk{e.WarehouseID, e.ItemID}] += e.Quantity
	}
	var out []repository.KeySum
	for k, v := range sums {
		out = append(out, repository.KeySum{WarehouseID: k.w, ItemID: k.i, Sum: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WarehouseID != out[j].WarehouseID {
			return out[i].WarehouseID < out[j].WarehouseID
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

// memTxRunner implementa ledger.TxRunner: commit si fn devuelve nil, rollback si no.
type memTxRunner struct {
	store     *memStore
	appendErr func(e *entity.LedgerEntry) error
}

func (r *memTxRunner) Run(_ context.Context, fn func(
	ledgerRepo repository.LedgerEntryRepository,
	balanceRepo repository.BalanceRepository,
) error) error {
	tx := &memTx{store: r.store, undo: make(map[*memRow]int64)}
	err := fn(
		&memLedgerRepo{store: r.store, tx: tx, appendErr: r.appendErr},
		&memBalanceRepo{store: r.store, tx: tx},
	)
	if err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const testCompany = "C1"

func newProcessor(store *memStore) *ledger.Processor {
	return ledger.NewProcessor(&memTxRunner{store: store}, logger.Nop())
}

func key(warehouse, item string) entity.BalanceKey {
	return entity.BalanceKey{CompanyID: testCompany, WarehouseID: warehouse, ItemID: item}
}

// requireReconciled verifica el invariante: para toda clave, saldo == suma del
// kardex y saldo >= 0.
func requireReconciled(t *testing.T, store *memStore) {
	t.Helper()
	sums := make(map[entity.BalanceKey]int64)
	for _, e := range store.committed() {
		sums[entity.BalanceKey{CompanyID: e.CompanyID, WarehouseID: e.WarehouseID, ItemID: e.ItemID}] += e.Quantity
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	for k, row := range store.rows {
		require.Equal(t, sums[k], row.qty, "saldo de %v no reconcilia con el kardex", k)
		require.GreaterOrEqual(t, row.qty, int64(0), "saldo negativo en %v", k)
	}
}

func rate(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// ──────────────────────────────────────────────────────────────────────────────
// Validación: se rechaza antes de tomar cualquier bloqueo
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_Validacion(t *testing.T) {
	line := ledger.BatchLine{WarehouseID: "W1", ItemID: "I1", Quantity: 10, Rate: rate(5)}

	tests := []struct {
		name string
		in   ledger.BatchInput
	}{
		{"empresa vacía", ledger.BatchInput{CompanyID: "", Type: entity.MovementTypeINWARD, Lines: []ledger.BatchLine{line}}},
		{"sin líneas", ledger.BatchInput{CompanyID: testCompany, Type: entity.MovementTypeINWARD}},
		{"tipo desconocido", ledger.BatchInput{CompanyID: testCompany, Type: "TRANSFER", Lines: []ledger.BatchLine{line}}},
		{"cantidad cero", ledger.BatchInput{CompanyID: testCompany, Type: entity.MovementTypeINWARD,
			Lines: []ledger.BatchLine{{WarehouseID: "W1", ItemID: "I1", Quantity: 0, Rate: rate(5)}}}},
		{"cantidad negativa", ledger.BatchInput{CompanyID: testCompany, Type: entity.MovementTypeOUTWARD,
			Lines: []ledger.BatchLine{{WarehouseID: "W1", ItemID: "I1", Quantity: -3, Rate: rate(5)}}}},
		{"bodega vacía", ledger.BatchInput{CompanyID: testCompany, Type: entity.MovementTypeINWARD,
			Lines: []ledger.BatchLine{{ItemID: "I1", Quantity: 1, Rate: rate(5)}}}},
		{"rate negativo", ledger.BatchInput{CompanyID: testCompany, Type: entity.MovementTypeINWARD,
			Lines: []ledger.BatchLine{{WarehouseID: "W1", ItemID: "I1", Quantity: 1, Rate: rate(-5)}}}},
		{"ajuste sin dirección", ledger.BatchInput{CompanyID: testCompany, Type: entity.MovementTypeADJUSTMENT,
			Lines: []ledger.BatchLine{{WarehouseID: "W1", ItemID: "I1", Quantity: 1, Reason: "conteo"}}}},
		{"ajuste sin razón", ledger.BatchInput{CompanyID: testCompany, Type: entity.MovementTypeADJUSTMENT,
			Lines: []ledger.BatchLine{{WarehouseID: "W1", ItemID: "I1", Quantity: 1, Direction: entity.AdjustmentIncrease}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			res, err := newProcessor(store).ApplyBatch(context.Background(), tc.in)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, res)
			assert.Zero(t, store.countEntries(), "no debe persistirse ningún asiento")
			assert.Empty(t, store.rows, "no debe crearse ningún saldo")
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario A: entrada sobre saldo inexistente
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_EntradaInicial(t *testing.T) {
	store := newMemStore()
	txDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	res, err := newProcessor(store).ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		UserID:    "U1",
		Type:      entity.MovementTypeINWARD,
		Lines: []ledger.BatchLine{{
			WarehouseID: "W1", ItemID: "I1", Quantity: 10, Rate: rate(5),
			VendorID: "V9", ReferenceNumber: "OC-001", TransactionDate: txDate,
		}},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.BatchID)

	require.Len(t, res.Balances, 1)
	assert.Equal(t, int64(10), res.Balances[0].Quantity)
	assert.Equal(t, int64(10), store.balance(key("W1", "I1")))

	entries := store.committed()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, entity.MovementTypeINWARD, e.Type)
	assert.Equal(t, int64(10), e.Quantity)
	assert.True(t, e.Amount.Equal(rate(50)), "amount = 10 * 5, fue %s", e.Amount)
	assert.Equal(t, res.BatchID, e.BatchID)
	assert.Equal(t, "V9", e.VendorID)
	assert.Equal(t, "U1", e.CreatedBy)
	assert.True(t, e.TransactionDate.Equal(txDate))

	requireReconciled(t, store)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario B: salida que excede el saldo -> lote completo rechazado
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_SalidaInsuficiente(t *testing.T) {
	store := newMemStore()
	store.seed(key("W1", "I1"), 10)
	before := store.countEntries()

	res, err := newProcessor(store).ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		Type:      entity.MovementTypeOUTWARD,
		Lines:     []ledger.BatchLine{{WarehouseID: "W1", ItemID: "I1", Quantity: 15, Rate: rate(7)}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Nil(t, res)
	assert.Equal(t, int64(10), store.balance(key("W1", "I1")), "el saldo no debe cambiar")
	assert.Equal(t, before, store.countEntries(), "no debe crearse ningún asiento")
	requireReconciled(t, store)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario C: ajuste negativo con razón
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_AjusteNegativo(t *testing.T) {
	store := newMemStore()
	store.seed(key("W1", "I1"), 10)

	res, err := newProcessor(store).ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		Type:      entity.MovementTypeADJUSTMENT,
		Lines: []ledger.BatchLine{{
			WarehouseID: "W1", ItemID: "I1", Quantity: 4,
			Direction: entity.AdjustmentDecrease, Reason: "damaged",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), store.balance(key("W1", "I1")))
	require.Len(t, res.Balances, 1)
	assert.Equal(t, int64(6), res.Balances[0].Quantity)

	entries := store.committed()
	e := entries[len(entries)-1]
	assert.Equal(t, entity.MovementTypeADJUSTMENT, e.Type)
	assert.Equal(t, int64(-4), e.Quantity)
	assert.True(t, e.Amount.IsZero(), "los ajustes no llevan monto")
	assert.True(t, e.Rate.IsZero())
	assert.Equal(t, "damaged", e.Reason)
	requireReconciled(t, store)
}

// El ajuste que dejaría el saldo negativo falla igual que una salida: mismo
// error de stock insuficiente, sin estado parcial.
func TestApplyBatch_AjusteNegativoInsuficiente(t *testing.T) {
	store := newMemStore()
	store.seed(key("W1", "I1"), 3)

	_, err := newProcessor(store).ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		Type:      entity.MovementTypeADJUSTMENT,
		Lines: []ledger.BatchLine{{
			WarehouseID: "W1", ItemID: "I1", Quantity: 5,
			Direction: entity.AdjustmentDecrease, Reason: "conteo físico",
		}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(3), store.balance(key("W1", "I1")))
	requireReconciled(t, store)
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad: un fallo en la última línea descarta el lote completo
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_Atomicidad(t *testing.T) {
	store := newMemStore()
	store.seed(key("W1", "I1"), 5)
	before := store.countEntries()

	boom := errors.New("disco lleno")
	calls := 0
	runner := &memTxRunner{store: store, appendErr: func(e *entity.LedgerEntry) error {
		calls++
		if calls == 3 { // tercera línea del lote
			return boom
		}
		return nil
	}}
	p := ledger.NewProcessor(runner, logger.Nop())

	_, err := p.ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		Type:      entity.MovementTypeINWARD,
		Lines: []ledger.BatchLine{
			{WarehouseID: "W1", ItemID: "I1", Quantity: 2, Rate: rate(1)},
			{WarehouseID: "W1", ItemID: "I2", Quantity: 3, Rate: rate(1)},
			{WarehouseID: "W2", ItemID: "I1", Quantity: 4, Rate: rate(1)},
		},
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	// Cero cambio observable: ni asientos nuevos ni saldos movidos.
	assert.Equal(t, before, store.countEntries())
	assert.Equal(t, int64(5), store.balance(key("W1", "I1")))
	assert.Equal(t, int64(0), store.balance(key("W1", "I2")))
	assert.Equal(t, int64(0), store.balance(key("W2", "I1")))
	requireReconciled(t, store)
}

// Varias líneas del mismo lote sobre la misma clave encadenan sobre el saldo
// en curso: la segunda salida ve el saldo ya descontado por la primera.
func TestApplyBatch_LineasRepetidasMismaClave(t *testing.T) {
	store := newMemStore()
	store.seed(key("W1", "I1"), 3)

	_, err := newProcessor(store).ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		Type:      entity.MovementTypeOUTWARD,
		Lines: []ledger.BatchLine{
			{WarehouseID: "W1", ItemID: "I1", Quantity: 2, Rate: rate(1)},
			{WarehouseID: "W1", ItemID: "I1", Quantity: 2, Rate: rate(1)},
		},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock, "3 - 2 - 2 quedaría en -1")
	assert.Equal(t, int64(3), store.balance(key("W1", "I1")))

	// Con saldo suficiente ambas líneas aplican y generan su propio asiento.
	store2 := newMemStore()
	store2.seed(key("W1", "I1"), 10)
	res, err := newProcessor(store2).ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		Type:      entity.MovementTypeOUTWARD,
		Lines: []ledger.BatchLine{
			{WarehouseID: "W1", ItemID: "I1", Quantity: 2, Rate: rate(1)},
			{WarehouseID: "W1", ItemID: "I1", Quantity: 2, Rate: rate(1)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), store2.balance(key("W1", "I1")))
	require.Len(t, res.Balances, 1, "una sola clave tocada")
	assert.Equal(t, int64(6), res.Balances[0].Quantity)
	assert.Equal(t, 1+2, store2.countEntries(), "semilla + dos asientos")
	requireReconciled(t, store2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario D: dos entradas concurrentes sobre la misma clave
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_ConcurrenciaMismaClave(t *testing.T) {
	store := newMemStore()
	p := newProcessor(store)

	apply := func(qty int64, errs chan<- error) {
		_, err := p.ApplyBatch(context.Background(), ledger.BatchInput{
			CompanyID: testCompany,
			Type:      entity.MovementTypeINWARD,
			Lines:     []ledger.BatchLine{{WarehouseID: "W1", ItemID: "I1", Quantity: qty, Rate: rate(2)}},
		})
		errs <- err
	}

	errs := make(chan error, 2)
	go apply(5, errs)
	go apply(7, errs)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, int64(12), store.balance(key("W1", "I1")), "5 + 7 sin importar el entrelazado")
	assert.Equal(t, 2, store.countEntries(), "ambos asientos deben existir")
	requireReconciled(t, store)
}

// Dos lotes que referencian las mismas dos claves en orden opuesto: el orden
// de bloqueo queda fijado por (bodega, ítem), así que ninguno puede quedar en
// deadlock; uno espera al otro y ambos terminan.
func TestApplyBatch_OrdenDeBloqueoOpuesto(t *testing.T) {
	store := newMemStore()
	p := newProcessor(store)

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := p.ApplyBatch(context.Background(), ledger.BatchInput{
				CompanyID: testCompany,
				Type:      entity.MovementTypeINWARD,
				Lines: []ledger.BatchLine{
					{WarehouseID: "W1", ItemID: "I1", Quantity: 1, Rate: rate(1)},
					{WarehouseID: "W1", ItemID: "I2", Quantity: 1, Rate: rate(1)},
				},
			})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := p.ApplyBatch(context.Background(), ledger.BatchInput{
				CompanyID: testCompany,
				Type:      entity.MovementTypeINWARD,
				Lines: []ledger.BatchLine{
					{WarehouseID: "W1", ItemID: "I2", Quantity: 1, Rate: rate(1)},
					{WarehouseID: "W1", ItemID: "I1", Quantity: 1, Rate: rate(1)},
				},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(2*rounds), store.balance(key("W1", "I1")))
	assert.Equal(t, int64(2*rounds), store.balance(key("W1", "I2")))
	requireReconciled(t, store)
}

// El resultado reporta los saldos de cierre en el orden de bloqueo y el error
// de bloqueo agotado se propaga como reintentable.
func TestApplyBatch_ResultadoYErroresReintentables(t *testing.T) {
	store := newMemStore()
	res, err := newProcessor(store).ApplyBatch(context.Background(), ledger.BatchInput{
		CompanyID: testCompany,
		Type:      entity.MovementTypeINWARD,
		Lines: []ledger.BatchLine{
			{WarehouseID: "W2", ItemID: "I1", Quantity: 1, Rate: rate(1)},
			{WarehouseID: "W1", ItemID: "I9", Quantity: 2, Rate: rate(1)},
			{WarehouseID: "W1", ItemID: "I2", Quantity: 3, Rate: rate(1)},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Balances, 3)
	got := make([]string, 0, 3)
	for _, b := range res.Balances {
		got = append(got, b.WarehouseID+"/"+b.ItemID)
	}
	assert.Equal(t, []string{"W1/I2", "W1/I9", "W2/I1"}, got, "orden total por (bodega, ítem)")

	assert.True(t, domain.Retryable(domain.ErrLockTimeout))
	assert.True(t, domain.Retryable(domain.ErrTxConflict))
	assert.False(t, domain.Retryable(domain.ErrInsufficientStock))
	assert.False(t, domain.Retryable(domain.ErrInvalidInput))
}
