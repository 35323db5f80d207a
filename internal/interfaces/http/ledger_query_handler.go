package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcamargo/kardex-api/internal/application/dto"
	"github.com/jcamargo/kardex-api/internal/application/ledger"
	"github.com/jcamargo/kardex-api/internal/domain/entity"
	"github.com/jcamargo/kardex-api/internal/domain/repository"
)

// LedgerQueryHandler consultas de solo lectura sobre kardex y saldos (protegido).
type LedgerQueryHandler struct {
	queries *ledger.QueryService
}

// NewLedgerQueryHandler construye el handler.
func NewLedgerQueryHandler(queries *ledger.QueryService) *LedgerQueryHandler {
	return &LedgerQueryHandler{queries: queries}
}

// ListLedger godoc
// @Summary      Listar asientos del kardex (más reciente primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        type          query  string  false  "INWARD | OUTWARD | ADJUSTMENT"
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        item_id       query  string  false  "Filtrar por ítem"
// @Param        limit         query  int     false  "default 20"
// @Param        offset        query  int     false  "default 0"
// @Success      200  {array}   dto.LedgerEntryDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/ledger [get]
func (h *LedgerQueryHandler) ListLedger(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	page.DefaultPage()

	entries, err := h.queries.ListLedger(c.Context(), companyID, repository.LedgerFilter{
		Type:        c.Query("type"),
		WarehouseID: c.Query("warehouse_id"),
		ItemID:      c.Query("item_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
	if err != nil {
		return writeBatchError(c, err)
	}

	out := make([]dto.LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.NewLedgerEntryDTO(e))
	}
	return c.JSON(fiber.Map{"total": len(out), "entries": out})
}

// GetLedgerEntry godoc
// @Summary      Obtener un asiento del kardex por ID
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del asiento"
// @Success      200  {object}  dto.LedgerEntryDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/ledger/{id} [get]
func (h *LedgerQueryHandler) GetLedgerEntry(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	entry, err := h.queries.GetEntry(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeBatchError(c, err)
	}
	if entry == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "asiento no encontrado"})
	}
	return c.JSON(dto.NewLedgerEntryDTO(entry))
}

// GetBalance godoc
// @Summary      Saldo actual de una clave (bodega, ítem)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  true  "Bodega"
// @Param        item_id       query  string  true  "Ítem"
// @Success      200  {object}  dto.BalanceDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/balance [get]
func (h *LedgerQueryHandler) GetBalance(c *fiber.Ctx) error {
	key := entity.BalanceKey{
		CompanyID:   GetCompanyID(c),
		WarehouseID: c.Query("warehouse_id"),
		ItemID:      c.Query("item_id"),
	}
	b, err := h.queries.GetBalance(c.Context(), key)
	if err != nil {
		return writeBatchError(c, err)
	}
	return c.JSON(dto.NewBalanceDTO(b))
}

// ListBalances godoc
// @Summary      Saldos de la empresa (filtro opcional por bodega y/o ítem)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por bodega"
// @Param        item_id       query  string  false  "Filtrar por ítem"
// @Success      200  {array}   dto.BalanceDTO
// @Router       /api/inventory/balances [get]
func (h *LedgerQueryHandler) ListBalances(c *fiber.Ctx) error {
	balances, err := h.queries.ListBalances(c.Context(), GetCompanyID(c), c.Query("warehouse_id"), c.Query("item_id"))
	if err != nil {
		return writeBatchError(c, err)
	}
	out := make([]dto.BalanceDTO, 0, len(balances))
	for _, b := range balances {
		out = append(out, dto.NewBalanceDTO(b))
	}
	return c.JSON(fiber.Map{"total": len(out), "balances": out})
}

// Reconciliation godoc
// @Summary      Auditoría de reconciliación: saldo materializado vs suma del kardex
// @Description  Toda fila con drift=true indica una desviación del invariante
//	y debe investigarse; en operación normal la lista vuelve sin desviaciones.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.ReconciliationRowDTO
// @Router       /api/inventory/reconciliation [get]
func (h *LedgerQueryHandler) Reconciliation(c *fiber.Ctx) error {
	rows, err := h.queries.Reconcile(c.Context(), GetCompanyID(c))
	if err != nil {
		return writeBatchError(c, err)
	}
	out := make([]dto.ReconciliationRowDTO, 0, len(rows))
	drifted := 0
	for _, r := range rows {
		if r.Drift {
			drifted++
		}
		out = append(out, dto.ReconciliationRowDTO{
			WarehouseID: r.WarehouseID,
			ItemID:      r.ItemID,
			Balance:     r.Balance,
			LedgerSum:   r.LedgerSum,
			Drift:       r.Drift,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "drifted": drifted, "rows": out})
}
