package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jcamargo/kardex-api/internal/application/dto"
	"github.com/jcamargo/kardex-api/internal/application/ledger"
	"github.com/jcamargo/kardex-api/internal/domain"
	"github.com/jcamargo/kardex-api/internal/domain/entity"
)

// InventoryHandler maneja las peticiones HTTP de movimientos de inventario (protegido).
// Un endpoint por tipo de movimiento; el resultado siempre es a nivel de lote.
type InventoryHandler struct {
	processor *ledger.Processor
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(processor *ledger.Processor) *InventoryHandler {
	return &InventoryHandler{processor: processor}
}

// Inward godoc
// @Summary      Registrar lote de entradas de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementBatchRequest  true  "líneas: warehouse_id, item_id, quantity, rate, opcionales de lote"
// @Success      201   {object}  dto.MovementBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/inward [post]
func (h *InventoryHandler) Inward(c *fiber.Ctx) error {
	return h.applyBatch(c, entity.MovementTypeINWARD)
}

// Outward godoc
// @Summary      Registrar lote de salidas de inventario
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementBatchRequest  true  "líneas: warehouse_id, item_id, quantity, rate"
// @Success      201   {object}  dto.MovementBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/outward [post]
func (h *InventoryHandler) Outward(c *fiber.Ctx) error {
	return h.applyBatch(c, entity.MovementTypeOUTWARD)
}

// Adjustment godoc
// @Summary      Registrar lote de ajustes manuales
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementBatchRequest  true  "líneas: warehouse_id, item_id, quantity, direction, reason"
// @Success      201   {object}  dto.MovementBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustment [post]
func (h *InventoryHandler) Adjustment(c *fiber.Ctx) error {
	return h.applyBatch(c, entity.MovementTypeADJUSTMENT)
}

// applyBatch decodifica el body, invoca al procesador y mapea el resultado.
// El lote pasa o falla completo: nunca hay éxito parcial por línea.
func (h *InventoryHandler) applyBatch(c *fiber.Ctx, movementType string) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.MovementBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	res, err := h.processor.ApplyBatch(c.Context(), ledger.BatchInput{
		CompanyID: companyID,
		UserID:    GetUserID(c),
		Type:      movementType,
		Lines:     in.ToBatchLines(),
	})
	if err != nil {
		return writeBatchError(c, err)
	}

	out := dto.MovementBatchResponse{BatchID: res.BatchID}
	for i := range res.Balances {
		out.Balances = append(out.Balances, dto.NewBalanceDTO(&res.Balances[i]))
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// writeBatchError mapea la taxonomía de errores del motor a HTTP.
// Los reintentables (lock timeout, conflicto de tx) devuelven 503: el caller
// puede repetir el lote tal cual porque nada quedó confirmado.
func writeBatchError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrLockTimeout):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: "contención de inventario, reintente"})
	case errors.Is(err, domain.ErrTxConflict):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "TX_CONFLICT", Message: "conflicto de transacción, reintente"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
