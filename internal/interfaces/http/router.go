package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcamargo/kardex-api/internal/application/ledger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Processor *ledger.Processor
	Queries   *ledger.QueryService
	JWTSecret string
}

// Router registra las rutas de la API. Todo el inventario exige Bearer Token:
// la empresa sale del token, nunca del body ni del query string.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	inv := protected.Group("/inventory")

	movements := NewInventoryHandler(deps.Processor)
	inv.Post("/inward", movements.Inward)
	inv.Post("/outward", movements.Outward)
	inv.Post("/adjustment", movements.Adjustment)

	queries := NewLedgerQueryHandler(deps.Queries)
	inv.Get("/ledger", queries.ListLedger)
	inv.Get("/ledger/:id", queries.GetLedgerEntry)
	inv.Get("/balance", queries.GetBalance)
	inv.Get("/balances", queries.ListBalances)
	inv.Get("/reconciliation", queries.Reconciliation)
}
