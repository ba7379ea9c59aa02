package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/minimarket-api/internal/application/analytics"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/application/usecase"
	"github.com/jhoicas/minimarket-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	UnitUC         *usecase.UnitUseCase
	SupplierUC     *usecase.SupplierUseCase
	ProductUC      *usecase.ProductUseCase
	LotLedger      *inventory.LotLedgerUseCase
	Extraction     *inventory.StockExtractionUseCase
	Sales          *inventory.SaleConsumptionUseCase
	Movements      *inventory.MovementLedgerUseCase
	StockQuery     *inventory.StockQueryUseCase
	Valuation      *analytics.ValuationUseCase
	Idempotency    keyReserver
	IdempotencyTTL time.Duration
	JWTSecret      string
	JWTIssuer      string
	Logger         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	health := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
	app.Get("/health", health)

	api := app.Group("/api", RequestLogger(log.Named("http")))
	api.Get("/health", health)

	// Todas las rutas requieren Bearer Token
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	once := RequireIdempotency(deps.Idempotency, deps.IdempotencyTTL, log.Named("idempotency"))

	// Catálogo
	catalog := NewCatalogHandler(deps.UnitUC, deps.SupplierUC, deps.ProductUC)
	protected.Post("/units", catalog.CreateUnit)
	protected.Get("/units", catalog.ListUnits)
	protected.Post("/suppliers", catalog.CreateSupplier)
	protected.Get("/suppliers", catalog.ListSuppliers)
	protected.Get("/suppliers/:id", catalog.GetSupplier)
	protected.Post("/products", catalog.CreateProduct)
	protected.Get("/products", catalog.ListProducts)
	protected.Get("/products/:id", catalog.GetProduct)
	protected.Post("/products/:id/conversions", catalog.AddConversion)
	protected.Delete("/products/:id/conversions/:unitId", catalog.DeactivateConversion)

	// Inventario
	inv := NewInventoryHandler(deps.LotLedger, deps.Extraction, deps.Sales, deps.Movements, deps.StockQuery)
	protected.Post("/purchases", once, inv.RecordPurchase)
	protected.Get("/lots", inv.ListLots)
	protected.Get("/lots/:id", inv.GetLot)
	protected.Post("/lots/:id/deactivate", inv.DeactivateLot)
	protected.Post("/extractions", once, inv.ExtractStock)
	protected.Post("/sales", once, inv.Sell)
	protected.Post("/adjustments", inv.RegisterAdjustment)
	protected.Get("/stock", inv.AvailableStock)
	protected.Post("/stock/:id/deactivate", inv.DeactivateStockEntry)
	protected.Get("/movements", inv.MovementHistory)

	// Reportes
	reports := NewAnalyticsHandler(deps.Valuation)
	protected.Get("/reports/weighted-cost", reports.GetWeightedCost)
	protected.Get("/reports/profitability", reports.GetProfitability)
	protected.Get("/reports/lot-recovery", reports.GetLotRecovery)
	protected.Get("/reports/summary", reports.GetSummary)
}
