package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
)

// InventoryHandler maneja compras, lotes, extracciones, ventas, ajustes y consultas de stock.
type InventoryHandler struct {
	lots       *inventory.LotLedgerUseCase
	extraction *inventory.StockExtractionUseCase
	sales      *inventory.SaleConsumptionUseCase
	movements  *inventory.MovementLedgerUseCase
	stock      *inventory.StockQueryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	lots *inventory.LotLedgerUseCase,
	extraction *inventory.StockExtractionUseCase,
	sales *inventory.SaleConsumptionUseCase,
	movements *inventory.MovementLedgerUseCase,
	stock *inventory.StockQueryUseCase,
) *InventoryHandler {
	return &InventoryHandler{
		lots:       lots,
		extraction: extraction,
		sales:      sales,
		movements:  movements,
		stock:      stock,
	}
}

// RecordPurchase godoc
// @Summary      Registrar compra
// @Description  Crea compra, detalles, un lote por línea, el movimiento RECEIPT y la posición de bodega,
// @Description  todo en una transacción. Acepta Idempotency-Key para reintentos seguros.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                     false  "Clave de reintento"
// @Param        body             body    dto.RecordPurchaseRequest  true   "Compra"
// @Success      201  {object}  dto.RecordPurchaseResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      500  {object}  InternalErrorResponse
// @Router       /api/purchases [post]
func (h *InventoryHandler) RecordPurchase(c *fiber.Ctx) error {
	var in dto.RecordPurchaseRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.lots.RecordPurchase(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListLots godoc
// @Summary      Listar lotes de un producto con su estado derivado
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true  "ID del producto"
// @Success      200  {object}  dto.LotListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/lots [get]
func (h *InventoryHandler) ListLots(c *fiber.Ctx) error {
	out, err := h.lots.ListLots(c.UserContext(), c.Query("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetLot godoc
// @Summary      Obtener lote con cantidades inicial, extraída y disponible
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [get]
func (h *InventoryHandler) GetLot(c *fiber.Ctx) error {
	out, err := h.lots.GetLot(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DeactivateLot godoc
// @Summary      Desactivar lote (no admite más extracciones)
// @Tags         inventory
// @Security     Bearer
// @Param        id   path  string  true  "ID del lote"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/deactivate [post]
func (h *InventoryHandler) DeactivateLot(c *fiber.Ctx) error {
	if err := h.lots.DeactivateLot(c.UserContext(), GetUserID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExtractStock godoc
// @Summary      Pasar unidades de lotes a stock vendible
// @Description  Cada ítem crea una entrada de stock, un movimiento EXIT y sus códigos de identidad.
// @Description  El lote se bloquea durante la operación; el lote completo se revierte ante cualquier fallo.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                   false  "Clave de reintento"
// @Param        body             body    dto.ExtractStockRequest  true   "Ítems a extraer"
// @Success      201  {object}  dto.ExtractStockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  StockErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/extractions [post]
func (h *InventoryHandler) ExtractStock(c *fiber.Ctx) error {
	var in dto.ExtractStockRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.extraction.ExtractStock(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Sell godoc
// @Summary      Registrar venta
// @Description  Ítems por código de identidad (una unidad) o a granel contra una entrada de stock.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string           false  "Clave de reintento"
// @Param        body             body    dto.SellRequest  true   "Ítems vendidos"
// @Success      201  {object}  dto.SellResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  StockErrorResponse
// @Router       /api/sales [post]
func (h *InventoryHandler) Sell(c *fiber.Ctx) error {
	var in dto.SellRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.sales.Sell(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// RegisterAdjustment godoc
// @Summary      Ajuste manual de una entrada de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "Ajuste con signo"
// @Success      201  {object}  dto.AdjustmentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  StockErrorResponse
// @Router       /api/adjustments [post]
func (h *InventoryHandler) RegisterAdjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.movements.RegisterAdjustment(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// AvailableStock godoc
// @Summary      Stock vendible disponible
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id         query  string  false  "Filtrar por producto"
// @Param        include_warehouse  query  bool    false  "Incluir posiciones de bodega con el remanente del lote"
// @Success      200  {object}  dto.StockListResponse
// @Router       /api/stock [get]
func (h *InventoryHandler) AvailableStock(c *fiber.Ctx) error {
	var q dto.StockQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, err)
	}
	out, err := h.stock.AvailableStock(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DeactivateStockEntry godoc
// @Summary      Retirar una entrada de stock de la venta
// @Tags         inventory
// @Security     Bearer
// @Param        id   path  string  true  "ID de la entrada"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{id}/deactivate [post]
func (h *InventoryHandler) DeactivateStockEntry(c *fiber.Ctx) error {
	if err := h.sales.DeactivateStockEntry(c.UserContext(), GetUserID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MovementHistory godoc
// @Summary      Kardex con marcas de anomalía
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Producto"
// @Param        lot_id      query  string  false  "Lote"
// @Param        kind        query  string  false  "RECEIPT | EXIT | ADJUSTMENT"
// @Param        from        query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to          query  string  false  "Hasta (YYYY-MM-DD)"
// @Param        limit       query  int     false  "Límite (max 500)"
// @Param        offset      query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *InventoryHandler) MovementHistory(c *fiber.Ctx) error {
	var q dto.MovementQuery
	if err := c.QueryParser(&q); err != nil {
		return writeError(c, errQuery)
	}
	q.Kind = strings.ToUpper(strings.TrimSpace(q.Kind))
	if err := validateStruct(&q); err != nil {
		return writeError(c, err)
	}
	out, err := h.movements.History(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
