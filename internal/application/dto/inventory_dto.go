package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Compras ───────────────────────────────────────────────────────────────────

// PurchaseLineRequest línea de compra: cantidad y precio en la unidad de empaque comprada.
// SalePrice es el precio de venta de la posición de bodega; si es nil se usa el de la conversión.
type PurchaseLineRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	UnitID    string           `json:"unit_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Discount  decimal.Decimal  `json:"discount"`
	LotCode   string           `json:"lot_code" validate:"max=60"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
}

// RecordPurchaseRequest body para POST /api/purchases.
type RecordPurchaseRequest struct {
	SupplierID string                `json:"supplier_id" validate:"required"`
	Date       *time.Time            `json:"date,omitempty"`
	Lines      []PurchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// LotCreatedDTO lote generado por una línea de compra.
type LotCreatedDTO struct {
	LotID               string          `json:"lot_id"`
	Code                string          `json:"code"`
	ProductID           string          `json:"product_id"`
	InitialQuantityBase decimal.Decimal `json:"initial_quantity_base"`
	StockEntryID        string          `json:"stock_entry_id"`
}

// RecordPurchaseResponse resultado de registrar una compra.
type RecordPurchaseResponse struct {
	PurchaseID       string          `json:"purchase_id"`
	PurchaseNumber   string          `json:"purchase_number"`
	Total            decimal.Decimal `json:"total"`
	LotsCreated      int             `json:"lots_created"`
	MovementsCreated int             `json:"movements_created"`
	Lots             []LotCreatedDTO `json:"lots"`
}

// ── Lotes ─────────────────────────────────────────────────────────────────────

// LotResponse lote con su estado derivado del kardex.
type LotResponse struct {
	ID                  string          `json:"id"`
	ProductID           string          `json:"product_id"`
	PurchaseDetailID    string          `json:"purchase_detail_id"`
	Code                string          `json:"code"`
	ExpiresAt           *time.Time      `json:"expires_at,omitempty"`
	InitialQuantityBase decimal.Decimal `json:"initial_quantity_base"`
	ExtractedBase       decimal.Decimal `json:"extracted_base"`
	AvailableBase       decimal.Decimal `json:"available_base"`
	Status              string          `json:"status"`
	Active              bool            `json:"active"`
	CreatedAt           time.Time       `json:"created_at"`
}

// LotListResponse lotes de un producto.
type LotListResponse struct {
	Items []LotResponse `json:"items"`
}

// ── Extracción ────────────────────────────────────────────────────────────────

// ExtractionItemRequest cantidad a pasar de un lote a stock vendible.
// Price nil toma el precio de la conversión de la unidad (o el de la unidad base).
type ExtractionItemRequest struct {
	LotID         string           `json:"lot_id" validate:"required"`
	UnitID        string           `json:"unit_id" validate:"required"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	IdentityCodes []string         `json:"identity_codes,omitempty"`
}

// ExtractStockRequest body para POST /api/extractions.
type ExtractStockRequest struct {
	Items []ExtractionItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ExtractStockResponse resultado de una extracción.
type ExtractStockResponse struct {
	ExtractionID         string   `json:"extraction_id"`
	StockEntriesCreated  int      `json:"stock_entries_created"`
	MovementsCreated     int      `json:"movements_created"`
	IdentityCodesCreated int      `json:"identity_codes_created"`
	StockEntryIDs        []string `json:"stock_entry_ids"`
}

// ── Ventas ────────────────────────────────────────────────────────────────────

// SaleItemRequest ítem de venta: por código de identidad (una unidad) o a granel contra una entrada.
type SaleItemRequest struct {
	StockEntryID string           `json:"stock_entry_id"`
	IdentityCode string           `json:"identity_code"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	Discount     decimal.Decimal  `json:"discount"`
}

// SellRequest body para POST /api/sales.
type SellRequest struct {
	Items []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// SellResponse resultado de una venta.
type SellResponse struct {
	SaleID           string          `json:"sale_id"`
	SaleNumber       string          `json:"sale_number"`
	Total            decimal.Decimal `json:"total"`
	EntriesUpdated   int             `json:"entries_updated"`
	MovementsCreated int             `json:"movements_created"`
}

// ── Ajustes ───────────────────────────────────────────────────────────────────

// AdjustmentRequest body para POST /api/adjustments. Quantity con signo, en la unidad de la entrada.
type AdjustmentRequest struct {
	StockEntryID string          `json:"stock_entry_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Note         string          `json:"note" validate:"required,min=3,max=500"`
}

// AdjustmentResponse resultado de un ajuste manual.
type AdjustmentResponse struct {
	MovementID        string          `json:"movement_id"`
	StockEntryID      string          `json:"stock_entry_id"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	Anomalies         []string        `json:"anomalies,omitempty"`
}

// ── Stock disponible ──────────────────────────────────────────────────────────

// StockQuery parámetros para GET /api/stock.
type StockQuery struct {
	ProductID        string `query:"product_id"`
	IncludeWarehouse bool   `query:"include_warehouse"`
}

// StockItemDTO fila de la proyección de stock disponible.
type StockItemDTO struct {
	StockEntryID      string          `json:"stock_entry_id"`
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name"`
	LotID             string          `json:"lot_id,omitempty"`
	LotCode           string          `json:"lot_code,omitempty"`
	UnitID            string          `json:"unit_id"`
	UnitName          string          `json:"unit_name"`
	Source            string          `json:"source"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	AvailableBase     decimal.Decimal `json:"available_base"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	Expired           bool            `json:"expired"`
	ActiveCodes       int             `json:"active_codes"`
}

// StockListResponse respuesta de GET /api/stock.
type StockListResponse struct {
	Items []StockItemDTO `json:"items"`
}

// ── Kardex ────────────────────────────────────────────────────────────────────

// MovementQuery parámetros para GET /api/movements. From/To en formato YYYY-MM-DD.
type MovementQuery struct {
	ProductID string `query:"product_id"`
	LotID     string `query:"lot_id"`
	Kind      string `query:"kind" validate:"omitempty,oneof=RECEIPT EXIT ADJUSTMENT"`
	From      string `query:"from"`
	To        string `query:"to"`
	Limit     int    `query:"limit" validate:"min=0,max=500"`
	Offset    int    `query:"offset" validate:"min=0"`
}

// MovementDTO registro del kardex con sus marcas de anomalía.
type MovementDTO struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	ProductID     string          `json:"product_id"`
	LotID         string          `json:"lot_id,omitempty"`
	StockEntryID  string          `json:"stock_entry_id,omitempty"`
	UnitID        string          `json:"unit_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	QuantityBase  decimal.Decimal `json:"quantity_base"`
	ReferenceID   string          `json:"reference_id"`
	ReferenceKind string          `json:"reference_kind"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CreatedBy     string          `json:"created_by"`
	Anomalies     []string        `json:"anomalies,omitempty"`
}

// MovementListResponse historial del kardex.
type MovementListResponse struct {
	Items        []MovementDTO `json:"items"`
	AnomalyCount int           `json:"anomaly_count"`
	Page         PageResponse  `json:"page"`
}
