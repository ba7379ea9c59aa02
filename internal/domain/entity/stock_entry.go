package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origen de una entrada de stock.
const (
	StockSourceReceipt    = "RECEIPT"    // posición de bodega creada al recibir la compra
	StockSourceExtraction = "EXTRACTION" // stock vendible creado al extraer de un lote
)

// StockEntry cantidad de un producto/unidad/lote. Las de origen EXTRACTION son las vendibles.
// Quantity y QuantityBase son las cantidades con que se creó; AvailableQuantity solo baja con ventas o ajustes.
type StockEntry struct {
	ID                string
	ProductID         string
	LotID             string
	UnitID            string
	Source            string
	Quantity          decimal.Decimal
	AvailableQuantity decimal.Decimal
	QuantityBase      decimal.Decimal
	UnitPrice         decimal.Decimal
	ExpiresAt         *time.Time
	Active            bool
	CreatedAt         time.Time
	CreatedBy         string
	UpdatedAt         time.Time
}

// IsSellable indica si la entrada puede consumirse por una venta.
func (s *StockEntry) IsSellable() bool {
	return s.Active && s.Source == StockSourceExtraction
}

// IdentityCode código de barras de una unidad física vendible; se consume una sola vez.
type IdentityCode struct {
	ID           string
	StockEntryID string
	Code         string
	Active       bool
	SaleDetailID string
	ConsumedAt   *time.Time
	CreatedAt    time.Time
}
