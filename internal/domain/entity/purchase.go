package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase cabecera de una compra a proveedor.
type Purchase struct {
	ID         string
	Number     string // consecutivo C-000001
	SupplierID string
	Date       time.Time
	Total      decimal.Decimal
	Active     bool
	CreatedAt  time.Time
	CreatedBy  string
}

// PurchaseDetail línea de compra: producto, unidad de empaque, cantidad y precio unitario de esa unidad.
type PurchaseDetail struct {
	ID         string
	PurchaseID string
	ProductID  string
	UnitID     string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Discount   decimal.Decimal
	Subtotal   decimal.Decimal // Quantity * UnitPrice
	Total      decimal.Decimal // Subtotal - Discount
	Active     bool
	CreatedAt  time.Time
}
