package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale cabecera de una venta.
type Sale struct {
	ID        string
	Number    string // consecutivo V-000001
	Date      time.Time
	Total     decimal.Decimal
	CreatedAt time.Time
	CreatedBy string
}

// SaleDetail línea de venta contra una entrada de stock; IdentityCodeID solo si se vendió por código.
type SaleDetail struct {
	ID             string
	SaleID         string
	StockEntryID   string
	ProductID      string
	UnitID         string
	IdentityCodeID string
	Quantity       decimal.Decimal
	QuantityBase   decimal.Decimal
	UnitPrice      decimal.Decimal
	Discount       decimal.Decimal
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	CreatedAt      time.Time
}
