package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot lote trazable originado por una línea de compra.
// Inmutable salvo la desactivación; lo que queda disponible nunca se almacena, se deriva del kardex.
type Lot struct {
	ID                  string
	ProductID           string
	PurchaseDetailID    string
	Code                string
	ExpiresAt           *time.Time
	InitialQuantityBase decimal.Decimal
	Active              bool
	CreatedAt           time.Time
	CreatedBy           string
}

// IsExpired indica si el lote venció a la fecha dada.
func (l *Lot) IsExpired(at time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return l.ExpiresAt.Before(at)
}
