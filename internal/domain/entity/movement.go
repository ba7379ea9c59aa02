package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del kardex.
const (
	MovementKindReceipt    = "RECEIPT"    // entrada por compra
	MovementKindExit       = "EXIT"       // salida (extracción a venta o venta)
	MovementKindAdjustment = "ADJUSTMENT" // ajuste manual
)

// Tipos de referencia de un movimiento.
const (
	ReferencePurchase   = "PURCHASE"
	ReferenceExtraction = "EXTRACTION"
	ReferenceSale       = "SALE"
	ReferenceAdjustment = "ADJUSTMENT"
)

// MovementRecord registro append-only del kardex. Nunca se actualiza ni se elimina.
// Quantity va en la unidad UnitID; QuantityBase en unidades base. En ajustes el signo indica la dirección.
type MovementRecord struct {
	ID            string
	Kind          string
	ProductID     string
	LotID         string // vacío si no aplica
	StockEntryID  string // vacío si no aplica
	UnitID        string
	Quantity      decimal.Decimal
	QuantityBase  decimal.Decimal
	ReferenceID   string
	ReferenceKind string
	Note          string
	CreatedAt     time.Time
	CreatedBy     string
}
