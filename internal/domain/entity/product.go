package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo del minimercado.
// BaseUnitID es la unidad canónica: todas las conversiones y el costo promedio se expresan en ella.
type Product struct {
	ID         string
	Name       string
	CategoryID string
	SupplierID string
	BaseUnitID string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Unit unidad de medida o empaque (unidad, caja, paquete, kg...).
type Unit struct {
	ID           string
	Name         string
	Abbreviation string
	CreatedAt    time.Time
}

// UnitConversion "1 OriginUnit = Factor unidades base" para un producto.
// Price es el precio de venta sugerido de esa unidad; cero significa no configurado.
type UnitConversion struct {
	ID                string
	ProductID         string
	OriginUnitID      string
	DestinationUnitID string // siempre la unidad base del producto
	Factor            decimal.Decimal
	Price             decimal.Decimal
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsBase indica si la fila es la conversión de la unidad base (factor 1).
func (c *UnitConversion) IsBase() bool {
	return c.Factor.Equal(decimal.NewFromInt(1))
}
