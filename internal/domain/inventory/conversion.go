package inventory

import (
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ConversionTable tabla de conversión de un producto: unidad -> (factor, precio).
// Búsqueda y aritmética pura, sin efectos.
type ConversionTable struct {
	productID  string
	baseUnitID string
	basePrice  decimal.Decimal
	byUnit     map[string]entity.UnitConversion
}

// NewConversionTable construye la tabla con las filas activas del producto.
// Falla con ConfigurationError si no existe exactamente una fila activa con factor 1.
func NewConversionTable(productID string, rows []*entity.UnitConversion) (*ConversionTable, error) {
	t := &ConversionTable{
		productID: productID,
		byUnit:    make(map[string]entity.UnitConversion, len(rows)),
	}
	bases := 0
	for _, r := range rows {
		if r == nil || !r.Active || r.ProductID != productID {
			continue
		}
		if r.IsBase() {
			bases++
			t.baseUnitID = r.OriginUnitID
			t.basePrice = r.Price
		}
		t.byUnit[r.OriginUnitID] = *r
	}
	switch {
	case bases == 0:
		return nil, &domain.ConfigurationError{ProductID: productID, Reason: "sin unidad base (factor 1)"}
	case bases > 1:
		return nil, &domain.ConfigurationError{ProductID: productID, Reason: "más de una fila con factor 1"}
	}
	return t, nil
}

// ProductID producto de la tabla.
func (t *ConversionTable) ProductID() string { return t.productID }

// BaseUnitID unidad canónica del producto.
func (t *ConversionTable) BaseUnitID() string { return t.baseUnitID }

// Factor unidades base que contiene una unidad de unitID.
func (t *ConversionTable) Factor(unitID string) (decimal.Decimal, error) {
	c, ok := t.byUnit[unitID]
	if !ok {
		return decimal.Zero, &domain.ConfigurationError{
			ProductID: t.productID, UnitID: unitID, Reason: "sin conversión activa",
		}
	}
	return c.Factor, nil
}

// ToBase qty * factor(unitID).
func (t *ConversionTable) ToBase(unitID string, qty decimal.Decimal) (decimal.Decimal, error) {
	f, err := t.Factor(unitID)
	if err != nil {
		return decimal.Zero, err
	}
	return qty.Mul(f), nil
}

// FromBase inversa de ToBase: qtyBase / factor(unitID).
func (t *ConversionTable) FromBase(unitID string, qtyBase decimal.Decimal) (decimal.Decimal, error) {
	f, err := t.Factor(unitID)
	if err != nil {
		return decimal.Zero, err
	}
	return qtyBase.Div(f), nil
}

// PriceFor precio configurado de la unidad; si es cero se usa el precio de la unidad base.
func (t *ConversionTable) PriceFor(unitID string) (decimal.Decimal, error) {
	c, ok := t.byUnit[unitID]
	if !ok {
		return decimal.Zero, &domain.ConfigurationError{
			ProductID: t.productID, UnitID: unitID, Reason: "sin conversión activa",
		}
	}
	if c.Price.GreaterThan(decimal.Zero) {
		return c.Price, nil
	}
	return t.basePrice, nil
}

// ValidateConversionRows revisa un conjunto de filas antes de escribirlas:
// factor > 0, precio >= 0, una sola fila con factor 1 y la base en baseUnitID, sin unidades repetidas.
func ValidateConversionRows(baseUnitID string, rows []*entity.UnitConversion) error {
	seen := make(map[string]struct{}, len(rows))
	bases := 0
	for _, r := range rows {
		if r.OriginUnitID == "" {
			return domain.Invalid("unit_id", "requerido")
		}
		if _, dup := seen[r.OriginUnitID]; dup {
			return domain.Invalid("unit_id", "unidad repetida: "+r.OriginUnitID)
		}
		seen[r.OriginUnitID] = struct{}{}
		if !r.Factor.GreaterThan(decimal.Zero) {
			return domain.Invalid("factor", "debe ser mayor que cero")
		}
		if r.Price.LessThan(decimal.Zero) {
			return domain.Invalid("price", "no puede ser negativo")
		}
		if r.Factor.Equal(one) {
			bases++
			if r.OriginUnitID != baseUnitID {
				return domain.Invalid("factor", "solo la unidad base puede tener factor 1")
			}
		}
	}
	if bases != 1 {
		return &domain.ConfigurationError{UnitID: baseUnitID, Reason: "se requiere exactamente una fila base con factor 1"}
	}
	return nil
}
