package inventory

import (
	"context"

	"github.com/jhoicas/minimarket-api/internal/domain/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// UnitConversionRegistry resuelve factores y precios por producto.
// Carga las filas una vez por producto y reutiliza la tabla; pensado para vivir lo que dura
// una transacción o una consulta, no es seguro para uso concurrente.
type UnitConversionRegistry struct {
	repo   repository.UnitConversionRepository
	tables map[string]*inventory.ConversionTable
}

// NewUnitConversionRegistry construye el registro sobre el repositorio dado (de la tx o del pool).
func NewUnitConversionRegistry(repo repository.UnitConversionRepository) *UnitConversionRegistry {
	return &UnitConversionRegistry{
		repo:   repo,
		tables: make(map[string]*inventory.ConversionTable),
	}
}

// Table devuelve la tabla de conversión del producto.
// ConfigurationError si el producto no tiene fila base activa.
func (r *UnitConversionRegistry) Table(ctx context.Context, productID string) (*inventory.ConversionTable, error) {
	if t, ok := r.tables[productID]; ok {
		return t, nil
	}
	rows, err := r.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	t, err := inventory.NewConversionTable(productID, rows)
	if err != nil {
		return nil, err
	}
	r.tables[productID] = t
	return t, nil
}

// ToBase qty en unitID expresada en unidades base.
func (r *UnitConversionRegistry) ToBase(ctx context.Context, productID, unitID string, qty decimal.Decimal) (decimal.Decimal, error) {
	t, err := r.Table(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.ToBase(unitID, qty)
}

// FromBase inversa de ToBase.
func (r *UnitConversionRegistry) FromBase(ctx context.Context, productID, unitID string, qtyBase decimal.Decimal) (decimal.Decimal, error) {
	t, err := r.Table(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.FromBase(unitID, qtyBase)
}

// PriceFor precio de venta de la unidad, con respaldo en el precio de la unidad base.
func (r *UnitConversionRegistry) PriceFor(ctx context.Context, productID, unitID string) (decimal.Decimal, error) {
	t, err := r.Table(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.PriceFor(unitID)
}
