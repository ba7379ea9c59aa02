package repository

import (
	"context"

	"github.com/jhoicas/minimarket-api/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID devuelve (nil, nil) si no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
}

// UnitRepository puerto de persistencia para unidades de medida.
type UnitRepository interface {
	Create(ctx context.Context, unit *entity.Unit) error
	GetByID(ctx context.Context, id string) (*entity.Unit, error)
	List(ctx context.Context) ([]*entity.Unit, error)
}

// SupplierRepository puerto de persistencia para proveedores.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *entity.Supplier) error
	GetByID(ctx context.Context, id string) (*entity.Supplier, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Supplier, error)
}

// UnitConversionRepository puerto para las filas de conversión de un producto.
type UnitConversionRepository interface {
	Create(ctx context.Context, conv *entity.UnitConversion) error
	// Update persiste Price, Active y UpdatedAt. Factor es inmutable.
	Update(ctx context.Context, conv *entity.UnitConversion) error
	GetByProductAndUnit(ctx context.Context, productID, unitID string) (*entity.UnitConversion, error)
	// ListByProduct devuelve todas las filas del producto, activas e inactivas.
	ListByProduct(ctx context.Context, productID string) ([]*entity.UnitConversion, error)
}
