package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	domaininv "github.com/jhoicas/minimarket-api/internal/domain/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ProductUseCase catálogo de productos y sus conversiones de unidad.
// Un producto nunca existe sin su fila base (factor 1): se crean en la misma transacción.
type ProductUseCase struct {
	txRunner inventory.TxRunner
	repos    repository.Repositories
	log      *logger.Logger
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(txRunner inventory.TxRunner, repos repository.Repositories, log *logger.Logger) *ProductUseCase {
	return &ProductUseCase{txRunner: txRunner, repos: repos, log: log.Named("catalog")}
}

// Create crea el producto con su conversión base y las conversiones adicionales.
// Todo se valida antes de escribir: unidad base, factores > 0, precios >= 0, una sola fila con factor 1.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "requerido")
	}
	if strings.TrimSpace(in.BaseUnitID) == "" {
		return nil, domain.Invalid("base_unit_id", "requerido")
	}

	now := time.Now()
	product := &entity.Product{
		ID:         uuid.New().String(),
		Name:       name,
		CategoryID: in.CategoryID,
		SupplierID: in.SupplierID,
		BaseUnitID: in.BaseUnitID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rows := make([]*entity.UnitConversion, 0, len(in.Conversions)+1)
	rows = append(rows, newConversion(product, in.BaseUnitID, one, in.BasePrice, now))
	for _, c := range in.Conversions {
		rows = append(rows, newConversion(product, c.UnitID, c.Factor, c.Price, now))
	}
	if err := domaininv.ValidateConversionRows(product.BaseUnitID, rows); err != nil {
		return nil, err
	}

	err := inventory.Atomic(ctx, uc.txRunner, uc.log, "create_product", func(repos repository.Repositories) error {
		if product.SupplierID != "" {
			s, err := repos.Suppliers.GetByID(ctx, product.SupplierID)
			if err != nil {
				return err
			}
			if s == nil {
				return domain.NotFound("proveedor", product.SupplierID)
			}
		}
		for _, r := range rows {
			u, err := repos.Units.GetByID(ctx, r.OriginUnitID)
			if err != nil {
				return err
			}
			if u == nil {
				return domain.NotFound("unidad", r.OriginUnitID)
			}
		}
		if err := repos.Products.Create(ctx, product); err != nil {
			return err
		}
		for _, r := range rows {
			if err := repos.Conversions.Create(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toProductResponse(product, rows), nil
}

// GetByID devuelve el producto con todas sus filas de conversión.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NotFound("producto", id)
	}
	rows, err := uc.repos.Conversions.ListByProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product, rows), nil
}

// List lista productos con paginación (sin conversiones).
func (uc *ProductUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repos.Products.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p, nil))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// AddConversion agrega una unidad secundaria al producto.
// Si la unidad ya tuvo conversión se reactiva con el nuevo precio; el factor no puede cambiar.
func (uc *ProductUseCase) AddConversion(ctx context.Context, productID string, in dto.ConversionInput) (*dto.ConversionResponse, error) {
	switch {
	case strings.TrimSpace(in.UnitID) == "":
		return nil, domain.Invalid("unit_id", "requerido")
	case !in.Factor.GreaterThan(decimal.Zero):
		return nil, domain.Invalid("factor", "debe ser mayor que cero")
	case in.Factor.Equal(one):
		return nil, domain.Invalid("factor", "solo la unidad base puede tener factor 1")
	case in.Price.LessThan(decimal.Zero):
		return nil, domain.Invalid("price", "no puede ser negativo")
	}

	var conv *entity.UnitConversion
	err := inventory.Atomic(ctx, uc.txRunner, uc.log, "add_conversion", func(repos repository.Repositories) error {
		product, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NotFound("producto", productID)
		}
		unit, err := repos.Units.GetByID(ctx, in.UnitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return domain.NotFound("unidad", in.UnitID)
		}
		now := time.Now()
		existing, err := repos.Conversions.GetByProductAndUnit(ctx, productID, in.UnitID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsBase() {
				return domain.Invalid("unit_id", "es la unidad base del producto")
			}
			if !existing.Factor.Equal(in.Factor) {
				return domain.Invalid("factor", "el factor de una unidad existente no puede cambiar")
			}
			existing.Price = in.Price
			existing.Active = true
			existing.UpdatedAt = now
			conv = existing
			return repos.Conversions.Update(ctx, existing)
		}
		conv = newConversion(product, in.UnitID, in.Factor, in.Price, now)
		return repos.Conversions.Create(ctx, conv)
	})
	if err != nil {
		return nil, err
	}
	r := toConversionResponse(conv)
	return &r, nil
}

// DeactivateConversion desactiva la unidad secundaria. La fila base no se puede desactivar.
func (uc *ProductUseCase) DeactivateConversion(ctx context.Context, productID, unitID string) error {
	return inventory.Atomic(ctx, uc.txRunner, uc.log, "deactivate_conversion", func(repos repository.Repositories) error {
		conv, err := repos.Conversions.GetByProductAndUnit(ctx, productID, unitID)
		if err != nil {
			return err
		}
		if conv == nil || !conv.Active {
			return domain.NotFound("conversión", productID+"/"+unitID)
		}
		if conv.IsBase() {
			return &domain.ConfigurationError{
				ProductID: productID, UnitID: unitID, Reason: "la conversión base no se puede desactivar",
			}
		}
		conv.Active = false
		conv.UpdatedAt = time.Now()
		return repos.Conversions.Update(ctx, conv)
	})
}

func newConversion(p *entity.Product, unitID string, factor, price decimal.Decimal, now time.Time) *entity.UnitConversion {
	return &entity.UnitConversion{
		ID:                uuid.New().String(),
		ProductID:         p.ID,
		OriginUnitID:      unitID,
		DestinationUnitID: p.BaseUnitID,
		Factor:            factor,
		Price:             price,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func toProductResponse(p *entity.Product, rows []*entity.UnitConversion) *dto.ProductResponse {
	convs := make([]dto.ConversionResponse, 0, len(rows))
	for _, r := range rows {
		convs = append(convs, toConversionResponse(r))
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		CategoryID:  p.CategoryID,
		SupplierID:  p.SupplierID,
		BaseUnitID:  p.BaseUnitID,
		Active:      p.Active,
		Conversions: convs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toConversionResponse(c *entity.UnitConversion) dto.ConversionResponse {
	return dto.ConversionResponse{
		ID:     c.ID,
		UnitID: c.OriginUnitID,
		Factor: c.Factor,
		Price:  c.Price,
		IsBase: c.IsBase(),
		Active: c.Active,
	}
}
