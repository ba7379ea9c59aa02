package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// StockQueryUseCase proyección de stock disponible. Solo lectura, sin bloqueos.
type StockQueryUseCase struct {
	repos repository.Repositories
}

// NewStockQueryUseCase construye el caso de uso.
func NewStockQueryUseCase(repos repository.Repositories) *StockQueryUseCase {
	return &StockQueryUseCase{repos: repos}
}

// AvailableStock lista las entradas vendibles con cantidad disponible.
// Con IncludeWarehouse agrega las posiciones de bodega con lo que queda por extraer de su lote.
func (uc *StockQueryUseCase) AvailableStock(ctx context.Context, q dto.StockQuery) (*dto.StockListResponse, error) {
	rows, err := uc.repos.StockEntries.ListAvailable(ctx, repository.StockFilter{
		ProductID:        q.ProductID,
		IncludeWarehouse: q.IncludeWarehouse,
	})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	items := make([]dto.StockItemDTO, 0, len(rows))
	for _, r := range rows {
		factor := rowFactor(r)
		available := r.AvailableQuantity
		availableBase := available.Mul(factor)
		if r.Source == entity.StockSourceReceipt {
			lot, err := uc.repos.Lots.GetByID(ctx, r.LotID)
			if err != nil {
				return nil, err
			}
			if lot == nil {
				continue
			}
			extracted, err := uc.repos.Movements.SumExtractedBase(ctx, r.LotID)
			if err != nil {
				return nil, err
			}
			availableBase = lot.InitialQuantityBase.Sub(extracted)
			available = availableBase.Div(factor)
		}
		if !available.GreaterThan(decimal.Zero) {
			continue
		}
		items = append(items, dto.StockItemDTO{
			StockEntryID:      r.StockEntryID,
			ProductID:         r.ProductID,
			ProductName:       r.ProductName,
			LotID:             r.LotID,
			LotCode:           r.LotCode,
			UnitID:            r.UnitID,
			UnitName:          r.UnitName,
			Source:            r.Source,
			AvailableQuantity: available,
			AvailableBase:     availableBase,
			UnitPrice:         r.UnitPrice,
			ExpiresAt:         r.ExpiresAt,
			Expired:           r.ExpiresAt != nil && r.ExpiresAt.Before(now),
			ActiveCodes:       r.ActiveCodes,
		})
	}
	return &dto.StockListResponse{Items: items}, nil
}

// rowFactor unidades base por unidad de la entrada (QuantityBase / Quantity de creación).
func rowFactor(r repository.AvailableStockRow) decimal.Decimal {
	if !r.Quantity.GreaterThan(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return r.QuantityBase.Div(r.Quantity)
}
