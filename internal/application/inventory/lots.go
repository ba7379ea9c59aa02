package inventory

import (
	"context"

	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

// GetLot devuelve el lote con su estado derivado del kardex (nunca almacenado).
func (uc *LotLedgerUseCase) GetLot(ctx context.Context, lotID string) (*dto.LotResponse, error) {
	lot, err := uc.repos.Lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.NotFound("lote", lotID)
	}
	return lotResponse(ctx, uc.repos.Movements, lot)
}

// ListLots lista los lotes de un producto con su estado derivado.
func (uc *LotLedgerUseCase) ListLots(ctx context.Context, productID string) (*dto.LotListResponse, error) {
	if productID == "" {
		return nil, domain.Invalid("product_id", "requerido")
	}
	lots, err := uc.repos.Lots.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LotResponse, 0, len(lots))
	for _, lot := range lots {
		r, err := lotResponse(ctx, uc.repos.Movements, lot)
		if err != nil {
			return nil, err
		}
		items = append(items, *r)
	}
	return &dto.LotListResponse{Items: items}, nil
}

// LotStatus proyección {inicial, extraído, disponible, estado} del lote.
func (uc *LotLedgerUseCase) LotStatus(ctx context.Context, lotID string) (inventory.LotState, error) {
	lot, err := uc.repos.Lots.GetByID(ctx, lotID)
	if err != nil {
		return inventory.LotState{}, err
	}
	if lot == nil {
		return inventory.LotState{}, domain.NotFound("lote", lotID)
	}
	extracted, err := uc.repos.Movements.SumExtractedBase(ctx, lot.ID)
	if err != nil {
		return inventory.LotState{}, err
	}
	return inventory.DeriveLotState(lot, extracted), nil
}

// DeactivateLot desactiva el lote: ya no admite extracciones. Lo ya extraído sigue vendible.
func (uc *LotLedgerUseCase) DeactivateLot(ctx context.Context, userID, lotID string) error {
	err := Atomic(ctx, uc.txRunner, uc.log, "deactivate_lot", func(repos repository.Repositories) error {
		lot, err := repos.Lots.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		if lot == nil || !lot.Active {
			return domain.NotFound("lote", lotID)
		}
		return repos.Lots.Deactivate(ctx, lot.ID)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("lot_id", lotID).Str("user_id", userID).Msg("lote desactivado")
	return nil
}

func lotResponse(ctx context.Context, movements repository.MovementRepository, lot *entity.Lot) (*dto.LotResponse, error) {
	extracted, err := movements.SumExtractedBase(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	st := inventory.DeriveLotState(lot, extracted)
	return &dto.LotResponse{
		ID:                  lot.ID,
		ProductID:           lot.ProductID,
		PurchaseDetailID:    lot.PurchaseDetailID,
		Code:                lot.Code,
		ExpiresAt:           lot.ExpiresAt,
		InitialQuantityBase: st.InitialBase,
		ExtractedBase:       st.ExtractedBase,
		AvailableBase:       st.AvailableBase,
		Status:              st.Status,
		Active:              lot.Active,
		CreatedAt:           lot.CreatedAt,
	}, nil
}
