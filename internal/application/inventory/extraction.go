package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// StockExtractionUseCase pasa cantidad de un lote a stock vendible, opcionalmente
// asignando un código de identidad a cada unidad física.
type StockExtractionUseCase struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewStockExtractionUseCase construye el caso de uso.
func NewStockExtractionUseCase(txRunner TxRunner, log *logger.Logger) *StockExtractionUseCase {
	return &StockExtractionUseCase{txRunner: txRunner, log: log.Named("extraction")}
}

// extractionItem ítem validado con sus códigos normalizados.
type extractionItem struct {
	in    dto.ExtractionItemRequest
	codes []string
}

// ExtractStock ejecuta todo el lote de ítems en una transacción: un fallo en cualquiera revierte todos.
// Por ítem: bloquea el lote, deriva lo disponible desde el kardex, crea la entrada vendible,
// registra la salida EXIT/EXTRACTION y liga los códigos de identidad.
func (uc *StockExtractionUseCase) ExtractStock(ctx context.Context, userID string, in dto.ExtractStockRequest) (*dto.ExtractStockResponse, error) {
	items, err := validateExtraction(in)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	extractionID := uuid.New().String()

	var out *dto.ExtractStockResponse
	err = Atomic(ctx, uc.txRunner, uc.log, "extract_stock", func(repos repository.Repositories) error {
		registry := NewUnitConversionRegistry(repos.Conversions)
		res := &dto.ExtractStockResponse{
			ExtractionID:  extractionID,
			StockEntryIDs: make([]string, 0, len(items)),
		}
		for _, item := range items {
			entryID, err := uc.extractItem(ctx, repos, registry, extractionID, item, userID, now)
			if err != nil {
				return err
			}
			res.StockEntryIDs = append(res.StockEntryIDs, entryID)
			res.StockEntriesCreated++
			res.MovementsCreated++
			res.IdentityCodesCreated += len(item.codes)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("extraction_id", extractionID).
		Int("entries", out.StockEntriesCreated).
		Int("codes", out.IdentityCodesCreated).
		Msg("extracción registrada")
	return out, nil
}

func (uc *StockExtractionUseCase) extractItem(
	ctx context.Context,
	repos repository.Repositories,
	registry *UnitConversionRegistry,
	extractionID string,
	item extractionItem,
	userID string,
	now time.Time,
) (string, error) {
	// Bloquea la fila del lote (SELECT FOR UPDATE) para serializar extracciones concurrentes
	lot, err := repos.Lots.GetForUpdate(ctx, item.in.LotID)
	if err != nil {
		return "", err
	}
	if lot == nil || !lot.Active {
		return "", domain.NotFound("lote", item.in.LotID)
	}

	qtyBase, err := registry.ToBase(ctx, lot.ProductID, item.in.UnitID, item.in.Quantity)
	if err != nil {
		return "", err
	}
	extracted, err := repos.Movements.SumExtractedBase(ctx, lot.ID)
	if err != nil {
		return "", err
	}
	available := lot.InitialQuantityBase.Sub(extracted)
	if qtyBase.GreaterThan(available) {
		return "", &domain.InsufficientStockError{LotID: lot.ID, Available: available, Requested: qtyBase}
	}

	var price decimal.Decimal
	if item.in.Price != nil {
		price = *item.in.Price
	} else if price, err = registry.PriceFor(ctx, lot.ProductID, item.in.UnitID); err != nil {
		return "", err
	}

	entry := &entity.StockEntry{
		ID:                uuid.New().String(),
		ProductID:         lot.ProductID,
		LotID:             lot.ID,
		UnitID:            item.in.UnitID,
		Source:            entity.StockSourceExtraction,
		Quantity:          item.in.Quantity,
		AvailableQuantity: item.in.Quantity,
		QuantityBase:      qtyBase,
		UnitPrice:         price,
		ExpiresAt:         lot.ExpiresAt,
		Active:            true,
		CreatedAt:         now,
		CreatedBy:         userID,
		UpdatedAt:         now,
	}
	if err := repos.StockEntries.Create(ctx, entry); err != nil {
		return "", err
	}

	mov := &entity.MovementRecord{
		ID:            uuid.New().String(),
		Kind:          entity.MovementKindExit,
		ProductID:     lot.ProductID,
		LotID:         lot.ID,
		StockEntryID:  entry.ID,
		UnitID:        item.in.UnitID,
		Quantity:      item.in.Quantity,
		QuantityBase:  qtyBase,
		ReferenceID:   extractionID,
		ReferenceKind: entity.ReferenceExtraction,
		Note:          "extracción a venta del lote " + lot.Code,
		CreatedAt:     now,
		CreatedBy:     userID,
	}
	if err := repos.Movements.Append(ctx, mov); err != nil {
		return "", err
	}

	for _, code := range item.codes {
		taken, err := repos.IdentityCodes.ExistsActive(ctx, code)
		if err != nil {
			return "", err
		}
		if taken {
			return "", &domain.DuplicateIdentityCodeError{Code: code}
		}
		ic := &entity.IdentityCode{
			ID:           uuid.New().String(),
			StockEntryID: entry.ID,
			Code:         code,
			Active:       true,
			CreatedAt:    now,
		}
		if err := repos.IdentityCodes.Create(ctx, ic); err != nil {
			return "", err
		}
	}
	return entry.ID, nil
}

// validateExtraction revisa campos y códigos antes de cualquier escritura.
// Los códigos se recortan y los vacíos se ignoran; un código repetido en la solicitud es duplicado.
func validateExtraction(in dto.ExtractStockRequest) ([]extractionItem, error) {
	if len(in.Items) == 0 {
		return nil, domain.Invalid("items", "la extracción necesita al menos un ítem")
	}
	seen := make(map[string]struct{})
	items := make([]extractionItem, 0, len(in.Items))
	for i, it := range in.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		switch {
		case strings.TrimSpace(it.LotID) == "":
			return nil, domain.Invalid(field("lot_id"), "requerido")
		case strings.TrimSpace(it.UnitID) == "":
			return nil, domain.Invalid(field("unit_id"), "requerido")
		case !it.Quantity.GreaterThan(decimal.Zero):
			return nil, domain.Invalid(field("quantity"), "debe ser mayor que cero")
		case it.Price != nil && it.Price.LessThan(decimal.Zero):
			return nil, domain.Invalid(field("price"), "no puede ser negativo")
		}
		codes := make([]string, 0, len(it.IdentityCodes))
		for _, raw := range it.IdentityCodes {
			code := strings.TrimSpace(raw)
			if code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				return nil, &domain.DuplicateIdentityCodeError{Code: code}
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
		if decimal.NewFromInt(int64(len(codes))).GreaterThan(it.Quantity) {
			return nil, domain.Invalid(field("identity_codes"), "hay más códigos que unidades extraídas")
		}
		items = append(items, extractionItem{in: it, codes: codes})
	}
	return items, nil
}
