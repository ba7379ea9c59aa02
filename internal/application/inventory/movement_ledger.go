package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultMovementLimit = 100
	maxMovementLimit     = 500
)

// MovementLedgerUseCase ajustes manuales y consulta del kardex con marcas de anomalía.
type MovementLedgerUseCase struct {
	txRunner  TxRunner
	repos     repository.Repositories
	log       *logger.Logger
	threshold decimal.Decimal
}

// NewMovementLedgerUseCase construye el caso de uso. threshold <= 0 usa el umbral por defecto (50 unidades base).
func NewMovementLedgerUseCase(txRunner TxRunner, repos repository.Repositories, log *logger.Logger, threshold decimal.Decimal) *MovementLedgerUseCase {
	if !threshold.GreaterThan(decimal.Zero) {
		threshold = inventory.DefaultAdjustmentThreshold
	}
	return &MovementLedgerUseCase{
		txRunner:  txRunner,
		repos:     repos,
		log:       log.Named("movement_ledger"),
		threshold: threshold,
	}
}

// RegisterAdjustment corrige la cantidad disponible de una entrada vendible.
// Quantity lleva signo y va en la unidad de la entrada. El resultado debe quedar entre las
// unidades con código activo y la cantidad extraída originalmente.
func (uc *MovementLedgerUseCase) RegisterAdjustment(ctx context.Context, userID string, in dto.AdjustmentRequest) (*dto.AdjustmentResponse, error) {
	note := strings.TrimSpace(in.Note)
	switch {
	case strings.TrimSpace(in.StockEntryID) == "":
		return nil, domain.Invalid("stock_entry_id", "requerido")
	case in.Quantity.IsZero():
		return nil, domain.Invalid("quantity", "no puede ser cero")
	case note == "":
		return nil, domain.Invalid("note", "el ajuste requiere una justificación")
	}
	now := time.Now()

	var (
		mov   *entity.MovementRecord
		avail decimal.Decimal
	)
	err := Atomic(ctx, uc.txRunner, uc.log, "register_adjustment", func(repos repository.Repositories) error {
		entry, err := repos.StockEntries.GetForUpdate(ctx, in.StockEntryID)
		if err != nil {
			return err
		}
		if entry == nil || !entry.IsSellable() {
			return domain.NotFound("entrada de stock", in.StockEntryID)
		}
		active, err := repos.IdentityCodes.CountActiveByStockEntry(ctx, entry.ID)
		if err != nil {
			return err
		}
		coded := decimal.NewFromInt(int64(active))
		next := entry.AvailableQuantity.Add(in.Quantity)
		if next.LessThan(coded) {
			return &domain.InsufficientStockError{
				StockEntryID: entry.ID,
				Available:    entry.AvailableQuantity.Sub(coded),
				Requested:    in.Quantity.Neg(),
			}
		}
		if next.GreaterThan(entry.Quantity) {
			return domain.Invalid("quantity", "el ajuste supera la cantidad extraída")
		}
		entry.AvailableQuantity = next
		entry.UpdatedAt = now
		if err := repos.StockEntries.Update(ctx, entry); err != nil {
			return err
		}
		mov = &entity.MovementRecord{
			ID:            uuid.New().String(),
			Kind:          entity.MovementKindAdjustment,
			ProductID:     entry.ProductID,
			LotID:         entry.LotID,
			StockEntryID:  entry.ID,
			UnitID:        entry.UnitID,
			Quantity:      in.Quantity,
			QuantityBase:  in.Quantity.Mul(entryFactor(entry)),
			ReferenceID:   uuid.New().String(),
			ReferenceKind: entity.ReferenceAdjustment,
			Note:          note,
			CreatedAt:     now,
			CreatedBy:     userID,
		}
		avail = next
		return repos.Movements.Append(ctx, mov)
	})
	if err != nil {
		return nil, err
	}

	reasons := inventory.AnomalyReasons(mov, uc.threshold)
	if len(reasons) > 0 {
		uc.log.Warn().
			Str("movement_id", mov.ID).
			Str("stock_entry_id", mov.StockEntryID).
			Str("quantity_base", mov.QuantityBase.String()).
			Strs("anomalies", reasons).
			Msg("ajuste marcado como anómalo")
	}
	return &dto.AdjustmentResponse{
		MovementID:        mov.ID,
		StockEntryID:      mov.StockEntryID,
		AvailableQuantity: avail,
		Anomalies:         reasons,
	}, nil
}

// History devuelve el kardex filtrado con las anomalías de cada registro. Solo lectura.
func (uc *MovementLedgerUseCase) History(ctx context.Context, q dto.MovementQuery) (*dto.MovementListResponse, error) {
	filter := repository.MovementFilter{
		ProductID: q.ProductID,
		LotID:     q.LotID,
		Kind:      strings.ToUpper(strings.TrimSpace(q.Kind)),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	switch filter.Kind {
	case "", entity.MovementKindReceipt, entity.MovementKindExit, entity.MovementKindAdjustment:
	default:
		return nil, domain.Invalid("kind", "tipo de movimiento desconocido")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultMovementLimit
	}
	if filter.Limit > maxMovementLimit {
		filter.Limit = maxMovementLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if q.From != "" {
		from, err := time.Parse(dateLayout, q.From)
		if err != nil {
			return nil, domain.Invalid("from", "formato esperado YYYY-MM-DD")
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(dateLayout, q.To)
		if err != nil {
			return nil, domain.Invalid("to", "formato esperado YYYY-MM-DD")
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.Invalid("from", "posterior a to")
	}

	records, err := uc.repos.Movements.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	res := &dto.MovementListResponse{
		Items: make([]dto.MovementDTO, 0, len(records)),
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset},
	}
	for _, r := range records {
		reasons := inventory.AnomalyReasons(r, uc.threshold)
		if len(reasons) > 0 {
			res.AnomalyCount++
		}
		res.Items = append(res.Items, dto.MovementDTO{
			ID:            r.ID,
			Kind:          r.Kind,
			ProductID:     r.ProductID,
			LotID:         r.LotID,
			StockEntryID:  r.StockEntryID,
			UnitID:        r.UnitID,
			Quantity:      r.Quantity,
			QuantityBase:  r.QuantityBase,
			ReferenceID:   r.ReferenceID,
			ReferenceKind: r.ReferenceKind,
			Note:          r.Note,
			CreatedAt:     r.CreatedAt,
			CreatedBy:     r.CreatedBy,
			Anomalies:     reasons,
		})
	}
	return res, nil
}

// ScanAnomalies evalúa las reglas de anomalía sobre una ventana del kardex.
func (uc *MovementLedgerUseCase) ScanAnomalies(ctx context.Context, filter repository.MovementFilter) ([]inventory.Anomaly, error) {
	records, err := uc.repos.Movements.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return inventory.ScanAnomalies(records, uc.threshold), nil
}
