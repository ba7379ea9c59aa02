package inventory

import (
	"context"
	"fmt"
	"sort"
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

// SaleConsumptionUseCase descuenta entradas vendibles al vender, por código de identidad o a granel.
type SaleConsumptionUseCase struct {
	txRunner TxRunner
	log      *logger.Logger
}

// NewSaleConsumptionUseCase construye el caso de uso.
func NewSaleConsumptionUseCase(txRunner TxRunner, log *logger.Logger) *SaleConsumptionUseCase {
	return &SaleConsumptionUseCase{txRunner: txRunner, log: log.Named("sale")}
}

// saleLine ítem resuelto contra su entrada bloqueada.
type saleLine struct {
	entry    *entity.StockEntry
	code     *entity.IdentityCode
	qty      decimal.Decimal
	qtyBase  decimal.Decimal
	price    decimal.Decimal
	discount decimal.Decimal
	subtotal decimal.Decimal
	total    decimal.Decimal
}

// saleBatch estado de la venta en curso dentro de la transacción.
type saleBatch struct {
	entries      map[string]*entity.StockEntry // entradas ya bloqueadas
	pendingCodes map[string]int                // códigos por consumir en esta venta, por entrada
	usedCodes    map[string]struct{}
}

// Sell registra la venta completa o nada.
// Cada entrada tocada se bloquea (SELECT FOR UPDATE); su cantidad disponible nunca queda negativa.
// Un ítem con código descuenta exactamente una unidad y desactiva el código.
// Un ítem a granel solo puede tomar unidades sin código.
func (uc *SaleConsumptionUseCase) Sell(ctx context.Context, userID string, in dto.SellRequest) (*dto.SellResponse, error) {
	if err := validateSale(in); err != nil {
		return nil, err
	}
	now := time.Now()

	var out *dto.SellResponse
	err := Atomic(ctx, uc.txRunner, uc.log, "sell", func(repos repository.Repositories) error {
		batch := &saleBatch{
			entries:      make(map[string]*entity.StockEntry),
			pendingCodes: make(map[string]int),
			usedCodes:    make(map[string]struct{}),
		}
		if err := batch.lockInOrder(ctx, repos, in.Items); err != nil {
			return err
		}
		lines := make([]saleLine, 0, len(in.Items))
		total := decimal.Zero
		for i, item := range in.Items {
			line, err := uc.resolveItem(ctx, repos, batch, i, item, now)
			if err != nil {
				return err
			}
			total = total.Add(line.total)
			lines = append(lines, *line)
		}

		seq, err := repos.Sales.NextNumber(ctx)
		if err != nil {
			return err
		}
		sale := &entity.Sale{
			ID:        uuid.New().String(),
			Number:    fmt.Sprintf("V-%06d", seq),
			Date:      now,
			Total:     total,
			CreatedAt: now,
			CreatedBy: userID,
		}
		if err := repos.Sales.Create(ctx, sale); err != nil {
			return err
		}

		for _, line := range lines {
			detail := &entity.SaleDetail{
				ID:           uuid.New().String(),
				SaleID:       sale.ID,
				StockEntryID: line.entry.ID,
				ProductID:    line.entry.ProductID,
				UnitID:       line.entry.UnitID,
				Quantity:     line.qty,
				QuantityBase: line.qtyBase,
				UnitPrice:    line.price,
				Discount:     line.discount,
				Subtotal:     line.subtotal,
				Total:        line.total,
				CreatedAt:    now,
			}
			if line.code != nil {
				detail.IdentityCodeID = line.code.ID
			}
			if err := repos.Sales.CreateDetail(ctx, detail); err != nil {
				return err
			}
			if line.code != nil {
				if err := repos.IdentityCodes.Consume(ctx, line.code.ID, detail.ID, now); err != nil {
					return err
				}
			}
			mov := &entity.MovementRecord{
				ID:            uuid.New().String(),
				Kind:          entity.MovementKindExit,
				ProductID:     line.entry.ProductID,
				LotID:         line.entry.LotID,
				StockEntryID:  line.entry.ID,
				UnitID:        line.entry.UnitID,
				Quantity:      line.qty,
				QuantityBase:  line.qtyBase,
				ReferenceID:   sale.ID,
				ReferenceKind: entity.ReferenceSale,
				Note:          sale.Number,
				CreatedAt:     now,
				CreatedBy:     userID,
			}
			if err := repos.Movements.Append(ctx, mov); err != nil {
				return err
			}
		}

		out = &dto.SellResponse{
			SaleID:           sale.ID,
			SaleNumber:       sale.Number,
			Total:            sale.Total,
			EntriesUpdated:   len(batch.entries),
			MovementsCreated: len(lines),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("sale_id", out.SaleID).
		Str("number", out.SaleNumber).
		Str("total", out.Total.StringFixed(2)).
		Msg("venta registrada")
	return out, nil
}

// resolveItem bloquea la entrada del ítem, verifica disponibilidad y la descuenta.
func (uc *SaleConsumptionUseCase) resolveItem(
	ctx context.Context,
	repos repository.Repositories,
	batch *saleBatch,
	idx int,
	item dto.SaleItemRequest,
	now time.Time,
) (*saleLine, error) {
	code := strings.TrimSpace(item.IdentityCode)
	line := &saleLine{discount: item.Discount}

	if code != "" {
		if _, used := batch.usedCodes[code]; used {
			return nil, domain.NotFound("código de identidad", code)
		}
		ic, err := repos.IdentityCodes.GetActiveByCodeForUpdate(ctx, code)
		if err != nil {
			return nil, err
		}
		if ic == nil || (item.StockEntryID != "" && ic.StockEntryID != item.StockEntryID) {
			return nil, domain.NotFound("código de identidad", code)
		}
		entry, err := batch.lockEntry(ctx, repos, ic.StockEntryID)
		if err != nil {
			return nil, err
		}
		line.qty = decimal.NewFromInt(1)
		if entry.AvailableQuantity.LessThan(line.qty) {
			return nil, &domain.InsufficientStockError{
				StockEntryID: entry.ID, Available: entry.AvailableQuantity, Requested: line.qty,
			}
		}
		batch.usedCodes[code] = struct{}{}
		batch.pendingCodes[entry.ID]++
		line.entry = entry
		line.code = ic
	} else {
		entry, err := batch.lockEntry(ctx, repos, item.StockEntryID)
		if err != nil {
			return nil, err
		}
		active, err := repos.IdentityCodes.CountActiveByStockEntry(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
		coded := decimal.NewFromInt(int64(active - batch.pendingCodes[entry.ID]))
		uncoded := entry.AvailableQuantity.Sub(coded)
		if uncoded.LessThan(decimal.Zero) {
			uncoded = decimal.Zero
		}
		if item.Quantity.GreaterThan(uncoded) {
			return nil, &domain.InsufficientStockError{
				StockEntryID: entry.ID, Available: uncoded, Requested: item.Quantity,
			}
		}
		line.qty = item.Quantity
		line.entry = entry
	}

	entry := line.entry
	line.qtyBase = line.qty.Mul(entryFactor(entry))
	line.price = entry.UnitPrice
	if item.UnitPrice != nil {
		line.price = *item.UnitPrice
	}
	line.subtotal = line.qty.Mul(line.price)
	if line.discount.GreaterThan(line.subtotal) {
		return nil, domain.Invalid(fmt.Sprintf("items[%d].discount", idx), "supera el subtotal")
	}
	line.total = line.subtotal.Sub(line.discount)

	entry.AvailableQuantity = entry.AvailableQuantity.Sub(line.qty)
	entry.UpdatedAt = now
	if err := repos.StockEntries.Update(ctx, entry); err != nil {
		return nil, err
	}
	return line, nil
}

// lockEntry bloquea la entrada una sola vez por venta y exige que sea vendible.
func (b *saleBatch) lockEntry(ctx context.Context, repos repository.Repositories, id string) (*entity.StockEntry, error) {
	if e, ok := b.entries[id]; ok {
		return e, nil
	}
	entry, err := repos.StockEntries.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil || !entry.IsSellable() {
		return nil, domain.NotFound("entrada de stock", id)
	}
	b.entries[id] = entry
	return entry, nil
}

// lockInOrder bloquea todas las entradas de la venta en orden de ID antes de resolver los ítems.
// Dos ventas sobre las mismas entradas esperan una a la otra en vez de bloquearse mutuamente.
// La entrada de un código se obtiene sin bloquear; los códigos se bloquean después, bajo su entrada.
func (b *saleBatch) lockInOrder(ctx context.Context, repos repository.Repositories, items []dto.SaleItemRequest) error {
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		if code := strings.TrimSpace(item.IdentityCode); code != "" {
			ic, err := repos.IdentityCodes.GetActiveByCode(ctx, code)
			if err != nil {
				return err
			}
			if ic != nil {
				ids[ic.StockEntryID] = struct{}{}
			}
			continue
		}
		ids[item.StockEntryID] = struct{}{}
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	for _, id := range sorted {
		if _, err := b.lockEntry(ctx, repos, id); err != nil {
			return err
		}
	}
	return nil
}

// entryFactor unidades base por unidad de la entrada, fijado al momento de la extracción.
func entryFactor(e *entity.StockEntry) decimal.Decimal {
	if !e.Quantity.GreaterThan(decimal.Zero) {
		return decimal.NewFromInt(1)
	}
	return e.QuantityBase.Div(e.Quantity)
}

func validateSale(in dto.SellRequest) error {
	if len(in.Items) == 0 {
		return domain.Invalid("items", "la venta necesita al menos un ítem")
	}
	for i, it := range in.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		code := strings.TrimSpace(it.IdentityCode)
		switch {
		case code == "" && strings.TrimSpace(it.StockEntryID) == "":
			return domain.Invalid(field("stock_entry_id"), "se requiere la entrada o el código de identidad")
		case code == "" && !it.Quantity.GreaterThan(decimal.Zero):
			return domain.Invalid(field("quantity"), "debe ser mayor que cero")
		case code != "" && !it.Quantity.IsZero() && !it.Quantity.Equal(decimal.NewFromInt(1)):
			return domain.Invalid(field("quantity"), "un código de identidad representa una sola unidad")
		case it.UnitPrice != nil && it.UnitPrice.LessThan(decimal.Zero):
			return domain.Invalid(field("unit_price"), "no puede ser negativo")
		case it.Discount.LessThan(decimal.Zero):
			return domain.Invalid(field("discount"), "no puede ser negativo")
		}
	}
	return nil
}

// DeactivateStockEntry retira una entrada vendible de la venta.
// Sus códigos activos se liberan sin marcarse como consumidos y pueden volver en otra entrega.
func (uc *SaleConsumptionUseCase) DeactivateStockEntry(ctx context.Context, userID, entryID string) error {
	var released int
	err := Atomic(ctx, uc.txRunner, uc.log, "deactivate_stock_entry", func(repos repository.Repositories) error {
		entry, err := repos.StockEntries.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil || !entry.Active {
			return domain.NotFound("entrada de stock", entryID)
		}
		entry.Active = false
		entry.UpdatedAt = time.Now()
		if err := repos.StockEntries.Update(ctx, entry); err != nil {
			return err
		}
		released, err = repos.IdentityCodes.ReleaseByStockEntry(ctx, entry.ID)
		return err
	})
	if err != nil {
		return err
	}
	uc.log.Info().
		Str("stock_entry_id", entryID).
		Str("user_id", userID).
		Int("codes_released", released).
		Msg("entrada de stock desactivada")
	return nil
}
