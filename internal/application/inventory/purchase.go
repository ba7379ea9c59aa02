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

// LotLedgerUseCase registra compras: cabecera, líneas, lotes, movimientos RECEIPT y posición de bodega,
// todo dentro de una misma transacción.
type LotLedgerUseCase struct {
	txRunner TxRunner
	repos    repository.Repositories
	log      *logger.Logger
}

// NewLotLedgerUseCase construye el caso de uso. repos son los repositorios fuera de transacción (lecturas).
func NewLotLedgerUseCase(txRunner TxRunner, repos repository.Repositories, log *logger.Logger) *LotLedgerUseCase {
	return &LotLedgerUseCase{txRunner: txRunner, repos: repos, log: log.Named("lot_ledger")}
}

// purchaseLine línea validada con sus montos ya calculados.
type purchaseLine struct {
	in       dto.PurchaseLineRequest
	subtotal decimal.Decimal
	total    decimal.Decimal
}

// RecordPurchase registra la compra completa o nada.
// Por cada línea: PurchaseDetail, Lot (cantidad inicial en base), movimiento RECEIPT y la entrada
// de stock de bodega (se incrementa si ya existe una activa para producto/lote/unidad).
func (uc *LotLedgerUseCase) RecordPurchase(ctx context.Context, userID string, in dto.RecordPurchaseRequest) (*dto.RecordPurchaseResponse, error) {
	lines, total, err := validatePurchase(in)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	date := now
	if in.Date != nil {
		date = *in.Date
	}

	var out *dto.RecordPurchaseResponse
	err = Atomic(ctx, uc.txRunner, uc.log, "record_purchase", func(repos repository.Repositories) error {
		supplier, err := repos.Suppliers.GetByID(ctx, in.SupplierID)
		if err != nil {
			return err
		}
		if supplier == nil || !supplier.Active {
			return domain.NotFound("proveedor", in.SupplierID)
		}

		seq, err := repos.Purchases.NextNumber(ctx)
		if err != nil {
			return err
		}
		purchase := &entity.Purchase{
			ID:         uuid.New().String(),
			Number:     fmt.Sprintf("C-%06d", seq),
			SupplierID: supplier.ID,
			Date:       date,
			Total:      total,
			Active:     true,
			CreatedAt:  now,
			CreatedBy:  userID,
		}
		if err := repos.Purchases.Create(ctx, purchase); err != nil {
			return err
		}

		registry := NewUnitConversionRegistry(repos.Conversions)
		res := &dto.RecordPurchaseResponse{
			PurchaseID:     purchase.ID,
			PurchaseNumber: purchase.Number,
			Total:          purchase.Total,
			Lots:           make([]dto.LotCreatedDTO, 0, len(lines)),
		}
		for i, line := range lines {
			created, err := uc.intakeLine(ctx, repos, registry, purchase, i, line, userID, now)
			if err != nil {
				return err
			}
			res.Lots = append(res.Lots, *created)
			res.LotsCreated++
			res.MovementsCreated++
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("purchase_id", out.PurchaseID).
		Str("number", out.PurchaseNumber).
		Int("lots", out.LotsCreated).
		Msg("compra registrada")
	return out, nil
}

func (uc *LotLedgerUseCase) intakeLine(
	ctx context.Context,
	repos repository.Repositories,
	registry *UnitConversionRegistry,
	purchase *entity.Purchase,
	idx int,
	line purchaseLine,
	userID string,
	now time.Time,
) (*dto.LotCreatedDTO, error) {
	product, err := repos.Products.GetByID(ctx, line.in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Active {
		return nil, domain.NotFound("producto", line.in.ProductID)
	}
	qtyBase, err := registry.ToBase(ctx, product.ID, line.in.UnitID, line.in.Quantity)
	if err != nil {
		return nil, err
	}

	detail := &entity.PurchaseDetail{
		ID:         uuid.New().String(),
		PurchaseID: purchase.ID,
		ProductID:  product.ID,
		UnitID:     line.in.UnitID,
		Quantity:   line.in.Quantity,
		UnitPrice:  line.in.UnitPrice,
		Discount:   line.in.Discount,
		Subtotal:   line.subtotal,
		Total:      line.total,
		Active:     true,
		CreatedAt:  now,
	}
	if err := repos.Purchases.CreateDetail(ctx, detail); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(line.in.LotCode)
	if code == "" {
		code = fmt.Sprintf("%s-%02d", purchase.Number, idx+1)
	}
	lot := &entity.Lot{
		ID:                  uuid.New().String(),
		ProductID:           product.ID,
		PurchaseDetailID:    detail.ID,
		Code:                code,
		ExpiresAt:           line.in.ExpiresAt,
		InitialQuantityBase: qtyBase,
		Active:              true,
		CreatedAt:           now,
		CreatedBy:           userID,
	}
	if err := repos.Lots.Create(ctx, lot); err != nil {
		return nil, err
	}

	mov := &entity.MovementRecord{
		ID:            uuid.New().String(),
		Kind:          entity.MovementKindReceipt,
		ProductID:     product.ID,
		LotID:         lot.ID,
		UnitID:        line.in.UnitID,
		Quantity:      line.in.Quantity,
		QuantityBase:  qtyBase,
		ReferenceID:   purchase.ID,
		ReferenceKind: entity.ReferencePurchase,
		Note:          purchase.Number,
		CreatedAt:     now,
		CreatedBy:     userID,
	}
	if err := repos.Movements.Append(ctx, mov); err != nil {
		return nil, err
	}

	var salePrice decimal.Decimal
	if line.in.SalePrice != nil {
		salePrice = *line.in.SalePrice
	} else if salePrice, err = registry.PriceFor(ctx, product.ID, line.in.UnitID); err != nil {
		return nil, err
	}

	entry, err := repos.StockEntries.FindActiveForUpdate(ctx, product.ID, lot.ID, line.in.UnitID, entity.StockSourceReceipt)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		entry.Quantity = entry.Quantity.Add(line.in.Quantity)
		entry.AvailableQuantity = entry.AvailableQuantity.Add(line.in.Quantity)
		entry.QuantityBase = entry.QuantityBase.Add(qtyBase)
		entry.UpdatedAt = now
		if err := repos.StockEntries.Update(ctx, entry); err != nil {
			return nil, err
		}
	} else {
		entry = &entity.StockEntry{
			ID:                uuid.New().String(),
			ProductID:         product.ID,
			LotID:             lot.ID,
			UnitID:            line.in.UnitID,
			Source:            entity.StockSourceReceipt,
			Quantity:          line.in.Quantity,
			AvailableQuantity: line.in.Quantity,
			QuantityBase:      qtyBase,
			UnitPrice:         salePrice,
			ExpiresAt:         lot.ExpiresAt,
			Active:            true,
			CreatedAt:         now,
			CreatedBy:         userID,
			UpdatedAt:         now,
		}
		if err := repos.StockEntries.Create(ctx, entry); err != nil {
			return nil, err
		}
	}

	return &dto.LotCreatedDTO{
		LotID:               lot.ID,
		Code:                lot.Code,
		ProductID:           product.ID,
		InitialQuantityBase: qtyBase,
		StockEntryID:        entry.ID,
	}, nil
}

// validatePurchase revisa la solicitud antes de abrir la transacción y calcula los montos.
func validatePurchase(in dto.RecordPurchaseRequest) ([]purchaseLine, decimal.Decimal, error) {
	if strings.TrimSpace(in.SupplierID) == "" {
		return nil, decimal.Zero, domain.Invalid("supplier_id", "requerido")
	}
	if len(in.Lines) == 0 {
		return nil, decimal.Zero, domain.Invalid("lines", "la compra necesita al menos una línea")
	}
	total := decimal.Zero
	lines := make([]purchaseLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }
		switch {
		case strings.TrimSpace(l.ProductID) == "":
			return nil, decimal.Zero, domain.Invalid(field("product_id"), "requerido")
		case strings.TrimSpace(l.UnitID) == "":
			return nil, decimal.Zero, domain.Invalid(field("unit_id"), "requerido")
		case !l.Quantity.GreaterThan(decimal.Zero):
			return nil, decimal.Zero, domain.Invalid(field("quantity"), "debe ser mayor que cero")
		case l.UnitPrice.LessThan(decimal.Zero):
			return nil, decimal.Zero, domain.Invalid(field("unit_price"), "no puede ser negativo")
		case l.Discount.LessThan(decimal.Zero):
			return nil, decimal.Zero, domain.Invalid(field("discount"), "no puede ser negativo")
		case l.SalePrice != nil && l.SalePrice.LessThan(decimal.Zero):
			return nil, decimal.Zero, domain.Invalid(field("sale_price"), "no puede ser negativo")
		}
		subtotal := l.Quantity.Mul(l.UnitPrice)
		if l.Discount.GreaterThan(subtotal) {
			return nil, decimal.Zero, domain.Invalid(field("discount"), "supera el subtotal")
		}
		lineTotal := subtotal.Sub(l.Discount)
		total = total.Add(lineTotal)
		lines = append(lines, purchaseLine{in: l, subtotal: subtotal, total: lineTotal})
	}
	return lines, total, nil
}
