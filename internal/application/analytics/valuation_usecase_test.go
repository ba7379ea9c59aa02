package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/minimarket-api/internal/application/analytics"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/application/usecase"
	"github.com/jhoicas/minimarket-api/internal/domain"
	domaininv "github.com/jhoicas/minimarket-api/internal/domain/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/memory"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actor = "user-test"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	ctx        context.Context
	repos      repository.Repositories
	ledger     *inventory.LotLedgerUseCase
	extraction *inventory.StockExtractionUseCase
	sales      *inventory.SaleConsumptionUseCase
	valuation  *analytics.ValuationUseCase
	unitID     string
	boxID      string
	productID  string
	supplierID string
}

// newEnv producto con unidad base y caja de 12, sin compras.
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	log := logger.Nop()

	units := usecase.NewUnitUseCase(repos.Units)
	u, err := units.Create(ctx, dto.CreateUnitRequest{Name: "unidad", Abbreviation: "und"})
	require.NoError(t, err)
	b, err := units.Create(ctx, dto.CreateUnitRequest{Name: "caja", Abbreviation: "cj"})
	require.NoError(t, err)
	s, err := usecase.NewSupplierUseCase(repos.Suppliers).Create(ctx, dto.CreateSupplierRequest{Name: "Mayorista del Norte"})
	require.NoError(t, err)
	p, err := usecase.NewProductUseCase(store, repos, log).Create(ctx, dto.CreateProductRequest{
		Name:        "Galletas",
		SupplierID:  s.ID,
		BaseUnitID:  u.ID,
		BasePrice:   d("50"),
		Conversions: []dto.ConversionInput{{UnitID: b.ID, Factor: d("12")}},
	})
	require.NoError(t, err)

	return &env{
		ctx:        ctx,
		repos:      repos,
		ledger:     inventory.NewLotLedgerUseCase(store, repos, log),
		extraction: inventory.NewStockExtractionUseCase(store, log),
		sales:      inventory.NewSaleConsumptionUseCase(store, log),
		valuation:  analytics.NewValuationUseCase(repos, log),
		unitID:     u.ID,
		boxID:      b.ID,
		productID:  p.ID,
		supplierID: s.ID,
	}
}

func (e *env) buy(t *testing.T, unitID, qty, price string) string {
	t.Helper()
	res, err := e.ledger.RecordPurchase(e.ctx, actor, dto.RecordPurchaseRequest{
		SupplierID: e.supplierID,
		Lines: []dto.PurchaseLineRequest{
			{ProductID: e.productID, UnitID: unitID, Quantity: d(qty), UnitPrice: d(price)},
		},
	})
	require.NoError(t, err)
	return res.Lots[0].LotID
}

// ──────────────────────────────────────────────────────────────
// Costo promedio ponderado
// ──────────────────────────────────────────────────────────────

func TestWeightedAverageCost_CompraEnCajas(t *testing.T) {
	e := newEnv(t)
	e.buy(t, e.boxID, "5", "400")

	avg, err := e.valuation.WeightedAverageCost(e.ctx, e.productID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "33.33", avg.Round(2).String())

	res, err := e.valuation.GetWeightedCost(e.ctx, dto.WeightedCostRequest{ProductID: e.productID})
	require.NoError(t, err)
	assert.Equal(t, "33.3333", res.AverageCostBase.String())
	assert.Equal(t, time.Now().Format("2006-01-02"), res.AsOf)
}

func TestWeightedAverageCost_DosComprasExacto(t *testing.T) {
	e := newEnv(t)
	e.buy(t, e.unitID, "10", "5")
	e.buy(t, e.unitID, "10", "7")

	first, err := e.valuation.WeightedAverageCost(e.ctx, e.productID, time.Now())
	require.NoError(t, err)
	assert.True(t, first.Equal(d("6")), "obtenido %s", first)

	// Misma historia, mismo resultado
	again, err := e.valuation.WeightedAverageCost(e.ctx, e.productID, time.Now())
	require.NoError(t, err)
	assert.True(t, first.Equal(again))
}

func TestWeightedAverageCost_SinComprasOAntesDeEllas(t *testing.T) {
	e := newEnv(t)
	avg, err := e.valuation.WeightedAverageCost(e.ctx, e.productID, time.Now())
	require.NoError(t, err)
	assert.True(t, avg.IsZero())

	e.buy(t, e.unitID, "10", "5")
	avg, err = e.valuation.WeightedAverageCost(e.ctx, e.productID, time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.True(t, avg.IsZero(), "las compras posteriores a asOf no cuentan")

	_, err = e.valuation.WeightedAverageCost(e.ctx, "no-existe", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.valuation.GetWeightedCost(e.ctx, dto.WeightedCostRequest{ProductID: e.productID, AsOf: "ayer"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────
// Rentabilidad y recuperación
// ──────────────────────────────────────────────────────────────

// sellFromFirstLot compras 10 a 5 y 10 a 7; del primer lote se extraen 5 y se venden 4 a 10.
func sellFromFirstLot(t *testing.T, e *env) (string, string) {
	t.Helper()
	lot1 := e.buy(t, e.unitID, "10", "5")
	lot2 := e.buy(t, e.unitID, "10", "7")
	price := d("10")
	ext, err := e.extraction.ExtractStock(e.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lot1, UnitID: e.unitID, Quantity: d("5"), Price: &price}},
	})
	require.NoError(t, err)
	_, err = e.sales.Sell(e.ctx, actor, dto.SellRequest{
		Items: []dto.SaleItemRequest{{StockEntryID: ext.StockEntryIDs[0], Quantity: d("4")}},
	})
	require.NoError(t, err)
	return lot1, lot2
}

func TestProfitabilityReport_MargenPorProducto(t *testing.T) {
	e := newEnv(t)
	sellFromFirstLot(t, e)

	lines, err := e.valuation.SaleLineCOGS(e.ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].AverageCostBase.Equal(d("6")))
	assert.True(t, lines[0].COGS.Equal(d("24")))

	report, err := e.valuation.ProfitabilityReport(e.ctx, dto.PeriodRequest{})
	require.NoError(t, err)
	require.Len(t, report.Products, 1)
	p := report.Products[0]
	assert.Equal(t, "Galletas", p.ProductName)
	assert.True(t, p.UnitsSoldBase.Equal(d("4")))
	assert.True(t, p.Revenue.Equal(d("40")))
	assert.True(t, p.COGS.Equal(d("24")))
	assert.True(t, p.GrossMargin.Equal(d("16")))
	assert.True(t, p.MarginPct.Equal(d("40")))
	assert.True(t, report.TotalMargin.Equal(d("16")))

	_, err = e.valuation.ProfitabilityReport(e.ctx, dto.PeriodRequest{StartDate: "2026-10-20", EndDate: "2026-10-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLotRecoveryReport_InversionContraVentas(t *testing.T) {
	e := newEnv(t)
	lot1, lot2 := sellFromFirstLot(t, e)

	report, err := e.valuation.LotRecoveryReport(e.ctx, e.productID)
	require.NoError(t, err)
	require.Len(t, report.Lots, 2)

	first, second := report.Lots[0], report.Lots[1]
	assert.Equal(t, lot1, first.LotID)
	assert.True(t, first.Investment.Equal(d("50")))
	assert.True(t, first.Revenue.Equal(d("40")))
	assert.True(t, first.RecoveryPct.Equal(d("80")))
	assert.True(t, first.AvailableBase.Equal(d("5")))
	assert.Equal(t, domaininv.LotStatusPartial, first.Status)

	assert.Equal(t, lot2, second.LotID)
	assert.True(t, second.Revenue.IsZero())
	assert.Equal(t, domaininv.LotStatusAvailable, second.Status)

	assert.True(t, report.TotalInvestment.Equal(d("120")))
	assert.Equal(t, "33.33", report.RecoveryPct.String())
}

// failingAnalytics deja pasar las líneas de venta y falla en la recuperación por lote.
type failingAnalytics struct {
	repository.AnalyticsRepository
}

func (failingAnalytics) ListLotInvestments(context.Context, string) ([]repository.LotInvestmentRow, error) {
	return nil, errors.New("consulta cancelada")
}

func TestSummary_UnReporteFallidoNoTumbaAlOtro(t *testing.T) {
	e := newEnv(t)
	sellFromFirstLot(t, e)

	repos := e.repos
	repos.Analytics = failingAnalytics{AnalyticsRepository: e.repos.Analytics}
	uc := analytics.NewValuationUseCase(repos, logger.Nop())

	summary, err := uc.Summary(e.ctx, dto.PeriodRequest{}, "")
	require.NoError(t, err)
	require.NotNil(t, summary.Profitability)
	assert.True(t, summary.Profitability.TotalRevenue.Equal(d("40")))
	assert.Nil(t, summary.LotRecovery)
	assert.Contains(t, summary.Errors["lot_recovery"], "consulta cancelada")

	ok, err := e.valuation.Summary(e.ctx, dto.PeriodRequest{}, "")
	require.NoError(t, err)
	assert.Empty(t, ok.Errors)
	assert.NotNil(t, ok.LotRecovery)

	_, err = e.valuation.Summary(e.ctx, dto.PeriodRequest{StartDate: "x"}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
