package inventory_test

import (
	"context"
	"testing"

	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/application/usecase"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	domaininv "github.com/jhoicas/minimarket-api/internal/domain/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/memory"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actor = "user-test"

// fixture almacén en memoria aislado con unidades "unidad" y "caja" y un proveedor.
type fixture struct {
	ctx        context.Context
	store      *memory.Store
	repos      repository.Repositories
	products   *usecase.ProductUseCase
	ledger     *inventory.LotLedgerUseCase
	extraction *inventory.StockExtractionUseCase
	sales      *inventory.SaleConsumptionUseCase
	movements  *inventory.MovementLedgerUseCase
	stock      *inventory.StockQueryUseCase
	unitID     string
	boxID      string
	supplierID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repositories()
	log := logger.Nop()

	f := &fixture{
		ctx:        ctx,
		store:      store,
		repos:      repos,
		products:   usecase.NewProductUseCase(store, repos, log),
		ledger:     inventory.NewLotLedgerUseCase(store, repos, log),
		extraction: inventory.NewStockExtractionUseCase(store, log),
		sales:      inventory.NewSaleConsumptionUseCase(store, log),
		movements:  inventory.NewMovementLedgerUseCase(store, repos, log, decimal.Zero),
		stock:      inventory.NewStockQueryUseCase(repos),
	}

	units := usecase.NewUnitUseCase(repos.Units)
	u, err := units.Create(ctx, dto.CreateUnitRequest{Name: "unidad", Abbreviation: "und"})
	require.NoError(t, err)
	f.unitID = u.ID
	b, err := units.Create(ctx, dto.CreateUnitRequest{Name: "caja", Abbreviation: "cj"})
	require.NoError(t, err)
	f.boxID = b.ID

	s, err := usecase.NewSupplierUseCase(repos.Suppliers).Create(ctx, dto.CreateSupplierRequest{Name: "Distribuidora Andina"})
	require.NoError(t, err)
	f.supplierID = s.ID
	return f
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// createProduct producto con unidad base "unidad" (precio basePrice) y "caja" de boxFactor unidades sin precio.
func (f *fixture) createProduct(t *testing.T, name, basePrice, boxFactor string) string {
	t.Helper()
	p, err := f.products.Create(f.ctx, dto.CreateProductRequest{
		Name:       name,
		SupplierID: f.supplierID,
		BaseUnitID: f.unitID,
		BasePrice:  d(basePrice),
		Conversions: []dto.ConversionInput{
			{UnitID: f.boxID, Factor: d(boxFactor), Price: decimal.Zero},
		},
	})
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) purchase(t *testing.T, productID, unitID, qty, price string) *dto.RecordPurchaseResponse {
	t.Helper()
	res, err := f.ledger.RecordPurchase(f.ctx, actor, dto.RecordPurchaseRequest{
		SupplierID: f.supplierID,
		Lines: []dto.PurchaseLineRequest{
			{ProductID: productID, UnitID: unitID, Quantity: d(qty), UnitPrice: d(price)},
		},
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) extract(t *testing.T, lotID, unitID, qty string, codes ...string) *dto.ExtractStockResponse {
	t.Helper()
	res, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: unitID, Quantity: d(qty), IdentityCodes: codes}},
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) entry(t *testing.T, id string) *entity.StockEntry {
	t.Helper()
	e, err := f.repos.StockEntries.GetByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

// assertLedgerConsistent comprueba el estado derivado del lote contra las sumas crudas del kardex
// y las entradas extraídas, y que ninguna entrada quede con disponible negativo.
func (f *fixture) assertLedgerConsistent(t *testing.T, lotID string) {
	t.Helper()
	lot, err := f.repos.Lots.GetByID(f.ctx, lotID)
	require.NoError(t, err)
	require.NotNil(t, lot)

	records, err := f.repos.Movements.List(f.ctx, repository.MovementFilter{LotID: lotID})
	require.NoError(t, err)
	fromLedger := domaininv.ExtractedFromMovements(lotID, records)

	entries, err := f.repos.StockEntries.ListByLot(f.ctx, lotID)
	require.NoError(t, err)
	fromEntries := decimal.Zero
	for _, e := range entries {
		assert.False(t, e.AvailableQuantity.IsNegative(), "entrada %s con disponible negativo", e.ID)
		if e.Source == entity.StockSourceExtraction {
			fromEntries = fromEntries.Add(e.QuantityBase)
		}
	}

	state, err := f.ledger.LotStatus(f.ctx, lotID)
	require.NoError(t, err)
	assert.True(t, state.ExtractedBase.Equal(fromLedger), "extraído %s vs kardex %s", state.ExtractedBase, fromLedger)
	assert.True(t, fromEntries.Equal(fromLedger), "entradas %s vs kardex %s", fromEntries, fromLedger)
	assert.True(t, fromLedger.LessThanOrEqual(lot.InitialQuantityBase))
	assert.True(t, state.AvailableBase.Equal(lot.InitialQuantityBase.Sub(fromLedger)))
}
