//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/minimarket-api/internal/application/analytics"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/application/usecase"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/postgres"
	"github.com/jhoicas/minimarket-api/pkg/config"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const actor = "user-it"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// startDB levanta PostgreSQL en un contenedor y aplica las migraciones embebidas.
func startDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("minimarket_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	mg, err := postgres.NewMigrator(dsn, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Close())

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

type app struct {
	ctx        context.Context
	repos      repository.Repositories
	ledger     *inventory.LotLedgerUseCase
	extraction *inventory.StockExtractionUseCase
	sales      *inventory.SaleConsumptionUseCase
	stock      *inventory.StockQueryUseCase
	valuation  *analytics.ValuationUseCase
	unitID     string
	boxID      string
	productID  string
	supplierID string
}

func newApp(t *testing.T) *app {
	t.Helper()
	pool := startDB(t)
	ctx := context.Background()
	tx := postgres.NewTxRunner(pool)
	repos := postgres.NewRepositories(pool)
	log := logger.Nop()

	units := usecase.NewUnitUseCase(repos.Units)
	u, err := units.Create(ctx, dto.CreateUnitRequest{Name: "unidad"})
	require.NoError(t, err)
	b, err := units.Create(ctx, dto.CreateUnitRequest{Name: "caja"})
	require.NoError(t, err)
	s, err := usecase.NewSupplierUseCase(repos.Suppliers).Create(ctx, dto.CreateSupplierRequest{Name: "Distribuidora Central"})
	require.NoError(t, err)
	p, err := usecase.NewProductUseCase(tx, repos, log).Create(ctx, dto.CreateProductRequest{
		Name:        "Agua 600ml",
		SupplierID:  s.ID,
		BaseUnitID:  u.ID,
		BasePrice:   d("1.5"),
		Conversions: []dto.ConversionInput{{UnitID: b.ID, Factor: d("12")}},
	})
	require.NoError(t, err)

	return &app{
		ctx:        ctx,
		repos:      repos,
		ledger:     inventory.NewLotLedgerUseCase(tx, repos, log),
		extraction: inventory.NewStockExtractionUseCase(tx, log),
		sales:      inventory.NewSaleConsumptionUseCase(tx, log),
		stock:      inventory.NewStockQueryUseCase(repos),
		valuation:  analytics.NewValuationUseCase(repos, log),
		unitID:     u.ID,
		boxID:      b.ID,
		productID:  p.ID,
		supplierID: s.ID,
	}
}

func (a *app) buy(t *testing.T, unitID, qty, price string) string {
	t.Helper()
	res, err := a.ledger.RecordPurchase(a.ctx, actor, dto.RecordPurchaseRequest{
		SupplierID: a.supplierID,
		Lines:      []dto.PurchaseLineRequest{{ProductID: a.productID, UnitID: unitID, Quantity: d(qty), UnitPrice: d(price)}},
	})
	require.NoError(t, err)
	return res.Lots[0].LotID
}

func TestPostgres_CompraExtraccionYVenta(t *testing.T) {
	a := newApp(t)

	lotID := a.buy(t, a.boxID, "5", "400")
	state, err := a.ledger.LotStatus(a.ctx, lotID)
	require.NoError(t, err)
	assert.True(t, state.InitialBase.Equal(d("60")))

	avg, err := a.valuation.WeightedAverageCost(a.ctx, a.productID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "33.33", avg.Round(2).String())

	codes := make([]string, 24)
	for i := range codes {
		codes[i] = "AG-" + decimal.NewFromInt(int64(i+1)).String()
	}
	ext, err := a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("24"), IdentityCodes: codes}},
	})
	require.NoError(t, err)
	assert.Equal(t, 24, ext.IdentityCodesCreated)

	_, err = a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("40")}},
	})
	var ierr *domain.InsufficientStockError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, ierr.Available.Equal(d("36")))
	assert.True(t, ierr.Requested.Equal(d("40")))

	_, err = a.sales.Sell(a.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{{IdentityCode: "AG-7"}}})
	require.NoError(t, err)
	_, err = a.sales.Sell(a.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{{IdentityCode: "AG-7"}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Un código duplicado revierte toda la extracción
	_, err = a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("2"), IdentityCodes: []string{"NUEVO", "AG-3"}}},
	})
	var dup *domain.DuplicateIdentityCodeError
	require.ErrorAs(t, err, &dup)
	state, err = a.ledger.LotStatus(a.ctx, lotID)
	require.NoError(t, err)
	assert.True(t, state.AvailableBase.Equal(d("36")))
}

func TestPostgres_CostoPromedioExacto(t *testing.T) {
	a := newApp(t)
	a.buy(t, a.unitID, "10", "5")
	a.buy(t, a.unitID, "10", "7")

	avg, err := a.valuation.WeightedAverageCost(a.ctx, a.productID, time.Now())
	require.NoError(t, err)
	assert.True(t, avg.Equal(d("6")), "obtenido %s", avg)
}

func TestPostgres_VentasConcurrentesUltimaUnidad(t *testing.T) {
	a := newApp(t)
	lotID := a.buy(t, a.unitID, "3", "1")
	ext, err := a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("1")}},
	})
	require.NoError(t, err)
	entryID := ext.StockEntryIDs[0]

	const workers = 4
	var (
		wg   sync.WaitGroup
		errs = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.sales.Sell(a.ctx, actor, dto.SellRequest{
				Items: []dto.SaleItemRequest{{StockEntryID: entryID, Quantity: d("1")}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)

	entry, err := a.repos.StockEntries.GetByID(a.ctx, entryID)
	require.NoError(t, err)
	assert.True(t, entry.AvailableQuantity.IsZero())
}

func TestPostgres_ExtraccionesConcurrentesNoSobregiranElLote(t *testing.T) {
	a := newApp(t)
	lotID := a.buy(t, a.unitID, "10", "1")

	const workers = 6
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
				Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("3")}},
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, ok)

	state, err := a.ledger.LotStatus(a.ctx, lotID)
	require.NoError(t, err)
	assert.True(t, state.AvailableBase.Equal(d("1")))
}

// Ventas que cruzan las mismas dos entradas en orden opuesto no deben abortar por deadlock.
func TestPostgres_VentasCruzadasNoSeBloqueanMutuamente(t *testing.T) {
	a := newApp(t)
	lotID := a.buy(t, a.unitID, "100", "1")
	ext, err := a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{Items: []dto.ExtractionItemRequest{
		{LotID: lotID, UnitID: a.unitID, Quantity: d("40")},
		{LotID: lotID, UnitID: a.unitID, Quantity: d("40")},
	}})
	require.NoError(t, err)
	first, second := ext.StockEntryIDs[0], ext.StockEntryIDs[1]

	const rounds = 20
	var (
		wg   sync.WaitGroup
		errs = make([]error, 2*rounds)
	)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, errs[2*i] = a.sales.Sell(a.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{
				{StockEntryID: first, Quantity: d("1")},
				{StockEntryID: second, Quantity: d("1")},
			}})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, errs[2*i+1] = a.sales.Sell(a.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{
				{StockEntryID: second, Quantity: d("1")},
				{StockEntryID: first, Quantity: d("1")},
			}})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	for _, id := range []string{first, second} {
		entry, err := a.repos.StockEntries.GetByID(a.ctx, id)
		require.NoError(t, err)
		assert.True(t, entry.AvailableQuantity.Equal(d("0")), "entrada %s con %s", id, entry.AvailableQuantity)
	}
}

func TestPostgres_DesactivarEntradaLiberaSusCodigos(t *testing.T) {
	a := newApp(t)
	lotID := a.buy(t, a.unitID, "5", "1")
	ext, err := a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("2"), IdentityCodes: []string{"BAR-1"}}},
	})
	require.NoError(t, err)
	entryID := ext.StockEntryIDs[0]

	require.NoError(t, a.sales.DeactivateStockEntry(a.ctx, actor, entryID))

	taken, err := a.repos.IdentityCodes.ExistsActive(a.ctx, "BAR-1")
	require.NoError(t, err)
	assert.False(t, taken)
	codes, err := a.repos.IdentityCodes.ListByStockEntry(a.ctx, entryID)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.False(t, codes[0].Active)
	assert.Nil(t, codes[0].ConsumedAt)

	again, err := a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("1"), IdentityCodes: []string{"BAR-1"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, again.IdentityCodesCreated)
}

func TestPostgres_StockDisponibleListaVendibleAntesQueBodega(t *testing.T) {
	a := newApp(t)
	lotID := a.buy(t, a.boxID, "2", "12")
	_, err := a.extraction.ExtractStock(a.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: a.unitID, Quantity: d("5")}},
	})
	require.NoError(t, err)

	res, err := a.stock.AvailableStock(a.ctx, dto.StockQuery{ProductID: a.productID, IncludeWarehouse: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, entity.StockSourceExtraction, res.Items[0].Source)
	assert.Equal(t, entity.StockSourceReceipt, res.Items[1].Source)
	assert.True(t, res.Items[1].AvailableBase.Equal(d("19")), "24 base menos 5 extraídas")
}
