package inventory_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Escenario C: un código se vende una sola vez.
func TestSell_CodigoSeConsumeUnaSolaVez(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Audífonos", "25", "10")
	lotID := f.purchase(t, productID, f.unitID, "3", "12").Lots[0].LotID
	entryID := f.extract(t, lotID, f.unitID, "3", "AUD-1", "AUD-2", "AUD-3").StockEntryIDs[0]

	res, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{{IdentityCode: "AUD-2"}}})
	require.NoError(t, err)
	assert.Equal(t, "V-000001", res.SaleNumber)
	assert.True(t, res.Total.Equal(d("25")))
	assert.Equal(t, 1, res.EntriesUpdated)
	assert.Equal(t, 1, res.MovementsCreated)
	assert.True(t, f.entry(t, entryID).AvailableQuantity.Equal(d("2")))

	_, err = f.sales.Sell(f.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{{IdentityCode: "AUD-2"}}})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "AUD-2", nf.ID)
	assert.True(t, f.entry(t, entryID).AvailableQuantity.Equal(d("2")))

	// El código quedó ligado a la línea de venta
	details, err := f.repos.Sales.GetDetailsBySaleID(f.ctx, res.SaleID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	ics, err := f.repos.IdentityCodes.ListByStockEntry(f.ctx, entryID)
	require.NoError(t, err)
	for _, ic := range ics {
		if ic.Code == "AUD-2" {
			assert.False(t, ic.Active)
			assert.Equal(t, details[0].ID, ic.SaleDetailID)
			assert.NotNil(t, ic.ConsumedAt)
			assert.Equal(t, ic.ID, details[0].IdentityCodeID)
		} else {
			assert.True(t, ic.Active)
		}
	}
	f.assertLedgerConsistent(t, lotID)
}

// Escenario E: dos ventas concurrentes de la última unidad, solo una pasa.
func TestSell_ConcurrenteSobreUltimaUnidad(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Pan", "0.8", "20")
	lotID := f.purchase(t, productID, f.unitID, "5", "0.4").Lots[0].LotID
	entryID := f.extract(t, lotID, f.unitID, "1").StockEntryIDs[0]

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sales.Sell(f.ctx, actor, dto.SellRequest{
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
		var ierr *domain.InsufficientStockError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, entryID, ierr.StockEntryID)
		assert.True(t, ierr.Available.IsZero())
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, f.entry(t, entryID).AvailableQuantity.IsZero())
	f.assertLedgerConsistent(t, lotID)
}

func TestSell_GranelSoloTomaUnidadesSinCodigo(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Cargador", "15", "5")
	lotID := f.purchase(t, productID, f.unitID, "5", "8").Lots[0].LotID
	entryID := f.extract(t, lotID, f.unitID, "5", "CG-1", "CG-2").StockEntryIDs[0]

	_, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{
		Items: []dto.SaleItemRequest{{StockEntryID: entryID, Quantity: d("4")}},
	})
	var ierr *domain.InsufficientStockError
	require.ErrorAs(t, err, &ierr)
	assert.True(t, ierr.Available.Equal(d("3")), "5 disponibles menos 2 con código")

	// Código + granel en la misma venta: el código consumido no cuenta como unidad sin código
	res, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{
		{IdentityCode: "CG-1"},
		{StockEntryID: entryID, Quantity: d("3"), Discount: d("5")},
	}})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(d("55")), "15 + 45 - 5")
	assert.Equal(t, 1, res.EntriesUpdated)
	assert.Equal(t, 2, res.MovementsCreated)
	assert.True(t, f.entry(t, entryID).AvailableQuantity.Equal(d("1")))

	n, err := f.repos.IdentityCodes.CountActiveByStockEntry(f.ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.assertLedgerConsistent(t, lotID)
}

func TestSell_FalloRevierteVentaCompleta(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Café", "9", "12")
	lotID := f.purchase(t, productID, f.unitID, "4", "5").Lots[0].LotID
	entryID := f.extract(t, lotID, f.unitID, "2", "CAF-1").StockEntryIDs[0]

	_, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{
		{IdentityCode: "CAF-1"},
		{IdentityCode: "NO-EXISTE"},
	}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.True(t, f.entry(t, entryID).AvailableQuantity.Equal(d("2")))
	exists, err := f.repos.IdentityCodes.ExistsActive(f.ctx, "CAF-1")
	require.NoError(t, err)
	assert.True(t, exists, "el código sigue activo tras el rollback")
	records, err := f.repos.Movements.List(f.ctx, repository.MovementFilter{ProductID: productID, Kind: entity.MovementKindExit})
	require.NoError(t, err)
	assert.Len(t, records, 1, "solo la extracción")

	// El mismo código dos veces en una venta
	_, err = f.sales.Sell(f.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{
		{IdentityCode: "CAF-1"},
		{IdentityCode: "CAF-1"},
	}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.assertLedgerConsistent(t, lotID)
}

func TestSell_SoloEntradasExtraidasYActivas(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Sal", "1", "50")
	purchase := f.purchase(t, productID, f.unitID, "10", "0.5")
	warehouseID := purchase.Lots[0].StockEntryID

	_, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{
		Items: []dto.SaleItemRequest{{StockEntryID: warehouseID, Quantity: d("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "la posición de bodega no es vendible")

	entryID := f.extract(t, purchase.Lots[0].LotID, f.unitID, "2").StockEntryIDs[0]
	require.NoError(t, f.sales.DeactivateStockEntry(f.ctx, actor, entryID))
	_, err = f.sales.Sell(f.ctx, actor, dto.SellRequest{
		Items: []dto.SaleItemRequest{{StockEntryID: entryID, Quantity: d("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSell_Validaciones(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		item dto.SaleItemRequest
	}{
		{"sin entrada ni código", dto.SaleItemRequest{Quantity: d("1")}},
		{"cantidad cero a granel", dto.SaleItemRequest{StockEntryID: "e1"}},
		{"código con cantidad distinta de uno", dto.SaleItemRequest{IdentityCode: "X", Quantity: d("2")}},
		{"descuento negativo", dto.SaleItemRequest{StockEntryID: "e1", Quantity: d("1"), Discount: d("-1")}},
		{"precio negativo", dto.SaleItemRequest{StockEntryID: "e1", Quantity: d("1"), UnitPrice: dp("-1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{tc.item}})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	_, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSell_CajaDescuentaUnidadesBase(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Cerveza", "3", "6")
	lotID := f.purchase(t, productID, f.boxID, "4", "12").Lots[0].LotID
	entryID := f.extract(t, lotID, f.boxID, "2").StockEntryIDs[0]

	res, err := f.sales.Sell(f.ctx, actor, dto.SellRequest{
		Items: []dto.SaleItemRequest{{StockEntryID: entryID, Quantity: d("1"), UnitPrice: dp("16")}},
	})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(d("16")))

	details, err := f.repos.Sales.GetDetailsBySaleID(f.ctx, res.SaleID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.True(t, details[0].QuantityBase.Equal(d("6")))
	f.assertLedgerConsistent(t, lotID)
}

func TestDeactivateStockEntry_LiberaCodigosParaOtraEntrega(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Audífonos", "30", "10")
	lotID := f.purchase(t, productID, f.unitID, "4", "12").Lots[0].LotID
	entryID := f.extract(t, lotID, f.unitID, "2", "BAR-1").StockEntryIDs[0]

	require.NoError(t, f.sales.DeactivateStockEntry(f.ctx, actor, entryID))

	codes, err := f.repos.IdentityCodes.ListByStockEntry(f.ctx, entryID)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.False(t, codes[0].Active)
	assert.Nil(t, codes[0].ConsumedAt, "liberado, no vendido")
	assert.Empty(t, codes[0].SaleDetailID)

	// El mismo código puede volver en una nueva extracción
	again := f.extract(t, lotID, f.unitID, "1", "BAR-1")
	assert.Equal(t, 1, again.IdentityCodesCreated)

	_, err = f.sales.Sell(f.ctx, actor, dto.SellRequest{Items: []dto.SaleItemRequest{{IdentityCode: "BAR-1"}}})
	require.NoError(t, err)
	assert.True(t, f.entry(t, again.StockEntryIDs[0]).AvailableQuantity.IsZero())
	f.assertLedgerConsistent(t, lotID)
}

// lockRecorder registra el orden en que la venta bloquea las entradas.
type lockRecorder struct {
	repository.StockEntryRepository
	locked *[]string
}

func (r lockRecorder) GetForUpdate(ctx context.Context, id string) (*entity.StockEntry, error) {
	*r.locked = append(*r.locked, id)
	return r.StockEntryRepository.GetForUpdate(ctx, id)
}

// recordingRunner envuelve el almacén en memoria y reemplaza el repositorio de entradas.
type recordingRunner struct {
	inner  inventory.TxRunner
	locked []string
}

func (r *recordingRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return r.inner.Run(ctx, func(repos repository.Repositories) error {
		repos.StockEntries = lockRecorder{StockEntryRepository: repos.StockEntries, locked: &r.locked}
		return fn(repos)
	})
}

func TestSell_BloqueaEntradasEnOrdenDeID(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Pilas", "4", "10")
	lotID := f.purchase(t, productID, f.unitID, "20", "2").Lots[0].LotID
	ext, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{Items: []dto.ExtractionItemRequest{
		{LotID: lotID, UnitID: f.unitID, Quantity: d("3"), IdentityCodes: []string{"PIL-1"}},
		{LotID: lotID, UnitID: f.unitID, Quantity: d("3")},
		{LotID: lotID, UnitID: f.unitID, Quantity: d("3")},
	}})
	require.NoError(t, err)
	require.Len(t, ext.StockEntryIDs, 3)

	ids := append([]string(nil), ext.StockEntryIDs...)
	sort.Strings(ids)
	codeEntry := ext.StockEntryIDs[0]

	runner := &recordingRunner{inner: f.store}
	sales := inventory.NewSaleConsumptionUseCase(runner, logger.Nop())

	// Ítems en orden inverso al de los IDs, con el código al final
	items := make([]dto.SaleItemRequest, 0, 3)
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == codeEntry {
			continue
		}
		items = append(items, dto.SaleItemRequest{StockEntryID: ids[i], Quantity: d("1")})
	}
	items = append(items, dto.SaleItemRequest{IdentityCode: "PIL-1"})

	res, err := sales.Sell(f.ctx, actor, dto.SellRequest{Items: items})
	require.NoError(t, err)
	assert.Equal(t, 3, res.EntriesUpdated)
	assert.Equal(t, ids, runner.locked, "cada entrada se bloquea una vez, en orden ascendente")
	f.assertLedgerConsistent(t, lotID)
}
