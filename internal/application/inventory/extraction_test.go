package inventory_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%03d", prefix, i+1)
	}
	return out
}

// Escenario B: 24 unidades con 24 códigos dejan 36; pedir 40 falla con disponible 36.
func TestExtractStock_DisponibleDerivadoDelKardex(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Gaseosa 350ml", "2.50", "12")
	lotID := f.purchase(t, productID, f.boxID, "5", "400").Lots[0].LotID

	res := f.extract(t, lotID, f.unitID, "24", codes("GAS", 24)...)
	assert.NotEmpty(t, res.ExtractionID)
	assert.Equal(t, 1, res.StockEntriesCreated)
	assert.Equal(t, 1, res.MovementsCreated)
	assert.Equal(t, 24, res.IdentityCodesCreated)

	state, err := f.ledger.LotStatus(f.ctx, lotID)
	require.NoError(t, err)
	assert.True(t, state.AvailableBase.Equal(d("36")))
	f.assertLedgerConsistent(t, lotID)

	_, err = f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: f.unitID, Quantity: d("40")}},
	})
	var ierr *domain.InsufficientStockError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, lotID, ierr.LotID)
	assert.True(t, ierr.Available.Equal(d("36")))
	assert.True(t, ierr.Requested.Equal(d("40")))
	f.assertLedgerConsistent(t, lotID)
}

func TestExtractStock_EntradaHeredaVencimientoYPrecio(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Yogur", "1.20", "6")
	lotID := f.purchase(t, productID, f.boxID, "2", "5").Lots[0].LotID

	// Caja sin precio -> precio base; precio explícito gana
	byBox := f.extract(t, lotID, f.boxID, "1")
	entry := f.entry(t, byBox.StockEntryIDs[0])
	assert.True(t, entry.UnitPrice.Equal(d("1.20")))
	assert.True(t, entry.QuantityBase.Equal(d("6")))
	assert.Equal(t, entity.StockSourceExtraction, entry.Source)
	assert.True(t, entry.IsSellable())

	res, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: f.unitID, Quantity: d("3"), Price: dp("1.50")}},
	})
	require.NoError(t, err)
	assert.True(t, f.entry(t, res.StockEntryIDs[0]).UnitPrice.Equal(d("1.50")))

	records, err := f.repos.Movements.List(f.ctx, repository.MovementFilter{LotID: lotID, Kind: entity.MovementKindExit})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, entity.ReferenceExtraction, records[1].ReferenceKind)
	assert.Equal(t, res.ExtractionID, records[1].ReferenceID)
	f.assertLedgerConsistent(t, lotID)
}

func TestExtractStock_CodigoDuplicadoRevierteTodoElLote(t *testing.T) {
	f := newFixture(t)
	a := f.createProduct(t, "Pilas AA", "3", "4")
	b := f.createProduct(t, "Bombillo", "5", "10")
	lotA := f.purchase(t, a, f.unitID, "10", "2").Lots[0].LotID
	lotB := f.purchase(t, b, f.unitID, "10", "3").Lots[0].LotID
	f.extract(t, lotA, f.unitID, "1", "SERIE-1")

	// El código está activo en otro producto: unicidad global
	_, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{
			{LotID: lotB, UnitID: f.unitID, Quantity: d("2"), IdentityCodes: []string{"SERIE-2"}},
			{LotID: lotB, UnitID: f.unitID, Quantity: d("1"), IdentityCodes: []string{" SERIE-1 "}},
		},
	})
	var dup *domain.DuplicateIdentityCodeError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "SERIE-1", dup.Code)

	state, err := f.ledger.LotStatus(f.ctx, lotB)
	require.NoError(t, err)
	assert.True(t, state.ExtractedBase.IsZero(), "el primer ítem también se revierte")
	exists, err := f.repos.IdentityCodes.ExistsActive(f.ctx, "SERIE-2")
	require.NoError(t, err)
	assert.False(t, exists)
	f.assertLedgerConsistent(t, lotB)
}

func TestExtractStock_ValidacionesAntesDeEscribir(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Jabón", "2", "3")
	lotID := f.purchase(t, productID, f.unitID, "10", "1").Lots[0].LotID

	t.Run("código repetido en la misma solicitud", func(t *testing.T) {
		_, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
			Items: []dto.ExtractionItemRequest{
				{LotID: lotID, UnitID: f.unitID, Quantity: d("1"), IdentityCodes: []string{"J-1"}},
				{LotID: lotID, UnitID: f.unitID, Quantity: d("1"), IdentityCodes: []string{"J-1"}},
			},
		})
		assert.ErrorIs(t, err, domain.ErrDuplicate)
	})
	t.Run("más códigos que unidades", func(t *testing.T) {
		_, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
			Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: f.unitID, Quantity: d("1"), IdentityCodes: []string{"J-1", "J-2"}}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
	t.Run("códigos en blanco se ignoran", func(t *testing.T) {
		res := f.extract(t, lotID, f.unitID, "1", "  ", "")
		assert.Equal(t, 0, res.IdentityCodesCreated)
	})
	t.Run("unidad sin conversión", func(t *testing.T) {
		_, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
			Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: "galón", Quantity: d("1")}},
		})
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
	t.Run("lote inexistente", func(t *testing.T) {
		_, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
			Items: []dto.ExtractionItemRequest{{LotID: "no-existe", UnitID: f.unitID, Quantity: d("1")}},
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
	t.Run("varios ítems del mismo lote suman contra el disponible", func(t *testing.T) {
		_, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
			Items: []dto.ExtractionItemRequest{
				{LotID: lotID, UnitID: f.unitID, Quantity: d("5")},
				{LotID: lotID, UnitID: f.unitID, Quantity: d("5")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	})
	f.assertLedgerConsistent(t, lotID)
}

func TestExtractStock_ConcurrenteNoSobrepasaElLote(t *testing.T) {
	f := newFixture(t)
	productID := f.createProduct(t, "Huevos", "0.5", "30")
	lotID := f.purchase(t, productID, f.unitID, "10", "0.3").Lots[0].LotID

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.extraction.ExtractStock(f.ctx, actor, dto.ExtractStockRequest{
				Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: f.unitID, Quantity: d("3")}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, domain.ErrInsufficientStock) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok, "10 unidades alcanzan para 3 extracciones de 3")
	assert.Equal(t, workers-3, refused)
	f.assertLedgerConsistent(t, lotID)
}
