package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/minimarket-api/internal/application/analytics"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/application/usecase"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/cache"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/minimarket-api/internal/interfaces/http"
	"github.com/jhoicas/minimarket-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Entorno: API completa sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

type apiEnv struct {
	app   *fiber.App
	token string
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	log := logger.Nop()

	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(log)})
	apphttp.Router(app, apphttp.RouterDeps{
		UnitUC:         usecase.NewUnitUseCase(repos.Units),
		SupplierUC:     usecase.NewSupplierUseCase(repos.Suppliers),
		ProductUC:      usecase.NewProductUseCase(store, repos, log),
		LotLedger:      inventory.NewLotLedgerUseCase(store, repos, log),
		Extraction:     inventory.NewStockExtractionUseCase(store, log),
		Sales:          inventory.NewSaleConsumptionUseCase(store, log),
		Movements:      inventory.NewMovementLedgerUseCase(store, repos, log, decimal.Zero),
		StockQuery:     inventory.NewStockQueryUseCase(repos),
		Valuation:      analytics.NewValuationUseCase(repos, log),
		Idempotency:    cache.NewMemoryIdempotencyStore(),
		IdempotencyTTL: time.Hour,
		JWTSecret:      testJWTSecret,
		JWTIssuer:      testIssuer,
		Logger:         log,
	})
	return &apiEnv{app: app, token: bearer(t, testJWTSecret, testIssuer, "admin")}
}

func (e *apiEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		r = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", e.token)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeInto[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// catalog crea unidad, caja (12 unidades), proveedor y un producto con precio base 2.
func (e *apiEnv) catalog(t *testing.T) (productID, unitID, boxID, supplierID string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/units", dto.CreateUnitRequest{Name: "unidad", Abbreviation: "und"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	unitID = decodeInto[dto.UnitResponse](t, resp).ID

	resp = e.do(t, http.MethodPost, "/api/units", dto.CreateUnitRequest{Name: "caja", Abbreviation: "cj"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	boxID = decodeInto[dto.UnitResponse](t, resp).ID

	resp = e.do(t, http.MethodPost, "/api/suppliers", dto.CreateSupplierRequest{Name: "Distribuidora Andina"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	supplierID = decodeInto[dto.SupplierResponse](t, resp).ID

	resp = e.do(t, http.MethodPost, "/api/products", dto.CreateProductRequest{
		Name:        "Galletas",
		SupplierID:  supplierID,
		BaseUnitID:  unitID,
		BasePrice:   dec("2"),
		Conversions: []dto.ConversionInput{{UnitID: boxID, Factor: dec("12"), Price: dec("20")}},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	productID = decodeInto[dto.ProductResponse](t, resp).ID
	return productID, unitID, boxID, supplierID
}

func purchaseBody(supplierID, productID, boxID string) dto.RecordPurchaseRequest {
	return dto.RecordPurchaseRequest{
		SupplierID: supplierID,
		Lines: []dto.PurchaseLineRequest{
			{ProductID: productID, UnitID: boxID, Quantity: dec("2"), UnitPrice: dec("120")},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_FlujoCompraExtraccionVenta(t *testing.T) {
	e := newAPI(t)
	productID, unitID, boxID, supplierID := e.catalog(t)

	// Compra: 2 cajas a 120 = 24 unidades base
	resp := e.do(t, http.MethodPost, "/api/purchases", purchaseBody(supplierID, productID, boxID))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	purchase := decodeInto[dto.RecordPurchaseResponse](t, resp)
	require.Len(t, purchase.Lots, 1)
	assert.True(t, purchase.Total.Equal(dec("240")))
	lotID := purchase.Lots[0].LotID

	// Extracción de 10 unidades, una con código
	resp = e.do(t, http.MethodPost, "/api/extractions", dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: unitID, Quantity: dec("10"), IdentityCodes: []string{"A1"}}},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	extraction := decodeInto[dto.ExtractStockResponse](t, resp)
	require.Len(t, extraction.StockEntryIDs, 1)
	entryID := extraction.StockEntryIDs[0]

	// Venta por código
	resp = e.do(t, http.MethodPost, "/api/sales", dto.SellRequest{Items: []dto.SaleItemRequest{{IdentityCode: "A1"}}})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	sale := decodeInto[dto.SellResponse](t, resp)
	assert.Equal(t, "V-000001", sale.SaleNumber)
	assert.True(t, sale.Total.Equal(dec("2")))

	// El código ya fue consumido
	resp = e.do(t, http.MethodPost, "/api/sales", dto.SellRequest{Items: []dto.SaleItemRequest{{IdentityCode: "A1"}}})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)

	// A granel no alcanza: quedan 9
	resp = e.do(t, http.MethodPost, "/api/sales", dto.SellRequest{Items: []dto.SaleItemRequest{{StockEntryID: entryID, Quantity: dec("10")}}})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	stockErr := decodeInto[apphttp.StockErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", stockErr.Code)
	assert.True(t, stockErr.Available.Equal(dec("9")))
	assert.True(t, stockErr.Requested.Equal(dec("10")))

	resp = e.do(t, http.MethodPost, "/api/sales", dto.SellRequest{Items: []dto.SaleItemRequest{{StockEntryID: entryID, Quantity: dec("9")}}})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// La entrada agotada sale del stock vendible; la bodega muestra el remanente del lote
	resp = e.do(t, http.MethodGet, "/api/stock", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeInto[dto.StockListResponse](t, resp).Items)

	resp = e.do(t, http.MethodGet, "/api/stock?include_warehouse=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stock := decodeInto[dto.StockListResponse](t, resp)
	require.Len(t, stock.Items, 1)
	assert.True(t, stock.Items[0].AvailableBase.Equal(dec("14")))

	// Lote parcialmente extraído
	resp = e.do(t, http.MethodGet, "/api/lots/"+lotID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	lot := decodeInto[dto.LotResponse](t, resp)
	assert.True(t, lot.ExtractedBase.Equal(dec("10")))
	assert.True(t, lot.AvailableBase.Equal(dec("14")))

	// Costo promedio: 240 / 24
	resp = e.do(t, http.MethodGet, "/api/reports/weighted-cost?product_id="+productID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	wac := decodeInto[dto.WeightedCostResponse](t, resp)
	assert.True(t, wac.AverageCostBase.Equal(dec("10")))

	// Kardex: RECEIPT, EXIT de extracción y dos EXIT de venta
	resp = e.do(t, http.MethodGet, "/api/movements?product_id="+productID+"&kind=exit", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	movements := decodeInto[dto.MovementListResponse](t, resp)
	assert.Len(t, movements.Items, 3)
}

// ──────────────────────────────────────────────────────────────────────────────
// Mapeo de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_ErroresDeValidacion(t *testing.T) {
	e := newAPI(t)

	resp := e.do(t, http.MethodPost, "/api/sales", dto.SellRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)

	resp = e.do(t, http.MethodPost, "/api/purchases", `{"supplier_id": `)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/movements?kind=transfer", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/reports/weighted-cost", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/suppliers?limit=500", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAPI_NoEncontrado(t *testing.T) {
	e := newAPI(t)

	resp := e.do(t, http.MethodGet, "/api/products/no-existe", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)

	resp = e.do(t, http.MethodGet, "/api/lots/no-existe", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAPI_DesactivarConversionBaseEsConfiguracion(t *testing.T) {
	e := newAPI(t)
	productID, unitID, _, _ := e.catalog(t)

	resp := e.do(t, http.MethodDelete, "/api/products/"+productID+"/conversions/"+unitID, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "CONFIGURATION", decodeError(t, resp).Code)
}

func TestAPI_CodigoDuplicadoEnExtraccion(t *testing.T) {
	e := newAPI(t)
	productID, unitID, boxID, supplierID := e.catalog(t)
	resp := e.do(t, http.MethodPost, "/api/purchases", purchaseBody(supplierID, productID, boxID))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	lotID := decodeInto[dto.RecordPurchaseResponse](t, resp).Lots[0].LotID

	resp = e.do(t, http.MethodPost, "/api/extractions", dto.ExtractStockRequest{
		Items: []dto.ExtractionItemRequest{{LotID: lotID, UnitID: unitID, Quantity: dec("2"), IdentityCodes: []string{"Z9", "Z9"}}},
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_IDENTITY_CODE", decodeError(t, resp).Code)
}

func TestAPI_SinTokenNoAccede(t *testing.T) {
	e := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err = e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotency-Key
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_IdempotencyKeyRechazaReintento(t *testing.T) {
	e := newAPI(t)
	productID, _, boxID, supplierID := e.catalog(t)
	body := purchaseBody(supplierID, productID, boxID)

	resp := e.do(t, http.MethodPost, "/api/purchases", body, apphttp.HeaderIdempotencyKey, "compra-1")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/purchases", body, apphttp.HeaderIdempotencyKey, "compra-1")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_REQUEST", decodeError(t, resp).Code)

	// Sin clave no hay control
	resp = e.do(t, http.MethodPost, "/api/purchases", body)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestAPI_IdempotencyKeySeLiberaSiFalla(t *testing.T) {
	e := newAPI(t)
	productID, _, boxID, supplierID := e.catalog(t)

	invalid := dto.RecordPurchaseRequest{SupplierID: supplierID}
	resp := e.do(t, http.MethodPost, "/api/purchases", invalid, apphttp.HeaderIdempotencyKey, "compra-2")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/purchases", purchaseBody(supplierID, productID, boxID), apphttp.HeaderIdempotencyKey, "compra-2")
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}
