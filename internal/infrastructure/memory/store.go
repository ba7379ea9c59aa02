// Package memory implementa los repositorios sobre mapas en memoria.
// Sirve para el modo de desarrollo (STORE_DRIVER=memory) y para tests con un almacén aislado por test.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

// state todas las tablas. Los valores se guardan por copia para que nadie modifique el estado sin pasar por un repo.
type state struct {
	products        map[string]entity.Product
	units           map[string]entity.Unit
	suppliers       map[string]entity.Supplier
	conversions     map[string]entity.UnitConversion
	purchases       map[string]entity.Purchase
	purchaseDetails map[string]entity.PurchaseDetail
	lots            map[string]entity.Lot
	movements       []entity.MovementRecord
	entries         map[string]entity.StockEntry
	codes           map[string]entity.IdentityCode
	sales           map[string]entity.Sale
	saleDetails     map[string]entity.SaleDetail
	purchaseSeq     int64
	saleSeq         int64
}

func newState() *state {
	return &state{
		products:        map[string]entity.Product{},
		units:           map[string]entity.Unit{},
		suppliers:       map[string]entity.Supplier{},
		conversions:     map[string]entity.UnitConversion{},
		purchases:       map[string]entity.Purchase{},
		purchaseDetails: map[string]entity.PurchaseDetail{},
		lots:            map[string]entity.Lot{},
		entries:         map[string]entity.StockEntry{},
		codes:           map[string]entity.IdentityCode{},
		sales:           map[string]entity.Sale{},
		saleDetails:     map[string]entity.SaleDetail{},
	}
}

func (s *state) clone() *state {
	c := &state{
		products:        cloneMap(s.products),
		units:           cloneMap(s.units),
		suppliers:       cloneMap(s.suppliers),
		conversions:     cloneMap(s.conversions),
		purchases:       cloneMap(s.purchases),
		purchaseDetails: cloneMap(s.purchaseDetails),
		lots:            cloneMap(s.lots),
		movements:       append([]entity.MovementRecord(nil), s.movements...),
		entries:         cloneMap(s.entries),
		codes:           cloneMap(s.codes),
		sales:           cloneMap(s.sales),
		saleDetails:     cloneMap(s.saleDetails),
		purchaseSeq:     s.purchaseSeq,
		saleSeq:         s.saleSeq,
	}
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store almacén en memoria. Las transacciones se serializan con un mutex global:
// equivale a bloquear todas las filas, así que las lecturas "FOR UPDATE" no necesitan nada extra.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Run ejecuta fn sobre una copia del estado y la publica solo si fn termina sin error.
// Implementa el TxRunner de la capa de aplicación.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(newRepositories(&db{store: s, tx: tx})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// Repositories devuelve repositorios fuera de transacción; cada llamada es atómica por sí sola.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(&db{store: s})
}

// db acceso al estado: el de la tx en curso o el publicado (con el mutex tomado).
type db struct {
	store *Store
	tx    *state
}

func (d *db) view(fn func(st *state) error) error {
	if d.tx != nil {
		return fn(d.tx)
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	return fn(d.store.st)
}

func newRepositories(d *db) repository.Repositories {
	return repository.Repositories{
		Products:      &ProductRepository{d},
		Units:         &UnitRepository{d},
		Suppliers:     &SupplierRepository{d},
		Conversions:   &UnitConversionRepository{d},
		Purchases:     &PurchaseRepository{d},
		Lots:          &LotRepository{d},
		Movements:     &MovementRepository{d},
		StockEntries:  &StockEntryRepository{d},
		IdentityCodes: &IdentityCodeRepository{d},
		Sales:         &SaleRepository{d},
		Analytics:     &AnalyticsRepository{d},
	}
}

// page aplica limit/offset sobre un slice ya ordenado.
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
