package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los FOR UPDATE tomados por los repos se liberan al terminar.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepositories arma todos los adaptadores sobre el mismo Querier (pool o tx).
func NewRepositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Products:      NewProductRepository(q),
		Units:         NewUnitRepository(q),
		Suppliers:     NewSupplierRepository(q),
		Conversions:   NewUnitConversionRepository(q),
		Purchases:     NewPurchaseRepository(q),
		Lots:          NewLotRepository(q),
		Movements:     NewMovementRepository(q),
		StockEntries:  NewStockEntryRepository(q),
		IdentityCodes: NewIdentityCodeRepository(q),
		Sales:         NewSaleRepository(q),
		Analytics:     NewAnalyticsRepository(q),
	}
}
