package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

var (
	_ repository.StockEntryRepository   = (*StockEntryRepo)(nil)
	_ repository.IdentityCodeRepository = (*IdentityCodeRepo)(nil)
)

// StockEntryRepo implementación de StockEntryRepository sobre PostgreSQL (usable con pool o tx).
type StockEntryRepo struct {
	q Querier
}

// NewStockEntryRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockEntryRepository(q Querier) *StockEntryRepo {
	return &StockEntryRepo{q: q}
}

const stockEntryColumns = `id, product_id, COALESCE(lot_id, ''), unit_id, source, quantity, available_quantity, quantity_base,
	unit_price, expires_at, active, created_at, created_by, updated_at`

func scanStockEntry(row interface{ Scan(...any) error }) (*entity.StockEntry, error) {
	var e entity.StockEntry
	if err := row.Scan(&e.ID, &e.ProductID, &e.LotID, &e.UnitID, &e.Source, &e.Quantity, &e.AvailableQuantity, &e.QuantityBase,
		&e.UnitPrice, &e.ExpiresAt, &e.Active, &e.CreatedAt, &e.CreatedBy, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *StockEntryRepo) Create(ctx context.Context, e *entity.StockEntry) error {
	const query = `
		INSERT INTO stock_entries (id, product_id, lot_id, unit_id, source, quantity, available_quantity, quantity_base,
		                           unit_price, expires_at, active, created_at, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.ProductID, nullIfEmpty(e.LotID), e.UnitID, e.Source, e.Quantity, e.AvailableQuantity, e.QuantityBase,
		e.UnitPrice, e.ExpiresAt, e.Active, e.CreatedAt, e.CreatedBy, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock entry: %w", err)
	}
	return nil
}

func (r *StockEntryRepo) GetByID(ctx context.Context, id string) (*entity.StockEntry, error) {
	return r.get(ctx, `SELECT `+stockEntryColumns+` FROM stock_entries WHERE id = $1`, id)
}

// GetForUpdate obtiene la entrada y bloquea la fila (SELECT FOR UPDATE).
func (r *StockEntryRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockEntry, error) {
	return r.get(ctx, `SELECT `+stockEntryColumns+` FROM stock_entries WHERE id = $1 FOR UPDATE`, id)
}

func (r *StockEntryRepo) get(ctx context.Context, query string, args ...any) (*entity.StockEntry, error) {
	e, err := scanStockEntry(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock entry: %w", err)
	}
	return e, nil
}

// Update el CHECK (available_quantity >= 0) de la tabla respalda la validación del caso de uso.
func (r *StockEntryRepo) Update(ctx context.Context, e *entity.StockEntry) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE stock_entries
		SET quantity = $2, available_quantity = $3, quantity_base = $4, active = $5, updated_at = $6
		WHERE id = $1`,
		e.ID, e.Quantity, e.AvailableQuantity, e.QuantityBase, e.Active, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock entry: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update stock entry: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *StockEntryRepo) FindActiveForUpdate(ctx context.Context, productID, lotID, unitID, source string) (*entity.StockEntry, error) {
	return r.get(ctx, `
		SELECT `+stockEntryColumns+`
		FROM stock_entries
		WHERE product_id = $1
		  AND lot_id IS NOT DISTINCT FROM $2
		  AND unit_id = $3
		  AND source = $4
		  AND active
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE`,
		productID, nullIfEmpty(lotID), unitID, source,
	)
}

func (r *StockEntryRepo) ListByLot(ctx context.Context, lotID string) ([]*entity.StockEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT `+stockEntryColumns+` FROM stock_entries WHERE lot_id = $1 ORDER BY created_at, id`, lotID)
	if err != nil {
		return nil, fmt.Errorf("list stock entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockEntry
	for rows.Next() {
		e, err := scanStockEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListAvailable proyección de stock. No bloquea: los conteos pueden estar levemente desfasados.
func (r *StockEntryRepo) ListAvailable(ctx context.Context, f repository.StockFilter) ([]repository.AvailableStockRow, error) {
	const query = `
	SELECT
	    se.id, se.product_id, p.name, COALESCE(se.lot_id, ''), COALESCE(l.code, ''), se.unit_id, u.name, se.source,
	    se.quantity, se.available_quantity, se.quantity_base, se.unit_price, se.expires_at,
	    (SELECT COUNT(*) FROM identity_codes ic WHERE ic.stock_entry_id = se.id AND ic.active) AS active_codes
	FROM stock_entries se
	JOIN products p ON p.id = se.product_id
	JOIN units    u ON u.id = se.unit_id
	LEFT JOIN lots l ON l.id = se.lot_id
	WHERE se.active
	  AND ($1::TEXT = '' OR se.product_id = $1)
	  AND (
	        (se.source = 'EXTRACTION' AND se.available_quantity > 0)
	     OR ($2::BOOLEAN AND se.source = 'RECEIPT' AND l.active)
	  )
	ORDER BY p.name, CASE se.source WHEN 'EXTRACTION' THEN 0 ELSE 1 END, se.id`
	rows, err := r.q.Query(ctx, query, f.ProductID, f.IncludeWarehouse)
	if err != nil {
		return nil, fmt.Errorf("list available stock: %w", err)
	}
	defer rows.Close()
	var out []repository.AvailableStockRow
	for rows.Next() {
		var row repository.AvailableStockRow
		if err := rows.Scan(
			&row.StockEntryID, &row.ProductID, &row.ProductName, &row.LotID, &row.LotCode, &row.UnitID, &row.UnitName, &row.Source,
			&row.Quantity, &row.AvailableQuantity, &row.QuantityBase, &row.UnitPrice, &row.ExpiresAt, &row.ActiveCodes,
		); err != nil {
			return nil, fmt.Errorf("scan available stock: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// IdentityCodeRepo códigos de identidad. El índice único parcial (code) WHERE active
// garantiza la unicidad entre transacciones concurrentes.
type IdentityCodeRepo struct {
	q Querier
}

func NewIdentityCodeRepository(q Querier) *IdentityCodeRepo {
	return &IdentityCodeRepo{q: q}
}

const identityCodeColumns = `id, stock_entry_id, code, active, COALESCE(sale_detail_id, ''), consumed_at, created_at`

func scanIdentityCode(row interface{ Scan(...any) error }) (*entity.IdentityCode, error) {
	var c entity.IdentityCode
	if err := row.Scan(&c.ID, &c.StockEntryID, &c.Code, &c.Active, &c.SaleDetailID, &c.ConsumedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *IdentityCodeRepo) Create(ctx context.Context, c *entity.IdentityCode) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO identity_codes (id, stock_entry_id, code, active, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.StockEntryID, c.Code, c.Active, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) != "identity_codes_pkey" {
			return &domain.DuplicateIdentityCodeError{Code: c.Code}
		}
		return fmt.Errorf("insert identity code: %w", err)
	}
	return nil
}

func (r *IdentityCodeRepo) GetActiveByCodeForUpdate(ctx context.Context, code string) (*entity.IdentityCode, error) {
	c, err := scanIdentityCode(r.q.QueryRow(ctx,
		`SELECT `+identityCodeColumns+` FROM identity_codes WHERE code = $1 AND active FOR UPDATE`, code,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity code: %w", err)
	}
	return c, nil
}

func (r *IdentityCodeRepo) GetActiveByCode(ctx context.Context, code string) (*entity.IdentityCode, error) {
	c, err := scanIdentityCode(r.q.QueryRow(ctx,
		`SELECT `+identityCodeColumns+` FROM identity_codes WHERE code = $1 AND active`, code,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity code: %w", err)
	}
	return c, nil
}

func (r *IdentityCodeRepo) ExistsActive(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM identity_codes WHERE code = $1 AND active)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("identity code exists: %w", err)
	}
	return exists, nil
}

// Consume solo afecta códigos activos; un segundo consumo es NotFound.
func (r *IdentityCodeRepo) Consume(ctx context.Context, id, saleDetailID string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE identity_codes
		SET active = FALSE, sale_detail_id = $2, consumed_at = $3
		WHERE id = $1 AND active`,
		id, saleDetailID, at,
	)
	if err != nil {
		return fmt.Errorf("consume identity code: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("consume identity code: %w", domain.NotFound("código de identidad", id))
	}
	return nil
}

// ReleaseByStockEntry deja consumed_at y sale_detail_id en NULL: el código no se vendió.
func (r *IdentityCodeRepo) ReleaseByStockEntry(ctx context.Context, stockEntryID string) (int, error) {
	cmd, err := r.q.Exec(ctx,
		`UPDATE identity_codes SET active = FALSE WHERE stock_entry_id = $1 AND active`, stockEntryID,
	)
	if err != nil {
		return 0, fmt.Errorf("release identity codes: %w", err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *IdentityCodeRepo) CountActiveByStockEntry(ctx context.Context, stockEntryID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM identity_codes WHERE stock_entry_id = $1 AND active`, stockEntryID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count identity codes: %w", err)
	}
	return n, nil
}

func (r *IdentityCodeRepo) ListByStockEntry(ctx context.Context, stockEntryID string) ([]*entity.IdentityCode, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+identityCodeColumns+` FROM identity_codes WHERE stock_entry_id = $1 ORDER BY created_at, code`, stockEntryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list identity codes: %w", err)
	}
	defer rows.Close()
	var list []*entity.IdentityCode
	for rows.Next() {
		c, err := scanIdentityCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity code: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
