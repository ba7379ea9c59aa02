package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.PurchaseRepository = (*PurchaseRepo)(nil)
	_ repository.LotRepository      = (*LotRepo)(nil)
	_ repository.MovementRepository = (*MovementRepo)(nil)
)

// PurchaseRepo compras y sus líneas.
type PurchaseRepo struct {
	q Querier
}

func NewPurchaseRepository(q Querier) *PurchaseRepo {
	return &PurchaseRepo{q: q}
}

// NextNumber usa una secuencia: un número reservado no vuelve si la transacción se revierte.
func (r *PurchaseRepo) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('purchase_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next purchase number: %w", err)
	}
	return n, nil
}

func (r *PurchaseRepo) Create(ctx context.Context, p *entity.Purchase) error {
	const query = `
		INSERT INTO purchases (id, number, supplier_id, date, total, active, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.q.Exec(ctx, query, p.ID, p.Number, p.SupplierID, p.Date, p.Total, p.Active, p.CreatedAt, p.CreatedBy); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepo) CreateDetail(ctx context.Context, d *entity.PurchaseDetail) error {
	const query = `
		INSERT INTO purchase_details (id, purchase_id, product_id, unit_id, quantity, unit_price, discount, subtotal, total, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.PurchaseID, d.ProductID, d.UnitID, d.Quantity, d.UnitPrice, d.Discount, d.Subtotal, d.Total, d.Active, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase detail: %w", err)
	}
	return nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, id string) (*entity.Purchase, error) {
	var p entity.Purchase
	err := r.q.QueryRow(ctx, `
		SELECT id, number, supplier_id, date, total, active, created_at, created_by
		FROM purchases WHERE id = $1`, id,
	).Scan(&p.ID, &p.Number, &p.SupplierID, &p.Date, &p.Total, &p.Active, &p.CreatedAt, &p.CreatedBy)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return &p, nil
}

func (r *PurchaseRepo) GetDetailsByPurchaseID(ctx context.Context, purchaseID string) ([]*entity.PurchaseDetail, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, purchase_id, product_id, unit_id, quantity, unit_price, discount, subtotal, total, active, created_at
		FROM purchase_details WHERE purchase_id = $1 ORDER BY created_at, id`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list purchase details: %w", err)
	}
	defer rows.Close()
	var list []*entity.PurchaseDetail
	for rows.Next() {
		var d entity.PurchaseDetail
		if err := rows.Scan(&d.ID, &d.PurchaseID, &d.ProductID, &d.UnitID, &d.Quantity, &d.UnitPrice,
			&d.Discount, &d.Subtotal, &d.Total, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// ListCostLines el factor sale de la conversión de la unidad de compra aunque hoy esté inactiva.
func (r *PurchaseRepo) ListCostLines(ctx context.Context, productID string, asOf time.Time) ([]repository.CostLine, error) {
	const query = `
	SELECT pd.id, p.date, pd.quantity, pd.unit_price, COALESCE(uc.factor, 0)
	FROM purchase_details pd
	JOIN purchases p ON p.id = pd.purchase_id
	LEFT JOIN unit_conversions uc ON uc.product_id = pd.product_id AND uc.origin_unit_id = pd.unit_id
	WHERE pd.product_id = $1
	  AND pd.active
	  AND p.active
	  AND p.date <= $2
	ORDER BY p.date, pd.id`
	rows, err := r.q.Query(ctx, query, productID, asOf)
	if err != nil {
		return nil, fmt.Errorf("list cost lines: %w", err)
	}
	defer rows.Close()
	var out []repository.CostLine
	for rows.Next() {
		var l repository.CostLine
		if err := rows.Scan(&l.PurchaseDetailID, &l.PurchaseDate, &l.Quantity, &l.UnitPrice, &l.Factor); err != nil {
			return nil, fmt.Errorf("scan cost line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LotRepo lotes trazables.
type LotRepo struct {
	q Querier
}

func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, product_id, purchase_detail_id, code, expires_at, initial_quantity_base, active, created_at, created_by`

func scanLot(row interface{ Scan(...any) error }) (*entity.Lot, error) {
	var l entity.Lot
	if err := row.Scan(&l.ID, &l.ProductID, &l.PurchaseDetailID, &l.Code, &l.ExpiresAt,
		&l.InitialQuantityBase, &l.Active, &l.CreatedAt, &l.CreatedBy); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LotRepo) Create(ctx context.Context, l *entity.Lot) error {
	const query = `INSERT INTO lots (` + lotColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.ProductID, l.PurchaseDetailID, l.Code, l.ExpiresAt, l.InitialQuantityBase, l.Active, l.CreatedAt, l.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	return r.get(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id)
}

// GetForUpdate serializa extracciones concurrentes sobre el mismo lote.
func (r *LotRepo) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	return r.get(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1 FOR UPDATE`, id)
}

func (r *LotRepo) get(ctx context.Context, query, id string) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

func (r *LotRepo) Deactivate(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `UPDATE lots SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate lot: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("deactivate lot: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *LotRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, `SELECT `+lotColumns+` FROM lots WHERE product_id = $1 ORDER BY created_at, code`, productID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// MovementRepo kardex. Solo INSERT y SELECT; la tabla rechaza UPDATE y DELETE con un trigger.
type MovementRepo struct {
	q Querier
}

func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func (r *MovementRepo) Append(ctx context.Context, m *entity.MovementRecord) error {
	const query = `
		INSERT INTO movement_records (id, kind, product_id, lot_id, stock_entry_id, unit_id, quantity, quantity_base,
		                              reference_id, reference_kind, note, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Kind, m.ProductID, nullIfEmpty(m.LotID), nullIfEmpty(m.StockEntryID), m.UnitID, m.Quantity, m.QuantityBase,
		m.ReferenceID, m.ReferenceKind, m.Note, m.CreatedAt, m.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (r *MovementRepo) SumExtractedBase(ctx context.Context, lotID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_base), 0)
		FROM movement_records
		WHERE lot_id = $1 AND kind = $2 AND reference_kind = $3`,
		lotID, entity.MovementKindExit, entity.ReferenceExtraction,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum extracted: %w", err)
	}
	return total, nil
}

// List devuelve los registros en orden de inserción.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.MovementRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.LotID != "" {
		add("lot_id = $%d", f.LotID)
	}
	if f.Kind != "" {
		add("kind = $%d", f.Kind)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	query := `
		SELECT id, kind, product_id, COALESCE(lot_id, ''), COALESCE(stock_entry_id, ''), unit_id, quantity, quantity_base,
		       reference_id, reference_kind, note, created_at, created_by
		FROM movement_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.MovementRecord
	for rows.Next() {
		var m entity.MovementRecord
		if err := rows.Scan(&m.ID, &m.Kind, &m.ProductID, &m.LotID, &m.StockEntryID, &m.UnitID, &m.Quantity, &m.QuantityBase,
			&m.ReferenceID, &m.ReferenceKind, &m.Note, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
