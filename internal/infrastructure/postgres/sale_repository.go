package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas y sus líneas.
type SaleRepo struct {
	q Querier
}

func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

func (r *SaleRepo) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT nextval('sale_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next sale number: %w", err)
	}
	return n, nil
}

func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales (id, number, date, total, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Number, s.Date, s.Total, s.CreatedAt, s.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) CreateDetail(ctx context.Context, d *entity.SaleDetail) error {
	const query = `
		INSERT INTO sale_details (id, sale_id, stock_entry_id, product_id, unit_id, identity_code_id,
		                          quantity, quantity_base, unit_price, discount, subtotal, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.SaleID, d.StockEntryID, d.ProductID, d.UnitID, nullIfEmpty(d.IdentityCodeID),
		d.Quantity, d.QuantityBase, d.UnitPrice, d.Discount, d.Subtotal, d.Total, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale detail: %w", err)
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var s entity.Sale
	err := r.q.QueryRow(ctx,
		`SELECT id, number, date, total, created_at, created_by FROM sales WHERE id = $1`, id,
	).Scan(&s.ID, &s.Number, &s.Date, &s.Total, &s.CreatedAt, &s.CreatedBy)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

func (r *SaleRepo) GetDetailsBySaleID(ctx context.Context, saleID string) ([]*entity.SaleDetail, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, stock_entry_id, product_id, unit_id, COALESCE(identity_code_id, ''),
		       quantity, quantity_base, unit_price, discount, subtotal, total, created_at
		FROM sale_details WHERE sale_id = $1 ORDER BY created_at, id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale details: %w", err)
	}
	defer rows.Close()
	var list []*entity.SaleDetail
	for rows.Next() {
		var d entity.SaleDetail
		if err := rows.Scan(&d.ID, &d.SaleID, &d.StockEntryID, &d.ProductID, &d.UnitID, &d.IdentityCodeID,
			&d.Quantity, &d.QuantityBase, &d.UnitPrice, &d.Discount, &d.Subtotal, &d.Total, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sale detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
