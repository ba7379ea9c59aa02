package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de solo lectura para costo de ventas y recuperación por lote.
type AnalyticsRepo struct {
	q Querier
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(q Querier) *AnalyticsRepo {
	return &AnalyticsRepo{q: q}
}

// ListSaleLines líneas vendidas en [startDate, endDate] con sus unidades base e ingreso neto.
func (r *AnalyticsRepo) ListSaleLines(ctx context.Context, startDate, endDate time.Time) ([]repository.SaleLineRow, error) {
	const query = `
	SELECT
	    d.id,
	    s.id,
	    s.date,
	    d.product_id,
	    p.name,
	    d.quantity_base,
	    d.total
	FROM sales s
	JOIN sale_details d ON d.sale_id = s.id
	JOIN products     p ON p.id      = d.product_id
	WHERE s.date BETWEEN $1 AND $2
	ORDER BY s.date, d.id`

	rows, err := r.q.Query(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("analytics.ListSaleLines: %w", err)
	}
	defer rows.Close()

	var results []repository.SaleLineRow
	for rows.Next() {
		var row repository.SaleLineRow
		if err := rows.Scan(
			&row.SaleDetailID,
			&row.SaleID,
			&row.SaleDate,
			&row.ProductID,
			&row.ProductName,
			&row.QuantityBase,
			&row.Revenue,
		); err != nil {
			return nil, fmt.Errorf("analytics.ListSaleLines scan: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// ListLotInvestments inversión de cada lote (total de su línea de compra), lo extraído según el kardex
// y lo vendido sobre las entradas extraídas del lote.
func (r *AnalyticsRepo) ListLotInvestments(ctx context.Context, productID string) ([]repository.LotInvestmentRow, error) {
	const query = `
	SELECT
	    l.id,
	    l.code,
	    l.product_id,
	    p.name,
	    l.expires_at,
	    l.initial_quantity_base,
	    COALESCE((
	        SELECT SUM(m.quantity_base)
	        FROM movement_records m
	        WHERE m.lot_id = l.id AND m.kind = 'EXIT' AND m.reference_kind = 'EXTRACTION'
	    ), 0)                                                                    AS extracted_base,
	    pd.total                                                                 AS investment,
	    COALESCE((
	        SELECT SUM(sd.total)
	        FROM sale_details sd
	        JOIN stock_entries se ON se.id = sd.stock_entry_id
	        WHERE se.lot_id = l.id
	    ), 0)                                                                    AS revenue,
	    l.active
	FROM lots l
	JOIN products         p  ON p.id  = l.product_id
	JOIN purchase_details pd ON pd.id = l.purchase_detail_id
	WHERE ($1::TEXT = '' OR l.product_id = $1)
	ORDER BY p.name, l.code`

	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("analytics.ListLotInvestments: %w", err)
	}
	defer rows.Close()

	var results []repository.LotInvestmentRow
	for rows.Next() {
		var row repository.LotInvestmentRow
		if err := rows.Scan(
			&row.LotID,
			&row.LotCode,
			&row.ProductID,
			&row.ProductName,
			&row.ExpiresAt,
			&row.InitialQuantityBase,
			&row.ExtractedBase,
			&row.Investment,
			&row.Revenue,
			&row.Active,
		); err != nil {
			return nil, fmt.Errorf("analytics.ListLotInvestments scan: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
