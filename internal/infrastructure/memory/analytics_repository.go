package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// AnalyticsRepository implementa repository.AnalyticsRepository recorriendo el estado publicado.
type AnalyticsRepository struct{ d *db }

func (r *AnalyticsRepository) ListSaleLines(_ context.Context, startDate, endDate time.Time) ([]repository.SaleLineRow, error) {
	var out []repository.SaleLineRow
	err := r.d.view(func(st *state) error {
		for _, d := range st.saleDetails {
			s, ok := st.sales[d.SaleID]
			if !ok || s.Date.Before(startDate) || s.Date.After(endDate) {
				continue
			}
			out = append(out, repository.SaleLineRow{
				SaleDetailID: d.ID,
				SaleID:       s.ID,
				SaleDate:     s.Date,
				ProductID:    d.ProductID,
				ProductName:  st.products[d.ProductID].Name,
				QuantityBase: d.QuantityBase,
				Revenue:      d.Total,
			})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].SaleDate.Equal(out[j].SaleDate) {
				return out[i].SaleDetailID < out[j].SaleDetailID
			}
			return out[i].SaleDate.Before(out[j].SaleDate)
		})
		return nil
	})
	return out, err
}

func (r *AnalyticsRepository) ListLotInvestments(_ context.Context, productID string) ([]repository.LotInvestmentRow, error) {
	var out []repository.LotInvestmentRow
	err := r.d.view(func(st *state) error {
		extracted := make(map[string]decimal.Decimal)
		for _, m := range st.movements {
			if m.Kind == entity.MovementKindExit && m.ReferenceKind == entity.ReferenceExtraction {
				extracted[m.LotID] = extracted[m.LotID].Add(m.QuantityBase)
			}
		}
		revenue := make(map[string]decimal.Decimal)
		for _, d := range st.saleDetails {
			e, ok := st.entries[d.StockEntryID]
			if !ok || e.LotID == "" {
				continue
			}
			revenue[e.LotID] = revenue[e.LotID].Add(d.Total)
		}
		for _, l := range st.lots {
			if productID != "" && l.ProductID != productID {
				continue
			}
			out = append(out, repository.LotInvestmentRow{
				LotID:               l.ID,
				LotCode:             l.Code,
				ProductID:           l.ProductID,
				ProductName:         st.products[l.ProductID].Name,
				ExpiresAt:           l.ExpiresAt,
				InitialQuantityBase: l.InitialQuantityBase,
				ExtractedBase:       extracted[l.ID],
				Investment:          st.purchaseDetails[l.PurchaseDetailID].Total,
				Revenue:             revenue[l.ID],
				Active:              l.Active,
			})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].ProductName != out[j].ProductName {
				return out[i].ProductName < out[j].ProductName
			}
			return out[i].LotCode < out[j].LotCode
		})
		return nil
	})
	return out, err
}
