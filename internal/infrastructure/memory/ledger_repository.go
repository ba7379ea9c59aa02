package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// PurchaseRepository implementa repository.PurchaseRepository.
type PurchaseRepository struct{ d *db }

func (r *PurchaseRepository) NextNumber(_ context.Context) (int64, error) {
	var n int64
	err := r.d.view(func(st *state) error {
		st.purchaseSeq++
		n = st.purchaseSeq
		return nil
	})
	return n, err
}

func (r *PurchaseRepository) Create(_ context.Context, p *entity.Purchase) error {
	return r.d.view(func(st *state) error {
		if _, ok := st.suppliers[p.SupplierID]; !ok {
			return fmt.Errorf("purchase create: proveedor %s inexistente", p.SupplierID)
		}
		st.purchases[p.ID] = *p
		return nil
	})
}

func (r *PurchaseRepository) CreateDetail(_ context.Context, d *entity.PurchaseDetail) error {
	return r.d.view(func(st *state) error {
		if _, ok := st.purchases[d.PurchaseID]; !ok {
			return fmt.Errorf("purchase detail create: compra %s inexistente", d.PurchaseID)
		}
		st.purchaseDetails[d.ID] = *d
		return nil
	})
}

func (r *PurchaseRepository) GetByID(_ context.Context, id string) (*entity.Purchase, error) {
	var out *entity.Purchase
	err := r.d.view(func(st *state) error {
		if p, ok := st.purchases[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *PurchaseRepository) GetDetailsByPurchaseID(_ context.Context, purchaseID string) ([]*entity.PurchaseDetail, error) {
	var out []*entity.PurchaseDetail
	err := r.d.view(func(st *state) error {
		for _, d := range st.purchaseDetails {
			if d.PurchaseID == purchaseID {
				out = append(out, &d)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r *PurchaseRepository) ListCostLines(_ context.Context, productID string, asOf time.Time) ([]repository.CostLine, error) {
	var out []repository.CostLine
	err := r.d.view(func(st *state) error {
		for _, d := range st.purchaseDetails {
			if d.ProductID != productID || !d.Active {
				continue
			}
			p, ok := st.purchases[d.PurchaseID]
			if !ok || !p.Active || p.Date.After(asOf) {
				continue
			}
			factor := decimal.Zero
			for _, c := range st.conversions {
				if c.ProductID == productID && c.OriginUnitID == d.UnitID {
					factor = c.Factor
					break
				}
			}
			out = append(out, repository.CostLine{
				PurchaseDetailID: d.ID,
				PurchaseDate:     p.Date,
				Quantity:         d.Quantity,
				UnitPrice:        d.UnitPrice,
				Factor:           factor,
			})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].PurchaseDate.Equal(out[j].PurchaseDate) {
				return out[i].PurchaseDetailID < out[j].PurchaseDetailID
			}
			return out[i].PurchaseDate.Before(out[j].PurchaseDate)
		})
		return nil
	})
	return out, err
}

// LotRepository implementa repository.LotRepository.
type LotRepository struct{ d *db }

func (r *LotRepository) Create(_ context.Context, l *entity.Lot) error {
	return r.d.view(func(st *state) error {
		if _, ok := st.purchaseDetails[l.PurchaseDetailID]; !ok {
			return fmt.Errorf("lot create: línea de compra %s inexistente", l.PurchaseDetailID)
		}
		st.lots[l.ID] = *l
		return nil
	})
}

func (r *LotRepository) GetByID(_ context.Context, id string) (*entity.Lot, error) {
	var out *entity.Lot
	err := r.d.view(func(st *state) error {
		if l, ok := st.lots[id]; ok {
			out = &l
		}
		return nil
	})
	return out, err
}

// GetForUpdate dentro de Store.Run el mutex global ya serializa; fuera de tx es una lectura simple.
func (r *LotRepository) GetForUpdate(ctx context.Context, id string) (*entity.Lot, error) {
	return r.GetByID(ctx, id)
}

func (r *LotRepository) Deactivate(_ context.Context, id string) error {
	return r.d.view(func(st *state) error {
		l, ok := st.lots[id]
		if !ok {
			return fmt.Errorf("lot deactivate: %w", domain.ErrNotFound)
		}
		l.Active = false
		st.lots[id] = l
		return nil
	})
}

func (r *LotRepository) ListByProduct(_ context.Context, productID string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	err := r.d.view(func(st *state) error {
		for _, l := range st.lots {
			if l.ProductID == productID {
				out = append(out, &l)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].Code < out[j].Code
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

// MovementRepository implementa repository.MovementRepository. Solo agrega y lee.
type MovementRepository struct{ d *db }

func (r *MovementRepository) Append(_ context.Context, m *entity.MovementRecord) error {
	return r.d.view(func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *MovementRepository) SumExtractedBase(_ context.Context, lotID string) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.d.view(func(st *state) error {
		for _, m := range st.movements {
			if m.LotID == lotID && m.Kind == entity.MovementKindExit && m.ReferenceKind == entity.ReferenceExtraction {
				total = total.Add(m.QuantityBase)
			}
		}
		return nil
	})
	return total, err
}

func (r *MovementRepository) List(_ context.Context, f repository.MovementFilter) ([]*entity.MovementRecord, error) {
	var out []*entity.MovementRecord
	err := r.d.view(func(st *state) error {
		list := make([]*entity.MovementRecord, 0)
		for _, m := range st.movements {
			switch {
			case f.ProductID != "" && m.ProductID != f.ProductID,
				f.LotID != "" && m.LotID != f.LotID,
				f.Kind != "" && m.Kind != f.Kind,
				f.From != nil && m.CreatedAt.Before(*f.From),
				f.To != nil && m.CreatedAt.After(*f.To):
				continue
			}
			list = append(list, &m)
		}
		out = page(list, f.Limit, f.Offset)
		return nil
	})
	return out, err
}
