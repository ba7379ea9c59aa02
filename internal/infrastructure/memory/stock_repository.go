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

// StockEntryRepository implementa repository.StockEntryRepository.
type StockEntryRepository struct{ d *db }

func (r *StockEntryRepository) Create(_ context.Context, e *entity.StockEntry) error {
	return r.d.view(func(st *state) error {
		if e.AvailableQuantity.LessThan(decimal.Zero) {
			return fmt.Errorf("stock entry create: cantidad disponible negativa")
		}
		st.entries[e.ID] = *e
		return nil
	})
}

func (r *StockEntryRepository) GetByID(_ context.Context, id string) (*entity.StockEntry, error) {
	var out *entity.StockEntry
	err := r.d.view(func(st *state) error {
		if e, ok := st.entries[id]; ok {
			out = &e
		}
		return nil
	})
	return out, err
}

func (r *StockEntryRepository) GetForUpdate(ctx context.Context, id string) (*entity.StockEntry, error) {
	return r.GetByID(ctx, id)
}

func (r *StockEntryRepository) Update(_ context.Context, e *entity.StockEntry) error {
	return r.d.view(func(st *state) error {
		existing, ok := st.entries[e.ID]
		if !ok {
			return fmt.Errorf("stock entry update: %w", domain.ErrNotFound)
		}
		if e.AvailableQuantity.LessThan(decimal.Zero) {
			return fmt.Errorf("stock entry update: cantidad disponible negativa")
		}
		existing.Quantity = e.Quantity
		existing.AvailableQuantity = e.AvailableQuantity
		existing.QuantityBase = e.QuantityBase
		existing.Active = e.Active
		existing.UpdatedAt = e.UpdatedAt
		st.entries[e.ID] = existing
		return nil
	})
}

func (r *StockEntryRepository) FindActiveForUpdate(_ context.Context, productID, lotID, unitID, source string) (*entity.StockEntry, error) {
	var out *entity.StockEntry
	err := r.d.view(func(st *state) error {
		for _, e := range st.entries {
			if e.Active && e.ProductID == productID && e.LotID == lotID && e.UnitID == unitID && e.Source == source {
				out = &e
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *StockEntryRepository) ListByLot(_ context.Context, lotID string) ([]*entity.StockEntry, error) {
	var out []*entity.StockEntry
	err := r.d.view(func(st *state) error {
		for _, e := range st.entries {
			if e.LotID == lotID {
				out = append(out, &e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r *StockEntryRepository) ListAvailable(_ context.Context, f repository.StockFilter) ([]repository.AvailableStockRow, error) {
	var out []repository.AvailableStockRow
	err := r.d.view(func(st *state) error {
		for _, e := range st.entries {
			if !e.Active || (f.ProductID != "" && e.ProductID != f.ProductID) {
				continue
			}
			lot, hasLot := st.lots[e.LotID]
			switch e.Source {
			case entity.StockSourceExtraction:
				if !e.AvailableQuantity.GreaterThan(decimal.Zero) {
					continue
				}
			case entity.StockSourceReceipt:
				if !f.IncludeWarehouse || !hasLot || !lot.Active {
					continue
				}
			default:
				continue
			}
			activeCodes := 0
			for _, c := range st.codes {
				if c.Active && c.StockEntryID == e.ID {
					activeCodes++
				}
			}
			out = append(out, repository.AvailableStockRow{
				StockEntryID:      e.ID,
				ProductID:         e.ProductID,
				ProductName:       st.products[e.ProductID].Name,
				LotID:             e.LotID,
				LotCode:           lot.Code,
				UnitID:            e.UnitID,
				UnitName:          st.units[e.UnitID].Name,
				Source:            e.Source,
				Quantity:          e.Quantity,
				AvailableQuantity: e.AvailableQuantity,
				QuantityBase:      e.QuantityBase,
				UnitPrice:         e.UnitPrice,
				ExpiresAt:         e.ExpiresAt,
				ActiveCodes:       activeCodes,
			})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].ProductName != out[j].ProductName {
				return out[i].ProductName < out[j].ProductName
			}
			if out[i].Source != out[j].Source {
				return sourceRank(out[i].Source) < sourceRank(out[j].Source)
			}
			return out[i].StockEntryID < out[j].StockEntryID
		})
		return nil
	})
	return out, err
}

// sourceRank ordena el stock vendible (EXTRACTION) antes que la posición de bodega (RECEIPT).
func sourceRank(source string) int {
	if source == entity.StockSourceExtraction {
		return 0
	}
	return 1
}

// IdentityCodeRepository implementa repository.IdentityCodeRepository.
// La unicidad de códigos activos es global, sin importar el producto.
type IdentityCodeRepository struct{ d *db }

func (r *IdentityCodeRepository) Create(_ context.Context, c *entity.IdentityCode) error {
	return r.d.view(func(st *state) error {
		for _, existing := range st.codes {
			if existing.Active && existing.Code == c.Code {
				return &domain.DuplicateIdentityCodeError{Code: c.Code}
			}
		}
		if _, ok := st.entries[c.StockEntryID]; !ok {
			return fmt.Errorf("identity code create: entrada %s inexistente", c.StockEntryID)
		}
		st.codes[c.ID] = *c
		return nil
	})
}

func (r *IdentityCodeRepository) GetActiveByCodeForUpdate(_ context.Context, code string) (*entity.IdentityCode, error) {
	var out *entity.IdentityCode
	err := r.d.view(func(st *state) error {
		for _, c := range st.codes {
			if c.Active && c.Code == code {
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *IdentityCodeRepository) GetActiveByCode(ctx context.Context, code string) (*entity.IdentityCode, error) {
	return r.GetActiveByCodeForUpdate(ctx, code)
}

func (r *IdentityCodeRepository) ExistsActive(ctx context.Context, code string) (bool, error) {
	c, err := r.GetActiveByCodeForUpdate(ctx, code)
	return c != nil, err
}

func (r *IdentityCodeRepository) Consume(_ context.Context, id, saleDetailID string, at time.Time) error {
	return r.d.view(func(st *state) error {
		c, ok := st.codes[id]
		if !ok || !c.Active {
			return fmt.Errorf("identity code consume: %w", domain.NotFound("código de identidad", id))
		}
		c.Active = false
		c.SaleDetailID = saleDetailID
		c.ConsumedAt = &at
		st.codes[id] = c
		return nil
	})
}

func (r *IdentityCodeRepository) ReleaseByStockEntry(_ context.Context, stockEntryID string) (int, error) {
	n := 0
	err := r.d.view(func(st *state) error {
		for id, c := range st.codes {
			if c.Active && c.StockEntryID == stockEntryID {
				c.Active = false
				st.codes[id] = c
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *IdentityCodeRepository) CountActiveByStockEntry(_ context.Context, stockEntryID string) (int, error) {
	n := 0
	err := r.d.view(func(st *state) error {
		for _, c := range st.codes {
			if c.Active && c.StockEntryID == stockEntryID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *IdentityCodeRepository) ListByStockEntry(_ context.Context, stockEntryID string) ([]*entity.IdentityCode, error) {
	var out []*entity.IdentityCode
	err := r.d.view(func(st *state) error {
		for _, c := range st.codes {
			if c.StockEntryID == stockEntryID {
				out = append(out, &c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
		return nil
	})
	return out, err
}

// SaleRepository implementa repository.SaleRepository.
type SaleRepository struct{ d *db }

func (r *SaleRepository) NextNumber(_ context.Context) (int64, error) {
	var n int64
	err := r.d.view(func(st *state) error {
		st.saleSeq++
		n = st.saleSeq
		return nil
	})
	return n, err
}

func (r *SaleRepository) Create(_ context.Context, s *entity.Sale) error {
	return r.d.view(func(st *state) error {
		st.sales[s.ID] = *s
		return nil
	})
}

func (r *SaleRepository) CreateDetail(_ context.Context, d *entity.SaleDetail) error {
	return r.d.view(func(st *state) error {
		if _, ok := st.sales[d.SaleID]; !ok {
			return fmt.Errorf("sale detail create: venta %s inexistente", d.SaleID)
		}
		st.saleDetails[d.ID] = *d
		return nil
	})
}

func (r *SaleRepository) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	var out *entity.Sale
	err := r.d.view(func(st *state) error {
		if s, ok := st.sales[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *SaleRepository) GetDetailsBySaleID(_ context.Context, saleID string) ([]*entity.SaleDetail, error) {
	var out []*entity.SaleDetail
	err := r.d.view(func(st *state) error {
		for _, d := range st.saleDetails {
			if d.SaleID == saleID {
				out = append(out, &d)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}
