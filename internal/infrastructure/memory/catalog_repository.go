package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
)

// ProductRepository implementa repository.ProductRepository.
type ProductRepository struct{ d *db }

func (r *ProductRepository) Create(_ context.Context, p *entity.Product) error {
	return r.d.view(func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return fmt.Errorf("product create: %w", domain.ErrDuplicate)
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.d.view(func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *ProductRepository) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.d.view(func(st *state) error {
		list := make([]*entity.Product, 0, len(st.products))
		for _, p := range st.products {
			list = append(list, &p)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		out = page(list, limit, offset)
		return nil
	})
	return out, err
}

// UnitRepository implementa repository.UnitRepository.
type UnitRepository struct{ d *db }

func (r *UnitRepository) Create(_ context.Context, u *entity.Unit) error {
	return r.d.view(func(st *state) error {
		for _, existing := range st.units {
			if existing.Name == u.Name {
				return fmt.Errorf("unit create: %w", domain.ErrDuplicate)
			}
		}
		st.units[u.ID] = *u
		return nil
	})
}

func (r *UnitRepository) GetByID(_ context.Context, id string) (*entity.Unit, error) {
	var out *entity.Unit
	err := r.d.view(func(st *state) error {
		if u, ok := st.units[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *UnitRepository) List(_ context.Context) ([]*entity.Unit, error) {
	var out []*entity.Unit
	err := r.d.view(func(st *state) error {
		out = make([]*entity.Unit, 0, len(st.units))
		for _, u := range st.units {
			out = append(out, &u)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

// SupplierRepository implementa repository.SupplierRepository.
type SupplierRepository struct{ d *db }

func (r *SupplierRepository) Create(_ context.Context, s *entity.Supplier) error {
	return r.d.view(func(st *state) error {
		st.suppliers[s.ID] = *s
		return nil
	})
}

func (r *SupplierRepository) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	var out *entity.Supplier
	err := r.d.view(func(st *state) error {
		if s, ok := st.suppliers[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *SupplierRepository) List(_ context.Context, limit, offset int) ([]*entity.Supplier, error) {
	var out []*entity.Supplier
	err := r.d.view(func(st *state) error {
		list := make([]*entity.Supplier, 0, len(st.suppliers))
		for _, s := range st.suppliers {
			list = append(list, &s)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		out = page(list, limit, offset)
		return nil
	})
	return out, err
}

// UnitConversionRepository implementa repository.UnitConversionRepository.
type UnitConversionRepository struct{ d *db }

func (r *UnitConversionRepository) Create(_ context.Context, c *entity.UnitConversion) error {
	return r.d.view(func(st *state) error {
		for _, existing := range st.conversions {
			if existing.ProductID == c.ProductID && existing.OriginUnitID == c.OriginUnitID {
				return fmt.Errorf("conversion create: %w", domain.ErrDuplicate)
			}
		}
		st.conversions[c.ID] = *c
		return nil
	})
}

func (r *UnitConversionRepository) Update(_ context.Context, c *entity.UnitConversion) error {
	return r.d.view(func(st *state) error {
		existing, ok := st.conversions[c.ID]
		if !ok {
			return fmt.Errorf("conversion update: %w", domain.ErrNotFound)
		}
		existing.Price = c.Price
		existing.Active = c.Active
		existing.UpdatedAt = c.UpdatedAt
		st.conversions[c.ID] = existing
		return nil
	})
}

func (r *UnitConversionRepository) GetByProductAndUnit(_ context.Context, productID, unitID string) (*entity.UnitConversion, error) {
	var out *entity.UnitConversion
	err := r.d.view(func(st *state) error {
		for _, c := range st.conversions {
			if c.ProductID == productID && c.OriginUnitID == unitID {
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *UnitConversionRepository) ListByProduct(_ context.Context, productID string) ([]*entity.UnitConversion, error) {
	var out []*entity.UnitConversion
	err := r.d.view(func(st *state) error {
		for _, c := range st.conversions {
			if c.ProductID == productID {
				out = append(out, &c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Factor.LessThan(out[j].Factor) })
		return nil
	})
	return out, err
}
