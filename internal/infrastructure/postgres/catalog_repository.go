package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository        = (*ProductRepo)(nil)
	_ repository.UnitRepository           = (*UnitRepo)(nil)
	_ repository.SupplierRepository       = (*SupplierRepo)(nil)
	_ repository.UnitConversionRepository = (*UnitConversionRepo)(nil)
)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, name, COALESCE(category_id, ''), COALESCE(supplier_id, ''), base_unit_id, active, created_at, updated_at`

func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	const query = `
		INSERT INTO products (id, name, category_id, supplier_id, base_unit_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.Name, nullIfEmpty(p.CategoryID), nullIfEmpty(p.SupplierID), p.BaseUnitID, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert product: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID; (nil, nil) si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.CategoryID, &p.SupplierID, &p.BaseUnitID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// List lista productos por nombre con paginación.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.SupplierID, &p.BaseUnitID, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// UnitRepo unidades de medida.
type UnitRepo struct {
	q Querier
}

func NewUnitRepository(q Querier) *UnitRepo {
	return &UnitRepo{q: q}
}

func (r *UnitRepo) Create(ctx context.Context, u *entity.Unit) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO units (id, name, abbreviation, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Name, u.Abbreviation, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert unit: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

func (r *UnitRepo) GetByID(ctx context.Context, id string) (*entity.Unit, error) {
	var u entity.Unit
	err := r.q.QueryRow(ctx, `SELECT id, name, abbreviation, created_at FROM units WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Abbreviation, &u.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &u, nil
}

func (r *UnitRepo) List(ctx context.Context) ([]*entity.Unit, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, abbreviation, created_at FROM units ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()
	var list []*entity.Unit
	for rows.Next() {
		var u entity.Unit
		if err := rows.Scan(&u.ID, &u.Name, &u.Abbreviation, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		list = append(list, &u)
	}
	return list, rows.Err()
}

// SupplierRepo proveedores.
type SupplierRepo struct {
	q Querier
}

func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

func (r *SupplierRepo) Create(ctx context.Context, s *entity.Supplier) error {
	const query = `
		INSERT INTO suppliers (id, name, tax_id, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.q.Exec(ctx, query, s.ID, s.Name, s.TaxID, s.Phone, s.Active, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (r *SupplierRepo) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.q.QueryRow(ctx,
		`SELECT id, name, tax_id, phone, active, created_at, updated_at FROM suppliers WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.TaxID, &s.Phone, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

func (r *SupplierRepo) List(ctx context.Context, limit, offset int) ([]*entity.Supplier, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, tax_id, phone, active, created_at, updated_at FROM suppliers ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()
	var list []*entity.Supplier
	for rows.Next() {
		var s entity.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.TaxID, &s.Phone, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// UnitConversionRepo filas de conversión por producto. El factor no se actualiza nunca.
type UnitConversionRepo struct {
	q Querier
}

func NewUnitConversionRepository(q Querier) *UnitConversionRepo {
	return &UnitConversionRepo{q: q}
}

const conversionColumns = `id, product_id, origin_unit_id, destination_unit_id, factor, price, active, created_at, updated_at`

func scanConversion(row interface{ Scan(...any) error }) (*entity.UnitConversion, error) {
	var c entity.UnitConversion
	err := row.Scan(&c.ID, &c.ProductID, &c.OriginUnitID, &c.DestinationUnitID, &c.Factor, &c.Price, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *UnitConversionRepo) Create(ctx context.Context, c *entity.UnitConversion) error {
	const query = `
		INSERT INTO unit_conversions (` + conversionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.ProductID, c.OriginUnitID, c.DestinationUnitID, c.Factor, c.Price, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert unit conversion: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert unit conversion: %w", err)
	}
	return nil
}

func (r *UnitConversionRepo) Update(ctx context.Context, c *entity.UnitConversion) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE unit_conversions SET price = $2, active = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.Price, c.Active, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update unit conversion: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("update unit conversion: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *UnitConversionRepo) GetByProductAndUnit(ctx context.Context, productID, unitID string) (*entity.UnitConversion, error) {
	c, err := scanConversion(r.q.QueryRow(ctx,
		`SELECT `+conversionColumns+` FROM unit_conversions WHERE product_id = $1 AND origin_unit_id = $2`,
		productID, unitID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit conversion: %w", err)
	}
	return c, nil
}

func (r *UnitConversionRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.UnitConversion, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+conversionColumns+` FROM unit_conversions WHERE product_id = $1 ORDER BY factor, created_at`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list unit conversions: %w", err)
	}
	defer rows.Close()
	var list []*entity.UnitConversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit conversion: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
