package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateUnitRequest entrada para crear una unidad de medida.
type CreateUnitRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=60"`
	Abbreviation string `json:"abbreviation" validate:"max=10"`
}

// UnitResponse salida de una unidad.
type UnitResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateSupplierRequest entrada para crear un proveedor.
type CreateSupplierRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	TaxID string `json:"tax_id" validate:"max=30"`
	Phone string `json:"phone" validate:"max=30"`
}

// SupplierResponse salida de un proveedor.
type SupplierResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SupplierListResponse lista paginada de proveedores.
type SupplierListResponse struct {
	Items []SupplierResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ConversionInput "1 unidad = factor unidades base" con su precio de venta sugerido.
type ConversionInput struct {
	UnitID string          `json:"unit_id" validate:"required"`
	Factor decimal.Decimal `json:"factor"`
	Price  decimal.Decimal `json:"price"`
}

// CreateProductRequest entrada para crear un producto junto con su fila base (factor 1).
type CreateProductRequest struct {
	Name        string            `json:"name" validate:"required,min=1,max=200"`
	CategoryID  string            `json:"category_id"`
	SupplierID  string            `json:"supplier_id"`
	BaseUnitID  string            `json:"base_unit_id" validate:"required"`
	BasePrice   decimal.Decimal   `json:"base_price"`
	Conversions []ConversionInput `json:"conversions" validate:"dive"`
}

// ConversionResponse fila de conversión de un producto.
type ConversionResponse struct {
	ID     string          `json:"id"`
	UnitID string          `json:"unit_id"`
	Factor decimal.Decimal `json:"factor"`
	Price  decimal.Decimal `json:"price"`
	IsBase bool            `json:"is_base"`
	Active bool            `json:"active"`
}

// ProductResponse salida de un producto con sus conversiones.
type ProductResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	CategoryID  string               `json:"category_id,omitempty"`
	SupplierID  string               `json:"supplier_id,omitempty"`
	BaseUnitID  string               `json:"base_unit_id"`
	Active      bool                 `json:"active"`
	Conversions []ConversionResponse `json:"conversions"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
