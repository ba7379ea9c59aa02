package entity

import "time"

// Supplier proveedor al que se le registran compras.
type Supplier struct {
	ID        string
	Name      string
	TaxID     string // NIT o RUC
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
