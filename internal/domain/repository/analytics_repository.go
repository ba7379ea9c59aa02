package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SaleLineRow línea de venta aplanada para costo de ventas y rentabilidad.
type SaleLineRow struct {
	SaleDetailID string
	SaleID       string
	SaleDate     time.Time
	ProductID    string
	ProductName  string
	QuantityBase decimal.Decimal
	Revenue      decimal.Decimal // total de la línea (subtotal - descuento)
}

// LotInvestmentRow resultado crudo por lote para el análisis de recuperación de inversión.
type LotInvestmentRow struct {
	LotID               string
	LotCode             string
	ProductID           string
	ProductName         string
	ExpiresAt           *time.Time
	InitialQuantityBase decimal.Decimal
	ExtractedBase       decimal.Decimal
	Investment          decimal.Decimal // total de la línea de compra que originó el lote
	Revenue             decimal.Decimal // ventas sobre entradas extraídas del lote
	Active              bool
}

// AnalyticsRepository consultas de lectura para costos y rentabilidad.
// Las implementaciones son read-only y no toman bloqueos.
type AnalyticsRepository interface {
	ListSaleLines(ctx context.Context, startDate, endDate time.Time) ([]SaleLineRow, error)
	// ListLotInvestments lista los lotes (de un producto si productID no está vacío).
	ListLotInvestments(ctx context.Context, productID string) ([]LotInvestmentRow, error)
}
