package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Query parameters ──────────────────────────────────────────────────────────

// WeightedCostRequest parámetros para GET /api/reports/weighted-cost.
type WeightedCostRequest struct {
	ProductID string `query:"product_id" validate:"required"`
	AsOf      string `query:"as_of"` // YYYY-MM-DD; por defecto hoy
}

// PeriodRequest parámetros de rango para los reportes por período.
type PeriodRequest struct {
	StartDate string `query:"start_date"` // YYYY-MM-DD; por defecto primer día del mes actual
	EndDate   string `query:"end_date"`   // YYYY-MM-DD; por defecto hoy
}

// ── Costo promedio ────────────────────────────────────────────────────────────

// WeightedCostResponse costo promedio ponderado por unidad base.
type WeightedCostResponse struct {
	ProductID       string          `json:"product_id"`
	AsOf            string          `json:"as_of"`
	AverageCostBase decimal.Decimal `json:"average_cost_base"`
}

// SaleLineCOGSDTO costo de ventas de una línea al costo promedio vigente a la fecha de venta.
type SaleLineCOGSDTO struct {
	SaleDetailID    string          `json:"sale_detail_id"`
	SaleID          string          `json:"sale_id"`
	SaleDate        time.Time       `json:"sale_date"`
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	QuantityBase    decimal.Decimal `json:"quantity_base"`
	Revenue         decimal.Decimal `json:"revenue"`
	AverageCostBase decimal.Decimal `json:"average_cost_base"`
	COGS            decimal.Decimal `json:"cogs"`
}

// ── Rentabilidad ──────────────────────────────────────────────────────────────

// PeriodDTO rango de fechas del reporte.
type PeriodDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ProductProfitabilityDTO margen por producto en el período.
type ProductProfitabilityDTO struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	UnitsSoldBase decimal.Decimal `json:"units_sold_base"`
	Revenue       decimal.Decimal `json:"revenue"`
	COGS          decimal.Decimal `json:"cogs"`
	GrossMargin   decimal.Decimal `json:"gross_margin"` // Revenue - COGS
	MarginPct     decimal.Decimal `json:"margin_pct"`   // GrossMargin / Revenue * 100
}

// ProfitabilityReportDTO respuesta de GET /api/reports/profitability.
type ProfitabilityReportDTO struct {
	Period       PeriodDTO                 `json:"period"`
	TotalRevenue decimal.Decimal           `json:"total_revenue"`
	TotalCOGS    decimal.Decimal           `json:"total_cogs"`
	TotalMargin  decimal.Decimal           `json:"total_margin"`
	MarginPct    decimal.Decimal           `json:"margin_pct"`
	Products     []ProductProfitabilityDTO `json:"products"`
}

// ── Recuperación de inversión por lote ────────────────────────────────────────

// LotRecoveryDTO inversión y recuperación de un lote.
type LotRecoveryDTO struct {
	LotID         string          `json:"lot_id"`
	LotCode       string          `json:"lot_code"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Investment    decimal.Decimal `json:"investment"`
	Revenue       decimal.Decimal `json:"revenue"`
	RecoveryPct   decimal.Decimal `json:"recovery_pct"` // Revenue / Investment * 100
	InitialBase   decimal.Decimal `json:"initial_base"`
	ExtractedBase decimal.Decimal `json:"extracted_base"`
	AvailableBase decimal.Decimal `json:"available_base"`
	Status        string          `json:"status"`
}

// LotRecoveryReportDTO respuesta de GET /api/reports/lot-recovery.
type LotRecoveryReportDTO struct {
	Lots            []LotRecoveryDTO `json:"lots"`
	TotalInvestment decimal.Decimal  `json:"total_investment"`
	TotalRevenue    decimal.Decimal  `json:"total_revenue"`
	RecoveryPct     decimal.Decimal  `json:"recovery_pct"`
}

// ValuationSummaryDTO ambos reportes calculados en paralelo; un fallo queda aislado en Errors.
type ValuationSummaryDTO struct {
	Profitability *ProfitabilityReportDTO `json:"profitability,omitempty"`
	LotRecovery   *LotRecoveryReportDTO   `json:"lot_recovery,omitempty"`
	Errors        map[string]string       `json:"errors,omitempty"`
}
