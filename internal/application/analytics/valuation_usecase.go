// Package analytics contiene la valorización de inventario: costo promedio ponderado,
// costo de ventas, rentabilidad por producto y recuperación de inversión por lote.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/jhoicas/minimarket-api/internal/domain/inventory"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// ValuationUseCase lee compras, ventas y kardex sin modificarlos.
//
// Las consultas no toman bloqueos: pueden ver datos levemente desfasados respecto a
// escrituras en curso, lo cual se acepta solo en reportes.
type ValuationUseCase struct {
	products  repository.ProductRepository
	purchases repository.PurchaseRepository
	analytics repository.AnalyticsRepository
	log       *logger.Logger
}

// NewValuationUseCase construye el caso de uso.
func NewValuationUseCase(repos repository.Repositories, log *logger.Logger) *ValuationUseCase {
	return &ValuationUseCase{
		products:  repos.Products,
		purchases: repos.Purchases,
		analytics: repos.Analytics,
		log:       log.Named("valuation"),
	}
}

// WeightedAverageCost costo promedio por unidad base con las líneas de compra activas
// fechadas hasta asOf (inclusive). 0 si no hay compras.
// Con el mismo historial devuelve siempre el mismo valor.
func (uc *ValuationUseCase) WeightedAverageCost(ctx context.Context, productID string, asOf time.Time) (decimal.Decimal, error) {
	product, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if product == nil {
		return decimal.Zero, domain.NotFound("producto", productID)
	}
	return uc.averageCost(ctx, productID, asOf)
}

func (uc *ValuationUseCase) averageCost(ctx context.Context, productID string, asOf time.Time) (decimal.Decimal, error) {
	rows, err := uc.purchases.ListCostLines(ctx, productID, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("costo promedio: %w", err)
	}
	lines := make([]inventory.CostLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, inventory.CostLine{Quantity: r.Quantity, UnitPrice: r.UnitPrice, Factor: r.Factor})
	}
	return inventory.WeightedAverageCost(lines), nil
}

// GetWeightedCost adapta WeightedAverageCost a los parámetros HTTP. as_of vacío = hoy.
func (uc *ValuationUseCase) GetWeightedCost(ctx context.Context, req dto.WeightedCostRequest) (*dto.WeightedCostResponse, error) {
	if req.ProductID == "" {
		return nil, domain.Invalid("product_id", "requerido")
	}
	day := time.Now()
	if req.AsOf != "" {
		t, err := time.Parse(dateLayout, req.AsOf)
		if err != nil {
			return nil, domain.Invalid("as_of", "formato esperado YYYY-MM-DD")
		}
		day = t
	}
	asOf := endOfDay(day)
	avg, err := uc.WeightedAverageCost(ctx, req.ProductID, asOf)
	if err != nil {
		return nil, err
	}
	return &dto.WeightedCostResponse{
		ProductID:       req.ProductID,
		AsOf:            asOf.Format(dateLayout),
		AverageCostBase: avg.Round(4),
	}, nil
}

// SaleLineCOGS costo de ventas de cada línea vendida en el período:
// unidades base vendidas × costo promedio base vigente a la fecha de la venta.
func (uc *ValuationUseCase) SaleLineCOGS(ctx context.Context, start, end time.Time) ([]dto.SaleLineCOGSDTO, error) {
	rows, err := uc.analytics.ListSaleLines(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("costo de ventas: %w", err)
	}
	type costKey struct {
		productID string
		at        time.Time
	}
	cache := make(map[costKey]decimal.Decimal)
	out := make([]dto.SaleLineCOGSDTO, 0, len(rows))
	for _, r := range rows {
		key := costKey{r.ProductID, r.SaleDate}
		avg, ok := cache[key]
		if !ok {
			if avg, err = uc.averageCost(ctx, r.ProductID, r.SaleDate); err != nil {
				return nil, err
			}
			cache[key] = avg
		}
		out = append(out, dto.SaleLineCOGSDTO{
			SaleDetailID:    r.SaleDetailID,
			SaleID:          r.SaleID,
			SaleDate:        r.SaleDate,
			ProductID:       r.ProductID,
			ProductName:     r.ProductName,
			QuantityBase:    r.QuantityBase,
			Revenue:         r.Revenue,
			AverageCostBase: avg,
			COGS:            inventory.COGS(r.QuantityBase, avg),
		})
	}
	return out, nil
}

// ProfitabilityReport ingresos, costo de ventas y margen por producto en el período.
func (uc *ValuationUseCase) ProfitabilityReport(ctx context.Context, req dto.PeriodRequest) (*dto.ProfitabilityReportDTO, error) {
	start, end, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	lines, err := uc.SaleLineCOGS(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*dto.ProductProfitabilityDTO)
	order := make([]string, 0)
	report := &dto.ProfitabilityReportDTO{
		Period: dto.PeriodDTO{StartDate: start.Format(dateLayout), EndDate: end.Format(dateLayout)},
	}
	for _, l := range lines {
		p, ok := byProduct[l.ProductID]
		if !ok {
			p = &dto.ProductProfitabilityDTO{ProductID: l.ProductID, ProductName: l.ProductName}
			byProduct[l.ProductID] = p
			order = append(order, l.ProductID)
		}
		p.UnitsSoldBase = p.UnitsSoldBase.Add(l.QuantityBase)
		p.Revenue = p.Revenue.Add(l.Revenue)
		p.COGS = p.COGS.Add(l.COGS)
		report.TotalRevenue = report.TotalRevenue.Add(l.Revenue)
		report.TotalCOGS = report.TotalCOGS.Add(l.COGS)
	}

	report.Products = make([]dto.ProductProfitabilityDTO, 0, len(order))
	for _, id := range order {
		p := byProduct[id]
		p.GrossMargin = p.Revenue.Sub(p.COGS).Round(2)
		p.MarginPct = marginPct(p.Revenue, p.Revenue.Sub(p.COGS))
		p.Revenue = p.Revenue.Round(2)
		p.COGS = p.COGS.Round(2)
		report.Products = append(report.Products, *p)
	}
	sort.SliceStable(report.Products, func(i, j int) bool {
		return report.Products[i].GrossMargin.GreaterThan(report.Products[j].GrossMargin)
	})

	margin := report.TotalRevenue.Sub(report.TotalCOGS)
	report.MarginPct = marginPct(report.TotalRevenue, margin)
	report.TotalMargin = margin.Round(2)
	report.TotalRevenue = report.TotalRevenue.Round(2)
	report.TotalCOGS = report.TotalCOGS.Round(2)
	return report, nil
}

// LotRecoveryReport inversión de cada lote frente a lo vendido de sus entradas extraídas.
// productID vacío incluye todos los lotes.
func (uc *ValuationUseCase) LotRecoveryReport(ctx context.Context, productID string) (*dto.LotRecoveryReportDTO, error) {
	rows, err := uc.analytics.ListLotInvestments(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("recuperación por lote: %w", err)
	}
	report := &dto.LotRecoveryReportDTO{Lots: make([]dto.LotRecoveryDTO, 0, len(rows))}
	for _, r := range rows {
		st := inventory.DeriveLotState(&entity.Lot{
			ID:                  r.LotID,
			InitialQuantityBase: r.InitialQuantityBase,
			Active:              r.Active,
		}, r.ExtractedBase)
		report.TotalInvestment = report.TotalInvestment.Add(r.Investment)
		report.TotalRevenue = report.TotalRevenue.Add(r.Revenue)
		report.Lots = append(report.Lots, dto.LotRecoveryDTO{
			LotID:         r.LotID,
			LotCode:       r.LotCode,
			ProductID:     r.ProductID,
			ProductName:   r.ProductName,
			ExpiresAt:     r.ExpiresAt,
			Investment:    r.Investment.Round(2),
			Revenue:       r.Revenue.Round(2),
			RecoveryPct:   inventory.RecoveryPercent(r.Revenue, r.Investment).Round(2),
			InitialBase:   st.InitialBase,
			ExtractedBase: st.ExtractedBase,
			AvailableBase: st.AvailableBase,
			Status:        st.Status,
		})
	}
	report.RecoveryPct = inventory.RecoveryPercent(report.TotalRevenue, report.TotalInvestment).Round(2)
	report.TotalInvestment = report.TotalInvestment.Round(2)
	report.TotalRevenue = report.TotalRevenue.Round(2)
	return report, nil
}

// Summary calcula rentabilidad y recuperación por lote en paralelo.
// Un reporte que falla no tumba al otro: su error queda en Errors y en el log.
func (uc *ValuationUseCase) Summary(ctx context.Context, req dto.PeriodRequest, productID string) (*dto.ValuationSummaryDTO, error) {
	if _, _, err := parsePeriod(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	type profitResult struct {
		report *dto.ProfitabilityReportDTO
		err    error
	}
	type recoveryResult struct {
		report *dto.LotRecoveryReportDTO
		err    error
	}
	profitCh := make(chan profitResult, 1)
	recoveryCh := make(chan recoveryResult, 1)

	go func() {
		r, err := uc.ProfitabilityReport(ctx, req)
		profitCh <- profitResult{r, err}
	}()
	go func() {
		r, err := uc.LotRecoveryReport(ctx, productID)
		recoveryCh <- recoveryResult{r, err}
	}()

	profit := <-profitCh
	recovery := <-recoveryCh

	out := &dto.ValuationSummaryDTO{}
	if profit.err != nil {
		uc.reportFailed(out, "profitability", profit.err)
	} else {
		out.Profitability = profit.report
	}
	if recovery.err != nil {
		uc.reportFailed(out, "lot_recovery", recovery.err)
	} else {
		out.LotRecovery = recovery.report
	}
	return out, nil
}

func (uc *ValuationUseCase) reportFailed(out *dto.ValuationSummaryDTO, name string, err error) {
	uc.log.Error().Str("report", name).Err(err).Msg("reporte no disponible")
	if out.Errors == nil {
		out.Errors = make(map[string]string)
	}
	out.Errors[name] = err.Error()
}

// parsePeriod convierte YYYY-MM-DD a un rango [inicio del día, fin del día].
// Por defecto: primer día del mes actual hasta hoy.
func parsePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := now
	if startStr != "" {
		t, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, domain.Invalid("start_date", "formato esperado YYYY-MM-DD")
		}
		start = t
	}
	if endStr != "" {
		t, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, domain.Invalid("end_date", "formato esperado YYYY-MM-DD")
		}
		end = t
	}
	end = endOfDay(end)
	if start.After(end) {
		return time.Time{}, time.Time{}, domain.Invalid("start_date", "posterior a end_date")
	}
	return start, end, nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Add(24*time.Hour - time.Nanosecond)
}

func marginPct(revenue, margin decimal.Decimal) decimal.Decimal {
	if !revenue.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return margin.Div(revenue).Mul(hundred).Round(2)
}
