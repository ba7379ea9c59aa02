package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/minimarket-api/internal/application/analytics"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
)

// AnalyticsHandler maneja los reportes de costo promedio, rentabilidad y recuperación por lote.
type AnalyticsHandler struct {
	uc *analytics.ValuationUseCase
}

// NewAnalyticsHandler construye el handler.
func NewAnalyticsHandler(uc *analytics.ValuationUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

// GetWeightedCost godoc
// @Summary      Costo promedio ponderado por unidad base
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  true   "ID del producto"
// @Param        as_of       query  string  false  "Fecha de corte (YYYY-MM-DD). Default: hoy."
// @Success      200  {object}  dto.WeightedCostResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reports/weighted-cost [get]
func (h *AnalyticsHandler) GetWeightedCost(c *fiber.Ctx) error {
	var req dto.WeightedCostRequest
	if err := bindQuery(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.GetWeightedCost(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetProfitability godoc
// @Summary      Ingresos, costo de ventas y margen por producto
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        start_date  query  string  false  "Inicio del período (YYYY-MM-DD). Default: primer día del mes."
// @Param        end_date    query  string  false  "Fin del período (YYYY-MM-DD). Default: hoy."
// @Success      200  {object}  dto.ProfitabilityReportDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/profitability [get]
func (h *AnalyticsHandler) GetProfitability(c *fiber.Ctx) error {
	var req dto.PeriodRequest
	if err := bindQuery(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ProfitabilityReport(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetLotRecovery godoc
// @Summary      Recuperación de la inversión por lote
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Success      200  {object}  dto.LotRecoveryReportDTO
// @Router       /api/reports/lot-recovery [get]
func (h *AnalyticsHandler) GetLotRecovery(c *fiber.Ctx) error {
	out, err := h.uc.LotRecoveryReport(c.UserContext(), c.Query("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetSummary godoc
// @Summary      Rentabilidad y recuperación por lote en una sola llamada
// @Description  Ambos reportes se calculan en paralelo; si uno falla el otro se entrega igual
// @Description  y el fallo queda en "errors".
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        start_date  query  string  false  "Inicio del período (YYYY-MM-DD)"
// @Param        end_date    query  string  false  "Fin del período (YYYY-MM-DD)"
// @Param        product_id  query  string  false  "Filtrar recuperación por producto"
// @Success      200  {object}  dto.ValuationSummaryDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reports/summary [get]
func (h *AnalyticsHandler) GetSummary(c *fiber.Ctx) error {
	var req dto.PeriodRequest
	if err := bindQuery(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Summary(c.UserContext(), req, c.Query("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
