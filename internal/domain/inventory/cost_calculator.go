package inventory

import "github.com/shopspring/decimal"

// CostLine línea de compra para el promedio ponderado.
type CostLine struct {
	Quantity  decimal.Decimal // en la unidad de compra
	UnitPrice decimal.Decimal // precio de la unidad de compra
	Factor    decimal.Decimal // unidades base por unidad de compra
}

// WeightedAverageCost implementa el costo promedio ponderado por unidad base (servicio de dominio).
// CostoBase_i = PrecioUnidad_i / Factor_i ; CantBase_i = Cantidad_i * Factor_i
// Promedio = Σ(CantBase_i * CostoBase_i) / Σ(CantBase_i); 0 si el denominador es 0.
// CantBase_i * CostoBase_i se acumula como Cantidad_i * PrecioUnidad_i, que es el mismo
// valor sin la división intermedia.
func WeightedAverageCost(lines []CostLine) decimal.Decimal {
	num := decimal.Zero
	den := decimal.Zero
	for _, l := range lines {
		if !l.Factor.GreaterThan(decimal.Zero) || !l.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		num = num.Add(l.Quantity.Mul(l.UnitPrice))
		den = den.Add(l.Quantity.Mul(l.Factor))
	}
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// COGS costo de ventas de una línea: unidades base vendidas por costo promedio base.
func COGS(unitsSoldBase, averageCostBase decimal.Decimal) decimal.Decimal {
	return unitsSoldBase.Mul(averageCostBase)
}

// RecoveryPercent porcentaje de recuperación de inversión de un lote (0 si no hubo inversión).
func RecoveryPercent(revenue, investment decimal.Decimal) decimal.Decimal {
	if !investment.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	return revenue.Div(investment).Mul(decimal.NewFromInt(100))
}
