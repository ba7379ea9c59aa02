package inventory

import (
	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Estados derivados de un lote. Nunca se almacenan.
const (
	LotStatusAvailable = "AVAILABLE" // sin extracciones
	LotStatusPartial   = "PARTIAL"   // extraído parcialmente
	LotStatusExhausted = "EXHAUSTED" // sin cantidad por extraer
	LotStatusInactive  = "INACTIVE"  // desactivado manualmente
)

// LotState proyección calculada del lote a partir del kardex.
type LotState struct {
	LotID         string
	InitialBase   decimal.Decimal
	ExtractedBase decimal.Decimal
	AvailableBase decimal.Decimal
	Status        string
}

// DeriveLotState calcula disponible = inicial - Σ extraído y el estado correspondiente.
func DeriveLotState(lot *entity.Lot, extractedBase decimal.Decimal) LotState {
	available := lot.InitialQuantityBase.Sub(extractedBase)
	if available.LessThan(decimal.Zero) {
		available = decimal.Zero
	}
	st := LotState{
		LotID:         lot.ID,
		InitialBase:   lot.InitialQuantityBase,
		ExtractedBase: extractedBase,
		AvailableBase: available,
	}
	switch {
	case !lot.Active:
		st.Status = LotStatusInactive
	case available.IsZero():
		st.Status = LotStatusExhausted
	case extractedBase.IsZero():
		st.Status = LotStatusAvailable
	default:
		st.Status = LotStatusPartial
	}
	return st
}

// ExtractedFromMovements suma las salidas por extracción de un lote desde registros crudos del kardex.
func ExtractedFromMovements(lotID string, records []*entity.MovementRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.LotID == lotID && r.Kind == entity.MovementKindExit && r.ReferenceKind == entity.ReferenceExtraction {
			total = total.Add(r.QuantityBase)
		}
	}
	return total
}
