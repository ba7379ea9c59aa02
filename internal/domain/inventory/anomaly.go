package inventory

import (
	"strings"

	"github.com/jhoicas/minimarket-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Códigos de anomalía del kardex.
const (
	AnomalyAdjustmentOverThreshold = "ADJUSTMENT_OVER_THRESHOLD"
	AnomalyExitWithoutReference    = "EXIT_WITHOUT_REFERENCE"
	AnomalyReceiptWithoutLot       = "RECEIPT_WITHOUT_LOT"
)

// DefaultAdjustmentThreshold umbral en unidades base para marcar ajustes grandes.
var DefaultAdjustmentThreshold = decimal.NewFromInt(50)

// Anomaly registro marcado con su motivo.
type Anomaly struct {
	Record *entity.MovementRecord
	Reason string
}

// ScanAnomalies evalúa reglas sobre una ventana de registros. No modifica nada.
// Un registro puede aparecer varias veces si incumple más de una regla.
func ScanAnomalies(records []*entity.MovementRecord, threshold decimal.Decimal) []Anomaly {
	if !threshold.GreaterThan(decimal.Zero) {
		threshold = DefaultAdjustmentThreshold
	}
	var out []Anomaly
	for _, r := range records {
		for _, reason := range recordAnomalies(r, threshold) {
			out = append(out, Anomaly{Record: r, Reason: reason})
		}
	}
	return out
}

// AnomalyReasons motivos de un registro individual (vacío si está limpio).
func AnomalyReasons(r *entity.MovementRecord, threshold decimal.Decimal) []string {
	if !threshold.GreaterThan(decimal.Zero) {
		threshold = DefaultAdjustmentThreshold
	}
	return recordAnomalies(r, threshold)
}

func recordAnomalies(r *entity.MovementRecord, threshold decimal.Decimal) []string {
	if r == nil {
		return nil
	}
	var reasons []string
	switch r.Kind {
	case entity.MovementKindAdjustment:
		if r.QuantityBase.Abs().GreaterThan(threshold) {
			reasons = append(reasons, AnomalyAdjustmentOverThreshold)
		}
	case entity.MovementKindExit:
		if strings.TrimSpace(r.ReferenceID) == "" {
			reasons = append(reasons, AnomalyExitWithoutReference)
		}
	case entity.MovementKindReceipt:
		if strings.TrimSpace(r.LotID) == "" {
			reasons = append(reasons, AnomalyReceiptWithoutLot)
		}
	}
	return reasons
}
