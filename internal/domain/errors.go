package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas salvo decimal).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrConfiguration     = errors.New("configuración de unidades incompleta")
	ErrTransaction       = errors.New("fallo de transacción")
)

// ValidationError campo mal formado o faltante; se detecta antes de cualquier escritura.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Reason
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid atajo para construir un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConfigurationError falta la conversión base (factor 1) o la de la unidad pedida.
type ConfigurationError struct {
	ProductID string
	UnitID    string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.UnitID == "" {
		return fmt.Sprintf("configuración: producto %s: %s", e.ProductID, e.Reason)
	}
	return fmt.Sprintf("configuración: producto %s, unidad %s: %s", e.ProductID, e.UnitID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// InsufficientStockError la extracción o venta supera la disponibilidad derivada.
// Available y Requested se expresan en la unidad de la operación (base para lotes).
type InsufficientStockError struct {
	LotID        string
	StockEntryID string
	Available    decimal.Decimal
	Requested    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	target := "lote " + e.LotID
	if e.StockEntryID != "" {
		target = "entrada de stock " + e.StockEntryID
	}
	return fmt.Sprintf("stock insuficiente en %s: disponible %s, solicitado %s",
		target, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// DuplicateIdentityCodeError el código ya está activo en otra unidad (o repetido en la misma solicitud).
type DuplicateIdentityCodeError struct {
	Code string
}

func (e *DuplicateIdentityCodeError) Error() string {
	return fmt.Sprintf("código de identidad duplicado: %q", e.Code)
}

func (e *DuplicateIdentityCodeError) Unwrap() error { return ErrDuplicate }

// NotFoundError lote, producto, entrada o código inexistente o inactivo.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s no encontrado: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound atajo para construir un NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// TransactionFailure fallo inesperado dentro de una escritura de varios pasos.
// El llamador solo ve CorrelationID; la causa queda en el log.
type TransactionFailure struct {
	Operation     string
	CorrelationID string
	Err           error
}

func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("%s: operación revertida (ref %s)", e.Operation, e.CorrelationID)
}

// Unwrap expone el sentinel y la causa original.
func (e *TransactionFailure) Unwrap() []error { return []error{ErrTransaction, e.Err} }

// IsDomainError indica si err pertenece a la taxonomía recuperable
// (validación, configuración, stock, duplicado, no encontrado).
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict)
}
