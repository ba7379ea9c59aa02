package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// StockErrorResponse cuerpo de 409 INSUFFICIENT_STOCK con las cantidades en conflicto.
type StockErrorResponse struct {
	Code         string          `json:"code"`
	Message      string          `json:"message"`
	LotID        string          `json:"lot_id,omitempty"`
	StockEntryID string          `json:"stock_entry_id,omitempty"`
	Available    decimal.Decimal `json:"available"`
	Requested    decimal.Decimal `json:"requested"`
}

// InternalErrorResponse cuerpo de 500 con la referencia para buscar la causa en el log.
type InternalErrorResponse struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// writeError traduce la taxonomía de errores del dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var (
		stockErr *domain.InsufficientStockError
		dupCode  *domain.DuplicateIdentityCodeError
		cfgErr   *domain.ConfigurationError
		txErr    *domain.TransactionFailure
	)
	switch {
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(StockErrorResponse{
			Code:         "INSUFFICIENT_STOCK",
			Message:      stockErr.Error(),
			LotID:        stockErr.LotID,
			StockEntryID: stockErr.StockEntryID,
			Available:    stockErr.Available,
			Requested:    stockErr.Requested,
		})
	case errors.As(err, &dupCode):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_IDENTITY_CODE", Message: dupCode.Error()})
	case errors.As(err, &cfgErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CONFIGURATION", Message: cfgErr.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.As(err, &txErr):
		return c.Status(fiber.StatusInternalServerError).JSON(InternalErrorResponse{
			Code:          "INTERNAL",
			Message:       "la operación no se completó y fue revertida",
			CorrelationID: txErr.CorrelationID,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(InternalErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

// ErrorHandler manejador global de Fiber para errores no atendidos por los handlers.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: codeForStatus(fe.Code), Message: fe.Message})
		}
		if !domain.IsDomainError(err) {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error no controlado")
		}
		return writeError(c, err)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	}
	if status >= 500 {
		return "INTERNAL"
	}
	return "ERROR"
}
