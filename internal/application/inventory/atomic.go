package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jhoicas/minimarket-api/internal/domain"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/pkg/logger"
)

// Atomic ejecuta fn en una sola transacción.
// Los errores de dominio se devuelven tal cual. Cualquier otro fallo se registra con un
// correlation id y el llamador recibe un *domain.TransactionFailure con esa referencia.
func Atomic(
	ctx context.Context,
	tx TxRunner,
	log *logger.Logger,
	op string,
	fn func(repos repository.Repositories) error,
) error {
	err := tx.Run(ctx, fn)
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err) {
		log.Debug().Str("op", op).Err(err).Msg("operación rechazada")
		return err
	}
	var failure *domain.TransactionFailure
	if errors.As(err, &failure) {
		return err
	}
	correlationID := uuid.New().String()
	log.Error().
		Str("op", op).
		Str("correlation_id", correlationID).
		Err(err).
		Msg("transacción revertida")
	return &domain.TransactionFailure{Operation: op, CorrelationID: correlationID, Err: err}
}
