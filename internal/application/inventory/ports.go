package inventory

import (
	"context"

	"github.com/jhoicas/minimarket-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error todo lo escrito se descarta; si no, se confirma.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}
