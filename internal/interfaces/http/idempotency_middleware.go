package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/minimarket-api/internal/application/dto"
	"github.com/jhoicas/minimarket-api/pkg/logger"
)

// HeaderIdempotencyKey cabecera opcional para reintentos seguros de compras, extracciones y ventas.
const HeaderIdempotencyKey = "Idempotency-Key"

// keyReserver es el contrato mínimo del almacén de claves.
// Lo implementan cache.RedisIdempotencyStore y cache.MemoryIdempotencyStore.
type keyReserver interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RequireIdempotency reserva la clave del header antes de ejecutar la escritura.
// Debe usarse DESPUÉS de AuthMiddleware: la clave se aísla por usuario.
//
// Comportamiento:
//   - Sin header (o sin almacén configurado): la petición pasa sin control.
//   - 409 DUPLICATE_REQUEST → la clave ya fue usada y no ha expirado.
//   - 503 Service Unavailable → el almacén de claves no responde.
//   - Si el handler falla (error o status >= 400) la clave se libera para permitir el reintento.
func RequireIdempotency(store keyReserver, ttl time.Duration, log *logger.Logger) fiber.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if key == "" || store == nil {
			return c.Next()
		}
		if len(key) > 200 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "VALIDATION",
				Message: "Idempotency-Key demasiado larga",
			})
		}
		scoped := GetUserID(c) + ":" + c.Method() + ":" + c.Path() + ":" + key

		ok, err := store.Reserve(c.Context(), scoped, ttl)
		if err != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("no se pudo reservar la clave de idempotencia")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "IDEMPOTENCY_UNAVAILABLE",
				Message: "no se pudo verificar la clave de idempotencia, intente más tarde",
			})
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "DUPLICATE_REQUEST",
				Message: "la solicitud con esta Idempotency-Key ya fue procesada",
			})
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			if relErr := store.Release(context.Background(), scoped); relErr != nil {
				log.Warn().Err(relErr).Str("path", c.Path()).Msg("no se pudo liberar la clave de idempotencia")
			}
		}
		return err
	}
}
