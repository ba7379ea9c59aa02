package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/minimarket-api/internal/application/analytics"
	"github.com/jhoicas/minimarket-api/internal/application/inventory"
	"github.com/jhoicas/minimarket-api/internal/application/usecase"
	"github.com/jhoicas/minimarket-api/internal/domain/repository"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/cache"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/memory"
	"github.com/jhoicas/minimarket-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/minimarket-api/internal/interfaces/http"
	"github.com/jhoicas/minimarket-api/pkg/config"
	"github.com/jhoicas/minimarket-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es requerido")
	}

	ctx := context.Background()

	var (
		txRunner inventory.TxRunner
		repos    repository.Repositories
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		txRunner, repos = store, store.Repositories()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		if cfg.DB.AutoMigrate {
			migrateDatabase(cfg.DB.ConnectionString(), log)
		}
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		txRunner, repos = postgres.NewTxRunner(pool), postgres.NewRepositories(pool)
	}

	idem := newIdempotencyStore(ctx, cfg.Redis, log)
	defer idem.Close()

	threshold := decimal.NewFromInt(int64(cfg.Inventory.AnomalyAdjustmentThreshold))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerFile,
			Path:     "docs",
			Title:    "Minimarket Inventario API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		UnitUC:         usecase.NewUnitUseCase(repos.Units),
		SupplierUC:     usecase.NewSupplierUseCase(repos.Suppliers),
		ProductUC:      usecase.NewProductUseCase(txRunner, repos, log.Named("catalog")),
		LotLedger:      inventory.NewLotLedgerUseCase(txRunner, repos, log.Named("lots")),
		Extraction:     inventory.NewStockExtractionUseCase(txRunner, log.Named("extraction")),
		Sales:          inventory.NewSaleConsumptionUseCase(txRunner, log.Named("sales")),
		Movements:      inventory.NewMovementLedgerUseCase(txRunner, repos, log.Named("movements"), threshold),
		StockQuery:     inventory.NewStockQueryUseCase(repos),
		Valuation:      analytics.NewValuationUseCase(repos, log.Named("valuation")),
		Idempotency:    idem,
		IdempotencyTTL: time.Duration(cfg.Redis.IdempotencyTTL) * time.Minute,
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
		Logger:         log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// migrateDatabase aplica las migraciones embebidas antes de abrir el pool.
func migrateDatabase(dsn string, log *logger.Logger) {
	m, err := postgres.NewMigrator(dsn, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar migraciones")
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		log.Fatal().Err(err).Msg("aplicar migraciones")
	}
}

// newIdempotencyStore usa Redis si está habilitado; si no responde cae a memoria del proceso.
func newIdempotencyStore(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) cache.IdempotencyStore {
	if !cfg.Enabled {
		return cache.NewMemoryIdempotencyStore()
	}
	store, err := cache.NewRedisIdempotencyStore(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis no disponible, claves de idempotencia en memoria")
		return cache.NewMemoryIdempotencyStore()
	}
	return store
}
