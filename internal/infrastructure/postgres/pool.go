package postgres

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/minimarket-api/pkg/config"
)

// NewPool abre el pool de PostgreSQL con el codec NUMERIC -> decimal.Decimal registrado en cada conexión.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

// poolConfig traduce DBConfig a la configuración de pgxpool. Los valores en cero conservan el default de pgx.
func poolConfig(cfg config.DBConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetimeMins > 0 {
		pc.MaxConnLifetime = time.Duration(cfg.MaxConnLifetimeMins) * time.Minute
	}
	if cfg.MaxConnIdleMins > 0 {
		pc.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleMins) * time.Minute
	}
	if cfg.ConnectTimeoutSecs > 0 {
		pc.ConnConfig.ConnectTimeout = time.Duration(cfg.ConnectTimeoutSecs) * time.Second
	}
	pc.HealthCheckPeriod = time.Minute

	// Cantidades, factores y precios viajan como NUMERIC; nunca como float.
	pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return pc, nil
}
