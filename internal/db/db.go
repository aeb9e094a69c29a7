package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"folio-api/internal/config"
)

// PoolSettings ajusta el pool; los campos en cero conservan el valor de pgxpool.
type PoolSettings struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

func settingsFrom(cfg *config.Config) PoolSettings {
	return PoolSettings{
		MaxConns:          cfg.DatabaseMaxConns,
		MinConns:          1,
		MaxConnLifetime:   cfg.DatabaseConnLifetime,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    cfg.DatabaseConnectTimeout,
	}
}

func poolConfig(databaseURL string, s PoolSettings) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if s.MaxConns > 0 {
		poolCfg.MaxConns = s.MaxConns
	}
	if s.MinConns > 0 && s.MinConns <= poolCfg.MaxConns {
		poolCfg.MinConns = s.MinConns
	}
	if s.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = s.MaxConnLifetime
	}
	if s.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = s.MaxConnIdleTime
	}
	if s.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = s.HealthCheckPeriod
	}
	if s.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = s.ConnectTimeout
	}
	return poolCfg, nil
}

// NewPool abre el pool de Postgres con los ajustes de cfg.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg.DatabaseURL, settingsFrom(cfg))
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

type pinger interface {
	Ping(ctx context.Context) error
}

var (
	pingAttempts = 5
	pingBackoff  = time.Second
)

// Ping reintenta hasta que la base responde, se agotan los intentos o vence ctx.
func Ping(ctx context.Context, db pinger) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.Ping(ctx); err == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * pingBackoff):
		}
	}
	return fmt.Errorf("ping database after %d attempts: %w", pingAttempts, err)
}
