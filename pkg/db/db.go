package db

import (
	"context"
	"fmt"
	"time"

	"dinehub/pkg/config"
	"dinehub/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func ConnectDB(cfg *config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("startup", "db_connected", "Connected to PostgreSQL database")
	return pool, nil
}
