package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"deal-fit/internal/config"
)

// PitchDeckSchema define la tabla del archivo de pitch decks; es idempotente.
const PitchDeckSchema = `
CREATE TABLE IF NOT EXISTS pitch_decks (
	record_id    UUID PRIMARY KEY,
	document_id  TEXT NOT NULL,
	name         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	digest       TEXT NOT NULL,
	size_bytes   BIGINT NOT NULL,
	content      BYTEA NOT NULL,
	text_content TEXT,
	uploaded_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS pitch_decks_digest_idx ON pitch_decks (digest);
`

// NewPool construye y devuelve un pool de conexiones configurado.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// El archivo de decks es escritura ocasional; pocas conexiones alcanzan.
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifica conectividad con la base de datos.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// EnsureSchema crea la tabla del archivo de pitch decks si no existe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, PitchDeckSchema)
	return err
}
