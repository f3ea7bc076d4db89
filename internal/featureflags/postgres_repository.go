package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const upsertFlagSQL = `
	INSERT INTO feature_flags (key, value, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET
		value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at
`

// PostgresRepository stores flags in the feature_flags table. Values are
// jsonb so a flag may hold any JSON scalar.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL feature flag repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	var (
		flag  Flag
		value []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT key, value, updated_at FROM feature_flags WHERE key = $1`, key,
	).Scan(&flag.Key, &value, &flag.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flag %s: %w", key, err)
	}
	if err := json.Unmarshal(value, &flag.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", key, err)
	}
	return &flag, nil
}

func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM feature_flags`)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}

	var (
		key       string
		value     []byte
		updatedAt time.Time
	)
	flags := make(map[string]*Flag)
	_, err = pgx.ForEachRow(rows, []any{&key, &value, &updatedAt}, func() error {
		f := &Flag{Key: key, UpdatedAt: updatedAt}
		if err := json.Unmarshal(value, &f.Value); err != nil {
			return fmt.Errorf("decode flag %s: %w", key, err)
		}
		flags[key] = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flags, nil
}

// SetFlags upserts flags in one transaction.
func (r *PostgresRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now()
	batch := &pgx.Batch{}
	for _, f := range flags {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encode flag %s: %w", f.Key, err)
		}
		batch.Queue(upsertFlagSQL, f.Key, value, now)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *PostgresRepository) DeleteFlag(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key)
	return err
}

var _ Repository = (*PostgresRepository)(nil)
