package facility

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL parking repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns every parking lot ordered by ID.
func (r *PostgresRepository) List(ctx context.Context) ([]Parking, error) {
	query := `
		SELECT id, name, lon, lat, COALESCE(fee_description, '')
		FROM parkings
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parkings []Parking
	for rows.Next() {
		p, err := scanParking(rows)
		if err != nil {
			return nil, err
		}
		parkings = append(parkings, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return parkings, nil
}

// Get retrieves a parking lot by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Parking, error) {
	query := `
		SELECT id, name, lon, lat, COALESCE(fee_description, '')
		FROM parkings
		WHERE id = $1
	`

	p, err := scanParking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParkingNotFound
		}
		return nil, err
	}
	return p, nil
}

// Upsert inserts or replaces a parking lot.
func (r *PostgresRepository) Upsert(ctx context.Context, p Parking) error {
	query := `
		INSERT INTO parkings (id, name, lon, lat, fee_description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			lon = EXCLUDED.lon,
			lat = EXCLUDED.lat,
			fee_description = EXCLUDED.fee_description
	`

	_, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Location.Lon, p.Location.Lat, p.FeeDescription)
	return err
}

func scanParking(row pgx.Row) (*Parking, error) {
	var p Parking
	if err := row.Scan(&p.ID, &p.Name, &p.Location.Lon, &p.Location.Lat, &p.FeeDescription); err != nil {
		return nil, err
	}
	if p.FeeDescription == "" {
		p.FeeDescription = DefaultFeeDescription
	}
	return &p, nil
}
