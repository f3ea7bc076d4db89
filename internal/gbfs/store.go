package gbfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/pebble"
)

// Store persists the last station_information per operator so station
// locations survive a restart without network access.
type Store struct {
	db *pebble.DB
}

type snapshotRecord struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Stations  []StationInfo `json:"stations"`
}

// OpenStore opens (or creates) a store in dir.
func OpenStore(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open station store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func snapshotKey(operator string) []byte {
	return []byte("station_information/" + operator)
}

// SaveStations replaces the snapshot of operator.
func (s *Store) SaveStations(operator string, stations []StationInfo, fetchedAt time.Time) error {
	raw, err := json.Marshal(snapshotRecord{FetchedAt: fetchedAt, Stations: stations})
	if err != nil {
		return err
	}
	val, err := zstd.Compress(nil, raw)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	return s.db.Set(snapshotKey(operator), val, pebble.Sync)
}

// LoadStations returns the snapshot of operator and when it was fetched.
func (s *Store) LoadStations(operator string) ([]StationInfo, time.Time, error) {
	val, closer, err := s.db.Get(snapshotKey(operator))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, time.Time{}, ErrSnapshotNotFound
		}
		return nil, time.Time{}, err
	}
	defer closer.Close()

	raw, err := zstd.Decompress(nil, val)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decompress snapshot: %w", err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return rec.Stations, rec.FetchedAt, nil
}
