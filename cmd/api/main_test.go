package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParkings_DefaultSeed(t *testing.T) {
	repo, parkings, err := loadParkings(context.Background(), nil, "", zerolog.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, parkings)

	p, err := repo.Get(context.Background(), "nijo-east")
	require.NoError(t, err)
	assert.Equal(t, "Nijo Castle East Bicycle Parking", p.Name)
}

func TestLoadParkings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parkings.yaml")
	doc := "parkings:\n  - id: only\n    name: Only Lot\n    lon: 135.76\n    lat: 35.0\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, parkings, err := loadParkings(context.Background(), nil, path, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, parkings, 1)
	assert.Equal(t, "only", parkings[0].ID)
}

func TestLoadParkings_MissingFile(t *testing.T) {
	_, _, err := loadParkings(context.Background(), nil, filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
