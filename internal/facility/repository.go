package facility

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bikenavi/bikenavi/internal/geo"
)

// Repository defines the interface for parking data persistence.
type Repository interface {
	// List returns every parking lot.
	List(ctx context.Context) ([]Parking, error)

	// Get retrieves a parking lot by ID.
	Get(ctx context.Context, id string) (*Parking, error)
}

// parkingRecord is the YAML form of a parking lot.
type parkingRecord struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Lon            float64 `yaml:"lon"`
	Lat            float64 `yaml:"lat"`
	FeeDescription string  `yaml:"fee_description"`
}

type parkingFile struct {
	Parkings []parkingRecord `yaml:"parkings"`
}

// DefaultFeeDescription is used when a record carries no fee information.
const DefaultFeeDescription = "No fee information"

// DecodeParkingsYAML reads a parking list of the form
//
//	parkings:
//	  - id: kyoto-station-south
//	    name: Kyoto Station South Bicycle Parking
//	    lon: 135.7590
//	    lat: 34.9840
//	    fee_description: 150 yen per day
func DecodeParkingsYAML(r io.Reader) ([]Parking, error) {
	var f parkingFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode parkings: %w", err)
	}

	parkings := make([]Parking, 0, len(f.Parkings))
	for i, rec := range f.Parkings {
		if rec.ID == "" {
			return nil, fmt.Errorf("decode parkings: entry %d has no id", i)
		}
		fee := rec.FeeDescription
		if fee == "" {
			fee = DefaultFeeDescription
		}
		parkings = append(parkings, Parking{
			ID:             rec.ID,
			Name:           rec.Name,
			Location:       geo.Point{Lon: rec.Lon, Lat: rec.Lat},
			FeeDescription: fee,
		})
	}
	return parkings, nil
}

//go:embed kyoto_parkings.yaml
var kyotoParkings []byte

// KyotoParkings returns the built-in Kyoto parking seed, used when no
// parking file is configured.
func KyotoParkings() ([]Parking, error) {
	return DecodeParkingsYAML(bytes.NewReader(kyotoParkings))
}

// LoadParkingsFile reads a YAML parking list from disk.
func LoadParkingsFile(path string) ([]Parking, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeParkingsYAML(f)
}
