// Package weight converts a rider's safety preference into edge cost factors.
//
// A safety level biases route choice towards roads flagged safe: the factor
// applied to safe roads falls as the level rises while the factor applied to
// normal roads grows linearly. Out-of-range levels are clamped, never rejected.
package weight

import (
	"fmt"
	"math"
)

// Level is a rider-selected safety preference.
type Level int

// Supported level range.
const (
	MinLevel Level = 1
	MaxLevel Level = 10
)

// Version identifies a weight formula calibration.
type Version string

const (
	// V1 is the first calibration: safe = 1 - 0.03s, normal = 1 + 0.2s.
	V1 Version = "v1"
	// V2 is the strengthened calibration: safe = max(0.2, 1 - 0.08s), normal = 1 + 0.5s.
	V2 Version = "v2"
)

// DefaultVersion is the canonical formula.
const DefaultVersion = V2

// v2SafeFloor keeps safe roads from becoming nearly free.
const v2SafeFloor = 0.2

// Config holds configuration for the weight model.
type Config struct {
	// Version selects the formula. Empty means DefaultVersion.
	Version Version
	// RoadClassPenalty enables the per-highway-class multiplier.
	RoadClassPenalty bool
}

// Model computes edge costs for a safety level.
type Model struct {
	version          Version
	roadClassPenalty bool
}

// roadClassFactors are multipliers applied per highway class when the
// road-class penalty is enabled.
var roadClassFactors = map[string]float64{
	"cycleway":    0.6,
	"residential": 1.15,
}

// NewModel creates a weight model.
func NewModel(cfg Config) (*Model, error) {
	v := cfg.Version
	if v == "" {
		v = DefaultVersion
	}
	switch v {
	case V1, V2:
	default:
		return nil, fmt.Errorf("unknown weight model version %q", v)
	}
	return &Model{version: v, roadClassPenalty: cfg.RoadClassPenalty}, nil
}

// Default returns the canonical model with no road-class penalty.
func Default() *Model {
	return &Model{version: DefaultVersion}
}

// Version returns the formula version in use.
func (m *Model) Version() Version {
	return m.version
}

// RoadClassPenalty reports whether the road-class multiplier is applied.
func (m *Model) RoadClassPenalty() bool {
	return m.roadClassPenalty
}

// Clamp forces a level into the supported range.
func (m *Model) Clamp(level Level) Level {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Factors returns the (safe, normal) multipliers for a level.
func (m *Model) Factors(level Level) (safe, normal float64) {
	s := float64(m.Clamp(level))
	switch m.version {
	case V1:
		return 1 - 0.03*s, 1 + 0.2*s
	default:
		return math.Max(v2SafeFloor, 1-0.08*s), 1 + 0.5*s
	}
}

// Cost returns the cost of traversing length meters at the given level.
func (m *Model) Cost(length float64, isSafe bool, level Level) float64 {
	safe, normal := m.Factors(level)
	if isSafe {
		return length * safe
	}
	return length * normal
}

// EdgeCost is Cost with the road-class multiplier applied when enabled.
func (m *Model) EdgeCost(length float64, isSafe bool, roadClass string, level Level) float64 {
	cost := m.Cost(length, isSafe, level)
	if !m.roadClassPenalty {
		return cost
	}
	if f, ok := roadClassFactors[roadClass]; ok {
		return cost * f
	}
	return cost
}

// FactorRow describes the factors for a single level.
type FactorRow struct {
	Level          Level   `json:"level"`
	SafeFactor     float64 `json:"safeFactor"`
	NormalFactor   float64 `json:"normalFactor"`
	Safe100mCost   float64 `json:"safe100mCost"`
	Normal100mCost float64 `json:"normal100mCost"`
}

// Table returns the factors for every supported level.
func (m *Model) Table() []FactorRow {
	rows := make([]FactorRow, 0, int(MaxLevel-MinLevel)+1)
	for l := MinLevel; l <= MaxLevel; l++ {
		safe, normal := m.Factors(l)
		rows = append(rows, FactorRow{
			Level:          l,
			SafeFactor:     round(safe, 3),
			NormalFactor:   round(normal, 3),
			Safe100mCost:   round(100*safe, 1),
			Normal100mCost: round(100*normal, 1),
		})
	}
	return rows
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
