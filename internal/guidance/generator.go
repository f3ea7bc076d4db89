// Package guidance produces spoken turn-by-turn instructions for a route
// geometry, either locally from bearing changes or through an external
// turn-by-turn provider.
package guidance

import (
	"math"
	"sort"

	"github.com/bikenavi/bikenavi/internal/geo"
)

// Generator thresholds.
const (
	// TurnAngleThreshold is the smallest bearing difference treated as a turn.
	TurnAngleThreshold = 30.0
	// UTurnAngleThreshold is the smallest bearing difference treated as a U-turn.
	UTurnAngleThreshold = 150.0
	// AnnouncementDistance is how far before a turn it is announced.
	AnnouncementDistance = 50.0
	// MinTurnDistance suppresses turns this close to the start.
	MinTurnDistance = 10.0
	// MinInstructionGap is the minimum spacing between kept instructions.
	MinInstructionGap = 1.0
)

// VoiceInstruction is an announcement anchored at a distance from the start
// of the route geometry.
type VoiceInstruction struct {
	DistanceAlongGeometry float64 `json:"distanceAlongGeometry"`
	Announcement          string  `json:"announcement"`
}

// Direction of a turn.
type Direction string

// Turn directions.
const (
	Left  Direction = "left"
	Right Direction = "right"
	UTurn Direction = "uturn"
)

// TurnPoint is an interior vertex where the bearing changes by at least
// TurnAngleThreshold.
type TurnPoint struct {
	Index         int
	Point         geo.Point
	BearingBefore float64
	BearingAfter  float64
	AngleDiff     float64
}

// Direction classifies the turn.
func (tp TurnPoint) Direction() Direction {
	if tp.AngleDiff >= UTurnAngleThreshold {
		return UTurn
	}
	if geo.BearingChange(tp.BearingBefore, tp.BearingAfter) > 0 {
		return Right
	}
	return Left
}

// DetectTurns returns the turn points of coords in order.
func DetectTurns(coords []geo.Point) []TurnPoint {
	if len(coords) < 3 {
		return nil
	}

	var turns []TurnPoint
	for i := 1; i < len(coords)-1; i++ {
		before := geo.Bearing(coords[i-1], coords[i])
		after := geo.Bearing(coords[i], coords[i+1])
		diff := geo.AngleDiff(before, after)
		if diff < TurnAngleThreshold {
			continue
		}
		turns = append(turns, TurnPoint{
			Index:         i,
			Point:         coords[i],
			BearingBefore: before,
			BearingAfter:  after,
			AngleDiff:     diff,
		})
	}
	return turns
}

// Generator builds voice instructions from route geometry.
type Generator struct {
	phrases Phrasebook
}

// NewGenerator creates a generator speaking with phrases. A nil phrasebook
// selects English.
func NewGenerator(phrases Phrasebook) *Generator {
	if phrases == nil {
		phrases = English{}
	}
	return &Generator{phrases: phrases}
}

// Phrasebook returns the phrasebook in use.
func (g *Generator) Phrasebook() Phrasebook {
	return g.phrases
}

// Generate returns the instructions for coords, sorted by distance and
// ending with the arrival announcement at the total path length.
func (g *Generator) Generate(coords []geo.Point) []VoiceInstruction {
	cumulative := geo.CumulativeDistances(coords)
	var total float64
	if len(cumulative) > 0 {
		total = cumulative[len(cumulative)-1]
	}

	var out []VoiceInstruction
	for _, tp := range DetectTurns(coords) {
		d := math.Min(cumulative[tp.Index], total)
		if d < MinTurnDistance {
			continue
		}
		out = append(out, VoiceInstruction{
			DistanceAlongGeometry: math.Max(0, d-AnnouncementDistance),
			Announcement:          g.phrases.Turn(math.Min(AnnouncementDistance, d), tp.Direction()),
		})
	}
	out = append(out, VoiceInstruction{
		DistanceAlongGeometry: total,
		Announcement:          g.phrases.Arrival(),
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceAlongGeometry < out[j].DistanceAlongGeometry
	})

	kept := out[:0]
	last := math.Inf(-1)
	for _, in := range out {
		if in.DistanceAlongGeometry-last < MinInstructionGap {
			continue
		}
		kept = append(kept, in)
		last = in.DistanceAlongGeometry
	}
	return kept
}
