// Package navigation turns a trip request into a segmented plan: it picks
// the travel mode, asks the routing engine for the bicycle leg, attaches voice
// guidance and caches plans per origin and destination cell.
package navigation

import (
	"errors"
	"fmt"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/guidance"
	"github.com/bikenavi/bikenavi/internal/weight"
)

// Mode is the travel mode of a request.
type Mode string

// Travel modes.
const (
	ModeMyCycle    Mode = "my-cycle"
	ModeShareCycle Mode = "share-cycle"
)

// DefaultOperators are used for share-cycle requests without operators.
var DefaultOperators = []string{"docomo"}

// Predefined errors for the navigation service.
var (
	ErrInvalidMode        = errors.New("invalid travel mode")
	ErrOutOfServiceArea   = errors.New("point is outside the service area")
	ErrNoPortAvailable    = errors.New("no share-cycle port available")
	ErrShareCycleDisabled = errors.New("share-cycle stations are not configured")
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMyCycle, ModeShareCycle:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Request is a trip to plan.
type Request struct {
	Mode        Mode
	NeedParking bool
	Origin      geo.Point
	Destination geo.Point
	Safety      weight.Level
	Operators   []string
}

// SegmentType distinguishes riding from walking.
type SegmentType string

const (
	SegmentBicycle SegmentType = "bicycle"
	SegmentWalk    SegmentType = "walk"
)

// PointType tells what a segment endpoint is.
type PointType string

const (
	PointOrigin      PointType = "origin"
	PointDestination PointType = "destination"
	PointParking     PointType = "parking"
	PointPort        PointType = "port"
)

// Names used for the trip endpoints.
const (
	OriginName      = "現在地"
	DestinationName = "目的地"
)

// Waypoint is one end of a segment.
type Waypoint struct {
	Type     PointType
	Location geo.Point
	Name     string

	// Set for parking and port endpoints.
	ID             string
	FeeDescription string
	Operator       string
}

// Segment is one leg of a plan.
type Segment struct {
	Type     SegmentType
	From     Waypoint
	To       Waypoint
	Geometry []geo.Point
	Distance float64
	Duration float64

	// SafetyScore is nil for walk legs.
	SafetyScore *float64

	Instructions      []guidance.VoiceInstruction
	InstructionSource string
}

// Summary aggregates the segments of a plan.
type Summary struct {
	TotalDistance      float64
	TotalDuration      float64
	BicycleDistance    float64
	WalkDistance       float64
	AverageSafetyScore float64
}

// Plan is a complete answer to a Request.
type Plan struct {
	Mode     Mode
	Segments []Segment
	Summary  Summary
}

func summarize(segments []Segment) Summary {
	var s Summary
	for _, seg := range segments {
		s.TotalDistance += seg.Distance
		s.TotalDuration += seg.Duration
		switch seg.Type {
		case SegmentBicycle:
			s.BicycleDistance += seg.Distance
			if seg.SafetyScore != nil {
				s.AverageSafetyScore = *seg.SafetyScore
			}
		case SegmentWalk:
			s.WalkDistance += seg.Distance
		}
	}
	return s
}
