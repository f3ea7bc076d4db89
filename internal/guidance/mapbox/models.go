package mapbox

import "github.com/paulmach/orb/geojson"

// Response codes returned in the body of a 200 response.
const (
	codeOK      = "Ok"
	codeNoMatch = "NoMatch"
	codeNoRoute = "NoRoute"
)

// matchingResponse is the Map Matching v5 response body.
type matchingResponse struct {
	Code      string  `json:"code"`
	Message   string  `json:"message,omitempty"`
	Matchings []route `json:"matchings"`
}

// directionsResponse is the Directions v5 response body.
type directionsResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []route `json:"routes"`
}

// route is shared by matchings and directions routes.
type route struct {
	Geometry   *geojson.Geometry `json:"geometry"`
	Distance   float64           `json:"distance"`
	Duration   float64           `json:"duration"`
	Confidence float64           `json:"confidence,omitempty"`
	Legs       []leg             `json:"legs"`
}

type leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []step  `json:"steps"`
}

type step struct {
	Distance          float64            `json:"distance"`
	Duration          float64            `json:"duration"`
	Name              string             `json:"name,omitempty"`
	VoiceInstructions []voiceInstruction `json:"voiceInstructions"`
}

type voiceInstruction struct {
	DistanceAlongGeometry float64 `json:"distanceAlongGeometry"`
	Announcement          string  `json:"announcement"`
	SSMLAnnouncement      string  `json:"ssmlAnnouncement,omitempty"`
}

// errorResponse is the body of a non-200 response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
