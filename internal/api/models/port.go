package models

// Port is a share-cycle station with live availability.
type Port struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Operator       string      `json:"operator"`
	Coordinates    Coordinates `json:"coordinates"`
	Distance       *float64    `json:"distance,omitempty"`
	BikesAvailable int         `json:"bikesAvailable"`
	DocksAvailable int         `json:"docksAvailable"`
	IsRenting      bool        `json:"isRenting"`
	IsReturning    bool        `json:"isReturning"`
	LastReported   *Timestamp  `json:"lastReported,omitempty"`
}

// PortList is the body of GET /v1/ports.
type PortList struct {
	Ports       []Port    `json:"ports"`
	TotalCount  int       `json:"totalCount"`
	LastUpdated Timestamp `json:"lastUpdated"`
}

// PortsQuery holds the parsed query of GET /v1/ports.
type PortsQuery struct {
	Operators []string `query:"operators" validate:"required,min=1,dive,required"`
	Near      string   `query:"near" validate:"omitempty,lonlat"`
	Radius    int      `query:"radius" validate:"min=100,max=5000"`
	MinBikes  int      `query:"minBikes" validate:"min=0"`
	MinDocks  int      `query:"minDocks" validate:"min=0"`
}

// Defaults for PortsQuery.
const (
	DefaultPortRadius   = 500
	DefaultPortMinBikes = 1
	DefaultPortMinDocks = 1
)
