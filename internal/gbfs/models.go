// Package gbfs reads share-cycle station data from GBFS feeds and joins
// station information with live station status.
package gbfs

import (
	"errors"
	"time"
)

// Predefined errors for the GBFS client.
var (
	// ErrUnknownOperator is returned for an operator without a configured feed.
	ErrUnknownOperator = errors.New("unknown share-cycle operator")

	// ErrFeedUnavailable indicates no requested feed could be read.
	ErrFeedUnavailable = errors.New("gbfs feed unavailable")

	// ErrSnapshotNotFound is returned by the store when no snapshot exists.
	ErrSnapshotNotFound = errors.New("station snapshot not found")
)

// FeedError describes a failed read of one operator feed.
type FeedError struct {
	Operator string
	Feed     string // station_information or station_status
	Err      error
}

func (e *FeedError) Error() string {
	return "gbfs " + e.Operator + " " + e.Feed + ": " + e.Err.Error()
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// StationInfo is the static part of a station.
type StationInfo struct {
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Capacity  *int    `json:"capacity,omitempty"`
}

// StationStatus is the live part of a station.
type StationStatus struct {
	StationID         string `json:"station_id"`
	NumBikesAvailable int    `json:"num_bikes_available"`
	NumDocksAvailable int    `json:"num_docks_available"`
	IsRenting         *bool  `json:"is_renting,omitempty"`
	IsReturning       *bool  `json:"is_returning,omitempty"`
	LastReported      int64  `json:"last_reported"`
}

// Renting reports whether the station rents bikes. Missing means true.
func (s StationStatus) Renting() bool {
	return s.IsRenting == nil || *s.IsRenting
}

// Returning reports whether the station accepts returns. Missing means true.
func (s StationStatus) Returning() bool {
	return s.IsReturning == nil || *s.IsReturning
}

// envelope is the common GBFS file wrapper.
type envelope[T any] struct {
	LastUpdated int64 `json:"last_updated"`
	TTL         int   `json:"ttl"`
	Data        struct {
		Stations []T `json:"stations"`
	} `json:"data"`
}

// Cache lifetimes.
const (
	DefaultInfoTTL         = 24 * time.Hour
	DefaultStatusTTL       = time.Minute
	DefaultStaleIfErrorTTL = 15 * time.Minute
)
