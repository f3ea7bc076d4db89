package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/validation"
	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/gbfs"
	"github.com/bikenavi/bikenavi/internal/guidance"
	"github.com/bikenavi/bikenavi/internal/navigation"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
	"github.com/bikenavi/bikenavi/internal/routing"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.ErrorCode
	}{
		{"bad coordinates", fmt.Errorf("origin: %w", validation.ErrInvalidLonLat), models.CodeInvalidCoordinates},
		{"bad mode", navigation.ErrInvalidMode, models.CodeInvalidParameter},
		{"out of area", fmt.Errorf("%w: origin", navigation.ErrOutOfServiceArea), models.CodeOutOfServiceArea},
		{"no path", routing.ErrNoPathFound, models.CodeNoRouteFound},
		{"no parking", facility.ErrNoParkingFound, models.CodeNoParkingFound},
		{"unknown parking", facility.ErrParkingNotFound, models.CodeNotFound},
		{"no port", fmt.Errorf("%w: %w", navigation.ErrNoPortAvailable, facility.ErrNoBorrowStation), models.CodeNoPortAvailable},
		{"no return station", facility.ErrNoReturnStation, models.CodeNoPortAvailable},
		{"feed down", &gbfs.FeedError{Operator: "docomo", Err: gbfs.ErrFeedUnavailable}, models.CodeGBFSAPIError},
		{"share-cycle off", navigation.ErrShareCycleDisabled, models.CodeGBFSAPIError},
		{"provider error", &guidance.ProviderError{Provider: "mapbox", Code: "InvalidInput", Message: "bad"}, models.CodeMapboxAPIError},
		{"circuit open", fmt.Errorf("mapbox: %w", resilience.ErrCircuitOpen), models.CodeMapboxAPIError},
		{"deadline", context.DeadlineExceeded, models.CodeServiceUnavailable},
		{"unknown", errors.New("boom"), models.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/route", http.NoBody)

	writeError(w, r, zerolog.Nop(), errors.New("pq: relation does not exist"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var p models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, models.CodeInternalError, p.Code)
	assert.NotContains(t, p.Detail, "relation")
}

func TestWriteError_KeepsDomainDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/route", http.NoBody)

	writeError(w, r, zerolog.Nop(), fmt.Errorf("%w: destination 139.7,35.6", navigation.ErrOutOfServiceArea))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var p models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Contains(t, p.Detail, "destination 139.7,35.6")
}
