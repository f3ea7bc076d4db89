package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/geo"
)

func TestErrorCode_Status(t *testing.T) {
	tests := []struct {
		code models.ErrorCode
		want int
	}{
		{models.CodeInvalidCoordinates, http.StatusBadRequest},
		{models.CodeOutOfServiceArea, http.StatusBadRequest},
		{models.CodeNoRouteFound, http.StatusNotFound},
		{models.CodeNoParkingFound, http.StatusNotFound},
		{models.CodeNoPortAvailable, http.StatusNotFound},
		{models.CodeMapboxAPIError, http.StatusBadGateway},
		{models.CodeGBFSAPIError, http.StatusBadGateway},
		{models.CodeInternalError, http.StatusInternalServerError},
		{models.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Status())
		})
	}
}

func TestNewProblem(t *testing.T) {
	p := models.NewProblem(models.CodeNoRouteFound, "req_test123").
		WithDetail("no path between origin and destination").
		WithInstance("/v1/route")

	assert.Equal(t, "https://bikenavi.dev/problems/no-route-found", p.Type)
	assert.Equal(t, "No route found", p.Title)
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, models.CodeNoRouteFound, p.Code)
	assert.Equal(t, "req_test123", p.TraceID)
	assert.Equal(t, "/v1/route", p.Instance)
	assert.Nil(t, p.Errors)
}

func TestNewProblem_UnknownCode(t *testing.T) {
	p := models.NewProblem(models.ErrorCode("NOPE"), "req_1")
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "Internal server error", p.Title)
}

func TestNewValidationProblem(t *testing.T) {
	p := models.NewValidationProblem("req_1", []models.FieldError{
		{Field: "safety", Message: "safety must be 10 or less", Code: "max"},
	})
	assert.Equal(t, models.CodeInvalidParameter, p.Code)
	assert.Equal(t, http.StatusBadRequest, p.Status)

	p = models.NewValidationProblem("req_1", []models.FieldError{
		{Field: "safety", Message: "safety is required", Code: "required"},
		{Field: "origin", Message: `origin must be "lon,lat"`, Code: models.FieldCodeCoordinates},
	})
	assert.Equal(t, models.CodeInvalidCoordinates, p.Code)
	require.Len(t, p.Errors, 2)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewProblem(models.CodeOutOfServiceArea, "req_test123").
		WithDetail("destination is outside Kyoto")
	p.Instance = "/v1/route"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.CodeOutOfServiceArea, result.Code)
	assert.Equal(t, "destination is outside Kyoto", result.Detail)
	assert.Equal(t, "/v1/route", result.Instance)
	assert.Equal(t, "req_test123", result.TraceID)
}

func TestNewCoordinates(t *testing.T) {
	c := models.NewCoordinates(geo.Point{Lon: 135.7588, Lat: 34.9858})

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `[135.7588, 34.9858]`, string(b))
}
