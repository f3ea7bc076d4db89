package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/facility"
)

// ParkingHandler serves the parking lot endpoints.
type ParkingHandler struct {
	repo   facility.Repository
	logger zerolog.Logger
}

// NewParkingHandler creates a new ParkingHandler.
func NewParkingHandler(repo facility.Repository, logger zerolog.Logger) *ParkingHandler {
	return &ParkingHandler{repo: repo, logger: logger}
}

// ListParkings handles GET /v1/parkings.
func (h *ParkingHandler) ListParkings(w http.ResponseWriter, r *http.Request) {
	parkings, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := make([]models.Parking, len(parkings))
	for i, p := range parkings {
		out[i] = newParking(p)
	}
	response.OK(w, r, models.ParkingList{Parkings: out, TotalCount: len(out)})
}

// GetParking handles GET /v1/parkings/{id}.
func (h *ParkingHandler) GetParking(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.OK(w, r, newParking(*p))
}

func newParking(p facility.Parking) models.Parking {
	return models.Parking{
		ID:             p.ID,
		Name:           p.Name,
		Coordinates:    models.NewCoordinates(p.Location),
		FeeDescription: p.FeeDescription,
	}
}
