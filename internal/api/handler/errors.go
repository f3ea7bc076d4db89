package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/api/middleware"
	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/api/response"
	"github.com/bikenavi/bikenavi/internal/api/validation"
	"github.com/bikenavi/bikenavi/internal/facility"
	"github.com/bikenavi/bikenavi/internal/gbfs"
	"github.com/bikenavi/bikenavi/internal/guidance"
	"github.com/bikenavi/bikenavi/internal/navigation"
	"github.com/bikenavi/bikenavi/internal/provider/resilience"
	"github.com/bikenavi/bikenavi/internal/routing"
)

// ErrorCode maps a domain error to its API error code. Order matters:
// share-cycle errors wrap facility errors.
func ErrorCode(err error) models.ErrorCode {
	var providerErr *guidance.ProviderError

	switch {
	case errors.Is(err, validation.ErrInvalidLonLat):
		return models.CodeInvalidCoordinates
	case errors.Is(err, navigation.ErrInvalidMode):
		return models.CodeInvalidParameter
	case errors.Is(err, navigation.ErrOutOfServiceArea):
		return models.CodeOutOfServiceArea
	case errors.Is(err, routing.ErrNoPathFound):
		return models.CodeNoRouteFound
	case errors.Is(err, facility.ErrNoParkingFound):
		return models.CodeNoParkingFound
	case errors.Is(err, facility.ErrParkingNotFound):
		return models.CodeNotFound
	case errors.Is(err, navigation.ErrNoPortAvailable),
		errors.Is(err, facility.ErrNoStationAvailable):
		return models.CodeNoPortAvailable
	case errors.Is(err, gbfs.ErrFeedUnavailable),
		errors.Is(err, gbfs.ErrUnknownOperator),
		errors.Is(err, navigation.ErrShareCycleDisabled):
		return models.CodeGBFSAPIError
	case errors.As(err, &providerErr),
		errors.Is(err, guidance.ErrProviderUnavailable),
		errors.Is(err, guidance.ErrRateLimitExceeded),
		errors.Is(err, guidance.ErrNoMatch),
		errors.Is(err, guidance.ErrInvalidRequest),
		errors.Is(err, resilience.ErrCircuitOpen):
		return models.CodeMapboxAPIError
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return models.CodeServiceUnavailable
	default:
		return models.CodeInternalError
	}
}

// writeError logs err and writes the matching problem. Internal errors get
// a generic detail so implementation messages do not leak.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	code := ErrorCode(err)
	status := code.Status()

	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("code", string(code)).
		Msg("request failed")

	detail := err.Error()
	if code == models.CodeInternalError {
		detail = "an unexpected error occurred"
	}
	response.Problem(w, r, code, detail)
}
