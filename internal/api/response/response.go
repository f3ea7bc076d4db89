// Package response writes JSON and problem responses.
package response

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/bikenavi/bikenavi/internal/api/middleware"
	"github.com/bikenavi/bikenavi/internal/api/models"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	if data == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, data)
}

// OK writes a 200 JSON response.
func OK(w http.ResponseWriter, r *http.Request, data interface{}) {
	JSON(w, r, http.StatusOK, data)
}

// Error writes a problem, stamping it with the request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// Problem writes the problem of code with detail.
func Problem(w http.ResponseWriter, r *http.Request, code models.ErrorCode, detail string) {
	traceID := middleware.GetRequestID(r.Context())
	Error(w, r, models.NewProblem(code, traceID).WithDetail(detail))
}

// ValidationFailed writes a 400 problem listing the invalid parameters.
func ValidationFailed(w http.ResponseWriter, r *http.Request, errors []models.FieldError) {
	traceID := middleware.GetRequestID(r.Context())
	Error(w, r, models.NewValidationProblem(traceID, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.CodeNotFound, detail)
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.CodeInternalError, detail)
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.CodeServiceUnavailable, detail)
}
