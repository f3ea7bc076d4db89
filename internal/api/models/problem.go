package models

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Problem represents an RFC 7807 error response carrying an application
// error code. It is served with Content-Type application/problem+json.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Code is the stable application error code clients switch on.
	Code ErrorCode `json:"code"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`

	// TraceID is the request trace identifier for debugging.
	TraceID string `json:"traceId"`

	// Errors contains structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error on a specific query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorCode is an application error code.
type ErrorCode string

// Error codes.
const (
	CodeInvalidCoordinates ErrorCode = "INVALID_COORDINATES"
	CodeInvalidParameter   ErrorCode = "INVALID_PARAMETER"
	CodeOutOfServiceArea   ErrorCode = "OUT_OF_SERVICE_AREA"
	CodeNoRouteFound       ErrorCode = "NO_ROUTE_FOUND"
	CodeNoParkingFound     ErrorCode = "NO_PARKING_FOUND"
	CodeNoPortAvailable    ErrorCode = "NO_PORT_AVAILABLE"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeTLSRequired        ErrorCode = "TLS_REQUIRED"
	CodeMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"
	CodeMapboxAPIError     ErrorCode = "MAPBOX_API_ERROR"
	CodeGBFSAPIError       ErrorCode = "GBFS_API_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

type codeInfo struct {
	status int
	title  string
}

var codes = map[ErrorCode]codeInfo{
	CodeInvalidCoordinates: {http.StatusBadRequest, "Invalid coordinates"},
	CodeInvalidParameter:   {http.StatusBadRequest, "Validation error"},
	CodeOutOfServiceArea:   {http.StatusBadRequest, "Out of service area"},
	CodeNoRouteFound:       {http.StatusNotFound, "No route found"},
	CodeNoParkingFound:     {http.StatusNotFound, "No parking found"},
	CodeNoPortAvailable:    {http.StatusNotFound, "No port available"},
	CodeNotFound:           {http.StatusNotFound, "Not found"},
	CodeTLSRequired:        {http.StatusForbidden, "TLS required"},
	CodeMethodNotAllowed:   {http.StatusMethodNotAllowed, "Method not allowed"},
	CodeMapboxAPIError:     {http.StatusBadGateway, "Instruction provider error"},
	CodeGBFSAPIError:       {http.StatusBadGateway, "Bike-share feed error"},
	CodeServiceUnavailable: {http.StatusServiceUnavailable, "Service unavailable"},
	CodeInternalError:      {http.StatusInternalServerError, "Internal server error"},
}

// ProblemTypeBase prefixes every problem type URI.
const ProblemTypeBase = "https://bikenavi.dev/problems/"

// Status returns the HTTP status of the code. Unknown codes are 500.
func (c ErrorCode) Status() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// TypeURI returns the problem type URI, e.g. .../problems/no-route-found.
func (c ErrorCode) TypeURI() string {
	return ProblemTypeBase + strings.ReplaceAll(strings.ToLower(string(c)), "_", "-")
}

// NewProblem creates a Problem for code.
func NewProblem(code ErrorCode, traceID string) *Problem {
	info, ok := codes[code]
	if !ok {
		info = codes[CodeInternalError]
	}
	return &Problem{
		Type:    code.TypeURI(),
		Title:   info.title,
		Status:  info.status,
		Code:    code,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewValidationProblem creates a 400 problem for invalid query parameters.
// Coordinate failures use INVALID_COORDINATES.
func NewValidationProblem(traceID string, errors []FieldError) *Problem {
	code := CodeInvalidParameter
	for _, e := range errors {
		if e.Code == FieldCodeCoordinates {
			code = CodeInvalidCoordinates
			break
		}
	}
	return NewProblem(code, traceID).
		WithDetail("one or more query parameters are invalid").
		WithErrors(errors)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(CodeInternalError, traceID).WithDetail(detail)
}

// FieldCodeCoordinates marks a field error on a "lon,lat" parameter.
const FieldCodeCoordinates = "lonlat"
