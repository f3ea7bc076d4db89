package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/bikenavi/bikenavi/internal/api/models"
)

// queryParser reads typed query parameters and collects conversion errors.
// Missing parameters keep the caller's default.
type queryParser struct {
	values url.Values
	errs   []models.FieldError
}

func newQueryParser(values url.Values) *queryParser {
	return &queryParser{values: values}
}

func (p *queryParser) Get(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

func (p *queryParser) Int(name string, def int) int {
	raw := p.Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, models.FieldError{
			Field:   name,
			Message: name + " must be an integer",
			Code:    "numeric",
		})
		return def
	}
	return v
}

func (p *queryParser) Bool(name string, def bool) bool {
	raw := p.Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, models.FieldError{
			Field:   name,
			Message: name + " must be true or false",
			Code:    "boolean",
		})
		return def
	}
	return v
}

// List splits comma-separated and repeated values: a=x,y&a=z is [x y z].
func (p *queryParser) List(name string) []string {
	var out []string
	for _, raw := range p.values[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Errors returns the conversion errors followed by extra.
func (p *queryParser) Errors(extra []models.FieldError) []models.FieldError {
	if len(p.errs) == 0 {
		return extra
	}
	return append(p.errs, extra...)
}
