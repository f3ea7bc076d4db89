// Package validation validates API query models with go-playground/validator
// and renders failures as English field errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/bikenavi/bikenavi/internal/api/models"
	"github.com/bikenavi/bikenavi/internal/geo"
)

// ErrInvalidLonLat is returned by ParseLonLat.
var ErrInvalidLonLat = errors.New(`coordinates must be "lon,lat"`)

// Validator is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New creates a validator with English messages and the lonlat tag.
func New() *Validator {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = enTranslations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation(models.FieldCodeCoordinates, func(fl validator.FieldLevel) bool {
		_, err := ParseLonLat(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterTranslation(models.FieldCodeCoordinates, trans,
		func(t ut.Translator) error {
			return t.Add(models.FieldCodeCoordinates, `{0} must be "lon,lat" with lon in [-180,180] and lat in [-90,90]`, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(models.FieldCodeCoordinates, fe.Field())
			return msg
		},
	)

	return &Validator{validate: v, trans: trans}
}

// Struct validates s and returns one error per failed field, or nil.
func (v *Validator) Struct(s interface{}) []models.FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]models.FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, models.FieldError{
			Field:   e.Field(),
			Message: e.Translate(v.trans),
			Code:    e.Tag(),
		})
	}
	return out
}

// ParseLonLat parses "lon,lat".
func ParseLonLat(s string) (geo.Point, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, ErrInvalidLonLat
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: longitude: %w", ErrInvalidLonLat, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: latitude: %w", ErrInvalidLonLat, err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return geo.Point{}, fmt.Errorf("%w: %s out of range", ErrInvalidLonLat, s)
	}
	return geo.Point{Lon: lon, Lat: lat}, nil
}
