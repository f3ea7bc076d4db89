package handler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikenavi/bikenavi/internal/api/models"
)

func TestQueryParser(t *testing.T) {
	p := newQueryParser(url.Values{
		"safety":      {" 7 "},
		"radius":      {"far"},
		"needParking": {"yes"},
		"operators":   {"docomo, hellocycling", "", "pippa"},
	})

	assert.Equal(t, 7, p.Int("safety", 5))
	assert.Equal(t, 500, p.Int("radius", 500))
	assert.Equal(t, 3, p.Int("minBikes", 3))
	assert.False(t, p.Bool("needParking", false))
	assert.True(t, p.Bool("missing", true))
	assert.Equal(t, []string{"docomo", "hellocycling", "pippa"}, p.List("operators"))
	assert.Nil(t, p.List("nothing"))

	errs := p.Errors([]models.FieldError{{Field: "origin", Code: "required"}})
	require.Len(t, errs, 3)
	assert.Equal(t, "radius", errs[0].Field)
	assert.Equal(t, "numeric", errs[0].Code)
	assert.Equal(t, "needParking", errs[1].Field)
	assert.Equal(t, "boolean", errs[1].Code)
	assert.Equal(t, "origin", errs[2].Field)
}

func TestQueryParser_NoErrors(t *testing.T) {
	p := newQueryParser(url.Values{"needParking": {"true"}})

	assert.True(t, p.Bool("needParking", false))
	assert.Empty(t, p.Errors(nil))
}
