package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() *ProductForm {
	return &ProductForm{
		Title:       "Blue Hoodie",
		Price:       "49.99",
		Description: "A warm hoodie",
		CategoryID:  "2",
		Images:      []string{"https://example.com/a.jpg"},
	}
}

func TestValidate_Success(t *testing.T) {
	result := Validate(validForm())
	require.True(t, result.Valid())

	assert.Equal(t, "Blue Hoodie", result.Payload.Title)
	assert.Equal(t, 49, result.Payload.Price, "fractional part is truncated")
	assert.Equal(t, 2, result.Payload.CategoryID)
	assert.Equal(t, []string{"https://example.com/a.jpg"}, result.Payload.Images)
}

func TestValidate_AggregatesAllRequiredErrors(t *testing.T) {
	result := Validate(&ProductForm{})
	require.False(t, result.Valid())

	assert.Contains(t, result.Errors, "title")
	assert.Contains(t, result.Errors, "price")
	assert.Contains(t, result.Errors, "description")
	assert.Contains(t, result.Errors, "category_id")
	assert.Nil(t, result.Payload)
}

func TestValidate_Price(t *testing.T) {
	cases := []struct {
		name  string
		price string
		ok    bool
	}{
		{"zero", "0", false},
		{"negative", "-5", false},
		{"non_numeric", "abc", false},
		{"whitespace", "   ", false},
		{"positive_integer", "10", true},
		{"positive_decimal", "10.75", true},
		{"not_a_number", "NaN", false},
		{"positive_infinity", "Inf", false},
		{"negative_infinity", "-Inf", false},
		{"overflows_int", "1e30", false},
		{"at_upper_bound", "2147483647", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := validForm()
			form.Price = tc.price
			result := Validate(form)
			if tc.ok {
				assert.True(t, result.Valid())
			} else {
				require.False(t, result.Valid())
				assert.Contains(t, result.Errors, "price")
			}
		})
	}
}

func TestValidate_PriceTruncation(t *testing.T) {
	form := validForm()
	form.Price = "19.99"
	result := Validate(form)
	require.True(t, result.Valid())
	assert.Equal(t, 19, result.Payload.Price)
}

func TestValidate_EmptyImagesGetPlaceholder(t *testing.T) {
	for _, images := range [][]string{nil, {}, {""}, {"   "}, {" , , "}} {
		form := validForm()
		form.Images = images
		result := Validate(form)
		require.True(t, result.Valid())
		assert.Equal(t, []string{DefaultImageURL}, result.Payload.Images)
	}
}

func TestValidate_CommaSeparatedImages(t *testing.T) {
	form := validForm()
	form.Images = []string{"https://example.com/a.jpg, https://example.com/b.jpg , "}
	result := Validate(form)
	require.True(t, result.Valid())
	assert.Equal(t, []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}, result.Payload.Images)
}

func TestValidate_BadImageURLNamesOffender(t *testing.T) {
	form := validForm()
	form.Images = []string{"https://example.com/a.jpg, ftp://bad.example.com/b.jpg"}
	result := Validate(form)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors["images"], "ftp://bad.example.com/b.jpg")
}

func TestValidate_CategoryID(t *testing.T) {
	form := validForm()
	form.CategoryID = "not-a-number"
	result := Validate(form)
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors, "category_id")
}

func TestValidate_RequiredSkipsTypeChecks(t *testing.T) {
	// A missing price reports only the required error, not the numeric one
	form := validForm()
	form.Price = ""
	result := Validate(form)
	require.False(t, result.Valid())
	assert.Equal(t, "This field is required.", result.Errors["price"])
}
