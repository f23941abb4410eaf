package forms

import (
	"math"
	"strconv"
	"strings"

	"github.com/storefront-labs/storefront-api/internal/catalog"
	"github.com/storefront-labs/storefront-api/internal/metrics"
)

// DefaultImageURL substitutes for an empty image list on submission.
const DefaultImageURL = "https://via.placeholder.com/640x480?text=No+Image"

// maxPrice bounds accepted prices so the float-to-int conversion stays
// exact on every platform.
const maxPrice = math.MaxInt32

// ProductForm carries the raw submitted fields of a product create/edit
// form. All values arrive as strings; Images entries may themselves be
// comma-separated lists of URLs.
type ProductForm struct {
	Title       string
	Price       string
	Description string
	CategoryID  string
	Images      []string
}

// Result is the outcome of validating a ProductForm: either a canonical
// payload ready for transmission, or a field-to-message error map.
type Result struct {
	Payload *catalog.ProductPayload
	Errors  map[string]string
}

// Valid reports whether the form passed validation
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks and coerces a submitted product form.
//
// Required-field checks run first and aggregate every missing field. The
// type-specific checks (price, images, category) then each short-circuit
// independently: a field that failed its required check is not re-checked.
func Validate(form *ProductForm) *Result {
	errs := make(map[string]string)

	if strings.TrimSpace(form.Title) == "" {
		errs["title"] = "This field is required."
	}
	if strings.TrimSpace(form.Price) == "" {
		errs["price"] = "This field is required."
	}
	if strings.TrimSpace(form.Description) == "" {
		errs["description"] = "This field is required."
	}
	if strings.TrimSpace(form.CategoryID) == "" {
		errs["category_id"] = "This field is required."
	}

	var price int
	if _, missing := errs["price"]; !missing {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(form.Price), 64)
		// NaN fails the > 0 comparison; the upper bound rejects +Inf and
		// values whose int conversion would overflow.
		if err != nil || !(parsed > 0) || parsed > maxPrice {
			errs["price"] = "Price must be a number greater than zero."
		} else {
			price = int(parsed) // major unit, fraction truncated
		}
	}

	var categoryID int
	if _, missing := errs["category_id"]; !missing {
		parsed, err := strconv.Atoi(strings.TrimSpace(form.CategoryID))
		if err != nil {
			errs["category_id"] = "Invalid category id."
		} else {
			categoryID = parsed
		}
	}

	images, badURL := normalizeImages(form.Images)
	if badURL != "" {
		errs["images"] = "Invalid URL: " + badURL + ". Must start with http:// or https://"
	}

	if len(errs) > 0 {
		for field := range errs {
			metrics.RecordValidationFailure(field)
		}
		return &Result{Errors: errs}
	}

	return &Result{
		Payload: &catalog.ProductPayload{
			Title:       strings.TrimSpace(form.Title),
			Price:       price,
			Description: strings.TrimSpace(form.Description),
			CategoryID:  categoryID,
			Images:      images,
		},
	}
}

// normalizeImages flattens comma-separated entries, trims whitespace and
// drops empties. An empty result substitutes the placeholder; otherwise the
// first entry missing an http/https scheme is returned as the offender.
func normalizeImages(raw []string) ([]string, string) {
	urls := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			if url := strings.TrimSpace(part); url != "" {
				urls = append(urls, url)
			}
		}
	}

	if len(urls) == 0 {
		return []string{DefaultImageURL}, ""
	}

	for _, url := range urls {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, url
		}
	}

	return urls, ""
}
