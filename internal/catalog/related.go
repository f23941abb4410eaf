package catalog

import (
	"context"

	apperrors "github.com/storefront-labs/storefront-api/pkg/errors"
)

const (
	relatedLimit        = 4
	genericWindowLimit  = 20
	genericWindowOffset = 0
)

// Related picks up to 4 products shown alongside a product detail page.
//
// If the product has a resolvable category, its category listing is the
// source. A transport failure on that lookup falls back to a generic window
// of 20 products; a remote error yields an empty result. Products without a
// category go straight to the generic window. The viewed product is always
// excluded. Lookups are sequential; a failed fallback yields an empty slice,
// never an error.
func (c *Client) Related(ctx context.Context, product *Product) []Product {
	if product.Category.ID != 0 {
		candidates, err := c.ListByCategory(ctx, product.Category.ID)
		if err == nil {
			return excludeAndCap(candidates, product.ID, relatedLimit)
		}
		if !apperrors.Is(err, apperrors.CodeTransportFailure) {
			return []Product{}
		}
	}

	candidates, err := c.List(ctx, genericWindowOffset, genericWindowLimit)
	if err != nil {
		return []Product{}
	}
	return excludeAndCap(candidates, product.ID, relatedLimit)
}

func excludeAndCap(candidates []Product, excludeID, limit int) []Product {
	related := make([]Product, 0, limit)
	for _, p := range candidates {
		if p.ID == excludeID {
			continue
		}
		related = append(related, p)
		if len(related) == limit {
			break
		}
	}
	return related
}
