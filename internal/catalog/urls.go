package catalog

import (
	"net/url"

	"storefront-service/internal/domain"
)

// ProductPath formats the canonical detail path for a (type, slug) pair.
// Every product type uses this one rule.
func ProductPath(tag domain.TypeTag, slug string) string {
	return "/products/" + url.PathEscape(string(tag)) + "/" + url.PathEscape(slug) + "/"
}

// ProductURL returns the canonical detail path of p.
func ProductURL(p domain.Product) string {
	return ProductPath(p.Type(), p.Core().Slug)
}

// CategoryURL returns the canonical detail path of c.
func CategoryURL(c domain.Category) string {
	return "/category/" + url.PathEscape(c.Slug) + "/"
}
