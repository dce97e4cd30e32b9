// Package catalog holds the product-type registry and the read-side catalog
// logic built on it: reference resolution, latest-product selection, the
// category sidebar and specification tables.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront-service/internal/domain"
)

var (
	ErrUnknownType      = errors.New("catalog: unknown product type")
	ErrCategoryMismatch = errors.New("catalog: category does not accept this product type")
)

// SpecField pairs a display label with the product field it renders.
// When is nil for fields that are always shown.
type SpecField struct {
	Label string
	Field string
	When  func(domain.Product) bool `json:"-"`
}

// TypeInfo describes one concrete product type.
type TypeInfo struct {
	Tag    domain.TypeTag
	Name   string
	schema []SpecField
}

var notebookInfo = TypeInfo{
	Tag:  domain.TypeNotebook,
	Name: "Notebook",
	schema: []SpecField{
		{Label: "Diagonal", Field: "diagonal"},
		{Label: "Display type", Field: "display"},
		{Label: "Processor freq", Field: "processor_freq"},
		{Label: "RAM", Field: "ram"},
		{Label: "Videocard", Field: "video"},
		{Label: "Battery working time", Field: "time_without_charge"},
	},
}

var smartphoneInfo = TypeInfo{
	Tag:  domain.TypeSmartphone,
	Name: "Smartphone",
	schema: []SpecField{
		{Label: "Diagonal", Field: "diagonal"},
		{Label: "Display type", Field: "display"},
		{Label: "Resolution", Field: "resolution"},
		{Label: "RAM", Field: "ram"},
		{Label: "SD", Field: "sd"},
		{Label: "Battery working time", Field: "accum_volume"},
		{Label: "Sd capacity", Field: "sd_volume", When: smartphoneHasSD},
		{Label: "Main Camera", Field: "main_cam_mp"},
		{Label: "Frontal Camera", Field: "frontal_cam_mp"},
	},
}

func smartphoneHasSD(p domain.Product) bool {
	s, ok := p.(*domain.Smartphone)
	return ok && s.SD
}

// Registry is the fixed set of concrete product types. It is immutable after
// NewRegistry returns and safe for concurrent use.
type Registry struct {
	types map[domain.TypeTag]TypeInfo
	order []domain.TypeTag
	// categoryTypes binds a category slug to the only type that may be filed under it.
	categoryTypes map[string]domain.TypeTag
}

// NewRegistry builds the registry of built-in product types. bindings maps a
// category slug to a type tag; entries are kept as given, so a binding to an
// unknown tag is reported by UnknownBindings rather than rejected here.
func NewRegistry(bindings map[string]string) *Registry {
	r := &Registry{
		types:         make(map[domain.TypeTag]TypeInfo),
		categoryTypes: make(map[string]domain.TypeTag, len(bindings)),
	}
	for _, info := range []TypeInfo{notebookInfo, smartphoneInfo} {
		r.types[info.Tag] = info
		r.order = append(r.order, info.Tag)
	}
	for slug, tag := range bindings {
		r.categoryTypes[strings.TrimSpace(slug)] = domain.TypeTag(strings.TrimSpace(tag))
	}
	return r
}

// ConcreteTypes returns the registered type tags in display order.
func (r *Registry) ConcreteTypes() []domain.TypeTag {
	out := make([]domain.TypeTag, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the type description for tag.
func (r *Registry) Lookup(tag domain.TypeTag) (TypeInfo, error) {
	info, ok := r.types[tag]
	if !ok {
		return TypeInfo{}, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	return info, nil
}

// ParseType converts user input into a registered type tag.
func (r *Registry) ParseType(s string) (domain.TypeTag, error) {
	tag := domain.TypeTag(strings.ToLower(strings.TrimSpace(s)))
	if _, err := r.Lookup(tag); err != nil {
		return "", err
	}
	return tag, nil
}

// SpecSchema returns the specification schema for p's type with optional
// fields already filtered for p. The slice is freshly allocated per call.
func (r *Registry) SpecSchema(p domain.Product) ([]SpecField, error) {
	info, err := r.Lookup(p.Type())
	if err != nil {
		return nil, err
	}
	out := make([]SpecField, 0, len(info.schema))
	for _, f := range info.schema {
		if f.When != nil && !f.When(p) {
			continue
		}
		out = append(out, SpecField{Label: f.Label, Field: f.Field})
	}
	return out, nil
}

// BoundType returns the type a category slug is bound to, if any.
func (r *Registry) BoundType(categorySlug string) (domain.TypeTag, bool) {
	tag, ok := r.categoryTypes[categorySlug]
	return tag, ok
}

// UnknownBindings lists category slugs bound to tags that are not registered.
func (r *Registry) UnknownBindings() []string {
	var slugs []string
	for slug, tag := range r.categoryTypes {
		if _, ok := r.types[tag]; !ok {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs
}

// CheckCategory reports whether a product of type tag may be filed under
// category. A type with a bound category only accepts that category, and a
// bound category only accepts its own type.
func (r *Registry) CheckCategory(tag domain.TypeTag, category *domain.Category) error {
	if bound, ok := r.categoryTypes[category.Slug]; ok {
		if bound != tag {
			return fmt.Errorf("%w: %q holds %s products", ErrCategoryMismatch, category.Slug, bound)
		}
		return nil
	}
	for slug, bound := range r.categoryTypes {
		if bound == tag {
			return fmt.Errorf("%w: %s products belong in %q", ErrCategoryMismatch, tag, slug)
		}
	}
	return nil
}
