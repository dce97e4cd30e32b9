package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TypeTag names a concrete product type. It is the "type" half of a ProductRef
// and the first segment of a product's canonical URL.
type TypeTag string

const (
	TypeNotebook   TypeTag = "notebook"
	TypeSmartphone TypeTag = "smartphone"
)

// ProductRef points at a row in one of the concrete product tables.
// IDs are per table, so the pair is only meaningful together.
type ProductRef struct {
	Type TypeTag `json:"type"`
	ID   int64   `json:"id"`
}

func (r ProductRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Category represents a product category in the system.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductCore is the shape shared by every concrete product type.
type ProductCore struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Image       string          `json:"image"`
	Description *string         `json:"description,omitempty"` // Pointer for nullable fields
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Product is implemented by every concrete product type.
type Product interface {
	Type() TypeTag
	Core() *ProductCore
	// SpecValues returns the type-specific attributes keyed by field name.
	SpecValues() map[string]any
}

// Ref returns the polymorphic reference for p.
func Ref(p Product) ProductRef {
	return ProductRef{Type: p.Type(), ID: p.Core().ID}
}

// Notebook is a laptop listing.
type Notebook struct {
	ProductCore
	Diagonal          string `json:"diagonal"`
	Display           string `json:"display"`
	ProcessorFreq     string `json:"processor_freq"`
	RAM               string `json:"ram"`
	Video             string `json:"video"`
	TimeWithoutCharge string `json:"time_without_charge"`
}

func (n *Notebook) Type() TypeTag      { return TypeNotebook }
func (n *Notebook) Core() *ProductCore { return &n.ProductCore }

func (n *Notebook) SpecValues() map[string]any {
	return map[string]any{
		"diagonal":            n.Diagonal,
		"display":             n.Display,
		"processor_freq":      n.ProcessorFreq,
		"ram":                 n.RAM,
		"video":               n.Video,
		"time_without_charge": n.TimeWithoutCharge,
	}
}

// Smartphone is a phone listing. SDVolume is only meaningful when SD is true.
type Smartphone struct {
	ProductCore
	Diagonal     string  `json:"diagonal"`
	Display      string  `json:"display"`
	Resolution   string  `json:"resolution"`
	AccumVolume  string  `json:"accum_volume"`
	RAM          string  `json:"ram"`
	SD           bool    `json:"sd"`
	SDVolume     *string `json:"sd_volume,omitempty"`
	MainCamMP    string  `json:"main_cam_mp"`
	FrontalCamMP string  `json:"frontal_cam_mp"`
}

func (s *Smartphone) Type() TypeTag      { return TypeSmartphone }
func (s *Smartphone) Core() *ProductCore { return &s.ProductCore }

func (s *Smartphone) SpecValues() map[string]any {
	return map[string]any{
		"diagonal":       s.Diagonal,
		"display":        s.Display,
		"resolution":     s.Resolution,
		"accum_volume":   s.AccumVolume,
		"ram":            s.RAM,
		"sd":             s.SD,
		"sd_volume":      s.SDVolume,
		"main_cam_mp":    s.MainCamMP,
		"frontal_cam_mp": s.FrontalCamMP,
	}
}
