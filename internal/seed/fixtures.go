// Package seed loads catalog fixtures from YAML into the store.
package seed

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"storefront-service/internal/domain"
)

// Catalog is the top-level fixture document.
type Catalog struct {
	Categories []CategoryFixture `yaml:"categories"`
	Products   []ProductFixture  `yaml:"products"`
}

type CategoryFixture struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// ProductFixture describes one product. Attributes holds the type-specific
// fields and is decoded once the type is known.
type ProductFixture struct {
	Type        string    `yaml:"type"`
	Category    string    `yaml:"category"`
	Title       string    `yaml:"title"`
	Slug        string    `yaml:"slug"`
	Description *string   `yaml:"description"`
	Price       string    `yaml:"price"`
	Image       string    `yaml:"image"`
	Attributes  yaml.Node `yaml:"attributes"`
}

type notebookAttributes struct {
	Diagonal          string `yaml:"diagonal"`
	Display           string `yaml:"display"`
	ProcessorFreq     string `yaml:"processor_freq"`
	RAM               string `yaml:"ram"`
	Video             string `yaml:"video"`
	TimeWithoutCharge string `yaml:"time_without_charge"`
}

type smartphoneAttributes struct {
	Diagonal     string  `yaml:"diagonal"`
	Display      string  `yaml:"display"`
	Resolution   string  `yaml:"resolution"`
	AccumVolume  string  `yaml:"accum_volume"`
	RAM          string  `yaml:"ram"`
	SD           bool    `yaml:"sd"`
	SDVolume     *string `yaml:"sd_volume"`
	MainCamMP    string  `yaml:"main_cam_mp"`
	FrontalCamMP string  `yaml:"frontal_cam_mp"`
}

// Load parses a fixture document.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("seed: decode fixtures: %w", err)
	}
	return &c, nil
}

// Product builds the domain product for f, filed under categoryID.
func (f ProductFixture) Product(categoryID int64) (domain.Product, error) {
	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		return nil, fmt.Errorf("seed: product %q: invalid price %q: %w", f.Slug, f.Price, err)
	}
	core := domain.ProductCore{
		CategoryID:  categoryID,
		Title:       f.Title,
		Slug:        f.Slug,
		Description: f.Description,
		Price:       price,
	}

	switch domain.TypeTag(f.Type) {
	case domain.TypeNotebook:
		var a notebookAttributes
		if err := f.decodeAttributes(&a); err != nil {
			return nil, err
		}
		return &domain.Notebook{
			ProductCore:       core,
			Diagonal:          a.Diagonal,
			Display:           a.Display,
			ProcessorFreq:     a.ProcessorFreq,
			RAM:               a.RAM,
			Video:             a.Video,
			TimeWithoutCharge: a.TimeWithoutCharge,
		}, nil
	case domain.TypeSmartphone:
		var a smartphoneAttributes
		if err := f.decodeAttributes(&a); err != nil {
			return nil, err
		}
		if !a.SD {
			a.SDVolume = nil
		}
		return &domain.Smartphone{
			ProductCore:  core,
			Diagonal:     a.Diagonal,
			Display:      a.Display,
			Resolution:   a.Resolution,
			AccumVolume:  a.AccumVolume,
			RAM:          a.RAM,
			SD:           a.SD,
			SDVolume:     a.SDVolume,
			MainCamMP:    a.MainCamMP,
			FrontalCamMP: a.FrontalCamMP,
		}, nil
	}
	return nil, fmt.Errorf("seed: product %q: unknown type %q", f.Slug, f.Type)
}

func (f ProductFixture) decodeAttributes(dst any) error {
	// An absent attributes key leaves a zero node.
	if f.Attributes.Kind == 0 {
		return nil
	}
	if err := f.Attributes.Decode(dst); err != nil {
		return fmt.Errorf("seed: product %q attributes: %w", f.Slug, err)
	}
	return nil
}
