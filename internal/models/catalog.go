package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Metal colors recognized by the catalog. Gallery maps are validated against
// this list at write time.
var MetalColors = []string{
	"White Gold",
	"Yellow Gold",
	"Rose Gold",
	"Two Tone Gold",
	"Platinum",
}

// MetalGallery maps a metal-color name to an ordered image list. Stored as a
// JSON column so the per-color galleries stay a single field on the record.
type MetalGallery map[string][]string

func (g MetalGallery) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return json.Marshal(g)
}

func (g *MetalGallery) Scan(src any) error {
	if src == nil {
		*g = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("metal gallery: unsupported column type %T", src)
	}
	return json.Unmarshal(data, g)
}

func (g MetalGallery) Validate() error {
	for color := range g {
		known := false
		for _, m := range MetalColors {
			if m == color {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("metal gallery: unknown metal color %q", color)
		}
	}
	return nil
}

// CatalogBase carries the fields every catalog record shares. The storefront
// only ever sees rows with IsActive and IsAvailable set.
type CatalogBase struct {
	ID          uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string       `gorm:"not null"                 json:"name"`
	SKU         string       `gorm:"index"                    json:"sku"`
	Description string       `json:"description"`
	Price       float64      `gorm:"not null"                 json:"price"`
	SalePrice   *float64     `json:"salePrice,omitempty"`
	IsActive    bool         `gorm:"default:true"             json:"isActive"`
	IsAvailable bool         `gorm:"default:true"             json:"isAvailable"`
	Image       string       `json:"image"`
	Video       string       `json:"video,omitempty"`
	Gallery     MetalGallery `gorm:"type:text"                json:"gallery,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Base exposes the embedded common fields to category-generic code.
func (b *CatalogBase) Base() *CatalogBase { return b }

type Diamond struct {
	CatalogBase
	Shape         string  `gorm:"index" json:"shape"`
	Carat         float64 `gorm:"index" json:"carat"`
	Color         string  `json:"color"`
	Clarity       string  `json:"clarity"`
	Cut           string  `json:"cut"`
	Certification string  `json:"certification"`
	Fluorescence  string  `json:"fluorescence,omitempty"`
}

type Setting struct {
	CatalogBase
	Style      string `gorm:"index" json:"style"`
	Metal      string `gorm:"index" json:"metal"`
	Karat      string `json:"karat"`
	StoneShape string `json:"stoneShape,omitempty"`
}

type EngagementRing struct {
	CatalogBase
	Style string  `gorm:"index" json:"style"`
	Metal string  `gorm:"index" json:"metal"`
	Karat string  `json:"karat"`
	Carat float64 `json:"carat"`
}

type WeddingRing struct {
	CatalogBase
	Metal  string `gorm:"index" json:"metal"`
	Karat  string `json:"karat"`
	Width  string `json:"width,omitempty"`
	Gender string `json:"gender,omitempty"`
}

type Gemstone struct {
	CatalogBase
	Kind   string  `gorm:"column:kind;index" json:"type"`
	Shape  string  `gorm:"index" json:"shape"`
	Carat  float64 `json:"carat"`
	Origin string  `json:"origin,omitempty"`
}

type Bracelet struct {
	CatalogBase
	Style  string `gorm:"index" json:"style"`
	Metal  string `gorm:"index" json:"metal"`
	Length string `json:"length,omitempty"`
}

type Earring struct {
	CatalogBase
	Style string `gorm:"index" json:"style"`
	Metal string `gorm:"index" json:"metal"`
}

type Necklace struct {
	CatalogBase
	Style  string `gorm:"index" json:"style"`
	Metal  string `gorm:"index" json:"metal"`
	Length string `json:"length,omitempty"`
}

type MensJewelry struct {
	CatalogBase
	Kind  string `gorm:"column:kind;index" json:"type"`
	Metal string `gorm:"index" json:"metal"`
}
