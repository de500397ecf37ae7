package catalog

import (
	"github.com/gemcraft/storefront/internal/models"
)

// Spec describes how one product category maps HTTP vocabulary onto its
// table: which segment dimensions and query parameters exist, which columns
// they filter, and which sorts it supports beyond the shared set.
type Spec struct {
	Key          string
	Table        string
	DefaultLimit int

	// Dimensions maps a path-segment dimension ("metal" in
	// "metal-yellow-gold") to its column.
	Dimensions map[string]string

	// Params maps a comma-separated query parameter to its column. Values
	// supplied here always replace whatever the segment implied for the
	// same column.
	Params map[string]string

	// Sorts holds category-specific additions to the shared sort vocabulary.
	Sorts map[string]Sort

	Model func() any
	Slice func() any
}

var categories = map[string]*Spec{
	"diamonds": {
		Key:          "diamonds",
		Table:        "diamonds",
		DefaultLimit: 20,
		Dimensions:   map[string]string{"shape": "shape", "color": "color", "clarity": "clarity", "cut": "cut"},
		Params: map[string]string{
			"shapes": "shape", "colors": "color", "clarities": "clarity",
			"cuts": "cut", "certifications": "certification",
		},
		Sorts: caratSorts,
		Model: func() any { return &models.Diamond{} },
		Slice: func() any { return &[]models.Diamond{} },
	},
	"settings": {
		Key:          "settings",
		Table:        "settings",
		DefaultLimit: 12,
		Dimensions:   map[string]string{"metal": "metal", "style": "style"},
		Params:       map[string]string{"metalColors": "metal", "styles": "style"},
		Model:        func() any { return &models.Setting{} },
		Slice:        func() any { return &[]models.Setting{} },
	},
	"engagement-rings": {
		Key:          "engagement-rings",
		Table:        "engagement_rings",
		DefaultLimit: 12,
		Dimensions:   map[string]string{"metal": "metal", "style": "style"},
		Params:       map[string]string{"metalColors": "metal", "styles": "style"},
		Sorts:        caratSorts,
		Model:        func() any { return &models.EngagementRing{} },
		Slice:        func() any { return &[]models.EngagementRing{} },
	},
	"wedding-rings": {
		Key:          "wedding-rings",
		Table:        "wedding_rings",
		DefaultLimit: 12,
		Dimensions:   map[string]string{"metal": "metal", "gender": "gender"},
		Params:       map[string]string{"metalColors": "metal", "genders": "gender"},
		Model:        func() any { return &models.WeddingRing{} },
		Slice:        func() any { return &[]models.WeddingRing{} },
	},
	"gemstones": {
		Key:          "gemstones",
		Table:        "gemstones",
		DefaultLimit: 20,
		Dimensions:   map[string]string{"type": "kind", "shape": "shape"},
		Params:       map[string]string{"types": "kind", "shapes": "shape"},
		Sorts:        caratSorts,
		Model:        func() any { return &models.Gemstone{} },
		Slice:        func() any { return &[]models.Gemstone{} },
	},
	"bracelets": {
		Key:          "bracelets",
		Table:        "bracelets",
		DefaultLimit: 15,
		Dimensions:   map[string]string{"metal": "metal", "style": "style"},
		Params:       map[string]string{"metalColors": "metal", "styles": "style"},
		Model:        func() any { return &models.Bracelet{} },
		Slice:        func() any { return &[]models.Bracelet{} },
	},
	"earrings": {
		Key:          "earrings",
		Table:        "earrings",
		DefaultLimit: 15,
		Dimensions:   map[string]string{"metal": "metal", "style": "style"},
		Params:       map[string]string{"metalColors": "metal", "styles": "style"},
		Model:        func() any { return &models.Earring{} },
		Slice:        func() any { return &[]models.Earring{} },
	},
	"necklaces": {
		Key:          "necklaces",
		Table:        "necklaces",
		DefaultLimit: 15,
		Dimensions:   map[string]string{"metal": "metal", "style": "style"},
		Params:       map[string]string{"metalColors": "metal", "styles": "style"},
		Model:        func() any { return &models.Necklace{} },
		Slice:        func() any { return &[]models.Necklace{} },
	},
	"mens-jewelry": {
		Key:          "mens-jewelry",
		Table:        "mens_jewelries",
		DefaultLimit: 15,
		Dimensions:   map[string]string{"metal": "metal", "type": "kind"},
		Params:       map[string]string{"metalColors": "metal", "types": "kind"},
		Model:        func() any { return &models.MensJewelry{} },
		Slice:        func() any { return &[]models.MensJewelry{} },
	},
}

var caratSorts = map[string]Sort{
	"carat-asc":  {Column: "carat"},
	"carat-desc": {Column: "carat", Desc: true},
}

func Lookup(key string) (*Spec, bool) {
	s, ok := categories[key]
	return s, ok
}
