// Package cart implements the dedup and merge rules for the client-held
// cart. The server never persists a cart; it only canonicalizes and reprices
// what the client sends.
package cart

import (
	"fmt"
	"time"
)

// StoneSnapshot freezes the chosen diamond or gemstone of a customized ring.
type StoneSnapshot struct {
	ID       uint    `json:"id"`
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Shape    string  `json:"shape,omitempty"`
	Carat    float64 `json:"carat,omitempty"`
	Price    float64 `json:"price"`
}

// SettingSnapshot freezes the chosen setting of a customized ring.
type SettingSnapshot struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Metal string  `json:"metal,omitempty"`
	Size  string  `json:"size,omitempty"`
	Price float64 `json:"price"`
}

type Customization struct {
	IsCustomized bool             `json:"isCustomized"`
	Stone        *StoneSnapshot   `json:"stone,omitempty"`
	Setting      *SettingSnapshot `json:"setting,omitempty"`
}

type Item struct {
	ProductID     uint           `json:"_id"`
	CartItemID    string         `json:"cartItemId"`
	Category      string         `json:"category"`
	Name          string         `json:"name"`
	Metal         string         `json:"metal,omitempty"`
	Size          string         `json:"size,omitempty"`
	Kind          string         `json:"type,omitempty"`
	Quantity      uint           `json:"quantity"`
	Price         float64        `json:"price"`
	Customization *Customization `json:"customization,omitempty"`
}

func (it Item) customized() bool {
	return it.Customization != nil && it.Customization.IsCustomized
}

// ItemKey builds the dedup key for an off-the-shelf item: two cart lines with
// the same product, metal, size, and type are the same line.
func ItemKey(productID uint, metal, size, kind string) string {
	return fmt.Sprintf("%d-%s-%s-%s", productID, metal, size, kind)
}

// CustomKey builds a unique key for a buyer-assembled item so it can never
// collide with another line.
func CustomKey(productID uint, now time.Time) string {
	return fmt.Sprintf("%d-%d", productID, now.UnixNano())
}

func (it *Item) ensureKey(now time.Time) {
	if it.CartItemID != "" {
		return
	}
	if it.customized() {
		it.CartItemID = CustomKey(it.ProductID, now)
	} else {
		it.CartItemID = ItemKey(it.ProductID, it.Metal, it.Size, it.Kind)
	}
}

// Add inserts an item into the cart. Non-customized items with a matching key
// merge by summing quantities; customized items are always a new line.
func Add(items []Item, it Item, now time.Time) []Item {
	if it.Quantity == 0 {
		it.Quantity = 1
	}
	it.ensureKey(now)

	if !it.customized() {
		for i := range items {
			if items[i].customized() {
				continue
			}
			if items[i].CartItemID == it.CartItemID {
				items[i].Quantity += it.Quantity
				return items
			}
		}
	}
	return append(items, it)
}

// Merge canonicalizes a whole client cart: duplicate off-the-shelf lines
// collapse, customized lines survive untouched, order is preserved.
func Merge(items []Item, now time.Time) []Item {
	merged := make([]Item, 0, len(items))
	for _, it := range items {
		merged = Add(merged, it, now)
		// keep synthetic custom keys unique even within one call
		now = now.Add(time.Nanosecond)
	}
	return merged
}

// Subtotal sums line prices times quantities.
func Subtotal(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
