// Package shopping derives the weekly shopping list and the inventory view from a catalog.
package shopping

import (
	"math"
	"sort"
	"strconv"

	"github.com/bububa/smart-shop/catalog"
)

// Priority of a shopping list entry
type Priority string

const (
	High   Priority = "high"
	Medium Priority = "medium"
	Low    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case High:
		return 0
	case Medium:
		return 1
	case Low:
		return 2
	default:
		return 3
	}
}

const (
	highRatio   = 0.8
	mediumRatio = 0.5
	// maxPercentage caps ratios that overflow, e.g. a tiny max_per_week
	maxPercentage = math.MaxInt32
)

// Entry is one item to buy
type Entry struct {
	Name     string   `json:"name"`
	Quantity string   `json:"quantity"`
	Category string   `json:"category"`
	Priority Priority `json:"priority"`
}

// InventoryEntry is one item on hand
type InventoryEntry struct {
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	Max        string `json:"max"`
	Category   string `json:"category"`
	Percentage int    `json:"percentage"`
}

// List is the set of items to buy
type List struct {
	Items []Entry `json:"items"`
	Total int     `json:"total"`
}

// Inventory is the set of items on hand
type Inventory struct {
	Items []InventoryEntry `json:"items"`
	Total int              `json:"total"`
}

// Report holds both views of a catalog
type Report struct {
	ShoppingList     List      `json:"shopping_list"`
	CurrentInventory Inventory `json:"current_inventory"`
}

// Generate computes the shopping list and the inventory view. It does not modify c.
func Generate(c *catalog.Catalog) *Report {
	ret := &Report{
		ShoppingList:     List{Items: []Entry{}},
		CurrentInventory: Inventory{Items: []InventoryEntry{}},
	}
	c.Each(func(category string, key string, item catalog.Item) {
		name := item.DisplayName(key)
		unit := item.UnitOrDefault()
		needed := item.MaxPerWeek - item.Quantity
		if needed > 0 {
			ret.ShoppingList.Items = append(ret.ShoppingList.Items, Entry{
				Name:     name,
				Quantity: FormatQuantity(needed, unit),
				Category: category,
				Priority: priority(needed, item.MaxPerWeek),
			})
		}
		if item.Quantity > 0 {
			ret.CurrentInventory.Items = append(ret.CurrentInventory.Items, InventoryEntry{
				Name:       name,
				Quantity:   FormatQuantity(item.Quantity, unit),
				Max:        FormatQuantity(item.MaxPerWeek, unit),
				Category:   category,
				Percentage: percentage(item.Quantity, item.MaxPerWeek),
			})
		}
	})
	sort.SliceStable(ret.ShoppingList.Items, func(i, j int) bool {
		return ret.ShoppingList.Items[i].Priority.rank() < ret.ShoppingList.Items[j].Priority.rank()
	})
	sort.SliceStable(ret.CurrentInventory.Items, func(i, j int) bool {
		return ret.CurrentInventory.Items[i].Percentage < ret.CurrentInventory.Items[j].Percentage
	})
	ret.ShoppingList.Total = len(ret.ShoppingList.Items)
	ret.CurrentInventory.Total = len(ret.CurrentInventory.Items)
	return ret
}

func priority(needed float64, max float64) Priority {
	switch {
	case needed >= max*highRatio:
		return High
	case needed >= max*mediumRatio:
		return Medium
	default:
		return Low
	}
}

func percentage(qty float64, max float64) int {
	if max <= 0 {
		return 0
	}
	v := math.Floor(qty / max * 100)
	if !(v < maxPercentage) {
		return maxPercentage
	}
	return int(v)
}

// FormatNumber renders v with the fewest digits that round trip: 3 -> "3", 1.5 -> "1.5"
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatQuantity renders "{v} {unit}"
func FormatQuantity(v float64, unit string) string {
	return FormatNumber(v) + " " + unit
}
