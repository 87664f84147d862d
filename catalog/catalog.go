// Package catalog holds the tracked grocery items grouped by category and
// the store that persists them.
package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CustomCategory receives purchases that match no tracked item
const CustomCategory = "custom"

// DefaultUnit is used when an item has no unit
const DefaultUnit = "unit"

// Item is one tracked grocery item
type Item struct {
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	MaxPerWeek   float64 `json:"max_per_week" validate:"gte=0"`
	Unit         string  `json:"unit,omitempty"`
	OriginalName string  `json:"original_name,omitempty"`
}

// UnitOrDefault returns the item unit, DefaultUnit when empty
func (i Item) UnitOrDefault() string {
	if i.Unit == "" {
		return DefaultUnit
	}
	return i.Unit
}

// DisplayName returns the item original name, the title cased key when empty
func (i Item) DisplayName(key string) string {
	if i.OriginalName != "" {
		return i.OriginalName
	}
	return TitleFromKey(key)
}

// TitleFromKey turns "cheddar_cheese" into "Cheddar Cheese"
func TitleFromKey(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// Items maps item keys to items in document order
type Items = orderedmap.OrderedMap[string, Item]

// Categories maps category names to their items in document order
type Categories = orderedmap.OrderedMap[string, *Items]

// Catalog is the persisted grocery list document
type Catalog struct {
	Categories  *Categories `json:"categories"`
	LastUpdated string      `json:"last_updated,omitempty"`
}

// New returns an empty catalog
func New() *Catalog {
	return &Catalog{Categories: orderedmap.New[string, *Items]()}
}

// Parse decodes and validates a catalog document
func Parse(bs []byte) (*Catalog, error) {
	c := new(Catalog)
	if err := json.Unmarshal(bs, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Marshal encodes the catalog as indented JSON
func (c *Catalog) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the document has categories, non-empty names and non-negative numbers
func (c *Catalog) Validate() error {
	if c == nil || c.Categories == nil {
		return fmt.Errorf("%w: missing 'categories' key", ErrMalformed)
	}
	for cat := c.Categories.Oldest(); cat != nil; cat = cat.Next() {
		if strings.TrimSpace(cat.Key) == "" {
			return fmt.Errorf("%w: empty category name", ErrMalformed)
		}
		if cat.Value == nil {
			return fmt.Errorf("%w: category %q has no items object", ErrMalformed, cat.Key)
		}
		for it := cat.Value.Oldest(); it != nil; it = it.Next() {
			if strings.TrimSpace(it.Key) == "" {
				return fmt.Errorf("%w: empty item key in %q", ErrMalformed, cat.Key)
			}
			if err := validate.Struct(it.Value); err != nil {
				return fmt.Errorf("%w: %s:%s: %w", ErrMalformed, cat.Key, it.Key, err)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the catalog
func (c *Catalog) Clone() *Catalog {
	ret := New()
	ret.LastUpdated = c.LastUpdated
	if c.Categories == nil {
		return ret
	}
	for cat := c.Categories.Oldest(); cat != nil; cat = cat.Next() {
		items := orderedmap.New[string, Item]()
		if cat.Value != nil {
			for it := cat.Value.Oldest(); it != nil; it = it.Next() {
				items.Set(it.Key, it.Value)
			}
		}
		ret.Categories.Set(cat.Key, items)
	}
	return ret
}

// Each calls fn for every item in document order
func (c *Catalog) Each(fn func(category string, key string, item Item)) {
	if c.Categories == nil {
		return
	}
	for cat := c.Categories.Oldest(); cat != nil; cat = cat.Next() {
		if cat.Value == nil {
			continue
		}
		for it := cat.Value.Oldest(); it != nil; it = it.Next() {
			fn(cat.Key, it.Key, it.Value)
		}
	}
}

// Get returns the item stored under category and key
func (c *Catalog) Get(category string, key string) (Item, bool) {
	if c.Categories == nil {
		return Item{}, false
	}
	items, ok := c.Categories.Get(category)
	if !ok || items == nil {
		return Item{}, false
	}
	return items.Get(key)
}

// Set stores item under category and key, appending the category when missing.
// Existing keys keep their position.
func (c *Catalog) Set(category string, key string, item Item) {
	if c.Categories == nil {
		c.Categories = orderedmap.New[string, *Items]()
	}
	items, ok := c.Categories.Get(category)
	if !ok || items == nil {
		items = orderedmap.New[string, Item]()
		c.Categories.Set(category, items)
	}
	items.Set(key, item)
}

// Len returns the number of items across all categories
func (c *Catalog) Len() int {
	var n int
	c.Each(func(string, string, Item) { n++ })
	return n
}
