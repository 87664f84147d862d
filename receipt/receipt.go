// Package receipt extracts purchased items from receipt images and archives the results.
package receipt

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/bububa/smart-shop/components"
	"github.com/bububa/smart-shop/schema"
)

var (
	// ErrNoItems is returned when a receipt yields no purchased items
	ErrNoItems = errors.New("no items found on receipt")
	// ErrExtraction is returned when the image processor fails
	ErrExtraction = errors.New("receipt extraction failed")
)

// LineItem is one purchased product
type LineItem struct {
	Item     string  `json:"item" jsonschema:"title=item,description=Product name as printed on the receipt."`
	Quantity float64 `json:"quantity" jsonschema:"title=quantity,description=Number of units purchased; 1 when the receipt does not say."`
	Price    float64 `json:"price" jsonschema:"title=price,description=Line total price; 0 when unreadable."`
}

// UnmarshalJSON defaults a missing quantity to 1
func (l *LineItem) UnmarshalJSON(bs []byte) error {
	type alias LineItem
	v := alias{Quantity: 1}
	if err := json.Unmarshal(bs, &v); err != nil {
		return err
	}
	*l = LineItem(v)
	return nil
}

// Receipt is the structured content of a receipt image
type Receipt struct {
	schema.Base
	Store    string     `json:"store,omitempty" jsonschema:"title=store,description=Store name if printed."`
	Date     string     `json:"date,omitempty" jsonschema:"title=date,description=Purchase date as YYYY-MM-DD."`
	Items    []LineItem `json:"items" jsonschema:"title=items,description=Every purchased product line."`
	Subtotal float64    `json:"subtotal,omitempty" jsonschema:"title=subtotal"`
	Tax      float64    `json:"tax,omitempty" jsonschema:"title=tax"`
	Total    float64    `json:"total,omitempty" jsonschema:"title=total"`
	// Model and Usage describe the extraction call, not the receipt
	Model string               `json:"-"`
	Usage *components.ApiUsage `json:"-"`
}

// Normalize trims item names and drops lines without a name
func (r *Receipt) Normalize() {
	items := r.Items[:0]
	for _, it := range r.Items {
		it.Item = strings.TrimSpace(it.Item)
		if it.Item == "" {
			continue
		}
		items = append(items, it)
	}
	r.Items = items
	r.Store = strings.TrimSpace(r.Store)
	r.Date = strings.TrimSpace(r.Date)
}

// TotalValue sums the line prices
func (r *Receipt) TotalValue() float64 {
	var v float64
	for _, it := range r.Items {
		v += it.Price
	}
	return v
}
