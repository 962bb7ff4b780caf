package receiving

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied to catalog items provisioned during receipt creation.
// Bulk items get a small fractional floor so fractional restocks validate;
// discrete items count in ones.
const (
	defaultBulkMinQty     = 0.1
	defaultBulkStep       = 0.1
	defaultDiscreteMinQty = 1
	defaultDiscreteStep   = 1
)

// bulkUnits are the mass and volume units that mark an item as loose.
var bulkUnits = map[string]struct{}{
	"g": {}, "gram": {}, "grams": {},
	"kg": {}, "kilogram": {}, "kilograms": {},
	"mg": {},
	"ml": {}, "millilitre": {}, "milliliter": {},
	"l": {}, "litre": {}, "liter": {},
}

// InferLoose reports whether the unit denotes a bulk (continuous) measure.
func InferLoose(unit string) bool {
	_, ok := bulkUnits[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}

// NewItemInput is the subset of a receipt line used to provision an item.
type NewItemInput struct {
	Name         string
	Category     string
	SKU          string
	Barcode      string
	Unit         string
	UnitCost     float64
	SellingPrice float64
}

// BuildItemDraft derives a catalog item from a "new"-item line. Name and
// category are checked by the caller before this runs. Stock starts at zero:
// inventory only ever increases through approval.
func BuildItemDraft(in NewItemInput, now time.Time) ItemDraft {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		sku = fmt.Sprintf("ITM-%d", now.UnixNano())
	}
	loose := InferLoose(in.Unit)
	draft := ItemDraft{
		SKU:      sku,
		Barcode:  strings.TrimSpace(in.Barcode),
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Unit:     strings.TrimSpace(in.Unit),
		IsLoose:  loose,
		Cost:     in.UnitCost,
		Price:    in.SellingPrice,
	}
	if loose {
		draft.MinOrderQty = defaultBulkMinQty
		draft.IncrementStep = defaultBulkStep
	} else {
		draft.MinOrderQty = defaultDiscreteMinQty
		draft.IncrementStep = defaultDiscreteStep
	}
	return draft
}
