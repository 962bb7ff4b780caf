package catalog

// ItemForm is the create/update request payload.
type ItemForm struct {
	SKU           string  `json:"sku" validate:"required"`
	Barcode       string  `json:"barcode"`
	Name          string  `json:"name" validate:"required"`
	Category      string  `json:"category" validate:"required"`
	Unit          string  `json:"unit"`
	IsLoose       bool    `json:"isLoose"`
	MinOrderQty   float64 `json:"minOrderQty" validate:"gte=0"`
	IncrementStep float64 `json:"incrementStep" validate:"gte=0"`
	Cost          float64 `json:"cost" validate:"gte=0"`
	Price         float64 `json:"price" validate:"gte=0"`
	IsActive      *bool   `json:"isActive"`
}
