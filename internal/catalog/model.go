// Package catalog manages the item master: SKUs, pricing, the bulk/discrete
// receiving policy, and the stock level maintained by receipt approvals.
package catalog

import "time"

// Item represents a catalog item entity.
type Item struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	Barcode       string    `json:"barcode,omitempty"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Unit          string    `json:"unit,omitempty"`
	IsLoose       bool      `json:"isLoose"`
	MinOrderQty   float64   `json:"minOrderQty"`
	IncrementStep float64   `json:"incrementStep"`
	StockQty      float64   `json:"stockQty"`
	Cost          float64   `json:"cost"`
	Price         float64   `json:"price"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ListFilters narrows the item listing.
type ListFilters struct {
	Search   string
	Category string
	IsActive *bool
	LowStock bool
	SortBy   string
	SortDir  string
	Page     int
	Limit    int
}
