// Package suppliers holds the supplier directory receipts reference.
package suppliers

import "time"

// Supplier represents a supplier entity.
type Supplier struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	ContactName string    `json:"contactName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilters narrows the supplier listing.
type ListFilters struct {
	Search   string
	IsActive *bool
	SortBy   string
	SortDir  string
	Page     int
	Limit    int
}
