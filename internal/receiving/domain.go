// Package receiving implements the goods-received-note workflow: receipt
// creation with on-the-fly item provisioning, the pending/approved/rejected
// state machine, and the stock mutation applied on approval.
package receiving

import (
	"fmt"
	"time"

	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

// Status is the receipt lifecycle state. Transitions are monotonic:
// pending -> approved or pending -> rejected, both terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Receipt is the GRN header.
type Receipt struct {
	ID           int64
	Number       string
	SupplierID   int64
	POReference  string
	ReceivedDate time.Time
	ReceivedBy   int64
	Notes        string
	TotalValue   float64
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Line is one received item entry. ReceivedQty is decimal to support bulk
// units; a zero SellingPrice or ExpiryDate means the field was not supplied.
type Line struct {
	ID           int64
	ReceiptID    int64
	ItemID       int64
	ExpectedQty  float64
	ReceivedQty  float64
	UnitCost     float64
	SellingPrice float64
	ExpiryDate   time.Time
	BatchNumber  string
	Note         string
	Barcode      string
}

// ItemPolicy carries the catalog fields the line validator needs.
type ItemPolicy struct {
	ID            int64
	Name          string
	Unit          string
	IsLoose       bool
	MinOrderQty   float64
	IncrementStep float64
}

// ItemDraft describes a catalog item provisioned during receipt creation.
type ItemDraft struct {
	SKU           string
	Barcode       string
	Name          string
	Category      string
	Unit          string
	IsLoose       bool
	MinOrderQty   float64
	IncrementStep float64
	Cost          float64
	Price         float64
}

// ReceiptDetail is the read-model returned by FindByID: the header enriched
// with display names plus its enriched lines.
type ReceiptDetail struct {
	Receipt
	SupplierName string
	ReceiverName string
	Lines        []LineDetail
}

// LineDetail is a line enriched with catalog display fields.
type LineDetail struct {
	Line
	ItemName     string
	ItemSKU      string
	ItemBarcode  string
	ItemUnit     string
	ItemCategory string
}

// ReceiptSummary is one row of the listing read-model.
type ReceiptSummary struct {
	ID           int64
	Number       string
	SupplierID   int64
	SupplierName string
	ReceivedDate time.Time
	TotalValue   float64
	Status       Status
	LineCount    int
	CreatedAt    time.Time
}

// ListFilter narrows and pages the receipt listing.
type ListFilter struct {
	SupplierID int64
	DateFrom   time.Time
	DateTo     time.Time
	Page       int
	Limit      int
}

var (
	// ErrNotFound indicates the receipt does not exist.
	ErrNotFound = fmt.Errorf("receiving: receipt %w", shared.ErrNotFound)
	// ErrItemNotFound indicates a line referenced a nonexistent catalog item.
	ErrItemNotFound = fmt.Errorf("receiving: catalog item %w", shared.ErrNotFound)
	// ErrNoValidLines indicates every submitted line was filtered out.
	ErrNoValidLines = fmt.Errorf("receiving: no valid lines to record: %w", shared.ErrValidation)
	// ErrNumberExhausted indicates duplicate receipt numbers survived all retries.
	ErrNumberExhausted = fmt.Errorf("receiving: could not allocate a unique receipt number: %w", shared.ErrDuplicate)
)

// ValidationError reports a request rejected before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "receiving: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return shared.ErrValidation }

// PolicyError reports a line whose quantity violates the item's bulk or
// discrete policy. The whole batch fails, not just the offending line.
type PolicyError struct {
	ItemID   int64
	ItemName string
	Reason   string
}

func (e *PolicyError) Error() string {
	name := e.ItemName
	if name == "" {
		name = fmt.Sprintf("item %d", e.ItemID)
	}
	return fmt.Sprintf("receiving: %s: %s", name, e.Reason)
}

func (e *PolicyError) Unwrap() error { return shared.ErrValidation }

// StateConflictError reports a transition attempted on a non-pending receipt.
type StateConflictError struct {
	Current Status
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("receiving: receipt is already %s; only pending receipts can be completed or cancelled", e.Current)
}

func (e *StateConflictError) Unwrap() error { return shared.ErrStateConflict }
