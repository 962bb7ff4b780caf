package receiving

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ovenline-erp/ovenline-erp/internal/realtime"
	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReceipt(ctx context.Context, id int64) (Receipt, []Line, error)
	GetReceiptDetail(ctx context.Context, id int64) (ReceiptDetail, error)
	ListReceipts(ctx context.Context, filter ListFilter) ([]ReceiptSummary, int, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards approval posting across processes.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const (
	// createAttempts bounds the retry loop on receipt-number conflicts.
	createAttempts = 3
	// retryDelay is a short fixed wait before regenerating a number; this
	// is deliberately not a backoff loop.
	retryDelay = 50 * time.Millisecond

	idempotencyModule = "receiving.grn"
)

// Service orchestrates the receiving workflow.
type Service struct {
	repo        RepositoryPort
	events      EventPublisher
	audit       AuditPort
	idempotency IdempotencyPort
	now         func() time.Time
	sleep       func(time.Duration)
}

// NewService constructs the receiving service. events, audit and idempotency
// may be nil; the corresponding side effects are skipped.
func NewService(repo RepositoryPort, events EventPublisher, audit AuditPort, idempotency IdempotencyPort) *Service {
	return &Service{
		repo:        repo,
		events:      events,
		audit:       audit,
		idempotency: idempotency,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// CreateInput describes a receipt creation request.
type CreateInput struct {
	SupplierID   int64
	POReference  string
	ReceivedDate time.Time
	ReceivedBy   int64
	Notes        string
	Items        []LineInput
}

// LineInput is one submitted line. ItemID zero together with NewItem set
// means the catalog item must be provisioned as part of this receipt.
type LineInput struct {
	ItemID       int64
	NewItem      bool
	Name         string
	Category     string
	SKU          string
	Barcode      string
	Unit         string
	ExpectedQty  float64
	ReceivedQty  float64
	UnitCost     float64
	SellingPrice float64
	ExpiryDate   time.Time
	BatchNumber  string
	Note         string
}

// CreateResult reports the created receipt plus the requested/inserted line
// counts, so silently filtered lines surface as a count mismatch.
type CreateResult struct {
	ID             int64
	Number         string
	TotalValue     float64
	LinesRequested int
	LinesInserted  int
}

// Create persists a receipt header and its lines as one atomic unit.
//
// Lines whose item, quantity or unit cost is missing or non-positive are
// filtered without failing the batch; a batch in which no line survives is
// rolled back entirely. Receipt-number conflicts from concurrent writers are
// retried with a freshly generated number up to createAttempts times.
func (s *Service) Create(ctx context.Context, input CreateInput) (CreateResult, error) {
	if err := s.validateCreate(input); err != nil {
		return CreateResult{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		result, err := s.createOnce(ctx, input)
		if err == nil {
			s.recordAudit(ctx, input.ReceivedBy, "GRN_CREATE", result.ID, map[string]any{
				"number":          result.Number,
				"total":           shared.FormatMoney(result.TotalValue),
				"lines_requested": result.LinesRequested,
				"lines_inserted":  result.LinesInserted,
			})
			return result, nil
		}
		if !isDuplicateNumber(err) {
			return CreateResult{}, err
		}
		lastErr = err
		if attempt < createAttempts {
			s.sleep(retryDelay)
		}
	}
	return CreateResult{}, fmt.Errorf("%w: %v", ErrNumberExhausted, lastErr)
}

func (s *Service) validateCreate(input CreateInput) error {
	if input.SupplierID <= 0 {
		return &ValidationError{Reason: "supplier is required"}
	}
	if input.ReceivedDate.IsZero() {
		return &ValidationError{Reason: "received date is required"}
	}
	if len(input.Items) == 0 {
		return &ValidationError{Reason: "at least one line is required"}
	}
	for _, item := range input.Items {
		if !item.NewItem {
			continue
		}
		// Provisioning a catalog item needs a name and a category; missing
		// either fails the whole batch, not just the line.
		if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Category) == "" {
			return &ValidationError{Reason: "new items require a name and a category"}
		}
	}
	return nil
}

func (s *Service) createOnce(ctx context.Context, input CreateInput) (CreateResult, error) {
	var result CreateResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := NextNumber(ctx, tx, s.now())
		if err != nil {
			return err
		}

		lines, err := s.resolveLines(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			// A header without lines must never be committed.
			return ErrNoValidLines
		}

		// Total from the lines that will actually be inserted, using decimal
		// arithmetic so the stored value matches the sum exactly.
		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(decimal.NewFromFloat(line.ReceivedQty).Mul(decimal.NewFromFloat(line.UnitCost)))
		}
		totalValue := total.Round(2).InexactFloat64()

		receiptID, err := tx.InsertReceipt(ctx, Receipt{
			Number:       number,
			SupplierID:   input.SupplierID,
			POReference:  input.POReference,
			ReceivedDate: input.ReceivedDate,
			ReceivedBy:   input.ReceivedBy,
			Notes:        input.Notes,
			TotalValue:   totalValue,
			Status:       StatusPending,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			line.ReceiptID = receiptID
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}

		result = CreateResult{
			ID:             receiptID,
			Number:         number,
			TotalValue:     totalValue,
			LinesRequested: len(input.Items),
			LinesInserted:  len(lines),
		}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	return result, nil
}

// resolveLines provisions new items, validates quantities against item
// policy, and silently filters lines with a missing item, non-positive
// quantity, or non-positive cost.
func (s *Service) resolveLines(ctx context.Context, tx TxRepository, items []LineInput) ([]Line, error) {
	var lines []Line
	for _, item := range items {
		itemID := item.ItemID
		provisioned := false
		if item.NewItem {
			if item.ReceivedQty <= 0 || item.UnitCost <= 0 {
				continue
			}
			draft := BuildItemDraft(NewItemInput{
				Name:         item.Name,
				Category:     item.Category,
				SKU:          item.SKU,
				Barcode:      item.Barcode,
				Unit:         item.Unit,
				UnitCost:     item.UnitCost,
				SellingPrice: item.SellingPrice,
			}, s.now())
			id, err := tx.CreateItem(ctx, draft)
			if err != nil {
				return nil, fmt.Errorf("receiving: provision item %q: %w", draft.Name, err)
			}
			itemID = id
			provisioned = true
		}

		if itemID <= 0 || item.ReceivedQty <= 0 || item.UnitCost <= 0 {
			continue
		}

		if !provisioned {
			policy, err := tx.GetItemPolicy(ctx, itemID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil, fmt.Errorf("%w: id %d", ErrItemNotFound, itemID)
				}
				return nil, err
			}
			// Freshly provisioned items are exempt: their policy was just
			// established from this very line.
			if err := ValidateLineQty(policy, item.ReceivedQty); err != nil {
				return nil, err
			}
		}

		expected := item.ExpectedQty
		if expected <= 0 {
			expected = item.ReceivedQty
		}
		lines = append(lines, Line{
			ItemID:       itemID,
			ExpectedQty:  expected,
			ReceivedQty:  item.ReceivedQty,
			UnitCost:     item.UnitCost,
			SellingPrice: item.SellingPrice,
			ExpiryDate:   item.ExpiryDate,
			BatchNumber:  item.BatchNumber,
			Note:         item.Note,
			Barcode:      item.Barcode,
		})
	}
	return lines, nil
}

// Approve transitions a pending receipt to approved and applies every line
// to catalog stock in the same transaction: stock increases by the received
// quantity and unit cost is overwritten (last write wins, not averaged).
func (s *Service) Approve(ctx context.Context, receiptID, actorID int64) error {
	receipt, lines, err := s.repo.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if receipt.Status != StatusPending {
		return &StateConflictError{Current: receipt.Status}
	}

	key := fmt.Sprintf("GRN:%s", receipt.Number)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return err
		}
		inserted = true
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		flipped, err := tx.MarkStatus(ctx, receiptID, StatusPending, StatusApproved)
		if err != nil {
			return err
		}
		if !flipped {
			// A concurrent actor won the transition between our read and
			// this update.
			current, err := currentStatus(ctx, s.repo, receiptID)
			if err != nil {
				return err
			}
			return &StateConflictError{Current: current}
		}
		for _, line := range lines {
			if err := tx.ApplyLineToStock(ctx, line.ItemID, line.ReceivedQty, line.UnitCost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return err
	}

	if s.events != nil {
		// Best effort: approval has committed whether or not listeners hear
		// about it.
		_ = s.events.Publish(ctx, realtime.Event{
			Type:      EventTypeCompleted,
			ReceiptID: receiptID,
			Meta: map[string]any{
				"number": receipt.Number,
				"total":  shared.FormatMoney(receipt.TotalValue),
			},
		})
	}
	s.recordAudit(ctx, actorID, "GRN_COMPLETE", receiptID, map[string]any{
		"number": receipt.Number,
		"lines":  len(lines),
	})
	return nil
}

// Reject transitions a pending receipt to rejected. No inventory is touched.
func (s *Service) Reject(ctx context.Context, receiptID, actorID int64) error {
	receipt, _, err := s.repo.GetReceipt(ctx, receiptID)
	if err != nil {
		return err
	}
	if receipt.Status != StatusPending {
		return &StateConflictError{Current: receipt.Status}
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		flipped, err := tx.MarkStatus(ctx, receiptID, StatusPending, StatusRejected)
		if err != nil {
			return err
		}
		if !flipped {
			current, err := currentStatus(ctx, s.repo, receiptID)
			if err != nil {
				return err
			}
			return &StateConflictError{Current: current}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "GRN_CANCEL", receiptID, map[string]any{"number": receipt.Number})
	return nil
}

// FindByID returns one receipt enriched with supplier, receiver and catalog
// display fields.
func (s *Service) FindByID(ctx context.Context, receiptID int64) (ReceiptDetail, error) {
	return s.repo.GetReceiptDetail(ctx, receiptID)
}

// List returns a page of receipt summaries plus the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ReceiptSummary, shared.Pagination, error) {
	if filter.Limit <= 0 {
		filter.Limit = shared.DefaultPageSize
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	items, total, err := s.repo.ListReceipts(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, receiptID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "goods_receipt",
		EntityID: fmt.Sprintf("%d", receiptID),
		Meta:     meta,
	})
}

func currentStatus(ctx context.Context, repo RepositoryPort, receiptID int64) (Status, error) {
	receipt, _, err := repo.GetReceipt(ctx, receiptID)
	if err != nil {
		return "", err
	}
	return receipt.Status, nil
}
