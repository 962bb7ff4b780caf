package receiving

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/ovenline-erp/ovenline-erp/internal/realtime"
	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

type memItem struct {
	policy ItemPolicy
	stock  float64
	cost   float64
	draft  ItemDraft
}

type memoryRepo struct {
	mu       sync.Mutex
	receipts map[int64]Receipt
	lines    map[int64][]Line
	items    map[int64]*memItem
	nextID   int64

	// insertFailures makes the next n InsertReceipt calls fail with a
	// unique violation, simulating concurrent writers.
	insertFailures int
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		receipts: make(map[int64]Receipt),
		lines:    make(map[int64][]Line),
		items:    make(map[int64]*memItem),
	}
}

func (r *memoryRepo) addItem(policy ItemPolicy, stock, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if policy.ID == 0 {
		r.nextID++
		policy.ID = r.nextID
	}
	r.items[policy.ID] = &memItem{policy: policy, stock: stock, cost: cost}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetReceipt(ctx context.Context, id int64) (Receipt, []Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receipts[id]
	if !ok {
		return Receipt{}, nil, ErrNotFound
	}
	return rec, append([]Line(nil), r.lines[id]...), nil
}

func (r *memoryRepo) GetReceiptDetail(ctx context.Context, id int64) (ReceiptDetail, error) {
	rec, lines, err := r.GetReceipt(ctx, id)
	if err != nil {
		return ReceiptDetail{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	detail := ReceiptDetail{Receipt: rec}
	for _, line := range lines {
		ld := LineDetail{Line: line}
		if item, ok := r.items[line.ItemID]; ok {
			ld.ItemName = item.policy.Name
		}
		detail.Lines = append(detail.Lines, ld)
	}
	return detail, nil
}

func (r *memoryRepo) ListReceipts(ctx context.Context, filter ListFilter) ([]ReceiptSummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []ReceiptSummary
	for _, rec := range r.receipts {
		if filter.SupplierID > 0 && rec.SupplierID != filter.SupplierID {
			continue
		}
		all = append(all, ReceiptSummary{
			ID:           rec.ID,
			Number:       rec.Number,
			SupplierID:   rec.SupplierID,
			ReceivedDate: rec.ReceivedDate,
			TotalValue:   rec.TotalValue,
			Status:       rec.Status,
			LineCount:    len(r.lines[rec.ID]),
			CreatedAt:    rec.CreatedAt,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (tx *memoryTx) nextID() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryTx) MaxNumberSuffix(ctx context.Context, prefix string) (int, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	max := 0
	for _, rec := range tx.repo.receipts {
		rest, ok := strings.CutPrefix(rec.Number, prefix)
		if !ok || len(rest) != 3 {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	return max, nil
}

func (tx *memoryTx) NumberExists(ctx context.Context, number string) (bool, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	for _, rec := range tx.repo.receipts {
		if rec.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) InsertReceipt(ctx context.Context, receipt Receipt) (int64, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	if tx.repo.insertFailures > 0 {
		tx.repo.insertFailures--
		return 0, &pgconn.PgError{Code: "23505", ConstraintName: numberConstraint}
	}
	for _, existing := range tx.repo.receipts {
		if existing.Number == receipt.Number {
			return 0, &pgconn.PgError{Code: "23505", ConstraintName: numberConstraint}
		}
	}
	id := tx.nextID()
	receipt.ID = id
	receipt.CreatedAt = time.Now()
	receipt.UpdatedAt = receipt.CreatedAt
	tx.repo.receipts[id] = receipt
	return id, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line Line) error {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	line.ID = tx.nextID()
	tx.repo.lines[line.ReceiptID] = append(tx.repo.lines[line.ReceiptID], line)
	return nil
}

func (tx *memoryTx) CreateItem(ctx context.Context, draft ItemDraft) (int64, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	id := tx.nextID()
	tx.repo.items[id] = &memItem{
		policy: ItemPolicy{
			ID:            id,
			Name:          draft.Name,
			Unit:          draft.Unit,
			IsLoose:       draft.IsLoose,
			MinOrderQty:   draft.MinOrderQty,
			IncrementStep: draft.IncrementStep,
		},
		cost:  draft.Cost,
		draft: draft,
	}
	return id, nil
}

func (tx *memoryTx) GetItemPolicy(ctx context.Context, itemID int64) (ItemPolicy, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	item, ok := tx.repo.items[itemID]
	if !ok {
		return ItemPolicy{}, shared.ErrNotFound
	}
	return item.policy, nil
}

func (tx *memoryTx) MarkStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	rec, ok := tx.repo.receipts[id]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	rec.UpdatedAt = time.Now()
	tx.repo.receipts[id] = rec
	return true, nil
}

func (tx *memoryTx) ApplyLineToStock(ctx context.Context, itemID int64, qty, unitCost float64) error {
	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	item, ok := tx.repo.items[itemID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrItemNotFound, itemID)
	}
	item.stock += qty
	item.cost = unitCost
	return nil
}

type memoryPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (p *memoryPublisher) Publish(ctx context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type memoryIdempotency struct {
	mu      sync.Mutex
	keys    map[string]string
	deleted []string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]string)}
}

func (s *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	s.keys[key] = module
	return nil
}

func (s *memoryIdempotency) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *memoryPublisher, *memoryIdempotency) {
	publisher := &memoryPublisher{}
	idem := newMemoryIdempotency()
	svc := NewService(repo, publisher, nil, idem)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	svc.sleep = func(time.Duration) {}
	return svc, publisher, idem
}

func discretePolicy(name string) ItemPolicy {
	return ItemPolicy{Name: name, IsLoose: false, MinOrderQty: 1, IncrementStep: 1, Unit: "pcs"}
}

func bulkPolicy(name string, min, step float64) ItemPolicy {
	return ItemPolicy{Name: name, IsLoose: true, MinOrderQty: min, IncrementStep: step, Unit: "kg"}
}

func TestCreateAssignsDayScopedNumber(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 0, 0)
	svc, _, _ := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   7,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		ReceivedBy:   3,
		Items: []LineInput{
			{ItemID: 1, ReceivedQty: 10, UnitCost: 2.5},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "GRN-260314-001", result.Number)
	require.Equal(t, 25.0, result.TotalValue)
	require.Equal(t, 1, result.LinesRequested)
	require.Equal(t, 1, result.LinesInserted)

	rec, lines, err := repo.GetReceipt(context.Background(), result.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, rec.Status)
	require.Len(t, lines, 1)

	second, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   7,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 1, ReceivedQty: 4, UnitCost: 2.5}},
	})
	require.NoError(t, err)
	require.Equal(t, "GRN-260314-002", second.Number)
}

func TestCreateFiltersInvalidLines(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Flour Sack"), 0, 0)
	svc, _, _ := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items: []LineInput{
			{ItemID: 1, ReceivedQty: 5, UnitCost: 12},
			{ItemID: 0, ReceivedQty: 5, UnitCost: 12},
			{ItemID: 1, ReceivedQty: 0, UnitCost: 12},
			{ItemID: 1, ReceivedQty: 5, UnitCost: -1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 4, result.LinesRequested)
	require.Equal(t, 1, result.LinesInserted)
	require.Equal(t, 60.0, result.TotalValue)

	_, lines, err := repo.GetReceipt(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCreateRejectsWhenNoLineSurvives(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items: []LineInput{
			{ItemID: 0, ReceivedQty: 5, UnitCost: 12},
			{ItemID: 9, ReceivedQty: -2, UnitCost: 12},
		},
	})
	require.ErrorIs(t, err, ErrNoValidLines)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.receipts)
	require.Empty(t, repo.lines)
}

func TestCreateEnforcesBulkPolicy(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 0, 0)
	svc, _, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 1, ReceivedQty: 45, UnitCost: 2}},
	})
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.receipts)
}

func TestCreateRejectsFractionalDiscreteQty(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Croissant Box"), 0, 0)
	svc, _, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 1, ReceivedQty: 3.5, UnitCost: 2}},
	})
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
}

func TestCreateFailsOnUnknownItem(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 42, ReceivedQty: 2, UnitCost: 3}},
	})
	require.ErrorIs(t, err, ErrItemNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateProvisionsNewItems(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   2,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items: []LineInput{
			{NewItem: true, Name: "Sourdough Starter", Category: "ingredients", Unit: "kg", ReceivedQty: 2.5, UnitCost: 8},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.LinesInserted)

	_, lines, err := repo.GetReceipt(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	item := repo.items[lines[0].ItemID]
	require.NotNil(t, item)
	require.True(t, item.policy.IsLoose)
	require.Equal(t, 0.0, item.stock, "stock must only move on approval")
}

func TestCreateRequiresNameAndCategoryForNewItems(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   2,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items: []LineInput{
			{NewItem: true, Name: "Sourdough Starter", ReceivedQty: 2, UnitCost: 8},
		},
	})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Empty(t, repo.receipts)
	require.Empty(t, repo.items)
}

func TestCreateRetriesOnDuplicateNumber(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Butter Block"), 0, 0)
	repo.insertFailures = 2
	svc, _, _ := newTestService(repo)

	slept := 0
	svc.sleep = func(d time.Duration) {
		require.Equal(t, 50*time.Millisecond, d)
		slept++
	}

	result, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 1, ReceivedQty: 2, UnitCost: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, slept)
	require.NotEmpty(t, result.Number)
}

func TestCreateGivesUpAfterRetriesExhausted(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Butter Block"), 0, 0)
	repo.insertFailures = 3
	svc, _, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   1,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 1, ReceivedQty: 2, UnitCost: 4}},
	})
	require.ErrorIs(t, err, ErrNumberExhausted)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateValidatesHeader(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing supplier", CreateInput{ReceivedDate: date, Items: []LineInput{{ItemID: 1, ReceivedQty: 1, UnitCost: 1}}}},
		{"missing date", CreateInput{SupplierID: 1, Items: []LineInput{{ItemID: 1, ReceivedQty: 1, UnitCost: 1}}}},
		{"no items", CreateInput{SupplierID: 1, ReceivedDate: date}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func createPendingReceipt(t *testing.T, svc *Service, repo *memoryRepo) CreateResult {
	t.Helper()
	result, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   4,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		ReceivedBy:   9,
		Items: []LineInput{
			{ItemID: 1, ReceivedQty: 10, UnitCost: 3},
			{ItemID: 2, ReceivedQty: 60, UnitCost: 1.5},
		},
	})
	require.NoError(t, err)
	return result
}

func TestApproveAppliesStockAndCost(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 5, 2)
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 100, 1.2)
	svc, publisher, idem := newTestService(repo)
	result := createPendingReceipt(t, svc, repo)

	require.NoError(t, svc.Approve(context.Background(), result.ID, 11))

	rec, _, err := repo.GetReceipt(context.Background(), result.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, rec.Status)

	require.Equal(t, 15.0, repo.items[1].stock)
	require.Equal(t, 3.0, repo.items[1].cost, "cost is overwritten, not averaged")
	require.Equal(t, 160.0, repo.items[2].stock)
	require.Equal(t, 1.5, repo.items[2].cost)

	require.Len(t, publisher.events, 1)
	require.Equal(t, EventTypeCompleted, publisher.events[0].Type)
	require.Equal(t, result.ID, publisher.events[0].ReceiptID)

	require.Contains(t, idem.keys, "GRN:"+result.Number)
}

func TestApproveConcurrentReceiptsComposeStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 5, 2)
	svc, _, _ := newTestService(repo)

	first, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   4,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 1, ReceivedQty: 4, UnitCost: 2}},
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   4,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        []LineInput{{ItemID: 1, ReceivedQty: 6, UnitCost: 2}},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = svc.Approve(context.Background(), first.ID, 11)
	}()
	go func() {
		defer wg.Done()
		errs[1] = svc.Approve(context.Background(), second.ID, 12)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 15.0, repo.items[1].stock, "no stock increment may be lost")
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 0, 0)
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 0, 0)
	svc, _, _ := newTestService(repo)

	input := []LineInput{
		{ItemID: 1, ReceivedQty: 5, UnitCost: 10000},
		{ItemID: 2, ReceivedQty: 60, UnitCost: 1.5},
	}
	result, err := svc.Create(context.Background(), CreateInput{
		SupplierID:   4,
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items:        input,
	})
	require.NoError(t, err)

	detail, err := svc.FindByID(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lines, len(input))
	for i, line := range detail.Lines {
		require.Equal(t, input[i].ItemID, line.ItemID)
		require.Equal(t, input[i].ReceivedQty, line.ReceivedQty)
		require.Equal(t, input[i].UnitCost, line.UnitCost)
	}
}

func TestApproveRejectsNonPending(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 0, 0)
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 0, 0)
	svc, _, _ := newTestService(repo)
	result := createPendingReceipt(t, svc, repo)

	require.NoError(t, svc.Approve(context.Background(), result.ID, 11))

	err := svc.Approve(context.Background(), result.ID, 11)
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, StatusApproved, conflict.Current)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	require.Equal(t, 10.0, repo.items[1].stock, "stock must not be applied twice")
}

func TestApproveReleasesIdempotencyKeyOnFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 0, 0)
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 0, 0)
	svc, _, idem := newTestService(repo)
	result := createPendingReceipt(t, svc, repo)

	// Breaking the catalog row makes the stock mutation fail mid-approval.
	delete(repo.items, 2)

	err := svc.Approve(context.Background(), result.ID, 11)
	require.ErrorIs(t, err, ErrItemNotFound)
	require.NotContains(t, idem.keys, "GRN:"+result.Number)
	require.Contains(t, idem.deleted, "GRN:"+result.Number)

	rec, _, _ := repo.GetReceipt(context.Background(), result.ID)
	require.Equal(t, StatusApproved, rec.Status, "memory tx has no rollback; only the key release is asserted here")
}

func TestApproveDuplicateIdempotencyKeyReportsConflict(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 0, 0)
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 0, 0)
	svc, _, idem := newTestService(repo)
	result := createPendingReceipt(t, svc, repo)

	// A crashed approval can leave the key behind with the receipt still
	// pending; the retry must surface as a conflict, not a server error.
	require.NoError(t, idem.CheckAndInsert(context.Background(), "GRN:"+result.Number, idempotencyModule))

	err := svc.Approve(context.Background(), result.ID, 11)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	rec, _, _ := repo.GetReceipt(context.Background(), result.ID)
	require.Equal(t, StatusPending, rec.Status)
	require.Equal(t, 0.0, repo.items[1].stock)
}

func TestApprovePublishFailureDoesNotFailApproval(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 0, 0)
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 0, 0)
	svc, publisher, _ := newTestService(repo)
	publisher.err = errors.New("broker down")
	result := createPendingReceipt(t, svc, repo)

	require.NoError(t, svc.Approve(context.Background(), result.ID, 11))

	rec, _, _ := repo.GetReceipt(context.Background(), result.ID)
	require.Equal(t, StatusApproved, rec.Status)
}

func TestRejectLeavesStockUntouched(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 5, 2)
	repo.addItem(bulkPolicy("Rye Flour", 50, 5), 100, 1.2)
	svc, publisher, _ := newTestService(repo)
	result := createPendingReceipt(t, svc, repo)

	require.NoError(t, svc.Reject(context.Background(), result.ID, 11))

	rec, _, err := repo.GetReceipt(context.Background(), result.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rec.Status)
	require.Equal(t, 5.0, repo.items[1].stock)
	require.Equal(t, 100.0, repo.items[2].stock)
	require.Empty(t, publisher.events)

	err = svc.Approve(context.Background(), result.ID, 11)
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, StatusRejected, conflict.Current)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	_, err := svc.FindByID(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	repo := newMemoryRepo()
	repo.addItem(discretePolicy("Baguette Tray"), 0, 0)
	svc, _, _ := newTestService(repo)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), CreateInput{
			SupplierID:   3,
			ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			Items:        []LineInput{{ItemID: 1, ReceivedQty: 1, UnitCost: 1}},
		})
		require.NoError(t, err)
	}

	items, pagination, err := svc.List(context.Background(), ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 5, pagination.Total)
	require.Equal(t, 3, pagination.TotalPages)
	require.Equal(t, 2, pagination.Page)
}
