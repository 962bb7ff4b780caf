package suppliers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

type memorySupplierRepo struct {
	suppliers map[int64]Supplier
	nextID    int64
}

func newMemorySupplierRepo() *memorySupplierRepo {
	return &memorySupplierRepo{suppliers: make(map[int64]Supplier)}
}

func (r *memorySupplierRepo) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	var all []Supplier
	for _, s := range r.suppliers {
		all = append(all, s)
	}
	return all, len(all), nil
}

func (r *memorySupplierRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memorySupplierRepo) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	for _, existing := range r.suppliers {
		if existing.Code == supplier.Code {
			return Supplier{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	supplier.ID = r.nextID
	supplier.CreatedAt = time.Now()
	supplier.UpdatedAt = supplier.CreatedAt
	r.suppliers[supplier.ID] = supplier
	return supplier, nil
}

func (r *memorySupplierRepo) Update(ctx context.Context, id int64, supplier Supplier) error {
	if _, ok := r.suppliers[id]; !ok {
		return shared.ErrNotFound
	}
	supplier.ID = id
	r.suppliers[id] = supplier
	return nil
}

func (r *memorySupplierRepo) Deactivate(ctx context.Context, id int64) error {
	s, ok := r.suppliers[id]
	if !ok {
		return shared.ErrNotFound
	}
	s.IsActive = false
	r.suppliers[id] = s
	return nil
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemorySupplierRepo())

	_, err := svc.Create(context.Background(), Supplier{Name: "Mill & Grain Co"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Supplier{Code: "SUP-01"})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(context.Background(), Supplier{Code: "SUP-01", Name: "Mill & Grain Co", IsActive: true})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemorySupplierRepo())

	_, err := svc.Create(context.Background(), Supplier{Code: "SUP-01", Name: "Mill & Grain Co"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Supplier{Code: "SUP-01", Name: "Other Mill"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeactivateKeepsSupplier(t *testing.T) {
	repo := newMemorySupplierRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Supplier{Code: "SUP-01", Name: "Mill & Grain Co", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), created.ID))

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}
