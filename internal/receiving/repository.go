package receiving

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

// numberConstraint is the unique constraint on goods_receipts.number. The
// retry loop in Create keys off violations of this constraint specifically.
const numberConstraint = "uq_goods_receipts_number"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	NumberSource
	InsertReceipt(ctx context.Context, receipt Receipt) (int64, error)
	InsertLine(ctx context.Context, line Line) error
	CreateItem(ctx context.Context, draft ItemDraft) (int64, error)
	GetItemPolicy(ctx context.Context, itemID int64) (ItemPolicy, error)
	MarkStatus(ctx context.Context, id int64, from, to Status) (bool, error)
	ApplyLineToStock(ctx context.Context, itemID int64, qty, unitCost float64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetReceipt returns the receipt header and its lines.
func (r *Repository) GetReceipt(ctx context.Context, id int64) (Receipt, []Line, error) {
	var rec Receipt
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, supplier_id, COALESCE(po_reference,''), received_date, received_by,
		       COALESCE(notes,''), total_value, status, created_at, updated_at
		FROM goods_receipts WHERE id=$1`, id).
		Scan(&rec.ID, &rec.Number, &rec.SupplierID, &rec.POReference, &rec.ReceivedDate, &rec.ReceivedBy,
			&rec.Notes, &rec.TotalValue, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, nil, ErrNotFound
		}
		return Receipt{}, nil, err
	}
	lines, err := r.receiptLines(ctx, id)
	if err != nil {
		return Receipt{}, nil, err
	}
	return rec, lines, nil
}

func (r *Repository) receiptLines(ctx context.Context, receiptID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, receipt_id, item_id, expected_qty, received_qty, unit_cost,
		       COALESCE(selling_price,0), COALESCE(expiry_date,'0001-01-01'::date),
		       COALESCE(batch_number,''), COALESCE(note,''), COALESCE(barcode,'')
		FROM goods_receipt_lines WHERE receipt_id=$1 ORDER BY id`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.ReceiptID, &line.ItemID, &line.ExpectedQty, &line.ReceivedQty,
			&line.UnitCost, &line.SellingPrice, &line.ExpiryDate, &line.BatchNumber, &line.Note, &line.Barcode); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// GetReceiptDetail returns one receipt enriched with supplier, receiver and
// catalog display fields.
func (r *Repository) GetReceiptDetail(ctx context.Context, id int64) (ReceiptDetail, error) {
	var d ReceiptDetail
	err := r.pool.QueryRow(ctx, `
		SELECT gr.id, gr.number, gr.supplier_id, COALESCE(gr.po_reference,''), gr.received_date,
		       gr.received_by, COALESCE(gr.notes,''), gr.total_value, gr.status, gr.created_at, gr.updated_at,
		       COALESCE(s.name,''), COALESCE(u.name,'')
		FROM goods_receipts gr
		LEFT JOIN suppliers s ON s.id = gr.supplier_id
		LEFT JOIN users u ON u.id = gr.received_by
		WHERE gr.id=$1`, id).
		Scan(&d.ID, &d.Number, &d.SupplierID, &d.POReference, &d.ReceivedDate,
			&d.ReceivedBy, &d.Notes, &d.TotalValue, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.SupplierName, &d.ReceiverName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReceiptDetail{}, ErrNotFound
		}
		return ReceiptDetail{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.receipt_id, l.item_id, l.expected_qty, l.received_qty, l.unit_cost,
		       COALESCE(l.selling_price,0), COALESCE(l.expiry_date,'0001-01-01'::date),
		       COALESCE(l.batch_number,''), COALESCE(l.note,''), COALESCE(l.barcode,''),
		       COALESCE(i.name,''), COALESCE(i.sku,''), COALESCE(i.barcode,''),
		       COALESCE(i.unit,''), COALESCE(i.category,'')
		FROM goods_receipt_lines l
		LEFT JOIN items i ON i.id = l.item_id
		WHERE l.receipt_id=$1 ORDER BY l.id`, id)
	if err != nil {
		return ReceiptDetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line LineDetail
		if err := rows.Scan(&line.ID, &line.ReceiptID, &line.ItemID, &line.ExpectedQty, &line.ReceivedQty,
			&line.UnitCost, &line.SellingPrice, &line.ExpiryDate, &line.BatchNumber, &line.Note, &line.Barcode,
			&line.ItemName, &line.ItemSKU, &line.ItemBarcode, &line.ItemUnit, &line.ItemCategory); err != nil {
			return ReceiptDetail{}, err
		}
		d.Lines = append(d.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return ReceiptDetail{}, err
	}
	return d, nil
}

// ListReceipts returns a page of summaries newest first plus the total count.
func (r *Repository) ListReceipts(ctx context.Context, filter ListFilter) ([]ReceiptSummary, int, error) {
	where, args := buildListWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipts gr`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = shared.DefaultPageSize
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT gr.id, gr.number, gr.supplier_id, COALESCE(s.name,''), gr.received_date,
		       gr.total_value, gr.status, gr.created_at,
		       (SELECT COUNT(*) FROM goods_receipt_lines l WHERE l.receipt_id = gr.id)
		FROM goods_receipts gr
		LEFT JOIN suppliers s ON s.id = gr.supplier_id
		%s
		ORDER BY gr.created_at DESC, gr.id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []ReceiptSummary
	for rows.Next() {
		var s ReceiptSummary
		if err := rows.Scan(&s.ID, &s.Number, &s.SupplierID, &s.SupplierName, &s.ReceivedDate,
			&s.TotalValue, &s.Status, &s.CreatedAt, &s.LineCount); err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func buildListWhere(filter ListFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.SupplierID > 0 {
		args = append(args, filter.SupplierID)
		conds = append(conds, fmt.Sprintf("gr.supplier_id = $%d", len(args)))
	}
	if !filter.DateFrom.IsZero() {
		args = append(args, filter.DateFrom)
		conds = append(conds, fmt.Sprintf("gr.received_date >= $%d", len(args)))
	}
	if !filter.DateTo.IsZero() {
		args = append(args, filter.DateTo)
		conds = append(conds, fmt.Sprintf("gr.received_date <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Transactional operations

func (t *txRepo) MaxNumberSuffix(ctx context.Context, prefix string) (int, error) {
	var max int
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM $2) AS INTEGER)), 0)
		FROM goods_receipts
		WHERE number LIKE $1 AND number ~ ('^' || $3 || '[0-9]{3}$')`,
		prefix+"%", len(prefix)+1, prefix).Scan(&max)
	return max, err
}

func (t *txRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM goods_receipts WHERE number=$1)`, number).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertReceipt(ctx context.Context, receipt Receipt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO goods_receipts (number, supplier_id, po_reference, received_date, received_by, notes, total_value, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, NULLIF($6,''), $7, $8, NOW(), NOW())
		RETURNING id`,
		receipt.Number, receipt.SupplierID, receipt.POReference, receipt.ReceivedDate,
		receipt.ReceivedBy, receipt.Notes, receipt.TotalValue, receipt.Status).Scan(&id)
	return id, err
}

func (t *txRepo) InsertLine(ctx context.Context, line Line) error {
	var expiry any
	if !line.ExpiryDate.IsZero() {
		expiry = line.ExpiryDate
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO goods_receipt_lines (receipt_id, item_id, expected_qty, received_qty, unit_cost, selling_price, expiry_date, batch_number, note, barcode)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,0), $7, NULLIF($8,''), NULLIF($9,''), NULLIF($10,''))`,
		line.ReceiptID, line.ItemID, line.ExpectedQty, line.ReceivedQty, line.UnitCost,
		line.SellingPrice, expiry, line.BatchNumber, line.Note, line.Barcode)
	return err
}

func (t *txRepo) CreateItem(ctx context.Context, draft ItemDraft) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO items (sku, barcode, name, category, unit, is_loose, min_order_qty, increment_step, stock_qty, cost, price, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), $6, $7, $8, 0, $9, $10, NOW(), NOW())
		RETURNING id`,
		draft.SKU, draft.Barcode, draft.Name, draft.Category, draft.Unit,
		draft.IsLoose, draft.MinOrderQty, draft.IncrementStep, draft.Cost, draft.Price).Scan(&id)
	return id, err
}

func (t *txRepo) GetItemPolicy(ctx context.Context, itemID int64) (ItemPolicy, error) {
	var p ItemPolicy
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, COALESCE(unit,''), is_loose, min_order_qty, increment_step
		FROM items WHERE id=$1`, itemID).
		Scan(&p.ID, &p.Name, &p.Unit, &p.IsLoose, &p.MinOrderQty, &p.IncrementStep)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemPolicy{}, shared.ErrNotFound
		}
		return ItemPolicy{}, err
	}
	return p, nil
}

// MarkStatus flips the status only when the current value matches from, so
// concurrent transitions resolve to exactly one winner.
func (t *txRepo) MarkStatus(ctx context.Context, id int64, from, to Status) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE goods_receipts SET status=$3, updated_at=NOW()
		WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyLineToStock increments stock atomically in SQL and overwrites the unit
// cost with the most recent receipt's value.
func (t *txRepo) ApplyLineToStock(ctx context.Context, itemID int64, qty, unitCost float64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE items SET stock_qty = stock_qty + $2, cost = $3, updated_at = NOW()
		WHERE id=$1`, itemID, qty, unitCost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrItemNotFound, itemID)
	}
	return nil
}

// isDuplicateNumber reports whether err is a unique violation on the receipt
// number constraint.
func isDuplicateNumber(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (pgErr.ConstraintName == numberConstraint || pgErr.ConstraintName == "")
	}
	return false
}
