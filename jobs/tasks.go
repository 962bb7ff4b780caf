package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/ovenline-erp/ovenline-erp/internal/jobs"
	"github.com/ovenline-erp/ovenline-erp/internal/realtime"
	"github.com/ovenline-erp/ovenline-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRetentionSweep prunes expired idempotency keys and audit entries.
	TaskRetentionSweep = "maintenance:retention"
	// TaskLowStockScan flags catalog items at or below their reorder floor.
	TaskLowStockScan = "catalog:low_stock_scan"
)

// RetentionPayload carries the retention windows for a sweep.
type RetentionPayload struct {
	IdempotencyDays int `json:"idempotency_days"`
	AuditDays       int `json:"audit_days"`
}

// NewRetentionSweepTask constructs an Asynq task for a retention sweep.
func NewRetentionSweepTask(payload RetentionPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionSweep, body, asynq.Queue(QueueDefault)), nil
}

// NewRetentionHandler returns the handler for TaskRetentionSweep.
func NewRetentionHandler(idempotency *shared.IdempotencyStore, audit *shared.AuditLogger, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RetentionPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.IdempotencyDays <= 0 {
			payload.IdempotencyDays = 7
		}
		if payload.AuditDays <= 0 {
			payload.AuditDays = 180
		}
		tracker := metrics.Track("retention_sweep")
		err := idempotency.Cleanup(ctx, time.Duration(payload.IdempotencyDays)*24*time.Hour)
		if err == nil {
			err = audit.Cleanup(ctx, time.Duration(payload.AuditDays)*24*time.Hour)
		}
		if err != nil {
			logger.Error("retention sweep", slog.Any("error", err))
		}
		return tracker.End(err)
	}
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil, asynq.Queue(QueueDefault))
}

// NewLowStockHandler returns the handler for TaskLowStockScan. Each item at or
// below its reorder floor is broadcast so dashboards can surface it.
func NewLowStockHandler(pool *pgxpool.Pool, publisher *realtime.Broadcaster, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("low_stock_scan")
		rows, err := pool.Query(ctx, `
			SELECT id, name, stock_qty, min_order_qty
			FROM items
			WHERE is_active AND stock_qty <= min_order_qty
			ORDER BY stock_qty ASC`)
		if err != nil {
			return tracker.End(err)
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var (
				id           int64
				name         string
				stock, floor float64
			)
			if err := rows.Scan(&id, &name, &stock, &floor); err != nil {
				return tracker.End(err)
			}
			count++
			if err := publisher.Publish(ctx, realtime.Event{
				Type: "low-stock",
				Meta: map[string]any{
					"itemId":   id,
					"itemName": name,
					"stockQty": stock,
					"floor":    floor,
				},
			}); err != nil {
				logger.Warn("low stock broadcast", slog.Int64("item", id), slog.Any("error", err))
			}
		}
		if err := rows.Err(); err != nil {
			return tracker.End(err)
		}
		metrics.SetLowStock(count)
		logger.Info("low stock scan complete", slog.Int("flagged", count))
		return tracker.End(nil)
	}
}
