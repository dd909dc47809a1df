package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/rentgazer/internal/models"
)

var rentalColumns = []string{
	"rental_id",
	"car_id",
	"checkin_type",
	"state",
	"delay_at_checkout_in_minutes",
	"previous_ended_rental_id",
	"time_delta_with_previous_rental_in_minutes",
}

// RentalRepository 租赁记录数据仓库
type RentalRepository struct {
	db *DB
}

// NewRentalRepository 创建租赁记录仓库
func NewRentalRepository(db *DB) *RentalRepository {
	return &RentalRepository{db: db}
}

// ReplaceAll 在一个事务内清空并批量写入全部记录
func (r *RentalRepository) ReplaceAll(ctx context.Context, records []models.RentalRecord) (int64, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE rentals`); err != nil {
		return 0, fmt.Errorf("truncate rentals: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"rentals"}, rentalColumns, pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		rec := records[i]
		return []any{
			rec.RentalID,
			rec.CarID,
			string(rec.CheckinType),
			string(rec.State),
			rec.DelayAtCheckout,
			rec.PreviousEndedRentalID,
			rec.TimeDeltaWithPrevious,
		}, nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copy rentals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit rentals: %w", err)
	}
	return n, nil
}

// ListAll 按 rental_id 顺序返回全部记录
func (r *RentalRepository) ListAll(ctx context.Context) ([]models.RentalRecord, error) {
	query := `
		SELECT rental_id, car_id, checkin_type, state,
		       delay_at_checkout_in_minutes, previous_ended_rental_id, time_delta_with_previous_rental_in_minutes
		FROM rentals
		ORDER BY rental_id
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rentals: %w", err)
	}
	defer rows.Close()

	var records []models.RentalRecord
	for rows.Next() {
		var rec models.RentalRecord
		var checkin, st string
		if err := rows.Scan(
			&rec.RentalID,
			&rec.CarID,
			&checkin,
			&st,
			&rec.DelayAtCheckout,
			&rec.PreviousEndedRentalID,
			&rec.TimeDeltaWithPrevious,
		); err != nil {
			return nil, fmt.Errorf("scan rental: %w", err)
		}
		rec.CheckinType = models.CheckinType(checkin)
		rec.State = models.RentalState(st)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rentals: %w", err)
	}
	return records, nil
}

// Count 记录总数
func (r *RentalRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM rentals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rentals: %w", err)
	}
	return n, nil
}
