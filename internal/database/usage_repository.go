package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// UsageRepository stores per-advisor daily validation counts in Postgres.
// It implements limits.Counter. The upsert makes increments atomic per
// advisor without an advisory lock.
type UsageRepository struct {
	db       *sqlx.DB
	location *time.Location
	logger   *zap.Logger
}

// NewUsageRepository creates a usage repository using loc for the
// local-day boundary.
func NewUsageRepository(db *sqlx.DB, loc *time.Location, logger *zap.Logger) *UsageRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &UsageRepository{db: db, location: loc, logger: logger}
}

func (r *UsageRepository) today() string {
	return time.Now().In(r.location).Format("2006-01-02")
}

func (r *UsageRepository) Increment(ctx context.Context, advisorID string) (int, error) {
	const query = `
		INSERT INTO advisor_daily_usage (advisor_id, usage_date, call_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (advisor_id, usage_date)
		DO UPDATE SET call_count = advisor_daily_usage.call_count + 1,
		              updated_at = now()
		RETURNING call_count`

	var count int
	if err := r.db.QueryRowContext(ctx, query, advisorID, r.today()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment daily usage: %w", err)
	}
	return count, nil
}

func (r *UsageRepository) Count(ctx context.Context, advisorID string) (int, error) {
	const query = `
		SELECT call_count FROM advisor_daily_usage
		WHERE advisor_id = $1 AND usage_date = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, advisorID, r.today()).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily usage: %w", err)
	}
	return count, nil
}

// Reset prunes rows from previous days. Today's rows are the live counters
// and are left alone.
func (r *UsageRepository) Reset(ctx context.Context) error {
	const query = `DELETE FROM advisor_daily_usage WHERE usage_date < $1`

	result, err := r.db.ExecContext(ctx, query, r.today())
	if err != nil {
		return fmt.Errorf("failed to prune daily usage: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		r.logger.Info("Pruned expired daily usage rows", zap.Int64("rows", n))
	}
	return nil
}
