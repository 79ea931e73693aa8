package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/attendance-backend/internal/model"
)

var summaryColumns = `class_id, ` + dateCol("date") + `, present, late, absent, excused, total, updated_at`

// summarySelect tallies record statuses per sheet straight from the JSONB column.
const summarySelect = `
SELECT a.class_id, a.date,
       COUNT(*) FILTER (WHERE r->>'status' = 'present'),
       COUNT(*) FILTER (WHERE r->>'status' = 'late'),
       COUNT(*) FILTER (WHERE r->>'status' = 'absent'),
       COUNT(*) FILTER (WHERE r->>'status' = 'excused'),
       COUNT(r),
       NOW()
FROM attendance a
LEFT JOIN LATERAL jsonb_array_elements(a.records) r ON TRUE`

const summaryUpsert = `
ON CONFLICT (class_id, date) DO UPDATE SET
  present = EXCLUDED.present, late = EXCLUDED.late, absent = EXCLUDED.absent,
  excused = EXCLUDED.excused, total = EXCLUDED.total, updated_at = EXCLUDED.updated_at`

const rebuildSummaries = `INSERT INTO daily_summaries (class_id, date, present, late, absent, excused, total, updated_at)` +
	summarySelect + `
GROUP BY a.class_id, a.date` + summaryUpsert

// SummaryRepository maintains the daily_summaries table.
type SummaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

func scanSummary(row pgx.Row) (*model.DailySummary, error) {
	s := &model.DailySummary{}
	err := row.Scan(&s.ClassID, &s.Date, &s.Present, &s.Late, &s.Absent, &s.Excused, &s.Total, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

// Recompute refreshes the summary of one class and date from its sheet. When
// the sheet is gone the summary is deleted and nil is returned.
func (r *SummaryRepository) Recompute(ctx context.Context, classID uuid.UUID, date string) (*model.DailySummary, error) {
	d, err := dateArg(date)
	if err != nil {
		return nil, err
	}

	s, err := scanSummary(r.pool.QueryRow(ctx,
		`INSERT INTO daily_summaries (class_id, date, present, late, absent, excused, total, updated_at)`+
			summarySelect+`
		 WHERE a.class_id = $1 AND a.date = $2
		 GROUP BY a.class_id, a.date`+summaryUpsert+`
		 RETURNING `+summaryColumns,
		classID, d))
	if errors.Is(err, ErrNotFound) {
		_, err = r.pool.Exec(ctx, `DELETE FROM daily_summaries WHERE class_id = $1 AND date = $2`, classID, d)
		return nil, err
	}
	return s, err
}

// RebuildAll recomputes every summary in one transaction and returns the row count.
func (r *SummaryRepository) RebuildAll(ctx context.Context) (int, error) {
	var n int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM daily_summaries`); err != nil {
			return err
		}
		// A recompute may commit between the delete and the insert.
		tag, err := tx.Exec(ctx, rebuildSummaries)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

// List retrieves summaries ordered by date and class id.
func (r *SummaryRepository) List(ctx context.Context, f model.SummaryFilter) ([]model.DailySummary, error) {
	q := psql.Select(summaryColumns).From("daily_summaries").OrderBy("date", "class_id")
	if f.ClassIDs != nil {
		q = q.Where("class_id = ANY(?)", f.ClassIDs)
	}
	q, err := dateRange(q, "date", f.Start, f.End)
	if err != nil {
		return nil, err
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DailySummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
