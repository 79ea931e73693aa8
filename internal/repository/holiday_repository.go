package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/attendance-backend/internal/model"
)

var holidayColumns = `id, ` + dateCol("date") + `, name, description, created_at, updated_at`

// HolidayRepository handles the holiday calendar.
type HolidayRepository struct {
	pool *pgxpool.Pool
}

// NewHolidayRepository creates a new HolidayRepository.
func NewHolidayRepository(pool *pgxpool.Pool) *HolidayRepository {
	return &HolidayRepository{pool: pool}
}

func scanHoliday(row pgx.Row) (*model.Holiday, error) {
	h := &model.Holiday{}
	if err := row.Scan(&h.ID, &h.Date, &h.Name, &h.Description, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return h, nil
}

// GetByID retrieves a holiday.
func (r *HolidayRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Holiday, error) {
	return scanHoliday(r.pool.QueryRow(ctx, `SELECT `+holidayColumns+` FROM holidays WHERE id = $1`, id))
}

// List retrieves holidays between start and end inclusive. Empty bounds are open.
func (r *HolidayRepository) List(ctx context.Context, start, end string) ([]model.Holiday, error) {
	q, err := dateRange(psql.Select(holidayColumns).From("holidays").OrderBy("date"), "date", start, end)
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

	out := []model.Holiday{}
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// Create inserts a holiday. Dates are unique.
func (r *HolidayRepository) Create(ctx context.Context, h *model.Holiday) error {
	d, err := dateArg(h.Date)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO holidays (date, name, description) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		d, h.Name, h.Description,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	return mapErr(err)
}

// Update modifies a holiday.
func (r *HolidayRepository) Update(ctx context.Context, h *model.Holiday) error {
	d, err := dateArg(h.Date)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`UPDATE holidays SET date = $1, name = $2, description = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING created_at, updated_at`,
		d, h.Name, h.Description, h.ID,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	return mapErr(err)
}

// Delete removes a holiday.
func (r *HolidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts or renames holidays by date in one transaction and returns
// how many rows were written.
func (r *HolidayRepository) Upsert(ctx context.Context, holidays []model.HolidayRequest) (int, error) {
	n := 0
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, h := range holidays {
			d, err := dateArg(h.Date)
			if err != nil {
				return err
			}
			batch.Queue(
				`INSERT INTO holidays (date, name, description) VALUES ($1, $2, $3)
				 ON CONFLICT (date) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, updated_at = NOW()`,
				d, h.Name, h.Description)
		}
		results := tx.SendBatch(ctx, batch)
		for range holidays {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return mapErr(err)
			}
			n += int(tag.RowsAffected())
		}
		return results.Close()
	})
	return n, err
}
