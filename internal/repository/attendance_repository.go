package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/attendance-backend/internal/model"
)

var attendanceColumns = `id, class_id, class_name, ` + dateCol("date") + `, records, submitted_by, submitted_by_name,
	submitted_at, updated_at, version, edit_history`

// SubmitFunc computes the next sheet from the locked class and the current
// sheet, which is nil on the first submission.
type SubmitFunc func(class *model.Class, existing *model.Attendance) (*model.Attendance, error)

// AttendanceRepository handles attendance sheets.
type AttendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func scanAttendance(row pgx.Row) (*model.Attendance, error) {
	a := &model.Attendance{}
	err := row.Scan(&a.ID, &a.ClassID, &a.ClassName, &a.Date, &a.Records, &a.SubmittedBy, &a.SubmittedByName,
		&a.SubmittedAt, &a.UpdatedAt, &a.Version, &a.EditHistory)
	if err != nil {
		return nil, mapErr(err)
	}
	if a.Records == nil {
		a.Records = []model.AttendanceRecord{}
	}
	if a.EditHistory == nil {
		a.EditHistory = []model.EditHistory{}
	}
	return a, nil
}

// Get retrieves the sheet of a class on a date.
func (r *AttendanceRepository) Get(ctx context.Context, classID uuid.UUID, date string) (*model.Attendance, error) {
	d, err := dateArg(date)
	if err != nil {
		return nil, err
	}
	return scanAttendance(r.pool.QueryRow(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE class_id = $1 AND date = $2`, classID, d))
}

// List retrieves sheets ordered by date, class name and class id.
func (r *AttendanceRepository) List(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error) {
	q := psql.Select(attendanceColumns).From("attendance").OrderBy("date", "class_name", "class_id")
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

	out := []model.Attendance{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Submit writes the sheet of a class on a date. The class row is share-locked
// and the existing sheet row-locked while fn runs. Two first submissions racing
// on the unique (class_id, date) key are resolved by retrying once, so the
// loser becomes version 2.
func (r *AttendanceRepository) Submit(ctx context.Context, classID uuid.UUID, date string, fn SubmitFunc) (*model.Attendance, error) {
	d, err := dateArg(date)
	if err != nil {
		return nil, err
	}

	var out *model.Attendance
	for attempt := 0; ; attempt++ {
		err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			class, err := scanClass(tx.QueryRow(ctx,
				`SELECT `+classColumns+` FROM classes WHERE id = $1 FOR SHARE`, classID))
			if err != nil {
				return err
			}

			existing, err := scanAttendance(tx.QueryRow(ctx,
				`SELECT `+attendanceColumns+` FROM attendance WHERE class_id = $1 AND date = $2 FOR UPDATE`,
				classID, d))
			if errors.Is(err, ErrNotFound) {
				existing = nil
			} else if err != nil {
				return err
			}

			next, err := fn(class, existing)
			if err != nil {
				return err
			}

			if existing == nil {
				_, err = tx.Exec(ctx,
					`INSERT INTO attendance (id, class_id, class_name, date, records, submitted_by, submitted_by_name,
					   submitted_at, updated_at, version, edit_history)
					 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
					next.ID, next.ClassID, next.ClassName, d, next.Records, next.SubmittedBy, next.SubmittedByName,
					next.SubmittedAt, next.UpdatedAt, next.Version, next.EditHistory)
			} else {
				_, err = tx.Exec(ctx,
					`UPDATE attendance SET class_name = $1, records = $2, updated_at = $3, version = $4, edit_history = $5
					 WHERE id = $6`,
					next.ClassName, next.Records, next.UpdatedAt, next.Version, next.EditHistory, existing.ID)
			}
			if err != nil {
				return mapErr(err)
			}
			out = next
			return nil
		})
		if attempt == 0 && errors.Is(err, ErrDuplicate) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the sheet of a class on a date.
func (r *AttendanceRepository) Delete(ctx context.Context, classID uuid.UUID, date string) error {
	d, err := dateArg(date)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM attendance WHERE class_id = $1 AND date = $2`, classID, d)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
