package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/attendance-backend/internal/importer"
)

// ImportStats counts the rows written by an import.
type ImportStats struct {
	Users      int `json:"users"`
	Classes    int `json:"classes"`
	Attendance int `json:"attendance"`
	Holidays   int `json:"holidays"`
	Archived   int `json:"archived"`
}

// ImportRepository writes converted legacy data.
type ImportRepository struct {
	pool *pgxpool.Pool
}

// NewImportRepository creates a new ImportRepository.
func NewImportRepository(pool *pgxpool.Pool) *ImportRepository {
	return &ImportRepository{pool: pool}
}

// Import upserts the whole dataset in one transaction. Existing password hashes
// are kept; an attendance sheet is only replaced by one with an equal or higher
// version.
func (r *ImportRepository) Import(ctx context.Context, ds *importer.Dataset) (ImportStats, error) {
	var stats ImportStats
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		counters := make([]*int, 0)

		for _, u := range ds.Users {
			batch.Queue(
				`INSERT INTO users (id, email, name, role, password_hash, active, assigned_classes, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, '', $5, $6, $7, $8)
				 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role,
				   active = EXCLUDED.active, assigned_classes = EXCLUDED.assigned_classes, updated_at = NOW()`,
				u.ID, u.Email, u.Name, string(u.Role), u.Active, u.AssignedClasses, u.CreatedAt, u.UpdatedAt)
			counters = append(counters, &stats.Users)
		}

		for _, c := range ds.Classes {
			batch.Queue(
				`INSERT INTO classes (id, name, grade, teacher_id, teacher_name, students, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, grade = EXCLUDED.grade,
				   teacher_id = EXCLUDED.teacher_id, teacher_name = EXCLUDED.teacher_name,
				   students = EXCLUDED.students, updated_at = NOW()`,
				c.ID, c.Name, c.Grade, c.TeacherID, c.TeacherName, c.Students, c.CreatedAt, c.UpdatedAt)
			counters = append(counters, &stats.Classes)
		}

		for _, a := range ds.Attendance {
			d, err := dateArg(a.Date)
			if err != nil {
				return err
			}
			batch.Queue(
				`INSERT INTO attendance (id, class_id, class_name, date, records, submitted_by, submitted_by_name,
				   submitted_at, updated_at, version, edit_history)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				 ON CONFLICT (class_id, date) DO UPDATE SET class_name = EXCLUDED.class_name,
				   records = EXCLUDED.records, submitted_by = EXCLUDED.submitted_by,
				   submitted_by_name = EXCLUDED.submitted_by_name, submitted_at = EXCLUDED.submitted_at,
				   updated_at = EXCLUDED.updated_at, version = EXCLUDED.version, edit_history = EXCLUDED.edit_history
				 WHERE attendance.version <= EXCLUDED.version`,
				a.ID, a.ClassID, a.ClassName, d, a.Records, a.SubmittedBy, a.SubmittedByName,
				a.SubmittedAt, a.UpdatedAt, a.Version, a.EditHistory)
			counters = append(counters, &stats.Attendance)
		}

		for _, h := range ds.Holidays {
			d, err := dateArg(h.Date)
			if err != nil {
				return err
			}
			batch.Queue(
				`INSERT INTO holidays (id, date, name, description, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (date) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, updated_at = NOW()`,
				h.ID, d, h.Name, h.Description, h.CreatedAt, h.UpdatedAt)
			counters = append(counters, &stats.Holidays)
		}

		for _, a := range ds.Archived {
			batch.Queue(
				`INSERT INTO archived_students (id, student, class_id, class_name, reason, archived_by, archived_by_name, archived_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (id) DO UPDATE SET student = EXCLUDED.student, class_id = EXCLUDED.class_id,
				   class_name = EXCLUDED.class_name, reason = EXCLUDED.reason`,
				a.ID, a.Student, a.ClassID, a.ClassName, a.Reason, a.ArchivedBy, a.ArchivedByName, a.ArchivedAt)
			counters = append(counters, &stats.Archived)
		}

		results := tx.SendBatch(ctx, batch)
		for _, counter := range counters {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return mapErr(err)
			}
			*counter += int(tag.RowsAffected())
		}
		return results.Close()
	})
	return stats, err
}
