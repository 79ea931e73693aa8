package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/attendance-backend/internal/model"
)

const archiveColumns = `id, student, class_id, class_name, reason, archived_by, archived_by_name, archived_at`

// ArchiveRepository handles archived students.
type ArchiveRepository struct {
	pool *pgxpool.Pool
}

// NewArchiveRepository creates a new ArchiveRepository.
func NewArchiveRepository(pool *pgxpool.Pool) *ArchiveRepository {
	return &ArchiveRepository{pool: pool}
}

func scanArchived(row pgx.Row) (*model.ArchivedStudent, error) {
	a := &model.ArchivedStudent{}
	err := row.Scan(&a.ID, &a.Student, &a.ClassID, &a.ClassName, &a.Reason, &a.ArchivedBy, &a.ArchivedByName, &a.ArchivedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// GetByID retrieves an archived student.
func (r *ArchiveRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ArchivedStudent, error) {
	return scanArchived(r.pool.QueryRow(ctx, `SELECT `+archiveColumns+` FROM archived_students WHERE id = $1`, id))
}

// List retrieves archived students, newest first.
func (r *ArchiveRepository) List(ctx context.Context, f model.ArchiveFilter) ([]model.ArchivedStudent, error) {
	q := psql.Select(archiveColumns).From("archived_students").OrderBy("archived_at DESC", "id")
	if f.ClassID != nil {
		q = q.Where("class_id = ?", *f.ClassID)
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

	out := []model.ArchivedStudent{}
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Count returns the number of archived students.
func (r *ArchiveRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM archived_students`).Scan(&n)
	return n, err
}

// Archive removes the student from the class roster and stores them in the
// archive, in one transaction. a.Student, a.ClassName and a.ID are filled in.
func (r *ArchiveRepository) Archive(ctx context.Context, classID, studentID uuid.UUID, a *model.ArchivedStudent) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := lockClass(ctx, tx, classID)
		if err != nil {
			return err
		}
		s, err := c.RemoveStudent(studentID)
		if err != nil {
			return err
		}
		if err := saveRoster(ctx, tx, c); err != nil {
			return err
		}

		a.Student = s
		a.ClassID = c.ID
		a.ClassName = c.Name
		return tx.QueryRow(ctx,
			`INSERT INTO archived_students (student, class_id, class_name, reason, archived_by, archived_by_name, archived_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			a.Student, a.ClassID, a.ClassName, a.Reason, a.ArchivedBy, a.ArchivedByName, a.ArchivedAt,
		).Scan(&a.ID)
	})
}

// Restore puts an archived student back on a roster and deletes the archive
// entry. classID nil means the class the student left.
func (r *ArchiveRepository) Restore(ctx context.Context, archivedID uuid.UUID, classID *uuid.UUID) (*model.Class, error) {
	var out *model.Class
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		a, err := scanArchived(tx.QueryRow(ctx,
			`SELECT `+archiveColumns+` FROM archived_students WHERE id = $1 FOR UPDATE`, archivedID))
		if err != nil {
			return err
		}
		target := a.ClassID
		if classID != nil {
			target = *classID
		}

		c, err := lockClass(ctx, tx, target)
		if err != nil {
			return err
		}
		if err := c.AddStudent(a.Student); err != nil {
			return err
		}
		if err := saveRoster(ctx, tx, c); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM archived_students WHERE id = $1`, archivedID); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete permanently removes an archived student.
func (r *ArchiveRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM archived_students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
