package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/attendance-backend/internal/model"
)

const classColumns = `id, name, grade, teacher_id, teacher_name, students, created_at, updated_at`

// ClassRepository handles class and roster data access.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func scanClass(row pgx.Row) (*model.Class, error) {
	c := &model.Class{}
	err := row.Scan(&c.ID, &c.Name, &c.Grade, &c.TeacherID, &c.TeacherName, &c.Students, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if c.Students == nil {
		c.Students = []model.Student{}
	}
	return c, nil
}

// GetByID retrieves a class with its roster.
func (r *ClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	return scanClass(r.pool.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
}

// List retrieves classes ordered by name, optionally only those of one teacher.
func (r *ClassRepository) List(ctx context.Context, f model.ClassFilter) ([]model.Class, error) {
	q := psql.Select(classColumns).From("classes").OrderBy("LOWER(name)", "id")
	if f.TeacherID != nil {
		q = q.Where("teacher_id = ?", *f.TeacherID)
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

	classes := []model.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// Create inserts a class and adds it to its teacher's assigned classes.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	if c.Students == nil {
		c.Students = []model.Student{}
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO classes (name, grade, teacher_id, teacher_name, students)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at, updated_at`,
			c.Name, c.Grade, c.TeacherID, c.TeacherName, c.Students,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}
		if c.TeacherID == nil {
			return nil
		}
		ref := c.Ref()
		return updateAssignedClasses(ctx, tx, *c.TeacherID, func(refs []model.ClassRef) []model.ClassRef {
			return model.AddClassRef(refs, ref)
		})
	})
}

// Update applies a rename and/or teacher change in one transaction. A rename
// is copied onto attendance sheets, archived students and the teacher's class
// refs; a teacher change moves the class ref between teachers.
func (r *ClassRepository) Update(ctx context.Context, ch model.ClassChange) (*model.Class, error) {
	var out *model.Class
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := lockClass(ctx, tx, ch.ClassID)
		if err != nil {
			return err
		}
		ch.Apply(c)

		err = tx.QueryRow(ctx,
			`UPDATE classes SET name = $1, grade = $2, teacher_id = $3, teacher_name = $4, updated_at = NOW()
			 WHERE id = $5
			 RETURNING updated_at`,
			c.Name, c.Grade, c.TeacherID, c.TeacherName, c.ID,
		).Scan(&c.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}

		if ch.Renamed {
			if _, err := tx.Exec(ctx,
				`UPDATE attendance SET class_name = $1 WHERE class_id = $2`, c.Name, c.ID); err != nil {
				return fmt.Errorf("rename class on attendance: %w", err)
			}
			if _, err := tx.Exec(ctx,
				`UPDATE archived_students SET class_name = $1 WHERE class_id = $2`, c.Name, c.ID); err != nil {
				return fmt.Errorf("rename class on archived students: %w", err)
			}
		}

		ref := c.Ref()
		if ch.TeacherChanged && ch.OldTeacherID != nil {
			err := updateAssignedClasses(ctx, tx, *ch.OldTeacherID, func(refs []model.ClassRef) []model.ClassRef {
				kept, _ := model.RemoveClassRef(refs, ref.ID)
				return kept
			})
			if err != nil && !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("remove class from old teacher: %w", err)
			}
		}
		if c.TeacherID != nil && (ch.TeacherChanged || ch.Renamed) {
			err := updateAssignedClasses(ctx, tx, *c.TeacherID, func(refs []model.ClassRef) []model.ClassRef {
				return model.AddClassRef(refs, ref)
			})
			if err != nil {
				return fmt.Errorf("add class to teacher: %w", err)
			}
		}

		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an empty class that has no attendance, and drops it from its
// teacher's class refs.
func (r *ClassRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := lockClass(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(c.Students) > 0 {
			return fmt.Errorf("%w: class has %d students", ErrHasDependencies, len(c.Students))
		}
		var hasAttendance bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM attendance WHERE class_id = $1)`, id,
		).Scan(&hasAttendance); err != nil {
			return err
		}
		if hasAttendance {
			return fmt.Errorf("%w: class has attendance", ErrHasDependencies)
		}

		if c.TeacherID != nil {
			err := updateAssignedClasses(ctx, tx, *c.TeacherID, func(refs []model.ClassRef) []model.ClassRef {
				kept, _ := model.RemoveClassRef(refs, id)
				return kept
			})
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM daily_summaries WHERE class_id = $1`, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
		return mapErr(err)
	})
}

// MutateRoster locks the class, lets fn change its roster and saves the result.
func (r *ClassRepository) MutateRoster(ctx context.Context, classID uuid.UUID, fn func(*model.Class) error) (*model.Class, error) {
	var out *model.Class
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := lockClass(ctx, tx, classID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := saveRoster(ctx, tx, c); err != nil {
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

// TransferStudent moves a student between rosters and returns the target class.
// Both rows are locked in id order.
func (r *ClassRepository) TransferStudent(ctx context.Context, fromID, toID, studentID uuid.UUID) (*model.Class, error) {
	var out *model.Class
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		first, second := fromID, toID
		if second.String() < first.String() {
			first, second = second, first
		}
		a, err := lockClass(ctx, tx, first)
		if err != nil {
			return err
		}
		b, err := lockClass(ctx, tx, second)
		if err != nil {
			return err
		}
		from, to := a, b
		if from.ID != fromID {
			from, to = b, a
		}

		s, err := from.RemoveStudent(studentID)
		if err != nil {
			return err
		}
		if err := to.AddStudent(s); err != nil {
			return err
		}
		if err := saveRoster(ctx, tx, from); err != nil {
			return err
		}
		if err := saveRoster(ctx, tx, to); err != nil {
			return err
		}
		out = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockClass(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Class, error) {
	return scanClass(tx.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1 FOR UPDATE`, id))
}

func saveRoster(ctx context.Context, tx pgx.Tx, c *model.Class) error {
	if c.Students == nil {
		c.Students = []model.Student{}
	}
	return tx.QueryRow(ctx,
		`UPDATE classes SET students = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
		c.Students, c.ID,
	).Scan(&c.UpdatedAt)
}
