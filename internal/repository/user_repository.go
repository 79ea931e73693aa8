package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/attendance-backend/internal/model"
)

const userColumns = `id, email, name, role, password_hash, active, assigned_classes, created_at, updated_at`

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.Active,
		&u.AssignedClasses, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if u.AssignedClasses == nil {
		u.AssignedClasses = []model.ClassRef{}
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

// List returns a page of users matching the filter and the total match count.
func (r *UserRepository) List(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	where := sq.And{}
	if f.Role != "" {
		where = append(where, sq.Eq{"role": string(f.Role)})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, sq.Or{sq.ILike{"name": like}, sq.ILike{"email": like}})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := psql.Select(userColumns).From("users").Where(where).OrderBy("name", "id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if u.AssignedClasses == nil {
		u.AssignedClasses = []model.ClassRef{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, role, password_hash, active, assigned_classes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.Role, u.PasswordHash, u.Active, u.AssignedClasses,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

// Update saves the account fields. The new name is copied onto the classes the
// user teaches, and a user who is no longer a teacher loses their classes.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if u.Role != model.RoleTeacher {
			if _, err := tx.Exec(ctx,
				`UPDATE classes SET teacher_id = NULL, teacher_name = '', updated_at = NOW()
				 WHERE teacher_id = $1`, u.ID); err != nil {
				return fmt.Errorf("unassign classes: %w", err)
			}
		} else if _, err := tx.Exec(ctx,
			`UPDATE classes SET teacher_name = $1, updated_at = NOW()
			 WHERE teacher_id = $2 AND teacher_name <> $1`, u.Name, u.ID); err != nil {
			return fmt.Errorf("rename teacher on classes: %w", err)
		}

		err := tx.QueryRow(ctx,
			`UPDATE users SET email = $1, name = $2, role = $3, active = $4, updated_at = NOW(),
			   assigned_classes = CASE WHEN $3 = 'teacher' THEN assigned_classes ELSE '[]'::jsonb END
			 WHERE id = $5
			 RETURNING assigned_classes, updated_at`,
			u.Email, u.Name, string(u.Role), u.Active, u.ID,
		).Scan(&u.AssignedClasses, &u.UpdatedAt)
		return mapErr(err)
	})
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user and leaves their classes without a teacher.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE classes SET teacher_id = NULL, teacher_name = '', updated_at = NOW()
			 WHERE teacher_id = $1`, id); err != nil {
			return fmt.Errorf("unassign classes: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return mapErr(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// updateAssignedClasses rewrites a user's class refs under a row lock.
func updateAssignedClasses(ctx context.Context, tx pgx.Tx, userID uuid.UUID, fn func([]model.ClassRef) []model.ClassRef) error {
	var refs []model.ClassRef
	err := tx.QueryRow(ctx,
		`SELECT assigned_classes FROM users WHERE id = $1 FOR UPDATE`, userID,
	).Scan(&refs)
	if err != nil {
		return mapErr(err)
	}
	refs = fn(refs)
	if refs == nil {
		refs = []model.ClassRef{}
	}
	_, err = tx.Exec(ctx,
		`UPDATE users SET assigned_classes = $1, updated_at = NOW() WHERE id = $2`, refs, userID)
	return err
}
