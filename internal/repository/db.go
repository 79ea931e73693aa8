package repository

import (
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stemsi/attendance-backend/internal/calendar"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("record already exists")
	ErrHasDependencies = errors.New("record is still referenced")
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// mapErr turns driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrHasDependencies, pgErr.ConstraintName)
		}
	}
	return err
}

// dateArg converts a YYYY-MM-DD string into a DATE parameter.
func dateArg(s string) (time.Time, error) {
	return calendar.Parse(s)
}

// dateCol selects a DATE column as YYYY-MM-DD text.
func dateCol(col string) string {
	return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", col)
}

// dateRange adds inclusive bounds on col. Empty bounds are skipped.
func dateRange(b sq.SelectBuilder, col, start, end string) (sq.SelectBuilder, error) {
	if start != "" {
		t, err := dateArg(start)
		if err != nil {
			return b, err
		}
		b = b.Where(col+" >= ?", t)
	}
	if end != "" {
		t, err := dateArg(end)
		if err != nil {
			return b, err
		}
		b = b.Where(col+" <= ?", t)
	}
	return b, nil
}
