package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/repository"
)

// The store interfaces below are satisfied by the repository package and by
// in-memory fakes in tests.

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, f model.UserFilter) ([]model.User, int, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ClassStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error)
	List(ctx context.Context, f model.ClassFilter) ([]model.Class, error)
	Create(ctx context.Context, c *model.Class) error
	Update(ctx context.Context, ch model.ClassChange) (*model.Class, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MutateRoster(ctx context.Context, classID uuid.UUID, fn func(*model.Class) error) (*model.Class, error)
	TransferStudent(ctx context.Context, fromID, toID, studentID uuid.UUID) (*model.Class, error)
}

type ArchiveStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ArchivedStudent, error)
	List(ctx context.Context, f model.ArchiveFilter) ([]model.ArchivedStudent, error)
	Count(ctx context.Context) (int, error)
	Archive(ctx context.Context, classID, studentID uuid.UUID, a *model.ArchivedStudent) error
	Restore(ctx context.Context, archivedID uuid.UUID, classID *uuid.UUID) (*model.Class, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AttendanceStore interface {
	Get(ctx context.Context, classID uuid.UUID, date string) (*model.Attendance, error)
	List(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error)
	Submit(ctx context.Context, classID uuid.UUID, date string, fn repository.SubmitFunc) (*model.Attendance, error)
	Delete(ctx context.Context, classID uuid.UUID, date string) error
}

type HolidayStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Holiday, error)
	List(ctx context.Context, start, end string) ([]model.Holiday, error)
	Create(ctx context.Context, h *model.Holiday) error
	Update(ctx context.Context, h *model.Holiday) error
	Delete(ctx context.Context, id uuid.UUID) error
	Upsert(ctx context.Context, holidays []model.HolidayRequest) (int, error)
}

type SummaryStore interface {
	List(ctx context.Context, f model.SummaryFilter) ([]model.DailySummary, error)
}

// Cache is the JSON cache used for dashboards and selections.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// SummaryEnqueuer schedules a daily summary recompute.
type SummaryEnqueuer interface {
	Enqueue(ctx context.Context, classID uuid.UUID, date string) error
}
