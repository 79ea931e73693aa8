package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/attendance-backend/internal/attendance"
	"github.com/stemsi/attendance-backend/internal/model"
)

func TestSubmitAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := claimsFor(f.teacher)

	doc, err := f.attendance.Submit(ctx, teacher, f.class.ID, "2024-03-06", marks(f.class))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "7A", doc.ClassName)
	assert.Equal(t, "Pak Budi", doc.SubmittedByName)
	assert.Empty(t, doc.EditHistory)

	doc, err = f.attendance.Submit(ctx, teacher, f.class.ID, "2024-03-06", marks(f.class, model.StatusPresent, model.StatusAbsent))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)
	require.Len(t, doc.EditHistory, 1)
	assert.Equal(t, []model.StatusChange{{
		StudentID:   f.class.Students[1].ID,
		StudentName: "Bayu",
		From:        model.StatusPresent,
		To:          model.StatusAbsent,
	}}, doc.EditHistory[0].Changes)

	history, err := f.attendance.History(ctx, teacher, f.class.ID, "2024-03-06")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	f.queue.mu.Lock()
	assert.Len(t, f.queue.jobs, 2)
	assert.Equal(t, queuedJob{ClassID: f.class.ID, Date: "2024-03-06"}, f.queue.jobs[0])
	f.queue.mu.Unlock()
}

func TestSubmitDateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := claimsFor(f.teacher)
	admin := claimsFor(f.admin)

	_, err := f.holidays.Create(ctx, model.HolidayRequest{Date: "2024-03-05", Name: "Hari Libur"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		claims *Claims
		date   string
		want   error
	}{
		{"future", teacher, "2024-03-07", ErrFutureDate},
		{"weekend", teacher, "2024-03-02", ErrWeekend},
		{"holiday", teacher, "2024-03-05", ErrHoliday},
		{"outside teacher window", teacher, "2024-02-26", ErrEditWindowClosed},
		{"admin ignores window", admin, "2024-02-26", nil},
		{"edge of window", teacher, "2024-02-28", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.attendance.Submit(ctx, tt.claims, f.class.ID, tt.date, marks(f.class))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitConfigAllowsWeekendAndHoliday(t *testing.T) {
	f := newFixture(t)
	f.cfg.AllowWeekendAttendance = true
	f.cfg.AllowHolidayAttendance = true
	ctx := context.Background()

	_, err := f.holidays.Create(ctx, model.HolidayRequest{Date: "2024-03-05", Name: "Hari Libur"})
	require.NoError(t, err)

	_, err = f.attendance.Submit(ctx, claimsFor(f.teacher), f.class.ID, "2024-03-02", marks(f.class))
	assert.NoError(t, err)
	_, err = f.attendance.Submit(ctx, claimsFor(f.teacher), f.class.ID, "2024-03-05", marks(f.class))
	assert.NoError(t, err)
}

func TestSubmitRequiresClassTeacher(t *testing.T) {
	f := newFixture(t)

	_, err := f.attendance.Submit(context.Background(), claimsFor(f.other), f.class.ID, "2024-03-06", marks(f.class))
	assert.ErrorIs(t, err, ErrNotClassTeacher)

	_, err = f.attendance.Get(context.Background(), claimsFor(f.other), f.class.ID, "2024-03-06")
	assert.ErrorIs(t, err, ErrNotClassTeacher)
}

func TestSubmitValidatesRoster(t *testing.T) {
	f := newFixture(t)

	in := marks(f.class)[:1]
	_, err := f.attendance.Submit(context.Background(), claimsFor(f.teacher), f.class.ID, "2024-03-06", in)
	var verr *attendance.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "records")
}

func TestListIsScopedToTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := claimsFor(f.admin)

	otherID := f.other.ID.String()
	other, err := f.classes.Create(ctx, model.CreateClassRequest{Name: "8B", TeacherID: &otherID})
	require.NoError(t, err)
	other, err = f.students.Add(ctx, other.ID, model.StudentRequest{Name: "Citra", RollNumber: "1"})
	require.NoError(t, err)

	_, err = f.attendance.Submit(ctx, admin, f.class.ID, "2024-03-04", marks(f.class))
	require.NoError(t, err)
	_, err = f.attendance.Submit(ctx, admin, other.ID, "2024-03-04", marks(other))
	require.NoError(t, err)

	all, err := f.attendance.List(ctx, admin, nil, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.attendance.List(ctx, claimsFor(f.teacher), nil, "", "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.class.ID, mine[0].ClassID)

	_, err = f.attendance.List(ctx, claimsFor(f.teacher), &other.ID, "", "")
	assert.ErrorIs(t, err, ErrNotClassTeacher)
}

func TestDeleteSheetEnqueuesRecompute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.attendance.Submit(ctx, claimsFor(f.teacher), f.class.ID, "2024-03-06", marks(f.class))
	require.NoError(t, err)
	require.NoError(t, f.attendance.Delete(ctx, f.class.ID, "2024-03-06"))

	f.queue.mu.Lock()
	defer f.queue.mu.Unlock()
	assert.Len(t, f.queue.jobs, 2)
}
