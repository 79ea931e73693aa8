package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/repository"
)

func TestCreateClassRejectsInvalidTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	adminID := f.admin.ID.String()
	_, err := f.classes.Create(ctx, model.CreateClassRequest{Name: "9C", TeacherID: &adminID})
	assert.ErrorIs(t, err, ErrInvalidTeacher)

	missing := uuid.NewString()
	_, err = f.classes.Create(ctx, model.CreateClassRequest{Name: "9C", TeacherID: &missing})
	assert.ErrorIs(t, err, ErrInvalidTeacher)

	_, err = f.classes.Create(ctx, model.CreateClassRequest{Name: "7a"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestRenameAndReassignCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := claimsFor(f.admin)

	_, err := f.attendance.Submit(ctx, admin, f.class.ID, "2024-03-04", marks(f.class))
	require.NoError(t, err)
	_, err = f.students.Archive(ctx, admin, f.class.ID, f.class.Students[0].ID, "Pindah sekolah")
	require.NoError(t, err)

	otherID := f.other.ID.String()
	updated, err := f.classes.Update(ctx, f.class.ID, model.UpdateClassRequest{Name: "7A Unggulan", Grade: "7", TeacherID: &otherID})
	require.NoError(t, err)
	assert.Equal(t, "7A Unggulan", updated.Name)
	assert.Equal(t, "Bu Sari", updated.TeacherName)

	doc, err := f.attendance.Get(ctx, admin, f.class.ID, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, "7A Unggulan", doc.ClassName)

	archived, err := f.students.ListArchived(ctx, &f.class.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "7A Unggulan", archived[0].ClassName)

	oldTeacher, err := f.users.GetByID(ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, oldTeacher.AssignedClasses)
	newTeacher, err := f.users.GetByID(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.ClassRef{{ID: f.class.ID, Name: "7A Unggulan"}}, newTeacher.AssignedClasses)

	// The previous teacher lost access right away.
	_, err = f.classes.GetByID(ctx, claimsFor(f.teacher), f.class.ID)
	assert.ErrorIs(t, err, ErrNotClassTeacher)
	classes, err := f.classes.List(ctx, claimsFor(f.teacher))
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestDeleteClassWithDependencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.classes.Delete(ctx, f.class.ID), repository.ErrHasDependencies)

	empty, err := f.classes.Create(ctx, model.CreateClassRequest{Name: "Kelas Kosong"})
	require.NoError(t, err)
	assert.NoError(t, f.classes.Delete(ctx, empty.ID))
}

func TestRosterOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := claimsFor(f.admin)

	_, err := f.students.Add(ctx, f.class.ID, model.StudentRequest{Name: "Dewi", RollNumber: "2"})
	assert.ErrorIs(t, err, model.ErrDuplicateRollNumber)

	bayu := f.class.Students[1]
	class, err := f.students.Update(ctx, f.class.ID, bayu.ID, model.StudentRequest{Name: "Bayu Pratama", RollNumber: "3", Gender: model.GenderMale})
	require.NoError(t, err)
	assert.Equal(t, "Bayu Pratama", class.Students[1].Name)
	assert.Equal(t, bayu.EnrolledAt, class.Students[1].EnrolledAt)

	target, err := f.classes.Create(ctx, model.CreateClassRequest{Name: "7B"})
	require.NoError(t, err)
	_, err = f.students.Transfer(ctx, f.class.ID, bayu.ID, f.class.ID)
	assert.ErrorIs(t, err, ErrSameClass)
	target, err = f.students.Transfer(ctx, f.class.ID, bayu.ID, target.ID)
	require.NoError(t, err)
	require.Len(t, target.Students, 1)
	assert.Equal(t, bayu.ID, target.Students[0].ID)

	ani := f.class.Students[0]
	a, err := f.students.Archive(ctx, admin, f.class.ID, ani.ID, "Lulus")
	require.NoError(t, err)
	assert.Equal(t, "7A", a.ClassName)
	assert.Equal(t, "Ibu Admin", a.ArchivedByName)

	class, err = f.students.Restore(ctx, a.ID, &target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, class.ID)
	assert.Len(t, class.Students, 2)

	list, err := f.students.ListArchived(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, f.students.DeleteArchived(ctx, a.ID), repository.ErrNotFound)
}

func TestHolidayCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.holidays.Create(ctx, model.HolidayRequest{Date: "2024-08-17", Name: " Hari Kemerdekaan "})
	require.NoError(t, err)
	assert.Equal(t, "Hari Kemerdekaan", h.Name)

	_, err = f.holidays.Create(ctx, model.HolidayRequest{Date: "2024-08-17", Name: "Lagi"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	n, err := f.holidays.Import(ctx, []model.HolidayRequest{
		{Date: "2024-08-17", Name: "HUT RI"},
		{Date: "2024-12-25", Name: "Natal"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	year, err := f.holidays.ListYear(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, year, 2)
	assert.Equal(t, "HUT RI", year[0].Name)

	require.NoError(t, f.holidays.Delete(ctx, h.ID))
	none, err := f.holidays.ListYear(ctx, 2023)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
