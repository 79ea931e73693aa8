package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/model"
)

const testPassword = "rahasia123"

// fixedNow is Wednesday 6 March 2024, mid-morning.
var fixedNow = time.Date(2024, 3, 6, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store *memStore
	cache *memCache
	queue *memQueue
	cfg   *config.Config

	auth       *AuthService
	users      *UserService
	classes    *ClassService
	students   *StudentService
	holidays   *HolidayService
	attendance *AttendanceService
	reports    *ReportService
	selection  *SelectionService
	dashboard  *DashboardService

	admin   *model.User
	teacher *model.User
	other   *model.User
	class   *model.Class
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store: newMemStore(),
		cache: newMemCache(),
		queue: &memQueue{},
		cfg: &config.Config{
			JWTSecret:             "test-secret",
			JWTExpiry:             time.Hour,
			BcryptCost:            bcrypt.MinCost,
			SchoolTimezone:        "UTC",
			TeacherEditWindowDays: 7,
			DashboardCacheTTL:     time.Minute,
		},
	}
	users := memUsers{f.store}
	classes := memClasses{f.store}
	archive := memArchive{f.store}
	sheets := memSheets{f.store}
	holidays := memHolidays{f.store}
	summaries := memSummaries{f.store}
	log := zerolog.Nop()

	f.auth = NewAuthService(f.cfg, users)
	f.auth.now = func() time.Time { return fixedNow }
	f.users = NewUserService(users, f.auth)
	dashboards := NewDashboardCache(f.cache, log)
	f.classes = NewClassService(classes, users, dashboards)
	f.students = NewStudentService(classes, archive, dashboards)
	f.students.now = func() time.Time { return fixedNow }
	f.holidays = NewHolidayService(holidays, dashboards)
	f.attendance = NewAttendanceService(f.cfg, sheets, classes, holidays, f.queue, log)
	f.attendance.now = func() time.Time { return fixedNow }
	f.reports = NewReportService(classes, sheets, summaries, f.holidays)
	f.selection = NewSelectionService(f.cache, f.reports)
	f.dashboard = NewDashboardService(f.cfg, classes, sheets, summaries, holidays, archive, f.cache, log)
	f.dashboard.now = func() time.Time { return fixedNow }

	var err error
	f.admin, err = f.users.Create(ctx, model.CreateUserRequest{Email: "Admin@School.id", Name: "Ibu Admin", Role: model.RoleAdmin, Password: testPassword})
	require.NoError(t, err)
	f.teacher, err = f.users.Create(ctx, model.CreateUserRequest{Email: "budi@school.id", Name: "Pak Budi", Role: model.RoleTeacher, Password: testPassword})
	require.NoError(t, err)
	f.other, err = f.users.Create(ctx, model.CreateUserRequest{Email: "sari@school.id", Name: "Bu Sari", Role: model.RoleTeacher, Password: testPassword})
	require.NoError(t, err)

	teacherID := f.teacher.ID.String()
	f.class, err = f.classes.Create(ctx, model.CreateClassRequest{Name: "7A", Grade: "7", TeacherID: &teacherID})
	require.NoError(t, err)
	for _, s := range []model.StudentRequest{
		{Name: "Ani", RollNumber: "1", Gender: model.GenderFemale},
		{Name: "Bayu", RollNumber: "2", Gender: model.GenderMale},
	} {
		f.class, err = f.students.Add(ctx, f.class.ID, s)
		require.NoError(t, err)
	}
	return f
}

func claimsFor(u *model.User) *Claims {
	return &Claims{UserID: u.ID, Name: u.Name, Role: u.Role, Permissions: u.Role.Permissions()}
}

// marks builds a full submission for the class with the given statuses in roster order.
func marks(c *model.Class, statuses ...model.Status) []model.AttendanceRecordInput {
	in := make([]model.AttendanceRecordInput, 0, len(c.Students))
	for i, s := range c.Students {
		st := model.StatusPresent
		if i < len(statuses) {
			st = statuses[i]
		}
		in = append(in, model.AttendanceRecordInput{StudentID: s.ID.String(), Status: st})
	}
	return in
}
