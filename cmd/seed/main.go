package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/database"
	"github.com/stemsi/attendance-backend/internal/logger"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/repository"
	"github.com/stemsi/attendance-backend/internal/service"
)

const seedPassword = "guru12345"

// seed fills an empty database with demo teachers, classes, rosters and
// attendance for the last school days.
func main() {
	var (
		classes  int
		students int
		days     int
		seed     uint64
	)
	flag.IntVar(&classes, "classes", 6, "Number of classes (one teacher each)")
	flag.IntVar(&students, "students", 28, "Students per class")
	flag.IntVar(&days, "days", 20, "School days of attendance to generate")
	flag.Uint64Var(&seed, "seed", 42, "Random seed")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	holidayRepo := repository.NewHolidayRepository(pool)
	summaryRepo := repository.NewSummaryRepository(pool)

	authService := service.NewAuthService(cfg, userRepo)
	userService := service.NewUserService(userRepo, authService)
	// Seeding targets an empty database, so there are no cached dashboards to drop.
	classService := service.NewClassService(classRepo, userRepo, nil)
	studentService := service.NewStudentService(classRepo, repository.NewArchiveRepository(pool), nil)
	// Summaries are rebuilt once at the end instead of per sheet.
	attendanceService := service.NewAttendanceService(cfg, repository.NewAttendanceRepository(pool), classRepo, holidayRepo, noQueue{}, zerolog.Nop())

	faker := gofakeit.New(seed)
	seeder := &service.Claims{
		UserID:      uuid.New(),
		Name:        "Data Seeder",
		Role:        model.RoleAdmin,
		Permissions: model.RoleAdmin.Permissions(),
	}

	var created []*model.Class
	for i := 0; i < classes; i++ {
		teacher, err := createTeacher(ctx, userService, faker)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create teacher")
		}
		teacherID := teacher.ID.String()
		grade := strconv.Itoa(7 + i%3)
		class, err := classService.Create(ctx, model.CreateClassRequest{
			Name:      fmt.Sprintf("%s%c", grade, 'A'+rune(i/3)),
			Grade:     grade,
			TeacherID: &teacherID,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create class")
		}
		for n := 1; n <= students; n++ {
			gender := model.GenderFemale
			if faker.Bool() {
				gender = model.GenderMale
			}
			class, err = studentService.Add(ctx, class.ID, model.StudentRequest{
				Name:       faker.FirstName() + " " + faker.LastName(),
				RollNumber: strconv.Itoa(n),
				Gender:     gender,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to add student")
			}
		}
		log.Info().Str("class", class.Name).Str("teacher", teacher.Email).Int("students", len(class.Students)).Msg("Class seeded")
		created = append(created, class)
	}

	loc, err := time.LoadLocation(cfg.SchoolTimezone)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid SCHOOL_TIMEZONE")
	}
	today := calendar.Today(loc, time.Now())
	sheets := 0
	for _, date := range calendar.LastSchoolDays(today, days, nil) {
		for _, class := range created {
			_, err := attendanceService.Submit(ctx, seeder, class.ID, date, randomMarks(faker, class))
			if errors.Is(err, service.ErrHoliday) {
				break
			}
			if err != nil {
				log.Fatal().Err(err).Str("date", date).Msg("Failed to submit attendance")
			}
			sheets++
		}
	}

	n, err := summaryRepo.RebuildAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Summary rebuild failed")
	}
	log.Info().Int("classes", len(created)).Int("sheets", sheets).Int("summaries", n).
		Str("teacher_password", seedPassword).Msg("Seed complete")
}

func createTeacher(ctx context.Context, users *service.UserService, faker *gofakeit.Faker) (*model.User, error) {
	for attempt := 0; attempt < 5; attempt++ {
		first, last := faker.FirstName(), faker.LastName()
		email := strings.ToLower(fmt.Sprintf("%s.%s%d@sekolah.test", first, last, faker.Number(1, 99)))
		u, err := users.Create(ctx, model.CreateUserRequest{
			Email:    email,
			Name:     first + " " + last,
			Role:     model.RoleTeacher,
			Password: seedPassword,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		return u, err
	}
	return nil, errors.New("could not find a free teacher email")
}

// randomMarks produces a plausible day: mostly present, some late, a few absent.
func randomMarks(faker *gofakeit.Faker, class *model.Class) []model.AttendanceRecordInput {
	in := make([]model.AttendanceRecordInput, 0, len(class.Students))
	for _, s := range class.Students {
		status := model.StatusPresent
		switch roll := faker.Number(1, 100); {
		case roll > 97:
			status = model.StatusExcused
		case roll > 93:
			status = model.StatusAbsent
		case roll > 85:
			status = model.StatusLate
		}
		in = append(in, model.AttendanceRecordInput{StudentID: s.ID.String(), Status: status})
	}
	return in
}

type noQueue struct{}

func (noQueue) Enqueue(context.Context, uuid.UUID, string) error { return nil }
