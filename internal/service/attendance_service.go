package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/attendance-backend/internal/attendance"
	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/model"
)

// AttendanceService records and reads attendance sheets.
type AttendanceService struct {
	cfg       *config.Config
	sheets    AttendanceStore
	classes   ClassStore
	holidays  HolidayStore
	summaries SummaryEnqueuer
	log       zerolog.Logger
	now       func() time.Time
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(cfg *config.Config, sheets AttendanceStore, classes ClassStore, holidays HolidayStore, summaries SummaryEnqueuer, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		cfg:       cfg,
		sheets:    sheets,
		classes:   classes,
		holidays:  holidays,
		summaries: summaries,
		log:       log.With().Str("component", "attendance_service").Logger(),
		now:       time.Now,
	}
}

// Submit creates or replaces the sheet of a class on a date. The latest
// submission wins and every resubmission bumps the version.
func (s *AttendanceService) Submit(ctx context.Context, claims *Claims, classID uuid.UUID, date string, in []model.AttendanceRecordInput) (*model.Attendance, error) {
	if _, err := calendar.Parse(date); err != nil {
		return nil, err
	}
	if _, err := s.accessibleClass(ctx, claims, classID); err != nil {
		return nil, err
	}
	if err := s.checkDate(ctx, claims, date); err != nil {
		return nil, err
	}

	manageAll := claims.Can(model.PermissionAttendanceManageAll)
	actor := claims.Actor()
	doc, err := s.sheets.Submit(ctx, classID, date, func(class *model.Class, existing *model.Attendance) (*model.Attendance, error) {
		if !manageAll && !class.TaughtBy(claims.UserID) {
			return nil, ErrNotClassTeacher
		}
		records, err := attendance.Validate(class, in)
		if err != nil {
			return nil, err
		}
		return attendance.Apply(existing, class, date, records, actor, s.now()), nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("class_id", classID.String()).
		Str("date", date).
		Int("version", doc.Version).
		Str("by", claims.UserID.String()).
		Msg("Attendance submitted")
	s.enqueue(ctx, classID, date)
	return doc, nil
}

// checkDate applies the calendar rules for a submission.
func (s *AttendanceService) checkDate(ctx context.Context, claims *Claims, date string) error {
	today := calendar.Today(s.cfg.Location(), s.now())
	if date > today {
		return ErrFutureDate
	}
	if !s.cfg.AllowWeekendAttendance && calendar.IsWeekend(date) {
		return ErrWeekend
	}
	if !s.cfg.AllowHolidayAttendance {
		hs, err := s.holidays.List(ctx, date, date)
		if err != nil {
			return err
		}
		if len(hs) > 0 {
			return ErrHoliday
		}
	}
	if s.cfg.TeacherEditWindowDays > 0 && !claims.Can(model.PermissionAttendanceManageAll) {
		age, err := calendar.DaysBetween(date, today)
		if err != nil {
			return err
		}
		if age > s.cfg.TeacherEditWindowDays {
			return ErrEditWindowClosed
		}
	}
	return nil
}

// Get returns the sheet of a class on a date.
func (s *AttendanceService) Get(ctx context.Context, claims *Claims, classID uuid.UUID, date string) (*model.Attendance, error) {
	if _, err := calendar.Parse(date); err != nil {
		return nil, err
	}
	if _, err := s.accessibleClass(ctx, claims, classID); err != nil {
		return nil, err
	}
	return s.sheets.Get(ctx, classID, date)
}

// History returns the edit history of a sheet, oldest first.
func (s *AttendanceService) History(ctx context.Context, claims *Claims, classID uuid.UUID, date string) ([]model.EditHistory, error) {
	doc, err := s.Get(ctx, claims, classID, date)
	if err != nil {
		return nil, err
	}
	if doc.EditHistory == nil {
		return []model.EditHistory{}, nil
	}
	return doc.EditHistory, nil
}

// List returns sheets in the caller's scope, one per class and date, ordered by
// date. classID narrows to one class; empty bounds are open.
func (s *AttendanceService) List(ctx context.Context, claims *Claims, classID *uuid.UUID, start, end string) ([]model.Attendance, error) {
	if start != "" && end != "" {
		if _, err := calendar.NewRange(start, end); err != nil {
			return nil, err
		}
	}

	scope, err := resolveScope(ctx, s.classes, claims)
	if err != nil {
		return nil, err
	}
	ids := scope.Filter()
	if classID != nil {
		if !scope.Allows(*classID) {
			return nil, ErrNotClassTeacher
		}
		ids = []uuid.UUID{*classID}
	}

	docs, err := s.sheets.List(ctx, model.AttendanceFilter{ClassIDs: ids, Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return attendance.Latest(docs), nil
}

// Delete removes a sheet. Its daily summary goes with it.
func (s *AttendanceService) Delete(ctx context.Context, classID uuid.UUID, date string) error {
	if _, err := calendar.Parse(date); err != nil {
		return err
	}
	if err := s.sheets.Delete(ctx, classID, date); err != nil {
		return err
	}
	s.log.Info().Str("class_id", classID.String()).Str("date", date).Msg("Attendance deleted")
	s.enqueue(ctx, classID, date)
	return nil
}

// accessibleClass loads the class and checks the caller teaches it unless
// they may manage every class.
func (s *AttendanceService) accessibleClass(ctx context.Context, claims *Claims, classID uuid.UUID) (*model.Class, error) {
	c, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !claims.Can(model.PermissionAttendanceManageAll) && !c.TaughtBy(claims.UserID) {
		return nil, ErrNotClassTeacher
	}
	return c, nil
}

// enqueue schedules a summary recompute. The scheduled rebuild repairs a
// missed job, so a failure is only logged.
func (s *AttendanceService) enqueue(ctx context.Context, classID uuid.UUID, date string) {
	if err := s.summaries.Enqueue(ctx, classID, date); err != nil {
		s.log.Warn().Err(err).Str("class_id", classID.String()).Str("date", date).Msg("Failed to enqueue summary recompute")
	}
}
