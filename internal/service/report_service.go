package service

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/attendance"
	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/report"
)

// StudentReport is the per-student breakdown of one class over a range.
type StudentReport struct {
	Class    model.ClassRef          `json:"class"`
	Range    calendar.Range          `json:"range"`
	Days     int                     `json:"days_recorded"`
	Students []report.StudentSummary `json:"students"`
	Total    report.CountsView       `json:"total"`
}

// ClassReport is the per-class breakdown of the caller's scope over a range.
type ClassReport struct {
	Range      calendar.Range        `json:"range"`
	SchoolDays int                   `json:"school_days"`
	Classes    []report.ClassSummary `json:"classes"`
	Total      report.CountsView     `json:"total"`
}

// CalendarDay is one cell of the month calendar.
type CalendarDay struct {
	Date             string `json:"date"`
	Weekend          bool   `json:"weekend"`
	Holiday          string `json:"holiday,omitempty"`
	ClassesSubmitted int    `json:"classes_submitted"`
	ClassesExpected  int    `json:"classes_expected"`
	report.CountsView
}

// CalendarMonth is a Monday-first month grid with attendance figures per day.
type CalendarMonth struct {
	Year    int           `json:"year"`
	Month   int           `json:"month"`
	Leading int           `json:"leading_blanks"`
	Days    []CalendarDay `json:"days"`
}

// ReportService builds reports, trends and month calendars.
type ReportService struct {
	classes   ClassStore
	sheets    AttendanceStore
	summaries SummaryStore
	holidays  *HolidayService
}

// NewReportService creates a new ReportService.
func NewReportService(classes ClassStore, sheets AttendanceStore, summaries SummaryStore, holidays *HolidayService) *ReportService {
	return &ReportService{classes: classes, sheets: sheets, summaries: summaries, holidays: holidays}
}

// Students reports every student of a class over start..end.
func (s *ReportService) Students(ctx context.Context, claims *Claims, classID uuid.UUID, start, end string) (*StudentReport, error) {
	r, err := calendar.NewRange(start, end)
	if err != nil {
		return nil, err
	}
	class, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !claims.Can(model.PermissionAttendanceManageAll) && !class.TaughtBy(claims.UserID) {
		return nil, ErrNotClassTeacher
	}

	docs, err := s.sheets.List(ctx, model.AttendanceFilter{
		ClassIDs: []uuid.UUID{classID},
		Start:    r.Start,
		End:      r.End,
	})
	if err != nil {
		return nil, err
	}
	docs = attendance.Latest(docs)

	rows := report.StudentSummaries(class.Students, docs)
	var total report.Counts
	for i := range docs {
		total.Merge(report.Tally(docs[i].Records))
	}
	return &StudentReport{
		Class:    class.Ref(),
		Range:    r,
		Days:     len(docs),
		Students: rows,
		Total:    total.View(),
	}, nil
}

// Classes reports every class in the caller's scope over start..end.
func (s *ReportService) Classes(ctx context.Context, claims *Claims, start, end string) (*ClassReport, error) {
	r, err := calendar.NewRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.classReport(ctx, claims, r)
}

func (s *ReportService) classReport(ctx context.Context, claims *Claims, r calendar.Range) (*ClassReport, error) {
	scope, err := resolveScope(ctx, s.classes, claims)
	if err != nil {
		return nil, err
	}
	classes, err := scopeClasses(ctx, s.classes, scope)
	if err != nil {
		return nil, err
	}
	summaries, err := s.summaries.List(ctx, model.SummaryFilter{ClassIDs: scope.Filter(), Start: r.Start, End: r.End})
	if err != nil {
		return nil, err
	}
	holidays, err := s.holidays.Dates(ctx, r)
	if err != nil {
		return nil, err
	}
	schoolDays := calendar.SchoolDays(r, holidays)

	rows := report.ClassSummaries(classes, summaries, schoolDays)
	var total report.Counts
	for _, sum := range summaries {
		total.Merge(report.FromSummary(sum))
	}
	return &ClassReport{
		Range:      r,
		SchoolDays: len(schoolDays),
		Classes:    rows,
		Total:      total.View(),
	}, nil
}

// Daily reports the scope, or one class, day by day. Weekends and holidays
// only appear when something was recorded on them.
func (s *ReportService) Daily(ctx context.Context, claims *Claims, classID *uuid.UUID, start, end string) ([]report.DailyPoint, error) {
	r, err := calendar.NewRange(start, end)
	if err != nil {
		return nil, err
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

	summaries, err := s.summaries.List(ctx, model.SummaryFilter{ClassIDs: ids, Start: r.Start, End: r.End})
	if err != nil {
		return nil, err
	}
	holidays, err := s.holidays.Dates(ctx, r)
	if err != nil {
		return nil, err
	}
	return report.DailyTrend(summaries, trendDays(calendar.SchoolDays(r, holidays), summaries)), nil
}

// Calendar lays out a month ("YYYY-MM") for the scope or one class.
func (s *ReportService) Calendar(ctx context.Context, claims *Claims, month string, classID *uuid.UUID) (*CalendarMonth, error) {
	year, mon, err := calendar.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	grid := calendar.MonthGrid(year, mon)
	r := grid.Range()

	scope, err := resolveScope(ctx, s.classes, claims)
	if err != nil {
		return nil, err
	}
	ids := scope.Filter()
	expected := len(scope.ClassIDs)
	if classID != nil {
		if !scope.Allows(*classID) {
			return nil, ErrNotClassTeacher
		}
		ids = []uuid.UUID{*classID}
		expected = 1
	} else if scope.All {
		classes, err := s.classes.List(ctx, model.ClassFilter{})
		if err != nil {
			return nil, err
		}
		expected = len(classes)
	}

	summaries, err := s.summaries.List(ctx, model.SummaryFilter{ClassIDs: ids, Start: r.Start, End: r.End})
	if err != nil {
		return nil, err
	}
	holidays, err := s.holidays.List(ctx, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(holidays))
	for _, h := range holidays {
		names[h.Date] = h.Name
	}

	points := report.DailyTrend(summaries, grid.Days)
	days := make([]CalendarDay, 0, len(points))
	for _, p := range points {
		day := CalendarDay{
			Date:             p.Date,
			Weekend:          calendar.IsWeekend(p.Date),
			Holiday:          names[p.Date],
			ClassesSubmitted: p.ClassesSubmitted,
			CountsView:       p.CountsView,
		}
		if !day.Weekend && day.Holiday == "" {
			day.ClassesExpected = expected
		}
		days = append(days, day)
	}
	return &CalendarMonth{Year: grid.Year, Month: grid.Month, Leading: grid.Leading, Days: days}, nil
}

// trendDays merges the school days with any other day that has a summary.
func trendDays(schoolDays []string, summaries []model.DailySummary) []string {
	seen := make(map[string]bool, len(schoolDays))
	days := append([]string{}, schoolDays...)
	for _, d := range schoolDays {
		seen[d] = true
	}
	for _, s := range summaries {
		if !seen[s.Date] {
			seen[s.Date] = true
			days = append(days, s.Date)
		}
	}
	sort.Strings(days)
	return days
}
