package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/attendance-backend/internal/attendance"
	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/report"
)

// trendLength is the number of school days on the dashboard trend.
const trendLength = 7

// DashboardData consolidates today's figures for the caller's scope.
type DashboardData struct {
	Date          string              `json:"date"`
	Weekend       bool                `json:"weekend"`
	Holiday       *model.Holiday      `json:"holiday"`
	ClassCount    int                 `json:"class_count"`
	StudentCount  int                 `json:"student_count"`
	Submitted     []model.ClassRef    `json:"submitted"`
	Pending       []model.ClassRef    `json:"pending"`
	Today         report.CountsView   `json:"today"`
	Trend         []report.DailyPoint `json:"trend"`
	ArchivedCount *int                `json:"archived_count,omitempty"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// DashboardCache drops cached dashboards after writes that change classes,
// rosters or holidays. A nil *DashboardCache does nothing.
type DashboardCache struct {
	cache Cache
	log   zerolog.Logger
}

// NewDashboardCache creates a new DashboardCache.
func NewDashboardCache(cache Cache, log zerolog.Logger) *DashboardCache {
	return &DashboardCache{cache: cache, log: log.With().Str("component", "dashboard_cache").Logger()}
}

// Invalidate logs failures instead of returning them.
func (d *DashboardCache) Invalidate(ctx context.Context) {
	if d == nil {
		return
	}
	if _, err := d.cache.DeletePrefix(ctx, config.CacheKey.DashboardPrefix()); err != nil {
		d.log.Warn().Err(err).Msg("Failed to drop dashboard cache")
	}
}

// DashboardService builds the dashboard and caches it per scope and day.
type DashboardService struct {
	cfg       *config.Config
	classes   ClassStore
	sheets    AttendanceStore
	summaries SummaryStore
	holidays  HolidayStore
	archive   ArchiveStore
	cache     Cache
	log       zerolog.Logger
	now       func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(cfg *config.Config, classes ClassStore, sheets AttendanceStore, summaries SummaryStore, holidays HolidayStore, archive ArchiveStore, cache Cache, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		cfg:       cfg,
		classes:   classes,
		sheets:    sheets,
		summaries: summaries,
		holidays:  holidays,
		archive:   archive,
		cache:     cache,
		log:       log.With().Str("component", "dashboard_service").Logger(),
		now:       time.Now,
	}
}

// Get returns today's dashboard, from cache when possible. Cache failures only
// cost a rebuild.
func (s *DashboardService) Get(ctx context.Context, claims *Claims) (*DashboardData, error) {
	scope, err := resolveScope(ctx, s.classes, claims)
	if err != nil {
		return nil, err
	}
	today := calendar.Today(s.cfg.Location(), s.now())
	key := config.CacheKey.DashboardKey(scope.Key(), today)

	var cached DashboardData
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Dashboard cache read failed")
	} else if hit {
		return &cached, nil
	}

	data, err := s.build(ctx, claims, scope, today)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, data, s.cfg.DashboardCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Dashboard cache write failed")
	}
	return data, nil
}

func (s *DashboardService) build(ctx context.Context, claims *Claims, scope Scope, today string) (*DashboardData, error) {
	classes, err := scopeClasses(ctx, s.classes, scope)
	if err != nil {
		return nil, err
	}

	// Enough holidays to walk back over the trend window.
	from, err := calendar.AddDays(today, -calendar.MaxRangeDays)
	if err != nil {
		return nil, err
	}
	hs, err := s.holidays.List(ctx, from, today)
	if err != nil {
		return nil, err
	}
	holidaySet := make(map[string]bool, len(hs))
	data := &DashboardData{
		Date:        today,
		Weekend:     calendar.IsWeekend(today),
		Submitted:   []model.ClassRef{},
		Pending:     []model.ClassRef{},
		ClassCount:  len(classes),
		GeneratedAt: s.now().UTC(),
	}
	for i := range hs {
		holidaySet[hs[i].Date] = true
		if hs[i].Date == today {
			data.Holiday = &hs[i]
		}
	}

	sheets, err := s.sheets.List(ctx, model.AttendanceFilter{ClassIDs: scope.Filter(), Start: today, End: today})
	if err != nil {
		return nil, err
	}
	sheets = attendance.Latest(sheets)
	done := make(map[string]bool, len(sheets))
	var counts report.Counts
	for i := range sheets {
		done[sheets[i].ClassID.String()] = true
		counts.Merge(report.Tally(sheets[i].Records))
	}
	data.Today = counts.View()

	for i := range classes {
		data.StudentCount += len(classes[i].Students)
		if done[classes[i].ID.String()] {
			data.Submitted = append(data.Submitted, classes[i].Ref())
		} else {
			data.Pending = append(data.Pending, classes[i].Ref())
		}
	}

	days := calendar.LastSchoolDays(today, trendLength, holidaySet)
	data.Trend = []report.DailyPoint{}
	if len(days) > 0 {
		summaries, err := s.summaries.List(ctx, model.SummaryFilter{ClassIDs: scope.Filter(), Start: days[0], End: today})
		if err != nil {
			return nil, err
		}
		data.Trend = report.DailyTrend(summaries, days)
	}

	if claims.Can(model.PermissionStudentsWrite) {
		n, err := s.archive.Count(ctx)
		if err != nil {
			return nil, err
		}
		data.ArchivedCount = &n
	}
	return data, nil
}
