package service

import (
	"context"
	"time"

	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/config"
)

// SelectionTTL is how long an untouched range selection is kept.
const SelectionTTL = 12 * time.Hour

// SelectionView is the caller's selection, with the class report once both
// ends are chosen.
type SelectionView struct {
	calendar.Selection
	Report *ClassReport `json:"report,omitempty"`
}

// SelectionService keeps each user's two-click calendar selection in Redis.
type SelectionService struct {
	cache   Cache
	reports *ReportService
}

// NewSelectionService creates a new SelectionService.
func NewSelectionService(cache Cache, reports *ReportService) *SelectionService {
	return &SelectionService{cache: cache, reports: reports}
}

// Get returns the stored selection, idle when nothing is stored.
func (s *SelectionService) Get(ctx context.Context, claims *Claims) (*SelectionView, error) {
	sel, err := s.load(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, claims, sel)
}

// Click advances the selection with date. A rejected click leaves it unchanged.
func (s *SelectionService) Click(ctx context.Context, claims *Claims, date string) (*SelectionView, error) {
	sel, err := s.load(ctx, claims)
	if err != nil {
		return nil, err
	}
	next, err := sel.Click(date)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, config.CacheKey.SelectionKey(claims.UserID.String()), next, SelectionTTL); err != nil {
		return nil, err
	}
	return s.view(ctx, claims, next)
}

// Reset clears the selection.
func (s *SelectionService) Reset(ctx context.Context, claims *Claims) (*SelectionView, error) {
	if err := s.cache.Delete(ctx, config.CacheKey.SelectionKey(claims.UserID.String())); err != nil {
		return nil, err
	}
	return &SelectionView{Selection: calendar.NewSelection()}, nil
}

func (s *SelectionService) load(ctx context.Context, claims *Claims) (calendar.Selection, error) {
	var sel calendar.Selection
	ok, err := s.cache.GetJSON(ctx, config.CacheKey.SelectionKey(claims.UserID.String()), &sel)
	if err != nil {
		return calendar.Selection{}, err
	}
	if !ok {
		return calendar.NewSelection(), nil
	}
	return sel, nil
}

func (s *SelectionService) view(ctx context.Context, claims *Claims, sel calendar.Selection) (*SelectionView, error) {
	v := &SelectionView{Selection: sel}
	r, ok := sel.Range()
	if !ok {
		return v, nil
	}
	rep, err := s.reports.classReport(ctx, claims, r)
	if err != nil {
		return nil, err
	}
	v.Report = rep
	return v, nil
}
