package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/model"
)

// HolidayService manages the holiday calendar.
type HolidayService struct {
	holidays   HolidayStore
	dashboards *DashboardCache
}

// NewHolidayService creates a new HolidayService.
func NewHolidayService(holidays HolidayStore, dashboards *DashboardCache) *HolidayService {
	return &HolidayService{holidays: holidays, dashboards: dashboards}
}

// List returns holidays between start and end inclusive. Empty bounds are open.
func (s *HolidayService) List(ctx context.Context, start, end string) ([]model.Holiday, error) {
	list, err := s.holidays.List(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Holiday{}
	}
	return list, nil
}

// ListYear returns the holidays of one calendar year.
func (s *HolidayService) ListYear(ctx context.Context, year int) ([]model.Holiday, error) {
	return s.List(ctx, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
}

// Dates returns the holiday dates within r as a set.
func (s *HolidayService) Dates(ctx context.Context, r calendar.Range) (map[string]bool, error) {
	list, err := s.holidays.List(ctx, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(list))
	for _, h := range list {
		set[h.Date] = true
	}
	return set, nil
}

// Create adds a holiday. Dates are unique.
func (s *HolidayService) Create(ctx context.Context, req model.HolidayRequest) (*model.Holiday, error) {
	h := &model.Holiday{
		Date:        req.Date,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.holidays.Create(ctx, h); err != nil {
		return nil, err
	}
	s.dashboards.Invalidate(ctx)
	return h, nil
}

// Update replaces a holiday.
func (s *HolidayService) Update(ctx context.Context, id uuid.UUID, req model.HolidayRequest) (*model.Holiday, error) {
	h := &model.Holiday{
		ID:          id,
		Date:        req.Date,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.holidays.Update(ctx, h); err != nil {
		return nil, err
	}
	s.dashboards.Invalidate(ctx)
	return h, nil
}

// Delete removes a holiday.
func (s *HolidayService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.holidays.Delete(ctx, id); err != nil {
		return err
	}
	s.dashboards.Invalidate(ctx)
	return nil
}

// Import upserts holidays by date.
func (s *HolidayService) Import(ctx context.Context, reqs []model.HolidayRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}
	n, err := s.holidays.Upsert(ctx, reqs)
	if err != nil {
		return 0, err
	}
	s.dashboards.Invalidate(ctx)
	return n, nil
}
