package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/repository"
)

// ClassService handles class business logic.
type ClassService struct {
	classes    ClassStore
	users      UserStore
	dashboards *DashboardCache
}

// NewClassService creates a new ClassService.
func NewClassService(classes ClassStore, users UserStore, dashboards *DashboardCache) *ClassService {
	return &ClassService{classes: classes, users: users, dashboards: dashboards}
}

// Scope resolves the classes visible to the caller.
func (s *ClassService) Scope(ctx context.Context, claims *Claims) (Scope, error) {
	return resolveScope(ctx, s.classes, claims)
}

// List retrieves the classes in the caller's scope.
func (s *ClassService) List(ctx context.Context, claims *Claims) ([]model.Class, error) {
	f := model.ClassFilter{}
	if !claims.Can(model.PermissionAttendanceManageAll) {
		id := claims.UserID
		f.TeacherID = &id
	}
	classes, err := s.classes.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if classes == nil {
		classes = []model.Class{}
	}
	return classes, nil
}

// GetByID retrieves a class the caller may see.
func (s *ClassService) GetByID(ctx context.Context, claims *Claims, id uuid.UUID) (*model.Class, error) {
	c, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.Can(model.PermissionAttendanceManageAll) && !c.TaughtBy(claims.UserID) {
		return nil, ErrNotClassTeacher
	}
	return c, nil
}

// Create adds a class, optionally with a teacher.
func (s *ClassService) Create(ctx context.Context, req model.CreateClassRequest) (*model.Class, error) {
	teacher, err := s.teacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	c := &model.Class{
		Name:     strings.TrimSpace(req.Name),
		Grade:    strings.TrimSpace(req.Grade),
		Students: []model.Student{},
	}
	if teacher != nil {
		id := teacher.ID
		c.TeacherID = &id
		c.TeacherName = teacher.Name
	}
	if err := s.classes.Create(ctx, c); err != nil {
		return nil, err
	}
	s.dashboards.Invalidate(ctx)
	return c, nil
}

// Update renames and/or reassigns a class. The store cascades both changes.
func (s *ClassService) Update(ctx context.Context, id uuid.UUID, req model.UpdateClassRequest) (*model.Class, error) {
	current, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher, err := s.teacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	ch := model.PlanClassChange(current, strings.TrimSpace(req.Name), strings.TrimSpace(req.Grade), teacher)
	c, err := s.classes.Update(ctx, ch)
	if err != nil {
		return nil, err
	}
	s.dashboards.Invalidate(ctx)
	return c, nil
}

// Delete removes a class without students or attendance.
func (s *ClassService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.classes.Delete(ctx, id); err != nil {
		return err
	}
	s.dashboards.Invalidate(ctx)
	return nil
}

// teacher loads the assignee named by a request. A nil or blank id means none.
func (s *ClassService) teacher(ctx context.Context, raw *string) (*model.User, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, ErrInvalidTeacher
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTeacher
		}
		return nil, err
	}
	if u.Role != model.RoleTeacher || !u.Active {
		return nil, ErrInvalidTeacher
	}
	return u, nil
}
