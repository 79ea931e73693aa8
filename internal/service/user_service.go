package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/response"
)

// UserService manages administrator and teacher accounts.
type UserService struct {
	users UserStore
	auth  *AuthService
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, auth *AuthService) *UserService {
	return &UserService{users: users, auth: auth}
}

// List retrieves users with pagination, an optional role and a name/email search.
func (s *UserService) List(ctx context.Context, role model.Role, search string, page, perPage int) ([]model.User, *response.Pagination, error) {
	page, perPage = response.Page(page, perPage)
	users, total, err := s.users.List(ctx, model.UserFilter{
		Role:   role,
		Search: strings.TrimSpace(search),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, nil, err
	}
	if users == nil {
		users = []model.User{}
	}

	return users, response.NewPagination(page, perPage, total), nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// Create adds an active account.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:           normalizeEmail(req.Email),
		Name:            strings.TrimSpace(req.Name),
		Role:            req.Role,
		PasswordHash:    hash,
		Active:          true,
		AssignedClasses: []model.ClassRef{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update changes an account. actorID is the caller, who may not deactivate or
// demote themself. A blank password keeps the current one.
func (s *UserService) Update(ctx context.Context, actorID, id uuid.UUID, req model.UpdateUserRequest) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	active := req.Active != nil && *req.Active
	if actorID == id && (!active || req.Role != u.Role) {
		return nil, ErrSelfAction
	}

	u.Email = normalizeEmail(req.Email)
	u.Name = strings.TrimSpace(req.Name)
	u.Role = req.Role
	u.Active = active
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Delete removes an account. Classes it taught are left without a teacher.
func (s *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ErrSelfAction
	}
	return s.users.Delete(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
