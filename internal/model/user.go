package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an administrator or teacher account.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	PasswordHash    string     `json:"-"`
	Active          bool       `json:"active"`
	AssignedClasses []ClassRef `json:"assigned_classes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token       string   `json:"token"`
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
}

// CreateUserRequest is the payload for creating a user account.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Role     Role   `json:"role" binding:"required,oneof=admin teacher"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// UpdateUserRequest is the payload for updating a user account.
// An empty password keeps the current one.
type UpdateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Role     Role   `json:"role" binding:"required,oneof=admin teacher"`
	Active   *bool  `json:"active" binding:"required"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Role   Role
	Search string
	Limit  int
	Offset int
}
