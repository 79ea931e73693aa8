package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/model"
)

// Scope is the set of classes a caller may see. Holders of
// attendance:manage_all see every class.
type Scope struct {
	UserID   uuid.UUID
	All      bool
	ClassIDs []uuid.UUID
}

// Allows reports whether the class is inside the scope.
func (s Scope) Allows(classID uuid.UUID) bool {
	if s.All {
		return true
	}
	for _, id := range s.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// Filter returns the class ids for store filters: nil for every class, and a
// non-nil (possibly empty) slice otherwise.
func (s Scope) Filter() []uuid.UUID {
	if s.All {
		return nil
	}
	ids := make([]uuid.UUID, len(s.ClassIDs))
	copy(ids, s.ClassIDs)
	return ids
}

// Key names the scope in cache keys.
func (s Scope) Key() string {
	if s.All {
		return "all"
	}
	return s.UserID.String()
}

// resolveScope reads the caller's classes from the classes table rather than the
// token, so reassignments apply immediately.
func resolveScope(ctx context.Context, classes ClassStore, claims *Claims) (Scope, error) {
	if claims.Can(model.PermissionAttendanceManageAll) {
		return Scope{UserID: claims.UserID, All: true}, nil
	}
	teacherID := claims.UserID
	list, err := classes.List(ctx, model.ClassFilter{TeacherID: &teacherID})
	if err != nil {
		return Scope{}, err
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return Scope{UserID: claims.UserID, ClassIDs: ids}, nil
}

// scopeClasses lists the classes inside the scope.
func scopeClasses(ctx context.Context, classes ClassStore, scope Scope) ([]model.Class, error) {
	if scope.All {
		return classes.List(ctx, model.ClassFilter{})
	}
	id := scope.UserID
	return classes.List(ctx, model.ClassFilter{TeacherID: &id})
}
