package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/model"
)

// StudentService handles roster changes and the student archive.
type StudentService struct {
	classes    ClassStore
	archive    ArchiveStore
	dashboards *DashboardCache
	now        func() time.Time
}

// NewStudentService creates a new StudentService.
func NewStudentService(classes ClassStore, archive ArchiveStore, dashboards *DashboardCache) *StudentService {
	return &StudentService{classes: classes, archive: archive, dashboards: dashboards, now: time.Now}
}

// Add enrolls a new student and returns the updated class.
func (s *StudentService) Add(ctx context.Context, classID uuid.UUID, req model.StudentRequest) (*model.Class, error) {
	student := model.Student{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(req.Name),
		RollNumber: strings.TrimSpace(req.RollNumber),
		Gender:     req.Gender,
		EnrolledAt: s.now().UTC(),
	}
	return s.changed(ctx)(s.classes.MutateRoster(ctx, classID, func(c *model.Class) error {
		return c.AddStudent(student)
	}))
}

// Update changes a student's name, roll number or gender.
func (s *StudentService) Update(ctx context.Context, classID, studentID uuid.UUID, req model.StudentRequest) (*model.Class, error) {
	student := model.Student{
		ID:         studentID,
		Name:       strings.TrimSpace(req.Name),
		RollNumber: strings.TrimSpace(req.RollNumber),
		Gender:     req.Gender,
	}
	return s.changed(ctx)(s.classes.MutateRoster(ctx, classID, func(c *model.Class) error {
		return c.UpdateStudent(student)
	}))
}

// Transfer moves a student to another class and returns the target class.
// Past attendance stays with the class it was taken in.
func (s *StudentService) Transfer(ctx context.Context, classID, studentID, targetID uuid.UUID) (*model.Class, error) {
	if classID == targetID {
		return nil, ErrSameClass
	}
	return s.changed(ctx)(s.classes.TransferStudent(ctx, classID, targetID, studentID))
}

// Archive removes a student from the roster into the archive.
func (s *StudentService) Archive(ctx context.Context, claims *Claims, classID, studentID uuid.UUID, reason string) (*model.ArchivedStudent, error) {
	a := &model.ArchivedStudent{
		Reason:         strings.TrimSpace(reason),
		ArchivedBy:     claims.UserID,
		ArchivedByName: claims.Name,
		ArchivedAt:     s.now().UTC(),
	}
	if err := s.archive.Archive(ctx, classID, studentID, a); err != nil {
		return nil, err
	}
	s.dashboards.Invalidate(ctx)
	return a, nil
}

// ListArchived lists archived students, optionally for one class.
func (s *StudentService) ListArchived(ctx context.Context, classID *uuid.UUID) ([]model.ArchivedStudent, error) {
	list, err := s.archive.List(ctx, model.ArchiveFilter{ClassID: classID})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.ArchivedStudent{}
	}
	return list, nil
}

// Restore re-enrolls an archived student. A nil classID means the original class.
func (s *StudentService) Restore(ctx context.Context, archivedID uuid.UUID, classID *uuid.UUID) (*model.Class, error) {
	return s.changed(ctx)(s.archive.Restore(ctx, archivedID, classID))
}

// DeleteArchived permanently removes an archived student.
func (s *StudentService) DeleteArchived(ctx context.Context, archivedID uuid.UUID) error {
	if err := s.archive.Delete(ctx, archivedID); err != nil {
		return err
	}
	s.dashboards.Invalidate(ctx)
	return nil
}

// changed passes a roster result through, dropping cached dashboards on success.
func (s *StudentService) changed(ctx context.Context) func(*model.Class, error) (*model.Class, error) {
	return func(c *model.Class, err error) (*model.Class, error) {
		if err == nil {
			s.dashboards.Invalidate(ctx)
		}
		return c, err
	}
}
