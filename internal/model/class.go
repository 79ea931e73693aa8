package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Class represents a school class group with its embedded roster.
type Class struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Grade       string     `json:"grade"`
	TeacherID   *uuid.UUID `json:"teacher_id"`
	TeacherName string     `json:"teacher_name"`
	Students    []Student  `json:"students"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ref returns the denormalized reference stored on the teacher's account.
func (c *Class) Ref() ClassRef {
	return ClassRef{ID: c.ID, Name: c.Name}
}

// TaughtBy reports whether userID is the class teacher.
func (c *Class) TaughtBy(userID uuid.UUID) bool {
	return c.TeacherID != nil && *c.TeacherID == userID
}

// StudentIndex returns the roster position of the student, or -1.
func (c *Class) StudentIndex(id uuid.UUID) int {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return i
		}
	}
	return -1
}

// AddStudent enrolls s. Roll numbers are unique within a class (case-insensitive).
func (c *Class) AddStudent(s Student) error {
	if c.StudentIndex(s.ID) >= 0 {
		return ErrDuplicateStudent
	}
	if c.rollNumberTaken(s.RollNumber, s.ID) {
		return ErrDuplicateRollNumber
	}
	c.Students = append(c.Students, s)
	c.SortStudents()
	return nil
}

// UpdateStudent replaces the roster entry with the same id, keeping EnrolledAt.
func (c *Class) UpdateStudent(s Student) error {
	i := c.StudentIndex(s.ID)
	if i < 0 {
		return ErrStudentNotFound
	}
	if c.rollNumberTaken(s.RollNumber, s.ID) {
		return ErrDuplicateRollNumber
	}
	s.EnrolledAt = c.Students[i].EnrolledAt
	c.Students[i] = s
	c.SortStudents()
	return nil
}

// RemoveStudent drops the student from the roster and returns it.
func (c *Class) RemoveStudent(id uuid.UUID) (Student, error) {
	i := c.StudentIndex(id)
	if i < 0 {
		return Student{}, ErrStudentNotFound
	}
	s := c.Students[i]
	c.Students = append(c.Students[:i:i], c.Students[i+1:]...)
	return s, nil
}

// SortStudents orders the roster by roll number, then name.
func (c *Class) SortStudents() {
	sort.SliceStable(c.Students, func(i, j int) bool {
		return StudentLess(c.Students[i], c.Students[j])
	})
}

func (c *Class) rollNumberTaken(roll string, except uuid.UUID) bool {
	if roll == "" {
		return false
	}
	for _, s := range c.Students {
		if s.ID != except && strings.EqualFold(s.RollNumber, roll) {
			return true
		}
	}
	return false
}

// ClassChange describes the denormalized fields touched by a class update.
type ClassChange struct {
	ClassID        uuid.UUID
	Renamed        bool
	NewName        string
	Grade          string
	TeacherChanged bool
	OldTeacherID   *uuid.UUID
	NewTeacher     *User
}

// PlanClassChange compares the stored class with the requested state.
// newTeacher is nil when the class ends up without a teacher.
func PlanClassChange(current *Class, name, grade string, newTeacher *User) ClassChange {
	ch := ClassChange{
		ClassID:    current.ID,
		NewName:    name,
		Grade:      grade,
		NewTeacher: newTeacher,
	}
	ch.Renamed = current.Name != name

	switch {
	case current.TeacherID == nil && newTeacher == nil:
	case current.TeacherID == nil || newTeacher == nil:
		ch.TeacherChanged = true
	default:
		ch.TeacherChanged = *current.TeacherID != newTeacher.ID
	}
	if current.TeacherID != nil {
		id := *current.TeacherID
		ch.OldTeacherID = &id
	}
	return ch
}

// Apply writes the change onto the class document.
func (ch ClassChange) Apply(c *Class) {
	c.Name = ch.NewName
	c.Grade = ch.Grade
	if !ch.TeacherChanged {
		return
	}
	if ch.NewTeacher == nil {
		c.TeacherID = nil
		c.TeacherName = ""
		return
	}
	id := ch.NewTeacher.ID
	c.TeacherID = &id
	c.TeacherName = ch.NewTeacher.Name
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name      string  `json:"name" binding:"required,min=1,max=60"`
	Grade     string  `json:"grade" binding:"omitempty,max=20"`
	TeacherID *string `json:"teacher_id" binding:"omitempty,uuid"`
}

// UpdateClassRequest replaces the class name, grade and teacher.
// A null teacher_id leaves the class unassigned.
type UpdateClassRequest struct {
	Name      string  `json:"name" binding:"required,min=1,max=60"`
	Grade     string  `json:"grade" binding:"omitempty,max=20"`
	TeacherID *string `json:"teacher_id" binding:"omitempty,uuid"`
}

// ClassFilter narrows a class listing.
type ClassFilter struct {
	TeacherID *uuid.UUID
}
