package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the attendance mark of one student on one day.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusExcused Status = "excused"
)

// Statuses lists the allowed marks in display order.
var Statuses = []Status{StatusPresent, StatusLate, StatusAbsent, StatusExcused}

// Valid reports whether s is one of the allowed marks.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

// AttendanceRecord is one student's mark inside an attendance sheet.
type AttendanceRecord struct {
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	Status      Status    `json:"status"`
	Note        string    `json:"note,omitempty"`
}

// StatusChange is one line of an edit history entry. From is empty when the student
// was added to the sheet, To is empty when removed.
type StatusChange struct {
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	From        Status    `json:"from,omitempty"`
	To          Status    `json:"to,omitempty"`
}

// EditHistory records who changed a sheet into which version.
type EditHistory struct {
	Version      int            `json:"version"`
	EditedBy     uuid.UUID      `json:"edited_by"`
	EditedByName string         `json:"edited_by_name"`
	EditedAt     time.Time      `json:"edited_at"`
	Changes      []StatusChange `json:"changes"`
}

// Attendance is the sheet of one class on one date.
type Attendance struct {
	ID              uuid.UUID          `json:"id"`
	ClassID         uuid.UUID          `json:"class_id"`
	ClassName       string             `json:"class_name"`
	Date            string             `json:"date"`
	Records         []AttendanceRecord `json:"records"`
	SubmittedBy     uuid.UUID          `json:"submitted_by"`
	SubmittedByName string             `json:"submitted_by_name"`
	SubmittedAt     time.Time          `json:"submitted_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Version         int                `json:"version"`
	EditHistory     []EditHistory      `json:"edit_history"`
}

// AttendanceRecordInput is one line of a submission.
type AttendanceRecordInput struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Status    Status `json:"status" binding:"required,oneof=present late absent excused"`
	Note      string `json:"note"`
}

// SubmitAttendanceRequest is the payload for submitting a sheet.
type SubmitAttendanceRequest struct {
	Records []AttendanceRecordInput `json:"records" binding:"required,min=1,dive"`
}

// AttendanceFilter narrows an attendance listing. Nil ClassIDs means every class
// and an empty non-nil slice means none. Empty dates leave that side open.
type AttendanceFilter struct {
	ClassIDs []uuid.UUID
	Start    string
	End      string
}
