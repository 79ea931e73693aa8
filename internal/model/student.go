package model

import (
	"cmp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gender is optional roster information.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Student is a roster entry embedded in a Class.
type Student struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Gender     Gender    `json:"gender,omitempty"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// StudentLess orders students by roll number, then name, then id. Numeric roll
// numbers come first in numeric order, the rest follow in string order and
// students without a roll number come last.
func StudentLess(a, b Student) bool {
	if c := compareRoll(a.RollNumber, b.RollNumber); c != 0 {
		return c < 0
	}
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c < 0
	}
	return a.ID.String() < b.ID.String()
}

func compareRoll(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(an, bn)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	case a == "" && b != "":
		return 1
	case b == "" && a != "":
		return -1
	}
	return strings.Compare(a, b)
}

// StudentRequest is the payload for adding or updating a roster entry.
type StudentRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	RollNumber string `json:"roll_number" binding:"required,max=20"`
	Gender     Gender `json:"gender" binding:"omitempty,oneof=male female"`
}

// TransferStudentRequest moves a student to another class.
type TransferStudentRequest struct {
	TargetClassID string `json:"target_class_id" binding:"required,uuid"`
}

// ArchiveStudentRequest removes a student from the roster into the archive.
type ArchiveStudentRequest struct {
	Reason string `json:"reason" binding:"required,min=2,max=200"`
}

// RestoreStudentRequest re-enrolls an archived student. An empty class id means the
// class the student was archived from.
type RestoreStudentRequest struct {
	ClassID string `json:"class_id" binding:"omitempty,uuid"`
}
