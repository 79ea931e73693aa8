package model

import "errors"

// Roster errors returned by the Class mutation helpers.
var (
	ErrStudentNotFound     = errors.New("student not found in class")
	ErrDuplicateRollNumber = errors.New("roll number already used in class")
	ErrDuplicateStudent    = errors.New("student already enrolled in class")
)
