package service

import "errors"

// Business rule errors. Handlers map them to response codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrNotClassTeacher    = errors.New("caller does not teach this class")
	ErrSelfAction         = errors.New("cannot delete, deactivate or demote your own account")
	ErrInvalidTeacher     = errors.New("assignee must be an active teacher")
	ErrSameClass          = errors.New("student is already in this class")

	ErrFutureDate       = errors.New("date is in the future")
	ErrWeekend          = errors.New("date falls on a weekend")
	ErrHoliday          = errors.New("date is a holiday")
	ErrEditWindowClosed = errors.New("date is outside the edit window")
)
