package model

import (
	"time"

	"github.com/google/uuid"
)

// Holiday is a non-school day.
type Holiday struct {
	ID          uuid.UUID `json:"id"`
	Date        string    `json:"date"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HolidayRequest is the payload for creating or updating a holiday.
type HolidayRequest struct {
	Date        string `json:"date" binding:"required,isodate"`
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
}
