package model

import (
	"time"

	"github.com/google/uuid"
)

// DailySummary is the per-class, per-day tally maintained by the aggregation job.
type DailySummary struct {
	ClassID   uuid.UUID `json:"class_id"`
	Date      string    `json:"date"`
	Present   int       `json:"present"`
	Late      int       `json:"late"`
	Absent    int       `json:"absent"`
	Excused   int       `json:"excused"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummaryFilter narrows a summary listing. Nil ClassIDs means every class and an
// empty non-nil slice means none.
type SummaryFilter struct {
	ClassIDs []uuid.UUID
	Start    string
	End      string
}
