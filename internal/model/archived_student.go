package model

import (
	"time"

	"github.com/google/uuid"
)

// ArchivedStudent keeps a student removed from a roster, with the class they left.
type ArchivedStudent struct {
	ID             uuid.UUID `json:"id"`
	Student        Student   `json:"student"`
	ClassID        uuid.UUID `json:"class_id"`
	ClassName      string    `json:"class_name"`
	Reason         string    `json:"reason"`
	ArchivedBy     uuid.UUID `json:"archived_by"`
	ArchivedByName string    `json:"archived_by_name"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// ArchiveFilter narrows an archive listing.
type ArchiveFilter struct {
	ClassID *uuid.UUID
}
