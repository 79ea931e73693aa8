package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stemsi/attendance-backend/internal/model"
)

// MaxNoteLength bounds the free-text note of a record.
const MaxNoteLength = 200

// ValidationError carries per-field messages keyed like records[2].status.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid attendance: " + strings.Join(parts, "; ")
}

// Actor identifies who submits a sheet.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// Validate checks a submission against the roster: every student exactly once,
// no strangers, a known status and a short note. The returned records follow
// roster order and carry the roster names.
func Validate(class *model.Class, in []model.AttendanceRecordInput) ([]model.AttendanceRecord, error) {
	fields := make(map[string]string)
	byStudent := make(map[uuid.UUID]model.AttendanceRecordInput, len(in))

	for i, r := range in {
		prefix := fmt.Sprintf("records[%d]", i)

		id, err := uuid.Parse(r.StudentID)
		if err != nil {
			fields[prefix+".student_id"] = "student_id must be a valid UUID"
			continue
		}
		if class.StudentIndex(id) < 0 {
			fields[prefix+".student_id"] = "student is not enrolled in this class"
			continue
		}
		if _, dup := byStudent[id]; dup {
			fields[prefix+".student_id"] = "student appears more than once"
			continue
		}
		if !r.Status.Valid() {
			fields[prefix+".status"] = "status must be one of present, late, absent, excused"
		}
		r.Note = strings.TrimSpace(r.Note)
		if utf8.RuneCountInString(r.Note) > MaxNoteLength {
			fields[prefix+".note"] = fmt.Sprintf("note must be at most %d characters", MaxNoteLength)
		}
		byStudent[id] = r
	}

	var missing []string
	for _, s := range class.Students {
		if _, ok := byStudent[s.ID]; !ok {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) > 0 {
		fields["records"] = "missing students: " + strings.Join(missing, ", ")
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	out := make([]model.AttendanceRecord, 0, len(class.Students))
	for _, s := range class.Students {
		r := byStudent[s.ID]
		out = append(out, model.AttendanceRecord{
			StudentID:   s.ID,
			StudentName: s.Name,
			Status:      r.Status,
			Note:        r.Note,
		})
	}
	return out, nil
}

// Diff lists per-student status changes from prev to next, including students
// added to or dropped from the sheet, ordered by student name then id.
func Diff(prev, next []model.AttendanceRecord) []model.StatusChange {
	old := make(map[uuid.UUID]model.AttendanceRecord, len(prev))
	for _, r := range prev {
		old[r.StudentID] = r
	}

	var changes []model.StatusChange
	seen := make(map[uuid.UUID]bool, len(next))
	for _, r := range next {
		seen[r.StudentID] = true
		p, ok := old[r.StudentID]
		switch {
		case !ok:
			changes = append(changes, model.StatusChange{StudentID: r.StudentID, StudentName: r.StudentName, To: r.Status})
		case p.Status != r.Status:
			changes = append(changes, model.StatusChange{StudentID: r.StudentID, StudentName: r.StudentName, From: p.Status, To: r.Status})
		}
	}
	for _, r := range prev {
		if !seen[r.StudentID] {
			changes = append(changes, model.StatusChange{StudentID: r.StudentID, StudentName: r.StudentName, From: r.Status})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].StudentName != changes[j].StudentName {
			return changes[i].StudentName < changes[j].StudentName
		}
		return changes[i].StudentID.String() < changes[j].StudentID.String()
	})
	return changes
}

// Apply produces the next version of the sheet for class on date. A nil
// existing document yields version 1. A resubmission always bumps the version
// and records an edit history entry when any status changed.
func Apply(existing *model.Attendance, class *model.Class, date string, records []model.AttendanceRecord, actor Actor, now time.Time) *model.Attendance {
	now = now.UTC()

	if existing == nil {
		return &model.Attendance{
			ID:              uuid.New(),
			ClassID:         class.ID,
			ClassName:       class.Name,
			Date:            date,
			Records:         records,
			SubmittedBy:     actor.ID,
			SubmittedByName: actor.Name,
			SubmittedAt:     now,
			UpdatedAt:       now,
			Version:         1,
			EditHistory:     []model.EditHistory{},
		}
	}

	next := *existing
	next.ClassName = class.Name
	next.Records = records
	next.Version = existing.Version + 1
	next.UpdatedAt = now
	next.EditHistory = append([]model.EditHistory{}, existing.EditHistory...)

	if changes := Diff(existing.Records, records); len(changes) > 0 {
		next.EditHistory = append(next.EditHistory, model.EditHistory{
			Version:      next.Version,
			EditedBy:     actor.ID,
			EditedByName: actor.Name,
			EditedAt:     now,
			Changes:      changes,
		})
	}
	return &next
}
