// Package importer converts external data into models: the JSON export of the
// previous hosted document store and YAML holiday calendars.
package importer

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/attendance"
	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/model"
)

// legacyNamespace seeds the name-based ids of documents whose keys are not UUIDs.
var legacyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/stemsi/attendance-backend/legacy"))

// Timestamp accepts the shapes timestamps take in the export: RFC 3339
// strings, epoch milliseconds, or {"seconds", "nanoseconds"} objects.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed.UTC()
	case '{':
		var v struct {
			Seconds     int64 `json:"seconds"`
			Nanoseconds int64 `json:"nanoseconds"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		t.Time = time.Unix(v.Seconds, v.Nanoseconds).UTC()
	default:
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("timestamp %s: %w", b, err)
		}
		t.Time = time.UnixMilli(ms).UTC()
	}
	return nil
}

type legacyStudent struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"rollNumber"`
	Gender     string    `json:"gender"`
	EnrolledAt Timestamp `json:"enrolledAt"`
}

type legacyClass struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Grade       string          `json:"grade"`
	TeacherID   string          `json:"teacherId"`
	TeacherName string          `json:"teacherName"`
	Students    []legacyStudent `json:"students"`
	CreatedAt   Timestamp       `json:"createdAt"`
	UpdatedAt   Timestamp       `json:"updatedAt"`
}

type legacyUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    *bool     `json:"active"`
	CreatedAt Timestamp `json:"createdAt"`
}

type legacyRecord struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Status      string `json:"status"`
	Note        string `json:"note"`
}

type legacyChange struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	From        string `json:"from"`
	To          string `json:"to"`
}

type legacyEdit struct {
	Version      int            `json:"version"`
	EditedBy     string         `json:"editedBy"`
	EditedByName string         `json:"editedByName"`
	EditedAt     Timestamp      `json:"editedAt"`
	Changes      []legacyChange `json:"changes"`
}

type legacyAttendance struct {
	ID              string         `json:"id"`
	ClassID         string         `json:"classId"`
	ClassName       string         `json:"className"`
	Date            string         `json:"date"`
	Records         []legacyRecord `json:"records"`
	SubmittedBy     string         `json:"submittedBy"`
	SubmittedByName string         `json:"submittedByName"`
	SubmittedAt     Timestamp      `json:"submittedAt"`
	UpdatedAt       Timestamp      `json:"updatedAt"`
	Version         int            `json:"version"`
	EditHistory     []legacyEdit   `json:"editHistory"`
}

type legacyHoliday struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type legacyArchived struct {
	ID             string        `json:"id"`
	Student        legacyStudent `json:"student"`
	ClassID        string        `json:"classId"`
	ClassName      string        `json:"className"`
	Reason         string        `json:"reason"`
	ArchivedBy     string        `json:"archivedBy"`
	ArchivedByName string        `json:"archivedByName"`
	ArchivedAt     Timestamp     `json:"archivedAt"`
}

// Export is the raw export file, one array per collection.
type Export struct {
	Attendance       []legacyAttendance `json:"attendance"`
	Classes          []legacyClass      `json:"classes"`
	Users            []legacyUser       `json:"users"`
	Holidays         []legacyHoliday    `json:"holidays"`
	ArchivedStudents []legacyArchived   `json:"archivedStudents"`
}

// Dataset is the export converted into models, ready to be written.
type Dataset struct {
	Users      []model.User
	Classes    []model.Class
	Attendance []model.Attendance
	Holidays   []model.Holiday
	Archived   []model.ArchivedStudent
}

// DecodeExport reads an export file.
func DecodeExport(r io.Reader) (*Export, error) {
	var exp Export
	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return &exp, nil
}

// LegacyID keeps UUID keys and derives a stable UUID for any other key.
func LegacyID(collection, raw string) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.NewSHA1(legacyNamespace, []byte(collection+"/"+raw))
}

func optionalID(collection, raw string) *uuid.UUID {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	id := LegacyID(collection, raw)
	return &id
}

func parseStatus(raw string) (model.Status, error) {
	s := model.Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// optional statuses appear as empty strings in history changes.
func parseOptionalStatus(raw string) (model.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return parseStatus(raw)
}

func orNow(t Timestamp, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.Time
}

// Convert maps the export onto models. Duplicate attendance documents for the
// same class and day are collapsed, and each teacher's assigned classes are
// rebuilt from the classes they teach.
func Convert(exp *Export, now time.Time) (*Dataset, error) {
	now = now.UTC()
	ds := &Dataset{}

	users := make(map[uuid.UUID]int, len(exp.Users))
	for i, u := range exp.Users {
		role := model.Role(strings.ToLower(strings.TrimSpace(u.Role)))
		if !role.Valid() {
			return nil, fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}
		active := true
		if u.Active != nil {
			active = *u.Active
		}
		created := orNow(u.CreatedAt, now)
		user := model.User{
			ID:              LegacyID("users", u.ID),
			Email:           strings.ToLower(strings.TrimSpace(u.Email)),
			Name:            strings.TrimSpace(u.Name),
			Role:            role,
			Active:          active,
			AssignedClasses: []model.ClassRef{},
			CreatedAt:       created,
			UpdatedAt:       created,
		}
		users[user.ID] = len(ds.Users)
		ds.Users = append(ds.Users, user)
	}

	for i, c := range exp.Classes {
		class := model.Class{
			ID:          LegacyID("classes", c.ID),
			Name:        strings.TrimSpace(c.Name),
			Grade:       strings.TrimSpace(c.Grade),
			TeacherID:   optionalID("users", c.TeacherID),
			TeacherName: c.TeacherName,
			Students:    make([]model.Student, 0, len(c.Students)),
			CreatedAt:   orNow(c.CreatedAt, now),
			UpdatedAt:   orNow(c.UpdatedAt, now),
		}
		for j, s := range c.Students {
			st, err := convertStudent(s, class.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("classes[%d].students[%d]: %w", i, j, err)
			}
			if err := class.AddStudent(st); err != nil {
				return nil, fmt.Errorf("classes[%d].students[%d]: %w", i, j, err)
			}
		}
		if class.TeacherID != nil {
			if ui, ok := users[*class.TeacherID]; ok {
				u := &ds.Users[ui]
				class.TeacherName = u.Name
				u.AssignedClasses = model.AddClassRef(u.AssignedClasses, class.Ref())
			} else {
				class.TeacherID = nil
				class.TeacherName = ""
			}
		}
		ds.Classes = append(ds.Classes, class)
	}

	docs := make([]model.Attendance, 0, len(exp.Attendance))
	for i, a := range exp.Attendance {
		doc, err := convertAttendance(a, now)
		if err != nil {
			return nil, fmt.Errorf("attendance[%d]: %w", i, err)
		}
		docs = append(docs, doc)
	}
	ds.Attendance = attendance.Collapse(docs)

	for i, h := range exp.Holidays {
		if !calendar.Valid(h.Date) {
			return nil, fmt.Errorf("holidays[%d]: invalid date %q", i, h.Date)
		}
		ds.Holidays = append(ds.Holidays, model.Holiday{
			ID:          LegacyID("holidays", h.ID),
			Date:        h.Date,
			Name:        strings.TrimSpace(h.Name),
			Description: h.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	for i, a := range exp.ArchivedStudents {
		at := orNow(a.ArchivedAt, now)
		st, err := convertStudent(a.Student, at)
		if err != nil {
			return nil, fmt.Errorf("archivedStudents[%d]: %w", i, err)
		}
		ds.Archived = append(ds.Archived, model.ArchivedStudent{
			ID:             LegacyID("archivedStudents", a.ID),
			Student:        st,
			ClassID:        LegacyID("classes", a.ClassID),
			ClassName:      a.ClassName,
			Reason:         a.Reason,
			ArchivedBy:     LegacyID("users", a.ArchivedBy),
			ArchivedByName: a.ArchivedByName,
			ArchivedAt:     at,
		})
	}

	return ds, nil
}

func convertStudent(s legacyStudent, fallback time.Time) (model.Student, error) {
	g := model.Gender(strings.ToLower(strings.TrimSpace(s.Gender)))
	switch g {
	case "", model.GenderMale, model.GenderFemale:
	default:
		return model.Student{}, fmt.Errorf("unknown gender %q", s.Gender)
	}
	return model.Student{
		ID:         LegacyID("students", s.ID),
		Name:       strings.TrimSpace(s.Name),
		RollNumber: strings.TrimSpace(s.RollNumber),
		Gender:     g,
		EnrolledAt: orNow(s.EnrolledAt, fallback),
	}, nil
}

func convertAttendance(a legacyAttendance, now time.Time) (model.Attendance, error) {
	if !calendar.Valid(a.Date) {
		return model.Attendance{}, fmt.Errorf("invalid date %q", a.Date)
	}
	submitted := orNow(a.SubmittedAt, now)
	doc := model.Attendance{
		ID:              LegacyID("attendance", a.ID),
		ClassID:         LegacyID("classes", a.ClassID),
		ClassName:       a.ClassName,
		Date:            a.Date,
		Records:         make([]model.AttendanceRecord, 0, len(a.Records)),
		SubmittedBy:     LegacyID("users", a.SubmittedBy),
		SubmittedByName: a.SubmittedByName,
		SubmittedAt:     submitted,
		UpdatedAt:       orNow(a.UpdatedAt, submitted),
		Version:         a.Version,
		EditHistory:     make([]model.EditHistory, 0, len(a.EditHistory)),
	}
	if doc.Version < 1 {
		doc.Version = 1
	}

	for j, r := range a.Records {
		status, err := parseStatus(r.Status)
		if err != nil {
			return model.Attendance{}, fmt.Errorf("records[%d]: %w", j, err)
		}
		doc.Records = append(doc.Records, model.AttendanceRecord{
			StudentID:   LegacyID("students", r.StudentID),
			StudentName: r.StudentName,
			Status:      status,
			Note:        r.Note,
		})
	}

	for j, e := range a.EditHistory {
		entry := model.EditHistory{
			Version:      e.Version,
			EditedBy:     LegacyID("users", e.EditedBy),
			EditedByName: e.EditedByName,
			EditedAt:     orNow(e.EditedAt, doc.UpdatedAt),
			Changes:      make([]model.StatusChange, 0, len(e.Changes)),
		}
		for k, c := range e.Changes {
			from, err := parseOptionalStatus(c.From)
			if err != nil {
				return model.Attendance{}, fmt.Errorf("editHistory[%d].changes[%d]: %w", j, k, err)
			}
			to, err := parseOptionalStatus(c.To)
			if err != nil {
				return model.Attendance{}, fmt.Errorf("editHistory[%d].changes[%d]: %w", j, k, err)
			}
			entry.Changes = append(entry.Changes, model.StatusChange{
				StudentID:   LegacyID("students", c.StudentID),
				StudentName: c.StudentName,
				From:        from,
				To:          to,
			})
		}
		doc.EditHistory = append(doc.EditHistory, entry)
	}
	return doc, nil
}
