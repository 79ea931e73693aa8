// Package report aggregates attendance sheets and daily summaries into the
// numbers shown on reports, calendars and the dashboard.
package report

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/stemsi/attendance-backend/internal/model"
)

// Counts tallies attendance marks.
type Counts struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
}

// Add records one mark. Unknown marks are ignored.
func (c *Counts) Add(s model.Status) {
	switch s {
	case model.StatusPresent:
		c.Present++
	case model.StatusLate:
		c.Late++
	case model.StatusAbsent:
		c.Absent++
	case model.StatusExcused:
		c.Excused++
	}
}

// Merge adds o into c.
func (c *Counts) Merge(o Counts) {
	c.Present += o.Present
	c.Late += o.Late
	c.Absent += o.Absent
	c.Excused += o.Excused
}

func (c Counts) Total() int    { return c.Present + c.Late + c.Absent + c.Excused }
func (c Counts) Attended() int { return c.Present + c.Late }

// Rate is the attendance percentage with excused absences left out of the
// denominator, rounded to one decimal. It is 0 when nothing counts.
func (c Counts) Rate() float64 {
	den := c.Total() - c.Excused
	if den <= 0 {
		return 0
	}
	return math.Round(float64(c.Attended())/float64(den)*1000) / 10
}

// FromSummary converts a stored daily summary.
func FromSummary(s model.DailySummary) Counts {
	return Counts{Present: s.Present, Late: s.Late, Absent: s.Absent, Excused: s.Excused}
}

// Tally counts the records of one sheet.
func Tally(records []model.AttendanceRecord) Counts {
	var c Counts
	for _, r := range records {
		c.Add(r.Status)
	}
	return c
}

// Summarize turns a sheet into its daily summary row.
func Summarize(doc *model.Attendance) model.DailySummary {
	c := Tally(doc.Records)
	return model.DailySummary{
		ClassID:   doc.ClassID,
		Date:      doc.Date,
		Present:   c.Present,
		Late:      c.Late,
		Absent:    c.Absent,
		Excused:   c.Excused,
		Total:     c.Total(),
		UpdatedAt: doc.UpdatedAt,
	}
}

// CountsView is Counts with its derived figures, for JSON output.
type CountsView struct {
	Counts
	Total int     `json:"total"`
	Rate  float64 `json:"rate"`
}

// View attaches total and rate.
func (c Counts) View() CountsView {
	return CountsView{Counts: c, Total: c.Total(), Rate: c.Rate()}
}

// StudentSummary is one row of the student report.
type StudentSummary struct {
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	RollNumber  string    `json:"roll_number"`
	Active      bool      `json:"active"`
	CountsView
}

// StudentSummaries reports every roster student, with zeros for students
// without marks, plus students that only appear in the sheets (inactive).
// docs must already be deduplicated.
func StudentSummaries(roster []model.Student, docs []model.Attendance) []StudentSummary {
	counts := make(map[uuid.UUID]*Counts)
	names := make(map[uuid.UUID]string)
	for i := range docs {
		for _, r := range docs[i].Records {
			c, ok := counts[r.StudentID]
			if !ok {
				c = &Counts{}
				counts[r.StudentID] = c
			}
			c.Add(r.Status)
			names[r.StudentID] = r.StudentName
		}
	}

	rows := make([]StudentSummary, 0, len(roster))
	students := make([]model.Student, 0, len(roster)+len(counts))
	active := make(map[uuid.UUID]bool, len(roster))
	for _, s := range roster {
		active[s.ID] = true
		students = append(students, s)
	}
	for id := range counts {
		if !active[id] {
			students = append(students, model.Student{ID: id, Name: names[id]})
		}
	}
	sort.SliceStable(students, func(i, j int) bool {
		return model.StudentLess(students[i], students[j])
	})

	for _, s := range students {
		var c Counts
		if p := counts[s.ID]; p != nil {
			c = *p
		}
		rows = append(rows, StudentSummary{
			StudentID:   s.ID,
			StudentName: s.Name,
			RollNumber:  s.RollNumber,
			Active:      active[s.ID],
			CountsView:  c.View(),
		})
	}
	return rows
}

// ClassSummary is one row of the class report.
type ClassSummary struct {
	ClassID      uuid.UUID `json:"class_id"`
	ClassName    string    `json:"class_name"`
	TeacherName  string    `json:"teacher_name"`
	StudentCount int       `json:"student_count"`
	DaysRecorded int       `json:"days_recorded"`
	SchoolDays   int       `json:"school_days"`
	MissingDates []string  `json:"missing_dates"`
	CountsView
}

// ClassSummaries reports each class over schoolDays. Summaries outside
// schoolDays still count toward the totals.
func ClassSummaries(classes []model.Class, summaries []model.DailySummary, schoolDays []string) []ClassSummary {
	byClass := make(map[uuid.UUID][]model.DailySummary)
	for _, s := range summaries {
		byClass[s.ClassID] = append(byClass[s.ClassID], s)
	}

	rows := make([]ClassSummary, 0, len(classes))
	for i := range classes {
		cl := &classes[i]
		var c Counts
		recorded := make(map[string]bool)
		for _, s := range byClass[cl.ID] {
			c.Merge(FromSummary(s))
			recorded[s.Date] = true
		}
		missing := []string{}
		for _, d := range schoolDays {
			if !recorded[d] {
				missing = append(missing, d)
			}
		}
		rows = append(rows, ClassSummary{
			ClassID:      cl.ID,
			ClassName:    cl.Name,
			TeacherName:  cl.TeacherName,
			StudentCount: len(cl.Students),
			DaysRecorded: len(recorded),
			SchoolDays:   len(schoolDays),
			MissingDates: missing,
			CountsView:   c.View(),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ClassName != rows[j].ClassName {
			return rows[i].ClassName < rows[j].ClassName
		}
		return rows[i].ClassID.String() < rows[j].ClassID.String()
	})
	return rows
}

// DailyPoint is one day of the trend.
type DailyPoint struct {
	Date             string `json:"date"`
	ClassesSubmitted int    `json:"classes_submitted"`
	CountsView
}

// DailyTrend reports each of days in order, zero-filled when nothing was recorded.
func DailyTrend(summaries []model.DailySummary, days []string) []DailyPoint {
	type acc struct {
		counts  Counts
		classes map[uuid.UUID]bool
	}
	byDate := make(map[string]*acc)
	for _, s := range summaries {
		a, ok := byDate[s.Date]
		if !ok {
			a = &acc{classes: make(map[uuid.UUID]bool)}
			byDate[s.Date] = a
		}
		a.counts.Merge(FromSummary(s))
		a.classes[s.ClassID] = true
	}

	points := make([]DailyPoint, 0, len(days))
	for _, d := range days {
		p := DailyPoint{Date: d, CountsView: Counts{}.View()}
		if a := byDate[d]; a != nil {
			p.ClassesSubmitted = len(a.classes)
			p.CountsView = a.counts.View()
		}
		points = append(points, p)
	}
	return points
}
