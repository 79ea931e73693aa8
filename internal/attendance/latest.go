// Package attendance holds the pure rules for attendance sheets: picking the
// winning document per class and day, diffing resubmissions into edit history,
// and validating a submission against the class roster.
package attendance

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/attendance-backend/internal/model"
)

type key struct {
	classID uuid.UUID
	date    string
}

// Newer reports whether a wins over b for the same class and date: higher
// version first, then later update time, then the greater id.
func Newer(a, b *model.Attendance) bool {
	if a.Version != b.Version {
		return a.Version > b.Version
	}
	ta, tb := touched(a), touched(b)
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.ID.String() > b.ID.String()
}

func touched(a *model.Attendance) time.Time {
	if !a.UpdatedAt.IsZero() {
		return a.UpdatedAt
	}
	return a.SubmittedAt
}

// Latest keeps one document per class and date and orders the result by
// date, class name and class id. The result does not depend on input order.
func Latest(docs []model.Attendance) []model.Attendance {
	best := make(map[key]int, len(docs))
	for i := range docs {
		k := key{docs[i].ClassID, docs[i].Date}
		j, ok := best[k]
		if !ok || Newer(&docs[i], &docs[j]) {
			best[k] = i
		}
	}

	out := make([]model.Attendance, 0, len(best))
	for _, i := range best {
		out = append(out, docs[i])
	}
	SortByDate(out)
	return out
}

// Collapse is Latest for imports: the winner's edit history also carries the
// recorded history of the superseded documents, and an entry is synthesized
// for each version step that no document recorded.
func Collapse(docs []model.Attendance) []model.Attendance {
	groups := make(map[key][]model.Attendance)
	for _, d := range docs {
		k := key{d.ClassID, d.Date}
		groups[k] = append(groups[k], d)
	}

	out := make([]model.Attendance, 0, len(groups))
	for _, g := range groups {
		// Newest first, so the winner's own entries take precedence.
		sort.Slice(g, func(i, j int) bool { return Newer(&g[i], &g[j]) })
		winner := g[0]

		var history []model.EditHistory
		for _, d := range g {
			history = append(history, d.EditHistory...)
		}
		for i := len(g) - 1; i > 0; i-- {
			prev, next := g[i], g[i-1]
			if next.Version <= prev.Version {
				continue
			}
			changes := Diff(prev.Records, next.Records)
			if len(changes) == 0 {
				continue
			}
			history = append(history, model.EditHistory{
				Version:      next.Version,
				EditedBy:     next.SubmittedBy,
				EditedByName: next.SubmittedByName,
				EditedAt:     touched(&next),
				Changes:      changes,
			})
		}
		winner.EditHistory = dedupeHistory(history)
		out = append(out, winner)
	}
	SortByDate(out)
	return out
}

// dedupeHistory keeps the first entry seen for each version and orders the
// result by version.
func dedupeHistory(h []model.EditHistory) []model.EditHistory {
	seen := make(map[int]bool, len(h))
	out := make([]model.EditHistory, 0, len(h))
	for _, e := range h {
		if seen[e.Version] {
			continue
		}
		seen[e.Version] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// SortByDate orders documents by date, class name, then class id.
func SortByDate(docs []model.Attendance) {
	sort.Slice(docs, func(i, j int) bool {
		a, b := &docs[i], &docs[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.ClassName != b.ClassName {
			return a.ClassName < b.ClassName
		}
		return a.ClassID.String() < b.ClassID.String()
	})
}
