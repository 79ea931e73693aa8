package model

import "github.com/google/uuid"

// ClassRef is the denormalized {id, name} pair stored on users.
type ClassRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// RemoveClassRef drops every ref with the given id.
func RemoveClassRef(refs []ClassRef, id uuid.UUID) ([]ClassRef, bool) {
	out := make([]ClassRef, 0, len(refs))
	for _, ref := range refs {
		if ref.ID != id {
			out = append(out, ref)
		}
	}
	return out, len(out) != len(refs)
}

// AddClassRef appends ref, or refreshes its name when the id is already present.
func AddClassRef(refs []ClassRef, ref ClassRef) []ClassRef {
	out := make([]ClassRef, 0, len(refs)+1)
	found := false
	for _, r := range refs {
		if r.ID == ref.ID {
			r.Name = ref.Name
			found = true
		}
		out = append(out, r)
	}
	if !found {
		out = append(out, ref)
	}
	return out
}
