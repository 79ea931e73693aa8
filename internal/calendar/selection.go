package calendar

import "fmt"

// SelectionState is the phase of a two-click range selection.
type SelectionState string

const (
	StateIdle          SelectionState = "idle"
	StateStartSelected SelectionState = "start_selected"
	StateComplete      SelectionState = "complete"
)

// Selection picks a date range with two clicks on a calendar. The first click
// fixes one end, the second closes the range whichever order the dates come in,
// and a click on a completed selection starts over.
type Selection struct {
	State SelectionState `json:"state"`
	Start string         `json:"start,omitempty"`
	End   string         `json:"end,omitempty"`
}

// NewSelection returns an idle selection.
func NewSelection() Selection {
	return Selection{State: StateIdle}
}

// Click advances the selection with date. On error the selection is unchanged.
func (s Selection) Click(date string) (Selection, error) {
	if _, err := Parse(date); err != nil {
		return s, err
	}

	switch s.State {
	case StateStartSelected:
		start, end := s.Start, date
		if end < start {
			start, end = end, start
		}
		r, err := NewRange(start, end)
		if err != nil {
			return s, err
		}
		return Selection{State: StateComplete, Start: r.Start, End: r.End}, nil
	case StateIdle, StateComplete, "":
		return Selection{State: StateStartSelected, Start: date}, nil
	default:
		return s, fmt.Errorf("unknown selection state %q", s.State)
	}
}

// Reset returns the selection to idle.
func (s Selection) Reset() Selection {
	return NewSelection()
}

// Range returns the selected range once both ends are chosen.
func (s Selection) Range() (Range, bool) {
	if s.State != StateComplete {
		return Range{}, false
	}
	return Range{Start: s.Start, End: s.End}, true
}
