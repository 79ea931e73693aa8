package websocket

import "github.com/stemsi/attendance-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady          Event = "ready"
	EventSummaryUpdated Event = "summary_updated"
	EventSummaryRebuilt Event = "summary_rebuilt"
	EventError          Event = "error"
	EventPong           Event = "pong"
)

// SummaryEvent is published on the dashboard channel whenever a daily summary
// changes. Summary is nil when the sheet was deleted.
type SummaryEvent struct {
	Event   Event               `json:"event"`
	ClassID string              `json:"class_id,omitempty"`
	Date    string              `json:"date,omitempty"`
	Summary *model.DailySummary `json:"summary"`
}

// ReadyResponse is sent once the stream is subscribed.
type ReadyResponse struct {
	Event   Event    `json:"event"`
	Classes []string `json:"classes"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
