package websocket

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
	EventError      Event = "error"
	EventInstitutes Event = "institutes"
	EventPong       Event = "pong"
)

// InstitutesResponse carries the full registry plus the receiving session's
// selection after validation against it.
type InstitutesResponse struct {
	Event             Event    `json:"event"`
	Institutes        []string `json:"institutes"`
	SelectedInstitute string   `json:"selected_institute,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
