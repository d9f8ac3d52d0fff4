package domain

// Event is an entry of the backend audit log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	UserID     string `json:"userId,omitempty"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId,omitempty"`
	ActorID    string `json:"actorId"`
	Payload    string `json:"payload,omitempty"`
}

// EventsPage is a page of the audit log, newest first. NextCursor is set
// when older events remain.
type EventsPage struct {
	Items      []Event `json:"items"`
	NextCursor int64   `json:"nextCursor,omitempty"`
}
