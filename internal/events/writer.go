package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types written by the backend.
const (
	UserCreated        = "user.created"
	UserSaved          = "user.saved"
	UserDeleted        = "user.deleted"
	UserAuthenticated  = "user.authenticated"
	UserMigrated       = "user.migrated_to_advisor"
	PasswordReset      = "user.password_reset"
	PasswordResetAsked = "user.password_reset_requested"
	PlanRefreshed      = "plan.refreshed"
	LikesSaved         = "likes.saved"
	FeedbackSent       = "feedback.sent"
	AppUsed            = "app.used"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes an event inside tx, or directly on the database when tx is nil.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, userID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	const query = `INSERT INTO events(ts,type,user_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`
	args := []any{ts, evtType, nullable(userID), entityKind, nullable(entityID), actorID, string(data)}
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = w.DB.ExecContext(ctx, query, args...)
	}
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
