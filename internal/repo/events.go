package repo

import (
	"context"
	"database/sql"
	"strings"

	"bobemploi/internal/domain"
)

const (
	defaultEventsPage  = 50
	defaultEventsBatch = 100
)

// EventFilter selects audit events. Before and After are exclusive event id
// bounds; zero means unbounded.
type EventFilter struct {
	UserID    string
	Type      string
	Before    int64
	After     int64
	Limit     int
	Ascending bool
}

func (f EventFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		clauses = append(clauses, clause)
		args = append(args, arg)
	}
	if f.UserID != "" {
		add("user_id=?", f.UserID)
	}
	if f.Type != "" {
		add("type=?", f.Type)
	}
	if f.Before > 0 {
		add("id<?", f.Before)
	}
	if f.After > 0 {
		add("id>?", f.After)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Events lists the events matching the filter.
func (r Repo) Events(ctx context.Context, f EventFilter) ([]domain.Event, error) {
	where, args := f.where()
	order := " ORDER BY id DESC"
	if f.Ascending {
		order = " ORDER BY id ASC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventsPage
	}
	q := `SELECT id,ts,type,COALESCE(user_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events` +
		where + order + ` LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, append(args, limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var (
			e       domain.Event
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.UserID, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		e.Payload = payload.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestEvents pages through events newest first. A positive cursor returns
// events older than it.
func (r Repo) LatestEvents(ctx context.Context, limit int, cursor int64, userID, evtType string) ([]domain.Event, error) {
	return r.Events(ctx, EventFilter{UserID: userID, Type: evtType, Before: cursor, Limit: limit})
}

// EventsAfter returns events newer than the cursor, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = defaultEventsBatch
	}
	return r.Events(ctx, EventFilter{After: cursor, Limit: limit, Ascending: true})
}

func (r Repo) CountEvents(ctx context.Context, userID, evtType string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE user_id=? AND type=?`, userID, evtType).Scan(&n)
	return n, err
}

func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id)
	return id, err
}
