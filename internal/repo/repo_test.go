package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bobemploi/internal/db"
	"bobemploi/internal/domain"
	"bobemploi/internal/events"
	"bobemploi/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	return Repo{DB: conn}
}

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	u := &domain.User{UserID: "u1", Profile: domain.UserProfile{Email: "Ada@Example.com", Name: "Ada"}}
	require.NoError(t, r.InsertUser(ctx, nil, UserRecord{ID: "u1", Email: "Ada@Example.com", PasswordHash: "h1", User: u, CreatedAt: now, UpdatedAt: now}))

	rec, err := r.GetUserByEmail(ctx, " ada@example.com ")
	require.NoError(t, err)
	require.Equal(t, "u1", rec.ID)
	require.Equal(t, "h1", rec.PasswordHash)
	require.Equal(t, "Ada", rec.User.Profile.Name)
	require.True(t, rec.CreatedAt.Equal(now))

	err = r.InsertUser(ctx, nil, UserRecord{ID: "u2", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, ErrEmailTaken)

	u.Projects = []domain.Project{{ProjectID: "p1", Title: "Boulanger"}}
	require.NoError(t, r.UpdateUser(ctx, nil, u, now.Add(time.Hour)))
	rec, err = r.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rec.User.Projects, 1)
	require.True(t, rec.UpdatedAt.Equal(now.Add(time.Hour)))

	require.NoError(t, r.SetPasswordHash(ctx, nil, "u1", "h2", now))
	rec, err = r.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "h2", rec.PasswordHash)

	n, err := r.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, r.DeleteUser(ctx, nil, "u1"))
	_, err = r.GetUser(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.DeleteUser(ctx, nil, "u1"), ErrNotFound)
	require.ErrorIs(t, r.UpdateUser(ctx, nil, u, now), ErrNotFound)
}

func TestUserInsertInTransaction(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.InsertUser(ctx, tx, UserRecord{ID: "u1", CreatedAt: now, UpdatedAt: now}))
	_, err = r.GetUserTx(ctx, tx, "u1")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = r.GetUser(ctx, "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResetTokens(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	require.NoError(t, r.InsertUser(ctx, nil, UserRecord{ID: "u1", Email: "a@b.c", CreatedAt: now, UpdatedAt: now}))

	hash := HashResetToken(" secret ")
	require.Equal(t, hash, HashResetToken("secret"))
	require.NoError(t, r.InsertResetToken(ctx, nil, ResetToken{TokenHash: hash, UserID: "u1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

	tok, err := r.GetResetToken(ctx, nil, hash)
	require.NoError(t, err)
	require.Equal(t, "u1", tok.UserID)
	require.True(t, tok.ExpiresAt.Equal(now.Add(time.Hour)))

	require.NoError(t, r.DeleteResetTokens(ctx, nil, "u1"))
	_, err = r.GetResetToken(ctx, nil, hash)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFeedbackAndAppUses(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	require.NoError(t, r.InsertUser(ctx, nil, UserRecord{ID: "u1", CreatedAt: now, UpdatedAt: now}))

	require.Error(t, r.InsertFeedback(ctx, nil, domain.Feedback{UserID: "u1"}))
	require.NoError(t, r.InsertFeedback(ctx, nil, domain.Feedback{UserID: "u1", ActionID: "a1", Source: "ACTION_FEEDBACK", Feedback: "useful", CreatedAt: now}))
	require.NoError(t, r.InsertFeedback(ctx, nil, domain.Feedback{Feedback: "anonymous", CreatedAt: now}))

	fbs, err := r.ListFeedback(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, fbs, 1)
	require.Equal(t, "a1", fbs[0].ActionID)
	require.Equal(t, "useful", fbs[0].Feedback)

	anon, err := r.ListFeedback(ctx, "")
	require.NoError(t, err)
	require.Len(t, anon, 1)

	require.NoError(t, r.InsertAppUse(ctx, nil, "u1", now))
	require.NoError(t, r.InsertAppUse(ctx, nil, "u1", now.Add(time.Minute)))
	n, err := r.CountAppUses(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestDashboardExports(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	exp := domain.DashboardExport{
		DashboardExportID: "e1",
		UserID:            "u1",
		Projects:          []domain.Project{{ProjectID: "p1", Title: "Boulanger"}},
		CreatedAt:         now,
	}
	require.NoError(t, r.InsertDashboardExport(ctx, nil, exp))
	got, err := r.GetDashboardExport(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, "p1", got.Projects[0].ProjectID)
	require.True(t, got.CreatedAt.Equal(now))

	_, err = r.GetDashboardExport(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionsAndSnapshots(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.GetSession(ctx, "http://localhost:8080")
	require.ErrorIs(t, err, ErrNotFound)
	require.Error(t, r.UpsertSession(ctx, Session{Host: "h"}))

	require.NoError(t, r.UpsertSession(ctx, Session{Host: "h", UserID: "u1", Email: "a@b.c", AuthToken: "t1", UpdatedAt: now}))
	require.NoError(t, r.UpsertSession(ctx, Session{Host: "h", UserID: "u1", AuthToken: "t2", UpdatedAt: now}))
	s, err := r.GetSession(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, "t2", s.AuthToken)
	require.Empty(t, s.Email)

	require.NoError(t, r.SaveSnapshot(ctx, "h", []byte(`{"a":1}`), now))
	require.NoError(t, r.SaveSnapshot(ctx, "h", []byte(`{"a":2}`), now))
	data, err := r.LoadSnapshot(ctx, "h")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":2}`, string(data))

	require.NoError(t, r.DeleteSession(ctx, "h"))
	_, err = r.GetSession(ctx, "h")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.LoadSnapshot(ctx, "h")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEventsLog(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	w := events.Writer{DB: r.DB, Now: func() time.Time { return now }}

	require.NoError(t, w.Append(ctx, nil, events.UserCreated, "u1", "user", "u1", "u1", nil))
	require.NoError(t, withTx(ctx, r.DB, func(tx *sql.Tx) error {
		return w.Append(ctx, tx, events.AppUsed, "u1", "user", "u1", "u1", events.EventPayload{"n": 1})
	}))
	require.NoError(t, w.Append(ctx, nil, events.FeedbackSent, "", "feedback", "", "anonymous", nil))

	all, err := r.LatestEvents(ctx, 10, 0, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, events.FeedbackSent, all[0].Type)

	mine, err := r.LatestEvents(ctx, 10, 0, "u1", "")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.JSONEq(t, `{"n":1}`, mine[0].Payload)

	older, err := r.LatestEvents(ctx, 10, mine[0].ID, "u1", "")
	require.NoError(t, err)
	require.Len(t, older, 1)
	require.Equal(t, events.UserCreated, older[0].Type)

	n, err := r.CountEvents(ctx, "u1", events.AppUsed)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	latest, err := r.LatestEventID(ctx)
	require.NoError(t, err)
	require.Equal(t, all[0].ID, latest)

	after, err := r.EventsAfter(ctx, 10, older[0].ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.Equal(t, events.AppUsed, after[0].Type)
}

func withTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
