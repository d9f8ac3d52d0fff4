package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bobemploi/internal/config"
	"bobemploi/internal/db"
	"bobemploi/internal/engine"
	"bobemploi/internal/logging"
	"bobemploi/internal/metrics"
	"bobemploi/internal/migrate"
	"bobemploi/internal/reducer"
	"bobemploi/internal/repo"
	"bobemploi/internal/store"
	bobsdk "bobemploi/sdk/go"
)

// Options select the workspace and backend a command works against.
type Options struct {
	Workspace string
	Host      string // overrides client.base_url
	LogLevel  string // overrides logging.level
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Workspace is everything a CLI command needs: config, database, and an
// engine whose store was restored from the last snapshot of the host.
type Workspace struct {
	Dir    string
	Host   string
	Config *config.Config
	DB     *sql.DB
	Repo   repo.Repo
	Client *bobsdk.Client
	Store  *store.Store
	Engine *engine.Engine
	Logger *slog.Logger

	now func() time.Time
}

// Open resolves the config and the session of the host, seeding defaults
// when the workspace has none.
func Open(ctx context.Context, opts Options) (*Workspace, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	host := opts.Host
	if host == "" {
		host = cfg.Client.BaseURL
	}
	if host == "" {
		return nil, errors.New("backend host not set; use --host or client.base_url")
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(cfg.Logging)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	w := &Workspace{
		Dir:    opts.Workspace,
		Host:   host,
		Config: cfg,
		DB:     conn,
		Repo:   repo.Repo{DB: conn},
		Logger: logger,
		now:    now,
	}

	initial, err := w.restoreState(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	w.Client = bobsdk.New(host)
	w.Client.Timeout = cfg.Client.Timeout
	w.Client.SetAuthToken(initial.App.AuthToken)
	w.Store = store.New(reducer.Root, initial, store.LogHook(logger), opts.Metrics.StoreHook(), w.snapshotHook())
	w.Engine = engine.New(w.Store, w.Client, cfg, logger)
	w.Engine.Now = now
	return w, nil
}

// restoreState loads the last snapshot of the host. Requests in flight and
// the error banner of the previous run are dropped; the session token wins
// over the snapshot's.
func (w *Workspace) restoreState(ctx context.Context) (*reducer.State, error) {
	st := reducer.Initial()
	data, err := w.Repo.LoadSnapshot(ctx, w.Host)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		var snap reducer.State
		if err := json.Unmarshal(data, &snap); err != nil {
			w.Logger.Warn("ignoring unreadable state snapshot", "host", w.Host, "error", err)
			break
		}
		if snap.User != nil {
			st.User = snap.User
		}
		if snap.App != nil {
			st.App = snap.App
		}
	}
	app := *st.App
	app.Fetching = nil
	app.ErrorMessage = ""
	sess, err := w.Repo.GetSession(ctx, w.Host)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		app.AuthToken = sess.AuthToken
		if st.User.UserID == "" {
			u := *st.User
			u.UserID = sess.UserID
			st.User = &u
		}
	}
	st.App = &app
	return st, nil
}

// snapshotHook writes the state back after every change.
func (w *Workspace) snapshotHook() store.Hook {
	return func(in reducer.Intent, prev, next *reducer.State) {
		if prev == next {
			return
		}
		if err := w.saveSnapshot(context.Background(), next); err != nil {
			w.Logger.Warn("saving state snapshot failed", "intent", in.IntentType(), "error", err)
		}
	}
}

func (w *Workspace) saveSnapshot(ctx context.Context, st *reducer.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return w.Repo.SaveSnapshot(ctx, w.Host, data, w.now().UTC())
}

// SaveSession records the signed in user and token of the host.
func (w *Workspace) SaveSession(ctx context.Context) error {
	st := w.Store.GetState()
	if st.App == nil || st.App.AuthToken == "" || st.User == nil || st.User.UserID == "" {
		return errors.New("not signed in")
	}
	return w.Repo.UpsertSession(ctx, repo.Session{
		Host:      w.Host,
		UserID:    st.User.UserID,
		Email:     st.User.Profile.Email,
		AuthToken: st.App.AuthToken,
		UpdatedAt: w.now().UTC(),
	})
}

// ClearSession forgets the session and the snapshot of the host.
func (w *Workspace) ClearSession(ctx context.Context) error {
	return w.Repo.DeleteSession(ctx, w.Host)
}

// RequireUser returns the signed in user id.
func (w *Workspace) RequireUser() (string, error) {
	st := w.Store.GetState()
	if st.User == nil || st.User.UserID == "" || st.App == nil || st.App.AuthToken == "" {
		return "", fmt.Errorf("not signed in to %s; run bob login", w.Host)
	}
	return st.User.UserID, nil
}

func (w *Workspace) Close() error {
	return w.DB.Close()
}
