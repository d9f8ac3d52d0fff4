package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
	"bobemploi/internal/reducer"
	"bobemploi/internal/repo"
)

const testHost = "http://bob.test"

func openTest(t *testing.T, dir string) *Workspace {
	t.Helper()
	w, err := Open(context.Background(), Options{
		Workspace: dir,
		Host:      testHost,
		Now:       func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func signIn(w *Workspace) {
	w.Store.Dispatch(reducer.UserAuthenticated{
		Async: reducer.Async{Status: reducer.Succeeded},
		Response: &domain.AuthResponse{
			AuthenticatedUser: &domain.User{UserID: "u1", Profile: domain.UserProfile{Email: "ada@example.com", Name: "Ada"}},
			AuthToken:         "tok-1",
		},
	})
}

func TestOpenRestoresSnapshotAndSession(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	w := openTest(t, dir)
	_, err := w.RequireUser()
	require.Error(t, err)

	signIn(w)
	require.NoError(t, w.SaveSession(ctx))
	w.Store.Dispatch(reducer.UserSaved{Async: reducer.Async{Status: reducer.Sending}})
	w.Store.Dispatch(reducer.UserSaved{Async: reducer.Async{Status: reducer.Failed, Err: os.ErrDeadlineExceeded}})
	require.NotEmpty(t, w.Store.GetState().App.ErrorMessage)
	require.NoError(t, w.Close())

	again := openTest(t, dir)
	st := again.Store.GetState()
	require.Equal(t, "Ada", st.User.Profile.Name)
	require.Equal(t, "tok-1", st.App.AuthToken)
	require.Empty(t, st.App.ErrorMessage)
	require.Empty(t, st.App.Fetching)
	require.Equal(t, "tok-1", again.Client.AuthToken)

	userID, err := again.RequireUser()
	require.NoError(t, err)
	require.Equal(t, "u1", userID)

	sess, err := again.Repo.GetSession(ctx, testHost)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", sess.Email)
}

func TestClearSessionForgetsSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w := openTest(t, dir)
	signIn(w)
	require.NoError(t, w.SaveSession(ctx))

	w.Engine.Logout()
	require.NoError(t, w.ClearSession(ctx))
	_, err := w.Repo.LoadSnapshot(ctx, testHost)
	require.ErrorIs(t, err, repo.ErrNotFound)
	require.NoError(t, w.Close())

	again := openTest(t, dir)
	require.Empty(t, again.Store.GetState().App.AuthToken)
	require.True(t, again.Store.GetState().User.IsEmpty())
}

func TestSaveSessionRequiresSignIn(t *testing.T) {
	w := openTest(t, t.TempDir())
	require.Error(t, w.SaveSession(context.Background()))
}

func TestOpenUsesConfiguredHost(t *testing.T) {
	dir := t.TempDir()
	cfg := config.GenerateDefault()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.yml"), []byte(cfg), 0o644))

	w, err := Open(context.Background(), Options{Workspace: dir})
	require.NoError(t, err)
	defer w.Close()
	require.Equal(t, "http://localhost:8080", w.Host)
	require.Equal(t, 10*time.Second, w.Client.Timeout)
}
