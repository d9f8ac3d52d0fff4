package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"bobemploi/internal/config"
	"bobemploi/internal/db"
	"bobemploi/internal/domain"
	"bobemploi/internal/engine/auth"
	"bobemploi/internal/events"
	"bobemploi/internal/metrics"
	"bobemploi/internal/migrate"
	"bobemploi/internal/repo"
	bobsdk "bobemploi/sdk/go"
)

var testNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type testServer struct {
	URL  string
	Repo repo.Repo
	cfg  Config
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(context.Background(), conn))

	settings := config.Default()
	for _, m := range mutate {
		m(settings)
	}
	reg := prometheus.NewRegistry()
	cfg := Config{
		DB:       conn,
		Settings: settings,
		Metrics:  metrics.MustNew(reg),
		Gatherer: reg,
		Now:      func() time.Time { return testNow },
	}
	handler, err := New(cfg)
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	})
	return &testServer{URL: "http://" + ln.Addr().String(), Repo: repo.Repo{DB: conn}, cfg: cfg}
}

func (s *testServer) client() *bobsdk.Client {
	return bobsdk.New(s.URL)
}

// register creates an account and returns a client signed in as it.
func (s *testServer) register(t *testing.T, email, password string) (*bobsdk.Client, *domain.User) {
	t.Helper()
	c := s.client()
	resp, err := c.Authenticate(context.Background(), domain.AuthRequest{
		Email:          email,
		HashedPassword: auth.HashPassword(email, password),
		FirstName:      "Ada",
	})
	require.NoError(t, err)
	require.True(t, resp.IsNewUser)
	require.NotEmpty(t, resp.AuthToken)
	return c.WithAuthToken(resp.AuthToken), resp.AuthenticatedUser
}

func apiStatus(t *testing.T, err error) (int, string) {
	t.Helper()
	var apiErr *bobsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr.StatusCode, apiErr.Message
}

func baker() domain.Project {
	return domain.Project{
		Title:     "Boulanger à Lyon",
		TargetJob: &domain.Job{CodeOGR: "12006", Name: "Boulanger", JobGroup: domain.JobGroup{RomeID: "D1102"}},
		City:      &domain.City{Name: "Lyon"},
	}
}

func TestAuthenticationFlow(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	c := s.client()

	salted, err := c.Authenticate(ctx, domain.AuthRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	require.True(t, salted.IsNewUser)
	require.NotEmpty(t, salted.HashSalt)

	_, user := s.register(t, "Ada@Example.com", "secret")
	require.Equal(t, "Ada", user.Profile.Name)
	require.Equal(t, testNow, user.RegisteredAt)

	_, err = c.Authenticate(ctx, domain.AuthRequest{Email: "ada@example.com", HashedPassword: "x"})
	code, _ := apiStatus(t, err)
	require.Equal(t, http.StatusConflict, code)

	salted, err = c.Authenticate(ctx, domain.AuthRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	require.False(t, salted.IsNewUser)

	login, err := c.Authenticate(ctx, domain.AuthRequest{
		Email:          "ada@example.com",
		HashSalt:       salted.HashSalt,
		HashedPassword: auth.SaltedHash(salted.HashSalt, auth.HashPassword("ada@example.com", "secret")),
	})
	require.NoError(t, err)
	require.Equal(t, user.UserID, login.AuthenticatedUser.UserID)
	require.False(t, login.IsNewUser)

	_, err = c.Authenticate(ctx, domain.AuthRequest{
		Email:          "ada@example.com",
		HashSalt:       salted.HashSalt,
		HashedPassword: auth.SaltedHash(salted.HashSalt, auth.HashPassword("ada@example.com", "wrong")),
	})
	code, msg := apiStatus(t, err)
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "wrong email or password", msg)

	_, err = c.Authenticate(ctx, domain.AuthRequest{Email: "ada@example.com", HashSalt: "1.forged", HashedPassword: "x"})
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusForbidden, code)

	resumed, err := c.Authenticate(ctx, domain.AuthRequest{UserID: user.UserID, AuthToken: login.AuthToken})
	require.NoError(t, err)
	require.Equal(t, user.UserID, resumed.AuthenticatedUser.UserID)

	_, err = c.Authenticate(ctx, domain.AuthRequest{UserID: "someone-else", AuthToken: login.AuthToken})
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusForbidden, code)
}

func TestSaveUserAssignsProjectIDsAndPlan(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	c, user := s.register(t, "ada@example.com", "secret")

	created := testNow.Add(-time.Minute)
	p := baker()
	p.CreatedAt = created
	user.Projects = []domain.Project{p, {Title: "draft", IsIncomplete: true}}
	user.FeaturesEnabled.Advisor = true

	saved, err := c.SaveUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, saved.Projects, 2)
	first := saved.Projects[0]
	require.NotEmpty(t, first.ProjectID)
	require.Equal(t, created, first.CreatedAt)
	require.Equal(t, domain.ProjectCurrent, first.Status)
	require.Len(t, first.Actions, 3)
	require.Len(t, first.Advices, 5)
	require.Equal(t, testNow, first.ActionsGeneratedAt)
	require.NotEmpty(t, saved.Projects[1].ProjectID)
	require.Empty(t, saved.Projects[1].Actions)
	require.False(t, saved.FeaturesEnabled.Advisor, "feature flags are owned by the server")

	again, err := c.SaveUser(ctx, saved)
	require.NoError(t, err)
	require.Equal(t, first.Actions, again.Projects[0].Actions)

	fetched, err := c.GetUser(ctx, user.UserID)
	require.NoError(t, err)
	require.Equal(t, first.ProjectID, fetched.Projects[0].ProjectID)
	require.Equal(t, domain.AdviceImproveSuccessRate, fetched.Projects[0].Advices[0].Kind())

	_, err = s.client().GetUser(ctx, user.UserID)
	code, _ := apiStatus(t, err)
	require.Equal(t, http.StatusUnauthorized, code)

	other, _ := s.register(t, "bob@example.com", "secret")
	_, err = other.GetUser(ctx, user.UserID)
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusForbidden, code)

	_, err = s.client().WithAuthToken("garbage").GetUser(ctx, user.UserID)
	code, msg := apiStatus(t, err)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "invalid credentials", msg)
}

func TestRefreshActionPlanHonoursDeclines(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	c, user := s.register(t, "ada@example.com", "secret")
	user.Projects = []domain.Project{baker()}
	saved, err := c.SaveUser(ctx, user)
	require.NoError(t, err)

	p := saved.Projects[0]
	declined := p.Actions[0]
	declined.Status = domain.ActionDeclined
	declined.StoppedAt = testNow
	declined.DeclineReason = "done already"
	p.PastActions = []domain.Action{declined}
	p.Actions = p.Actions[1:]
	saved.Projects[0] = p

	refreshed, err := c.RefreshActionPlan(ctx, saved)
	require.NoError(t, err)
	actions := refreshed.Projects[0].Actions
	require.Len(t, actions, 3)
	for _, a := range actions {
		require.NotEqual(t, declined.ActionTemplateID, a.ActionTemplateID)
	}

	n, err := s.Repo.CountEvents(ctx, user.UserID, events.PlanRefreshed)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestUserScopedResources(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	c, user := s.register(t, "ada@example.com", "secret")
	user.Projects = []domain.Project{baker()}
	saved, err := c.SaveUser(ctx, user)
	require.NoError(t, err)
	projectID := saved.Projects[0].ProjectID

	tips, err := c.AdviceTips(ctx, user.UserID, projectID, "spontaneous-application")
	require.NoError(t, err)
	require.Equal(t, "call-employer", tips[0].ActionTemplateID)

	_, err = c.AdviceTips(ctx, user.UserID, "missing", "spontaneous-application")
	code, _ := apiStatus(t, err)
	require.Equal(t, http.StatusNotFound, code)

	boards, err := c.JobBoards(ctx, user.UserID, projectID)
	require.NoError(t, err)
	require.Len(t, boards, 2)

	reqs, err := c.ProjectRequirements(ctx, saved.Projects[0])
	require.NoError(t, err)
	require.Contains(t, reqs.Diplomas, "CAP Boulanger")

	require.NoError(t, c.SaveLikes(ctx, domain.LikesRequest{UserID: user.UserID, Likes: map[string]int{"dark-mode": 1, "emails": -1}}))
	require.NoError(t, c.SaveLikes(ctx, domain.LikesRequest{UserID: user.UserID, Likes: map[string]int{"emails": 0}}))

	used, err := c.RecordAppUse(ctx, user.UserID)
	require.NoError(t, err)
	require.Equal(t, testNow, used.LastAppUseAt)
	require.Equal(t, map[string]int{"dark-mode": 1}, used.Likes)
	uses, err := s.Repo.CountAppUses(ctx, user.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, uses)

	advisor, err := c.MigrateToAdvisor(ctx, user.UserID)
	require.NoError(t, err)
	require.True(t, advisor.FeaturesEnabled.Advisor)

	exp, err := c.CreateDashboardExport(ctx, user.UserID)
	require.NoError(t, err)
	got, err := s.client().DashboardExport(ctx, exp.DashboardExportID)
	require.NoError(t, err)
	require.Equal(t, projectID, got.Projects[0].ProjectID)

	page, err := c.Events(ctx, user.UserID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotZero(t, page.NextCursor)
	older, err := c.Events(ctx, user.UserID, 50, page.NextCursor)
	require.NoError(t, err)
	require.Less(t, older.Items[0].ID, page.Items[1].ID)

	deleted, err := c.DeleteUser(ctx, &domain.User{UserID: user.UserID})
	require.NoError(t, err)
	require.Equal(t, user.UserID, deleted.UserID)
	_, err = s.Repo.GetUser(ctx, user.UserID)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestPublicResources(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	c := s.client()

	jg, err := c.Job(ctx, "G1602")
	require.NoError(t, err)
	require.Equal(t, "Personnel de cuisine", jg.Name)

	_, err = c.Job(ctx, "Z9999")
	code, msg := apiStatus(t, err)
	require.Equal(t, http.StatusNotFound, code)
	require.Contains(t, msg, "unknown job group")

	groups, err := c.ExploreJobs(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	stats, err := c.ExploreJobStats(ctx)
	require.NoError(t, err)
	require.Equal(t, "G1602", stats[0].RomeID)

	require.NoError(t, c.SendFeedback(ctx, domain.Feedback{Feedback: "Super appli", Source: "GENERAL"}))
	err = c.SendFeedback(ctx, domain.Feedback{})
	code, msg = apiStatus(t, err)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "feedback is required", msg)
	err = c.SendFeedback(ctx, domain.Feedback{UserID: "u1", Feedback: "hi"})
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusUnauthorized, code)

	anon, err := s.Repo.ListFeedback(ctx, "")
	require.NoError(t, err)
	require.Len(t, anon, 1)

	_, err = c.ProjectRequirements(ctx, domain.Project{})
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusBadRequest, code)

	_, err = c.DashboardExport(ctx, "missing")
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusNotFound, code)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	_, user := s.register(t, "ada@example.com", "old")
	c := s.client()

	_, err := c.ResetPassword(ctx, domain.ResetPasswordRequest{Email: "nobody@example.com"})
	code, _ := apiStatus(t, err)
	require.Equal(t, http.StatusNotFound, code)

	_, err = c.ResetPassword(ctx, domain.ResetPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	evts, err := s.Repo.LatestEvents(ctx, 1, 0, user.UserID, events.PasswordResetAsked)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	var payload struct {
		ResetToken string `json:"resetToken"`
	}
	require.NoError(t, json.Unmarshal([]byte(evts[0].Payload), &payload))
	require.NotEmpty(t, payload.ResetToken)

	_, err = c.ResetPassword(ctx, domain.ResetPasswordRequest{Email: "ada@example.com", AuthToken: "bogus", HashedPassword: "x"})
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusUnauthorized, code)

	resp, err := c.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email:          "ada@example.com",
		AuthToken:      payload.ResetToken,
		HashedPassword: auth.HashPassword("ada@example.com", "new"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AuthToken)

	salted, err := c.Authenticate(ctx, domain.AuthRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = c.Authenticate(ctx, domain.AuthRequest{
		Email:          "ada@example.com",
		HashSalt:       salted.HashSalt,
		HashedPassword: auth.SaltedHash(salted.HashSalt, auth.HashPassword("ada@example.com", "new")),
	})
	require.NoError(t, err)

	_, err = c.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email:          "ada@example.com",
		AuthToken:      payload.ResetToken,
		HashedPassword: auth.HashPassword("ada@example.com", "again"),
	})
	code, _ = apiStatus(t, err)
	require.Equal(t, http.StatusUnauthorized, code, "reset tokens are single use")
}

func TestUnknownRouteServesHTMLPage(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	res, err := http.Get(s.URL + "/api/nowhere")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.True(t, strings.HasPrefix(res.Header.Get("Content-Type"), "text/html"))

	_, err = bobsdk.New(s.URL+"/v9").ExploreJobs(ctx)
	code, msg := apiStatus(t, err)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "Not Found", msg)
}

func TestHealthMetricsAndOpenAPI(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/health", "/api/openapi.json"} {
		res, err := http.Get(s.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode, path)
	}

	res, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "bob_http_requests_total")
	require.Contains(t, string(body), `route="/api/health"`)
}

func TestWebhookDispatcherDeliversNewEvents(t *testing.T) {
	ctx := context.Background()
	var (
		mu         sync.Mutex
		received   []eventDelivery
		secrets    []string
		signatures []string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt eventDelivery
		_ = json.NewDecoder(r.Body).Decode(&evt)
		mu.Lock()
		received = append(received, evt)
		secrets = append(secrets, r.Header.Get("X-Bob-Secret"))
		signatures = append(signatures, r.Header.Get("X-Bob-Signature"))
		mu.Unlock()
	}))
	defer hook.Close()

	s := newTestServer(t, func(c *config.Config) {
		c.Server.Webhooks = []config.WebhookConfig{{
			URL:    hook.URL,
			Events: []string{events.PasswordResetAsked},
			Secret: "s3cret",
		}}
	})
	s.register(t, "ada@example.com", "secret")

	d := NewWebhookDispatcher(s.cfg)
	require.NotNil(t, d)
	d.DispatchOnce(ctx)
	require.Empty(t, received, "events logged before the first run are skipped")

	_, err := s.client().ResetPassword(ctx, domain.ResetPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = s.client().ExploreJobs(ctx)
	require.NoError(t, err)
	d.DispatchOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Equal(t, events.PasswordResetAsked, received[0].Type)
	require.Contains(t, string(received[0].Payload), "resetToken")
	require.Equal(t, "s3cret", secrets[0])
	require.True(t, strings.HasPrefix(signatures[0], "sha256="))

	require.Nil(t, NewWebhookDispatcher(Config{Settings: config.Default()}))
}
