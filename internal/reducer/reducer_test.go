package reducer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bobemploi/internal/domain"
	"bobemploi/internal/reducer"
	"bobemploi/internal/selector"
)

type unknownIntent struct{}

func (unknownIntent) IntentType() string { return "UNKNOWN" }

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func userWithProject(actions ...domain.Action) *domain.User {
	return &domain.User{
		UserID: "u1",
		Projects: []domain.Project{{
			ProjectID: "p1",
			Title:     "Boulanger",
			Status:    domain.ProjectCurrent,
			Actions:   actions,
			Advices: []domain.Advice{{
				AdviceID: "job-boards",
				Status:   domain.AdviceRecommended,
				Data:     domain.JobBoardsAdviceData{JobBoardTitle: "Indeed"},
			}},
		}},
	}
}

func action(id string, status domain.ActionStatus, created time.Time) domain.Action {
	return domain.Action{ActionID: id, ActionTemplateID: "tpl-" + id, Title: id, Status: status, CreatedAt: created}
}

func TestUnknownIntentKeepsReference(t *testing.T) {
	states := []*reducer.State{
		reducer.Initial(),
		{User: userWithProject(action("a1", domain.ActionUnread, t0)), App: &reducer.AppState{AuthToken: "tok"}},
		{User: nil, App: nil},
	}
	for _, s := range states {
		require.Same(t, s, reducer.Root(s, unknownIntent{}))
	}

	u := userWithProject()
	require.Same(t, u, reducer.User(u, unknownIntent{}))
	var nilUser *domain.User
	require.Nil(t, reducer.User(nilUser, unknownIntent{}))
}

func TestNoOpIntentsKeepReference(t *testing.T) {
	s := &reducer.State{User: userWithProject(action("a1", domain.ActionCurrent, t0)), App: &reducer.AppState{}}
	noops := []reducer.Intent{
		reducer.ReadAction{ProjectID: "missing", ActionID: "a1"},
		reducer.ReadAction{ProjectID: "p1", ActionID: "a1"},
		reducer.StickAction{ProjectID: "p1", ActionID: "nope", Now: t0},
		reducer.DeclineAction{ProjectID: "p1", ActionID: "a1", Status: domain.ActionDeclined, Now: t0},
		reducer.DeclineAction{ProjectID: "p1", ActionID: "a1", Status: domain.ActionDone, Reason: "x", Now: t0},
		reducer.SetProjectStatus{ProjectID: "p1", Status: domain.ProjectCurrent},
		reducer.SetProjectStatus{ProjectID: "p1", Status: domain.ProjectDeleted},
		reducer.LikeFeature{Feature: "sticky", Score: 0},
		reducer.HideErrorMessage{},
		reducer.HideToast{},
		reducer.UserFetched{Async: reducer.Async{Status: ""}, User: &domain.User{UserID: "other"}},
	}
	for _, in := range noops {
		require.Same(t, s, reducer.Root(s, in), in.IntentType())
	}
}

func TestCreateProject(t *testing.T) {
	p := domain.Project{Title: "Cuisinier", IsIncomplete: true}

	u := reducer.User(&domain.User{}, reducer.CreateProject{Project: p})
	require.Equal(t, []domain.Project{p}, u.Projects)

	u = reducer.User(nil, reducer.CreateProject{Project: p})
	require.Equal(t, []domain.Project{p}, u.Projects)

	existing := userWithProject()
	got := reducer.User(existing, reducer.CreateProject{Project: domain.Project{Title: "Second"}})
	require.Same(t, existing, got)
	require.Len(t, got.Projects, 1)
	require.Equal(t, "Boulanger", got.Projects[0].Title)
}

func TestEditFirstProject(t *testing.T) {
	t.Run("complete project is immutable", func(t *testing.T) {
		u := userWithProject()
		require.Same(t, u, reducer.User(u, reducer.EditFirstProject{Project: domain.Project{Title: "new"}}))
	})

	t.Run("incomplete project is fully replaced", func(t *testing.T) {
		u := &domain.User{Projects: []domain.Project{{
			ProjectID:    "p1",
			IsIncomplete: true,
			TargetJob:    &domain.Job{Name: "job"},
		}}}
		got := reducer.User(u, reducer.EditFirstProject{Project: domain.Project{Title: "new"}})
		require.Len(t, got.Projects, 1)
		p := got.Projects[0]
		require.Equal(t, "new", p.Title)
		require.Nil(t, p.TargetJob)
		require.True(t, p.IsIncomplete)
		require.Equal(t, "p1", p.ProjectID)
		require.NotNil(t, u.Projects[0].TargetJob, "input must not be mutated")
	})

	t.Run("no project creates an incomplete one", func(t *testing.T) {
		got := reducer.User(&domain.User{}, reducer.EditFirstProject{Project: domain.Project{Title: "new"}})
		require.Equal(t, []domain.Project{{Title: "new", IsIncomplete: true}}, got.Projects)
	})
}

func TestFinishAndDeleteProject(t *testing.T) {
	u := reducer.User(nil, reducer.EditFirstProject{Project: domain.Project{ProjectID: "p9", Title: "new"}})
	u = reducer.User(u, reducer.FinishProjectCreation{Now: t0})
	p := u.Projects[0]
	require.False(t, p.IsIncomplete)
	require.Equal(t, domain.ProjectCurrent, p.Status)
	require.Equal(t, domain.ProjectManuallyCreated, p.Source)
	require.Equal(t, t0, p.CreatedAt)

	before := u
	u = reducer.User(u, reducer.DeleteProject{ProjectID: "p9"})
	require.Empty(t, u.Projects)
	require.Len(t, u.DeletedProjects, 1)
	require.Equal(t, domain.ProjectDeleted, u.DeletedProjects[0].Status)
	require.Len(t, before.Projects, 1)
}

func TestActionLifecycle(t *testing.T) {
	u := userWithProject(
		action("a1", domain.ActionUnread, t0),
		action("a2", domain.ActionUnread, t0.Add(time.Hour)),
		action("a3", domain.ActionUnread, t0.Add(2*time.Hour)),
	)
	orig := u

	u = reducer.User(u, reducer.ReadAction{ProjectID: "p1", ActionID: "a2"})
	require.Equal(t, domain.ActionCurrent, u.Projects[0].Actions[1].Status)
	require.Equal(t, domain.ActionUnread, orig.Projects[0].Actions[1].Status)

	// Finishing an unread action is not a valid transition.
	require.Same(t, u, reducer.User(u, reducer.FinishAction{ProjectID: "p1", ActionID: "a1", Now: t0}))

	u = reducer.User(u, reducer.FinishAction{
		ProjectID: "p1", ActionID: "a2", Now: t0.Add(5 * time.Hour),
		Feedback: domain.ActionFeedback{Usefulness: 4, Text: "great"},
	})
	p := u.Projects[0]
	require.Len(t, p.Actions, 2)
	require.Len(t, p.PastActions, 1)
	require.Equal(t, domain.ActionDone, p.PastActions[0].Status)
	require.Equal(t, "great", p.PastActions[0].Feedback.Text)

	u = reducer.User(u, reducer.ReadAction{ProjectID: "p1", ActionID: "a1"})
	u = reducer.User(u, reducer.DeclineAction{
		ProjectID: "p1", ActionID: "a1", Status: domain.ActionDeclined, Reason: "not for me", Now: t0.Add(3 * time.Hour),
	})
	p = u.Projects[0]
	require.Equal(t, []string{"a1", "a2"}, ids(p.PastActions), "past actions sorted by stop time")
	require.Equal(t, "not for me", p.PastActions[0].DeclineReason)

	require.Same(t, u, reducer.User(u, reducer.ReadAction{ProjectID: "p1", ActionID: "a1"}), "declined is terminal")
}

func TestStickyAction(t *testing.T) {
	u := userWithProject(action("a1", domain.ActionCurrent, t0))
	steps := []domain.StickyActionStep{{StepID: "s1", Title: "call"}, {StepID: "s2", Title: "write"}}
	u = reducer.User(u, reducer.StickAction{ProjectID: "p1", ActionID: "a1", Steps: steps, Now: t0})
	p := u.Projects[0]
	require.Empty(t, p.Actions)
	require.Len(t, p.StickyActions, 1)
	require.Equal(t, domain.ActionStuck, p.StickyActions[0].Status)
	require.Equal(t, t0, p.StickyActions[0].StuckAt)

	u = reducer.User(u, reducer.FinishStickyActionStep{ProjectID: "p1", ActionID: "a1", StepID: "s1", Text: "done", Now: t0})
	require.True(t, u.Projects[0].StickyActions[0].Steps[0].IsDone)
	require.False(t, steps[0].IsDone, "template steps must not be mutated")

	again := reducer.User(u, reducer.FinishStickyActionStep{ProjectID: "p1", ActionID: "a1", StepID: "s1", Now: t0})
	require.Same(t, u, again)

	u = reducer.User(u, reducer.FinishStickyActionStep{ProjectID: "p1", ActionID: "a1", StepID: "s2", Now: t0.Add(time.Hour)})
	p = u.Projects[0]
	require.Empty(t, p.StickyActions)
	require.Len(t, p.PastActions, 1)
	require.Equal(t, domain.ActionStickyDone, p.PastActions[0].Status)
	require.Equal(t, t0.Add(time.Hour), p.PastActions[0].StoppedAt)
}

func TestSaveActionIsIdempotent(t *testing.T) {
	tip := domain.Action{ActionTemplateID: "tip-cv", Title: "Polish your CV"}
	in := reducer.SaveAction{ProjectID: "p1", Action: tip, Now: t0}

	once := reducer.User(userWithProject(), in)
	twice := reducer.User(once, in)
	require.Same(t, once, twice)
	require.Len(t, twice.Projects[0].Actions, 1)
	saved := twice.Projects[0].Actions[0]
	require.Equal(t, "tip-cv", saved.ActionID)
	require.Equal(t, domain.ActionSaved, saved.Status)
	require.Equal(t, t0, saved.CreatedAt)
}

func TestSaveActionRevivesPastAction(t *testing.T) {
	u := userWithProject(action("a1", domain.ActionCurrent, t0))
	u = reducer.User(u, reducer.FinishAction{ProjectID: "p1", ActionID: "a1", Now: t0})
	u = reducer.User(u, reducer.SaveAction{ProjectID: "p1", Action: domain.Action{ActionID: "a1"}, Now: t0})
	p := u.Projects[0]
	require.Empty(t, p.PastActions)
	require.Len(t, p.Actions, 1)
	require.Equal(t, domain.ActionSaved, p.Actions[0].Status)
	require.Equal(t, "a1", p.Actions[0].Title)
}

func TestAdviceAndLikes(t *testing.T) {
	u := userWithProject()
	u = reducer.User(u, reducer.AdviceWasRead{ProjectID: "p1", AdviceID: "job-boards"})
	require.Equal(t, domain.AdviceRead, u.Projects[0].Advices[0].Status)
	require.Equal(t, domain.AdviceJobBoards, u.Projects[0].Advices[0].Kind())
	require.Same(t, u, reducer.User(u, reducer.AdviceWasRead{ProjectID: "p1", AdviceID: "job-boards"}))

	u = reducer.User(u, reducer.RateAdvice{ProjectID: "p1", AdviceID: "job-boards", NumStars: 9})
	require.Equal(t, 5, u.Projects[0].Advices[0].NumStars)

	u = reducer.User(u, reducer.LikeFeature{Feature: "stickyActions", Score: 1})
	require.Equal(t, map[string]int{"stickyActions": 1}, u.Likes)
	u = reducer.User(u, reducer.LikeFeature{Feature: "stickyActions", Score: 0})
	require.Empty(t, u.Likes)

	u = reducer.User(u, reducer.SetUserProfile{Profile: domain.UserProfile{Name: "Ana"}})
	require.Equal(t, "Ana", u.Profile.Name)
	require.Same(t, u, reducer.User(u, reducer.SetUserProfile{Profile: domain.UserProfile{Name: "Ana"}}))

	require.True(t, reducer.User(u, reducer.Logout{}).IsEmpty())
}

func TestMergeUser(t *testing.T) {
	local := &domain.User{
		Profile:  domain.UserProfile{Name: "Ana", Email: "ana@example.com"},
		Projects: []domain.Project{{Title: "draft", IsIncomplete: true}},
	}
	remote := &domain.User{
		UserID:  "u1",
		Profile: domain.UserProfile{Email: "ana@example.com", YearOfBirth: 1990},
		Projects: []domain.Project{{
			ProjectID: "p1",
			Actions: []domain.Action{
				action("late", domain.ActionUnread, t0.Add(time.Hour)),
				action("early", domain.ActionUnread, t0),
			},
		}},
	}

	merged := reducer.MergeUser(local, remote)
	require.Equal(t, "u1", merged.UserID)
	require.Equal(t, "Ana", merged.Profile.Name)
	require.Equal(t, 1990, merged.Profile.YearOfBirth)
	require.Len(t, merged.Projects, 2)
	require.True(t, merged.Projects[0].IsIncomplete, "the local draft stays first")
	require.Equal(t, "draft", merged.Projects[0].Title)
	require.Equal(t, []string{"early", "late"}, ids(merged.Projects[1].Actions))
	require.Equal(t, "late", remote.Projects[0].Actions[0].ActionID, "remote must not be mutated")
	require.True(t, selector.CanEditFirstProject(merged))
	edited := reducer.User(merged, reducer.EditFirstProject{Project: domain.Project{Title: "baker"}})
	require.Equal(t, "baker", edited.Projects[0].Title)
	require.True(t, edited.Projects[0].IsIncomplete)

	require.Same(t, merged, reducer.MergeUser(merged, remote))

	remoteIncomplete := &domain.User{UserID: "u1", Projects: []domain.Project{{ProjectID: "p2", IsIncomplete: true}}}
	got := reducer.MergeUser(local, remoteIncomplete)
	require.Len(t, got.Projects, 1)
	require.Equal(t, "p2", got.Projects[0].ProjectID)

	saved := &domain.User{Projects: []domain.Project{{Title: "baker", CreatedAt: t0}}}
	stored := &domain.User{UserID: "u1", Projects: []domain.Project{{ProjectID: "p3", Title: "baker", CreatedAt: t0}}}
	got = reducer.MergeUser(saved, stored)
	require.Len(t, got.Projects, 1)
	require.Equal(t, "p3", got.Projects[0].ProjectID)
}

func TestServerUserIntents(t *testing.T) {
	s := reducer.Initial()
	remote := &domain.User{UserID: "u1", Projects: []domain.Project{{ProjectID: "p1"}}}
	in := reducer.UserFetched{Async: reducer.Async{Status: reducer.Succeeded}, User: remote}
	s = reducer.Root(s, in)
	require.Equal(t, "u1", s.User.UserID)

	again := reducer.Root(s, in)
	require.Same(t, s.User, again.User)

	s = reducer.Root(s, reducer.UserAuthenticated{
		Async:    reducer.Async{Status: reducer.Succeeded},
		Response: &domain.AuthResponse{AuthToken: "tok", HashSalt: "salt", AuthenticatedUser: remote},
	})
	require.Equal(t, "tok", s.App.AuthToken)

	s = reducer.Root(s, reducer.UserDeleted{Async: reducer.Async{Status: reducer.Succeeded}})
	require.True(t, s.User.IsEmpty())
	require.Empty(t, s.App.AuthToken)
}

func TestCanceledRequestKeepsBanner(t *testing.T) {
	s := reducer.Initial()
	s = reducer.Root(s, reducer.JobFetched{Async: reducer.Async{Status: reducer.Sending}, RomeID: "D1102"})
	s = reducer.Root(s, reducer.JobBoardsFetched{Async: reducer.Async{Status: reducer.Failed, Err: errors.New("Bad Gateway")}})
	s = reducer.Root(s, reducer.JobFetched{
		Async:  reducer.Async{Status: reducer.Canceled, Err: context.Canceled},
		RomeID: "D1102",
	})
	require.Equal(t, "Bad Gateway", s.App.ErrorMessage)
	require.Empty(t, s.App.Fetching)
	require.NotContains(t, s.App.JobGroups, "D1102")
}

func TestAppTracksRequests(t *testing.T) {
	s := reducer.Initial()
	s = reducer.Root(s, reducer.UserSaved{Async: reducer.Async{Status: reducer.Sending}})
	s = reducer.Root(s, reducer.UserSaved{Async: reducer.Async{Status: reducer.Sending}})
	require.Equal(t, 2, s.App.Fetching[reducer.TypePostUserData])

	s = reducer.Root(s, reducer.UserSaved{Async: reducer.Async{Status: reducer.Failed, Err: errors.New("Not Found")}})
	require.Equal(t, 1, s.App.Fetching[reducer.TypePostUserData])
	require.Equal(t, "Not Found", s.App.ErrorMessage)

	s = reducer.Root(s, reducer.UserSaved{Async: reducer.Async{Status: reducer.Succeeded}})
	require.NotContains(t, s.App.Fetching, reducer.TypePostUserData)

	s = reducer.Root(s, reducer.HideErrorMessage{})
	require.Empty(t, s.App.ErrorMessage)

	s = reducer.Root(s, reducer.AdviceTipsFetched{
		Async: reducer.Async{Status: reducer.Succeeded}, ProjectID: "p1", AdviceID: "a1",
		Tips: []domain.ActionTemplate{{ActionTemplateID: "t1"}},
	})
	require.Len(t, s.App.AdviceTips[reducer.TipsKey("p1", "a1")], 1)

	s = reducer.Root(s, reducer.JobStatsFetched{
		Async: reducer.Async{Status: reducer.Succeeded},
		Stats: []domain.JobGroupStats{{RomeID: "D1102", NumAvailableOffers: 12}},
	})
	require.Equal(t, 12, s.App.JobStats["D1102"].NumAvailableOffers)
}

func ids(actions []domain.Action) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.ActionID)
	}
	return out
}
