package generator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
)

var now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestGenerator() Generator {
	g := New(config.Default())
	g.Now = func() time.Time { return now }
	n := 0
	g.NewID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return g
}

func baker(actions ...domain.Action) domain.Project {
	return domain.Project{
		ProjectID: "p1",
		Status:    domain.ProjectCurrent,
		TargetJob: &domain.Job{CodeOGR: "12006", Name: "Boulanger", JobGroup: domain.JobGroup{RomeID: "D1102"}},
		Actions:   actions,
	}
}

func scored(p domain.Project) ScoringProject {
	return newTestGenerator().NewScoringProject(p, domain.UserProfile{})
}

func templateIDs(actions []domain.Action) []string {
	var out []string
	for _, a := range actions {
		out = append(out, a.ActionTemplateID)
	}
	return out
}

func TestRefreshPlanFillsFreshProject(t *testing.T) {
	g := newTestGenerator()
	u := &domain.User{UserID: "u1", Projects: []domain.Project{baker()}}

	got, added := g.RefreshPlan(u)
	require.Equal(t, 3, added)
	require.Empty(t, u.Projects[0].Actions, "input must not be mutated")

	p := got.Projects[0]
	require.Equal(t, []string{"update-cv", "call-employer", "job-board-alert"}, templateIDs(p.Actions))
	require.Equal(t, "gen-1", p.Actions[0].ActionID)
	require.Equal(t, domain.ActionUnread, p.Actions[0].Status)
	require.True(t, p.Actions[0].CreatedAt.Before(p.Actions[1].CreatedAt))
	require.Equal(t, now, p.ActionsGeneratedAt)
	require.Len(t, p.Advices, 5)
}

func TestRefreshPlanHonoursDeclineAndCoolDown(t *testing.T) {
	g := newTestGenerator()
	p := baker()
	p.Advices = []domain.Advice{{AdviceID: "improve-success-rate"}, {AdviceID: "spontaneous-application"}}
	p.PastActions = []domain.Action{
		{ActionID: "a1", ActionTemplateID: "update-cv", Status: domain.ActionDone, StoppedAt: now.Add(-24 * time.Hour)},
		{ActionID: "a2", ActionTemplateID: "call-employer", Status: domain.ActionDeclined, StoppedAt: now.Add(-2 * time.Hour), DeclineReason: "no phone"},
		{ActionID: "a3", ActionTemplateID: "visit-company", Status: domain.ActionSnoozed, StoppedAt: now.Add(-time.Hour)},
	}
	u := &domain.User{UserID: "u1", Projects: []domain.Project{p}}

	got, added := g.RefreshPlan(u)
	require.Equal(t, 3, added)
	out := got.Projects[0]
	require.Equal(t, []string{"visit-company", "job-board-alert", "explore-related-job"}, templateIDs(out.Actions))
	require.Equal(t, now.Add(-24*time.Hour).Add(30*24*time.Hour), out.PastActions[0].EndOfCoolDown)
	require.True(t, u.Projects[0].PastActions[0].EndOfCoolDown.IsZero())
}

func TestRefreshPlanAfterCoolDown(t *testing.T) {
	g := newTestGenerator()
	p := baker()
	p.PastActions = []domain.Action{
		{ActionID: "a1", ActionTemplateID: "update-cv", Status: domain.ActionDone, StoppedAt: now.Add(-40 * 24 * time.Hour)},
	}
	got, _ := g.RefreshPlan(&domain.User{Projects: []domain.Project{p}})
	require.Contains(t, templateIDs(got.Projects[0].Actions), "update-cv")
}

func TestRefreshPlanKeepsFullPlan(t *testing.T) {
	g := newTestGenerator()
	p := baker(
		domain.Action{ActionID: "a1", ActionTemplateID: "network-event", Status: domain.ActionUnread, CreatedAt: now},
		domain.Action{ActionID: "a2", ActionTemplateID: "linkedin-profile", Status: domain.ActionCurrent, CreatedAt: now},
		domain.Action{ActionID: "a3", ActionTemplateID: "update-cv", Status: domain.ActionUnread, CreatedAt: now},
	)
	got, added := g.RefreshPlan(&domain.User{Projects: []domain.Project{p}})
	require.Zero(t, added)
	require.Len(t, got.Projects[0].Actions, 3)

	p.Actions[1].Status = domain.ActionSaved
	got, added = g.RefreshPlan(&domain.User{Projects: []domain.Project{p}})
	require.Equal(t, 1, added)
	require.Equal(t, "call-employer", got.Projects[0].Actions[3].ActionTemplateID)
}

func TestRefreshPlanSkipsClosedAndIncompleteProjects(t *testing.T) {
	g := newTestGenerator()
	incomplete := baker()
	incomplete.IsIncomplete = true
	done := baker()
	done.ProjectID = "p2"
	done.Status = domain.ProjectCompleted

	got, added := g.RefreshPlan(&domain.User{Projects: []domain.Project{incomplete, done}})
	require.Zero(t, added)
	require.Empty(t, got.Projects[0].Actions)
	require.Empty(t, got.Projects[1].Advices)
}

func TestAdvicesCarryKindData(t *testing.T) {
	g := newTestGenerator()
	advices := g.Advices(scored(baker()))
	byKind := map[domain.AdviceKind]domain.AdviceData{}
	for _, a := range advices {
		require.Equal(t, domain.AdviceRecommended, a.Status)
		byKind[a.Kind()] = a.Data
	}
	better := byKind[domain.AdviceBetterJobInGroup].(domain.BetterJobInGroupAdviceData)
	require.Equal(t, "12007", better.BetterJob.CodeOGR)
	require.Equal(t, 1, better.NumBetterJobs)

	spontaneous := byKind[domain.AdviceSpontaneousApplication].(domain.SpontaneousApplicationAdviceData)
	require.Len(t, spontaneous.Companies, 2)

	boards := byKind[domain.AdviceJobBoards].(domain.JobBoardsAdviceData)
	require.False(t, boards.IsSpecificToJobGroup)

	cook := baker()
	cook.TargetJob = &domain.Job{CodeOGR: "11573", JobGroup: domain.JobGroup{RomeID: "G1602"}}
	for _, a := range g.Advices(scored(cook)) {
		if d, ok := a.Data.(domain.JobBoardsAdviceData); ok {
			require.True(t, d.IsSpecificToJobGroup)
			require.Equal(t, "L'Hôtellerie Restauration", d.JobBoardTitle)
		}
	}

	none := g.Advices(scored(domain.Project{}))
	require.Len(t, none, 2, "only generic advices apply without a target job")
}

func TestCatalogLookups(t *testing.T) {
	g := newTestGenerator()

	tips := g.Tips(scored(baker()), domain.AdviceSpontaneousApplication)
	require.Len(t, tips, 2)
	require.Equal(t, "call-employer", tips[0].ActionTemplateID)
	require.Len(t, tips[0].Steps, 3)
	require.Empty(t, g.Tips(scored(baker()), "unknown"))

	p := baker()
	p.Advices = []domain.Advice{{AdviceID: "custom", Data: domain.JobBoardsAdviceData{}}}
	require.Equal(t, "job-board-alert", g.TipsForAdvice(scored(p), "custom")[0].ActionTemplateID)
	require.Equal(t, "update-cv", g.TipsForAdvice(scored(p), "improve-success-rate")[0].ActionTemplateID)

	boards := g.JobBoards(scored(driver()))
	require.Equal(t, "Bourse du transport", boards[0].Title)
	require.Len(t, boards, 3)

	reqs, err := g.Requirements("N4101")
	require.NoError(t, err)
	require.Equal(t, []string{"C", "CE"}, reqs.DrivingLicenses)
	_, err = g.Requirements("Z9999")
	require.ErrorIs(t, err, ErrUnknownJobGroup)

	stats := g.JobStats()
	require.Equal(t, []string{"G1602", "N4101", "D1102"}, []string{stats[0].RomeID, stats[1].RomeID, stats[2].RomeID})
	require.Len(t, g.ExploreJobs(), 3)
}

func TestRefreshProject(t *testing.T) {
	g := newTestGenerator()
	p := baker()
	got, added := g.RefreshProject(p, domain.UserProfile{})
	require.Equal(t, 3, added)
	require.Len(t, got.Actions, 3)
	require.Empty(t, p.Actions)
	require.Equal(t, now, got.ActionsGeneratedAt)
}
