package generator

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
)

func driver() domain.Project {
	return domain.Project{
		ProjectID: "p2",
		Status:    domain.ProjectCurrent,
		TargetJob: &domain.Job{CodeOGR: "10978", Name: "Chauffeur", JobGroup: domain.JobGroup{RomeID: "N4101"}},
		City:      &domain.City{Name: "Lyon", DepartementID: "69"},
		CreatedAt: now.Add(-600 * 24 * time.Hour),
	}
}

func TestScoringModels(t *testing.T) {
	g := newTestGenerator()
	young := domain.UserProfile{YearOfBirth: 2005, Gender: domain.GenderFeminine, Situation: domain.SituationLostQuit, HighestDegree: "CAP_BEP"}
	senior := domain.UserProfile{YearOfBirth: 1960, Situation: domain.SituationEmployed, HighestDegree: "DEA_DESS_MASTER_PHD"}

	tests := []struct {
		filter  string
		project domain.Project
		profile domain.UserProfile
		pass    bool
	}{
		{"for-job-group", driver(), young, true},
		{"for-job-group", domain.Project{}, young, false},
		{"for-job-group(N4)", driver(), young, true},
		{"for-job-group(D11, G16)", driver(), young, false},
		{"for-job-group(D11, G16)", baker(), young, true},
		{"for-departement(31, 69)", driver(), young, true},
		{"for-departement(75)", driver(), young, false},
		{"for-departement(69)", baker(), young, false},
		{"for-driving-license", driver(), young, true},
		{"for-driving-license", baker(), young, false},
		{"for-young(25)", driver(), young, true},
		{"for-young(25)", driver(), senior, false},
		{"for-young(25)", driver(), domain.UserProfile{}, false},
		{"for-old(50)", driver(), senior, true},
		{"for-women", driver(), young, true},
		{"for-women", driver(), senior, false},
		{"for-unemployed", driver(), young, true},
		{"for-unemployed", driver(), senior, false},
		{"for-unemployed", driver(), domain.UserProfile{}, false},
		{"for-not-employed-anymore", driver(), young, true},
		{"for-qualified(bac+3)", driver(), senior, true},
		{"for-qualified(bac+3)", driver(), young, false},
		{"for-unqualified(bac)", driver(), young, true},
		{"for-unqualified(bac)", driver(), domain.UserProfile{}, false},
		{"for-searching-forever", driver(), young, true},
		{"for-searching-forever", baker(), young, false},
		{"not-for-young(25)", driver(), young, false},
		{"not-for-young(25)", driver(), senior, true},
		{"not-for-job-group(N41)", driver(), young, false},
		{"constant(2)", baker(), young, true},
		{"constant(0)", baker(), young, false},
	}
	for _, tc := range tests {
		h := g.newFilterHelper(g.NewScoringProject(tc.project, tc.profile))
		require.Equal(t, tc.pass, h.apply([]string{tc.filter}), "%s on %s", tc.filter, tc.project.RomeID())
	}
}

func TestFilterHelperCombinesFilters(t *testing.T) {
	g := newTestGenerator()
	h := g.newFilterHelper(g.NewScoringProject(driver(), domain.UserProfile{Situation: "SEEKING"}))

	require.True(t, h.apply(nil))
	require.True(t, h.apply([]string{"for-driving-license", "for-unemployed"}))
	require.False(t, h.apply([]string{"for-driving-license", "for-women"}))
	require.Contains(t, h.scores, "for-women")
}

func TestUnknownScoringModelFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	g := newTestGenerator()
	g.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	h := g.newFilterHelper(g.NewScoringProject(baker(), domain.UserProfile{}))

	require.True(t, h.apply([]string{"for-astronauts"}))
	require.True(t, h.apply([]string{"not-for-astronauts"}))
	require.True(t, h.apply([]string{"constant(lots)"}))
	require.Contains(t, buf.String(), "model=for-astronauts")
	require.Contains(t, buf.String(), "model=not-for-astronauts")
}

func TestJobBoardsDropFailingFilters(t *testing.T) {
	g := newTestGenerator()
	titles := func(boards []domain.JobBoard) []string {
		var out []string
		for _, b := range boards {
			out = append(out, b.Title)
		}
		return out
	}

	older := g.JobBoards(g.NewScoringProject(driver(), domain.UserProfile{YearOfBirth: 1980}))
	require.Equal(t, []string{"Bourse du transport", "Pôle emploi", "Indeed"}, titles(older))

	younger := g.JobBoards(g.NewScoringProject(driver(), domain.UserProfile{YearOfBirth: 2005}))
	require.Equal(t, []string{"Bourse du transport", "Pôle emploi", "Indeed", "Mission Locale"}, titles(younger))

	g.Catalog.JobBoards = []config.CatalogJobBoard{
		{Title: "Cuisine Jobs", Filters: []string{"for-job-group(G16)"}},
		{Title: "Partout"},
	}
	require.Equal(t, []string{"Partout"}, titles(g.JobBoards(scored(driver()))))
	cook := baker()
	cook.TargetJob = &domain.Job{JobGroup: domain.JobGroup{RomeID: "G1602"}}
	require.Equal(t, []string{"Cuisine Jobs", "Partout"}, titles(g.JobBoards(scored(cook))))
}

func TestTemplatesDropFailingFilters(t *testing.T) {
	g := newTestGenerator()
	g.ActionsPerPlan = 20

	got, _ := g.RefreshPlan(&domain.User{
		Profile:  domain.UserProfile{Situation: "SEEKING"},
		Projects: []domain.Project{driver()},
	})
	require.Contains(t, templateIDs(got.Projects[0].Actions), "driving-license-funding")

	got, _ = g.RefreshPlan(&domain.User{
		Profile:  domain.UserProfile{Situation: domain.SituationEmployed},
		Projects: []domain.Project{driver()},
	})
	require.NotContains(t, templateIDs(got.Projects[0].Actions), "driving-license-funding")

	got, _ = g.RefreshPlan(&domain.User{
		Profile:  domain.UserProfile{Situation: "SEEKING"},
		Projects: []domain.Project{baker()},
	})
	require.NotContains(t, templateIDs(got.Projects[0].Actions), "driving-license-funding")

	g.Catalog.ActionTemplates = []config.ActionTemplate{
		{ID: "women-network", AdviceKind: string(domain.AdviceSpontaneousApplication), Filters: []string{"for-women"}},
		{ID: "anyone", AdviceKind: string(domain.AdviceSpontaneousApplication)},
	}
	tips := g.Tips(g.NewScoringProject(baker(), domain.UserProfile{Gender: domain.GenderMasculine}), domain.AdviceSpontaneousApplication)
	require.Len(t, tips, 1)
	require.Equal(t, "anyone", tips[0].ActionTemplateID)
}

func TestAdvicesDropFailingFilters(t *testing.T) {
	g := newTestGenerator()
	g.Catalog.Advices = []config.CatalogAdvice{
		{ID: "improve-success-rate", Kind: string(domain.AdviceImproveSuccessRate), Filters: []string{"for-qualified(bac+3)"}},
		{ID: "other-work-env", Kind: string(domain.AdviceOtherWorkEnv), Filters: []string{"for-job-group"}},
	}

	ids := func(advices []domain.Advice) []string {
		var out []string
		for _, a := range advices {
			out = append(out, a.AdviceID)
		}
		return out
	}
	require.Equal(t, []string{"other-work-env"},
		ids(g.Advices(g.NewScoringProject(baker(), domain.UserProfile{HighestDegree: "CAP_BEP"}))))
	require.Equal(t, []string{"improve-success-rate", "other-work-env"},
		ids(g.Advices(g.NewScoringProject(baker(), domain.UserProfile{HighestDegree: "LICENCE_MAITRISE"}))))
	require.Empty(t, ids(g.Advices(g.NewScoringProject(domain.Project{}, domain.UserProfile{}))))
}
