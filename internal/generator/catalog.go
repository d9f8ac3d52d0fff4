package generator

import (
	"errors"
	"slices"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
)

var ErrUnknownJobGroup = errors.New("unknown job group")

// Tips lists the templates attached to an advice kind whose filters pass.
func (g Generator) Tips(sp ScoringProject, kind domain.AdviceKind) []domain.ActionTemplate {
	out := []domain.ActionTemplate{}
	for _, t := range g.templates(sp) {
		if domain.AdviceKind(t.AdviceKind) == kind {
			out = append(out, t.Template())
		}
	}
	return out
}

// TipsForAdvice resolves the advice kind from the project, then the catalog.
func (g Generator) TipsForAdvice(sp ScoringProject, adviceID string) []domain.ActionTemplate {
	advices := sp.Project.Advices
	i := slices.IndexFunc(advices, func(a domain.Advice) bool { return a.AdviceID == adviceID })
	if i >= 0 {
		return g.Tips(sp, g.adviceKind(advices[i]))
	}
	return g.Tips(sp, g.adviceKind(domain.Advice{AdviceID: adviceID}))
}

// JobBoards lists the boards of the project's job group whose filters pass,
// the specific ones first.
func (g Generator) JobBoards(sp ScoringProject) []domain.JobBoard {
	romeID := sp.Project.RomeID()
	boards := filterUsingScore(g.Catalog.JobBoards,
		func(b config.CatalogJobBoard) []string { return b.Filters }, g.newFilterHelper(sp))
	var specific, general []domain.JobBoard
	for _, b := range boards {
		board := domain.JobBoard{Title: b.Title, Link: b.Link, Filters: b.Filters, IsWellKnown: b.IsWellKnown}
		switch {
		case len(b.RomeIDs) == 0:
			general = append(general, board)
		case slices.Contains(b.RomeIDs, romeID):
			specific = append(specific, board)
		}
	}
	return append(specific, general...)
}

// Requirements returns what employers ask for in a job group.
func (g Generator) Requirements(romeID string) (domain.JobRequirements, error) {
	group, ok := g.Catalog.FindJobGroup(romeID)
	if !ok {
		return domain.JobRequirements{}, ErrUnknownJobGroup
	}
	return *group.JobGroup().Requirements, nil
}

func (g Generator) JobGroup(romeID string) (domain.JobGroup, error) {
	group, ok := g.Catalog.FindJobGroup(romeID)
	if !ok {
		return domain.JobGroup{}, ErrUnknownJobGroup
	}
	return group.JobGroup(), nil
}

// ExploreJobs lists every job group of the catalog.
func (g Generator) ExploreJobs() []domain.JobGroup {
	out := make([]domain.JobGroup, 0, len(g.Catalog.JobGroups))
	for _, jg := range g.Catalog.JobGroups {
		out = append(out, jg.JobGroup())
	}
	return out
}

// JobStats lists market figures per job group, least stressed market first.
func (g Generator) JobStats() []domain.JobGroupStats {
	out := make([]domain.JobGroupStats, 0, len(g.Catalog.JobGroups))
	for _, jg := range g.Catalog.JobGroups {
		out = append(out, domain.JobGroupStats{
			RomeID:             jg.RomeID,
			Name:               jg.Name,
			NumAvailableOffers: jg.NumAvailableOffers,
			MarketStress:       jg.MarketStress,
		})
	}
	slices.SortStableFunc(out, func(a, b domain.JobGroupStats) int {
		switch {
		case a.MarketStress < b.MarketStress:
			return -1
		case a.MarketStress > b.MarketStress:
			return 1
		}
		return 0
	})
	return out
}
