package generator

import (
	"slices"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
)

// Advices computes the advice modules of a project. Advices whose filters do
// not pass, or whose kind has nothing to say for the targeted job group, are
// left out.
func (g Generator) Advices(sp ScoringProject) []domain.Advice {
	catalog := filterUsingScore(g.Catalog.Advices,
		func(c config.CatalogAdvice) []string { return c.Filters }, g.newFilterHelper(sp))
	var out []domain.Advice
	for _, c := range catalog {
		data := g.adviceData(domain.AdviceKind(c.Kind), sp)
		if data == nil {
			continue
		}
		out = append(out, domain.Advice{AdviceID: c.ID, Status: domain.AdviceRecommended, Data: data})
	}
	return out
}

func (g Generator) adviceData(kind domain.AdviceKind, sp ScoringProject) domain.AdviceData {
	p, group := sp.Project, sp.JobGroup
	switch kind {
	case domain.AdviceImproveSuccessRate:
		reqs := slices.Concat(group.Diplomas, group.Skills)
		return domain.ImproveSuccessRateAdviceData{Requirements: reqs, NumInterviewsIncrease: len(reqs)}
	case domain.AdviceJobBoards:
		boards := g.JobBoards(sp)
		if len(boards) == 0 {
			return nil
		}
		best := boards[0]
		return domain.JobBoardsAdviceData{
			JobBoardTitle:        best.Title,
			IsSpecificToJobGroup: g.isSpecific(best.Title),
		}
	case domain.AdviceSpontaneousApplication:
		var companies []domain.Company
		for _, c := range g.Catalog.Companies {
			if c.RomeID == group.RomeID && group.RomeID != "" {
				companies = append(companies, domain.Company{Name: c.Name, CityName: c.CityName})
			}
		}
		if len(companies) == 0 {
			return nil
		}
		return domain.SpontaneousApplicationAdviceData{Companies: companies}
	case domain.AdviceBetterJobInGroup:
		current := ""
		if p.TargetJob != nil {
			current = p.TargetJob.CodeOGR
		}
		var others []config.CatalogJob
		for _, j := range group.Jobs {
			if j.CodeOGR != current {
				others = append(others, j)
			}
		}
		if len(others) == 0 {
			return nil
		}
		return domain.BetterJobInGroupAdviceData{
			BetterJob:     domain.Job{CodeOGR: others[0].CodeOGR, Name: others[0].Name, JobGroup: domain.JobGroup{RomeID: group.RomeID, Name: group.Name}},
			NumBetterJobs: len(others),
		}
	case domain.AdviceOtherWorkEnv:
		if len(group.WorkEnvironments) == 0 {
			return nil
		}
		return domain.OtherWorkEnvAdviceData{WorkEnvironmentKeywords: slices.Clone(group.WorkEnvironments)}
	}
	return nil
}

func (g Generator) isSpecific(title string) bool {
	for _, b := range g.Catalog.JobBoards {
		if b.Title == title {
			return len(b.RomeIDs) > 0
		}
	}
	return false
}
