// Package selector derives view data from the client state. Nothing here is
// stored; every value is recomputed on read.
package selector

import (
	"slices"

	"bobemploi/internal/domain"
	"bobemploi/internal/reducer"
)

// IsStuck reports whether the action is stuck with at least one step left.
func IsStuck(a domain.Action) bool {
	if a.Status != domain.ActionStuck {
		return false
	}
	return slices.ContainsFunc(a.Steps, func(s domain.StickyActionStep) bool { return !s.IsDone })
}

// StickyProgress is the fraction of sticky steps done, in [0, 1].
func StickyProgress(a domain.Action) float64 {
	if len(a.Steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range a.Steps {
		if s.IsDone {
			done++
		}
	}
	return min(max(float64(done)/float64(len(a.Steps)), 0), 1)
}

// FindStep looks a sticky step of the action up.
func FindStep(a domain.Action, stepID string) (domain.StickyActionStep, bool) {
	i := slices.IndexFunc(a.Steps, func(s domain.StickyActionStep) bool { return s.StepID == stepID })
	if stepID == "" || i < 0 {
		return domain.StickyActionStep{}, false
	}
	return a.Steps[i], true
}

// CanEditFirstProject reports whether an EditFirstProject intent would apply.
func CanEditFirstProject(u *domain.User) bool {
	if u == nil || len(u.Projects) == 0 {
		return true
	}
	return u.Projects[0].IsIncomplete
}

// IncompleteProject returns the project under construction, if any.
func IncompleteProject(u *domain.User) (domain.Project, bool) {
	if u == nil {
		return domain.Project{}, false
	}
	i := slices.IndexFunc(u.Projects, func(p domain.Project) bool { return p.IsIncomplete })
	if i < 0 {
		return domain.Project{}, false
	}
	return u.Projects[i], true
}

func FindProject(u *domain.User, projectID string) (domain.Project, bool) {
	if u == nil || projectID == "" {
		return domain.Project{}, false
	}
	i := slices.IndexFunc(u.Projects, func(p domain.Project) bool { return p.ProjectID == projectID })
	if i < 0 {
		return domain.Project{}, false
	}
	return u.Projects[i], true
}

// FindAction looks the action up in the active, sticky and past lists.
func FindAction(p domain.Project, actionID string) (domain.Action, bool) {
	if actionID == "" {
		return domain.Action{}, false
	}
	for _, list := range [][]domain.Action{p.Actions, p.StickyActions, p.PastActions} {
		if i := slices.IndexFunc(list, func(a domain.Action) bool { return a.ActionID == actionID }); i >= 0 {
			return list[i], true
		}
	}
	return domain.Action{}, false
}

func FindAdvice(p domain.Project, adviceID string) (domain.Advice, bool) {
	i := slices.IndexFunc(p.Advices, func(a domain.Advice) bool { return a.AdviceID == adviceID })
	if i < 0 {
		return domain.Advice{}, false
	}
	return p.Advices[i], true
}

// CountActionsByStatus counts the actions of every list of the project.
func CountActionsByStatus(p domain.Project) map[domain.ActionStatus]int {
	counts := map[domain.ActionStatus]int{}
	for _, list := range [][]domain.Action{p.Actions, p.StickyActions, p.PastActions} {
		for _, a := range list {
			status := a.Status
			if status == "" {
				status = domain.ActionUnread
			}
			counts[status]++
		}
	}
	return counts
}

// IsFetching reports whether a request of the given intent type is in flight.
func IsFetching(a *reducer.AppState, intentType string) bool {
	return a != nil && a.Fetching[intentType] > 0
}
