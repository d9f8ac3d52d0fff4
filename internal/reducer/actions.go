package reducer

import (
	"slices"
	"time"

	"bobemploi/internal/domain"
)

type actionList int

const (
	listActions actionList = iota
	listSticky
	listPast
)

func listOf(p *domain.Project, l actionList) *[]domain.Action {
	switch l {
	case listSticky:
		return &p.StickyActions
	case listPast:
		return &p.PastActions
	}
	return &p.Actions
}

func findAction(p *domain.Project, actionID string) (actionList, int, bool) {
	if actionID == "" {
		return 0, 0, false
	}
	for _, l := range []actionList{listActions, listSticky, listPast} {
		i := slices.IndexFunc(*listOf(p, l), func(a domain.Action) bool { return a.ActionID == actionID })
		if i >= 0 {
			return l, i, true
		}
	}
	return 0, 0, false
}

func removeAction(p *domain.Project, l actionList, i int) domain.Action {
	list := listOf(p, l)
	a := (*list)[i]
	*list = slices.Delete(slices.Clone(*list), i, i+1)
	return a
}

// placeAction files the action in the list its status belongs to, keeping
// actions sorted by creation and past actions sorted by stop time.
func placeAction(p *domain.Project, a domain.Action) {
	switch {
	case a.Status == domain.ActionStuck:
		p.StickyActions = append(slices.Clone(p.StickyActions), a)
	case a.Status.IsPast():
		p.PastActions = insertSorted(p.PastActions, a, func(a domain.Action) time.Time { return a.StoppedAt })
	default:
		p.Actions = insertSorted(p.Actions, a, func(a domain.Action) time.Time { return a.CreatedAt })
	}
}

func insertSorted(list []domain.Action, a domain.Action, key func(domain.Action) time.Time) []domain.Action {
	i := len(list)
	for i > 0 && key(list[i-1]).After(key(a)) {
		i--
	}
	out := make([]domain.Action, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, a)
	return append(out, list[i:]...)
}

// moveAction moves the action to status to when the state machine allows it,
// applies edit and refiles it. It reports whether the project changed.
func moveAction(p *domain.Project, actionID string, to domain.ActionStatus, edit func(a *domain.Action)) bool {
	l, i, ok := findAction(p, actionID)
	if !ok {
		return false
	}
	if !domain.CanTransition((*listOf(p, l))[i].Status, to) {
		return false
	}
	a := removeAction(p, l, i)
	a.Status = to
	if edit != nil {
		edit(&a)
	}
	placeAction(p, a)
	return true
}

func reduceAction(u *domain.User, in Intent) *domain.User {
	switch in := in.(type) {
	case ReadAction:
		return updateProject(u, in.ProjectID, func(p *domain.Project) bool {
			return moveAction(p, in.ActionID, domain.ActionCurrent, nil)
		})
	case FinishAction:
		return updateProject(u, in.ProjectID, func(p *domain.Project) bool {
			return moveAction(p, in.ActionID, domain.ActionDone, func(a *domain.Action) {
				a.StoppedAt = in.Now
				if !in.Feedback.IsEmpty() {
					fb := in.Feedback
					a.Feedback = &fb
				}
			})
		})
	case DeclineAction:
		switch {
		case in.Status == domain.ActionDeclined && in.Reason == "":
			return u
		case in.Status != domain.ActionDeclined && in.Status != domain.ActionSnoozed:
			return u
		}
		return updateProject(u, in.ProjectID, func(p *domain.Project) bool {
			return moveAction(p, in.ActionID, in.Status, func(a *domain.Action) {
				a.StoppedAt = in.Now
				a.DeclineReason = in.Reason
			})
		})
	case StickAction:
		return updateProject(u, in.ProjectID, func(p *domain.Project) bool {
			return moveAction(p, in.ActionID, domain.ActionStuck, func(a *domain.Action) {
				a.StuckAt = in.Now
				if len(in.Steps) > 0 {
					a.Steps = slices.Clone(in.Steps)
				}
			})
		})
	case FinishStickyActionStep:
		return updateProject(u, in.ProjectID, func(p *domain.Project) bool {
			return finishStep(p, in)
		})
	case SaveAction:
		return saveAction(u, in)
	}
	return u
}

func finishStep(p *domain.Project, in FinishStickyActionStep) bool {
	l, i, ok := findAction(p, in.ActionID)
	if !ok || l != listSticky {
		return false
	}
	a := p.StickyActions[i]
	if a.Status != domain.ActionStuck {
		return false
	}
	j := slices.IndexFunc(a.Steps, func(s domain.StickyActionStep) bool { return s.StepID == in.StepID })
	if j < 0 || a.Steps[j].IsDone {
		return false
	}
	a.Steps = slices.Clone(a.Steps)
	a.Steps[j].IsDone = true
	a.Steps[j].Text = in.Text
	a.Steps[j].FinishedAt = in.Now

	allDone := !slices.ContainsFunc(a.Steps, func(s domain.StickyActionStep) bool { return !s.IsDone })
	if !allDone {
		p.StickyActions = slices.Clone(p.StickyActions)
		p.StickyActions[i] = a
		return true
	}
	removeAction(p, listSticky, i)
	a.Status = domain.ActionStickyDone
	a.StoppedAt = in.Now
	placeAction(p, a)
	return true
}

// saveAction keeps an action aside. Unknown actions, such as advice tips, are
// added to the project; an action already saved is left alone.
func saveAction(u *domain.User, in SaveAction) *domain.User {
	a := in.Action
	id := a.ActionID
	if id == "" {
		id = a.ActionTemplateID
	}
	if id == "" {
		return u
	}
	return updateProject(u, in.ProjectID, func(p *domain.Project) bool {
		if _, _, ok := findAction(p, id); ok {
			return moveAction(p, id, domain.ActionSaved, nil)
		}
		a.ActionID = id
		a.Status = domain.ActionSaved
		a.Steps = slices.Clone(a.Steps)
		if a.CreatedAt.IsZero() {
			a.CreatedAt = in.Now
		}
		placeAction(p, a)
		return true
	})
}
