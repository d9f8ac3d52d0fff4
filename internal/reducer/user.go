package reducer

import (
	"maps"
	"reflect"
	"slices"

	"bobemploi/internal/domain"
)

// User reduces the user model. It returns u itself for intents it does not
// handle or that leave the user unchanged.
func User(u *domain.User, in Intent) *domain.User {
	switch in := in.(type) {
	case CreateProject:
		return createProject(u, in.Project)
	case EditFirstProject:
		return editFirstProject(u, in.Project)
	case FinishProjectCreation:
		return finishProjectCreation(u, in)
	case DeleteProject:
		return deleteProject(u, in.ProjectID)
	case SetProjectStatus:
		return setProjectStatus(u, in)
	case ReadAction, FinishAction, DeclineAction, StickAction, FinishStickyActionStep, SaveAction:
		return reduceAction(u, in)
	case AdviceWasRead:
		return updateAdvice(u, in.ProjectID, in.AdviceID, func(a *domain.Advice) bool {
			if a.Status == domain.AdviceRead {
				return false
			}
			a.Status = domain.AdviceRead
			return true
		})
	case RateAdvice:
		stars := min(max(in.NumStars, 0), 5)
		return updateAdvice(u, in.ProjectID, in.AdviceID, func(a *domain.Advice) bool {
			if a.NumStars == stars {
				return false
			}
			a.NumStars = stars
			return true
		})
	case LikeFeature:
		return likeFeature(u, in)
	case SetUserProfile:
		return setUserProfile(u, in.Profile)
	case Logout:
		if u.IsEmpty() {
			return u
		}
		return &domain.User{}
	case UserDeleted:
		if !in.ok() || u.IsEmpty() {
			return u
		}
		return &domain.User{}
	case UserFetched:
		return mergeIfOK(u, in.Async, in.User)
	case UserSaved:
		return mergeIfOK(u, in.Async, in.User)
	case ActionPlanRefreshed:
		return mergeIfOK(u, in.Async, in.User)
	case MigratedToAdvisor:
		return mergeIfOK(u, in.Async, in.User)
	case AppUseRecorded:
		return mergeIfOK(u, in.Async, in.User)
	case UserAuthenticated:
		if in.Response == nil {
			return u
		}
		return mergeIfOK(u, in.Async, in.Response.AuthenticatedUser)
	case PasswordReset:
		if in.Response == nil {
			return u
		}
		return mergeIfOK(u, in.Async, in.Response.AuthenticatedUser)
	}
	return u
}

func mergeIfOK(u *domain.User, a Async, remote *domain.User) *domain.User {
	if !a.ok() || remote == nil {
		return u
	}
	return MergeUser(u, remote)
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return &domain.User{}
	}
	c := *u
	return &c
}

func createProject(u *domain.User, p domain.Project) *domain.User {
	if u != nil && len(u.Projects) > 0 {
		return u
	}
	n := cloneUser(u)
	n.Projects = []domain.Project{p}
	return n
}

func editFirstProject(u *domain.User, p domain.Project) *domain.User {
	p.IsIncomplete = true
	if u == nil || len(u.Projects) == 0 {
		n := cloneUser(u)
		n.Projects = []domain.Project{p}
		return n
	}
	first := u.Projects[0]
	if !first.IsIncomplete {
		return u
	}
	if p.ProjectID == "" {
		p.ProjectID = first.ProjectID
	}
	if reflect.DeepEqual(first, p) {
		return u
	}
	n := cloneUser(u)
	n.Projects = slices.Clone(u.Projects)
	n.Projects[0] = p
	return n
}

func finishProjectCreation(u *domain.User, in FinishProjectCreation) *domain.User {
	if u == nil {
		return u
	}
	i := slices.IndexFunc(u.Projects, func(p domain.Project) bool { return p.IsIncomplete })
	if i < 0 {
		return u
	}
	n := cloneUser(u)
	n.Projects = slices.Clone(u.Projects)
	p := &n.Projects[i]
	p.IsIncomplete = false
	if p.Status == "" {
		p.Status = domain.ProjectCurrent
	}
	if p.Source == "" {
		p.Source = domain.ProjectManuallyCreated
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = in.Now
	}
	return n
}

func projectIndex(u *domain.User, projectID string) int {
	if u == nil || projectID == "" {
		return -1
	}
	return slices.IndexFunc(u.Projects, func(p domain.Project) bool { return p.ProjectID == projectID })
}

func deleteProject(u *domain.User, projectID string) *domain.User {
	i := projectIndex(u, projectID)
	if i < 0 {
		return u
	}
	p := u.Projects[i]
	p.Status = domain.ProjectDeleted
	p.IsIncomplete = false
	n := cloneUser(u)
	n.Projects = slices.Delete(slices.Clone(u.Projects), i, i+1)
	n.DeletedProjects = append(slices.Clone(u.DeletedProjects), p)
	return n
}

func setProjectStatus(u *domain.User, in SetProjectStatus) *domain.User {
	if in.Status == domain.ProjectDeleted {
		return u
	}
	return updateProject(u, in.ProjectID, func(p *domain.Project) bool {
		if p.Status == in.Status {
			return false
		}
		p.Status = in.Status
		return true
	})
}

// updateProject applies f to a copy of the project. f must copy any slice it
// changes and report whether it changed anything.
func updateProject(u *domain.User, projectID string, f func(p *domain.Project) bool) *domain.User {
	i := projectIndex(u, projectID)
	if i < 0 {
		return u
	}
	p := u.Projects[i]
	if !f(&p) {
		return u
	}
	n := cloneUser(u)
	n.Projects = slices.Clone(u.Projects)
	n.Projects[i] = p
	return n
}

func updateAdvice(u *domain.User, projectID, adviceID string, f func(a *domain.Advice) bool) *domain.User {
	return updateProject(u, projectID, func(p *domain.Project) bool {
		i := slices.IndexFunc(p.Advices, func(a domain.Advice) bool { return a.AdviceID == adviceID })
		if i < 0 {
			return false
		}
		a := p.Advices[i]
		if !f(&a) {
			return false
		}
		p.Advices = slices.Clone(p.Advices)
		p.Advices[i] = a
		return true
	})
}

func likeFeature(u *domain.User, in LikeFeature) *domain.User {
	if in.Feature == "" {
		return u
	}
	var current map[string]int
	if u != nil {
		current = u.Likes
	}
	old, had := current[in.Feature]
	if (in.Score == 0 && !had) || (had && old == in.Score) {
		return u
	}
	likes := maps.Clone(current)
	if likes == nil {
		likes = map[string]int{}
	}
	if in.Score == 0 {
		delete(likes, in.Feature)
	} else {
		likes[in.Feature] = in.Score
	}
	n := cloneUser(u)
	n.Likes = likes
	return n
}

func setUserProfile(u *domain.User, p domain.UserProfile) *domain.User {
	var current domain.UserProfile
	if u != nil {
		current = u.Profile
	}
	merged := mergeProfile(current, p)
	if reflect.DeepEqual(merged, current) {
		return u
	}
	n := cloneUser(u)
	n.Profile = merged
	return n
}

// mergeProfile overlays the set fields of top onto base.
func mergeProfile(base, top domain.UserProfile) domain.UserProfile {
	out := base
	if top.Name != "" {
		out.Name = top.Name
	}
	if top.LastName != "" {
		out.LastName = top.LastName
	}
	if top.Email != "" {
		out.Email = top.Email
	}
	if top.Gender != "" {
		out.Gender = top.Gender
	}
	if top.YearOfBirth != 0 {
		out.YearOfBirth = top.YearOfBirth
	}
	if top.HighestDegree != "" {
		out.HighestDegree = top.HighestDegree
	}
	if top.Situation != "" {
		out.Situation = top.Situation
	}
	if top.EmailDays != nil {
		out.EmailDays = slices.Clone(top.EmailDays)
	}
	return out
}
