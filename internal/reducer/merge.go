package reducer

import (
	"reflect"
	"slices"
	"sort"

	"bobemploi/internal/domain"
)

// MergeUser folds a user returned by the server into the local one. Server
// fields win when set, server projects are authoritative and local projects
// that were never saved are kept. Merging the same remote user twice returns
// the first result unchanged.
func MergeUser(local, remote *domain.User) *domain.User {
	if remote == nil {
		return local
	}
	if local == nil {
		local = &domain.User{}
	}
	merged := *remote
	if merged.UserID == "" {
		merged.UserID = local.UserID
	}
	merged.Profile = mergeProfile(local.Profile, remote.Profile)
	merged.Projects = mergeProjects(local.Projects, remote.Projects)
	if remote.DeletedProjects == nil {
		merged.DeletedProjects = local.DeletedProjects
	} else {
		merged.DeletedProjects = slices.Clone(remote.DeletedProjects)
	}
	if remote.Likes == nil {
		merged.Likes = local.Likes
	}
	if merged.RegisteredAt.IsZero() {
		merged.RegisteredAt = local.RegisteredAt
	}
	if merged.LastAppUseAt.IsZero() {
		merged.LastAppUseAt = local.LastAppUseAt
	}
	if reflect.DeepEqual(local, &merged) {
		return local
	}
	return &merged
}

// mergeProjects keeps the server's projects in its order. Local projects
// the server does not know yet are kept, an incomplete draft first so that it
// stays the first project and can still be edited.
func mergeProjects(local, remote []domain.Project) []domain.Project {
	var drafts, unsaved []domain.Project
	remoteIncomplete := slices.ContainsFunc(remote, func(p domain.Project) bool { return p.IsIncomplete })
	for _, p := range local {
		if p.ProjectID != "" {
			continue
		}
		if p.IsIncomplete && remoteIncomplete {
			continue
		}
		// The server assigns ids to the projects it stores and keeps their
		// creation time.
		if !p.CreatedAt.IsZero() && slices.ContainsFunc(remote, func(r domain.Project) bool { return r.CreatedAt.Equal(p.CreatedAt) }) {
			continue
		}
		if p.IsIncomplete {
			drafts = append(drafts, p)
		} else {
			unsaved = append(unsaved, p)
		}
	}
	out := make([]domain.Project, 0, len(drafts)+len(remote)+len(unsaved))
	out = append(out, drafts...)
	for _, p := range remote {
		out = append(out, normalizeProject(p))
	}
	out = append(out, unsaved...)
	seen := false
	for i := range out {
		if !out[i].IsIncomplete {
			continue
		}
		if seen {
			out[i].IsIncomplete = false
		}
		seen = true
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeProject returns the project with its action lists in canonical
// order. Lists already in order are shared, not copied.
func normalizeProject(p domain.Project) domain.Project {
	p.Actions = sortedBy(p.Actions, func(a, b domain.Action) bool { return a.CreatedAt.Before(b.CreatedAt) })
	p.PastActions = sortedBy(p.PastActions, func(a, b domain.Action) bool { return a.StoppedAt.Before(b.StoppedAt) })
	return p
}

func sortedBy(list []domain.Action, less func(a, b domain.Action) bool) []domain.Action {
	if sort.SliceIsSorted(list, func(i, j int) bool { return less(list[i], list[j]) }) {
		return list
	}
	out := slices.Clone(list)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
