package reducer

import (
	"maps"

	"bobemploi/internal/domain"
)

// App reduces the application state: auth, requests in flight, banners and
// cached lookups.
func App(a *AppState, in Intent) *AppState {
	base := a
	if base == nil {
		base = &AppState{}
	}
	next := reduceApp(base, in)
	if next == base {
		return a
	}
	return next
}

func reduceApp(a *AppState, in Intent) *AppState {
	switch in := in.(type) {
	case HideErrorMessage:
		if a.ErrorMessage == "" {
			return a
		}
		n := *a
		n.ErrorMessage = ""
		return &n
	case DisplayToast:
		if a.Toast == in.Message {
			return a
		}
		n := *a
		n.Toast = in.Message
		return &n
	case HideToast:
		if a.Toast == "" {
			return a
		}
		n := *a
		n.Toast = ""
		return &n
	case Logout:
		return signOut(a)
	case AsyncIntent:
		return reduceAsync(a, in)
	}
	return a
}

func signOut(a *AppState) *AppState {
	if a.AuthToken == "" && a.HashSalt == "" && !a.IsNewUser {
		return a
	}
	n := *a
	n.AuthToken, n.HashSalt, n.IsNewUser = "", "", false
	return &n
}

func reduceAsync(a *AppState, in AsyncIntent) *AppState {
	st := in.AsyncState()
	typ := in.IntentType()
	switch st.Status {
	case Sending:
		n := *a
		n.Fetching = withKey(a.Fetching, typ, a.Fetching[typ]+1)
		return &n
	case Failed:
		n := *a
		n.Fetching = doneFetching(a.Fetching, typ)
		n.ErrorMessage = "request failed"
		if st.Err != nil {
			n.ErrorMessage = st.Err.Error()
		}
		return &n
	case Succeeded:
		n := *a
		n.Fetching = doneFetching(a.Fetching, typ)
		storeResult(&n, in)
		return &n
	case Canceled:
		n := *a
		n.Fetching = doneFetching(a.Fetching, typ)
		return &n
	}
	return a
}

func doneFetching(m map[string]int, typ string) map[string]int {
	c, ok := m[typ]
	if !ok {
		return m
	}
	out := maps.Clone(m)
	if c <= 1 {
		delete(out, typ)
	} else {
		out[typ] = c - 1
	}
	return out
}

// storeResult records the payload of a successful request on n, copying
// every map it touches.
func storeResult(n *AppState, in Intent) {
	switch in := in.(type) {
	case UserAuthenticated:
		if in.Response != nil {
			n.AuthToken = in.Response.AuthToken
			n.HashSalt = in.Response.HashSalt
			n.IsNewUser = in.Response.IsNewUser
		}
	case PasswordReset:
		if in.Response != nil && in.Response.AuthToken != "" {
			n.AuthToken = in.Response.AuthToken
		}
	case UserDeleted:
		n.AuthToken, n.HashSalt, n.IsNewUser = "", "", false
	case AdviceTipsFetched:
		n.AdviceTips = withKey(n.AdviceTips, TipsKey(in.ProjectID, in.AdviceID), in.Tips)
	case JobBoardsFetched:
		n.JobBoards = withKey(n.JobBoards, in.ProjectID, in.JobBoards)
	case RequirementsFetched:
		n.Requirements = withKey(n.Requirements, in.RomeID, in.Requirements)
	case JobFetched:
		n.JobGroups = withKey(n.JobGroups, in.RomeID, in.JobGroup)
	case DashboardExportFetched:
		n.DashboardExports = withKey(n.DashboardExports, in.Export.DashboardExportID, in.Export)
	case JobsExplored:
		n.ExploredJobs = in.JobGroups
	case JobStatsFetched:
		stats := make(map[string]domain.JobGroupStats, len(n.JobStats)+len(in.Stats))
		maps.Copy(stats, n.JobStats)
		for _, s := range in.Stats {
			stats[s.RomeID] = s
		}
		n.JobStats = stats
	}
}

func withKey[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := make(map[K]V, len(m)+1)
	maps.Copy(out, m)
	out[k] = v
	return out
}
