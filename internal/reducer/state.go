package reducer

import "bobemploi/internal/domain"

// State is the whole client state. Values reachable from a State are never
// mutated; reducers return new values for whatever they change.
type State struct {
	User *domain.User `json:"user,omitempty"`
	App  *AppState    `json:"app,omitempty"`
}

// AppState holds what is not part of the user model: auth, in-flight requests,
// banners and cached lookups.
type AppState struct {
	AuthToken        string                             `json:"authToken,omitempty"`
	HashSalt         string                             `json:"hashSalt,omitempty"`
	IsNewUser        bool                               `json:"isNewUser,omitempty"`
	Fetching         map[string]int                     `json:"fetching,omitempty"`
	ErrorMessage     string                             `json:"errorMessage,omitempty"`
	Toast            string                             `json:"toast,omitempty"`
	AdviceTips       map[string][]domain.ActionTemplate `json:"adviceTips,omitempty"`
	JobBoards        map[string][]domain.JobBoard       `json:"jobBoards,omitempty"`
	Requirements     map[string]domain.JobRequirements  `json:"requirements,omitempty"`
	JobGroups        map[string]domain.JobGroup         `json:"jobGroups,omitempty"`
	ExploredJobs     []domain.JobGroup                  `json:"exploredJobs,omitempty"`
	JobStats         map[string]domain.JobGroupStats    `json:"jobStats,omitempty"`
	DashboardExports map[string]domain.DashboardExport  `json:"dashboardExports,omitempty"`
}

// Initial returns the state of a fresh client.
func Initial() *State {
	return &State{User: &domain.User{}, App: &AppState{}}
}

// Root is the reducer of the whole state tree.
func Root(s *State, in Intent) *State {
	if s == nil {
		s = Initial()
	}
	user := User(s.User, in)
	app := App(s.App, in)
	if user == s.User && app == s.App {
		return s
	}
	return &State{User: user, App: app}
}

// TipsKey is the AdviceTips key of an advice in a project.
func TipsKey(projectID, adviceID string) string {
	return projectID + "/" + adviceID
}
