package domain

import "time"

// Feedback is free-form feedback sent by a user about a project, action or advice.
type Feedback struct {
	UserID    string    `json:"userId,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	ActionID  string    `json:"actionId,omitempty"`
	AdviceID  string    `json:"adviceId,omitempty"`
	Source    string    `json:"source,omitempty"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type AuthRequest struct {
	Email          string `json:"email,omitempty"`
	HashedPassword string `json:"hashedPassword,omitempty"`
	HashSalt       string `json:"hashSalt,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	UserID         string `json:"userId,omitempty"`
	AuthToken      string `json:"authToken,omitempty"`
}

type AuthResponse struct {
	AuthenticatedUser *User  `json:"authenticatedUser,omitempty"`
	IsNewUser         bool   `json:"isNewUser,omitempty"`
	HashSalt          string `json:"hashSalt,omitempty"`
	AuthToken         string `json:"authToken,omitempty"`
}

type ResetPasswordRequest struct {
	Email          string `json:"email,omitempty"`
	AuthToken      string `json:"authToken,omitempty"`
	HashedPassword string `json:"hashedPassword,omitempty"`
}

type LikesRequest struct {
	UserID string         `json:"userId,omitempty"`
	Likes  map[string]int `json:"likes,omitempty"`
}

// ActionTemplate describes an action that can be generated for a project, and
// doubles as a tip attached to an advice.
type ActionTemplate struct {
	ActionTemplateID string             `json:"actionTemplateId,omitempty"`
	Title            string             `json:"title,omitempty"`
	ShortDescription string             `json:"shortDescription,omitempty"`
	Link             string             `json:"link,omitempty"`
	AdviceKind       AdviceKind         `json:"adviceKind,omitempty"`
	CoolDownDays     int                `json:"coolDownDays,omitempty"`
	Steps            []StickyActionStep `json:"steps,omitempty"`
}

// NewAction instantiates the template as a fresh unread action.
func (t ActionTemplate) NewAction(id string, now time.Time) Action {
	return Action{
		ActionID:         id,
		ActionTemplateID: t.ActionTemplateID,
		Title:            t.Title,
		ShortDescription: t.ShortDescription,
		Link:             t.Link,
		Status:           ActionUnread,
		CreatedAt:        now,
	}
}

type AdviceTips struct {
	Tips []ActionTemplate `json:"tips"`
}

type JobGroup struct {
	RomeID       string           `json:"romeId,omitempty"`
	Name         string           `json:"name,omitempty"`
	Requirements *JobRequirements `json:"requirements,omitempty"`
	Jobs         []Job            `json:"jobs,omitempty"`
}

type JobRequirements struct {
	Diplomas        []string `json:"diplomas,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	DrivingLicenses []string `json:"drivingLicenses,omitempty"`
}

type JobBoard struct {
	Title       string   `json:"title,omitempty"`
	Link        string   `json:"link,omitempty"`
	Filters     []string `json:"filters,omitempty"`
	IsWellKnown bool     `json:"isWellKnown,omitempty"`
}

type JobBoards struct {
	JobBoards []JobBoard `json:"jobBoards"`
}

// JobGroupStats summarizes the market of a job group for the explorer.
type JobGroupStats struct {
	RomeID             string  `json:"romeId,omitempty"`
	Name               string  `json:"name,omitempty"`
	NumAvailableOffers int     `json:"numAvailableOffers,omitempty"`
	MarketStress       float64 `json:"marketStress,omitempty"`
}

type ExploredJobs struct {
	JobGroups []JobGroup `json:"jobGroups"`
}

type ExploredJobStats struct {
	JobGroups []JobGroupStats `json:"jobGroups"`
}

// DashboardExport is a frozen copy of a user's projects shared with an advisor.
type DashboardExport struct {
	DashboardExportID string    `json:"dashboardExportId,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	Projects          []Project `json:"projects,omitempty"`
	CreatedAt         time.Time `json:"createdAt,omitzero"`
}
