package domain

import "time"

type ProjectStatus string

const (
	ProjectCurrent   ProjectStatus = "PROJECT_CURRENT"
	ProjectOnStandby ProjectStatus = "PROJECT_ON_STANDBY"
	ProjectCompleted ProjectStatus = "PROJECT_COMPLETED"
	ProjectDeleted   ProjectStatus = "PROJECT_DELETED"
)

type ProjectSource string

const (
	ProjectManuallyCreated ProjectSource = "PROJECT_MANUALLY_CREATED"
	ProjectSuggestion      ProjectSource = "PROJECT_SUGGESTION"
)

// Project is a job search owned by a user.
type Project struct {
	ProjectID          string        `json:"projectId,omitempty"`
	Title              string        `json:"title,omitempty"`
	Status             ProjectStatus `json:"status,omitempty"`
	Source             ProjectSource `json:"source,omitempty"`
	IsIncomplete       bool          `json:"isIncomplete,omitempty"`
	TargetJob          *Job          `json:"targetJob,omitempty"`
	City               *City         `json:"city,omitempty"`
	Actions            []Action      `json:"actions,omitempty"`
	PastActions        []Action      `json:"pastActions,omitempty"`
	StickyActions      []Action      `json:"stickyActions,omitempty"`
	Advices            []Advice      `json:"advices,omitempty"`
	CreatedAt          time.Time     `json:"createdAt,omitzero"`
	ActionsGeneratedAt time.Time     `json:"actionsGeneratedAt,omitzero"`
}

// Job is a specific job inside a job group.
type Job struct {
	CodeOGR  string   `json:"codeOgr,omitempty"`
	Name     string   `json:"name,omitempty"`
	JobGroup JobGroup `json:"jobGroup,omitzero"`
}

type City struct {
	CityID        string `json:"cityId,omitempty"`
	Name          string `json:"name,omitempty"`
	DepartementID string `json:"departementId,omitempty"`
}

// RomeID returns the job group code of the targeted job, if any.
func (p Project) RomeID() string {
	if p.TargetJob == nil {
		return ""
	}
	return p.TargetJob.JobGroup.RomeID
}

// IsLive reports whether the project has not been closed.
func (p Project) IsLive() bool {
	return p.Status == "" || p.Status == ProjectCurrent || p.Status == ProjectOnStandby
}
