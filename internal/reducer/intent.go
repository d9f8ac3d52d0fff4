package reducer

import (
	"time"

	"bobemploi/internal/domain"
)

// Intent describes something that happened; reducers turn it into a new state.
type Intent interface {
	IntentType() string
}

// AsyncStatus tracks where an intent backed by an API call stands.
type AsyncStatus string

const (
	Sending   AsyncStatus = "sending"
	Succeeded AsyncStatus = "success"
	Failed    AsyncStatus = "error"
	// Canceled ends a request abandoned because a sibling request failed.
	Canceled  AsyncStatus = "canceled"
)

// Async is embedded by intents that follow an API call.
type Async struct {
	Status AsyncStatus
	Err    error
}

func (a Async) AsyncState() Async { return a }

// AsyncIntent is an intent dispatched around an API call.
type AsyncIntent interface {
	Intent
	AsyncState() Async
}

func (a Async) ok() bool { return a.Status == Succeeded }

const (
	TypeCreateProject          = "CREATE_PROJECT"
	TypeEditFirstProject       = "EDIT_FIRST_PROJECT"
	TypeFinishProjectCreation  = "FINISH_PROJECT_CREATION"
	TypeDeleteProject          = "DELETE_PROJECT"
	TypeSetProjectStatus       = "SET_PROJECT_STATUS"
	TypeReadAction             = "READ_ACTION"
	TypeFinishAction           = "FINISH_ACTION"
	TypeDeclineAction          = "DECLINE_ACTION"
	TypeStickAction            = "STICK_ACTION"
	TypeFinishStickyActionStep = "FINISH_STICKY_ACTION_STEP"
	TypeSaveAction             = "SAVE_ACTION"
	TypeAdviceWasRead          = "ADVICE_WAS_READ"
	TypeRateAdvice             = "RATE_ADVICE"
	TypeLikeFeature            = "LIKE_OR_DISLIKE_FEATURE"
	TypeSetUserProfile         = "SET_USER_PROFILE"
	TypeLogout                 = "LOGOUT"
	TypeHideErrorMessage       = "HIDE_ERROR_MESSAGE"
	TypeDisplayToast           = "DISPLAY_TOAST_MESSAGE"
	TypeHideToast              = "HIDE_TOAST_MESSAGE"

	TypeGetUserData          = "GET_USER_DATA"
	TypePostUserData         = "POST_USER_DATA"
	TypeAuthenticateUser     = "AUTHENTICATE_USER"
	TypeDeleteUserData       = "DELETE_USER_DATA"
	TypeRefreshActionPlan    = "REFRESH_ACTION_PLAN"
	TypeMigrateUserToAdvisor = "MIGRATE_USER_TO_ADVISOR"
	TypeRecordAppUse         = "RECORD_APP_USE"
	TypeResetPassword        = "RESET_USER_PASSWORD"
	TypeSaveLikes            = "SAVE_LIKES"
	TypeSendFeedback         = "SEND_FEEDBACK"
	TypeGetAdviceTips        = "GET_ADVICE_TIPS"
	TypeGetJobBoards         = "GET_JOBBOARDS"
	TypeGetRequirements      = "GET_PROJECT_REQUIREMENTS"
	TypeGetJob               = "GET_JOB"
	TypeGetDashboardExport   = "GET_DASHBOARD_EXPORT"
	TypeExploreJobs          = "EXPLORE_JOBS"
	TypeGetJobStats          = "GET_JOB_STATS"
)

type CreateProject struct{ Project domain.Project }

type EditFirstProject struct{ Project domain.Project }

type FinishProjectCreation struct{ Now time.Time }

type DeleteProject struct{ ProjectID string }

type SetProjectStatus struct {
	ProjectID string
	Status    domain.ProjectStatus
}

type ReadAction struct{ ProjectID, ActionID string }

type FinishAction struct {
	ProjectID string
	ActionID  string
	Feedback  domain.ActionFeedback
	Now       time.Time
}

// DeclineAction stops an action as snoozed or declined.
type DeclineAction struct {
	ProjectID string
	ActionID  string
	Status    domain.ActionStatus
	Reason    string
	Now       time.Time
}

type StickAction struct {
	ProjectID string
	ActionID  string
	Steps     []domain.StickyActionStep
	Now       time.Time
}

type FinishStickyActionStep struct {
	ProjectID string
	ActionID  string
	StepID    string
	Text      string
	Now       time.Time
}

// SaveAction keeps an action (or an advice tip) aside for later.
type SaveAction struct {
	ProjectID string
	Action    domain.Action
	Now       time.Time
}

type AdviceWasRead struct{ ProjectID, AdviceID string }

type RateAdvice struct {
	ProjectID string
	AdviceID  string
	NumStars  int
}

type LikeFeature struct {
	Feature string
	Score   int
}

type SetUserProfile struct{ Profile domain.UserProfile }

type Logout struct{}

type HideErrorMessage struct{}

type DisplayToast struct{ Message string }

type HideToast struct{}

type UserFetched struct {
	Async
	User *domain.User
}

type UserSaved struct {
	Async
	User *domain.User
}

type UserAuthenticated struct {
	Async
	Response *domain.AuthResponse
}

type UserDeleted struct{ Async }

type ActionPlanRefreshed struct {
	Async
	User *domain.User
}

type MigratedToAdvisor struct {
	Async
	User *domain.User
}

type AppUseRecorded struct {
	Async
	User *domain.User
}

type PasswordReset struct {
	Async
	Response *domain.AuthResponse
}

type LikesSaved struct{ Async }

type FeedbackSent struct{ Async }

type AdviceTipsFetched struct {
	Async
	ProjectID string
	AdviceID  string
	Tips      []domain.ActionTemplate
}

type JobBoardsFetched struct {
	Async
	ProjectID string
	JobBoards []domain.JobBoard
}

type RequirementsFetched struct {
	Async
	RomeID       string
	Requirements domain.JobRequirements
}

type JobFetched struct {
	Async
	RomeID   string
	JobGroup domain.JobGroup
}

type DashboardExportFetched struct {
	Async
	Export domain.DashboardExport
}

type JobsExplored struct {
	Async
	JobGroups []domain.JobGroup
}

type JobStatsFetched struct {
	Async
	Stats []domain.JobGroupStats
}

func (CreateProject) IntentType() string          { return TypeCreateProject }
func (EditFirstProject) IntentType() string       { return TypeEditFirstProject }
func (FinishProjectCreation) IntentType() string  { return TypeFinishProjectCreation }
func (DeleteProject) IntentType() string          { return TypeDeleteProject }
func (SetProjectStatus) IntentType() string       { return TypeSetProjectStatus }
func (ReadAction) IntentType() string             { return TypeReadAction }
func (FinishAction) IntentType() string           { return TypeFinishAction }
func (DeclineAction) IntentType() string          { return TypeDeclineAction }
func (StickAction) IntentType() string            { return TypeStickAction }
func (FinishStickyActionStep) IntentType() string { return TypeFinishStickyActionStep }
func (SaveAction) IntentType() string             { return TypeSaveAction }
func (AdviceWasRead) IntentType() string          { return TypeAdviceWasRead }
func (RateAdvice) IntentType() string             { return TypeRateAdvice }
func (LikeFeature) IntentType() string            { return TypeLikeFeature }
func (SetUserProfile) IntentType() string         { return TypeSetUserProfile }
func (Logout) IntentType() string                 { return TypeLogout }
func (HideErrorMessage) IntentType() string       { return TypeHideErrorMessage }
func (DisplayToast) IntentType() string           { return TypeDisplayToast }
func (HideToast) IntentType() string              { return TypeHideToast }
func (UserFetched) IntentType() string            { return TypeGetUserData }
func (UserSaved) IntentType() string              { return TypePostUserData }
func (UserAuthenticated) IntentType() string      { return TypeAuthenticateUser }
func (UserDeleted) IntentType() string            { return TypeDeleteUserData }
func (ActionPlanRefreshed) IntentType() string    { return TypeRefreshActionPlan }
func (MigratedToAdvisor) IntentType() string      { return TypeMigrateUserToAdvisor }
func (AppUseRecorded) IntentType() string         { return TypeRecordAppUse }
func (PasswordReset) IntentType() string          { return TypeResetPassword }
func (LikesSaved) IntentType() string             { return TypeSaveLikes }
func (FeedbackSent) IntentType() string           { return TypeSendFeedback }
func (AdviceTipsFetched) IntentType() string      { return TypeGetAdviceTips }
func (JobBoardsFetched) IntentType() string       { return TypeGetJobBoards }
func (RequirementsFetched) IntentType() string    { return TypeGetRequirements }
func (JobFetched) IntentType() string             { return TypeGetJob }
func (DashboardExportFetched) IntentType() string { return TypeGetDashboardExport }
func (JobsExplored) IntentType() string           { return TypeExploreJobs }
func (JobStatsFetched) IntentType() string        { return TypeGetJobStats }
