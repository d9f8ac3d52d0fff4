package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"bobemploi/internal/domain"
)

// Request bodies are decoded by hand: the client sends advice payloads and
// other fields that a generated schema would reject.
type rawBodyInput struct {
	RawBody []byte
}

type userPathInput struct {
	UserID string `path:"userId"`
}

type userRawInput struct {
	UserID  string `path:"userId"`
	RawBody []byte
}

type projectPathInput struct {
	UserID    string `path:"userId"`
	ProjectID string `path:"projectId"`
}

type advicePathInput struct {
	UserID    string `path:"userId"`
	ProjectID string `path:"projectId"`
	AdviceID  string `path:"adviceId"`
}

type eventsInput struct {
	UserID string `path:"userId"`
	Type   string `query:"type"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
	Cursor int64  `query:"cursor"`
}

type userOutput struct {
	Body *domain.User
}

type authOutput struct {
	Body *domain.AuthResponse
}

type tipsOutput struct {
	Body domain.AdviceTips
}

type jobBoardsOutput struct {
	Body domain.JobBoards
}

type requirementsOutput struct {
	Body domain.JobRequirements
}

type jobGroupOutput struct {
	Body domain.JobGroup
}

type exportOutput struct {
	Body domain.DashboardExport
}

type exploredJobsOutput struct {
	Body domain.ExploredJobs
}

type jobStatsOutput struct {
	Body domain.ExploredJobStats
}

type eventsOutput struct {
	Body domain.EventsPage
}

func decodeBody(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return newAPIError(http.StatusBadRequest, "body required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return newAPIError(http.StatusBadRequest, "invalid body: "+err.Error())
	}
	return nil
}

var _ huma.StatusError = (*apiError)(nil)
