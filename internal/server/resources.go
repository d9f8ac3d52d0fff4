package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"bobemploi/internal/domain"
	"bobemploi/internal/events"
	"bobemploi/internal/generator"
	"bobemploi/internal/repo"
)

func (b *backend) registerResources(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "advice-tips",
		Method:      http.MethodGet,
		Path:        "/project/{userId}/{projectId}/advice/{adviceId}/tips",
		Summary:     "List the tips of an advice",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.adviceTips)
	huma.Register(api, huma.Operation{
		OperationID: "job-boards",
		Method:      http.MethodGet,
		Path:        "/project/{userId}/{projectId}/jobboards",
		Summary:     "List job boards for a project",
		Security:    bearerSecurity,
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, b.jobBoards)
	huma.Register(api, huma.Operation{
		OperationID: "project-requirements",
		Method:      http.MethodPost,
		Path:        "/project/requirements",
		Summary:     "Requirements of the project's target job",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, b.requirements)
	huma.Register(api, huma.Operation{
		OperationID: "send-feedback",
		Method:      http.MethodPost,
		Path:        "/feedback",
		Summary:     "Send feedback",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, b.sendFeedback)
	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{romeId}",
		Summary:     "Get a job group",
		Errors:      []int{http.StatusNotFound},
	}, b.job)
	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard-export",
		Method:      http.MethodGet,
		Path:        "/dashboard-export/{exportId}",
		Summary:     "Get a dashboard export",
		Errors:      []int{http.StatusNotFound},
	}, b.dashboardExport)
	huma.Register(api, huma.Operation{
		OperationID: "explore-jobs",
		Method:      http.MethodGet,
		Path:        "/explore/job",
		Summary:     "List job groups to explore",
	}, b.exploreJobs)
	huma.Register(api, huma.Operation{
		OperationID: "explore-job-stats",
		Method:      http.MethodGet,
		Path:        "/explore/job/stats",
		Summary:     "Market stats per job group",
	}, b.exploreJobStats)
}

// scoringProject loads a project of the signed-in user with their profile.
func (b *backend) scoringProject(ctx context.Context, userID, projectID string) (generator.ScoringProject, error) {
	if err := requireUser(ctx, userID); err != nil {
		return generator.ScoringProject{}, err
	}
	rec, err := b.repo.GetUser(ctx, userID)
	if err != nil {
		return generator.ScoringProject{}, fmt.Errorf("user %s: %w", userID, err)
	}
	i := slices.IndexFunc(rec.User.Projects, func(p domain.Project) bool { return p.ProjectID == projectID })
	if i < 0 {
		return generator.ScoringProject{}, fmt.Errorf("project %s: %w", projectID, repo.ErrNotFound)
	}
	return b.gen.NewScoringProject(rec.User.Projects[i], rec.User.Profile), nil
}

func (b *backend) adviceTips(ctx context.Context, in *advicePathInput) (*tipsOutput, error) {
	sp, err := b.scoringProject(ctx, in.UserID, in.ProjectID)
	if err != nil {
		return nil, b.fail(err)
	}
	return &tipsOutput{Body: domain.AdviceTips{Tips: b.gen.TipsForAdvice(sp, in.AdviceID)}}, nil
}

func (b *backend) jobBoards(ctx context.Context, in *projectPathInput) (*jobBoardsOutput, error) {
	sp, err := b.scoringProject(ctx, in.UserID, in.ProjectID)
	if err != nil {
		return nil, b.fail(err)
	}
	boards := b.gen.JobBoards(sp)
	if boards == nil {
		boards = []domain.JobBoard{}
	}
	return &jobBoardsOutput{Body: domain.JobBoards{JobBoards: boards}}, nil
}

func (b *backend) requirements(ctx context.Context, in *rawBodyInput) (*requirementsOutput, error) {
	var p domain.Project
	if err := decodeBody(in.RawBody, &p); err != nil {
		return nil, b.fail(err)
	}
	if p.RomeID() == "" {
		return nil, newAPIError(http.StatusBadRequest, "project has no target job")
	}
	reqs, err := b.gen.Requirements(p.RomeID())
	if err != nil {
		return nil, b.fail(fmt.Errorf("job group %s: %w", p.RomeID(), err))
	}
	return &requirementsOutput{Body: reqs}, nil
}

func (b *backend) sendFeedback(ctx context.Context, in *rawBodyInput) (*struct{}, error) {
	var fb domain.Feedback
	if err := decodeBody(in.RawBody, &fb); err != nil {
		return nil, b.fail(err)
	}
	if strings.TrimSpace(fb.Feedback) == "" {
		return nil, newAPIError(http.StatusBadRequest, "feedback is required")
	}
	actor := "anonymous"
	if fb.UserID != "" {
		if err := requireUser(ctx, fb.UserID); err != nil {
			return nil, b.fail(err)
		}
		actor = fb.UserID
	}
	fb.CreatedAt = b.now()
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		if err := b.repo.InsertFeedback(ctx, tx, fb); err != nil {
			return err
		}
		return b.events.Append(ctx, tx, events.FeedbackSent, fb.UserID, "feedback", fb.ActionID, actor,
			events.EventPayload{"source": fb.Source, "projectId": fb.ProjectID, "adviceId": fb.AdviceID})
	})
	if err != nil {
		return nil, b.fail(err)
	}
	return nil, nil
}

func (b *backend) job(ctx context.Context, in *struct {
	RomeID string `path:"romeId"`
}) (*jobGroupOutput, error) {
	jg, err := b.gen.JobGroup(in.RomeID)
	if err != nil {
		return nil, b.fail(fmt.Errorf("job group %s: %w", in.RomeID, err))
	}
	return &jobGroupOutput{Body: jg}, nil
}

func (b *backend) dashboardExport(ctx context.Context, in *struct {
	ExportID string `path:"exportId"`
}) (*exportOutput, error) {
	exp, err := b.repo.GetDashboardExport(ctx, in.ExportID)
	if err != nil {
		return nil, b.fail(fmt.Errorf("dashboard export %s: %w", in.ExportID, err))
	}
	return &exportOutput{Body: exp}, nil
}

func (b *backend) exploreJobs(ctx context.Context, _ *struct{}) (*exploredJobsOutput, error) {
	return &exploredJobsOutput{Body: domain.ExploredJobs{JobGroups: b.gen.ExploreJobs()}}, nil
}

func (b *backend) exploreJobStats(ctx context.Context, _ *struct{}) (*jobStatsOutput, error) {
	return &jobStatsOutput{Body: domain.ExploredJobStats{JobGroups: b.gen.JobStats()}}, nil
}
