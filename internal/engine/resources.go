package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"bobemploi/internal/domain"
	"bobemploi/internal/reducer"
)

func (e *Engine) FetchAdviceTips(ctx context.Context, projectID, adviceID string) ([]domain.ActionTemplate, error) {
	userID := e.user().UserID
	return request(ctx, e,
		func(a reducer.Async, v []domain.ActionTemplate) reducer.Intent {
			return reducer.AdviceTipsFetched{Async: a, ProjectID: projectID, AdviceID: adviceID, Tips: v}
		},
		func(ctx context.Context) ([]domain.ActionTemplate, error) {
			return e.API.AdviceTips(ctx, userID, projectID, adviceID)
		})
}

func (e *Engine) FetchJobBoards(ctx context.Context, projectID string) ([]domain.JobBoard, error) {
	userID := e.user().UserID
	return request(ctx, e,
		func(a reducer.Async, v []domain.JobBoard) reducer.Intent {
			return reducer.JobBoardsFetched{Async: a, ProjectID: projectID, JobBoards: v}
		},
		func(ctx context.Context) ([]domain.JobBoard, error) { return e.API.JobBoards(ctx, userID, projectID) })
}

func (e *Engine) FetchRequirements(ctx context.Context, p domain.Project) (domain.JobRequirements, error) {
	romeID := p.RomeID()
	return request(ctx, e,
		func(a reducer.Async, v domain.JobRequirements) reducer.Intent {
			return reducer.RequirementsFetched{Async: a, RomeID: romeID, Requirements: v}
		},
		func(ctx context.Context) (domain.JobRequirements, error) { return e.API.ProjectRequirements(ctx, p) })
}

func (e *Engine) FetchJob(ctx context.Context, romeID string) (domain.JobGroup, error) {
	return request(ctx, e,
		func(a reducer.Async, v domain.JobGroup) reducer.Intent {
			return reducer.JobFetched{Async: a, RomeID: romeID, JobGroup: v}
		},
		func(ctx context.Context) (domain.JobGroup, error) { return e.API.Job(ctx, romeID) })
}

func (e *Engine) FetchDashboardExport(ctx context.Context, id string) (domain.DashboardExport, error) {
	return request(ctx, e,
		func(a reducer.Async, v domain.DashboardExport) reducer.Intent {
			return reducer.DashboardExportFetched{Async: a, Export: v}
		},
		func(ctx context.Context) (domain.DashboardExport, error) { return e.API.DashboardExport(ctx, id) })
}

func (e *Engine) ExploreJobs(ctx context.Context) ([]domain.JobGroup, error) {
	return request(ctx, e,
		func(a reducer.Async, v []domain.JobGroup) reducer.Intent {
			return reducer.JobsExplored{Async: a, JobGroups: v}
		},
		e.API.ExploreJobs)
}

func (e *Engine) ExploreJobStats(ctx context.Context) ([]domain.JobGroupStats, error) {
	return request(ctx, e,
		func(a reducer.Async, v []domain.JobGroupStats) reducer.Intent {
			return reducer.JobStatsFetched{Async: a, Stats: v}
		},
		e.API.ExploreJobStats)
}

// LoadProject fetches everything the project page shows: the tips of every
// advice, the job boards, and the requirements and details of the target job.
// Requests run concurrently; the first error cancels the others.
func (e *Engine) LoadProject(ctx context.Context, projectID string) error {
	p, err := e.project(projectID)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, a := range p.Advices {
		adviceID := a.AdviceID
		g.Go(func() error {
			_, err := e.FetchAdviceTips(ctx, projectID, adviceID)
			return err
		})
	}
	g.Go(func() error {
		_, err := e.FetchJobBoards(ctx, projectID)
		return err
	})
	if romeID := p.RomeID(); romeID != "" {
		g.Go(func() error {
			_, err := e.FetchRequirements(ctx, p)
			return err
		})
		g.Go(func() error {
			_, err := e.FetchJob(ctx, romeID)
			return err
		})
	}
	return g.Wait()
}
