package bobsdk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"bobemploi/internal/domain"
)

// GetUser fetches the user with the given id.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var resp domain.User
	err := c.getJSON(ctx, "api/user/"+url.PathEscape(userID), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveUser stores the user and returns the server's version of it.
func (c *Client) SaveUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	return c.postUser(ctx, "api/user", u)
}

// DeleteUser deletes the user's data. The server answers with the deleted id.
func (c *Client) DeleteUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	var resp domain.User
	if err := c.deleteJSON(ctx, "api/user", u, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Authenticate(ctx context.Context, req domain.AuthRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.postJSON(ctx, "api/user/authenticate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveLikes sends the feature likes; the answer is not decoded.
func (c *Client) SaveLikes(ctx context.Context, req domain.LikesRequest) error {
	return c.postNoResponse(ctx, "api/user/likes", req)
}

// RefreshActionPlan asks the server to regenerate the actions of the user's
// current projects.
func (c *Client) RefreshActionPlan(ctx context.Context, u *domain.User) (*domain.User, error) {
	return c.postUser(ctx, "api/user/refresh-action-plan", u)
}

func (c *Client) MigrateToAdvisor(ctx context.Context, userID string) (*domain.User, error) {
	return c.postUser(ctx, fmt.Sprintf("api/user/%s/migrate-to-advisor", url.PathEscape(userID)), nil)
}

func (c *Client) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	if err := c.postJSON(ctx, "api/user/reset-password", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordAppUse marks that the user opened the app.
func (c *Client) RecordAppUse(ctx context.Context, userID string) (*domain.User, error) {
	return c.postUser(ctx, "api/app/use/"+url.PathEscape(userID), nil)
}

// AdviceTips lists the tips of an advice.
func (c *Client) AdviceTips(ctx context.Context, userID, projectID, adviceID string) ([]domain.ActionTemplate, error) {
	var resp domain.AdviceTips
	endpoint := fmt.Sprintf("api/project/%s/%s/advice/%s/tips",
		url.PathEscape(userID), url.PathEscape(projectID), url.PathEscape(adviceID))
	err := c.getJSON(ctx, endpoint, &resp)
	return resp.Tips, err
}

func (c *Client) JobBoards(ctx context.Context, userID, projectID string) ([]domain.JobBoard, error) {
	var resp domain.JobBoards
	endpoint := fmt.Sprintf("api/project/%s/%s/jobboards", url.PathEscape(userID), url.PathEscape(projectID))
	err := c.getJSON(ctx, endpoint, &resp)
	return resp.JobBoards, err
}

// ProjectRequirements returns what the targeted job group asks of candidates.
func (c *Client) ProjectRequirements(ctx context.Context, p domain.Project) (domain.JobRequirements, error) {
	var resp domain.JobRequirements
	err := c.postJSON(ctx, "api/project/requirements", p, &resp)
	return resp, err
}

func (c *Client) SendFeedback(ctx context.Context, fb domain.Feedback) error {
	return c.postNoResponse(ctx, "api/feedback", fb)
}

// Job fetches a job group. Results are cached.
func (c *Client) Job(ctx context.Context, romeID string) (domain.JobGroup, error) {
	var resp domain.JobGroup
	err := c.getCached(ctx, "api/jobs/"+url.PathEscape(romeID), &resp)
	return resp, err
}

func (c *Client) DashboardExport(ctx context.Context, id string) (domain.DashboardExport, error) {
	var resp domain.DashboardExport
	err := c.getJSON(ctx, "api/dashboard-export/"+url.PathEscape(id), &resp)
	return resp, err
}

func (c *Client) ExploreJobs(ctx context.Context) ([]domain.JobGroup, error) {
	var resp domain.ExploredJobs
	err := c.getJSON(ctx, "api/explore/job", &resp)
	return resp.JobGroups, err
}

// ExploreJobStats returns market stats per job group. Results are cached.
func (c *Client) ExploreJobStats(ctx context.Context) ([]domain.JobGroupStats, error) {
	var resp domain.ExploredJobStats
	err := c.getCached(ctx, "api/explore/job/stats", &resp)
	return resp.JobGroups, err
}

func (c *Client) postUser(ctx context.Context, endpoint string, u *domain.User) (*domain.User, error) {
	var resp domain.User
	var body any
	if u != nil {
		body = u
	}
	if err := c.postJSON(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateDashboardExport freezes the user's projects so an advisor can see them.
func (c *Client) CreateDashboardExport(ctx context.Context, userID string) (domain.DashboardExport, error) {
	var resp domain.DashboardExport
	err := c.postJSON(ctx, fmt.Sprintf("api/user/%s/dashboard-export", url.PathEscape(userID)), nil, &resp)
	return resp, err
}

// Events lists the user's audit log, newest first. A zero cursor starts from
// the latest event.
func (c *Client) Events(ctx context.Context, userID string, limit int, cursor int64) (domain.EventsPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor > 0 {
		q.Set("cursor", strconv.FormatInt(cursor, 10))
	}
	endpoint := fmt.Sprintf("api/user/%s/events", url.PathEscape(userID))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp domain.EventsPage
	err := c.getJSON(ctx, endpoint, &resp)
	return resp, err
}
