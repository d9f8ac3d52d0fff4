package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
	"bobemploi/internal/reducer"
	"bobemploi/internal/store"
	bobsdk "bobemploi/sdk/go"
)

// API is the part of the backend the engine talks to. *bobsdk.Client
// implements it.
type API interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	SaveUser(ctx context.Context, u *domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, u *domain.User) (*domain.User, error)
	Authenticate(ctx context.Context, req domain.AuthRequest) (*domain.AuthResponse, error)
	SaveLikes(ctx context.Context, req domain.LikesRequest) error
	RefreshActionPlan(ctx context.Context, u *domain.User) (*domain.User, error)
	MigrateToAdvisor(ctx context.Context, userID string) (*domain.User, error)
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (*domain.AuthResponse, error)
	RecordAppUse(ctx context.Context, userID string) (*domain.User, error)
	AdviceTips(ctx context.Context, userID, projectID, adviceID string) ([]domain.ActionTemplate, error)
	JobBoards(ctx context.Context, userID, projectID string) ([]domain.JobBoard, error)
	ProjectRequirements(ctx context.Context, p domain.Project) (domain.JobRequirements, error)
	SendFeedback(ctx context.Context, fb domain.Feedback) error
	Job(ctx context.Context, romeID string) (domain.JobGroup, error)
	DashboardExport(ctx context.Context, id string) (domain.DashboardExport, error)
	ExploreJobs(ctx context.Context) ([]domain.JobGroup, error)
	ExploreJobStats(ctx context.Context) ([]domain.JobGroupStats, error)
}

// tokenSetter is implemented by API clients that send a bearer token.
type tokenSetter interface {
	SetAuthToken(token string)
}

// Engine turns user operations into intents and API calls. Local changes
// are dispatched before the request that persists them; a failed save leaves
// the local state as is and raises the error banner.
type Engine struct {
	Store   *store.Store
	API     API
	Logger  *slog.Logger
	Now     func() time.Time
	Backoff func() backoff.BackOff
}

func New(st *store.Store, api API, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	retry := config.Default().Client.Retry
	if cfg != nil {
		retry = cfg.Client.Retry
	}
	return &Engine{
		Store:  st,
		API:    api,
		Logger: logger,
		Now:    time.Now,
		Backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retry.InitialInterval
			b.MaxInterval = retry.MaxInterval
			b.MaxElapsedTime = retry.MaxElapsedTime
			return b
		},
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// State returns the current store state.
func (e *Engine) State() *reducer.State {
	return e.Store.GetState()
}

func (e *Engine) user() *domain.User {
	if u := e.State().User; u != nil {
		return u
	}
	return &domain.User{}
}

// request wraps an API call with the sending, success and error intents
// built by mk.
func request[T any](ctx context.Context, e *Engine, mk func(reducer.Async, T) reducer.Intent, call func(context.Context) (T, error)) (T, error) {
	var zero T
	e.Store.Dispatch(mk(reducer.Async{Status: reducer.Sending}, zero))
	v, err := call(ctx)
	if err != nil {
		status := reducer.Failed
		if abandoned(ctx, err) {
			status = reducer.Canceled
		}
		e.Store.Dispatch(mk(reducer.Async{Status: status, Err: err}, zero))
		return zero, err
	}
	e.Store.Dispatch(mk(reducer.Async{Status: reducer.Succeeded}, v))
	return v, nil
}

// abandoned reports whether err only reflects ctx being cancelled on behalf
// of another failure, as errgroup does when a sibling returns an error.
func abandoned(ctx context.Context, err error) bool {
	if !errors.Is(err, context.Canceled) || ctx.Err() == nil {
		return false
	}
	cause := context.Cause(ctx)
	return cause != nil && !errors.Is(cause, context.Canceled)
}

// retrying runs call with exponential backoff. Client errors are not retried.
func retrying[T any](e *Engine, call func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var out T
		op := func() error {
			v, err := call(ctx)
			if err != nil {
				if !retryable(err) {
					return backoff.Permanent(err)
				}
				e.logger().Debug("retrying request", "error", err)
				return err
			}
			out = v
			return nil
		}
		b := backoff.BackOff(&backoff.StopBackOff{})
		if e.Backoff != nil {
			b = e.Backoff()
		}
		err := backoff.Retry(op, backoff.WithContext(b, ctx))
		return out, err
	}
}

func retryable(err error) bool {
	if errors.Is(err, bobsdk.ErrTransport) {
		return true
	}
	var apiErr *bobsdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// SaveUser persists the current local user, retrying transient failures.
func (e *Engine) SaveUser(ctx context.Context) (*domain.User, error) {
	u := e.user()
	saved, err := request(ctx, e,
		func(a reducer.Async, v *domain.User) reducer.Intent { return reducer.UserSaved{Async: a, User: v} },
		retrying(e, func(ctx context.Context) (*domain.User, error) { return e.API.SaveUser(ctx, u) }))
	if err != nil {
		e.logger().Warn("saving user failed; keeping local changes", "user", u.UserID, "error", err)
	}
	return saved, err
}

// persist saves the user after an optimistic local change, unless the user
// has never been registered.
func (e *Engine) persist(ctx context.Context) error {
	if e.user().UserID == "" {
		return nil
	}
	_, err := e.SaveUser(ctx)
	return err
}

func (e *Engine) FetchUser(ctx context.Context, userID string) (*domain.User, error) {
	return request(ctx, e,
		func(a reducer.Async, v *domain.User) reducer.Intent { return reducer.UserFetched{Async: a, User: v} },
		func(ctx context.Context) (*domain.User, error) { return e.API.GetUser(ctx, userID) })
}

func (e *Engine) RefreshActionPlan(ctx context.Context) (*domain.User, error) {
	u := e.user()
	return request(ctx, e,
		func(a reducer.Async, v *domain.User) reducer.Intent { return reducer.ActionPlanRefreshed{Async: a, User: v} },
		func(ctx context.Context) (*domain.User, error) { return e.API.RefreshActionPlan(ctx, u) })
}

func (e *Engine) MigrateToAdvisor(ctx context.Context) (*domain.User, error) {
	userID := e.user().UserID
	return request(ctx, e,
		func(a reducer.Async, v *domain.User) reducer.Intent { return reducer.MigratedToAdvisor{Async: a, User: v} },
		func(ctx context.Context) (*domain.User, error) { return e.API.MigrateToAdvisor(ctx, userID) })
}

func (e *Engine) RecordAppUse(ctx context.Context) (*domain.User, error) {
	userID := e.user().UserID
	return request(ctx, e,
		func(a reducer.Async, v *domain.User) reducer.Intent { return reducer.AppUseRecorded{Async: a, User: v} },
		func(ctx context.Context) (*domain.User, error) { return e.API.RecordAppUse(ctx, userID) })
}

// DeleteUser deletes the user's data on the server, then resets local state.
func (e *Engine) DeleteUser(ctx context.Context) error {
	u := e.user()
	_, err := request(ctx, e,
		func(a reducer.Async, _ *domain.User) reducer.Intent { return reducer.UserDeleted{Async: a} },
		func(ctx context.Context) (*domain.User, error) { return e.API.DeleteUser(ctx, u) })
	return err
}

// Logout forgets the user and the auth token locally.
func (e *Engine) Logout() {
	e.Store.Dispatch(reducer.Logout{})
	if ts, ok := e.API.(tokenSetter); ok {
		ts.SetAuthToken("")
	}
}

func (e *Engine) HideErrorMessage() {
	e.Store.Dispatch(reducer.HideErrorMessage{})
}
