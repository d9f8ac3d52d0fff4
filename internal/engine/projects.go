package engine

import (
	"context"
	"errors"
	"fmt"

	"bobemploi/internal/domain"
	"bobemploi/internal/reducer"
	"bobemploi/internal/selector"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrActionNotFound     = errors.New("action not found")
	ErrProjectNotEditable = errors.New("first project is already complete")
	ErrFeedbackRequired   = errors.New("feedback is required to finish an action")
	ErrReasonRequired     = errors.New("a reason is required to decline an action")
	ErrNoSteps            = errors.New("action has no steps to stick to")
	ErrStepNotFound       = errors.New("step not found")
	ErrStepDone           = errors.New("step already done")
)

// CreateProject starts the first project of the user. It does nothing if the
// user already has a project.
func (e *Engine) CreateProject(ctx context.Context, p domain.Project) error {
	if len(e.user().Projects) > 0 {
		return nil
	}
	e.Store.Dispatch(reducer.CreateProject{Project: p})
	return e.persist(ctx)
}

// EditFirstProject replaces the project under construction. It reports
// ErrProjectNotEditable rather than dispatching when the first project is
// already complete.
func (e *Engine) EditFirstProject(ctx context.Context, p domain.Project) error {
	if !selector.CanEditFirstProject(e.user()) {
		return ErrProjectNotEditable
	}
	e.Store.Dispatch(reducer.EditFirstProject{Project: p})
	return e.persist(ctx)
}

// FinishProjectCreation completes the project under construction, saves it and
// asks for a fresh action plan.
func (e *Engine) FinishProjectCreation(ctx context.Context) error {
	if _, ok := selector.IncompleteProject(e.user()); !ok {
		return ErrProjectNotFound
	}
	e.Store.Dispatch(reducer.FinishProjectCreation{Now: e.now()})
	if e.user().UserID == "" {
		return nil
	}
	if _, err := e.SaveUser(ctx); err != nil {
		return err
	}
	_, err := e.RefreshActionPlan(ctx)
	return err
}

func (e *Engine) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := e.project(projectID); err != nil {
		return err
	}
	e.Store.Dispatch(reducer.DeleteProject{ProjectID: projectID})
	return e.persist(ctx)
}

func (e *Engine) SetProjectStatus(ctx context.Context, projectID string, status domain.ProjectStatus) error {
	switch status {
	case domain.ProjectCurrent, domain.ProjectOnStandby, domain.ProjectCompleted:
	default:
		return fmt.Errorf("cannot set project status to %s", status)
	}
	if _, err := e.project(projectID); err != nil {
		return err
	}
	e.Store.Dispatch(reducer.SetProjectStatus{ProjectID: projectID, Status: status})
	return e.persist(ctx)
}

func (e *Engine) project(projectID string) (domain.Project, error) {
	p, ok := selector.FindProject(e.user(), projectID)
	if !ok {
		return domain.Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return p, nil
}

func (e *Engine) action(projectID, actionID string) (domain.Action, error) {
	p, err := e.project(projectID)
	if err != nil {
		return domain.Action{}, err
	}
	a, ok := selector.FindAction(p, actionID)
	if !ok {
		return domain.Action{}, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}
	return a, nil
}

// ensureAction checks the move against the state machine before anything is
// dispatched, so callers get an error instead of a silent no-op.
func (e *Engine) ensureAction(projectID, actionID string, to domain.ActionStatus) (domain.Action, error) {
	a, err := e.action(projectID, actionID)
	if err != nil {
		return a, err
	}
	from := a.Status
	if from == "" || from == domain.ActionUnread || from == domain.ActionSaved {
		if to != domain.ActionCurrent && to != domain.ActionSaved {
			// Opening the action is implied by acting on it.
			from = domain.ActionCurrent
		}
	}
	return a, domain.EnsureTransition(from, to)
}

// markRead opens an unread or saved action before acting on it.
func (e *Engine) markRead(projectID string, a domain.Action) {
	if domain.CanTransition(a.Status, domain.ActionCurrent) {
		e.Store.Dispatch(reducer.ReadAction{ProjectID: projectID, ActionID: a.ActionID})
	}
}

func (e *Engine) ReadAction(ctx context.Context, projectID, actionID string) error {
	a, err := e.action(projectID, actionID)
	if err != nil {
		return err
	}
	if a.Status == domain.ActionCurrent {
		return nil
	}
	if err := domain.EnsureTransition(a.Status, domain.ActionCurrent); err != nil {
		return err
	}
	e.Store.Dispatch(reducer.ReadAction{ProjectID: projectID, ActionID: actionID})
	return e.persist(ctx)
}

// FinishAction marks the action done with the user's feedback. The feedback
// text, if any, is also sent to the feedback endpoint.
func (e *Engine) FinishAction(ctx context.Context, projectID, actionID string, fb domain.ActionFeedback) error {
	if fb.IsEmpty() {
		return ErrFeedbackRequired
	}
	a, err := e.ensureAction(projectID, actionID, domain.ActionDone)
	if err != nil {
		return err
	}
	e.markRead(projectID, a)
	e.Store.Dispatch(reducer.FinishAction{ProjectID: projectID, ActionID: actionID, Feedback: fb, Now: e.now()})
	if fb.Text != "" {
		if err := e.SendFeedback(ctx, domain.Feedback{
			UserID:    e.user().UserID,
			ProjectID: projectID,
			ActionID:  actionID,
			Source:    "ACTION_FEEDBACK",
			Feedback:  fb.Text,
		}); err != nil {
			e.logger().Warn("sending action feedback failed", "action", actionID, "error", err)
		}
	}
	return e.persist(ctx)
}

// DeclineAction stops an action, either snoozed or declined for good.
func (e *Engine) DeclineAction(ctx context.Context, projectID, actionID string, status domain.ActionStatus, reason string) error {
	switch status {
	case domain.ActionSnoozed:
	case domain.ActionDeclined:
		if reason == "" {
			return ErrReasonRequired
		}
	default:
		return fmt.Errorf("cannot decline an action with status %s", status)
	}
	a, err := e.ensureAction(projectID, actionID, status)
	if err != nil {
		return err
	}
	e.markRead(projectID, a)
	e.Store.Dispatch(reducer.DeclineAction{ProjectID: projectID, ActionID: actionID, Status: status, Reason: reason, Now: e.now()})
	return e.persist(ctx)
}

// StickAction commits the user to the action's steps. Without explicit steps
// the action keeps those copied from its template.
func (e *Engine) StickAction(ctx context.Context, projectID, actionID string, steps []domain.StickyActionStep) error {
	a, err := e.ensureAction(projectID, actionID, domain.ActionStuck)
	if err != nil {
		return err
	}
	if len(steps) == 0 && len(a.Steps) == 0 {
		return ErrNoSteps
	}
	e.markRead(projectID, a)
	e.Store.Dispatch(reducer.StickAction{ProjectID: projectID, ActionID: actionID, Steps: steps, Now: e.now()})
	return e.persist(ctx)
}

func (e *Engine) FinishStickyActionStep(ctx context.Context, projectID, actionID, stepID, text string) error {
	a, err := e.action(projectID, actionID)
	if err != nil {
		return err
	}
	if a.Status != domain.ActionStuck {
		return domain.TransitionError{From: a.Status, To: domain.ActionStickyDone}
	}
	step, ok := selector.FindStep(a, stepID)
	switch {
	case !ok:
		return fmt.Errorf("step %s of action %s: %w", stepID, actionID, ErrStepNotFound)
	case step.IsDone:
		return fmt.Errorf("step %s of action %s: %w", stepID, actionID, ErrStepDone)
	}
	e.Store.Dispatch(reducer.FinishStickyActionStep{
		ProjectID: projectID, ActionID: actionID, StepID: stepID, Text: text, Now: e.now(),
	})
	return e.persist(ctx)
}

// SaveAction keeps an action, or an advice tip, for later.
func (e *Engine) SaveAction(ctx context.Context, projectID string, a domain.Action) error {
	if _, err := e.project(projectID); err != nil {
		return err
	}
	e.Store.Dispatch(reducer.SaveAction{ProjectID: projectID, Action: a, Now: e.now()})
	return e.persist(ctx)
}

// SaveTip saves an advice tip as an action of the project.
func (e *Engine) SaveTip(ctx context.Context, projectID string, tip domain.ActionTemplate) error {
	return e.SaveAction(ctx, projectID, tip.NewAction(tip.ActionTemplateID, e.now()))
}

func (e *Engine) ReadAdvice(ctx context.Context, projectID, adviceID string) error {
	if _, err := e.advice(projectID, adviceID); err != nil {
		return err
	}
	e.Store.Dispatch(reducer.AdviceWasRead{ProjectID: projectID, AdviceID: adviceID})
	return e.persist(ctx)
}

func (e *Engine) RateAdvice(ctx context.Context, projectID, adviceID string, stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", stars)
	}
	if _, err := e.advice(projectID, adviceID); err != nil {
		return err
	}
	e.Store.Dispatch(reducer.RateAdvice{ProjectID: projectID, AdviceID: adviceID, NumStars: stars})
	return e.persist(ctx)
}

func (e *Engine) advice(projectID, adviceID string) (domain.Advice, error) {
	p, err := e.project(projectID)
	if err != nil {
		return domain.Advice{}, err
	}
	a, ok := selector.FindAdvice(p, adviceID)
	if !ok {
		return domain.Advice{}, fmt.Errorf("advice %s not found in project %s", adviceID, projectID)
	}
	return a, nil
}

func (e *Engine) SetUserProfile(ctx context.Context, profile domain.UserProfile) error {
	e.Store.Dispatch(reducer.SetUserProfile{Profile: profile})
	return e.persist(ctx)
}

// LikeFeature records whether the user likes a feature; 0 clears the vote.
func (e *Engine) LikeFeature(ctx context.Context, feature string, score int) error {
	if feature == "" {
		return errors.New("feature is required")
	}
	e.Store.Dispatch(reducer.LikeFeature{Feature: feature, Score: score})
	u := e.user()
	if u.UserID == "" {
		return nil
	}
	req := domain.LikesRequest{UserID: u.UserID, Likes: u.Likes}
	_, err := request(ctx, e,
		func(a reducer.Async, _ struct{}) reducer.Intent { return reducer.LikesSaved{Async: a} },
		retrying(e, func(ctx context.Context) (struct{}, error) { return struct{}{}, e.API.SaveLikes(ctx, req) }))
	return err
}

func (e *Engine) SendFeedback(ctx context.Context, fb domain.Feedback) error {
	if fb.Feedback == "" {
		return errors.New("feedback text is required")
	}
	if fb.UserID == "" {
		fb.UserID = e.user().UserID
	}
	_, err := request(ctx, e,
		func(a reducer.Async, _ struct{}) reducer.Intent { return reducer.FeedbackSent{Async: a} },
		func(ctx context.Context) (struct{}, error) { return struct{}{}, e.API.SendFeedback(ctx, fb) })
	return err
}
