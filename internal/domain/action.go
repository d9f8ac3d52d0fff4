package domain

import (
	"errors"
	"fmt"
	"time"
)

type ActionStatus string

const (
	ActionUnread     ActionStatus = "ACTION_UNREAD"
	ActionCurrent    ActionStatus = "ACTION_CURRENT"
	ActionStuck      ActionStatus = "ACTION_STUCK"
	ActionDone       ActionStatus = "ACTION_DONE"
	ActionSnoozed    ActionStatus = "ACTION_SNOOZED"
	ActionDeclined   ActionStatus = "ACTION_DECLINED"
	ActionStickyDone ActionStatus = "ACTION_STICKY_DONE"
	ActionSaved      ActionStatus = "ACTION_SAVED"
)

// Action is a single recommended step of a project.
type Action struct {
	ActionID         string             `json:"actionId,omitempty"`
	ActionTemplateID string             `json:"actionTemplateId,omitempty"`
	Title            string             `json:"title,omitempty"`
	ShortDescription string             `json:"shortDescription,omitempty"`
	Link             string             `json:"link,omitempty"`
	Status           ActionStatus       `json:"status,omitempty"`
	CreatedAt        time.Time          `json:"createdAt,omitzero"`
	StoppedAt        time.Time          `json:"stoppedAt,omitzero"`
	StuckAt          time.Time          `json:"stuckAt,omitzero"`
	EndOfCoolDown    time.Time          `json:"endOfCoolDown,omitzero"`
	Steps            []StickyActionStep `json:"steps,omitempty"`
	Feedback         *ActionFeedback    `json:"feedback,omitempty"`
	DeclineReason    string             `json:"declineReason,omitempty"`
}

// StickyActionStep is one step of an action the user committed to track.
type StickyActionStep struct {
	StepID                 string    `json:"stepId,omitempty"`
	Title                  string    `json:"title,omitempty"`
	ActiveDurationMinutes  int       `json:"activeDurationMinutes,omitempty"`
	WaitingDurationMinutes int       `json:"waitingDurationMinutes,omitempty"`
	Text                   string    `json:"text,omitempty"`
	IsDone                 bool      `json:"isDone,omitempty"`
	FinishedAt             time.Time `json:"finishedAt,omitzero"`
}

// ActionFeedback is captured when the user completes an action.
type ActionFeedback struct {
	Usefulness int    `json:"usefulness,omitempty"`
	Text       string `json:"text,omitempty"`
}

func (f *ActionFeedback) IsEmpty() bool {
	return f == nil || (f.Usefulness == 0 && f.Text == "")
}

var ErrInvalidTransition = errors.New("invalid action status transition")

// TransitionError reports a move the action state machine does not allow.
type TransitionError struct {
	From ActionStatus
	To   ActionStatus
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid action status transition %s -> %s", e.From, e.To)
}

func (e TransitionError) Unwrap() error { return ErrInvalidTransition }

// IsTerminal reports whether the status can only be left through a save.
func (s ActionStatus) IsTerminal() bool {
	switch s {
	case ActionDone, ActionDeclined, ActionStickyDone:
		return true
	}
	return false
}

// IsPast reports whether actions in that status live in a project's pastActions.
func (s ActionStatus) IsPast() bool {
	return s.IsTerminal() || s == ActionSnoozed
}

// CanTransition reports whether an action may move from one status to another.
func CanTransition(from, to ActionStatus) bool {
	if from == "" {
		from = ActionUnread
	}
	if to == ActionSaved {
		return from != ActionSaved
	}
	switch from {
	case ActionUnread, ActionSaved:
		return to == ActionCurrent
	case ActionCurrent:
		return to == ActionDone || to == ActionStuck || to == ActionSnoozed || to == ActionDeclined
	case ActionStuck:
		return to == ActionStickyDone
	}
	return false
}

// EnsureTransition returns a TransitionError when the move is not allowed.
func EnsureTransition(from, to ActionStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return TransitionError{From: from, To: to}
}
