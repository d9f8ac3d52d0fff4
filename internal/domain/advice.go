package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type AdviceStatus string

const (
	AdviceRecommended AdviceStatus = "ADVICE_RECOMMENDED"
	AdviceRead        AdviceStatus = "ADVICE_READ"

	// Deprecated statuses, still accepted on the wire.
	AdviceAccepted       AdviceStatus = "ADVICE_ACCEPTED"
	AdviceDeclined       AdviceStatus = "ADVICE_DECLINED"
	AdviceEngaged        AdviceStatus = "ADVICE_ENGAGED"
	AdviceCanceled       AdviceStatus = "ADVICE_CANCELED"
	AdviceNotRecommended AdviceStatus = "ADVICE_NOT_RECOMMENDED"
)

type AdviceKind string

const (
	AdviceOtherWorkEnv           AdviceKind = "other-work-env"
	AdviceImproveSuccessRate     AdviceKind = "improve-success-rate"
	AdviceJobBoards              AdviceKind = "job-boards"
	AdviceSpontaneousApplication AdviceKind = "spontaneous-application"
	AdviceBetterJobInGroup       AdviceKind = "better-job-in-group"
)

// Advice is a recommendation module shown for a project. Data holds at most one
// kind-specific payload.
type Advice struct {
	AdviceID string       `json:"adviceId,omitempty"`
	Status   AdviceStatus `json:"status,omitempty"`
	NumStars int          `json:"numStars,omitempty"`
	Data     AdviceData   `json:"-"`
}

// AdviceData is implemented only by the payload types of this package, held
// by value or by pointer.
type AdviceData interface {
	Kind() AdviceKind
	isAdviceData()
}

type OtherWorkEnvAdviceData struct {
	WorkEnvironmentKeywords []string `json:"workEnvironmentKeywords,omitempty"`
}

type ImproveSuccessRateAdviceData struct {
	Requirements          []string `json:"requirements,omitempty"`
	NumInterviewsIncrease int      `json:"numInterviewsIncrease,omitempty"`
}

type JobBoardsAdviceData struct {
	JobBoardTitle        string `json:"jobBoardTitle,omitempty"`
	IsSpecificToJobGroup bool   `json:"isSpecificToJobGroup,omitempty"`
}

type SpontaneousApplicationAdviceData struct {
	Companies []Company `json:"companies,omitempty"`
}

type BetterJobInGroupAdviceData struct {
	BetterJob     Job `json:"betterJob,omitzero"`
	NumBetterJobs int `json:"numBetterJobs,omitempty"`
}

type Company struct {
	Name     string `json:"name,omitempty"`
	CityName string `json:"cityName,omitempty"`
}

func (OtherWorkEnvAdviceData) Kind() AdviceKind           { return AdviceOtherWorkEnv }
func (ImproveSuccessRateAdviceData) Kind() AdviceKind     { return AdviceImproveSuccessRate }
func (JobBoardsAdviceData) Kind() AdviceKind              { return AdviceJobBoards }
func (SpontaneousApplicationAdviceData) Kind() AdviceKind { return AdviceSpontaneousApplication }
func (BetterJobInGroupAdviceData) Kind() AdviceKind       { return AdviceBetterJobInGroup }

func (OtherWorkEnvAdviceData) isAdviceData()           {}
func (ImproveSuccessRateAdviceData) isAdviceData()     {}
func (JobBoardsAdviceData) isAdviceData()              {}
func (SpontaneousApplicationAdviceData) isAdviceData() {}
func (BetterJobInGroupAdviceData) isAdviceData()       {}

var (
	ErrAmbiguousAdviceData = errors.New("advice carries more than one extra data payload")
	ErrUnknownAdviceData   = errors.New("unknown advice data payload")
)

// adviceValue returns the payload held by value. Nil and nil pointers give
// nil.
func adviceValue(d AdviceData) (AdviceData, error) {
	switch d := d.(type) {
	case nil:
		return nil, nil
	case OtherWorkEnvAdviceData, ImproveSuccessRateAdviceData, JobBoardsAdviceData,
		SpontaneousApplicationAdviceData, BetterJobInGroupAdviceData:
		return d, nil
	case *OtherWorkEnvAdviceData:
		return derefAdvice(d)
	case *ImproveSuccessRateAdviceData:
		return derefAdvice(d)
	case *JobBoardsAdviceData:
		return derefAdvice(d)
	case *SpontaneousApplicationAdviceData:
		return derefAdvice(d)
	case *BetterJobInGroupAdviceData:
		return derefAdvice(d)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownAdviceData, d)
}

func derefAdvice[T AdviceData](d *T) (AdviceData, error) {
	if d == nil {
		return nil, nil
	}
	return *d, nil
}

type adviceFields Advice

type adviceWire struct {
	adviceFields
	OtherWorkEnv           *OtherWorkEnvAdviceData           `json:"otherWorkEnvAdviceData,omitempty"`
	ImproveSuccessRate     *ImproveSuccessRateAdviceData     `json:"improveSuccessRateData,omitempty"`
	JobBoards              *JobBoardsAdviceData              `json:"jobBoardsData,omitempty"`
	SpontaneousApplication *SpontaneousApplicationAdviceData `json:"spontaneousApplicationData,omitempty"`
	BetterJobInGroup       *BetterJobInGroupAdviceData       `json:"betterJobInGroupData,omitempty"`
}

// Kind returns the kind of the extra data payload, or "" without one.
func (a Advice) Kind() AdviceKind {
	d, err := adviceValue(a.Data)
	if err != nil || d == nil {
		return ""
	}
	return d.Kind()
}

func (a Advice) MarshalJSON() ([]byte, error) {
	data, err := adviceValue(a.Data)
	if err != nil {
		return nil, err
	}
	w := adviceWire{adviceFields: adviceFields(a)}
	switch d := data.(type) {
	case OtherWorkEnvAdviceData:
		w.OtherWorkEnv = &d
	case ImproveSuccessRateAdviceData:
		w.ImproveSuccessRate = &d
	case JobBoardsAdviceData:
		w.JobBoards = &d
	case SpontaneousApplicationAdviceData:
		w.SpontaneousApplication = &d
	case BetterJobInGroupAdviceData:
		w.BetterJobInGroup = &d
	}
	return json.Marshal(w)
}

func (a *Advice) UnmarshalJSON(data []byte) error {
	var w adviceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Advice(w.adviceFields)
	var payloads []AdviceData
	if w.OtherWorkEnv != nil {
		payloads = append(payloads, *w.OtherWorkEnv)
	}
	if w.ImproveSuccessRate != nil {
		payloads = append(payloads, *w.ImproveSuccessRate)
	}
	if w.JobBoards != nil {
		payloads = append(payloads, *w.JobBoards)
	}
	if w.SpontaneousApplication != nil {
		payloads = append(payloads, *w.SpontaneousApplication)
	}
	if w.BetterJobInGroup != nil {
		payloads = append(payloads, *w.BetterJobInGroup)
	}
	if len(payloads) > 1 {
		return ErrAmbiguousAdviceData
	}
	if len(payloads) == 1 {
		a.Data = payloads[0]
	}
	return nil
}
