package domain

import (
	"slices"
	"time"
)

// User is the root aggregate of the client state.
type User struct {
	UserID          string         `json:"userId,omitempty"`
	Profile         UserProfile    `json:"profile,omitzero"`
	Projects        []Project      `json:"projects,omitempty"`
	DeletedProjects []Project      `json:"deletedProjects,omitempty"`
	FeaturesEnabled Features       `json:"featuresEnabled,omitzero"`
	Likes           map[string]int `json:"likes,omitempty"`
	RegisteredAt    time.Time      `json:"registeredAt,omitzero"`
	LastAppUseAt    time.Time      `json:"lastAppUseAt,omitzero"`
}

type UserProfile struct {
	Name          string   `json:"name,omitempty"`
	LastName      string   `json:"lastName,omitempty"`
	Email         string   `json:"email,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	YearOfBirth   int      `json:"yearOfBirth,omitempty"`
	HighestDegree string   `json:"highestDegree,omitempty"`
	Situation     string   `json:"situation,omitempty"`
	EmailDays     []string `json:"emailDays,omitempty"`
}

const (
	GenderFeminine  = "FEMININE"
	GenderMasculine = "MASCULINE"

	SituationEmployed = "EMPLOYED"
	SituationLostQuit = "LOST_QUIT"
)

// DegreeLevels lists the values of UserProfile.HighestDegree, lowest first.
var DegreeLevels = []string{
	"NO_DEGREE",
	"CAP_BEP",
	"BAC_BACPRO",
	"BTS_DUT_DEUG",
	"LICENCE_MAITRISE",
	"DEA_DESS_MASTER_PHD",
}

// DegreeRank returns the position of the degree in DegreeLevels, or -1.
func DegreeRank(degree string) int {
	return slices.Index(DegreeLevels, degree)
}

// Features holds the feature flags enabled for a user.
type Features struct {
	Advisor       bool `json:"advisor,omitempty"`
	AdvisorEmail  bool `json:"advisorEmail,omitempty"`
	StickyActions bool `json:"stickyActions,omitempty"`
}

// IsEmpty reports whether the user carries no data at all.
func (u *User) IsEmpty() bool {
	return u == nil || (u.UserID == "" && len(u.Projects) == 0 && len(u.DeletedProjects) == 0 &&
		u.Profile.Email == "" && u.Profile.Name == "")
}
