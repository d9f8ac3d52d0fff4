package generator

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
)

// passScore is what a filter scores when the project matches it.
const passScore = 3

// ScoringProject is what scoring models look at: a project, the profile of
// its owner and the catalog entry of the job group it targets.
type ScoringProject struct {
	Project  domain.Project
	Profile  domain.UserProfile
	JobGroup config.CatalogJobGroup
	Now      time.Time
}

// NewScoringProject resolves the job group of the project from the catalog.
func (g Generator) NewScoringProject(p domain.Project, profile domain.UserProfile) ScoringProject {
	group, _ := g.Catalog.FindJobGroup(p.RomeID())
	return ScoringProject{Project: p, Profile: profile, JobGroup: group, Now: g.now()}
}

func (sp ScoringProject) age() (int, bool) {
	if sp.Profile.YearOfBirth <= 0 {
		return 0, false
	}
	return sp.Now.Year() - sp.Profile.YearOfBirth, true
}

// ScoringModel scores a project. Filters score passScore or 0.
type ScoringModel interface {
	Score(sp ScoringProject) float64
}

type scoreFunc func(sp ScoringProject) float64

func (f scoreFunc) Score(sp ScoringProject) float64 { return f(sp) }

type constantScore float64

func (c constantScore) Score(ScoringProject) float64 { return float64(c) }

func filterOn(match func(sp ScoringProject) bool) ScoringModel {
	return scoreFunc(func(sp ScoringProject) float64 {
		if match(sp) {
			return passScore
		}
		return 0
	})
}

func degreeFilter(match func(rank int) bool) ScoringModel {
	return filterOn(func(sp ScoringProject) bool {
		rank := domain.DegreeRank(sp.Profile.HighestDegree)
		return rank >= 0 && match(rank)
	})
}

// defaultModel scores items with no or unknown filters. It lets them through.
const defaultModel = ""

var scoringModels = map[string]ScoringModel{
	defaultModel: constantScore(1),

	"for-job-group": filterOn(func(sp ScoringProject) bool {
		return sp.JobGroup.RomeID != ""
	}),
	"for-driving-license": filterOn(func(sp ScoringProject) bool {
		return len(sp.JobGroup.DrivingLicenses) > 0
	}),
	"for-women": filterOn(func(sp ScoringProject) bool {
		return sp.Profile.Gender == domain.GenderFeminine
	}),
	"for-unemployed": filterOn(func(sp ScoringProject) bool {
		return sp.Profile.Situation != "" && sp.Profile.Situation != domain.SituationEmployed
	}),
	"for-not-employed-anymore": filterOn(func(sp ScoringProject) bool {
		return sp.Profile.Situation == domain.SituationLostQuit
	}),
	"for-young(25)": filterOn(func(sp ScoringProject) bool {
		age, ok := sp.age()
		return ok && age < 25
	}),
	"for-old(50)": filterOn(func(sp ScoringProject) bool {
		age, ok := sp.age()
		return ok && age > 50
	}),
	"for-qualified(bac+3)": degreeFilter(func(rank int) bool {
		return rank >= domain.DegreeRank("LICENCE_MAITRISE")
	}),
	"for-unqualified(bac)": degreeFilter(func(rank int) bool {
		return rank <= domain.DegreeRank("BAC_BACPRO")
	}),
	"for-searching-forever": filterOn(func(sp ScoringProject) bool {
		return !sp.Project.CreatedAt.IsZero() && sp.Now.Sub(sp.Project.CreatedAt) >= 540*day
	}),
}

type modelPattern struct {
	re    *regexp.Regexp
	build func(arg string) ScoringModel
}

// modelPatterns build models from parameterized names. A nil model means the
// name is unknown.
var modelPatterns []modelPattern

func init() {
	modelPatterns = []modelPattern{
		// for-job-group(D11) or for-job-group(D11, G16): rome id prefixes.
		{regexp.MustCompile(`^for-job-group\((.+)\)$`), func(arg string) ScoringModel {
			prefixes := splitArgs(arg)
			return filterOn(func(sp ScoringProject) bool {
				romeID := sp.Project.RomeID()
				for _, prefix := range prefixes {
					if romeID != "" && strings.HasPrefix(romeID, prefix) {
						return true
					}
				}
				return false
			})
		}},
		// for-departement(69) or for-departement(69, 75).
		{regexp.MustCompile(`^for-departement\((.+)\)$`), func(arg string) ScoringModel {
			deps := splitArgs(arg)
			return filterOn(func(sp ScoringProject) bool {
				if sp.Project.City == nil {
					return false
				}
				for _, d := range deps {
					if sp.Project.City.DepartementID == d {
						return true
					}
				}
				return false
			})
		}},
		{regexp.MustCompile(`^not-(.+)$`), func(arg string) ScoringModel {
			negated, ok := lookupModel(arg)
			if !ok {
				return nil
			}
			return scoreFunc(func(sp ScoringProject) float64 { return passScore - negated.Score(sp) })
		}},
		{regexp.MustCompile(`^constant\((.+)\)$`), func(arg string) ScoringModel {
			v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
			if err != nil {
				return nil
			}
			return constantScore(v)
		}},
	}
}

func splitArgs(arg string) []string {
	var out []string
	for _, part := range strings.Split(arg, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// lookupModel finds a scoring model by name.
func lookupModel(name string) (ScoringModel, bool) {
	if m, ok := scoringModels[name]; ok {
		return m, true
	}
	for _, p := range modelPatterns {
		if match := p.re.FindStringSubmatch(name); match != nil {
			if m := p.build(match[1]); m != nil {
				return m, true
			}
			return nil, false
		}
	}
	return nil, false
}

// filterHelper scores one project against filters, remembering each score.
type filterHelper struct {
	project ScoringProject
	logger  *slog.Logger
	scores  map[string]float64
}

func (g Generator) newFilterHelper(sp ScoringProject) *filterHelper {
	return &filterHelper{project: sp, logger: g.logger(), scores: map[string]float64{}}
}

func (h *filterHelper) score(name string) float64 {
	if s, ok := h.scores[name]; ok {
		return s
	}
	m, ok := lookupModel(name)
	if !ok {
		h.logger.Warn("unknown scoring model, using default", "model", name)
		m = scoringModels[defaultModel]
	}
	s := m.Score(h.project)
	h.scores[name] = s
	return s
}

// apply reports whether every filter scores above zero. No filters pass.
func (h *filterHelper) apply(filters []string) bool {
	for _, f := range filters {
		if h.score(f) <= 0 {
			return false
		}
	}
	return true
}

// filterUsingScore keeps the items whose filters all pass for the project.
func filterUsingScore[T any](items []T, filters func(T) []string, h *filterHelper) []T {
	var out []T
	for _, item := range items {
		if h.apply(filters(item)) {
			out = append(out, item)
		}
	}
	return out
}
