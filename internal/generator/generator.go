// Package generator builds action plans and advice modules for projects from
// the reference catalog.
package generator

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"bobemploi/internal/config"
	"bobemploi/internal/domain"
)

const day = 24 * time.Hour

// Generator refreshes action plans. Zero values of Now, NewID and Logger
// fall back to time.Now, random UUIDs and slog.Default.
type Generator struct {
	Catalog        config.Catalog
	ActionsPerPlan int
	Now            func() time.Time
	NewID          func() string
	Logger         *slog.Logger
}

func New(cfg *config.Config) Generator {
	return Generator{
		Catalog:        cfg.Catalog,
		ActionsPerPlan: cfg.Generator.ActionsPerPlan,
	}
}

func (g Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g Generator) newID() string {
	if g.NewID != nil {
		return g.NewID()
	}
	return uuid.NewString()
}

// RefreshPlan returns a copy of u where every live, complete project has its
// advices computed, its cool-downs stamped and up to ActionsPerPlan open
// actions. It also returns how many actions were added.
func (g Generator) RefreshPlan(u *domain.User) (*domain.User, int) {
	if u == nil {
		return nil, 0
	}
	out := *u
	out.Projects = slices.Clone(u.Projects)
	added := 0
	for i := range out.Projects {
		p := &out.Projects[i]
		if !p.IsLive() || p.IsIncomplete {
			continue
		}
		added += g.refresh(p, u.Profile)
	}
	return &out, added
}

// RefreshProject refreshes the plan of a single project, whatever its status.
func (g Generator) RefreshProject(p domain.Project, profile domain.UserProfile) (domain.Project, int) {
	n := g.refresh(&p, profile)
	return p, n
}

func (g Generator) refresh(p *domain.Project, profile domain.UserProfile) int {
	sp := g.NewScoringProject(*p, profile)
	if len(p.Advices) == 0 {
		p.Advices = g.Advices(sp)
	}
	p.PastActions = g.stampCoolDowns(p.PastActions)
	return g.fillPlan(p, sp)
}

// stampCoolDowns sets the end of cool-down of finished actions that have none.
func (g Generator) stampCoolDowns(past []domain.Action) []domain.Action {
	var out []domain.Action
	for i, a := range past {
		if a.Status != domain.ActionDone && a.Status != domain.ActionStickyDone {
			continue
		}
		if !a.EndOfCoolDown.IsZero() || a.StoppedAt.IsZero() {
			continue
		}
		t, ok := g.template(a.ActionTemplateID)
		if !ok || t.CoolDownDays <= 0 {
			continue
		}
		if out == nil {
			out = slices.Clone(past)
		}
		out[i].EndOfCoolDown = a.StoppedAt.Add(time.Duration(t.CoolDownDays) * day)
	}
	if out == nil {
		return past
	}
	return out
}

func (g Generator) fillPlan(p *domain.Project, sp ScoringProject) int {
	now := sp.Now
	excluded := map[string]bool{}
	open := 0
	for _, a := range p.Actions {
		excluded[a.ActionTemplateID] = true
		if a.Status == domain.ActionUnread || a.Status == domain.ActionCurrent || a.Status == "" {
			open++
		}
	}
	for _, a := range p.StickyActions {
		excluded[a.ActionTemplateID] = true
	}
	for _, a := range p.PastActions {
		switch {
		case a.Status == domain.ActionDeclined:
			excluded[a.ActionTemplateID] = true
		case a.EndOfCoolDown.After(now):
			excluded[a.ActionTemplateID] = true
		}
	}
	need := g.ActionsPerPlan - open
	if need <= 0 {
		p.ActionsGeneratedAt = now
		return 0
	}
	var fresh []domain.Action
	sp.Project.Advices = p.Advices
	for _, t := range g.candidates(sp) {
		if len(fresh) == need {
			break
		}
		if t.ID == "" || excluded[t.ID] {
			continue
		}
		excluded[t.ID] = true
		// Creation times follow catalog order.
		created := now.Add(time.Duration(len(fresh)) * time.Millisecond)
		fresh = append(fresh, t.Template().NewAction(g.newID(), created))
	}
	if len(fresh) > 0 {
		p.Actions = append(slices.Clone(p.Actions), fresh...)
	}
	p.ActionsGeneratedAt = now
	return len(fresh)
}

// candidates lists the templates whose filters pass, those tied to one of the
// project's advices first, then the others, each group in catalog order.
func (g Generator) candidates(sp ScoringProject) []config.ActionTemplate {
	kinds := map[domain.AdviceKind]bool{}
	for _, a := range sp.Project.Advices {
		if k := g.adviceKind(a); k != "" {
			kinds[k] = true
		}
	}
	var first, rest []config.ActionTemplate
	for _, t := range g.templates(sp) {
		if kinds[domain.AdviceKind(t.AdviceKind)] {
			first = append(first, t)
		} else {
			rest = append(rest, t)
		}
	}
	return append(first, rest...)
}

func (g Generator) adviceKind(a domain.Advice) domain.AdviceKind {
	if k := a.Kind(); k != "" {
		return k
	}
	for _, c := range g.Catalog.Advices {
		if c.ID == a.AdviceID {
			return domain.AdviceKind(c.Kind)
		}
	}
	return ""
}

func (g Generator) templates(sp ScoringProject) []config.ActionTemplate {
	return filterUsingScore(g.Catalog.ActionTemplates,
		func(t config.ActionTemplate) []string { return t.Filters }, g.newFilterHelper(sp))
}

func (g Generator) template(id string) (config.ActionTemplate, bool) {
	for _, t := range g.Catalog.ActionTemplates {
		if t.ID == id {
			return t, true
		}
	}
	return config.ActionTemplate{}, false
}
