package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"bobemploi/internal/domain"
)

// Config models bob.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	Logging   LoggingConfig   `yaml:"logging"`
	Generator GeneratorConfig `yaml:"generator"`
	Catalog   Catalog         `yaml:"catalog"`
}

// ServerConfig configures the development backend. Database defaults to
// the workspace database when empty.
type ServerConfig struct {
	Addr          string          `yaml:"addr"`
	Database      string          `yaml:"database"`
	JWTSecret     string          `yaml:"jwt_secret"`
	TokenTTL      time.Duration   `yaml:"token_ttl"`
	ResetTokenTTL time.Duration   `yaml:"reset_token_ttl"`
	BasePath      string          `yaml:"base_path"`
	Webhooks      []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig receives backend events, such as password reset requests
// that a mailer turns into emails. An empty Events list matches every event.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

// RetryConfig bounds the exponential backoff used to persist optimistic updates.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	IncludeCaller bool   `yaml:"include_caller"`
}

type GeneratorConfig struct {
	ActionsPerPlan int `yaml:"actions_per_plan"`
}

// Catalog is the reference data served by the development backend.
type Catalog struct {
	JobGroups       []CatalogJobGroup `yaml:"job_groups"`
	JobBoards       []CatalogJobBoard `yaml:"job_boards"`
	ActionTemplates []ActionTemplate  `yaml:"action_templates"`
	Advices         []CatalogAdvice   `yaml:"advices"`
	Companies       []CatalogCompany  `yaml:"companies"`
}

type CatalogJobGroup struct {
	RomeID             string       `yaml:"rome_id"`
	Name               string       `yaml:"name"`
	Diplomas           []string     `yaml:"diplomas"`
	Skills             []string     `yaml:"skills"`
	DrivingLicenses    []string     `yaml:"driving_licenses"`
	Jobs               []CatalogJob `yaml:"jobs"`
	NumAvailableOffers int          `yaml:"num_available_offers"`
	MarketStress       float64      `yaml:"market_stress"`
	WorkEnvironments   []string     `yaml:"work_environments"`
}

type CatalogJob struct {
	CodeOGR string `yaml:"code_ogr"`
	Name    string `yaml:"name"`
}

// CatalogJobBoard is shown for every project, or only for the listed job
// groups when RomeIDs is set.
type CatalogJobBoard struct {
	Title       string   `yaml:"title"`
	Link        string   `yaml:"link"`
	Filters     []string `yaml:"filters"`
	IsWellKnown bool     `yaml:"is_well_known"`
	RomeIDs     []string `yaml:"rome_ids"`
}

type ActionTemplate struct {
	ID               string         `yaml:"id"`
	Title            string         `yaml:"title"`
	ShortDescription string         `yaml:"short_description"`
	Link             string         `yaml:"link"`
	AdviceKind       string         `yaml:"advice_kind"`
	CoolDownDays     int            `yaml:"cool_down_days"`
	Steps            []TemplateStep `yaml:"steps"`
	Filters          []string       `yaml:"filters"`
}

type TemplateStep struct {
	ID                     string `yaml:"id"`
	Title                  string `yaml:"title"`
	ActiveDurationMinutes  int    `yaml:"active_duration_minutes"`
	WaitingDurationMinutes int    `yaml:"waiting_duration_minutes"`
}

type CatalogAdvice struct {
	ID      string   `yaml:"id"`
	Kind    string   `yaml:"kind"`
	Filters []string `yaml:"filters"`
}

type CatalogCompany struct {
	Name     string `yaml:"name"`
	CityName string `yaml:"city_name"`
	RomeID   string `yaml:"rome_id"`
}

var adviceKinds = map[domain.AdviceKind]bool{
	domain.AdviceOtherWorkEnv:           true,
	domain.AdviceImproveSuccessRate:     true,
	domain.AdviceJobBoards:              true,
	domain.AdviceSpontaneousApplication: true,
	domain.AdviceBetterJobInGroup:       true,
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; write one with bob config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("config.server.jwt_secret is required")
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("config.server.token_ttl must be positive")
	}
	if c.Server.ResetTokenTTL <= 0 {
		return fmt.Errorf("config.server.reset_token_ttl must be positive")
	}
	for i, h := range c.Server.Webhooks {
		if h.Enabled != nil && !*h.Enabled {
			continue
		}
		if strings.TrimSpace(h.URL) == "" {
			return fmt.Errorf("config.server.webhooks[%d].url is required", i)
		}
		if h.TimeoutSeconds < 0 {
			return fmt.Errorf("config.server.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("config.client.timeout must be positive")
	}
	if r := c.Client.Retry; r.InitialInterval <= 0 || r.MaxInterval < r.InitialInterval {
		return fmt.Errorf("config.client.retry intervals are inconsistent")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.logging.format must be text or json")
	}
	if c.Generator.ActionsPerPlan <= 0 {
		return fmt.Errorf("config.generator.actions_per_plan must be positive")
	}
	groups := map[string]bool{}
	for _, g := range c.Catalog.JobGroups {
		if g.RomeID == "" {
			return fmt.Errorf("catalog job group %q has no rome_id", g.Name)
		}
		if groups[g.RomeID] {
			return fmt.Errorf("catalog job group %s is defined twice", g.RomeID)
		}
		groups[g.RomeID] = true
	}
	for _, b := range c.Catalog.JobBoards {
		if b.Title == "" {
			return fmt.Errorf("catalog job board without title")
		}
		for _, id := range b.RomeIDs {
			if !groups[id] {
				return fmt.Errorf("job board %s references unknown job group %s", b.Title, id)
			}
		}
	}
	templates := map[string]bool{}
	for _, t := range c.Catalog.ActionTemplates {
		if t.ID == "" {
			return fmt.Errorf("catalog action template %q has no id", t.Title)
		}
		if templates[t.ID] {
			return fmt.Errorf("catalog action template %s is defined twice", t.ID)
		}
		templates[t.ID] = true
		if t.CoolDownDays < 0 {
			return fmt.Errorf("action template %s has a negative cool down", t.ID)
		}
		if t.AdviceKind != "" && !adviceKinds[domain.AdviceKind(t.AdviceKind)] {
			return fmt.Errorf("action template %s has unknown advice kind %s", t.ID, t.AdviceKind)
		}
		for _, s := range t.Steps {
			if s.ID == "" {
				return fmt.Errorf("action template %s has a step without id", t.ID)
			}
		}
	}
	for _, a := range c.Catalog.Advices {
		if a.ID == "" {
			return fmt.Errorf("catalog advice without id")
		}
		if !adviceKinds[domain.AdviceKind(a.Kind)] {
			return fmt.Errorf("advice %s has unknown kind %s", a.ID, a.Kind)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "bob.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Sections missing
// from data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Template returns the catalog entry as a domain template.
func (t ActionTemplate) Template() domain.ActionTemplate {
	out := domain.ActionTemplate{
		ActionTemplateID: t.ID,
		Title:            t.Title,
		ShortDescription: t.ShortDescription,
		Link:             t.Link,
		AdviceKind:       domain.AdviceKind(t.AdviceKind),
		CoolDownDays:     t.CoolDownDays,
	}
	for _, s := range t.Steps {
		out.Steps = append(out.Steps, domain.StickyActionStep{
			StepID:                 s.ID,
			Title:                  s.Title,
			ActiveDurationMinutes:  s.ActiveDurationMinutes,
			WaitingDurationMinutes: s.WaitingDurationMinutes,
		})
	}
	return out
}

// JobGroup returns the catalog entry as a domain job group.
func (g CatalogJobGroup) JobGroup() domain.JobGroup {
	out := domain.JobGroup{
		RomeID: g.RomeID,
		Name:   g.Name,
		Requirements: &domain.JobRequirements{
			Diplomas:        g.Diplomas,
			Skills:          g.Skills,
			DrivingLicenses: g.DrivingLicenses,
		},
	}
	for _, j := range g.Jobs {
		out.Jobs = append(out.Jobs, domain.Job{CodeOGR: j.CodeOGR, Name: j.Name})
	}
	return out
}

// FindJobGroup looks a job group up by ROME code.
func (c Catalog) FindJobGroup(romeID string) (CatalogJobGroup, bool) {
	for _, g := range c.JobGroups {
		if g.RomeID == romeID {
			return g, true
		}
	}
	return CatalogJobGroup{}, false
}
