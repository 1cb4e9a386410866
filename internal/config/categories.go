package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"order-reconciliation/internal/domain"
)

//go:embed categories.yaml
var defaultCatalogue []byte

// Catalogue is the set of configured reconciliation workflows.
type Catalogue struct {
	Plans []domain.CategoryPlan
	// RunFor is the default selection used when the run does not name one.
	RunFor []string
}

type catalogueFile struct {
	RunFor     []string        `yaml:"run_for"`
	Categories []categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	Name     string              `yaml:"name"`
	PlanType string              `yaml:"plan_type"`
	RatePlan string              `yaml:"rate_plan"`
	Target   string              `yaml:"target"`
	Filters  []domain.FilterRule `yaml:"filters"`
}

// DefaultCatalogue returns the built-in workflows.
func DefaultCatalogue() (Catalogue, error) {
	return ParseCatalogue(defaultCatalogue)
}

// LoadCatalogue reads a catalogue file, falling back to the built-in one when path is empty.
func LoadCatalogue(path string) (Catalogue, error) {
	if path == "" {
		return DefaultCatalogue()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("%w: read categories: %w", domain.ErrConfiguration, err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue decodes and validates a YAML catalogue.
func ParseCatalogue(data []byte) (Catalogue, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogueFile
	if err := dec.Decode(&file); err != nil {
		return Catalogue{}, fmt.Errorf("%w: decode categories: %w", domain.ErrConfiguration, err)
	}

	c := Catalogue{RunFor: file.RunFor}
	seen := make(map[string]bool, len(file.Categories))
	for i, e := range file.Categories {
		plan, err := e.plan()
		if err != nil {
			return Catalogue{}, fmt.Errorf("category %d: %w", i+1, err)
		}
		if seen[plan.Name] {
			return Catalogue{}, fmt.Errorf("%w: duplicate category %q", domain.ErrConfiguration, plan.Name)
		}
		seen[plan.Name] = true
		c.Plans = append(c.Plans, plan)
	}

	for _, name := range c.RunFor {
		if !seen[name] {
			return Catalogue{}, fmt.Errorf("%w: run_for names unknown category %q", domain.ErrConfiguration, name)
		}
	}
	return c, nil
}

func (e categoryEntry) plan() (domain.CategoryPlan, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return domain.CategoryPlan{}, fmt.Errorf("%w: category name is required", domain.ErrConfiguration)
	}

	planType, err := domain.ParsePlanType(e.PlanType)
	if err != nil {
		return domain.CategoryPlan{}, fmt.Errorf("%s: %w", name, err)
	}
	category, err := domain.NewReportCategory(planType, e.RatePlan)
	if err != nil {
		return domain.CategoryPlan{}, fmt.Errorf("%s: %w", name, err)
	}

	target := domain.LookupTarget(e.Target)
	switch target {
	case "":
		target = domain.TargetDelivery
	case domain.TargetDelivery, domain.TargetLegacy:
	default:
		return domain.CategoryPlan{}, fmt.Errorf("%w: %s: unknown target %q", domain.ErrConfiguration, name, e.Target)
	}

	for _, f := range e.Filters {
		if f.Column == "" {
			return domain.CategoryPlan{}, fmt.Errorf("%w: %s: filter without column", domain.ErrConfiguration, name)
		}
	}

	return domain.CategoryPlan{
		Name:     name,
		Category: category,
		Filters:  e.Filters,
		Target:   target,
	}, nil
}

// Select returns the plans to run, in run order. An empty runFor falls back to
// the catalogue's own selection, and then to every plan.
func (c Catalogue) Select(runFor []string) ([]domain.CategoryPlan, error) {
	if len(runFor) == 0 {
		runFor = c.RunFor
	}
	if len(runFor) == 0 {
		return append([]domain.CategoryPlan(nil), c.Plans...), nil
	}

	plans := make([]domain.CategoryPlan, 0, len(runFor))
	for _, name := range runFor {
		plan, ok := c.lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrConfiguration, name)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (c Catalogue) lookup(name string) (domain.CategoryPlan, bool) {
	for _, p := range c.Plans {
		if p.Name == name {
			return p, true
		}
	}
	return domain.CategoryPlan{}, false
}
