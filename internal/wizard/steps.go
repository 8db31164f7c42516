package wizard

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Step identifies a wizard step.
type Step string

// Steps in wizard order.
const (
	StepPropertyIdentification Step = "property_identification"
	StepLocation               Step = "location"
	StepTransport              Step = "transport"
	StepEnvironmental          Step = "environmental"
	StepPlanning               Step = "planning"
	StepBuildings              Step = "buildings"
	StepUtilities              Step = "utilities"
	StepMarketValuation        Step = "market_valuation"
	StepLegal                  Step = "legal"
	StepFinalization           Step = "finalization"
)

//go:embed steps.yaml
var defaultCatalogYAML []byte

// RequiredField is a field that must be non-empty for a step to validate.
type RequiredField struct {
	Field string `yaml:"field"`
	Label string `yaml:"label"`
}

// StepDef describes one step: its report section and required fields.
type StepDef struct {
	ID       Step            `yaml:"id"`
	Title    string          `yaml:"title"`
	Section  string          `yaml:"section"`
	Required []RequiredField `yaml:"required"`
}

// Catalog is the fixed, ordered list of steps.
type Catalog struct {
	steps   []StepDef
	byID    map[Step]int
	section map[Step]string
}

// DefaultCatalog returns the built-in step catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err) // embedded file is validated by tests
	}
	return c
}

// ParseCatalog parses a YAML step catalog. Step ids and sections must be
// unique and non-empty.
func ParseCatalog(data []byte) (*Catalog, error) {
	var wrapper struct {
		Wizard struct {
			Steps []StepDef `yaml:"steps"`
		} `yaml:"wizard"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "wizard: parse step catalog")
	}

	steps := wrapper.Wizard.Steps
	if len(steps) == 0 {
		return nil, eris.New("wizard: step catalog is empty")
	}

	c := &Catalog{
		steps:   steps,
		byID:    make(map[Step]int, len(steps)),
		section: make(map[Step]string, len(steps)),
	}
	seenSections := make(map[string]Step, len(steps))
	for i, s := range steps {
		if s.ID == "" || s.Section == "" {
			return nil, eris.Errorf("wizard: step %d missing id or section", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, eris.Errorf("wizard: duplicate step %q", s.ID)
		}
		if other, dup := seenSections[s.Section]; dup {
			return nil, eris.Errorf("wizard: section %q used by both %q and %q", s.Section, other, s.ID)
		}
		c.byID[s.ID] = i
		c.section[s.ID] = s.Section
		seenSections[s.Section] = s.ID
	}
	return c, nil
}

// Steps returns the step ids in order.
func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	for i, s := range c.steps {
		out[i] = s.ID
	}
	return out
}

// Len returns the number of steps.
func (c *Catalog) Len() int { return len(c.steps) }

// Index returns the position of step, or -1 if unknown.
func (c *Catalog) Index(step Step) int {
	i, ok := c.byID[step]
	if !ok {
		return -1
	}
	return i
}

// At returns the step at index i.
func (c *Catalog) At(i int) Step {
	return c.steps[i].ID
}

// Def returns the definition of step.
func (c *Catalog) Def(step Step) (StepDef, bool) {
	i, ok := c.byID[step]
	if !ok {
		return StepDef{}, false
	}
	return c.steps[i], true
}

// SectionFor returns the report section a step edits.
func (c *Catalog) SectionFor(step Step) (string, bool) {
	s, ok := c.section[step]
	return s, ok
}

// StepForSection returns the step that edits section, if any.
func (c *Catalog) StepForSection(section string) (Step, bool) {
	for _, s := range c.steps {
		if s.Section == section {
			return s.ID, true
		}
	}
	return "", false
}
