// Package assumption holds named valuation scenarios.
// A ScenarioBook is loaded from config/scenarios.yaml (or .hjson) and
// resolved into valuation.Assumptions, optionally with per-request overrides.
package assumption

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v2"

	"stockcheckertool/pkg/core/utils"
	"stockcheckertool/pkg/core/valuation"
)

// =============================================================================
// SCENARIO
// =============================================================================

// Scenario is a named set of projection assumptions.
type Scenario struct {
	Name        string `json:"name" yaml:"-"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	valuation.Assumptions `yaml:",inline"`

	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Overrides replace individual scenario fields for a single run.
type Overrides struct {
	GrowthRate           *float64 `json:"growth_rate,omitempty"`
	TerminalGrowthRate   *float64 `json:"terminal_growth_rate,omitempty"`
	HorizonYears         *int     `json:"horizon_years,omitempty"`
	GrowthFadeToTerminal *bool    `json:"growth_fade_to_terminal,omitempty"`
	MidYear              *bool    `json:"mid_year,omitempty"`
	DiscountRate         *float64 `json:"discount_rate,omitempty"`
}

// Apply returns a with every non-nil override written over it.
func (o Overrides) Apply(a valuation.Assumptions) valuation.Assumptions {
	if o.GrowthRate != nil {
		a.GrowthRate = *o.GrowthRate
	}
	if o.TerminalGrowthRate != nil {
		a.TerminalGrowthRate = *o.TerminalGrowthRate
	}
	if o.HorizonYears != nil {
		a.HorizonYears = *o.HorizonYears
	}
	if o.GrowthFadeToTerminal != nil {
		a.GrowthFadeToTerminal = *o.GrowthFadeToTerminal
	}
	if o.MidYear != nil {
		a.MidYear = *o.MidYear
	}
	if o.DiscountRate != nil {
		r := *o.DiscountRate
		a.DiscountRate = &r
	}
	return a
}

// =============================================================================
// SCENARIO BOOK (Container + Active Selection)
// =============================================================================

// ScenarioBook holds the scenarios and which one is used when a request
// names none. It is safe for concurrent use.
type ScenarioBook struct {
	mu        sync.RWMutex
	active    string
	scenarios map[string]*Scenario
}

type bookFile struct {
	Active    string               `json:"active" yaml:"active"`
	Scenarios map[string]*Scenario `json:"scenarios" yaml:"scenarios"`
}

// NewScenarioBook creates an empty book.
func NewScenarioBook() *ScenarioBook {
	return &ScenarioBook{scenarios: make(map[string]*Scenario)}
}

// DefaultBook is used when no scenario file exists.
func DefaultBook() *ScenarioBook {
	b := NewScenarioBook()
	_ = b.Add(&Scenario{
		Name:        "base",
		Description: "Flat 5% growth for five years, 2.5% into perpetuity",
		Assumptions: valuation.Assumptions{
			GrowthRate:         0.05,
			TerminalGrowthRate: 0.025,
			HorizonYears:       valuation.DefaultHorizonYears,
		},
	})
	return b
}

// Add inserts a new scenario. The first scenario added becomes active.
func (b *ScenarioBook) Add(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name cannot be empty")
	}
	if err := s.Assumptions.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("scenario '%s': %w", s.Name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.scenarios[s.Name]; exists {
		return fmt.Errorf("scenario '%s' already exists", s.Name)
	}
	s.UpdatedAt = time.Now()
	b.scenarios[s.Name] = s
	if b.active == "" {
		b.active = s.Name
	}
	return nil
}

// Get returns a copy of the named scenario.
func (b *ScenarioBook) Get(name string) (Scenario, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("scenario '%s' not found", name)
	}
	return *s, nil
}

// Update replaces an existing scenario.
func (b *ScenarioBook) Update(s *Scenario) error {
	if err := s.Assumptions.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("scenario '%s': %w", s.Name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.scenarios[s.Name]; !exists {
		return fmt.Errorf("scenario '%s' not found", s.Name)
	}
	s.UpdatedAt = time.Now()
	b.scenarios[s.Name] = s
	return nil
}

// Delete removes a scenario. The active scenario cannot be deleted.
func (b *ScenarioBook) Delete(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == b.active {
		return fmt.Errorf("cannot delete active scenario '%s'", name)
	}
	if _, exists := b.scenarios[name]; !exists {
		return fmt.Errorf("scenario '%s' not found", name)
	}
	delete(b.scenarios, name)
	return nil
}

// Names lists scenario names in sorted order.
func (b *ScenarioBook) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.scenarios))
	for name := range b.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns the name of the default scenario.
func (b *ScenarioBook) Active() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

// SetActive switches the default scenario.
func (b *ScenarioBook) SetActive(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.scenarios[name]; !ok {
		return fmt.Errorf("scenario '%s' not found", name)
	}
	b.active = name
	return nil
}

// Resolve returns the assumptions for name (the active scenario when empty)
// with overrides applied and defaults filled in.
func (b *ScenarioBook) Resolve(name string, o Overrides) (valuation.Assumptions, error) {
	if name == "" {
		name = b.Active()
	}
	s, err := b.Get(name)
	if err != nil {
		return valuation.Assumptions{}, err
	}
	a := o.Apply(s.Assumptions).WithDefaults()
	if err := a.Validate(); err != nil {
		return valuation.Assumptions{}, err
	}
	return a, nil
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// ToJSON serializes the book for the API.
func (b *ScenarioBook) ToJSON() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return json.Marshal(bookFile{Active: b.active, Scenarios: b.scenarios})
}

// LoadFile reads a scenario book from YAML, or Hjson when the extension is
// .hjson or .json.
func LoadFile(path string) (*ScenarioBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}

	var f bookFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hjson", ".json":
		converted, err := utils.HJSONToJSON(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(converted, &f); err != nil {
			return nil, fmt.Errorf("decode scenarios %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode scenarios %s: %w", path, err)
		}
	}
	return fromFile(f)
}

// LoadOrDefault returns DefaultBook when path does not exist.
func LoadOrDefault(path string) (*ScenarioBook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultBook(), nil
	}
	return LoadFile(path)
}

func fromFile(f bookFile) (*ScenarioBook, error) {
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file defines no scenarios")
	}

	b := NewScenarioBook()
	names := make([]string, 0, len(f.Scenarios))
	for name := range f.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := f.Scenarios[name]
		if s == nil {
			s = &Scenario{}
		}
		s.Name = name
		if err := b.Add(s); err != nil {
			return nil, err
		}
	}

	if f.Active != "" {
		if err := b.SetActive(f.Active); err != nil {
			return nil, fmt.Errorf("active scenario: %w", err)
		}
	}
	return b, nil
}
