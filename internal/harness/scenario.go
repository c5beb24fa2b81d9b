package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/schema"
)

// Scenario defines a point-of-sale scenario: an initial catalog, a flow of
// actions, and assertions on the resulting trace and stored state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the RFC 3339 instant the clock starts at. Empty uses testutil.Epoch.
	Start string `yaml:"start,omitempty"`

	// IDPrefix prefixes the sequential transaction ids.
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Products replaces the seed catalog when non-empty.
	Products []SeedProduct `yaml:"products,omitempty"`

	// Setup contains actions run before the flow. Setup actions must succeed.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the main actions with their expected outcomes.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedProduct is one catalog entry stored before the session opens.
type SeedProduct struct {
	Code     string  `yaml:"code"`
	Name     string  `yaml:"name"`
	Category string  `yaml:"category"`
	Unit     string  `yaml:"unit"`
	Stock    int     `yaml:"stock"`
	Price    float64 `yaml:"price"`
}

// Model converts the seed entry to a product.
func (p SeedProduct) Model() model.Product {
	return model.Product{
		Code:       p.Code,
		Name:       p.Name,
		Category:   p.Category,
		Unit:       p.Unit,
		StockLevel: p.Stock,
		UnitPrice:  p.Price,
	}
}

// ActionStep is a single action invocation.
type ActionStep struct {
	// Action names the action, e.g. "Cart.add".
	Action string `yaml:"action"`

	// Args contains the action arguments.
	Args map[string]interface{} `yaml:"args"`
}

// FlowStep invokes an action and optionally checks its completion.
type FlowStep struct {
	Invoke string                 `yaml:"invoke"`
	Args   map[string]interface{} `yaml:"args"`

	// Expect specifies the expected completion. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Case is the expected outcome, e.g. "Success" or "InsufficientStock".
	Case string `yaml:"case"`

	// Result is a subset match against the completion result.
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Args is a subset match used by trace_contains.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Table is the collection name used by final_state.
	Table string `yaml:"table,omitempty"`

	// Where selects the record by exact field values (final_state).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect is a subset match against the selected record (final_state).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// StartTime returns the parsed start instant, or the zero time if unset.
func (s *Scenario) StartTime() (time.Time, error) {
	if s.Start == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("start: %w", err)
	}
	return t.UTC(), nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.StartTime(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Products))
	for i, p := range s.Products {
		if err := p.Model().Validate(); err != nil {
			return fmt.Errorf("products[%d]: %w", i, err)
		}
		if seen[p.Code] {
			return fmt.Errorf("products[%d]: duplicate code %q", i, p.Code)
		}
		seen[p.Code] = true
	}

	for i, step := range s.Setup {
		if step.Action == "" {
			return fmt.Errorf("setup[%d]: action is required", i)
		}
		if _, ok := actions[step.Action]; !ok {
			return fmt.Errorf("setup[%d]: unknown action %q", i, step.Action)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if _, ok := actions[step.Invoke]; !ok {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Invoke)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if !knownCollection(a.Table) {
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownCollection(name string) bool {
	for _, c := range schema.All {
		if c == name {
			return true
		}
	}
	return false
}
