package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tensorlane/tensorlane/internal/topology"
)

// Scenario defines a conformance test scenario: an instruction-list
// descriptor plus expectations about the trace and the run environment
// it leaves behind.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the run ID
	// and the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Topology overrides the machine/worker layout. Nil means defaults.
	Topology *topology.Config `yaml:"topology,omitempty"`

	// Stream is the inline instruction-list descriptor.
	Stream string `yaml:"stream"`

	// Expect validates the finished run.
	Expect Expect `yaml:"expect"`
}

// Expect specifies the outcome a scenario requires.
type Expect struct {
	// Steps is the number of compute steps the run must finish.
	Steps int `yaml:"steps"`

	// Failures is the number of those steps that must have failed.
	Failures int `yaml:"failures,omitempty"`

	// Order lists instruction labels in required completion order.
	// Unlabeled steps are skipped during the comparison.
	Order []string `yaml:"order,omitempty"`

	// Objects lists names that must exist in the environment afterwards.
	Objects []string `yaml:"objects,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Stream == "" {
		return fmt.Errorf("stream is required")
	}
	if s.Expect.Steps < 0 {
		return fmt.Errorf("expect.steps must be non-negative")
	}
	if s.Expect.Failures < 0 || s.Expect.Failures > s.Expect.Steps {
		return fmt.Errorf("expect.failures must be between 0 and expect.steps")
	}
	if s.Topology != nil {
		if err := s.Topology.Validate(); err != nil {
			return err
		}
	}
	return nil
}
