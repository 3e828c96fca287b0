package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var scenarioValidate = validator.New()

// Scenario is a replayable sequence of store operations.
type Scenario struct {
	Initial map[string]any    `yaml:"initial"`
	Reducer map[string]string `yaml:"reducer"`
	Steps   []Step            `yaml:"steps" validate:"required,min=1,dive"`
}

// Step is one operation of a scenario. Reducer maps event names to the
// dotted key the event payload is stored under.
type Step struct {
	Op      string            `yaml:"op" validate:"required,oneof=mount dispatch query unmount print trace"`
	Host    string            `yaml:"host"`
	Path    string            `yaml:"path" validate:"required_if=Op mount,required_if=Op query,required_if=Op unmount,required_if=Op trace"`
	View    map[string]string `yaml:"view"`
	Initial map[string]any    `yaml:"initial"`
	Reducer map[string]string `yaml:"reducer"`
	Event   string            `yaml:"event" validate:"required_if=Op dispatch"`
	Payload any               `yaml:"payload"`
	Query   map[string]string `yaml:"query" validate:"required_if=Op query"`
}

// Validate checks the struct tags of the scenario and its steps.
func (s *Scenario) Validate() error {
	return scenarioValidate.Struct(s)
}

func loadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var scenario Scenario
	if err := yaml.Unmarshal(raw, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}
