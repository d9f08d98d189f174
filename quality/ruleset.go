package quality

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesetFile is the on-disk shape of a named ruleset.
type rulesetFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML ruleset file. Rulesets are configuration, not entity
// state; a ruleset is chosen per content type at call time.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("quality: read ruleset: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML ruleset document.
func ParseRules(data []byte) ([]Rule, error) {
	var file rulesetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("quality: parse ruleset: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("quality: ruleset contains no rules")
	}
	for i, r := range file.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("quality: rule %d has no name", i)
		}
		if len(r.Criteria) == 0 {
			return nil, fmt.Errorf("quality: rule %q has no criteria", r.Name)
		}
		if r.Threshold < 0 || r.Threshold > 1 {
			return nil, fmt.Errorf("quality: rule %q threshold %v outside [0,1]", r.Name, r.Threshold)
		}
	}
	return file.Rules, nil
}
