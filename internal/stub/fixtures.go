package stub

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jask/policyqa/internal/backend"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixture is one canned answer.
type Fixture struct {
	Name          string         `yaml:"name"`
	Keywords      []string       `yaml:"keywords"`
	Decision      string         `yaml:"decision"`
	Justification string         `yaml:"justification"`
	PolicyClauses []string       `yaml:"policy_clauses"`
	ParsedInfo    map[string]any `yaml:"parsed_info"`
}

// FixtureSet is the YAML document served by the stub.
type FixtureSet struct {
	Default  Fixture   `yaml:"default"`
	Fixtures []Fixture `yaml:"fixtures"`
}

// DefaultFixtures returns the built-in set.
func DefaultFixtures() (FixtureSet, error) {
	return ParseFixtures(defaultFixtures)
}

// LoadFixtures reads a fixture file. An empty path yields the built-in set.
func LoadFixtures(path string) (FixtureSet, error) {
	if path == "" {
		return DefaultFixtures()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FixtureSet{}, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

func ParseFixtures(data []byte) (FixtureSet, error) {
	var set FixtureSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return FixtureSet{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if strings.TrimSpace(set.Default.Decision) == "" {
		return FixtureSet{}, fmt.Errorf("parse fixtures: default.decision is required")
	}
	for i, f := range set.Fixtures {
		if len(f.Keywords) == 0 {
			return FixtureSet{}, fmt.Errorf("parse fixtures: fixture %d (%s) has no keywords", i, f.Name)
		}
	}
	return set, nil
}

// Match returns the first fixture whose keywords all occur in text,
// ignoring case, or the default.
func (s FixtureSet) Match(text string) Fixture {
	lower := strings.ToLower(text)
outer:
	for _, f := range s.Fixtures {
		for _, kw := range f.Keywords {
			if !strings.Contains(lower, strings.ToLower(kw)) {
				continue outer
			}
		}
		return f
	}
	return s.Default
}

// Result converts the fixture to the wire shape. Clauses are never null.
func (f Fixture) Result() backend.QueryResult {
	clauses := f.PolicyClauses
	if clauses == nil {
		clauses = []string{}
	}
	return backend.QueryResult{
		Decision:      f.Decision,
		Justification: f.Justification,
		PolicyClauses: clauses,
		ParsedInfo:    f.ParsedInfo,
	}
}
