package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dynquery/internal/builder"
)

// Scenario defines a conformance scenario: a schema, a dataset and the
// queries to run over it.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is inline CUE source declaring the record types.
	Schema string `yaml:"schema,omitempty"`

	// SchemaDir is a directory of CUE files, used when Schema is empty.
	SchemaDir string `yaml:"schema_dir,omitempty"`

	// Records maps record type names to rows, inserted in order.
	Records map[string][]map[string]any `yaml:"records,omitempty"`

	// Queries are built and executed in order.
	Queries []QueryCase `yaml:"queries"`

	// Assertions relate queries to each other.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// QueryCase is one request and its expected outcome.
type QueryCase struct {
	Name    string          `yaml:"name"`
	Request builder.Request `yaml:"request"`
	Expect  Expect          `yaml:"expect"`
}

// Expect specifies the expected result of a query. Unset fields are not
// checked.
type Expect struct {
	// Key names the column Ids are read from. Defaults to "Id".
	Key string `yaml:"key,omitempty"`

	// IDs are the key column values of the result, in order.
	IDs []any `yaml:"ids,omitempty"`

	// Count is the number of records the filter selects.
	Count *int64 `yaml:"count,omitempty"`

	// Rows are the complete result rows, in order.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// First is a subset of fields the first row must carry.
	First map[string]any `yaml:"first,omitempty"`

	// Error is a substring of the expected error. When set, the query
	// must fail.
	Error string `yaml:"error,omitempty"`

	// Empty asserts that the result has no rows.
	Empty bool `yaml:"empty,omitempty"`
}

// Assertion relates several queries of a scenario.
type Assertion struct {
	// Type is one of same_shape or distinct_shape.
	Type string `yaml:"type"`

	// Queries names the query cases the assertion compares.
	Queries []string `yaml:"queries"`
}

// Assertion type constants.
const (
	AssertSameShape     = "same_shape"
	AssertDistinctShape = "distinct_shape"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative schema_dir is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.SchemaDir != "" && !filepath.IsAbs(scenario.SchemaDir) {
		scenario.SchemaDir = filepath.Join(filepath.Dir(path), scenario.SchemaDir)
	}
	if scenario.SchemaDir != "" {
		if _, err := os.Stat(scenario.SchemaDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: schema directory not found: %s", scenario.SchemaDir)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "query:" vs "queries:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" && s.SchemaDir == "" {
		return fmt.Errorf("one of schema or schema_dir is required")
	}
	if s.Schema != "" && s.SchemaDir != "" {
		return fmt.Errorf("schema and schema_dir are mutually exclusive")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true
		if q.Request.Record == "" {
			return fmt.Errorf("queries[%d]: request.record is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, names map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSameShape, AssertDistinctShape:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if len(a.Queries) < 2 {
		return fmt.Errorf("assertions[%d]: %s needs at least two queries", index, a.Type)
	}
	for _, name := range a.Queries {
		if !names[name] {
			return fmt.Errorf("assertions[%d]: unknown query %q", index, name)
		}
	}
	return nil
}
