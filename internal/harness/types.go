package harness

// QueryOutcome records how one query case ran.
type QueryOutcome struct {
	Name      string `json:"name"`
	ShapeHash string `json:"shape_hash,omitempty"`
	Rows      int    `json:"rows"`
	Count     int64  `json:"count"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Backend names the execution layer the scenario ran on.
	Backend Backend `json:"backend"`

	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// Queries holds one outcome per query case, in scenario order.
	Queries []QueryOutcome `json:"queries"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string, backend Backend) *Result {
	return &Result{
		Scenario: scenario,
		Backend:  backend,
		Pass:     true,
		Queries:  []QueryOutcome{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
