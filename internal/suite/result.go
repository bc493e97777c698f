package suite

// CheckEvent is one executed check in the suite trace.
type CheckEvent struct {
	Type    string `json:"type"` // always "check"
	Step    string `json:"step"`
	Family  string `json:"family"`
	Pass    bool   `json:"pass"`
	Message string `json:"message,omitempty"`
	Seq     int64  `json:"seq"`
}

// Result is the outcome of running one plan.
type Result struct {
	// Pass is true when every executed check passed.
	Pass bool `json:"pass"`

	// Trace lists all checks in execution order. Used for golden
	// comparison and for the report.
	Trace []CheckEvent `json:"trace"`

	// Errors holds the failure messages, one per failed check.
	Errors []string `json:"errors,omitempty"`

	// Stats holds difference statistics per step for validation
	// checks that loaded data, pass or fail.
	Stats map[string]DiffStats `json:"stats,omitempty"`
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []CheckEvent{},
		Errors: []string{},
		Stats:  map[string]DiffStats{},
	}
}

// AddCheck appends a trace event; a failed check flips Pass and
// records the message as an error.
func (r *Result) AddCheck(step, family string, pass bool, message string, seq int64) {
	r.Trace = append(r.Trace, CheckEvent{
		Type:    "check",
		Step:    step,
		Family:  family,
		Pass:    pass,
		Message: message,
		Seq:     seq,
	})
	if !pass {
		r.Pass = false
		r.Errors = append(r.Errors, message)
	}
}
