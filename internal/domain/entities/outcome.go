package entities

import "time"

// Step names one stage of the per-target pipeline
type Step string

// Pipeline steps in execution order
const (
	StepPrepare Step = "prepare"
	StepBuild   Step = "build"
	StepTest    Step = "test"
)

// Status is the final verdict for a target
type Status string

// Target verdicts
const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Outcome is the result of verifying a single target
type Outcome struct {
	Target        string           `json:"target"`
	Status        Status           `json:"status"`
	FailedStep    Step             `json:"failed_step,omitempty"`
	Kind          string           `json:"kind,omitempty"`
	Message       string           `json:"message,omitempty"`
	Diagnostics   string           `json:"diagnostics,omitempty"`
	StepsRun      []Step           `json:"steps_run"`
	StepDurations map[Step]float64 `json:"step_durations_seconds"`
	ArchivePath   string           `json:"archive_path,omitempty"`
}

// Passed reports whether the target passed build and test
func (o Outcome) Passed() bool {
	return o.Status == StatusPass
}

// Ran reports whether the given step was attempted
func (o Outcome) Ran(step Step) bool {
	for _, s := range o.StepsRun {
		if s == step {
			return true
		}
	}
	return false
}

// Report aggregates the outcomes of one verification run
type Report struct {
	RunID           string    `json:"run_id"`
	Project         string    `json:"project"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Passed          int       `json:"passed"`
	Failed          int       `json:"failed"`
	Outcomes        []Outcome `json:"outcomes"`
}

// Tally recomputes the pass and fail counters from the outcomes
func (r *Report) Tally() {
	r.Passed, r.Failed = 0, 0
	for _, o := range r.Outcomes {
		if o.Passed() {
			r.Passed++
		} else {
			r.Failed++
		}
	}
}

// Success is true only when every target passed
func (r *Report) Success() bool {
	for _, o := range r.Outcomes {
		if !o.Passed() {
			return false
		}
	}
	return true
}

// Outcome returns the outcome recorded for a target
func (r *Report) Outcome(target string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Target == target {
			return o, true
		}
	}
	return Outcome{}, false
}

// Failures returns the failed outcomes in matrix order
func (r *Report) Failures() []Outcome {
	failed := make([]Outcome, 0, r.Failed)
	for _, o := range r.Outcomes {
		if !o.Passed() {
			failed = append(failed, o)
		}
	}
	return failed
}
