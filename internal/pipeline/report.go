package pipeline

import "lectern/internal/plan"

// Outcome classifies how a unit finished.
type Outcome int

const (
	// OutcomeSuccess means every stage either ran or was already done.
	OutcomeSuccess Outcome = iota
	// OutcomePartial means rendering failed but the study material is on
	// disk and usable.
	OutcomePartial
	// OutcomeFailed means a unit-fatal stage failed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UnitResult records what happened to one processing unit.
type UnitResult struct {
	Unit           plan.Unit
	Artifacts      plan.Artifacts
	Outcome        Outcome
	FailedStage    string
	Err            error
	SkippedStages  []string
	RenderEngine   string
	RenderAttempts int
}

// DirectoryError records a directory that could not be scanned.
type DirectoryError struct {
	Dir string
	Err error
}

// Report aggregates the results of a tree walk. The walk itself is
// best-effort: unit failures and unreadable directories are recorded here,
// never propagated as a walk abort.
type Report struct {
	Root            string
	RunID           string
	Units           []UnitResult
	DirectoryErrors []DirectoryError
}

// Succeeded counts fully successful units.
func (r *Report) Succeeded() int { return r.count(OutcomeSuccess) }

// Partial counts units whose render failed but kept their study material.
func (r *Report) Partial() int { return r.count(OutcomePartial) }

// Failed counts units aborted by a unit-fatal stage failure.
func (r *Report) Failed() int { return r.count(OutcomeFailed) }

func (r *Report) count(outcome Outcome) int {
	n := 0
	for _, unit := range r.Units {
		if unit.Outcome == outcome {
			n++
		}
	}
	return n
}
