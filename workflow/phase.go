package workflow

// Phase is one step of the contribution workflow. Phases advance strictly
// in order; Complete is terminal.
type Phase string

const (
	PhaseRepositoryUnderstanding Phase = "repository_understanding"
	PhaseIssueIntake             Phase = "issue_intake"
	PhasePlanning                Phase = "planning"
	PhaseImplementation          Phase = "implementation"
	PhaseVerification            Phase = "verification"
	PhaseValidation              Phase = "validation"
	PhaseCommitAndPR             Phase = "commit_and_pr"
	PhaseComplete                Phase = "complete"
)

var phaseOrder = []Phase{
	PhaseRepositoryUnderstanding,
	PhaseIssueIntake,
	PhasePlanning,
	PhaseImplementation,
	PhaseVerification,
	PhaseValidation,
	PhaseCommitAndPR,
	PhaseComplete,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	for _, phase := range phaseOrder {
		if p == phase {
			return true
		}
	}
	return false
}

// Next returns the phase that follows p. Complete and unknown phases
// return Complete.
func (p Phase) Next() Phase {
	for i, phase := range phaseOrder {
		if p == phase && i < len(phaseOrder)-1 {
			return phaseOrder[i+1]
		}
	}
	return PhaseComplete
}

// ParsePhase converts a stored phase string, falling back to the first
// phase on unknown input.
func ParsePhase(s string) Phase {
	p := Phase(s)
	if !p.Valid() {
		return PhaseRepositoryUnderstanding
	}
	return p
}
