package borrow

// OutcomeKind discriminates subtask outcomes.
type OutcomeKind string

const (
	// OutcomeContinue means the subtask finished and the task advances to
	// the next path element.
	OutcomeContinue OutcomeKind = "continue"
	// OutcomeHalted means the task ends successfully before a downloaded
	// book exists (hold queued, awaiting external login).
	OutcomeHalted OutcomeKind = "halted_early"
	// OutcomeFailed carries the error code the task terminates with.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeCancelled ends the task without recording an error.
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is the explicit result value every subtask returns; the
// orchestrator is its only consumer.
type Outcome struct {
	Kind OutcomeKind
	Code ErrorCode
}

func Continue() Outcome           { return Outcome{Kind: OutcomeContinue} }
func HaltEarly() Outcome          { return Outcome{Kind: OutcomeHalted} }
func Fail(code ErrorCode) Outcome { return Outcome{Kind: OutcomeFailed, Code: code} }
func Cancelled() Outcome          { return Outcome{Kind: OutcomeCancelled} }
