package borrow

import (
	"log/slog"
	"sync"
)

// TaskStep is one entry in the ordered step log of a borrow task.
type TaskStep struct {
	Description string    `json:"description"`
	Detail      string    `json:"detail,omitempty"`
	Failed      bool      `json:"failed"`
	ErrorCode   ErrorCode `json:"error_code,omitempty"`
}

// TaskResult is the terminal record of a borrow task, consumed by the UI.
type TaskResult struct {
	Succeeded     bool       `json:"succeeded"`
	Cancelled     bool       `json:"cancelled"`
	Steps         []TaskStep `json:"steps"`
	LastErrorCode ErrorCode  `json:"last_error_code,omitempty"`
}

// Recorder accumulates task steps and the last failure code. Both the
// orchestrator and every subtask write to it; cancellation never does.
type Recorder struct {
	mu       sync.Mutex
	logger   *slog.Logger
	steps    []TaskStep
	lastCode ErrorCode
}

func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// BeginStep opens a new step. A step left open counts as succeeded.
func (r *Recorder) BeginStep(description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, TaskStep{Description: description})
	r.logger.Debug("task step", "step", description)
}

// StepSucceeded annotates the current step with a success detail.
func (r *Recorder) StepSucceeded(detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.steps); n > 0 {
		r.steps[n-1].Detail = detail
	}
}

// StepFailed marks the current step failed and records code as the task's
// last error code.
func (r *Recorder) StepFailed(detail string, code ErrorCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.steps); n > 0 {
		r.steps[n-1].Detail = detail
		r.steps[n-1].Failed = true
		r.steps[n-1].ErrorCode = code
	} else {
		r.steps = append(r.steps, TaskStep{Description: detail, Failed: true, ErrorCode: code})
	}
	r.lastCode = code
	r.logger.Warn("task step failed", "detail", detail, "error_code", string(code))
}

// LastErrorCode returns the most recently recorded failure code.
func (r *Recorder) LastErrorCode() ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCode
}

// Steps returns a copy of the step log so far.
func (r *Recorder) Steps() []TaskStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskStep, len(r.steps))
	copy(out, r.steps)
	return out
}

// Result finalizes the recorder into a TaskResult.
func (r *Recorder) Result(succeeded, cancelled bool) TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := make([]TaskStep, len(r.steps))
	copy(steps, r.steps)
	res := TaskResult{Succeeded: succeeded, Cancelled: cancelled, Steps: steps}
	if !succeeded && !cancelled {
		res.LastErrorCode = r.lastCode
	}
	return res
}
