package borrow

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/libshelf/borrowd/internal/accounts"
	"github.com/libshelf/borrowd/internal/audio"
	"github.com/libshelf/borrowd/internal/bookdb"
	"github.com/libshelf/borrowd/internal/content"
	"github.com/libshelf/borrowd/internal/drm"
	"github.com/libshelf/borrowd/internal/opds"
)

// Request is the immutable input of one user-initiated borrow.
type Request struct {
	AccountID uuid.UUID
	BookID    uuid.UUID
	Entry     *opds.Entry
}

// Services bundles the externally-owned collaborators a Task runs against.
type Services struct {
	Accounts        accounts.Provider
	Database        bookdb.Database
	Statuses        StatusPublisher
	HTTP            *http.Client
	Parser          opds.EntryParser
	Adobe           drm.AdobeConnector
	AxisNow         drm.AxisNowConnector
	AudioStrategy   audio.ManifestStrategy
	ContentResolver content.Resolver
	BundledResolver content.Resolver

	Registry     *Registry
	Capabilities Capabilities

	ACSMTimeout      time.Duration
	ProgressInterval time.Duration

	Clock  func() time.Time
	Logger *slog.Logger
}

// Task drives one borrow from path selection through subtask execution to
// a terminal status. One Task runs per book at a time; admission control is
// the caller's job.
type Task struct {
	services Services
	request  Request
	bc       *Context
	recorder *Recorder
	logger   *slog.Logger
}

func NewTask(services Services, request Request) *Task {
	logger := services.Logger.With("book_id", request.BookID)
	recorder := NewRecorder(logger)

	bc := NewContext(services.ProgressInterval)
	bc.BookID = request.BookID
	bc.Entry = request.Entry
	bc.Statuses = services.Statuses
	bc.HTTP = services.HTTP
	bc.Recorder = recorder
	bc.Parser = services.Parser
	bc.Adobe = services.Adobe
	bc.AxisNow = services.AxisNow
	bc.AudioStrategy = services.AudioStrategy
	bc.ContentResolver = services.ContentResolver
	bc.BundledResolver = services.BundledResolver
	bc.ACSMTimeout = services.ACSMTimeout
	bc.Logger = logger
	if services.Clock != nil {
		bc.Clock = services.Clock
	}

	return &Task{
		services: services,
		request:  request,
		bc:       bc,
		recorder: recorder,
		logger:   logger,
	}
}

// Cancel requests cooperative cancellation of the running task.
func (t *Task) Cancel() {
	t.bc.Cancel()
}

// Steps returns a copy of the step log recorded so far. It is safe to call
// while the task is running.
func (t *Task) Steps() []TaskStep {
	return t.recorder.Steps()
}

// Run executes the borrow to completion and returns its TaskResult.
func (t *Task) Run(ctx context.Context) TaskResult {
	stop := context.AfterFunc(ctx, t.bc.Cancel)
	defer stop()

	t.bc.PublishStatus(BookStatus{Kind: StatusRequestingLoan})

	t.recorder.BeginStep("resolving account")
	account, err := t.services.Accounts.Account(t.bc.Ctx(), t.request.AccountID)
	if err != nil {
		return t.fail(fmt.Sprintf("failed to resolve account: %v", err), CodeAccountsDatabaseException)
	}
	t.bc.Account = account
	t.recorder.StepSucceeded(fmt.Sprintf("account %s", account.ID))

	t.recorder.BeginStep("opening book record")
	entry, err := t.services.Database.OpenEntry(account.ID, t.request.BookID, t.request.Entry)
	if err != nil {
		return t.fail(fmt.Sprintf("failed to open book record: %v", err), CodeBookDatabaseFailed)
	}
	t.bc.DB = entry
	t.recorder.StepSucceeded("book record open")

	t.recorder.BeginStep("selecting acquisition path")
	path := PickBestAcquisitionPath(t.services.Registry, t.services.Capabilities, account, t.request.Entry)
	if path == nil {
		return t.fail("no supported acquisition path", CodeNoSupportedAcquisitions)
	}
	t.recorder.StepSucceeded(fmt.Sprintf("path with %d elements, final type %s", len(path.Elements), path.Final().Type))
	t.bc.SetPath(*path)

	for !t.bc.Fulfilled() {
		elem, ok := t.bc.NextElement()
		if !ok {
			break
		}
		if t.bc.Cancelled() {
			return t.cancelled()
		}

		subtask := t.services.Registry.Find(account, elem)
		if subtask == nil {
			return t.fail(fmt.Sprintf("no subtask accepts %q", elem.Type), CodeNoSubtaskAvailable)
		}

		t.logger.Info("executing subtask", "subtask", subtask.Name(), "type", elem.Type)
		t.recorder.BeginStep(fmt.Sprintf("executing %s for %s", subtask.Name(), elem.Type))

		outcome := subtask.Execute(t.bc, elem)
		switch outcome.Kind {
		case OutcomeContinue:
			continue
		case OutcomeHalted:
			// The status the subtask already published (Held, awaiting
			// external auth, loan without download) is the terminal state.
			t.logger.Info("task halted early", "subtask", subtask.Name())
			return t.recorder.Result(true, false)
		case OutcomeFailed:
			return t.failSubtask(outcome)
		case OutcomeCancelled:
			return t.cancelled()
		}
	}

	if skipped := t.bc.RemainingElements(); skipped > 0 {
		t.logger.Info("book fulfilled, skipping trailing path elements", "skipped", skipped)
	}
	t.bc.Cancel()
	t.bc.PublishStatus(BookStatus{Kind: StatusLoanedDownloaded})
	t.logger.Info("borrow completed")
	return t.recorder.Result(true, false)
}

func (t *Task) fail(detail string, code ErrorCode) TaskResult {
	t.recorder.StepFailed(detail, code)
	t.publishFailure(code)
	return t.recorder.Result(false, false)
}

// failSubtask finalizes a subtask-reported failure; the subtask has already
// recorded the failing step.
func (t *Task) failSubtask(outcome Outcome) TaskResult {
	if t.recorder.LastErrorCode() != outcome.Code {
		t.recorder.StepFailed("subtask failed", outcome.Code)
	}
	t.publishFailure(outcome.Code)
	return t.recorder.Result(false, false)
}

func (t *Task) publishFailure(code ErrorCode) {
	kind := StatusFailedLoan
	if t.bc.DownloadStarted() {
		kind = StatusFailedDownload
	}
	// Seal the context before publishing so a still-running connector
	// callback cannot slip a progress update in after the terminal status.
	// PublishStatus is unconditional and still lands on a sealed context.
	t.bc.Cancel()
	t.bc.PublishStatus(BookStatus{Kind: kind, ErrorCode: code})
}

// cancelled ends the task leaving the last published status untouched and
// without recording any error code.
func (t *Task) cancelled() TaskResult {
	t.logger.Info("borrow cancelled")
	return t.recorder.Result(false, true)
}
