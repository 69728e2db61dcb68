package subtasks

import (
	"fmt"
	"net/http"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/opds"
)

// LoanCreate POSTs to the acquisition target to create (or re-assert) a
// loan, then routes on the availability the server reports back.
type LoanCreate struct{}

func (s *LoanCreate) Name() string { return "loan_create" }

func (s *LoanCreate) Execute(bc *borrow.Context, elem borrow.PathElement) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	uri := bc.CurrentURI()
	if uri == "" {
		return failStep(bc, "loan acquisition carries no target URI", borrow.CodeRequiredURIMissing)
	}

	bc.PublishStatus(borrow.BookStatus{Kind: borrow.StatusRequestingLoan})

	resp, ferr := fetch(bc, http.MethodPost, uri, nil, func(req *http.Request) {
		applyCredentials(bc, req)
	})
	if ferr != nil {
		return failFetch(bc, ferr)
	}
	defer resp.Body.Close()

	if !statusOK(resp) {
		if typeMatches(resp, opds.TypeAPIProblem) {
			return s.handleProblem(bc, resp)
		}
		return failStep(bc, fmt.Sprintf("loan request returned %s", resp.Status), borrow.CodeHTTPRequestFailed)
	}

	if !typeMatches(resp, opds.TypeOPDSEntry) {
		detail := fmt.Sprintf("expected %s, server sent %s", opds.TypeOPDSEntry, responseType(resp))
		return failStep(bc, detail, borrow.CodeHTTPContentTypeIncompatible)
	}

	entry, err := bc.Parser.ParseEntry(resp.Body)
	if err != nil {
		return failStep(bc, fmt.Sprintf("failed to parse loan response: %v", err), borrow.CodeOPDSFeedEntryParseError)
	}

	return s.routeAvailability(bc, entry)
}

// handleProblem inspects an API problem document. A loan that already
// exists is a success, not an error: duplicate loan requests are idempotent.
func (s *LoanCreate) handleProblem(bc *borrow.Context, resp *http.Response) borrow.Outcome {
	problem, err := opds.ParseProblem(resp.Body)
	if err != nil {
		return failStep(bc, fmt.Sprintf("loan request returned %s with unreadable problem document", resp.Status), borrow.CodeHTTPRequestFailed)
	}
	if problem.Type == opds.ProblemLoanAlreadyExists {
		bc.Recorder.StepSucceeded("loan already exists")
		bc.PublishStatus(borrow.BookStatus{Kind: borrow.StatusLoanedNotDownloaded})
		return borrow.HaltEarly()
	}
	detail := fmt.Sprintf("loan request returned %s (%s)", resp.Status, problem.Type)
	return failStep(bc, detail, borrow.CodeHTTPRequestFailed)
}

func (s *LoanCreate) routeAvailability(bc *borrow.Context, entry *opds.Entry) borrow.Outcome {
	av := entry.Availability
	switch av.State {
	case opds.AvailabilityLoaned, opds.AvailabilityOpenAccess:
		return s.advance(bc, entry)

	case opds.AvailabilityHeld:
		bc.Recorder.StepSucceeded("hold queued")
		bc.PublishStatus(borrow.HeldInQueue(av.HoldPosition))
		return borrow.HaltEarly()

	case opds.AvailabilityReady:
		bc.Recorder.StepSucceeded("hold ready for pickup")
		bc.PublishStatus(borrow.BookStatus{Kind: borrow.StatusHeldReady})
		return borrow.HaltEarly()

	case opds.AvailabilityHoldable:
		if av.HoldPosition != nil {
			bc.Recorder.StepSucceeded("hold queued")
			bc.PublishStatus(borrow.HeldInQueue(av.HoldPosition))
			return borrow.HaltEarly()
		}
		return failStep(bc, "entry is holdable with no queue position", borrow.CodeOPDSFeedEntryHoldable)

	default:
		detail := fmt.Sprintf("loan response reports unexpected availability %q", av.State)
		return failStep(bc, detail, borrow.CodeOPDSFeedEntryParseError)
	}
}

// advance writes the updated entry and repoints the task at the next hop's
// URI from the new entry's acquisitions.
func (s *LoanCreate) advance(bc *borrow.Context, entry *opds.Entry) borrow.Outcome {
	next, ok := bc.PeekElement()
	if !ok {
		return failStep(bc, "loan created but path has no further elements", borrow.CodeRequiredURIMissing)
	}

	target := ""
	for _, acq := range entry.Acquisitions {
		if acq.Target != "" && opds.TypesCompatible(acq.Type, next.Type) {
			target = acq.Target
			break
		}
	}
	if target == "" {
		detail := fmt.Sprintf("loan response offers no link for %s", next.Type)
		return failStep(bc, detail, borrow.CodeRequiredURIMissing)
	}

	if err := bc.WriteEntry(entry); err != nil {
		return failStep(bc, fmt.Sprintf("failed to store updated entry: %v", err), borrow.CodeBookDatabaseFailed)
	}

	bc.SetCurrentURI(target)
	bc.Recorder.StepSucceeded("loan created")
	bc.PublishStatus(borrow.BookStatus{Kind: borrow.StatusLoanedNotDownloaded})
	return borrow.Continue()
}
