package borrow

import "github.com/google/uuid"

// StatusKind enumerates the states a book moves through while borrowing.
type StatusKind string

const (
	StatusRequestingLoan         StatusKind = "requesting_loan"
	StatusDownloading            StatusKind = "downloading"
	StatusHeldInQueue            StatusKind = "held_in_queue"
	StatusHeldReady              StatusKind = "held_ready"
	StatusLoanedNotDownloaded    StatusKind = "loaned_not_downloaded"
	StatusLoanedDownloaded       StatusKind = "loaned_downloaded"
	StatusFailedLoan             StatusKind = "failed_loan"
	StatusFailedDownload         StatusKind = "failed_download"
	StatusWaitingForExternalAuth StatusKind = "download_waiting_for_external_authentication"
)

// BookStatus is one published state of a book. Payload fields are only
// meaningful for the kinds that carry them.
type BookStatus struct {
	Kind StatusKind `json:"kind"`

	// Downloading progress; ExpectedBytes is -1 when unknown.
	ReceivedBytes int64 `json:"received_bytes,omitempty"`
	ExpectedBytes int64 `json:"expected_bytes,omitempty"`

	// Hold queue position, when the server reports one.
	QueuePosition *int `json:"queue_position,omitempty"`

	// Failure diagnostics.
	ErrorCode ErrorCode `json:"error_code,omitempty"`
}

// Terminal reports whether the status ends a borrow task.
func (s BookStatus) Terminal() bool {
	switch s.Kind {
	case StatusLoanedDownloaded, StatusFailedLoan, StatusFailedDownload,
		StatusHeldInQueue, StatusHeldReady, StatusWaitingForExternalAuth:
		return true
	}
	return false
}

// Failed reports whether the status is a failure state.
func (s BookStatus) Failed() bool {
	return s.Kind == StatusFailedLoan || s.Kind == StatusFailedDownload
}

func Downloading(received, expected int64) BookStatus {
	return BookStatus{Kind: StatusDownloading, ReceivedBytes: received, ExpectedBytes: expected}
}

func HeldInQueue(position *int) BookStatus {
	return BookStatus{Kind: StatusHeldInQueue, QueuePosition: position}
}

// StatusPublisher pushes interim and terminal book states to the externally
// owned book registry.
type StatusPublisher interface {
	Publish(bookID uuid.UUID, status BookStatus)
}
