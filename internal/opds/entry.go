package opds

import (
	"io"
	"time"
)

// AvailabilityState describes the lending state a catalog entry reports.
type AvailabilityState string

const (
	AvailabilityOpenAccess AvailabilityState = "open-access"
	AvailabilityLoanable   AvailabilityState = "loanable"
	AvailabilityLoaned     AvailabilityState = "loaned"
	AvailabilityHoldable   AvailabilityState = "holdable"
	AvailabilityHeld       AvailabilityState = "held"
	AvailabilityReady      AvailabilityState = "ready"
)

// AcquisitionRelation is the Atom link relation an acquisition was offered under.
type AcquisitionRelation string

const (
	RelationBorrow     AcquisitionRelation = "http://opds-spec.org/acquisition/borrow"
	RelationOpenAccess AcquisitionRelation = "http://opds-spec.org/acquisition/open-access"
	RelationGeneric    AcquisitionRelation = "http://opds-spec.org/acquisition"
)

// Entry is an already-parsed OPDS catalog entry. The feed grammar itself is
// handled by an injected EntryParser; this package only models the result.
type Entry struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Updated      time.Time     `json:"updated"`
	Acquisitions []Acquisition `json:"acquisitions"`
	Availability Availability  `json:"availability"`
}

// Acquisition is one way the entry offers to obtain the book, optionally
// followed by a chain of indirect content-type hops.
type Acquisition struct {
	Relation AcquisitionRelation   `json:"relation"`
	Target   string                `json:"target,omitempty"`
	Type     string                `json:"type"`
	Indirect []IndirectAcquisition `json:"indirect,omitempty"`
}

// IndirectAcquisition is a nested content-type hop with no target of its own.
type IndirectAcquisition struct {
	Type     string                `json:"type"`
	Indirect []IndirectAcquisition `json:"indirect,omitempty"`
}

// Availability carries the entry's lending state and queue information.
type Availability struct {
	State        AvailabilityState `json:"state"`
	Copies       *int              `json:"copies,omitempty"`
	CopiesHeld   *int              `json:"copies_held,omitempty"`
	HoldPosition *int              `json:"hold_position,omitempty"`
	EndDate      *time.Time        `json:"end_date,omitempty"`
	RevokeTarget string            `json:"revoke_target,omitempty"`
}

// EntryParser parses a serialized OPDS feed entry. Implementations live
// outside this module; loan responses and catalog feeds both go through it.
type EntryParser interface {
	ParseEntry(r io.Reader) (*Entry, error)
}
