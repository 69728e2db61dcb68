package bookdb

import (
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/libshelf/borrowd/internal/opds"
)

// ErrNoSuchFormat is returned when an entry has no handle for a MIME type.
var ErrNoSuchFormat = errors.New("no format handle for content type")

// ErrNotFound is returned when a book record does not exist.
var ErrNotFound = errors.New("book record not found")

// Database opens per-book records. Writes through the returned handles are
// whole-record: the pipeline appends complete artifacts at success points
// and never partially mutates a record.
type Database interface {
	// OpenEntry opens the record for a book, creating it with the given
	// catalog entry when absent.
	OpenEntry(accountID, bookID uuid.UUID, entry *opds.Entry) (Entry, error)
}

// Entry is the handle to one book's persistent record.
type Entry interface {
	// WriteEntry replaces the stored catalog entry.
	WriteEntry(entry *opds.Entry) error
	// FormatHandle returns the writer for a final content type.
	FormatHandle(mime string) (FormatHandle, error)
	// Record returns the current persisted record.
	Record() (*Record, error)
}

// FormatHandle writes the artifacts a fulfilled book consists of. Which
// methods apply depends on the format: EPUB/PDF carry a book payload and
// optionally Adobe rights, AxisNow adds a license and user key, audiobooks
// store a manifest instead of a payload.
type FormatHandle interface {
	WriteBook(r io.Reader) error
	WriteAdobeRights(rights []byte) error
	WriteAxisNowLicense(license, userKey []byte) error
	WriteAudioManifest(manifest, fulfillment []byte) error
}

// Record is the persisted shape of a book.
type Record struct {
	AccountID uuid.UUID             `json:"account_id"`
	BookID    uuid.UUID             `json:"book_id"`
	Entry     *opds.Entry           `json:"entry"`
	Formats   map[string]FormatInfo `json:"formats,omitempty"`
	UpdatedAt string                `json:"updated_at"`
}

// FormatInfo records which artifacts exist for one format.
type FormatInfo struct {
	Type         string `json:"type"`
	BookFile     string `json:"book_file,omitempty"`
	RightsFile   string `json:"rights_file,omitempty"`
	LicenseFile  string `json:"license_file,omitempty"`
	UserKeyFile  string `json:"user_key_file,omitempty"`
	ManifestFile string `json:"manifest_file,omitempty"`
	FulfillFile  string `json:"fulfill_file,omitempty"`
}
