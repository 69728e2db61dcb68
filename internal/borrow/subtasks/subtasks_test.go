package subtasks

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/libshelf/borrowd/internal/accounts"
	"github.com/libshelf/borrowd/internal/bookdb"
	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/opds"
)

// Shared fakes for the subtask tests in this package.

type statusLog struct {
	mu       sync.Mutex
	statuses []borrow.BookStatus
}

func (l *statusLog) Publish(_ uuid.UUID, status borrow.BookStatus) {
	l.mu.Lock()
	l.statuses = append(l.statuses, status)
	l.mu.Unlock()
}

func (l *statusLog) last() borrow.BookStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.statuses) == 0 {
		return borrow.BookStatus{}
	}
	return l.statuses[len(l.statuses)-1]
}

type fakeHandle struct {
	mu       sync.Mutex
	book     []byte
	rights   []byte
	license  []byte
	userKey  []byte
	manifest []byte
	bookErr  error
}

func (h *fakeHandle) WriteBook(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if h.bookErr != nil {
		return h.bookErr
	}
	h.mu.Lock()
	h.book = data
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) WriteAdobeRights(rights []byte) error {
	h.mu.Lock()
	h.rights = rights
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) WriteAxisNowLicense(license, userKey []byte) error {
	h.mu.Lock()
	h.license = license
	h.userKey = userKey
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) WriteAudioManifest(manifest, _ []byte) error {
	h.mu.Lock()
	h.manifest = manifest
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) bookBytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.book
}

type fakeEntry struct {
	handle *fakeHandle
	entry  *opds.Entry
}

func (e *fakeEntry) WriteEntry(entry *opds.Entry) error {
	e.entry = entry
	return nil
}

func (e *fakeEntry) FormatHandle(mime string) (bookdb.FormatHandle, error) {
	base := opds.BaseType(mime)
	switch base {
	case opds.BaseType(opds.TypeEPUB), opds.BaseType(opds.TypePDF), opds.BaseType(opds.TypeAudiobookManifest):
		return e.handle, nil
	}
	return nil, bookdb.ErrNoSuchFormat
}

func (e *fakeEntry) Record() (*bookdb.Record, error) {
	return &bookdb.Record{Entry: e.entry}, nil
}

// newTestContext builds a context wired to in-memory fakes, returning the
// pieces the assertions need.
func newTestContext(t *testing.T, account *accounts.Account) (*borrow.Context, *statusLog, *fakeHandle) {
	t.Helper()

	statuses := &statusLog{}
	handle := &fakeHandle{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bc := borrow.NewContext(10 * time.Millisecond)
	bc.Account = account
	bc.BookID = uuid.New()
	bc.HTTP = &http.Client{Timeout: 10 * time.Second}
	bc.DB = &fakeEntry{handle: handle}
	bc.Statuses = statuses
	bc.Recorder = borrow.NewRecorder(logger)
	bc.Parser = opds.JSONEntryParser{}
	bc.Logger = logger
	bc.ACSMTimeout = 5 * time.Second

	return bc, statuses, handle
}

func testAccount(auth accounts.AuthKind) *accounts.Account {
	return &accounts.Account{
		ID:   uuid.New(),
		Auth: auth,
		Credentials: &accounts.Credentials{
			Username:    "patron",
			Password:    "pin",
			BearerToken: "",
		},
	}
}
