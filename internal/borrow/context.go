package borrow

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/libshelf/borrowd/internal/accounts"
	"github.com/libshelf/borrowd/internal/audio"
	"github.com/libshelf/borrowd/internal/bookdb"
	"github.com/libshelf/borrowd/internal/content"
	"github.com/libshelf/borrowd/internal/drm"
	"github.com/libshelf/borrowd/internal/opds"
	"github.com/libshelf/borrowd/internal/throttle"
)

// Context is the mutable, single-task-lifetime state shared by the
// orchestrator and its subtasks. Exactly one running Task owns a Context;
// it is never shared across concurrent tasks for the same book.
type Context struct {
	Account  *accounts.Account
	BookID   uuid.UUID
	Entry    *opds.Entry
	DB       bookdb.Entry
	Statuses StatusPublisher
	HTTP     *http.Client
	Clock    func() time.Time
	Recorder *Recorder
	Parser   opds.EntryParser
	Logger   *slog.Logger

	Adobe           drm.AdobeConnector
	AxisNow         drm.AxisNowConnector
	AudioStrategy   audio.ManifestStrategy
	ContentResolver content.Resolver
	BundledResolver content.Resolver

	// ACSMTimeout bounds the wait on the DRM connector thread.
	ACSMTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	gate   *throttle.Gate

	remaining  []PathElement
	currentURI string

	cancelled       atomic.Bool
	downloadStarted atomic.Bool
	fulfilled       atomic.Bool
}

// NewContext builds an empty task context; the caller wires the
// collaborators before handing it to subtasks.
func NewContext(progressInterval time.Duration) *Context {
	ctx, cancel := context.WithCancel(context.Background())
	return &Context{
		Clock:  time.Now,
		ctx:    ctx,
		cancel: cancel,
		gate:   throttle.NewGate(progressInterval),
	}
}

// Ctx returns the context cancelled together with the task; HTTP requests
// issued by subtasks must be bound to it.
func (c *Context) Ctx() context.Context {
	return c.ctx
}

// Cancel requests cooperative cancellation. Subtasks observe it at entry
// and inside I/O loops; none may write to the database afterwards.
func (c *Context) Cancel() {
	c.cancelled.Store(true)
	c.cancel()
}

// Cancelled reports whether cancellation was requested.
func (c *Context) Cancelled() bool {
	return c.cancelled.Load()
}

// SetPath installs the selected acquisition path.
func (c *Context) SetPath(p Path) {
	c.remaining = append([]PathElement(nil), p.Elements...)
}

// NextElement pops the next path element. Elements that carry their own
// target URI replace the current one.
func (c *Context) NextElement() (PathElement, bool) {
	if len(c.remaining) == 0 {
		return PathElement{}, false
	}
	elem := c.remaining[0]
	c.remaining = c.remaining[1:]
	if elem.Target != "" {
		c.currentURI = elem.Target
	}
	return elem, true
}

// PeekElement returns the next path element without consuming it.
func (c *Context) PeekElement() (PathElement, bool) {
	if len(c.remaining) == 0 {
		return PathElement{}, false
	}
	return c.remaining[0], true
}

// RemainingElements returns how many path elements are left.
func (c *Context) RemainingElements() int {
	return len(c.remaining)
}

// CurrentURI is the URI the next subtask should operate on; empty when the
// path never provided one.
func (c *Context) CurrentURI() string {
	return c.currentURI
}

// SetCurrentURI advances the working URI, e.g. after a loan response hands
// out the next hop's location.
func (c *Context) SetCurrentURI(uri string) {
	c.currentURI = uri
}

// PublishStatus pushes a status to the book registry unconditionally.
func (c *Context) PublishStatus(status BookStatus) {
	c.Statuses.Publish(c.BookID, status)
}

// StartDownloading marks the transition into the download phase and
// publishes an initial Downloading state.
func (c *Context) StartDownloading() {
	c.downloadStarted.Store(true)
	c.PublishStatus(Downloading(0, -1))
}

// PublishDownloadProgress reports download progress through the throttle
// gate. Callback volume is caller-controlled and unbounded, so only a
// bounded number of states reach the registry.
func (c *Context) PublishDownloadProgress(received, expected int64) {
	if c.cancelled.Load() {
		return
	}
	c.downloadStarted.Store(true)
	if c.gate.Allow() {
		c.PublishStatus(Downloading(received, expected))
	}
}

// DownloadStarted reports whether any subtask entered the download phase;
// it selects FailedLoan versus FailedDownload on failure.
func (c *Context) DownloadStarted() bool {
	return c.downloadStarted.Load()
}

// MarkFulfilled records that the final book artifact has been written, so
// trailing path elements need not run.
func (c *Context) MarkFulfilled() {
	c.fulfilled.Store(true)
}

// Fulfilled reports whether the book has been fully fulfilled.
func (c *Context) Fulfilled() bool {
	return c.fulfilled.Load()
}

// WriteEntry persists a replacement catalog entry and adopts it as the
// context's current entry.
func (c *Context) WriteEntry(entry *opds.Entry) error {
	if err := c.DB.WriteEntry(entry); err != nil {
		return err
	}
	c.Entry = entry
	return nil
}
