package bookregistry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/libshelf/borrowd/internal/borrow"
)

// Registry holds the latest published status per book. It is the
// process-local view the UI reads; persistence belongs to the book
// database, not here.
type Registry struct {
	mu       sync.RWMutex
	statuses map[uuid.UUID]borrow.BookStatus
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		statuses: make(map[uuid.UUID]borrow.BookStatus),
		logger:   logger,
	}
}

// Publish records the latest status for a book.
func (r *Registry) Publish(bookID uuid.UUID, status borrow.BookStatus) {
	r.mu.Lock()
	r.statuses[bookID] = status
	r.mu.Unlock()

	r.logger.Debug("book status published", "book_id", bookID, "kind", string(status.Kind))
}

// Status returns the latest status for a book, if any was published.
func (r *Registry) Status(bookID uuid.UUID) (borrow.BookStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.statuses[bookID]
	return st, ok
}
