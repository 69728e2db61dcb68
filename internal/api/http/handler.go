package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/opds"
	"github.com/libshelf/borrowd/internal/service"
)

// BorrowServiceI defines the interface for borrow-related business logic.
type BorrowServiceI interface {
	Borrow(request borrow.Request) (uuid.UUID, error)
	Snapshot(taskID uuid.UUID) (service.TaskSnapshot, error)
	Cancel(taskID uuid.UUID) error
}

// StatusReaderI reads the latest published status of a book.
type StatusReaderI interface {
	Status(bookID uuid.UUID) (borrow.BookStatus, bool)
}

// CreateBorrowRequest is the request body for starting a borrow. The entry
// arrives already parsed, in the service's JSON shape.
type CreateBorrowRequest struct {
	AccountID uuid.UUID   `json:"account_id" validate:"required"`
	BookID    uuid.UUID   `json:"book_id" validate:"required"`
	Entry     *opds.Entry `json:"entry" validate:"required"`
}

// BorrowHandler handles HTTP requests for borrow tasks and book statuses.
type BorrowHandler struct {
	borrows   BorrowServiceI
	statuses  StatusReaderI
	validator *validator.Validate
	logger    *slog.Logger
}

// NewBorrowHandler creates a new BorrowHandler with the provided services and logger.
func NewBorrowHandler(borrows BorrowServiceI, statuses StatusReaderI, logger *slog.Logger) *BorrowHandler {
	return &BorrowHandler{
		borrows:   borrows,
		statuses:  statuses,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateBorrow handles POST /borrows.
func (h *BorrowHandler) CreateBorrow(w http.ResponseWriter, r *http.Request) {
	var req CreateBorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	taskID, err := h.borrows.Borrow(borrow.Request{
		AccountID: req.AccountID,
		BookID:    req.BookID,
		Entry:     req.Entry,
	})
	if err != nil {
		if errors.Is(err, service.ErrBookBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to start borrow", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("borrow accepted", "task_id", taskID, "book_id", req.BookID)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": taskID,
	})
}

// GetBorrow handles GET /borrows/{taskID}.
func (h *BorrowHandler) GetBorrow(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	snap, err := h.borrows.Snapshot(taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error("failed to get task", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// CancelBorrow handles DELETE /borrows/{taskID}.
func (h *BorrowHandler) CancelBorrow(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	if err := h.borrows.Cancel(taskID); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		h.logger.Error("failed to cancel task", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// GetBookStatus handles GET /books/{bookID}/status.
func (h *BorrowHandler) GetBookStatus(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book ID")
		return
	}

	status, ok := h.statuses.Status(bookID)
	if !ok {
		writeError(w, http.StatusNotFound, "no status for book")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
