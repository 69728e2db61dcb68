package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/opds"
	"github.com/libshelf/borrowd/internal/service"
)

type mockBorrowService struct {
	borrowFn   func(request borrow.Request) (uuid.UUID, error)
	snapshotFn func(taskID uuid.UUID) (service.TaskSnapshot, error)
	cancelFn   func(taskID uuid.UUID) error
}

func (m *mockBorrowService) Borrow(request borrow.Request) (uuid.UUID, error) {
	return m.borrowFn(request)
}

func (m *mockBorrowService) Snapshot(taskID uuid.UUID) (service.TaskSnapshot, error) {
	return m.snapshotFn(taskID)
}

func (m *mockBorrowService) Cancel(taskID uuid.UUID) error {
	return m.cancelFn(taskID)
}

type mockStatusReader struct {
	statusFn func(bookID uuid.UUID) (borrow.BookStatus, bool)
}

func (m *mockStatusReader) Status(bookID uuid.UUID) (borrow.BookStatus, bool) {
	return m.statusFn(bookID)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func borrowBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"account_id": uuid.New(),
		"book_id":    uuid.New(),
		"entry": &opds.Entry{
			ID: "urn:isbn:9780000000001",
			Acquisitions: []opds.Acquisition{
				{Relation: opds.RelationBorrow, Target: "https://circ.example.com/loan/1", Type: opds.TypeOPDSEntry},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestCreateBorrow(t *testing.T) {
	taskID := uuid.New()
	borrows := &mockBorrowService{
		borrowFn: func(request borrow.Request) (uuid.UUID, error) {
			require.NotNil(t, request.Entry)
			return taskID, nil
		},
	}

	router := NewRouter(borrows, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/borrows", bytes.NewReader(borrowBody(t)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, taskID.String(), resp["task_id"])
}

func TestCreateBorrow_InvalidBody(t *testing.T) {
	router := NewRouter(&mockBorrowService{}, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/borrows", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBorrow_MissingFields(t *testing.T) {
	router := NewRouter(&mockBorrowService{}, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/borrows", bytes.NewReader([]byte(`{"book_id":"`+uuid.New().String()+`"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBorrow_BookBusy(t *testing.T) {
	borrows := &mockBorrowService{
		borrowFn: func(borrow.Request) (uuid.UUID, error) {
			return uuid.Nil, service.ErrBookBusy
		},
	}
	router := NewRouter(borrows, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodPost, "/borrows", bytes.NewReader(borrowBody(t)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestGetBorrow(t *testing.T) {
	taskID := uuid.New()
	borrows := &mockBorrowService{
		snapshotFn: func(id uuid.UUID) (service.TaskSnapshot, error) {
			require.Equal(t, taskID, id)
			return service.TaskSnapshot{ID: id, Running: true}, nil
		},
	}
	router := NewRouter(borrows, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/borrows/"+taskID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snap service.TaskSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Equal(t, taskID, snap.ID)
	require.True(t, snap.Running)
}

func TestGetBorrow_NotFound(t *testing.T) {
	borrows := &mockBorrowService{
		snapshotFn: func(uuid.UUID) (service.TaskSnapshot, error) {
			return service.TaskSnapshot{}, service.ErrTaskNotFound
		},
	}
	router := NewRouter(borrows, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/borrows/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBorrow_BadID(t *testing.T) {
	router := NewRouter(&mockBorrowService{}, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/borrows/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelBorrow(t *testing.T) {
	cancelled := false
	borrows := &mockBorrowService{
		cancelFn: func(uuid.UUID) error {
			cancelled = true
			return nil
		},
	}
	router := NewRouter(borrows, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodDelete, "/borrows/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.True(t, cancelled)
}

func TestCancelBorrow_NotFound(t *testing.T) {
	borrows := &mockBorrowService{
		cancelFn: func(uuid.UUID) error { return service.ErrTaskNotFound },
	}
	router := NewRouter(borrows, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodDelete, "/borrows/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBookStatus(t *testing.T) {
	bookID := uuid.New()
	statuses := &mockStatusReader{
		statusFn: func(id uuid.UUID) (borrow.BookStatus, bool) {
			require.Equal(t, bookID, id)
			return borrow.Downloading(512, 1024), true
		},
	}
	router := NewRouter(&mockBorrowService{}, statuses, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/books/"+bookID.String()+"/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status borrow.BookStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, borrow.StatusDownloading, status.Kind)
	require.Equal(t, int64(512), status.ReceivedBytes)
}

func TestGetBookStatus_Unknown(t *testing.T) {
	statuses := &mockStatusReader{
		statusFn: func(uuid.UUID) (borrow.BookStatus, bool) {
			return borrow.BookStatus{}, false
		},
	}
	router := NewRouter(&mockBorrowService{}, statuses, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/books/"+uuid.New().String()+"/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router := NewRouter(&mockBorrowService{}, &mockStatusReader{}, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
