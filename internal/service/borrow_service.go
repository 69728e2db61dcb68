package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/libshelf/borrowd/internal/bookdb"
	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/metrics"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrBookBusy means a borrow task for this book is already running.
	ErrBookBusy = errors.New("a borrow task for this book is already running")
	// ErrTaskNotFound means no borrow task exists under the given ID.
	ErrTaskNotFound = errors.New("borrow task not found")
)

// TaskSnapshot is the externally visible state of one borrow task.
type TaskSnapshot struct {
	ID        uuid.UUID          `json:"task_id"`
	AccountID uuid.UUID          `json:"account_id"`
	BookID    uuid.UUID          `json:"book_id"`
	Running   bool               `json:"running"`
	StartedAt time.Time          `json:"started_at"`
	Steps     []borrow.TaskStep  `json:"steps"`
	Result    *borrow.TaskResult `json:"result,omitempty"`
}

type runningTask struct {
	id        uuid.UUID
	accountID uuid.UUID
	bookID    uuid.UUID
	task      *borrow.Task
	startedAt time.Time
	done      chan struct{}
	result    borrow.TaskResult
}

// BorrowService admits and runs borrow tasks, enforcing one running task
// per book at a time.
type BorrowService struct {
	services borrow.Services
	logger   *slog.Logger

	mu      sync.Mutex
	tasks   map[uuid.UUID]*runningTask
	byBook  map[uuid.UUID]uuid.UUID
	wg      sync.WaitGroup
	stopped bool
}

func NewBorrowService(services borrow.Services, logger *slog.Logger) *BorrowService {
	return &BorrowService{
		services: services,
		logger:   logger,
		tasks:    make(map[uuid.UUID]*runningTask),
		byBook:   make(map[uuid.UUID]uuid.UUID),
	}
}

// Borrow starts a borrow task for the request and returns its ID. A second
// request for a book whose task is still running is refused with
// ErrBookBusy; callers must not double-submit.
func (s *BorrowService) Borrow(request borrow.Request) (uuid.UUID, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return uuid.Nil, fmt.Errorf("service is shutting down")
	}
	if _, busy := s.byBook[request.BookID]; busy {
		s.mu.Unlock()
		return uuid.Nil, ErrBookBusy
	}

	rt := &runningTask{
		id:        uuid.New(),
		accountID: request.AccountID,
		bookID:    request.BookID,
		task:      borrow.NewTask(s.services, request),
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.tasks[rt.id] = rt
	s.byBook[rt.bookID] = rt.id
	s.wg.Add(1)
	s.mu.Unlock()

	metrics.BorrowsStarted.Inc()
	s.logger.Info("borrow task started", "task_id", rt.id, "book_id", rt.bookID, "account_id", rt.accountID)

	go s.run(rt)
	return rt.id, nil
}

func (s *BorrowService) run(rt *runningTask) {
	defer s.wg.Done()

	start := time.Now()
	result := rt.task.Run(context.Background())
	metrics.BorrowDuration.Observe(time.Since(start).Seconds())

	switch {
	case result.Cancelled:
		metrics.BorrowsCancelled.Inc()
		s.logger.Info("borrow task cancelled", "task_id", rt.id, "book_id", rt.bookID)
	case result.Succeeded:
		metrics.BorrowsSucceeded.Inc()
		s.logger.Info("borrow task succeeded", "task_id", rt.id, "book_id", rt.bookID)
	default:
		metrics.BorrowsFailed.Inc()
		s.logger.Warn("borrow task failed",
			"task_id", rt.id,
			"book_id", rt.bookID,
			"error_code", string(result.LastErrorCode),
		)
	}

	s.mu.Lock()
	rt.result = result
	close(rt.done)
	delete(s.byBook, rt.bookID)
	s.mu.Unlock()
}

// Snapshot returns the current state of a task by ID.
func (s *BorrowService) Snapshot(taskID uuid.UUID) (TaskSnapshot, error) {
	s.mu.Lock()
	rt, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return TaskSnapshot{}, ErrTaskNotFound
	}

	snap := TaskSnapshot{
		ID:        rt.id,
		AccountID: rt.accountID,
		BookID:    rt.bookID,
		StartedAt: rt.startedAt,
	}
	select {
	case <-rt.done:
		result := rt.result
		snap.Result = &result
		snap.Steps = result.Steps
	default:
		snap.Running = true
		snap.Steps = rt.task.Steps()
	}
	return snap, nil
}

// Cancel requests cooperative cancellation of a running task.
func (s *BorrowService) Cancel(taskID uuid.UUID) error {
	s.mu.Lock()
	rt, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return ErrTaskNotFound
	}
	rt.task.Cancel()
	return nil
}

// RecordLister enumerates persisted book records; the bbolt store provides it.
type RecordLister interface {
	Records() ([]*bookdb.Record, error)
}

// ReconcileStatuses republishes registry statuses for books already in the
// database, so a restarted daemon answers status queries for past loans.
func (s *BorrowService) ReconcileStatuses(ctx context.Context, lister RecordLister) error {
	records, err := lister.Records()
	if err != nil {
		return fmt.Errorf("failed to list book records: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.services.Statuses.Publish(rec.BookID, recordStatus(rec))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to reconcile statuses: %w", err)
	}

	s.logger.Info("book statuses reconciled", "records", len(records))
	return nil
}

func recordStatus(rec *bookdb.Record) borrow.BookStatus {
	for _, info := range rec.Formats {
		if info.BookFile != "" || info.ManifestFile != "" {
			return borrow.BookStatus{Kind: borrow.StatusLoanedDownloaded}
		}
	}
	return borrow.BookStatus{Kind: borrow.StatusLoanedNotDownloaded}
}

// Shutdown cancels every running task and waits for them to stop.
func (s *BorrowService) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down borrow service")

	s.mu.Lock()
	s.stopped = true
	for _, rt := range s.tasks {
		select {
		case <-rt.done:
		default:
			rt.task.Cancel()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("borrow service shutdown completed")
		return nil
	case <-ctx.Done():
		s.logger.Warn("borrow service shutdown timed out")
		return ctx.Err()
	}
}
