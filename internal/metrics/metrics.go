package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BorrowsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "borrowd_borrows_started_total",
		Help: "Total number of borrow tasks started",
	})

	BorrowsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "borrowd_borrows_succeeded_total",
		Help: "Total number of borrow tasks that completed successfully",
	})

	BorrowsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "borrowd_borrows_failed_total",
		Help: "Total number of borrow tasks that failed",
	})

	BorrowsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "borrowd_borrows_cancelled_total",
		Help: "Total number of borrow tasks cancelled by the caller",
	})

	DownloadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "borrowd_downloaded_bytes_total",
		Help: "Total number of book payload bytes downloaded",
	})

	BorrowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "borrowd_borrow_duration_seconds",
		Help:    "Borrow task duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
