package subtasks

import (
	"fmt"
	"io"
	"net/http"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/metrics"
	"github.com/libshelf/borrowd/internal/opds"
)

// fetchError pairs a taxonomy code with a human-readable detail for the
// step log.
type fetchError struct {
	Code   borrow.ErrorCode
	Detail string
}

// fetch issues an HTTP request bound to the task context and maps transport
// and status failures onto the error taxonomy. Callers own resp.Body.
func fetch(bc *borrow.Context, method, uri string, body io.Reader, configure func(*http.Request)) (*http.Response, *fetchError) {
	req, err := http.NewRequestWithContext(bc.Ctx(), method, uri, body)
	if err != nil {
		return nil, &fetchError{
			Code:   borrow.CodeHTTPConnectionFailed,
			Detail: fmt.Sprintf("failed to create request for %s: %v", uri, err),
		}
	}
	if configure != nil {
		configure(req)
	}

	resp, err := bc.HTTP.Do(req)
	if err != nil {
		return nil, &fetchError{
			Code:   borrow.CodeHTTPConnectionFailed,
			Detail: fmt.Sprintf("request to %s failed: %v", uri, err),
		}
	}
	return resp, nil
}

// applyCredentials attaches the account's stored credentials to a request.
func applyCredentials(bc *borrow.Context, req *http.Request) {
	creds := bc.Account.Credentials
	if creds == nil {
		return
	}
	switch {
	case creds.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	case creds.Username != "":
		req.SetBasicAuth(creds.Username, creds.Password)
	}
}

// statusOK reports whether the response status is 2xx.
func statusOK(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// failStep records a failed step and returns the matching outcome.
func failStep(bc *borrow.Context, detail string, code borrow.ErrorCode) borrow.Outcome {
	bc.Recorder.StepFailed(detail, code)
	return borrow.Fail(code)
}

// failFetch records a fetch error as a failed step. A request torn down by
// task cancellation is not a failure.
func failFetch(bc *borrow.Context, ferr *fetchError) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}
	return failStep(bc, ferr.Detail, ferr.Code)
}

// responseType returns the response's Content-Type header.
func responseType(resp *http.Response) string {
	return resp.Header.Get("Content-Type")
}

// typeMatches checks a response content type against the expected one.
func typeMatches(resp *http.Response, expected string) bool {
	return opds.TypesCompatible(responseType(resp), expected)
}

// progressReader feeds download progress through the context's throttle
// gate and aborts the transfer once cancellation is observed.
type progressReader struct {
	bc       *borrow.Context
	src      io.Reader
	expected int64
	received int64
}

func newProgressReader(bc *borrow.Context, src io.Reader, expected int64) *progressReader {
	return &progressReader{bc: bc, src: src, expected: expected}
}

func (r *progressReader) Read(p []byte) (int, error) {
	if r.bc.Cancelled() {
		return 0, errCancelled
	}
	n, err := r.src.Read(p)
	if n > 0 {
		r.received += int64(n)
		metrics.DownloadedBytes.Add(float64(n))
		r.bc.PublishDownloadProgress(r.received, r.expected)
	}
	return n, err
}

// errCancelled aborts an in-flight transfer after cancellation; it never
// reaches the recorder.
var errCancelled = fmt.Errorf("borrow task cancelled")
