package subtasks

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/drm"
)

// ACSM downloads an Adobe fulfillment token and drives the Adobe connector
// to produce the decrypted book.
type ACSM struct{}

func (s *ACSM) Name() string { return "acsm_fulfill" }

func (s *ACSM) Execute(bc *borrow.Context, elem borrow.PathElement) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	if bc.Adobe == nil {
		return failStep(bc, "no Adobe connector is configured", borrow.CodeACSNotSupported)
	}
	if !bc.Account.Authenticated() {
		return failStep(bc, "account is not authenticated", borrow.CodeAccountCredentialsRequired)
	}
	creds := bc.Account.Credentials
	if creds.AdobePre == nil {
		return failStep(bc, "account has no Adobe pre-activation credentials", borrow.CodeACSNoCredentialsPre)
	}
	if creds.AdobePost == nil {
		return failStep(bc, "account has no Adobe post-activation credentials", borrow.CodeACSNoCredentialsPost)
	}

	uri := bc.CurrentURI()
	if uri == "" {
		return failStep(bc, "no URI to download ACSM from", borrow.CodeRequiredURIMissing)
	}

	bc.StartDownloading()

	resp, ferr := fetch(bc, http.MethodGet, uri, nil, func(req *http.Request) {
		applyCredentials(bc, req)
	})
	if ferr != nil {
		return failFetch(bc, ferr)
	}
	defer resp.Body.Close()

	if !statusOK(resp) {
		return failStep(bc, fmt.Sprintf("ACSM download returned %s", resp.Status), borrow.CodeHTTPRequestFailed)
	}
	if !typeMatches(resp, elem.Type) {
		detail := fmt.Sprintf("expected %s, server sent %s", elem.Type, responseType(resp))
		return failStep(bc, detail, borrow.CodeHTTPContentTypeIncompatible)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failStep(bc, fmt.Sprintf("failed to read ACSM body: %v", err), borrow.CodeHTTPConnectionFailed)
	}
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	acsm, err := drm.ParseACSM(data)
	if err != nil {
		return failStep(bc, fmt.Sprintf("unparseable ACSM: %v", err), borrow.CodeACSUnparseableACSM)
	}
	bc.Recorder.StepSucceeded(fmt.Sprintf("ACSM for %s", acsm.Format))

	bc.Recorder.BeginStep("fulfilling via Adobe connector")
	fulfillment, outcome := s.fulfill(bc, acsm, drm.AdobeCredentials{Pre: *creds.AdobePre, Post: *creds.AdobePost})
	if fulfillment == nil {
		return outcome
	}
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	handle, err := bc.DB.FormatHandle(fulfillment.Format)
	if err != nil {
		return failStep(bc, fmt.Sprintf("no format handle for %s: %v", fulfillment.Format, err), borrow.CodeBookDatabaseFailed)
	}
	if err := handle.WriteAdobeRights(fulfillment.Rights); err != nil {
		return failStep(bc, fmt.Sprintf("failed to store Adobe rights: %v", err), borrow.CodeBookDatabaseFailed)
	}
	if err := handle.WriteBook(bytes.NewReader(fulfillment.Book)); err != nil {
		return failStep(bc, fmt.Sprintf("failed to store book: %v", err), borrow.CodeBookDatabaseFailed)
	}

	bc.Recorder.StepSucceeded("fulfilled")
	bc.MarkFulfilled()
	return borrow.Continue()
}

type adobeResult struct {
	fulfillment *drm.AdobeFulfillment
	err         error
}

// fulfill waits on the connector's own thread with an explicit timeout.
// Progress callbacks go through the context's throttle gate.
func (s *ACSM) fulfill(bc *borrow.Context, acsm *drm.ACSM, creds drm.AdobeCredentials) (*drm.AdobeFulfillment, borrow.Outcome) {
	results := make(chan adobeResult, 1)
	go func() {
		fulfillment, err := bc.Adobe.FulfillACSM(acsm, creds, func(received, expected int64) {
			bc.PublishDownloadProgress(received, expected)
		})
		results <- adobeResult{fulfillment: fulfillment, err: err}
	}()

	timer := time.NewTimer(bc.ACSMTimeout)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return nil, failStep(bc, res.err.Error(), adobeErrorCode(res.err))
		}
		return res.fulfillment, borrow.Continue()
	case <-timer.C:
		return nil, failStep(bc, fmt.Sprintf("Adobe fulfillment exceeded %s", bc.ACSMTimeout), borrow.CodeACSTimedOut)
	case <-bc.Ctx().Done():
		return nil, borrow.Cancelled()
	}
}

func adobeErrorCode(err error) borrow.ErrorCode {
	var adobeErr *drm.AdobeError
	if errors.As(err, &adobeErr) {
		return borrow.ACSDynamicCode(adobeErr.Code)
	}
	return borrow.ACSExceptionCode(err)
}
