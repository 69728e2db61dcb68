package subtasks

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/drm"
	"github.com/libshelf/borrowd/internal/opds"
)

// AxisNow downloads a JSON fulfillment token and calls the AxisNow service
// to obtain the license, the user key, and the book itself.
type AxisNow struct{}

func (s *AxisNow) Name() string { return "axisnow_fulfill" }

func (s *AxisNow) Execute(bc *borrow.Context, elem borrow.PathElement) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	if bc.AxisNow == nil {
		return failStep(bc, "no AxisNow connector is configured", borrow.CodeAxisNowNotSupported)
	}

	uri := bc.CurrentURI()
	if uri == "" {
		return failStep(bc, "no URI to download AxisNow token from", borrow.CodeRequiredURIMissing)
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
		return failStep(bc, fmt.Sprintf("AxisNow token download returned %s", resp.Status), borrow.CodeHTTPRequestFailed)
	}
	if !typeMatches(resp, elem.Type) {
		detail := fmt.Sprintf("expected %s, server sent %s", elem.Type, responseType(resp))
		return failStep(bc, detail, borrow.CodeHTTPContentTypeIncompatible)
	}

	token, err := drm.ParseAxisNowToken(resp.Body)
	if err != nil {
		return failStep(bc, fmt.Sprintf("bad AxisNow token: %v", err), borrow.CodeAxisNowFulfillmentFailed)
	}
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	fulfillment, err := bc.AxisNow.Fulfill(bc.Ctx(), token)
	if err != nil {
		if bc.Cancelled() {
			return borrow.Cancelled()
		}
		return failStep(bc, fmt.Sprintf("AxisNow fulfillment failed: %v", err), borrow.CodeAxisNowFulfillmentFailed)
	}
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	// AxisNow always fulfills an EPUB; the trailing path element names it.
	format := opds.TypeEPUB
	if next, ok := bc.PeekElement(); ok {
		format = next.Type
	}
	handle, err := bc.DB.FormatHandle(format)
	if err != nil {
		return failStep(bc, fmt.Sprintf("no format handle for %s: %v", format, err), borrow.CodeBookDatabaseFailed)
	}
	if err := handle.WriteAxisNowLicense(fulfillment.License, fulfillment.UserKey); err != nil {
		return failStep(bc, fmt.Sprintf("failed to store AxisNow license: %v", err), borrow.CodeBookDatabaseFailed)
	}
	if err := handle.WriteBook(bytes.NewReader(fulfillment.Book)); err != nil {
		return failStep(bc, fmt.Sprintf("failed to store book: %v", err), borrow.CodeBookDatabaseFailed)
	}

	bc.Recorder.StepSucceeded("fulfilled")
	bc.MarkFulfilled()
	return borrow.Continue()
}
