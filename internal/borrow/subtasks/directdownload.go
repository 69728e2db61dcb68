package subtasks

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/opds"
)

// DirectDownload fetches the book over plain HTTP, transparently following
// a bearer-token indirection when the server hands one out.
type DirectDownload struct{}

func (s *DirectDownload) Name() string { return "direct_download" }

func (s *DirectDownload) Execute(bc *borrow.Context, elem borrow.PathElement) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	uri := bc.CurrentURI()
	if uri == "" {
		return failStep(bc, "no URI to download from", borrow.CodeRequiredURIMissing)
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
		return failStep(bc, fmt.Sprintf("download returned %s", resp.Status), borrow.CodeHTTPRequestFailed)
	}

	if typeMatches(resp, opds.TypeBearerToken) {
		token, err := opds.ParseBearerToken(resp.Body)
		resp.Body.Close()
		if err != nil {
			return failStep(bc, fmt.Sprintf("bad bearer token document: %v", err), borrow.CodeHTTPRequestFailed)
		}
		bc.Recorder.StepSucceeded("following bearer token indirection")
		bc.Recorder.BeginStep("downloading via bearer token location")

		resp, ferr = fetch(bc, http.MethodGet, token.Location, nil, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		})
		if ferr != nil {
			return failFetch(bc, ferr)
		}
		defer resp.Body.Close()

		if !statusOK(resp) {
			return failStep(bc, fmt.Sprintf("download returned %s", resp.Status), borrow.CodeHTTPRequestFailed)
		}
	}

	if !typeMatches(resp, elem.Type) {
		detail := fmt.Sprintf("expected %s, server sent %s", elem.Type, responseType(resp))
		return failStep(bc, detail, borrow.CodeHTTPContentTypeIncompatible)
	}

	return saveBook(bc, elem, resp)
}

// saveBook streams a response body into the matching format handle,
// reporting throttled progress along the way.
func saveBook(bc *borrow.Context, elem borrow.PathElement, resp *http.Response) borrow.Outcome {
	handle, err := bc.DB.FormatHandle(elem.Type)
	if err != nil {
		return failStep(bc, fmt.Sprintf("no format handle for %s: %v", elem.Type, err), borrow.CodeBookDatabaseFailed)
	}

	reader := newProgressReader(bc, resp.Body, resp.ContentLength)
	if err := handle.WriteBook(reader); err != nil {
		if errors.Is(err, errCancelled) || bc.Cancelled() {
			return borrow.Cancelled()
		}
		return failStep(bc, fmt.Sprintf("transfer failed: %v", err), borrow.CodeHTTPConnectionFailed)
	}
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	bc.Recorder.StepSucceeded("book stored")
	bc.MarkFulfilled()
	return borrow.Continue()
}
