package subtasks

import (
	"fmt"
	"net/http"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/opds"
)

// SAMLDownload is DirectDownload for accounts behind external (SAML)
// authentication: it attaches the stored session, and an HTML response
// means the session expired and a browser login must happen first.
type SAMLDownload struct{}

func (s *SAMLDownload) Name() string { return "saml_download" }

func (s *SAMLDownload) Execute(bc *borrow.Context, elem borrow.PathElement) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	uri := bc.CurrentURI()
	if uri == "" {
		return failStep(bc, "no URI to download from", borrow.CodeRequiredURIMissing)
	}

	bc.StartDownloading()

	resp, ferr := fetch(bc, http.MethodGet, uri, nil, func(req *http.Request) {
		creds := bc.Account.Credentials
		if creds == nil {
			return
		}
		if creds.BearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
		}
		for _, c := range creds.Cookies {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	})
	if ferr != nil {
		return failFetch(bc, ferr)
	}
	defer resp.Body.Close()

	// An HTML body is the IdP's login page, not the book: park the task
	// until the UI completes a browser-based login.
	if typeMatches(resp, opds.TypeHTML) {
		bc.Recorder.StepSucceeded("external authentication required")
		bc.PublishStatus(borrow.BookStatus{Kind: borrow.StatusWaitingForExternalAuth})
		return borrow.HaltEarly()
	}

	if !statusOK(resp) {
		return failStep(bc, fmt.Sprintf("download returned %s", resp.Status), borrow.CodeHTTPRequestFailed)
	}
	if !typeMatches(resp, elem.Type) {
		detail := fmt.Sprintf("expected %s, server sent %s", elem.Type, responseType(resp))
		return failStep(bc, detail, borrow.CodeHTTPContentTypeIncompatible)
	}

	return saveBook(bc, elem, resp)
}
