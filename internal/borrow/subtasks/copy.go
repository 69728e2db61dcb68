package subtasks

import (
	"fmt"
	"net/url"

	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/content"
)

// Copy obtains the book from a content:// or bundled URI through the
// injected resolvers; no network I/O is involved.
type Copy struct{}

func (s *Copy) Name() string { return "copy" }

func (s *Copy) Execute(bc *borrow.Context, elem borrow.PathElement) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	uri := bc.CurrentURI()
	if uri == "" {
		return failStep(bc, "no URI to copy from", borrow.CodeRequiredURIMissing)
	}

	resolver := resolverFor(bc, uri)
	if resolver == nil {
		return failStep(bc, fmt.Sprintf("no resolver for %q", uri), borrow.CodeContentFileNotFound)
	}

	src, err := resolver.Open(uri)
	if err != nil {
		return failStep(bc, fmt.Sprintf("failed to resolve %q: %v", uri, err), borrow.CodeContentFileNotFound)
	}
	defer src.Close()

	bc.StartDownloading()

	handle, err := bc.DB.FormatHandle(elem.Type)
	if err != nil {
		return failStep(bc, fmt.Sprintf("no format handle for %s: %v", elem.Type, err), borrow.CodeBookDatabaseFailed)
	}
	if err := handle.WriteBook(newProgressReader(bc, src, -1)); err != nil {
		if bc.Cancelled() {
			return borrow.Cancelled()
		}
		return failStep(bc, fmt.Sprintf("copy failed: %v", err), borrow.CodeContentFileNotFound)
	}
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	bc.Recorder.StepSucceeded("book copied")
	bc.MarkFulfilled()
	return borrow.Continue()
}

func resolverFor(bc *borrow.Context, uri string) content.Resolver {
	u, err := url.Parse(uri)
	if err != nil {
		return nil
	}
	switch u.Scheme {
	case content.SchemeContent:
		return bc.ContentResolver
	case content.SchemeBundled:
		return bc.BundledResolver
	}
	return nil
}
