package subtasks

import (
	"errors"
	"fmt"

	"github.com/libshelf/borrowd/internal/audio"
	"github.com/libshelf/borrowd/internal/borrow"
)

// AudioBook delegates manifest acquisition to the injected audio-manifest
// fulfillment strategy and stores what it yields.
type AudioBook struct{}

func (s *AudioBook) Name() string { return "audiobook_fulfill" }

func (s *AudioBook) Execute(bc *borrow.Context, elem borrow.PathElement) borrow.Outcome {
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	if bc.AudioStrategy == nil {
		return failStep(bc, "no audio manifest strategy is configured", borrow.CodeAudioStrategyFailed)
	}

	uri := bc.CurrentURI()
	if uri == "" {
		return failStep(bc, "no URI to fulfill the manifest from", borrow.CodeRequiredURIMissing)
	}

	bc.StartDownloading()

	bearer := ""
	if creds := bc.Account.Credentials; creds != nil {
		bearer = creds.BearerToken
	}

	manifest, err := bc.AudioStrategy.FulfillManifest(bc.Ctx(), uri, bearer)
	if err != nil {
		if bc.Cancelled() {
			return borrow.Cancelled()
		}
		return failStep(bc, fmt.Sprintf("manifest strategy failed: %v", err), audioErrorCode(err))
	}
	if bc.Cancelled() {
		return borrow.Cancelled()
	}

	handle, err := bc.DB.FormatHandle(elem.Type)
	if err != nil {
		return failStep(bc, fmt.Sprintf("no format handle for %s: %v", elem.Type, err), borrow.CodeBookDatabaseFailed)
	}
	if err := handle.WriteAudioManifest(manifest.Manifest, manifest.Fulfillment); err != nil {
		return failStep(bc, fmt.Sprintf("failed to store manifest: %v", err), borrow.CodeBookDatabaseFailed)
	}

	bc.Recorder.StepSucceeded("manifest stored")
	bc.MarkFulfilled()
	return borrow.Continue()
}

func audioErrorCode(err error) borrow.ErrorCode {
	var strategyErr *audio.StrategyError
	if errors.As(err, &strategyErr) {
		return borrow.AudioStrategyCode(strategyErr.Code)
	}
	return borrow.CodeAudioStrategyFailed
}
