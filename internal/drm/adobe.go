package drm

import (
	"fmt"

	"github.com/libshelf/borrowd/internal/accounts"
)

// AdobeCredentials is the full credential set Adobe fulfillment needs.
type AdobeCredentials struct {
	Pre  accounts.AdobePreActivation
	Post accounts.AdobePostActivation
}

// AdobeProgressFunc receives fulfillment progress. The connector may call it
// at an arbitrary, caller-controlled rate.
type AdobeProgressFunc func(receivedBytes, expectedBytes int64)

// AdobeFulfillment is the result of a successful ACSM fulfillment.
type AdobeFulfillment struct {
	// Book is the decrypted, fulfilled book payload.
	Book []byte
	// Rights is the Adobe rights document to store next to the book.
	Rights []byte
	// Format is the content type of Book.
	Format string
}

// AdobeError is a failure code reported by the Adobe connector itself.
type AdobeError struct {
	Code string
}

func (e *AdobeError) Error() string {
	return fmt.Sprintf("adobe connector error: %s", e.Code)
}

// AdobeConnector performs Adobe ACS fulfillment. Calls block on the
// connector's own thread; callers bound the wait with their own timeout.
type AdobeConnector interface {
	FulfillACSM(acsm *ACSM, creds AdobeCredentials, progress AdobeProgressFunc) (*AdobeFulfillment, error)
}
