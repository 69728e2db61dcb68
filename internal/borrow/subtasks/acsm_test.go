package subtasks

import (
	"testing"

	"github.com/libshelf/borrowd/internal/accounts"
	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/drm"
	"github.com/libshelf/borrowd/internal/opds"
)

type stubAdobe struct{}

func (stubAdobe) FulfillACSM(*drm.ACSM, drm.AdobeCredentials, drm.AdobeProgressFunc) (*drm.AdobeFulfillment, error) {
	return nil, &drm.AdobeError{Code: "unreachable"}
}

func runACSM(bc *borrow.Context) borrow.Outcome {
	return (&ACSM{}).Execute(bc, borrow.PathElement{Type: opds.TypeACSM})
}

func adobeAccount() *accounts.Account {
	account := testAccount(accounts.AuthBasic)
	account.Credentials.AdobePre = &accounts.AdobePreActivation{VendorID: "vendor", ClientToken: "token"}
	account.Credentials.AdobePost = &accounts.AdobePostActivation{DeviceID: "device", UserID: "user"}
	return account
}

func TestACSM_NoConnector(t *testing.T) {
	bc, _, _ := newTestContext(t, adobeAccount())

	outcome := runACSM(bc)
	if outcome.Kind != borrow.OutcomeFailed || outcome.Code != borrow.CodeACSNotSupported {
		t.Fatalf("outcome %+v, want failure with %s", outcome, borrow.CodeACSNotSupported)
	}
}

func TestACSM_NotAuthenticated(t *testing.T) {
	account := adobeAccount()
	account.Credentials = nil

	bc, _, _ := newTestContext(t, account)
	bc.Adobe = stubAdobe{}

	outcome := runACSM(bc)
	if outcome.Code != borrow.CodeAccountCredentialsRequired {
		t.Fatalf("error code %s, want %s", outcome.Code, borrow.CodeAccountCredentialsRequired)
	}
}

func TestACSM_MissingAdobeCredentials(t *testing.T) {
	account := adobeAccount()
	account.Credentials.AdobePre = nil

	bc, _, _ := newTestContext(t, account)
	bc.Adobe = stubAdobe{}

	if outcome := runACSM(bc); outcome.Code != borrow.CodeACSNoCredentialsPre {
		t.Fatalf("error code %s, want %s", outcome.Code, borrow.CodeACSNoCredentialsPre)
	}

	account = adobeAccount()
	account.Credentials.AdobePost = nil

	bc, _, _ = newTestContext(t, account)
	bc.Adobe = stubAdobe{}

	if outcome := runACSM(bc); outcome.Code != borrow.CodeACSNoCredentialsPost {
		t.Fatalf("error code %s, want %s", outcome.Code, borrow.CodeACSNoCredentialsPost)
	}
}

func TestACSM_MissingURI(t *testing.T) {
	bc, _, _ := newTestContext(t, adobeAccount())
	bc.Adobe = stubAdobe{}

	outcome := runACSM(bc)
	if outcome.Code != borrow.CodeRequiredURIMissing {
		t.Fatalf("error code %s, want %s", outcome.Code, borrow.CodeRequiredURIMissing)
	}
}
