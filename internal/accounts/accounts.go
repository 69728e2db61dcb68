package accounts

import (
	"context"

	"github.com/google/uuid"
)

// AdobePreActivation is the vendor-issued credential pair needed before a
// device can be activated against Adobe ACS.
type AdobePreActivation struct {
	VendorID    string `json:"vendor_id"`
	ClientToken string `json:"client_token"`
}

// AdobePostActivation identifies an already-activated device and user.
type AdobePostActivation struct {
	DeviceID string `json:"device_id"`
	UserID   string `json:"user_id"`
}

// Cookie is a stored session cookie for externally-authenticated downloads.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Credentials holds everything an authenticated account can present.
// A nil Credentials on an Account means the account is not logged in.
type Credentials struct {
	Username    string               `json:"username,omitempty"`
	Password    string               `json:"password,omitempty"`
	BearerToken string               `json:"bearer_token,omitempty"`
	Cookies     []Cookie             `json:"cookies,omitempty"`
	AdobePre    *AdobePreActivation  `json:"adobe_pre,omitempty"`
	AdobePost   *AdobePostActivation `json:"adobe_post,omitempty"`
}

// AuthKind is how the account's library authenticates its patrons.
type AuthKind string

const (
	AuthBasic AuthKind = "basic"
	AuthSAML  AuthKind = "saml"
)

// Account is a library account as seen by the borrowing pipeline.
type Account struct {
	ID          uuid.UUID    `json:"id"`
	ProviderID  string       `json:"provider_id"`
	Auth        AuthKind     `json:"auth"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

// Authenticated reports whether the account carries any credentials.
func (a *Account) Authenticated() bool {
	return a.Credentials != nil
}

// Provider resolves accounts; backed by the host's account store.
type Provider interface {
	Account(ctx context.Context, id uuid.UUID) (*Account, error)
}
