package subtasks

import (
	"net/url"

	"github.com/libshelf/borrowd/internal/accounts"
	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/content"
	"github.com/libshelf/borrowd/internal/opds"
)

// downloadableTypes are the final content types the download subtasks can
// fetch and store directly.
var downloadableTypes = []string{opds.TypeEPUB, opds.TypePDF}

func isDownloadable(mime string) bool {
	for _, t := range downloadableTypes {
		if opds.TypesCompatible(t, mime) {
			return true
		}
	}
	return false
}

func hasLocalScheme(elem borrow.PathElement) bool {
	if elem.Target == "" {
		return false
	}
	u, err := url.Parse(elem.Target)
	if err != nil {
		return false
	}
	return u.Scheme == content.SchemeContent || u.Scheme == content.SchemeBundled
}

func isSAML(account *accounts.Account) bool {
	return account != nil && account.Auth == accounts.AuthSAML
}

// DefaultRegistry is the statically constructed subtask table. Order
// matters: earlier entries win, so Copy claims local-scheme targets before
// the network downloaders, and SAMLDownload claims downloads for
// SAML-authenticated accounts before DirectDownload.
func DefaultRegistry() *borrow.Registry {
	return borrow.NewRegistry(
		borrow.RegistryEntry{
			Name: "loan_create",
			Accepts: func(_ *accounts.Account, elem borrow.PathElement) bool {
				return opds.TypesCompatible(elem.Type, opds.TypeOPDSEntry)
			},
			New: func() borrow.Subtask { return &LoanCreate{} },
		},
		borrow.RegistryEntry{
			Name: "acsm_fulfill",
			Accepts: func(_ *accounts.Account, elem borrow.PathElement) bool {
				return opds.TypesCompatible(elem.Type, opds.TypeACSM)
			},
			New: func() borrow.Subtask { return &ACSM{} },
		},
		borrow.RegistryEntry{
			Name: "axisnow_fulfill",
			Accepts: func(_ *accounts.Account, elem borrow.PathElement) bool {
				return opds.TypesCompatible(elem.Type, opds.TypeAxisNow)
			},
			New: func() borrow.Subtask { return &AxisNow{} },
		},
		borrow.RegistryEntry{
			Name: "audiobook_fulfill",
			Accepts: func(_ *accounts.Account, elem borrow.PathElement) bool {
				return opds.TypesCompatible(elem.Type, opds.TypeAudiobookManifest)
			},
			New: func() borrow.Subtask { return &AudioBook{} },
		},
		borrow.RegistryEntry{
			Name: "copy",
			Accepts: func(_ *accounts.Account, elem borrow.PathElement) bool {
				return isDownloadable(elem.Type) && hasLocalScheme(elem)
			},
			New: func() borrow.Subtask { return &Copy{} },
		},
		borrow.RegistryEntry{
			Name: "saml_download",
			Accepts: func(account *accounts.Account, elem borrow.PathElement) bool {
				return isDownloadable(elem.Type) && isSAML(account)
			},
			New: func() borrow.Subtask { return &SAMLDownload{} },
		},
		borrow.RegistryEntry{
			Name: "direct_download",
			Accepts: func(_ *accounts.Account, elem borrow.PathElement) bool {
				return isDownloadable(elem.Type)
			},
			New: func() borrow.Subtask { return &DirectDownload{} },
		},
	)
}
