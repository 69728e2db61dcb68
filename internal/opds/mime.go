package opds

import "strings"

// Content types the borrowing pipeline knows how to produce or traverse.
const (
	TypeOPDSEntry         = "application/atom+xml;type=entry;profile=opds-catalog"
	TypeACSM              = "application/vnd.adobe.adept+xml"
	TypeAxisNow           = "application/vnd.librarysimplified.axisnow+json"
	TypeBearerToken       = "application/vnd.librarysimplified.bearer-token+json"
	TypeAPIProblem        = "application/api-problem+json"
	TypeEPUB              = "application/epub+zip"
	TypePDF               = "application/pdf"
	TypeAudiobookManifest = "application/audiobook+json"
	TypeHTML              = "text/html"
)

// BaseType strips MIME parameters: "text/html; charset=utf-8" -> "text/html".
func BaseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// TypesCompatible reports whether two MIME types name the same content,
// ignoring parameters and case.
func TypesCompatible(a, b string) bool {
	return BaseType(a) == BaseType(b)
}
