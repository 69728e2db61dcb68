package content

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// URI schemes resolved without network I/O.
const (
	SchemeContent = "content"
	SchemeBundled = "bundled"
)

// Resolver opens the bytes behind a non-HTTP URI. Implementations return
// an error wrapping os.ErrNotExist when the resource is absent.
type Resolver interface {
	Open(uri string) (io.ReadCloser, error)
}

// DirResolver resolves URIs of a single scheme against a root directory.
// It backs both the content:// and bundled resolvers in this process.
type DirResolver struct {
	scheme string
	root   string
}

func NewDirResolver(scheme, root string) *DirResolver {
	return &DirResolver{scheme: scheme, root: filepath.Clean(root)}
}

func (r *DirResolver) Open(uri string) (io.ReadCloser, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid content URI %q: %w", uri, err)
	}
	if u.Scheme != r.scheme {
		return nil, fmt.Errorf("unsupported scheme %q for resolver %q", u.Scheme, r.scheme)
	}

	rel := path.Clean("/" + path.Join(u.Host, u.Path))
	if strings.Contains(rel, "..") {
		return nil, fmt.Errorf("refusing path traversal in %q", uri)
	}

	f, err := os.Open(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", uri, err)
	}
	return f, nil
}
