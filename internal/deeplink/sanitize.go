package deeplink

import (
	"errors"
	"net/url"
	"strings"
)

var ErrUnsafePath = errors.New("deeplink: path cannot be sanitized")

// maxDecodePasses bounds percent-decoding so double- and triple-encoded
// traversal payloads are unwrapped without looping forever on garbage.
const maxDecodePasses = 3

// Sanitize reduces an externally supplied path to a safe in-app form:
// query and fragment stripped, traversal sequences removed (literal,
// percent-encoded and double-encoded), backslashes normalized to
// slashes, repeated slashes collapsed, leading slash guaranteed. The
// result never contains ".." or "\".
func Sanitize(raw string) (string, error) {
	p := raw
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	for i := 0; i < maxDecodePasses && strings.Contains(p, "%"); i++ {
		decoded, err := url.PathUnescape(p)
		if err != nil || decoded == p {
			break
		}
		p = decoded
	}

	p = strings.ReplaceAll(p, "\\", "/")
	for strings.Contains(p, "..") {
		p = strings.ReplaceAll(p, "..", "")
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if strings.Contains(p, "..") || strings.Contains(p, "\\") {
		return "", ErrUnsafePath
	}
	return p, nil
}

// pathFromURL extracts the path component of a deep link, handling
// both the custom scheme form (app://novedades/123, where the route
// lands in the host) and plain https or bare-path forms.
func pathFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	switch {
	case u.Scheme == "" || u.Scheme == "http" || u.Scheme == "https":
		return u.Path, nil
	default:
		if u.Host == "" {
			return u.Opaque, nil
		}
		return "/" + u.Host + u.Path, nil
	}
}

// firstSegment returns the first path segment without decoding or
// cleaning it; allow-list checks run against this raw value so encoded
// traversal can never alias to an allowed route.
func firstSegment(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}
