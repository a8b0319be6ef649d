package webhdfs

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizePath converts p to NFC and strips leading slashes. HDFS compares
// names byte-wise, so a name typed on macOS (NFD) and one typed elsewhere
// (NFC) must be sent in the same form to address the same file.
func normalizePath(p string) string {
	return strings.TrimLeft(norm.NFC.String(p), "/")
}

// normalizeDestination returns the absolute NFC form of a rename target.
func normalizeDestination(p string) string {
	p = norm.NFC.String(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return p
}

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}
