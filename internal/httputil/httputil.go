// Package httputil provides small helpers for dealing with HTTP
// responses: content-type handling and gzip payload detection.
package httputil

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// gzipMIME is the MIME type announcing an application-level gzip payload.
const gzipMIME = "application/x-gzip"

// ContentType returns the MIME part of a Content-Type header value,
// dropping any parameters such as a charset declaration.
func ContentType(header string) string {
	mime, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(mime)
}

// IsGzipped reports whether a response payload is gzip-compressed at
// the application level: either the content type is application/x-gzip
// or the request URL path ends in ".gz". Transport-level gzip is
// handled transparently by the HTTP client and never reaches here.
func IsGzipped(contentType, requestURL string) bool {
	if ContentType(contentType) == gzipMIME {
		return true
	}
	u, err := url.Parse(requestURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, ".gz")
}

// Gunzip decodes a gzip-compressed byte slice.
func Gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return out, nil
}
