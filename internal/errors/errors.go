// Package errors defines the closed set of error kinds used by the
// crawler and helpers for wrapping and classifying them.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a crawler error.
type Kind string

const (
	// KindFetch is a non-200, non-429 terminal response or transport failure.
	KindFetch Kind = "fetch-error"
	// KindAttemptedRedirect is a 3xx response; the URL is skipped for this run.
	KindAttemptedRedirect Kind = "attempted-redirect"
	// KindNotModified means the freshness check decided no work is needed.
	KindNotModified Kind = "not-modified"
	// KindNoSitemapFound means discovery exhausted all sitemap candidates.
	KindNoSitemapFound Kind = "no-sitemap-found"
	// KindSiteNotFound means a configured site lookup by URL failed.
	KindSiteNotFound Kind = "site-not-found"
	// KindNoSuchField means a field name lookup failed.
	KindNoSuchField Kind = "no-such-field"
	// KindExtraction means an extractor variant was not recognized or a
	// value failed type validation.
	KindExtraction Kind = "extraction-error"
	// KindNoValueExtracted is signaled by an extractor that produced no value.
	KindNoValueExtracted Kind = "no-value-extracted"
	// KindIndex is a non-2xx response from the search index on a read.
	KindIndex Kind = "index-error"
	// KindConfig is a configuration-time problem.
	KindConfig Kind = "config-error"
)

// Error is a classified crawler error. URL is set when the error relates
// to a specific resource.
type Error struct {
	Kind Kind
	URL  string
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.URL != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.URL, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NewURL creates an error of the given kind bound to a URL.
func NewURL(kind Kind, url, format string, args ...any) *Error {
	return &Error{Kind: kind, URL: url, Msg: fmt.Sprintf(format, args...)}
}

// Wrap wraps a cause into an error of the given kind bound to a URL.
func Wrap(kind Kind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// KindOf returns the kind of err, or the empty Kind when err is not a
// classified crawler error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err is a classified crawler error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
