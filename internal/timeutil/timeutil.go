// Package timeutil provides the time conversions used throughout the
// crawler: UTC normalization, the ISO 8601 wire format used for index
// records, and the RFC 2616 HTTP-date formats.
package timeutil

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ISOFormat is the UTC ISO 8601 layout with microsecond precision and a
// literal Z suffix, as persisted in index records.
const ISOFormat = "2006-01-02T15:04:05.000000Z"

// httpFormats are the three datetime forms admitted by RFC 2616 section
// 3.3.1, in parse order. RFC 1123 is the only one ever emitted.
var httpFormats = []string{
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
}

// Epoch is the Unix epoch in UTC, the zero value substituted for
// required timestamp fields.
var Epoch = time.Unix(0, 0).UTC()

// ToUTC normalizes a time to UTC. It is idempotent.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// ToISO formats a time as UTC ISO 8601 with microseconds and a trailing Z.
func ToISO(t time.Time) string {
	return ToUTC(t).Format(ISOFormat)
}

// FromISO parses an ISO 8601 datetime. Offsets other than Z are accepted
// and normalized to UTC, so FromISO(ToISO(t)) equals ToUTC(t) at
// microsecond precision.
func FromISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{ISOFormat, time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ToUTC(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse ISO datetime %q", s)
}

// ToHTTP formats a time as an RFC 1123 HTTP-date in GMT.
func ToHTTP(t time.Time) string {
	return ToUTC(t).Format(http.TimeFormat)
}

// FromHTTP parses an HTTP-date in any of the three RFC 2616 forms
// (RFC 1123, RFC 850, asctime). The result is normalized to UTC.
func FromHTTP(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range httpFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return ToUTC(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse HTTP datetime %q", s)
}
