package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRequest is returned when lookup parameters fail validation.
	ErrInvalidRequest = errors.New("invalid request parameters")
)

// Machine-readable codes carried as the "CODE: detail" prefix of a
// CacheRecord's ErrorMessage. Fetch outcomes are classified into these and
// cached rather than raised; only infrastructure faults surface as errors.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeDNSLookupFailed   = "DNS_LOOKUP_FAILED"
	CodeConnectionTimeout = "CONNECTION_TIMEOUT"
	CodeSSLCertificate    = "SSL_CERTIFICATE_ERROR"
	CodeAccessForbidden   = "ACCESS_FORBIDDEN"
	CodeServerError       = "SERVER_ERROR"
	CodeConnectionReset   = "CONNECTION_RESET"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeHTTPError         = "HTTP_ERROR"
	CodeFetchFailed       = "FETCH_FAILED"
)

// FormatError builds the "CODE: detail" message stored on failed records.
func FormatError(code, detail string) string {
	return fmt.Sprintf("%s: %s", code, detail)
}

// RetryAfter returns the suggested wait before retrying a domain that
// failed with the given code. Codes without a sensible automatic retry
// (certificate problems, forbidden responses) report false.
func RetryAfter(code string) (time.Duration, bool) {
	switch code {
	case CodeConnectionTimeout:
		return time.Minute, true
	case CodeConnectionReset:
		return 2 * time.Minute, true
	case CodeServerError:
		return 5 * time.Minute, true
	case CodeDNSLookupFailed:
		return 30 * time.Minute, true
	default:
		return 0, false
	}
}
