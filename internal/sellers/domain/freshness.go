package domain

import "time"

// Per-status time-to-live. Each outcome has its own retry cadence: a domain
// known to lack a document is left alone for days, while transient errors
// are retried within hours.
const (
	TTLSuccess       = 24 * time.Hour
	TTLNotFound      = 72 * time.Hour
	TTLError         = 6 * time.Hour
	TTLInvalidFormat = 48 * time.Hour
)

// TTLFor returns the time-to-live for a cache status.
func TTLFor(status Status) time.Duration {
	switch status {
	case StatusSuccess:
		return TTLSuccess
	case StatusNotFound:
		return TTLNotFound
	case StatusInvalidFormat:
		return TTLInvalidFormat
	default:
		return TTLError
	}
}

// IsExpired reports whether a record written at updatedAt is stale at now.
// Expiry is computed on read and never stored, so TTL changes apply to
// existing records without a migration.
func IsExpired(status Status, updatedAt, now time.Time) bool {
	return now.After(updatedAt.Add(TTLFor(status)))
}

// ExpiresAt returns the instant a record written at updatedAt goes stale.
func ExpiresAt(status Status, updatedAt time.Time) time.Time {
	return updatedAt.Add(TTLFor(status))
}
