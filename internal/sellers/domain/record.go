package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status classifies the outcome of the last fetch attempt for a domain.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusNotFound      Status = "not_found"
	StatusInvalidFormat Status = "invalid_format"
	StatusError         Status = "error"
)

// CacheRecord is the persisted fetch outcome for one domain. Exactly one
// record exists per normalized domain; every write replaces the whole
// record. Content is set only when Status is StatusSuccess, and a success
// record with an empty seller list is valid and distinct from not_found.
type CacheRecord struct {
	Domain       string    `json:"domain" db:"domain"`
	Status       Status    `json:"status" db:"status"`
	Content      []byte    `json:"content,omitempty" db:"content"`
	StatusCode   *int      `json:"status_code,omitempty" db:"status_code"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ErrorCode extracts the machine-readable code prefix from ErrorMessage.
// Messages are written as "CODE: detail"; records without a recognizable
// prefix return an empty string.
func (r *CacheRecord) ErrorCode() string {
	code, _, ok := strings.Cut(r.ErrorMessage, ":")
	if !ok {
		return ""
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && c != '_' {
			return ""
		}
	}
	return code
}

// CacheMeta describes the cache state a lookup response was served from.
type CacheMeta struct {
	IsCached    bool      `json:"is_cached"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
	ExpiresAt   time.Time `json:"expires_at"`
	ErrorCode   string    `json:"error_code,omitempty"`
}

// NormalizeDomain lowercases and trims a domain before it touches the
// cache or the network.
func NormalizeDomain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// MaxSellerIDs bounds how many seller IDs a single lookup may carry.
const MaxSellerIDs = 100

// NormalizeSellerIDs trims, drops empty entries, and dedupes seller IDs
// preserving first-seen order. The raw input is bounded at MaxSellerIDs.
func NormalizeSellerIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: seller_ids must not be empty", ErrInvalidRequest)
	}
	if len(ids) > MaxSellerIDs {
		return nil, fmt.Errorf("%w: at most %d seller_ids per lookup, got %d",
			ErrInvalidRequest, MaxSellerIDs, len(ids))
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: seller_ids contains no usable entries", ErrInvalidRequest)
	}
	return out, nil
}
