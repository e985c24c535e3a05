package store

import (
	"context"
	"time"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

// Store persists one cache record per domain. Get returns nil, nil when no
// record exists; Put is a full replacement upsert.
type Store interface {
	Get(ctx context.Context, dom string) (*domain.CacheRecord, error)
	Put(ctx context.Context, record *domain.CacheRecord) error
}

// MembershipQueryable is an optional capability a backend may offer: test
// membership of seller IDs inside a stored document without shipping the
// whole document to the caller. Correctness never depends on it; callers
// must fall back to a full scan when the backend doesn't implement it.
type MembershipQueryable interface {
	// QueryMembership answers only from a successful record written after
	// freshAfter. It returns nil, nil when no such record exists, routing
	// the caller to the full lookup path.
	QueryMembership(ctx context.Context, dom string, sellerIDs []string, freshAfter time.Time) (*MembershipResult, error)
}

// MembershipResult is an indexed membership answer. Found holds only the
// requested IDs that appear in the document.
type MembershipResult struct {
	Found     map[string]*sellersjson.Seller
	Metadata  *sellersjson.Metadata
	UpdatedAt time.Time
}
