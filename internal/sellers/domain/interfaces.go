package domain

import (
	"context"

	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

// DocumentFetcher goes to the network for a domain's sellers document,
// classifies the outcome, and persists the resulting record before
// returning it. The parsed document accompanies success records so
// callers never decode the body a second time.
type DocumentFetcher interface {
	Fetch(ctx context.Context, dom string) (*CacheRecord, *sellersjson.Document, error)
}

// EventPublisher announces refresh outcomes to the surrounding product.
type EventPublisher interface {
	PublishDocumentRefreshed(ctx context.Context, record *CacheRecord, sellerCount int) error
	PublishDocumentFailed(ctx context.Context, record *CacheRecord) error
	Close() error
}
