package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/internal/sellers/store"
	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

// RefreshService is the single authority deciding whether a domain is
// served from cache or refetched. Every lookup mode goes through it.
type RefreshService struct {
	store   store.Store
	fetcher domain.DocumentFetcher
	logger  *zap.Logger
}

func NewRefreshService(st store.Store, fetcher domain.DocumentFetcher, logger *zap.Logger) *RefreshService {
	return &RefreshService{
		store:   st,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve returns the domain's document (nil unless the record is a
// success) and the cache state it was served from. Concurrent refreshes of
// the same domain are not deduplicated; the later write wins.
func (s *RefreshService) Resolve(ctx context.Context, rawDomain string, force bool) (*sellersjson.Document, domain.CacheMeta, error) {
	dom := domain.NormalizeDomain(rawDomain)
	if dom == "" {
		return nil, domain.CacheMeta{}, fmt.Errorf("%w: domain is required", domain.ErrInvalidRequest)
	}

	// Serve from cache when present, not forced, and not expired.
	if !force {
		record, err := s.store.Get(ctx, dom)
		if err != nil {
			return nil, domain.CacheMeta{}, fmt.Errorf("failed to read cache record: %w", err)
		}
		if record != nil && !domain.IsExpired(record.Status, record.UpdatedAt, time.Now()) {
			meta := metaFor(record, true)
			if record.Status != domain.StatusSuccess {
				return nil, meta, nil
			}

			doc, perr := sellersjson.Parse(record.Content)
			if perr == nil {
				return doc, meta, nil
			}
			// A stored success record that no longer parses means the
			// content was corrupted after the write; refetch.
			s.logger.Warn("Stored document failed to parse, refetching",
				zap.Error(perr), zap.String("domain", dom))
		}
	}

	record, doc, err := s.fetcher.Fetch(ctx, dom)
	if err != nil {
		return nil, domain.CacheMeta{}, fmt.Errorf("failed to refresh domain %s: %w", dom, err)
	}

	return doc, metaFor(record, false), nil
}

// CacheInfo reports the cache state for a domain without triggering a
// fetch. Returns nil, nil when the domain has never been fetched.
func (s *RefreshService) CacheInfo(ctx context.Context, rawDomain string) (*domain.CacheMeta, error) {
	dom := domain.NormalizeDomain(rawDomain)
	if dom == "" {
		return nil, fmt.Errorf("%w: domain is required", domain.ErrInvalidRequest)
	}

	record, err := s.store.Get(ctx, dom)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache record: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	meta := metaFor(record, true)
	return &meta, nil
}

func metaFor(record *domain.CacheRecord, cached bool) domain.CacheMeta {
	return domain.CacheMeta{
		IsCached:    cached,
		Status:      record.Status,
		LastUpdated: record.UpdatedAt,
		ExpiresAt:   domain.ExpiresAt(record.Status, record.UpdatedAt),
		ErrorCode:   record.ErrorCode(),
	}
}
