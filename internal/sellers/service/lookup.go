package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/internal/sellers/metrics"
	"github.com/supplyline/go-sellers-cache/internal/sellers/store"
)

// LookupService resolves seller IDs against cached sellers documents. It
// prefers the store's indexed membership path and falls back to a full
// document scan through the refresh orchestrator.
type LookupService struct {
	refresh       *RefreshService
	store         store.Store
	metrics       metrics.Metrics
	logger        *zap.Logger
	streamCap     time.Duration
	maxConcurrent int
}

type Config struct {
	StreamTimeoutCap     time.Duration
	DefaultMaxConcurrent int
}

func NewLookupService(
	refresh *RefreshService,
	st store.Store,
	metricsCollector metrics.Metrics,
	logger *zap.Logger,
	config Config,
) *LookupService {
	if config.StreamTimeoutCap <= 0 {
		config.StreamTimeoutCap = 8 * time.Second
	}
	if config.DefaultMaxConcurrent <= 0 {
		config.DefaultMaxConcurrent = 3
	}

	return &LookupService{
		refresh:       refresh,
		store:         st,
		metrics:       metricsCollector,
		logger:        logger,
		streamCap:     config.StreamTimeoutCap,
		maxConcurrent: config.DefaultMaxConcurrent,
	}
}

// Lookup resolves up to 100 seller IDs against one domain's document.
// Domains with an absent or broken document answer every ID as not found
// rather than failing the call.
func (s *LookupService) Lookup(ctx context.Context, req *domain.LookupRequest) (*domain.LookupResponse, error) {
	start := time.Now()
	s.metrics.IncrementCounter("lookup.requests")

	dom := domain.NormalizeDomain(req.Domain)
	if dom == "" {
		return nil, fmt.Errorf("%w: domain is required", domain.ErrInvalidRequest)
	}
	ids, err := domain.NormalizeSellerIDs(req.SellerIDs)
	if err != nil {
		return nil, err
	}

	// Indexed fast path first: answered entirely inside the store when a
	// fresh successful record exists. Trades a small chance of serving
	// slightly-stale data for a large latency win on the common case.
	if !req.Force {
		if resp := s.tryMembership(ctx, dom, ids, start); resp != nil {
			s.metrics.IncrementCounter("lookup.membership_fastpath")
			s.metrics.RecordDuration("lookup", time.Since(start))
			return resp, nil
		}
	}

	resp, err := s.lookupFull(ctx, dom, ids, req.Force, start, nil, nil)
	if err != nil {
		return nil, err
	}

	if resp.Cache.IsCached {
		s.metrics.IncrementCounter("lookup.cache_hits")
	} else {
		s.metrics.IncrementCounter("lookup.cache_misses")
	}
	s.metrics.RecordDuration("lookup", time.Since(start))

	return resp, nil
}

// tryMembership attempts the store-native membership query. It returns nil
// whenever the answer is not definitive: backend without the capability,
// no fresh successful record, or a query failure (logged and absorbed so
// the full path can still serve the caller).
func (s *LookupService) tryMembership(ctx context.Context, dom string, ids []string, start time.Time) *domain.LookupResponse {
	mq, ok := s.store.(store.MembershipQueryable)
	if !ok {
		return nil
	}

	// The freshness cutoff is computed here so TTL policy stays out of
	// the storage layer.
	freshAfter := time.Now().Add(-domain.TTLSuccess)

	result, err := mq.QueryMembership(ctx, dom, ids, freshAfter)
	if err != nil {
		s.logger.Warn("Membership query failed, falling back to full lookup",
			zap.Error(err), zap.String("domain", dom))
		return nil
	}
	if result == nil {
		return nil
	}

	resp := &domain.LookupResponse{
		Domain:         dom,
		RequestedCount: len(ids),
		Results:        make([]domain.SellerResult, 0, len(ids)),
		Metadata:       result.Metadata,
		Cache: domain.CacheMeta{
			IsCached:    true,
			Status:      domain.StatusSuccess,
			LastUpdated: result.UpdatedAt,
			ExpiresAt:   domain.ExpiresAt(domain.StatusSuccess, result.UpdatedAt),
		},
	}
	for _, id := range ids {
		seller, found := result.Found[id]
		if found {
			resp.FoundCount++
		}
		resp.Results = append(resp.Results, domain.SellerResult{
			SellerID: id,
			Seller:   seller,
			Found:    found,
			Source:   domain.SourceCache,
		})
	}
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()

	return resp
}

// lookupFull is the shared full path: resolve the document through the
// refresh orchestrator, then answer each ID from an in-memory index. The
// optional buffer and fetched channel feed the streaming controller's
// progress reporting; batch callers pass nil for both.
func (s *LookupService) lookupFull(
	ctx context.Context,
	dom string,
	ids []string,
	force bool,
	start time.Time,
	buf *partialBuffer,
	fetched chan<- struct{},
) (*domain.LookupResponse, error) {
	doc, meta, err := s.refresh.Resolve(ctx, dom, force)
	if err != nil {
		return nil, err
	}
	if fetched != nil {
		close(fetched)
	}

	source := domain.SourceFresh
	if meta.IsCached {
		source = domain.SourceCache
	}

	resp := &domain.LookupResponse{
		Domain:         dom,
		RequestedCount: len(ids),
		Results:        make([]domain.SellerResult, 0, len(ids)),
		Cache:          meta,
	}

	if doc == nil {
		if buf != nil {
			buf.setMeta(meta, nil)
		}
		reason := fmt.Sprintf("document unavailable for domain %s", dom)
		for _, id := range ids {
			result := domain.SellerResult{
				SellerID: id,
				Found:    false,
				Source:   source,
				Error:    reason,
			}
			resp.Results = append(resp.Results, result)
			if buf != nil {
				buf.append(result)
			}
		}
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	resp.Metadata = doc.Metadata()
	if buf != nil {
		buf.setMeta(meta, resp.Metadata)
	}

	index := doc.Index()
	for _, id := range ids {
		seller, found := index[id]
		if found {
			resp.FoundCount++
		}
		result := domain.SellerResult{
			SellerID: id,
			Seller:   seller,
			Found:    found,
			Source:   source,
		}
		resp.Results = append(resp.Results, result)
		if buf != nil {
			buf.append(result)
		}
	}
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()

	return resp, nil
}
