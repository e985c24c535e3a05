package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/internal/sellers/metrics"
	"github.com/supplyline/go-sellers-cache/internal/sellers/store"
	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

// mockStore is an in-memory Store without the membership capability, so
// it always routes lookups through the full path.
type mockStore struct {
	mu       sync.Mutex
	records  map[string]*domain.CacheRecord
	getErr   error
	putErr   error
	getCalls int
	putCalls int
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]*domain.CacheRecord)}
}

func (m *mockStore) Get(ctx context.Context, dom string) (*domain.CacheRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[dom]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (m *mockStore) Put(ctx context.Context, record *domain.CacheRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	clone := *record
	m.records[record.Domain] = &clone
	return nil
}

// mockIndexedStore adds a canned membership answer on top of mockStore.
type mockIndexedStore struct {
	mockStore
	membership      *store.MembershipResult
	membershipErr   error
	membershipCalls int
}

func newMockIndexedStore() *mockIndexedStore {
	return &mockIndexedStore{mockStore: mockStore{records: make(map[string]*domain.CacheRecord)}}
}

func (m *mockIndexedStore) QueryMembership(ctx context.Context, dom string, sellerIDs []string, freshAfter time.Time) (*store.MembershipResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.membershipCalls++
	if m.membershipErr != nil {
		return nil, m.membershipErr
	}
	return m.membership, nil
}

type fetchOutcome struct {
	record *domain.CacheRecord
	doc    *sellersjson.Document
	err    error
}

// mockFetcher mirrors the real fetcher's contract: it persists the
// resulting record into the store before returning it.
type mockFetcher struct {
	mu       sync.Mutex
	store    store.Store
	outcomes map[string]fetchOutcome
	calls    map[string]int
	delay    time.Duration
	inFlight int
	peak     int
}

func newMockFetcher(st store.Store) *mockFetcher {
	return &mockFetcher{
		store:    st,
		outcomes: make(map[string]fetchOutcome),
		calls:    make(map[string]int),
	}
}

func (m *mockFetcher) succeedWith(dom string, doc *sellersjson.Document) {
	content, _ := doc.Canonical()
	m.outcomes[dom] = fetchOutcome{
		record: &domain.CacheRecord{Status: domain.StatusSuccess, Content: content},
		doc:    doc,
	}
}

func (m *mockFetcher) failWith(dom string, status domain.Status, errorMessage string) {
	m.outcomes[dom] = fetchOutcome{
		record: &domain.CacheRecord{Status: status, ErrorMessage: errorMessage},
	}
}

func (m *mockFetcher) errorWith(dom string, err error) {
	m.outcomes[dom] = fetchOutcome{err: err}
}

func (m *mockFetcher) Fetch(ctx context.Context, dom string) (*domain.CacheRecord, *sellersjson.Document, error) {
	m.mu.Lock()
	m.calls[dom]++
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	outcome, ok := m.outcomes[dom]
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	if !ok {
		outcome = fetchOutcome{record: &domain.CacheRecord{
			Status:       domain.StatusNotFound,
			ErrorMessage: domain.FormatError(domain.CodeNotFound, "no sellers.json published at this domain"),
		}}
	}
	if outcome.err != nil {
		return nil, nil, outcome.err
	}

	record := *outcome.record
	record.Domain = dom
	record.UpdatedAt = time.Now().UTC()
	if m.store != nil {
		if err := m.store.Put(ctx, &record); err != nil {
			return nil, nil, err
		}
	}
	return &record, outcome.doc, nil
}

func (m *mockFetcher) callCount(dom string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[dom]
}

func (m *mockFetcher) peakConcurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

func docWithSellers(ids ...string) *sellersjson.Document {
	sellers := make([]sellersjson.Seller, 0, len(ids))
	for _, id := range ids {
		sellers = append(sellers, sellersjson.Seller{
			SellerID:   id,
			Name:       "Seller " + id,
			SellerType: sellersjson.TypePublisher,
		})
	}
	return &sellersjson.Document{Version: "1.0", Sellers: sellers}
}

func newTestLookup(st store.Store, cfg Config) (*LookupService, *mockFetcher, *metrics.InMemoryMetrics) {
	fetcher := newMockFetcher(st)
	refresh := NewRefreshService(st, fetcher, zap.NewNop())
	m := metrics.NewInMemoryMetrics()
	lookup := NewLookupService(refresh, st, m, zap.NewNop(), cfg)
	return lookup, fetcher, m
}
