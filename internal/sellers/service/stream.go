package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

// partialBuffer accumulates per-ID results while the full path runs, so a
// timed-out stream can still hand back whatever was computed.
type partialBuffer struct {
	mu       sync.Mutex
	results  []domain.SellerResult
	found    int
	meta     *domain.CacheMeta
	metadata *sellersjson.Metadata
}

func (b *partialBuffer) setMeta(meta domain.CacheMeta, metadata *sellersjson.Metadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta = &meta
	b.metadata = metadata
}

func (b *partialBuffer) append(result domain.SellerResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, result)
	if result.Found {
		b.found++
	}
}

func (b *partialBuffer) snapshot() ([]domain.SellerResult, int, *domain.CacheMeta, *sellersjson.Metadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	results := make([]domain.SellerResult, len(b.results))
	copy(results, b.results)
	return results, b.found, b.meta, b.metadata
}

// LookupStream runs a batch lookup as an ordered event sequence with
// progress reporting and a bounded wait. The returned channel carries
// exactly one terminal event and is then closed; if the consumer goes
// away the channel closes without one. The underlying refresh keeps
// running detached so its cache write lands either way.
func (s *LookupService) LookupStream(ctx context.Context, req *domain.StreamLookupRequest) <-chan domain.StreamEvent {
	events := make(chan domain.StreamEvent, 1)
	go s.runStream(ctx, req, events)
	return events
}

func (s *LookupService) runStream(ctx context.Context, req *domain.StreamLookupRequest, events chan<- domain.StreamEvent) {
	defer close(events)

	emit := func(event domain.StreamEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	start := time.Now()

	dom := domain.NormalizeDomain(req.Domain)
	if dom == "" {
		emit(domain.StreamEvent{
			Stage:    domain.StageError,
			Progress: 100,
			Message:  "domain is required",
		})
		return
	}
	ids, err := domain.NormalizeSellerIDs(req.SellerIDs)
	if err != nil {
		emit(domain.StreamEvent{
			Stage:    domain.StageError,
			Progress: 100,
			Message:  err.Error(),
		})
		return
	}

	if !emit(domain.StreamEvent{
		Stage:    domain.StageProcessing,
		Progress: 0,
		Message:  fmt.Sprintf("resolving %d seller ids for %s", len(ids), dom),
	}) {
		return
	}

	// Indexed fast path: when it answers, the stream is done before any
	// network I/O happened.
	if !req.Force {
		if resp := s.tryMembership(ctx, dom, ids, start); resp != nil {
			s.metrics.IncrementCounter("lookup.membership_fastpath")
			emit(domain.StreamEvent{
				Stage:    domain.StageCompleted,
				Progress: 100,
				Response: resp,
			})
			return
		}
	}

	if !emit(domain.StreamEvent{
		Stage:    domain.StageFallback,
		Progress: 20,
		Message:  "no indexed answer, running full lookup",
	}) {
		return
	}

	timeout := req.TimeoutMs
	capMs := int(s.streamCap / time.Millisecond)
	if timeout <= 0 || timeout > capMs {
		timeout = capMs
	}
	timer := time.NewTimer(time.Duration(timeout) * time.Millisecond)
	defer timer.Stop()

	buf := &partialBuffer{}
	fetched := make(chan struct{})
	done := make(chan *domain.LookupResponse, 1)
	fail := make(chan error, 1)

	// Detached from the stream's context: a timeout or disconnect must
	// not abort the refresh mid-flight, its cache write still lands.
	go func() {
		resp, err := s.lookupFull(context.Background(), dom, ids, req.Force, start, buf, fetched)
		if err != nil {
			fail <- err
			return
		}
		done <- resp
	}()

	emitFetched := func() bool {
		return emit(domain.StreamEvent{
			Stage:    domain.StageFetched,
			Progress: 60,
			Message:  "document loaded, matching seller ids",
		})
	}

	var fetchedCh <-chan struct{} = fetched
	for {
		select {
		case <-fetchedCh:
			fetchedCh = nil
			if !emitFetched() {
				return
			}

		case resp := <-done:
			// The fetched signal closes just before the response lands;
			// drain it first so the stage sequence stays intact.
			if fetchedCh != nil {
				select {
				case <-fetchedCh:
					if !emitFetched() {
						return
					}
				default:
				}
			}
			emit(domain.StreamEvent{
				Stage:    domain.StageCompleted,
				Progress: 100,
				Response: resp,
			})
			return

		case err := <-fail:
			s.logger.Error("Streaming lookup failed",
				zap.Error(err), zap.String("domain", dom))
			emit(domain.StreamEvent{
				Stage:    domain.StageError,
				Progress: 100,
				Message:  err.Error(),
			})
			return

		case <-timer.C:
			// The scan may have finished in the same instant; prefer the
			// complete answer when it is already there.
			select {
			case resp := <-done:
				emit(domain.StreamEvent{
					Stage:    domain.StageCompleted,
					Progress: 100,
					Response: resp,
				})
				return
			case err := <-fail:
				emit(domain.StreamEvent{
					Stage:    domain.StageError,
					Progress: 100,
					Message:  err.Error(),
				})
				return
			default:
			}

			s.emitTimeout(emit, req, dom, ids, buf, timeout, start)
			return

		case <-ctx.Done():
			// Consumer disconnected; stop without a terminal event.
			return
		}
	}
}

func (s *LookupService) emitTimeout(
	emit func(domain.StreamEvent) bool,
	req *domain.StreamLookupRequest,
	dom string,
	ids []string,
	buf *partialBuffer,
	timeoutMs int,
	start time.Time,
) {
	results, found, meta, metadata := buf.snapshot()

	// A full buffer means the scan completed between the timer firing and
	// the snapshot; report it as the completed answer it is.
	if len(results) == len(ids) && meta != nil {
		resp := &domain.LookupResponse{
			Domain:           dom,
			RequestedCount:   len(ids),
			FoundCount:       found,
			Results:          results,
			Metadata:         metadata,
			Cache:            *meta,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
		emit(domain.StreamEvent{
			Stage:    domain.StageCompleted,
			Progress: 100,
			Response: resp,
		})
		return
	}

	s.metrics.IncrementCounter("stream.timeouts")

	if !req.PartialResponse {
		emit(domain.StreamEvent{
			Stage:     domain.StageTimeout,
			Progress:  100,
			Message:   fmt.Sprintf("lookup did not complete within %dms", timeoutMs),
			RetryHint: "retry with a larger timeout_ms or fewer seller_ids",
		})
		return
	}

	partial := &domain.LookupResponse{
		Domain:           dom,
		RequestedCount:   len(ids),
		FoundCount:       found,
		Results:          results,
		Metadata:         metadata,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if meta != nil {
		partial.Cache = *meta
	}
	emit(domain.StreamEvent{
		Stage:    domain.StagePartialTimeout,
		Progress: 100,
		Message: fmt.Sprintf("timed out after %dms with %d of %d seller ids resolved",
			timeoutMs, len(results), len(ids)),
		Response: partial,
	})
}
