package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
)

// LookupParallel fans a batch lookup out across up to 10 domains. Requests
// run in chunks of maxConcurrent; each chunk finishes before the next one
// starts. Per-domain failures are isolated unless FailFast is set, in
// which case the first failed chunk aborts the rest and the call errors.
func (s *LookupService) LookupParallel(ctx context.Context, req *domain.ParallelLookupRequest) (*domain.ParallelLookupResponse, error) {
	start := time.Now()
	s.metrics.IncrementCounter("parallel.requests")

	total := len(req.Requests)
	if total == 0 {
		return nil, fmt.Errorf("%w: requests must not be empty", domain.ErrInvalidRequest)
	}
	if total > domain.MaxParallelRequests {
		return nil, fmt.Errorf("%w: at most %d parallel requests, got %d",
			domain.ErrInvalidRequest, domain.MaxParallelRequests, total)
	}

	maxConcurrent := req.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = s.maxConcurrent
	}
	if maxConcurrent > domain.MaxParallelRequests {
		maxConcurrent = domain.MaxParallelRequests
	}

	type outcome struct {
		resp *domain.LookupResponse
		err  error
	}
	outcomes := make([]outcome, total)

	processed := 0
	for base := 0; base < total; base += maxConcurrent {
		end := base + maxConcurrent
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := base; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				request := req.Requests[i]
				resp, err := s.Lookup(ctx, &request)
				outcomes[i] = outcome{resp: resp, err: err}
			}(i)
		}
		wg.Wait()
		processed = end

		if req.FailFast {
			for i := base; i < end; i++ {
				if failed, reason := outcomeFailed(outcomes[i].resp, outcomes[i].err); failed {
					dom := domain.NormalizeDomain(req.Requests[i].Domain)
					return nil, fmt.Errorf("parallel lookup aborted: domain %s failed: %s", dom, reason)
				}
			}
		}
	}

	resp := &domain.ParallelLookupResponse{
		Results: make([]*domain.LookupResponse, 0, processed),
		Errors:  []domain.DomainError{},
	}

	completed := 0
	for i := 0; i < processed; i++ {
		oc := outcomes[i]
		dom := domain.NormalizeDomain(req.Requests[i].Domain)

		failed, reason := outcomeFailed(oc.resp, oc.err)
		if !failed {
			resp.Results = append(resp.Results, oc.resp)
			completed++
			continue
		}

		domainErr := domain.DomainError{
			Domain:  dom,
			Message: reason,
		}
		if oc.resp != nil {
			domainErr.Code = errorCodeFor(oc.resp.Cache)
		}
		if wait, ok := domain.RetryAfter(domainErr.Code); ok {
			domainErr.RetryAfterSeconds = int(wait / time.Second)
		}
		resp.Errors = append(resp.Errors, domainErr)

		// Failed domains still occupy a slot when partial results were
		// asked for, so callers can line results up with their requests.
		if req.ReturnPartial {
			if oc.resp != nil {
				resp.Results = append(resp.Results, oc.resp)
			} else {
				resp.Results = append(resp.Results, degradedResponse(&req.Requests[i], reason))
			}
		}
	}

	resp.ParallelProcessing = domain.ParallelSummary{
		TotalDomains:     total,
		CompletedCount:   completed,
		FailedCount:      len(resp.Errors),
		MaxConcurrent:    maxConcurrent,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	return resp, nil
}

// outcomeFailed decides whether a per-domain lookup counts as failed: the
// call itself erred, or the domain's document is unavailable.
func outcomeFailed(resp *domain.LookupResponse, err error) (bool, string) {
	if err != nil {
		return true, err.Error()
	}
	if resp.Cache.Status != domain.StatusSuccess {
		return true, fmt.Sprintf("sellers document unavailable (status %s)", resp.Cache.Status)
	}
	return false, ""
}

func errorCodeFor(meta domain.CacheMeta) string {
	if meta.ErrorCode != "" {
		return meta.ErrorCode
	}
	switch meta.Status {
	case domain.StatusNotFound:
		return domain.CodeNotFound
	case domain.StatusInvalidFormat:
		return domain.CodeInvalidFormat
	case domain.StatusError:
		return domain.CodeFetchFailed
	default:
		return ""
	}
}

// degradedResponse stands in for a domain whose lookup never produced a
// response, reporting every requested ID as not found.
func degradedResponse(request *domain.LookupRequest, reason string) *domain.LookupResponse {
	ids, err := domain.NormalizeSellerIDs(request.SellerIDs)
	if err != nil {
		ids = request.SellerIDs
	}

	results := make([]domain.SellerResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, domain.SellerResult{
			SellerID: id,
			Found:    false,
			Source:   domain.SourceFresh,
			Error:    reason,
		})
	}

	return &domain.LookupResponse{
		Domain:         domain.NormalizeDomain(request.Domain),
		RequestedCount: len(ids),
		FoundCount:     0,
		Results:        results,
		Cache:          domain.CacheMeta{Status: domain.StatusError},
	}
}
