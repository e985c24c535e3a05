// Package fetcher retrieves sellers documents over HTTP and classifies
// every outcome into a cache record. Classification failures are recovered
// locally as cached records; only storage faults and caller cancellation
// surface as errors.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/internal/sellers/metrics"
	"github.com/supplyline/go-sellers-cache/internal/sellers/resolver"
	"github.com/supplyline/go-sellers-cache/internal/sellers/store"
	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

// URLResolver supplies the fetch plan for a domain.
type URLResolver interface {
	Resolve(dom string) resolver.Resolution
}

// Config tunes the HTTP behavior. Zero values fall back to limits sized
// for multi-hundred-megabyte documents behind slow, redirect-heavy hosts.
type Config struct {
	Timeout           time.Duration
	MaxBodyBytes      int64
	MaxRedirects      int
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 200 << 20 // 200MB
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 10
	}
	if c.UserAgent == "" {
		c.UserAgent = "go-sellers-cache/1.0"
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
}

type Fetcher struct {
	client    *http.Client
	resolver  URLResolver
	store     store.Store
	publisher domain.EventPublisher
	metrics   metrics.Metrics
	limiter   *rate.Limiter
	logger    *zap.Logger
	config    Config
}

func New(
	res URLResolver,
	st store.Store,
	publisher domain.EventPublisher,
	metricsCollector metrics.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Fetcher {
	cfg.defaults()

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		resolver:  res,
		store:     st,
		publisher: publisher,
		metrics:   metricsCollector,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:    logger,
		config:    cfg,
	}
}

// Fetch always goes to the network, classifies the outcome, and persists
// the resulting record as its last step. The parsed document is returned
// alongside success records so callers never decode the body again.
func (f *Fetcher) Fetch(ctx context.Context, dom string) (*domain.CacheRecord, *sellersjson.Document, error) {
	start := time.Now()
	dom = domain.NormalizeDomain(dom)

	res := f.resolver.Resolve(dom)

	record, doc, err := f.attempt(ctx, res.PrimaryURL)
	if err != nil {
		return nil, nil, err
	}

	// One retry against the canonical URL, but only when an override was
	// in play and the primary outcome was not definitive. A 200 or 404
	// settles the domain; everything else gets the second attempt.
	if res.FallbackURL != "" && record.Status == domain.StatusError {
		f.logger.Warn("Primary URL failed, retrying canonical fallback",
			zap.String("domain", dom),
			zap.String("primary_url", res.PrimaryURL),
			zap.String("fallback_url", res.FallbackURL),
			zap.String("error", record.ErrorMessage))

		record, doc, err = f.attempt(ctx, res.FallbackURL)
		if err != nil {
			return nil, nil, err
		}
	}

	record.Domain = dom
	record.UpdatedAt = time.Now().UTC()

	// A failed fetch is cached too: repeated lookups during an outage must
	// not repeat the network cost until the error TTL elapses.
	if err := f.store.Put(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("failed to persist cache record for %s: %w", dom, err)
	}

	f.metrics.IncrementCounter("fetch." + string(record.Status))
	f.metrics.RecordDuration("fetch", time.Since(start))
	f.publishOutcome(ctx, record, doc)

	f.logger.Info("Refreshed sellers document",
		zap.String("domain", dom),
		zap.String("status", string(record.Status)),
		zap.Duration("elapsed", time.Since(start)))

	return record, doc, nil
}

func (f *Fetcher) attempt(ctx context.Context, url string) (*domain.CacheRecord, *sellersjson.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errorRecord(domain.CodeFetchFailed,
			fmt.Sprintf("invalid request URL %s: %v", url, err)), nil, nil
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		// Caller cancellation is not a remote outcome and must not be
		// cached against the domain.
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		code, detail := classifyTransport(err)
		return errorRecord(code, detail), nil, nil
	}
	defer resp.Body.Close()

	// Read one byte past the cap so an exactly-at-limit body is
	// distinguishable from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		code, detail := classifyTransport(err)
		record := errorRecord(code, detail)
		status := resp.StatusCode
		record.StatusCode = &status
		return record, nil, nil
	}
	if int64(len(body)) > f.config.MaxBodyBytes {
		status := resp.StatusCode
		return &domain.CacheRecord{
			Status:     domain.StatusInvalidFormat,
			StatusCode: &status,
			ErrorMessage: domain.FormatError(domain.CodeInvalidFormat,
				fmt.Sprintf("document exceeds the %d byte limit", f.config.MaxBodyBytes)),
		}, nil, nil
	}

	record, doc := classifyResponse(resp.StatusCode, body)
	return record, doc, nil
}

// classifyResponse turns a complete HTTP response into a cache record.
// 4xx/5xx are outcomes here, never errors.
func classifyResponse(statusCode int, body []byte) (*domain.CacheRecord, *sellersjson.Document) {
	code := statusCode

	switch {
	case statusCode == http.StatusOK:
		doc, err := sellersjson.Parse(body)
		if err != nil {
			return &domain.CacheRecord{
				Status:       domain.StatusInvalidFormat,
				StatusCode:   &code,
				ErrorMessage: domain.FormatError(domain.CodeInvalidFormat, err.Error()),
			}, nil
		}
		content, err := doc.Canonical()
		if err != nil {
			return &domain.CacheRecord{
				Status:       domain.StatusInvalidFormat,
				StatusCode:   &code,
				ErrorMessage: domain.FormatError(domain.CodeInvalidFormat, err.Error()),
			}, nil
		}
		// An empty seller list still counts: a sparse document is valid
		// and distinct from not_found.
		return &domain.CacheRecord{
			Status:     domain.StatusSuccess,
			StatusCode: &code,
			Content:    content,
		}, doc

	case statusCode == http.StatusNotFound:
		return &domain.CacheRecord{
			Status:     domain.StatusNotFound,
			StatusCode: &code,
			ErrorMessage: domain.FormatError(domain.CodeNotFound,
				"no sellers.json published at this domain"),
		}, nil

	case statusCode == http.StatusForbidden:
		return &domain.CacheRecord{
			Status:     domain.StatusError,
			StatusCode: &code,
			ErrorMessage: domain.FormatError(domain.CodeAccessForbidden,
				"remote server denied access (HTTP 403)"),
		}, nil

	case statusCode >= 500:
		return &domain.CacheRecord{
			Status:     domain.StatusError,
			StatusCode: &code,
			ErrorMessage: domain.FormatError(domain.CodeServerError,
				fmt.Sprintf("remote server error (HTTP %d)", statusCode)),
		}, nil

	default:
		return &domain.CacheRecord{
			Status:     domain.StatusError,
			StatusCode: &code,
			ErrorMessage: domain.FormatError(domain.CodeHTTPError,
				fmt.Sprintf("unexpected HTTP status %d", statusCode)),
		}, nil
	}
}

// classifyTransport maps a failure with no usable response onto the error
// taxonomy. Unrecognized causes land in the generic FETCH_FAILED bucket.
func classifyTransport(err error) (string, string) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.CodeDNSLookupFailed, err.Error()
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return domain.CodeSSLCertificate, err.Error()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.CodeConnectionTimeout, err.Error()
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.CodeConnectionReset, err.Error()
	}

	msg := err.Error()
	if strings.Contains(msg, "x509:") || strings.Contains(msg, "tls:") {
		return domain.CodeSSLCertificate, msg
	}

	return domain.CodeFetchFailed, msg
}

func (f *Fetcher) publishOutcome(ctx context.Context, record *domain.CacheRecord, doc *sellersjson.Document) {
	var err error
	if record.Status == domain.StatusError {
		err = f.publisher.PublishDocumentFailed(ctx, record)
	} else {
		count := 0
		if doc != nil {
			count = len(doc.Sellers)
		}
		err = f.publisher.PublishDocumentRefreshed(ctx, record, count)
	}
	if err != nil {
		f.logger.Error("Failed to publish refresh event",
			zap.Error(err), zap.String("domain", record.Domain))
	}
}

func errorRecord(code, detail string) *domain.CacheRecord {
	return &domain.CacheRecord{
		Status:       domain.StatusError,
		ErrorMessage: domain.FormatError(code, detail),
	}
}
